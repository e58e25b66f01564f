// Package versioning defines workflow versions and task queue names.
package versioning

const (
	// Workflow versions for determinism tracking.
	VerificationSweepV1 = "verification-sweep-v1"

	// Task queue for verification sweeps.
	QueueVerify = "shadowsync-verify"
)
