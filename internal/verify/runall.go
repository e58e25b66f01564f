package verify

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/leaseline-platform/shadowsync-go/internal/domain"
)

// RunAll executes the given verifiers concurrently, at most parallelism at a
// time (<=0 means all at once). Per-run failures are captured inside each
// VerificationResult, not returned; the error reports only a cancelled
// context. Results are ordered like the input.
func RunAll(ctx context.Context, verifiers []*Verifier, parallelism int) ([]domain.VerificationResult, error) {
	results := make([]domain.VerificationResult, len(verifiers))

	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, v := range verifiers {
		g.Go(func() error {
			results[i] = v.Run(ctx)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
