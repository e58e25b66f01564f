// Command worker-shadowsync runs the Temporal worker serving verification
// sweeps. Supports stub mode (in-process stores) and production mode
// (sqlite/redis shadow backends against a primary snapshot).
package main

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/leaseline-platform/shadowsync-go/internal/config"
	"github.com/leaseline-platform/shadowsync-go/internal/evidence"
	"github.com/leaseline-platform/shadowsync-go/internal/observability"
	"github.com/leaseline-platform/shadowsync-go/internal/store"
	"github.com/leaseline-platform/shadowsync-go/internal/temporal/activities"
	"github.com/leaseline-platform/shadowsync-go/internal/temporal/versioning"
	"github.com/leaseline-platform/shadowsync-go/internal/temporal/workflows"
	"github.com/leaseline-platform/shadowsync-go/internal/verify"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := observability.InitLogger(cfg.LogLevel)

	if cfg.OTLPEnabled {
		shutdown, err := observability.InitTracer(context.Background(), cfg.ServiceName)
		if err != nil {
			log.Fatalf("otel: %v", err)
		}
		defer shutdown(context.Background()) //nolint:errcheck
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	emitter := evidence.NewLog(logger)

	primary, err := openPrimary(cfg)
	if err != nil {
		log.Fatalf("primary store: %v", err)
	}

	verifiers := make(map[string]*verify.Verifier, len(cfg.EntityTypes))
	for _, entityType := range cfg.EntityTypes {
		shadow, err := openShadow(cfg, entityType)
		if err != nil {
			log.Fatalf("shadow store for %s: %v", entityType, err)
		}
		verifiers[entityType] = verify.New(verify.Config{
			EntityType:     entityType,
			MaxEntities:    cfg.MaxEntities,
			MaxDuration:    cfg.MaxDuration,
			PageSize:       cfg.PageSize,
			CompareFields:  cfg.CompareFields,
			ReadsPerSecond: cfg.ReadsPerSecond,
		}, primary, shadow, metrics, emitter)
	}

	c, err := client.Dial(client.Options{
		Logger: observability.NewTemporalSlogAdapter(logger),
	})
	if err != nil {
		log.Fatalf("unable to create Temporal client: %v", err)
	}
	defer c.Close()

	acts := &activities.Activities{Verifiers: verifiers}

	w := worker.New(c, versioning.QueueVerify, worker.Options{})
	w.RegisterWorkflow(workflows.VerificationSweepWorkflow)
	w.RegisterActivity(acts)

	log.Printf("starting worker on queue %s (backend=%s, entity types=%v)",
		versioning.QueueVerify, cfg.Backend, cfg.EntityTypes)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker failed: %v", err)
	}
}

// openPrimary returns the verifier's primary-side reader: a SQLite snapshot
// when configured, an empty in-process store otherwise (stub mode).
func openPrimary(cfg config.Config) (verify.PrimaryReader, error) {
	if cfg.PrimarySQLitePath != "" {
		s, err := store.OpenSQLite(cfg.PrimarySQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return store.NewMemory(), nil
}

func openShadow(cfg config.Config, entityType string) (verify.ShadowReader, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		// One database file per entity type so mirrors never share a table.
		s, err := store.OpenSQLite(sqlitePathFor(cfg.SQLitePath, entityType))
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendRedis:
		r, err := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "shadowsync:"+entityType)
		if err != nil {
			return nil, err
		}
		return r, nil
	case config.BackendMemory:
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func sqlitePathFor(base, entityType string) string {
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "-" + strings.ToLower(entityType) + ext
}
