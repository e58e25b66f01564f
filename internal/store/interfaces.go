// Package store defines the primary and shadow repository contracts and the
// backends that implement the shadow side.
package store

import (
	"context"
	"errors"

	"github.com/leaseline-platform/shadowsync-go/internal/domain"
)

// ErrNotFound signals a write against an ID the store does not hold.
// Read paths never return it; they report absence as a nil entity.
var ErrNotFound = errors.New("store: entity not found")

// Primary is the authoritative repository. It is owned by the surrounding
// application; the engine only ever consumes it through this contract.
// List must page in a stable order (creation order) so repeated verification
// runs over unchanged data visit entities identically.
type Primary interface {
	Create(ctx context.Context, e domain.Entity) (domain.Entity, error)
	Update(ctx context.Context, id string, fields map[string]any) (domain.Entity, error)
	Delete(ctx context.Context, id string) (bool, error)
	FindByID(ctx context.Context, id string) (*domain.Entity, error)
	List(ctx context.Context, limit, offset int) ([]domain.Entity, error)
}

// Shadow is the mirrored secondary store. Write-only from the application's
// perspective; its read surface exists solely for verification.
//
// Update returns ErrNotFound for a missing ID. Delete reports whether the ID
// existed. FindByID returns (nil, nil) for a missing ID.
type Shadow interface {
	Create(ctx context.Context, e domain.Entity) (domain.Entity, error)
	Update(ctx context.Context, id string, fields map[string]any) (domain.Entity, error)
	Delete(ctx context.Context, id string) (bool, error)
	FindByID(ctx context.Context, id string) (*domain.Entity, error)
	FindAll(ctx context.Context, limit, offset int) ([]domain.Entity, error)
	Count(ctx context.Context) (int, error)
	AllIDs(ctx context.Context) ([]string, error)
}
