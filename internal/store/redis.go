package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leaseline-platform/shadowsync-go/internal/domain"
)

// Redis is a durable shadow backend. Entities live as JSON strings under
// <prefix>:ent:<id>; a sorted set at <prefix>:ids scored by first-write time
// keeps the stable enumeration order the verifier relies on.
type Redis struct {
	client *redis.Client
	prefix string
}

var _ Shadow = (*Redis)(nil)

// NewRedis connects to Redis and verifies the connection with a ping.
// The prefix namespaces one entity type's mirror; use distinct prefixes for
// distinct entity types sharing a server.
func NewRedis(addr, password string, db int, prefix string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: connect %s: %w", addr, err)
	}

	return &Redis{client: client, prefix: prefix}, nil
}

// Close releases the client's connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) entityKey(id string) string { return r.prefix + ":ent:" + id }
func (r *Redis) indexKey() string           { return r.prefix + ":ids" }

func (r *Redis) Create(ctx context.Context, e domain.Entity) (domain.Entity, error) {
	doc, err := json.Marshal(e.Fields)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("redis: marshal fields for %s: %w", e.ID, err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.entityKey(e.ID), doc, 0)
	// NX keeps the original score on re-create, preserving creation order.
	pipe.ZAddNX(ctx, r.indexKey(), redis.Z{
		Score:  float64(time.Now().UnixNano()),
		Member: e.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Entity{}, fmt.Errorf("redis: create %s: %w", e.ID, err)
	}
	return e, nil
}

func (r *Redis) Update(ctx context.Context, id string, fields map[string]any) (domain.Entity, error) {
	cur, err := r.FindByID(ctx, id)
	if err != nil {
		return domain.Entity{}, err
	}
	if cur == nil {
		return domain.Entity{}, ErrNotFound
	}
	next := cur.Clone()
	for k, v := range fields {
		next.Fields[k] = v
	}
	doc, err := json.Marshal(next.Fields)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("redis: marshal fields for %s: %w", id, err)
	}
	if err := r.client.Set(ctx, r.entityKey(id), doc, 0).Err(); err != nil {
		return domain.Entity{}, fmt.Errorf("redis: update %s: %w", id, err)
	}
	return next, nil
}

func (r *Redis) Delete(ctx context.Context, id string) (bool, error) {
	pipe := r.client.TxPipeline()
	del := pipe.Del(ctx, r.entityKey(id))
	pipe.ZRem(ctx, r.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: delete %s: %w", id, err)
	}
	return del.Val() > 0, nil
}

func (r *Redis) FindByID(ctx context.Context, id string) (*domain.Entity, error) {
	doc, err := r.client.Get(ctx, r.entityKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: find %s: %w", id, err)
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(doc), &fields); err != nil {
		return nil, fmt.Errorf("redis: decode fields for %s: %w", id, err)
	}
	return &domain.Entity{ID: id, Fields: fields}, nil
}

func (r *Redis) FindAll(ctx context.Context, limit, offset int) ([]domain.Entity, error) {
	if limit <= 0 {
		return nil, nil
	}
	ids, err := r.client.ZRange(ctx, r.indexKey(),
		int64(offset), int64(offset+limit-1),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list ids: %w", err)
	}
	out := make([]domain.Entity, 0, len(ids))
	for _, id := range ids {
		e, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if e == nil {
			continue // index raced ahead of a delete
		}
		out = append(out, *e)
	}
	return out, nil
}

// List is FindAll under the primary-side reader's name.
func (r *Redis) List(ctx context.Context, limit, offset int) ([]domain.Entity, error) {
	return r.FindAll(ctx, limit, offset)
}

func (r *Redis) Count(ctx context.Context) (int, error) {
	n, err := r.client.ZCard(ctx, r.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: count: %w", err)
	}
	return int(n), nil
}

func (r *Redis) AllIDs(ctx context.Context) ([]string, error) {
	ids, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: all ids: %w", err)
	}
	return ids, nil
}
