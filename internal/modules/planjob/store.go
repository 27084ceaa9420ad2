package planjob

import (
	"context"
	"time"

	"friendus/internal/cache"
)

const keyPrefix = "plan:job:"

// Store persists jobs in a cache.Store (Redis in production) with a TTL.
type Store struct {
	kv  cache.Store
	ttl time.Duration
}

func NewStore(kv cache.Store, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{kv: kv, ttl: ttl}
}

func (s *Store) Get(ctx context.Context, id string) (Job, error) {
	var j Job
	ok, err := s.kv.Get(ctx, keyPrefix+id, &j)
	if err != nil {
		return Job{}, err
	}
	if !ok {
		return Job{}, ErrNotFound
	}
	return j, nil
}

func (s *Store) Save(ctx context.Context, j Job) error {
	return s.kv.Set(ctx, keyPrefix+j.ID, j, s.ttl)
}
