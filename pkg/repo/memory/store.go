// Package memory holds process local implementations of the repository
// interfaces. ExecTx serializes on one mutex and restores a snapshot when fn
// fails, which gives the same all-or-nothing and row lock behaviour as the
// postgres implementation for a single process.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/repo/model"
)

type txKey struct{}

type tables struct {
	reactors      map[int64]model.Reactor
	cycles        map[int64]model.ReactorCycle
	orders        map[int64]model.Order
	clinics       map[int64]model.Clinic
	notifications map[int64]model.Notification
}

func (t *tables) clone() *tables {
	return &tables{
		reactors:      cloneMap(t.reactors),
		cycles:        cloneMap(t.cycles),
		orders:        cloneMap(t.orders),
		clinics:       cloneMap(t.clinics),
		notifications: cloneMap(t.notifications),
	}
}

func cloneMap[T any](in map[int64]T) map[int64]T {
	out := make(map[int64]T, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type Store struct {
	mu     sync.Mutex
	nextID int64
	data   *tables
	now    func() time.Time
}

func NewStore() *Store {
	return &Store{
		data: &tables{
			reactors:      make(map[int64]model.Reactor),
			cycles:        make(map[int64]model.ReactorCycle),
			orders:        make(map[int64]model.Order),
			clinics:       make(map[int64]model.Clinic),
			notifications: make(map[int64]model.Notification),
		},
		now: time.Now,
	}
}

func (s *Store) ExecTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.data.clone()
	nextID := s.nextID
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.data = snapshot
		s.nextID = nextID
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// do runs fn under the store lock unless ctx already holds it.
func (s *Store) do(ctx context.Context, fn func() error) error {
	if inTx(ctx) {
		return fn()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *Store) stamp(b *model.BaseModel) {
	s.nextID++
	b.ID = s.nextID
	if b.UUID.IsNil() {
		b.UUID = uuid.NewV4()
	}
	now := s.now()
	b.CreatedAt = now
	b.UpdatedAt = now
}
