package memory

import (
	"context"
	"sync"

	"github.com/isoflow/clinicorder/pkg/repo"
	"github.com/isoflow/clinicorder/pkg/repo/model"
)

type CalendarCache struct {
	mu      sync.Mutex
	entries map[repo.CalendarKey][]*model.CalendarEntry
}

func NewCalendarCache() *CalendarCache {
	return &CalendarCache{entries: make(map[repo.CalendarKey][]*model.CalendarEntry)}
}

func (c *CalendarCache) GetCalendar(_ context.Context, key repo.CalendarKey) ([]*model.CalendarEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, ok := c.entries[key]
	return entries, ok, nil
}

func (c *CalendarCache) SetCalendar(_ context.Context, key repo.CalendarKey, entries []*model.CalendarEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entries
	return nil
}

func (c *CalendarCache) InvalidateReactor(_ context.Context, reactorID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.ReactorID == reactorID {
			delete(c.entries, k)
		}
	}
	return nil
}

func (c *CalendarCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
