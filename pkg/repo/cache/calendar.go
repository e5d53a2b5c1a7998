package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/isoflow/clinicorder/pkg/common/constant"
	"github.com/isoflow/clinicorder/pkg/middleware/redis"
	"github.com/isoflow/clinicorder/pkg/repo"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"github.com/isoflow/clinicorder/pkg/utils"
	r "github.com/redis/go-redis/v9"
)

type calendarCache struct {
	client *r.Client
	prefix string
	ttl    time.Duration
}

func NewCalendar(prefix string) repo.CalendarCache {
	return NewCalendarWithClient(redis.GetClient(), prefix)
}

func NewCalendarWithClient(client *r.Client, prefix string) repo.CalendarCache {
	return &calendarCache{client: client, prefix: prefix, ttl: constant.CalendarCacheTTL}
}

func (c *calendarCache) key(k repo.CalendarKey) string {
	return fmt.Sprintf("%s:%d:%s:%s:%s", c.prefix, k.ReactorID,
		utils.FormatDate(k.From), utils.FormatDate(k.To), utils.FormatDate(k.Today))
}

func (c *calendarCache) GetCalendar(ctx context.Context, k repo.CalendarKey) ([]*model.CalendarEntry, bool, error) {
	raw, err := c.client.Get(ctx, c.key(k)).Bytes()
	if errors.Is(err, r.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var entries []*model.CalendarEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false, err
	}
	return entries, true, nil
}

func (c *calendarCache) SetCalendar(ctx context.Context, k repo.CalendarKey, entries []*model.CalendarEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(k), raw, c.ttl).Err()
}

func (c *calendarCache) InvalidateReactor(ctx context.Context, reactorID int64) error {
	match := fmt.Sprintf("%s:%d:*", c.prefix, reactorID)
	iter := c.client.Scan(ctx, 0, match, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
