package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/core/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBroadcast(t *testing.T) {
	ctx := context.Background()
	center := NewLocal()

	var got []*notify.SendMsg
	require.NoError(t, center.Registry(ctx, notify.OrderStatus, func(_ context.Context, msg string) error {
		m := &notify.SendMsg{}
		if err := json.Unmarshal([]byte(msg), m); err != nil {
			return err
		}
		got = append(got, m)
		return nil
	}))

	require.NoError(t, center.Broadcast(ctx, &notify.SendMsg{Channel: notify.OrderStatus, ClinicID: 7}))
	require.NoError(t, center.Broadcast(ctx, &notify.SendMsg{Channel: notify.OrderPlaced, ClinicID: 8}))

	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].ClinicID)
}

func TestLocalRegistryTwice(t *testing.T) {
	ctx := context.Background()
	center := NewLocal()
	noop := func(context.Context, string) error { return nil }

	require.NoError(t, center.Registry(ctx, notify.OrderStatus, noop))
	err := center.Registry(ctx, notify.OrderStatus, noop)
	assert.True(t, errors.Is(err, code.NotifyActionAlreadyRegistryErr))

	require.NoError(t, center.Close(ctx))
	assert.NoError(t, center.Registry(ctx, notify.OrderStatus, noop))
}
