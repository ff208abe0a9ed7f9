package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/suggestit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvents(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	_, err := repos.Events.AddEvents(ctx,
		&core.Event{UserID: "u1", Type: "click", Payload: `{"id":1}`, Timestamp: now.Add(-2 * time.Hour)},
		&core.Event{UserID: "u1", Type: "view", Timestamp: now.Add(-1 * time.Hour)},
		&core.Event{UserID: "u2", Type: "click", Timestamp: now},
	)
	require.NoError(t, err)

	clicks, err := repos.Events.GetEventsByType(ctx, "click")
	require.NoError(t, err)
	require.Len(t, clicks, 2)
	assert.Equal(t, `{"id":1}`, clicks[0].Payload)
	assert.Equal(t, "u2", clicks[1].UserID)

	recent, err := repos.Events.GetEventsByDateRange(ctx, now.Add(-90*time.Minute), time.Time{})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	none, err := repos.Events.GetEventsByType(ctx, "clic")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEvents_DefaultTimestamp(t *testing.T) {
	repos := newTestRepositories(t)
	added, err := repos.Events.AddEvents(context.Background(), &core.Event{UserID: "u1", Type: "search"})
	require.NoError(t, err)
	assert.False(t, added[0].Timestamp.IsZero())
}
