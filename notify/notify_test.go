package notify

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wattshare/wattshare-go/database"
	"github.com/wattshare/wattshare-go/domain"
)

func newService(t *testing.T) *Service {
	t.Helper()
	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return NewService(db)
}

func TestSendAndList(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	sent, err := svc.Send(ctx, "sender", "receiver", TypeJoinRequest, JoinRequestPayload{
		CommunityID: "c1",
		UserID:      "sender",
		PowerPlants: []string{"p1"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sent.ID)
	assert.False(t, sent.Processed)

	list, err := svc.List(ctx, "receiver")
	require.NoError(t, err)
	require.Len(t, list, 1)

	var payload JoinRequestPayload
	require.NoError(t, json.Unmarshal(list[0].Payload, &payload))
	assert.Equal(t, "c1", payload.CommunityID)
	assert.Equal(t, []string{"p1"}, payload.PowerPlants)

	empty, err := svc.List(ctx, "sender")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestProcessOnlyByReceiver(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	sent, err := svc.Send(ctx, "sender", "receiver", TypeJoinRequest, JoinRequestPayload{})
	require.NoError(t, err)

	_, err = svc.Process(ctx, "sender", sent.ID)
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))

	processed, err := svc.Process(ctx, "receiver", sent.ID)
	require.NoError(t, err)
	assert.True(t, processed.Processed)

	_, err = svc.Process(ctx, "receiver", sent.ID)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}

func TestProcessUnknownNotification(t *testing.T) {
	svc := newService(t)

	_, err := svc.Process(context.Background(), "receiver", "missing")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}
