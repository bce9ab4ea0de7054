package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreKeepsLatestPerPlant(t *testing.T) {
	store := NewStore()
	now := time.Now().UTC()

	store.Set(Measurement{PowerPlantID: "a", Power: 100, ReceivedAt: now.Add(-time.Minute)})
	store.Set(Measurement{PowerPlantID: "a", Power: 150, ReceivedAt: now})
	store.Set(Measurement{PowerPlantID: "b", Power: 50, ReceivedAt: now})

	power, at, ok := store.LatestPower("a")
	require.True(t, ok)
	assert.InDelta(t, 150.0, power, 1e-9)
	assert.True(t, at.Equal(now))

	_, _, ok = store.LatestPower("missing")
	assert.False(t, ok)

	assert.Len(t, store.Snapshot(), 2)
}

func TestHandleParsesPowerMessage(t *testing.T) {
	store := NewStore()
	in := &Ingest{store: store, topicPrefix: "wattshare/plants", logger: testLogger()}

	ts := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	in.handle("wattshare/plants/plant-1", []byte(`{"power": 420.5, "timestamp": "2026-08-30T12:00:00Z"}`))

	power, at, ok := store.LatestPower("plant-1")
	require.True(t, ok)
	assert.InDelta(t, 420.5, power, 1e-9)
	assert.True(t, at.Equal(ts))
}

func TestHandleIgnoresMalformedPayload(t *testing.T) {
	store := NewStore()
	in := &Ingest{store: store, topicPrefix: "wattshare/plants", logger: testLogger()}

	in.handle("wattshare/plants/plant-1", []byte(`not json`))
	in.handle("wattshare/plants/a/b", []byte(`{"power": 1}`))

	assert.False(t, store.Healthy())
}
