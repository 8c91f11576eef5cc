package fleet

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetdesk/internal/store"
)

func TestAlertLogTrimsToRingSize(t *testing.T) {
	log := NewAlertLog(store.NewMemory(), 3)
	for i := 0; i < 5; i++ {
		log.Publish(context.Background(), Alert{
			Type:      AlertStationary,
			BusNumber: fmt.Sprintf("B%d", i),
			At:        time.Now(),
		})
	}

	recent := log.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, "B2", recent[0].BusNumber)
	assert.Equal(t, "B4", recent[2].BusNumber)
}

func TestAlertLogPersistsAcrossLoads(t *testing.T) {
	mem := store.NewMemory()
	first := NewAlertLog(mem, 0)
	first.Publish(context.Background(), Alert{Type: AlertLowFuel, BusNumber: "B7", Message: "Bus B7 fuel level below 10%"})

	second := NewAlertLog(mem, 0)
	require.NoError(t, second.Load(context.Background()))
	recent := second.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, AlertLowFuel, recent[0].Type)
	assert.Equal(t, "B7", recent[0].BusNumber)
}

func TestAlertLogLoadReportsCorruptPayload(t *testing.T) {
	mem := store.NewMemory()
	mem.Corrupt(store.Alerts, []byte("{nope"))

	log := NewAlertLog(mem, 0)
	err := log.Load(context.Background())
	var corrupt *store.CorruptStateError
	require.ErrorAs(t, err, &corrupt)
	assert.Empty(t, log.Recent())
}

func TestAlertLogRecentReturnsCopy(t *testing.T) {
	log := NewAlertLog(store.NewMemory(), 0)
	log.Publish(context.Background(), Alert{Type: AlertStationary, BusNumber: "B1"})

	recent := log.Recent()
	recent[0].BusNumber = "changed"
	assert.Equal(t, "B1", log.Recent()[0].BusNumber)
}
