package health_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magicorntech/gcp-secret-manager/internal/health"
)

func TestTrackerDefaultsToNotInitialized(t *testing.T) {
	t.Parallel()

	tracker := health.NewTracker()
	snap := tracker.Report()

	assert.False(t, snap.Source.Ready)
	assert.False(t, snap.Sink.Ready)
	assert.Equal(t, "not yet initialized", snap.Source.Detail)
	assert.Nil(t, snap.LastSync)
	assert.False(t, snap.Healthy())
}

func TestTrackerRecordsClientHealth(t *testing.T) {
	t.Parallel()

	tracker := health.NewTracker()
	tracker.SetSourceHealth(true, "client initialized")
	tracker.SetSinkHealth(true, "client initialized (namespace: default)")

	snap := tracker.Report()
	assert.True(t, snap.Healthy())
	assert.Contains(t, snap.Sink.Detail, "default")
}

func TestTrackerOverwritesSyncResult(t *testing.T) {
	t.Parallel()

	tracker := health.NewTracker()

	tracker.RecordSync(health.SyncResult{
		Outcome:   health.OutcomeFailure,
		Timestamp: time.Now(),
		Error:     "source unavailable",
	})
	tracker.RecordSync(health.SyncResult{
		Outcome:   health.OutcomeSuccess,
		Timestamp: time.Now(),
	})

	snap := tracker.Report()
	require.NotNil(t, snap.LastSync)
	assert.True(t, snap.LastSync.Succeeded())
	assert.Empty(t, snap.LastSync.Error)
}

func TestTrackerSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	tracker := health.NewTracker()
	tracker.RecordSync(health.SyncResult{Outcome: health.OutcomeSuccess, Timestamp: time.Now()})

	snap := tracker.Report()
	snap.LastSync.Outcome = health.OutcomeFailure
	snap.Source.Ready = true

	fresh := tracker.Report()
	assert.True(t, fresh.LastSync.Succeeded())
	assert.False(t, fresh.Source.Ready)
}

func TestTrackerConcurrentAccess(t *testing.T) {
	t.Parallel()

	tracker := health.NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tracker.RecordSync(health.SyncResult{Outcome: health.OutcomeSuccess, Timestamp: time.Now()})
		}()
		go func() {
			defer wg.Done()
			_ = tracker.Report()
		}()
	}
	wg.Wait()

	require.NotNil(t, tracker.Report().LastSync)
}
