package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/voltfield/backend/internal/domain/models"
	"github.com/voltfield/backend/pkg/auth"
	"github.com/voltfield/backend/pkg/constants"
	"github.com/voltfield/backend/pkg/errors"
)

type fakeAutoSyncLister struct {
	mu   sync.Mutex
	docs []*models.Document
	err  error
}

func (f *fakeAutoSyncLister) FindAutoSyncEnabled(ctx context.Context) ([]*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs, f.err
}

func (f *fakeAutoSyncLister) set(docs ...*models.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = docs
}

type schedulerCall struct {
	projectID   string
	documentID  string
	triggeredBy string
	allShapes   bool
}

type fakeSyncRunner struct {
	mu     sync.Mutex
	calls  []schedulerCall
	block  chan struct{}
	panics bool
	err    error
}

func (f *fakeSyncRunner) Sync(ctx context.Context, projectID, documentID string, shapeIDs []string, triggeredBy string, user *auth.UserSession) (*models.SyncResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, schedulerCall{projectID, documentID, triggeredBy, shapeIDs == nil})
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}
	if f.panics {
		panic("sync exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.SyncResult{Created: 1, TriggeredBy: triggeredBy}, nil
}

func (f *fakeSyncRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func autoSyncDoc(id string, schedule string) *models.Document {
	doc := &models.Document{
		ID:                 id,
		ProjectID:          "p-1",
		ExternalDocumentID: "ext-" + id,
		Title:              "Floor Plan",
		AutoSync:           true,
	}
	if schedule != "" {
		doc.SyncSchedule = &schedule
	}
	return doc
}

func (s *SchedulerService) forceDue(documentID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRuns[documentID] = at
}

func (s *SchedulerService) nextRunFor(documentID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := s.nextRuns[documentID]
	return next, ok
}

func TestSchedulerSeedsBeforeRunning(t *testing.T) {
	lister := &fakeAutoSyncLister{}
	lister.set(autoSyncDoc("d-1", ""))
	runner := &fakeSyncRunner{}
	s := NewSchedulerService(lister, runner, "")

	now := time.Date(2026, 3, 1, 10, 2, 0, 0, time.UTC)
	s.runDueSyncs(now)

	assert.Equal(t, 0, runner.callCount())
	next, ok := s.nextRunFor("d-1")
	require.True(t, ok)
	// Default schedule is hourly on the hour.
	assert.Equal(t, time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC), next)
}

func TestSchedulerHonorsDocumentSchedule(t *testing.T) {
	lister := &fakeAutoSyncLister{}
	lister.set(autoSyncDoc("d-1", "*/5 * * * *"))
	runner := &fakeSyncRunner{}
	s := NewSchedulerService(lister, runner, "")

	now := time.Date(2026, 3, 1, 10, 2, 0, 0, time.UTC)
	s.runDueSyncs(now)

	next, ok := s.nextRunFor("d-1")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC), next)
}

func TestSchedulerRunsDueDocuments(t *testing.T) {
	lister := &fakeAutoSyncLister{}
	lister.set(autoSyncDoc("d-1", ""))
	runner := &fakeSyncRunner{}
	s := NewSchedulerService(lister, runner, "")

	now := time.Date(2026, 3, 1, 10, 2, 0, 0, time.UTC)
	s.runDueSyncs(now)
	s.forceDue("d-1", now.Add(-time.Minute))
	s.runDueSyncs(now)
	s.wg.Wait()

	require.Equal(t, 1, runner.callCount())
	call := runner.calls[0]
	assert.Equal(t, "p-1", call.projectID)
	assert.Equal(t, "d-1", call.documentID)
	assert.Equal(t, constants.SyncTriggerScheduled, call.triggeredBy)
	assert.True(t, call.allShapes)

	next, ok := s.nextRunFor("d-1")
	require.True(t, ok)
	assert.True(t, next.After(now))
}

func TestSchedulerNeverOverlapsItself(t *testing.T) {
	lister := &fakeAutoSyncLister{}
	lister.set(autoSyncDoc("d-1", ""))
	runner := &fakeSyncRunner{block: make(chan struct{})}
	s := NewSchedulerService(lister, runner, "")

	now := time.Date(2026, 3, 1, 10, 2, 0, 0, time.UTC)
	s.runDueSyncs(now)
	s.forceDue("d-1", now.Add(-time.Minute))
	s.runDueSyncs(now)

	// The first dispatch is still blocked inside Sync; a due document
	// must not be dispatched a second time.
	s.forceDue("d-1", now.Add(-time.Minute))
	s.runDueSyncs(now)

	close(runner.block)
	s.wg.Wait()

	assert.Equal(t, 1, runner.callCount())
}

func TestSchedulerRetriesAfterMissedRun(t *testing.T) {
	lister := &fakeAutoSyncLister{}
	lister.set(autoSyncDoc("d-1", ""))
	runner := &fakeSyncRunner{block: make(chan struct{})}
	s := NewSchedulerService(lister, runner, "")

	now := time.Date(2026, 3, 1, 10, 2, 0, 0, time.UTC)
	s.runDueSyncs(now)
	s.forceDue("d-1", now.Add(-time.Minute))
	s.runDueSyncs(now)

	s.forceDue("d-1", now.Add(-time.Minute))
	s.runDueSyncs(now) // skipped while in flight, due time stays put

	close(runner.block)
	s.wg.Wait()

	s.runDueSyncs(now)
	s.wg.Wait()

	assert.Equal(t, 2, runner.callCount())
}

func TestSchedulerStopsTrackingRemovedDocuments(t *testing.T) {
	lister := &fakeAutoSyncLister{}
	lister.set(autoSyncDoc("d-1", ""))
	runner := &fakeSyncRunner{}
	s := NewSchedulerService(lister, runner, "")

	now := time.Date(2026, 3, 1, 10, 2, 0, 0, time.UTC)
	s.runDueSyncs(now)
	_, ok := s.nextRunFor("d-1")
	require.True(t, ok)

	lister.set()
	s.runDueSyncs(now)

	_, ok = s.nextRunFor("d-1")
	assert.False(t, ok)
}

func TestSchedulerSkipsInvalidSchedule(t *testing.T) {
	lister := &fakeAutoSyncLister{}
	lister.set(autoSyncDoc("d-1", "not a cron line"))
	runner := &fakeSyncRunner{}
	s := NewSchedulerService(lister, runner, "")

	now := time.Date(2026, 3, 1, 10, 2, 0, 0, time.UTC)
	s.runDueSyncs(now)
	s.runDueSyncs(now)

	assert.Equal(t, 0, runner.callCount())
	_, ok := s.nextRunFor("d-1")
	assert.False(t, ok)
}

func TestSchedulerRecoversFromPanickingSync(t *testing.T) {
	lister := &fakeAutoSyncLister{}
	lister.set(autoSyncDoc("d-1", ""))
	runner := &fakeSyncRunner{panics: true}
	s := NewSchedulerService(lister, runner, "")

	now := time.Date(2026, 3, 1, 10, 2, 0, 0, time.UTC)
	s.runDueSyncs(now)
	s.forceDue("d-1", now.Add(-time.Minute))
	s.runDueSyncs(now)
	s.wg.Wait()

	// The panic must not leave the document marked as in flight.
	s.forceDue("d-1", now.Add(-time.Minute))
	s.runDueSyncs(now)
	s.wg.Wait()

	assert.Equal(t, 2, runner.callCount())
}

func TestSchedulerToleratesSyncConflicts(t *testing.T) {
	lister := &fakeAutoSyncLister{}
	lister.set(autoSyncDoc("d-1", ""))
	runner := &fakeSyncRunner{err: errors.NewConflictError("document", "sync", "d-1")}
	s := NewSchedulerService(lister, runner, "")

	now := time.Date(2026, 3, 1, 10, 2, 0, 0, time.UTC)
	s.runDueSyncs(now)
	s.forceDue("d-1", now.Add(-time.Minute))
	s.runDueSyncs(now)
	s.wg.Wait()

	assert.Equal(t, 1, runner.callCount())
}

func TestSchedulerStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	lister := &fakeAutoSyncLister{}
	runner := &fakeSyncRunner{}
	s := NewSchedulerService(lister, runner, "")
	s.interval = 5 * time.Millisecond

	done := make(chan struct{})
	go func() {
		s.Start()
		close(done)
	}()

	time.Sleep(25 * time.Millisecond)
	s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	// A second Stop is a no-op.
	s.Stop()
}
