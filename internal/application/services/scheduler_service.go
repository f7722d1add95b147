package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/voltfield/backend/internal/domain/models"
	"github.com/voltfield/backend/pkg/auth"
	"github.com/voltfield/backend/pkg/constants"
	"github.com/voltfield/backend/pkg/errors"
)

type autoSyncLister interface {
	FindAutoSyncEnabled(ctx context.Context) ([]*models.Document, error)
}

type syncRunner interface {
	Sync(ctx context.Context, projectID, documentID string, shapeIDs []string, triggeredBy string, user *auth.UserSession) (*models.SyncResult, error)
}

// SchedulerService runs the auto-sync loop: every check interval it
// polls the documents with auto sync enabled, computes their next run
// from the cron schedule, and dispatches due syncs in the background.
type SchedulerService struct {
	documents autoSyncLister
	syncs     syncRunner
	schedule  string
	parser    cron.Parser
	interval  time.Duration
	stopChan  chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
	stopped   bool // Prevents double-close of stopChan
	inFlight  map[string]bool
	nextRuns  map[string]time.Time
}

// NewSchedulerService creates a new scheduler service. defaultSchedule
// is the cron expression used for documents without their own
// sync_schedule; empty means constants.DefaultAutoSyncSchedule.
func NewSchedulerService(documents autoSyncLister, syncs syncRunner, defaultSchedule string) *SchedulerService {
	if defaultSchedule == "" {
		defaultSchedule = constants.DefaultAutoSyncSchedule
	}
	return &SchedulerService{
		documents: documents,
		syncs:     syncs,
		schedule:  defaultSchedule,
		parser:    cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		interval:  time.Duration(constants.ScheduleCheckIntervalSecs) * time.Second,
		stopChan:  make(chan struct{}),
		inFlight:  make(map[string]bool),
		nextRuns:  make(map[string]time.Time),
	}
}

// Start begins the scheduler background loop
func (s *SchedulerService) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	log.Println("⏰ Auto-sync scheduler starting...")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Seed next-run times right away so the first tick has baselines.
	s.runDueSyncs(time.Now().UTC())

	for {
		select {
		case <-ticker.C:
			s.runDueSyncs(time.Now().UTC())
		case <-s.stopChan:
			log.Println("⏰ Auto-sync scheduler stopping...")
			s.wg.Wait() // Wait for running syncs to complete
			log.Println("⏰ Auto-sync scheduler stopped")
			return
		}
	}
}

// Stop gracefully stops the scheduler
func (s *SchedulerService) Stop() {
	s.mu.Lock()
	if !s.running || s.stopped {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.stopped = true
	s.mu.Unlock()

	close(s.stopChan)
}

// runDueSyncs polls the auto-sync documents and dispatches every one
// whose next-run time has passed. A document first seen here is seeded
// with its next occurrence instead of running immediately, so a restart
// never triggers a sync storm.
func (s *SchedulerService) runDueSyncs(now time.Time) {
	docs, err := s.documents.FindAutoSyncEnabled(context.Background())
	if err != nil {
		log.Printf("⚠️ Failed to load auto-sync documents: %v", err)
		return
	}

	seen := make(map[string]bool, len(docs))
	for _, doc := range docs {
		seen[doc.ID] = true

		spec := s.schedule
		if doc.SyncSchedule != nil && *doc.SyncSchedule != "" {
			spec = *doc.SyncSchedule
		}

		schedule, err := s.parser.Parse(spec)
		if err != nil {
			log.Printf("⚠️ Invalid sync schedule %q for document %s: %v", spec, doc.ID, err)
			continue
		}

		s.mu.Lock()
		next, known := s.nextRuns[doc.ID]
		if !known {
			s.nextRuns[doc.ID] = schedule.Next(now)
			s.mu.Unlock()
			continue
		}
		if now.Before(next) {
			s.mu.Unlock()
			continue
		}
		if s.inFlight[doc.ID] {
			// Leave the due time in place so the missed run fires on the
			// first tick after the slow one finishes.
			s.mu.Unlock()
			log.Printf("⏭️ Document %s is still syncing, skipping this run", doc.ID)
			continue
		}
		s.inFlight[doc.ID] = true
		s.nextRuns[doc.ID] = schedule.Next(now)
		s.mu.Unlock()

		s.wg.Add(1)
		go func(d models.Document) {
			defer s.wg.Done()
			s.runDocumentSync(&d)
		}(*doc)
	}

	// Documents that dropped out of auto-sync stop being tracked.
	s.mu.Lock()
	for id := range s.nextRuns {
		if !seen[id] {
			delete(s.nextRuns, id)
		}
	}
	s.mu.Unlock()
}

// runDocumentSync executes one scheduled sync with safety guards.
func (s *SchedulerService) runDocumentSync(doc *models.Document) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("🔥 Panic in scheduled sync for document %s: %v", doc.ID, r)
		}
		s.mu.Lock()
		delete(s.inFlight, doc.ID)
		s.mu.Unlock()
	}()

	timeout := time.Duration(constants.SyncMaxRuntimeMins) * time.Minute
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log.Printf("⏰ Starting scheduled sync for document %q (%s)", doc.Title, doc.ID)

	startTime := time.Now()
	result, err := s.syncs.Sync(ctx, doc.ProjectID, doc.ID, nil, constants.SyncTriggerScheduled, nil)
	duration := time.Since(startTime)

	switch {
	case err == nil:
		log.Printf("✅ Scheduled sync for document %s completed in %v: %d created, %d updated, %d errors",
			doc.ID, duration, result.Created, result.Updated, result.ErrorCount())
	case errors.IsConflict(err):
		log.Printf("⏭️ Document %s is already being synced elsewhere, skipping", doc.ID)
	case errors.IsValidation(err):
		log.Printf("⚠️ Scheduled sync for document %s skipped: %v", doc.ID, err)
	default:
		log.Printf("❌ Scheduled sync for document %s failed after %v: %v", doc.ID, duration, err)
	}
}
