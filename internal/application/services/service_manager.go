package services

import (
	"github.com/voltfield/backend/internal/infrastructure/cache"
	"github.com/voltfield/backend/internal/infrastructure/database"
	"github.com/voltfield/backend/internal/infrastructure/diagram"
	"github.com/voltfield/backend/internal/infrastructure/persistence"
)

// ServiceManager orchestrates all services with dependency injection
type ServiceManager struct {
	db *database.TiDBConnection

	Projects    *ProjectService
	Documents   *DocumentService
	RoomCatalog *RoomCatalogService
	Analysis    *AnalysisService
	Sync        *SyncService
	QuerySvc    *QueryService
	Scheduler   *SchedulerService
	Snapshots   *cache.SnapshotStore
}

// NewServiceManager creates a new service manager with all dependencies
// wired. snapshots may be nil when Redis is not configured; the services
// degrade to uncached behavior.
func NewServiceManager(db *database.TiDBConnection, snapshots *cache.SnapshotStore, diagramClient *diagram.Client, defaultSchedule string) *ServiceManager {
	sm := &ServiceManager{
		db:        db,
		Snapshots: snapshots,
	}

	// Repositories over the fixed schema
	projectRepo := persistence.NewProjectRepository(db.DB())
	roomRepo := persistence.NewRoomRepository(db.DB())
	aliasRepo := persistence.NewRoomAliasRepository(db.DB())
	dropRepo := persistence.NewDropRepository(db.DB())
	documentRepo := persistence.NewDocumentRepository(db.DB())
	syncLogRepo := persistence.NewSyncLogRepository(db.DB())

	// Services in dependency order
	sm.Projects = NewProjectService(projectRepo)
	sm.Documents = NewDocumentService(projectRepo, documentRepo, diagramClient)
	sm.RoomCatalog = NewRoomCatalogService(projectRepo, roomRepo, aliasRepo, snapshots)
	sm.Analysis = NewAnalysisService(projectRepo, documentRepo, roomRepo, aliasRepo, dropRepo, diagramClient, snapshots)
	sm.Sync = NewSyncService(projectRepo, documentRepo, roomRepo, aliasRepo, dropRepo, syncLogRepo, diagramClient, snapshots)
	sm.QuerySvc = NewQueryService(projectRepo, dropRepo, roomRepo, db)
	sm.Scheduler = NewSchedulerService(documentRepo, sm.Sync, defaultSchedule)

	return sm
}

// StartScheduler launches the auto-sync loop in the background.
// Call this during server startup.
func (sm *ServiceManager) StartScheduler() {
	go sm.Scheduler.Start()
}

// StopScheduler stops the auto-sync loop gracefully, waiting for any
// in-flight sync to finish. Call this during server shutdown.
func (sm *ServiceManager) StopScheduler() {
	sm.Scheduler.Stop()
}
