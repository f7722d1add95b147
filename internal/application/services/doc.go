// Package services provides the business logic layer for VoltField.
//
// This package contains all service implementations that handle:
//   - Project lifecycle and archival (ProjectService)
//   - Diagram document linking and sync settings (DocumentService)
//   - Room catalog, aliases, and CSV import (RoomCatalogService)
//   - Shape extraction and room-match analysis (AnalysisService)
//   - Idempotent wire drop sync with run logging (SyncService)
//   - Drop queries, edits, and read-only reporting (QueryService)
//   - Scheduled background syncs on cron expressions (SchedulerService)
//
// All services follow clean architecture principles with dependency injection
// and are designed to be testable and maintainable.
package services
