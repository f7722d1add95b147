package constants

// HTTP and context keys
const (
	ContextKeyUser      = "user"
	HeaderAuthorization = "Authorization"
)

// JSON envelope keys
const (
	ResponseSuccess = "success"
	ResponseData    = "data"
	ResponseError   = "error"
)

// Server defaults
const (
	DefaultPort = "8080"
)

// Naming fallbacks used by the drop name generator when a shape carries
// no usable room or category text.
const (
	DefaultRoomLabel     = "Unassigned"
	DefaultCategoryLabel = "Drop"
)

// Scheduler tuning
const (
	ScheduleCheckIntervalSecs = 60
	SyncMaxRuntimeMins        = 10
	DefaultAutoSyncSchedule   = "0 * * * *"
)

// Sync trigger sources recorded in sync_logs
const (
	SyncTriggerManual    = "manual"
	SyncTriggerScheduled = "scheduled"
)

// Cache TTLs (minutes)
const (
	AnalysisCacheTTLMins = 30
	LastSyncCacheTTLMins = 24 * 60
)

// Query limits
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
	ReportRowLimit   = 1000
)
