package constants

import "strings"

// Table names. Fixed schema, created by internal/bootstrap at startup.
const (
	TableProject   = "projects"
	TableRoom      = "rooms"
	TableRoomAlias = "room_aliases"
	TableWireDrop  = "wire_drops"
	TableDocument  = "documents"
	TableSyncLog   = "sync_logs"
)

// AllTables returns every table owned by this service, in creation order
// (referenced tables first).
func AllTables() []string {
	return []string{
		TableProject,
		TableRoom,
		TableRoomAlias,
		TableDocument,
		TableWireDrop,
		TableSyncLog,
	}
}

// ReportTables returns the tables raw report queries may read.
func ReportTables() []string {
	return []string{
		TableProject,
		TableRoom,
		TableRoomAlias,
		TableWireDrop,
		TableDocument,
		TableSyncLog,
	}
}

// IsReportTable checks whether a table is readable by the report endpoint.
// Comparison is case-insensitive because MySQL table identifiers are.
func IsReportTable(name string) bool {
	for _, t := range ReportTables() {
		if strings.EqualFold(t, name) {
			return true
		}
	}
	return false
}
