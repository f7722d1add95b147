package constants

// Column names, snake_case as stored in SQL.
const (
	// Shared across tables
	FieldID               = "id"
	FieldName             = "name"
	FieldProjectID        = "project_id"
	FieldCreatedDate      = "created_date"
	FieldCreatedByID      = "created_by_id"
	FieldLastModifiedDate = "last_modified_date"
	FieldLastModifiedByID = "last_modified_by_id"

	// projects
	FieldStatus     = "status"
	FieldClientName = "client_name"

	// rooms
	FieldNormalizedName = "normalized_name"
	FieldIsHeadEnd      = "is_head_end"

	// room_aliases
	FieldRoomID          = "room_id"
	FieldAlias           = "alias"
	FieldNormalizedAlias = "normalized_alias"

	// wire_drops
	FieldExternalShapeID = "external_shape_id"
	FieldPageID          = "page_id"
	FieldRoomName        = "room_name"
	FieldCategory        = "category"
	FieldWireType        = "wire_type"
	FieldDevice          = "device"
	FieldInstallNote     = "install_note"
	FieldLocation        = "location"
	FieldFloor           = "floor"
	FieldColorPrimary    = "color_primary"
	FieldColorFill       = "color_fill"
	FieldColorLine       = "color_line"
	FieldPositionX       = "position_x"
	FieldPositionY       = "position_y"
	FieldWidth           = "width"
	FieldHeight          = "height"
	FieldRotation        = "rotation"
	FieldSyncedAt        = "synced_at"

	// documents
	FieldExternalDocumentID = "external_document_id"
	FieldTitle              = "title"
	FieldAutoSync           = "auto_sync"
	FieldSyncSchedule       = "sync_schedule"
	FieldLastSyncedAt       = "last_synced_at"
	FieldIsSyncing          = "is_syncing"

	// sync_logs
	FieldDocumentID     = "document_id"
	FieldCreatedCount   = "created_count"
	FieldUpdatedCount   = "updated_count"
	FieldErrorCount     = "error_count"
	FieldTotalCount     = "total_count"
	FieldAliasCount     = "aliases_discovered"
	FieldErrors         = "errors"
	FieldDurationMs     = "duration_ms"
	FieldTriggeredBy    = "triggered_by"
)

// GeometryFields returns the wire_drops columns that hold shape geometry.
// These are only written when the schema capability probe confirms they
// exist, so older installations without the columns keep working.
func GeometryFields() []string {
	return []string{
		FieldPositionX,
		FieldPositionY,
		FieldWidth,
		FieldHeight,
		FieldRotation,
	}
}

// DropEditableFields returns the wire_drops columns a user may change
// through the PATCH endpoint. The shape link and generated name are
// excluded on purpose.
func DropEditableFields() []string {
	return []string{
		FieldRoomID,
		FieldRoomName,
		FieldCategory,
		FieldWireType,
		FieldDevice,
		FieldInstallNote,
		FieldLocation,
		FieldFloor,
	}
}

// DropFilterFields returns the wire_drops columns that may appear as
// identifiers in a drop listing filter expression.
func DropFilterFields() []string {
	return []string{
		FieldID,
		FieldName,
		FieldRoomID,
		FieldRoomName,
		FieldCategory,
		FieldWireType,
		FieldDevice,
		FieldInstallNote,
		FieldLocation,
		FieldFloor,
		FieldPageID,
		FieldExternalShapeID,
		FieldColorPrimary,
		FieldColorFill,
		FieldColorLine,
		FieldSyncedAt,
		FieldCreatedDate,
	}
}
