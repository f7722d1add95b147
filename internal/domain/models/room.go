package models

import (
	"time"
)

// Room represents a canonical room within a project
type Room struct {
	ID               string    `json:"id"`
	ProjectID        string    `json:"project_id"`
	Name             string    `json:"name"`
	NormalizedName   string    `json:"normalized_name"`
	IsHeadEnd        bool      `json:"is_head_end"`
	AliasCount       int       `json:"alias_count"` // Populated by list queries
	CreatedDate      time.Time `json:"created_date"`
	LastModifiedDate time.Time `json:"last_modified_date"`
}

// RoomAlias represents a learned spelling variant that maps to a room.
// Aliases are unique per project on their normalized form.
type RoomAlias struct {
	ID              string    `json:"id"`
	ProjectID       string    `json:"project_id"`
	RoomID          string    `json:"room_id"`
	Alias           string    `json:"alias"`
	NormalizedAlias string    `json:"normalized_alias"`
	CreatedDate     time.Time `json:"created_date"`
}

// RoomImportRow is one row of a bulk room import
type RoomImportRow struct {
	Name      string `json:"name"`
	IsHeadEnd bool   `json:"is_head_end"`
}

// ConfirmRoomDecision is one user decision from the room confirmation step.
// Either RoomID points at an existing room or NewRoomName asks for a new one.
type ConfirmRoomDecision struct {
	NormalizedKey string   `json:"normalized_key"`
	Variants      []string `json:"variants"` // Raw labels that should map to the chosen room
	RoomID        *string  `json:"room_id,omitempty"`
	NewRoomName   *string  `json:"new_room_name,omitempty"`
	IsHeadEnd     bool     `json:"is_head_end"`
}

// ConfirmRoomsResult reports what a confirmation request changed.
type ConfirmRoomsResult struct {
	CreatedRooms   []*Room `json:"created_rooms"`
	AliasesWritten int     `json:"aliases_written"`
}
