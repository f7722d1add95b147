package models

import (
	"time"
)

// ShapeColors holds the validated hex colors captured from a shape.
// Empty string means the diagram did not carry that color.
type ShapeColors struct {
	Primary string `json:"primary,omitempty"`
	Fill    string `json:"fill,omitempty"`
	Line    string `json:"line,omitempty"`
}

// ShapePosition holds shape geometry. Fields are pointers because a
// diagram may omit any of them; zero is a legal coordinate.
type ShapePosition struct {
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
}

// HasAny reports whether at least one geometry value was captured.
func (p ShapePosition) HasAny() bool {
	return p.X != nil || p.Y != nil || p.Width != nil || p.Height != nil || p.Rotation != nil
}

// ExtractedShape is one drop-marked shape pulled out of a diagram page,
// with its attributes resolved from shape data and container text.
type ExtractedShape struct {
	ShapeID     string        `json:"shape_id"`
	PageID      string        `json:"page_id"`
	PageName    string        `json:"page_name,omitempty"`
	RoomName    string        `json:"room_name,omitempty"` // Raw label as drawn, not canonical
	Category    string        `json:"category,omitempty"`  // Drop type, e.g. Speaker, Keypad
	WireType    string        `json:"wire_type,omitempty"`
	Device      string        `json:"device,omitempty"`
	InstallNote string        `json:"install_note,omitempty"`
	Location    string        `json:"location,omitempty"`
	Floor       string        `json:"floor,omitempty"`
	Colors      ShapeColors   `json:"colors"`
	Position    ShapePosition `json:"position"`
	Diagnostics []string      `json:"diagnostics,omitempty"` // Extraction decision trail
}

// RoomSuggestion is a fuzzy-match candidate for an unrecognized room label
type RoomSuggestion struct {
	RoomID   string  `json:"room_id"`
	RoomName string  `json:"room_name"`
	Score    float64 `json:"score"`
}

// AnalyzedShape pairs an extracted shape with its room resolution and
// the action a sync would take for it.
type AnalyzedShape struct {
	Shape          ExtractedShape `json:"shape"`
	RoomID         *string        `json:"room_id,omitempty"`
	RoomName       *string        `json:"room_name,omitempty"`  // Canonical name when matched
	MatchedBy      string         `json:"matched_by,omitempty"` // alias, direct
	ExistingDropID *string        `json:"existing_drop_id,omitempty"`
	WillUpdate     bool           `json:"will_update"`
}

// Room match provenance constants
const (
	MatchedByAlias  = "alias"
	MatchedByDirect = "direct"
)

// UnmatchedRoomGroup groups shapes whose room label resolved to nothing,
// keyed by the label's normalized form.
type UnmatchedRoomGroup struct {
	NormalizedKey string          `json:"normalized_key"`
	Variants      []string        `json:"variants"` // Distinct raw labels in first-seen order
	ShapeCount    int             `json:"shape_count"`
	Suggestion    *RoomSuggestion `json:"suggestion,omitempty"`
	Preselect     bool            `json:"preselect"` // Suggestion strong enough to preselect
	Hint          bool            `json:"hint"`      // Suggestion worth showing at all
}

// ShapeAnalysis is the full result of analyzing one document against a
// project's rooms. It is what the analyze endpoint returns and what the
// snapshot cache stores.
type ShapeAnalysis struct {
	ProjectID   string               `json:"project_id"`
	DocumentID  string               `json:"document_id"`
	TotalShapes int                  `json:"total_shapes"` // Drop-marked shapes found
	Skipped     int                  `json:"skipped"`      // Shapes discarded during extraction
	Drops       []AnalyzedShape      `json:"drops"`
	Unmatched   []UnmatchedRoomGroup `json:"unmatched"`
	AnalyzedAt  time.Time            `json:"analyzed_at"`
}
