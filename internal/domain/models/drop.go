package models

// DropQueryOptions carries the caller-facing filters for listing wire
// drops. FilterExpr is a drop filter expression compiled by
// pkg/expression; Search is free text matched against the drop record,
// either as a "field=value" comparison or as a substring scan.
type DropQueryOptions struct {
	FilterExpr string
	Search     string
	RoomName   string
	Category   string
	Limit      int
	Offset     int
}

// DropPage is one page of wire drop records plus the unpaged total.
type DropPage struct {
	Items  []SObject `json:"items"`
	Total  int       `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

// ReportResult wraps the rows returned by a raw report query.
type ReportResult struct {
	SQL  string    `json:"sql"`
	Rows []SObject `json:"rows"`
}
