package models

import (
	"time"
)

// Project represents a field-operations project (one installation site)
type Project struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Status           string    `json:"status"` // Active, Archived
	ClientName       *string   `json:"client_name,omitempty"`
	CreatedDate      time.Time `json:"created_date"`
	LastModifiedDate time.Time `json:"last_modified_date"`
}

// Project status constants
const (
	ProjectStatusActive   = "Active"
	ProjectStatusArchived = "Archived"
)
