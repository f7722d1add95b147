package diagram

import (
	"github.com/voltfield/backend/pkg/models"
)

// Page is one page of a diagram document. Shapes stay as generic maps
// because the diagram platform's shape payload is open-ended: custom
// property bags, nested text items, optional style blocks.
type Page struct {
	ID     string           `json:"id"`
	Title  string           `json:"title"`
	Shapes []models.SObject `json:"items"`
}

// DocumentContents is the full shape payload of one document
type DocumentContents struct {
	DocumentID string `json:"documentId"`
	Title      string `json:"title"`
	Pages      []Page `json:"pages"`
}

// ShapeCount returns the total number of shapes across all pages
func (d *DocumentContents) ShapeCount() int {
	total := 0
	for _, p := range d.Pages {
		total += len(p.Shapes)
	}
	return total
}
