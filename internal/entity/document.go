package entity

import (
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docmapper/constants"
)

// PageSize is a page's native dimensions in PDF points (72 per inch).
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Document represents an ingested PDF for data transfer between layers.
// Immutable once ingested except for re-fingerprinting on explicit refresh.
type Document struct {
	ID        uuid.UUID                `json:"id"`
	Path      string                   `json:"path"`
	Text      string                   `json:"text,omitempty"`
	Pages     int                      `json:"pages"`
	PageSizes []PageSize               `json:"page_sizes,omitempty"`
	Status    constants.DocumentStatus `json:"status"`
	ClusterID string                   `json:"cluster_id,omitempty"`
	Reference bool                     `json:"is_reference"`
}

// PageSize returns the native size of the given zero-based page.
// Falls back to the first page's size when per-page sizes are missing,
// which matches how single-size PDFs are recorded.
func (d *Document) PageSize(page int) (PageSize, bool) {
	if page < 0 || d.Pages > 0 && page >= d.Pages {
		return PageSize{}, false
	}
	if page < len(d.PageSizes) {
		return d.PageSizes[page], true
	}
	if len(d.PageSizes) > 0 {
		return d.PageSizes[0], true
	}
	return PageSize{}, false
}
