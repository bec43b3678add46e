// Package extract replays a cluster's template against target documents and
// aggregates per-field and per-table results.
package extract

import (
	"context"

	"github.com/joseph-ayodele/docmapper/internal/entity"
	"github.com/joseph-ayodele/docmapper/internal/geometry"
)

// TextLayerReader reads embedded text. Implementations signal a missing
// text layer with an error wrapping common.ErrCollaborator; the engine then
// falls back to OCR.
type TextLayerReader interface {
	PageText(ctx context.Context, doc *entity.Document, page int) (string, error)
	RegionText(ctx context.Context, doc *entity.Document, page int, rect geometry.Rect) (string, error)
}

// OCRReader recognizes text from rendered page regions. lang is the
// tesseract language string, e.g. "swe+eng".
type OCRReader interface {
	PageText(ctx context.Context, doc *entity.Document, page int, lang string) (string, error)
	RegionText(ctx context.Context, doc *entity.Document, page int, rect geometry.Rect, lang string) (string, error)
}

// PageGeometry resolves a page's native dimensions for denormalization.
type PageGeometry interface {
	PageSize(ctx context.Context, doc *entity.Document, page int) (w, h float64, err error)
}
