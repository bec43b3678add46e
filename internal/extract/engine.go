package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/docmapper/internal/common"
	"github.com/joseph-ayodele/docmapper/internal/entity"
	"github.com/joseph-ayodele/docmapper/internal/geometry"
	"github.com/joseph-ayodele/docmapper/internal/template"
)

// Engine extracts template mappings from documents. Collaborators are
// injected at construction; a nil OCR reader means text-layer-only
// operation, with per-field errors where OCR would have been needed.
type Engine struct {
	text          TextLayerReader
	ocr           OCRReader
	geom          PageGeometry
	cache         *PageTextCache
	workers       int
	regionTimeout time.Duration
	logger        *slog.Logger
}

func NewEngine(text TextLayerReader, ocrReader OCRReader, geom PageGeometry, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		text:    text,
		ocr:     ocrReader,
		geom:    geom,
		cache:   NewPageTextCache(),
		workers: 4,
		logger:  logger,
	}
}

// WithWorkers sets the batch concurrency limit.
func (e *Engine) WithWorkers(n int) *Engine {
	if n > 0 {
		e.workers = n
	}
	return e
}

// WithRegionTimeout bounds each region read. A stuck text-layer or OCR call
// then fails only its own field instead of holding the whole document.
func (e *Engine) WithRegionTimeout(d time.Duration) *Engine {
	if d > 0 {
		e.regionTimeout = d
	}
	return e
}

// Extract replays one template against one document. The template is
// read-only; per-field and per-table failures are recorded in place and
// never abort the rest of the document. Only a document that cannot be
// opened at all yields a wholly failed result.
func (e *Engine) Extract(ctx context.Context, tpl *template.Template, doc *entity.Document) *entity.ExtractionResult {
	res := &entity.ExtractionResult{DocumentID: doc.ID}

	if _, err := os.Stat(doc.Path); err != nil {
		res.Failed = true
		res.Error = common.WrapError(common.ErrDocumentFailed, fmt.Sprintf("cannot open %s: %v", doc.Path, err)).Error()
		return res
	}
	if tpl.NeedsRevalidation {
		res.Warnings = append(res.Warnings, "template was built against a different reference document and needs revalidation")
	}

	lang := tpl.EffectiveLanguage()
	for _, fm := range tpl.Fields {
		res.Fields = append(res.Fields, e.extractField(ctx, fm, doc, lang))
	}
	for _, tm := range tpl.Tables {
		res.Tables = append(res.Tables, e.extractTable(ctx, tm, doc, lang))
	}

	e.logger.Debug("extraction finished",
		"document_id", doc.ID,
		"fields", len(res.Fields),
		"tables", len(res.Tables),
		"partial", res.Partial())
	return res
}

func (e *Engine) extractField(ctx context.Context, fm template.FieldMapping, doc *entity.Document, lang string) entity.FieldValue {
	fv := entity.FieldValue{Name: fm.Name}

	w, h, err := e.geom.PageSize(ctx, doc, fm.Value.Page)
	if err != nil {
		fv.Error = fmt.Sprintf("region out of page bounds: %v", err)
		return fv
	}

	text, err := e.regionText(ctx, doc, fm.Value.Page, fm.Value.Denormalize(w, h), lang)
	if err != nil {
		fv.Error = err.Error()
		return fv
	}
	if text == "" {
		fv.Error = "region extracted no text"
		return fv
	}
	fv.Value = text
	return fv
}

// regionText tries the embedded text layer first and falls back to OCR.
func (e *Engine) regionText(ctx context.Context, doc *entity.Document, page int, rect geometry.Rect, lang string) (string, error) {
	if e.regionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.regionTimeout)
		defer cancel()
	}
	if e.text != nil {
		text, err := e.text.RegionText(ctx, doc, page, rect)
		if err == nil {
			if t := strings.TrimSpace(text); t != "" {
				return t, nil
			}
		} else if !errors.Is(err, common.ErrCollaborator) {
			e.logger.Warn("text layer read failed, trying OCR",
				"document_id", doc.ID, "page", page, "error", err)
		}
	}
	if e.ocr == nil {
		return "", common.NewAppError("OCR_UNAVAILABLE", "no text layer and no OCR reader configured", common.ErrCollaborator)
	}
	text, err := e.ocr.RegionText(ctx, doc, page, rect, lang)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// PageText returns one page's full text, text layer first then OCR, memoized
// per (document, page, language) so concurrent extractions never run OCR
// twice for the same page.
func (e *Engine) PageText(ctx context.Context, doc *entity.Document, page int, lang string) (string, error) {
	return e.cache.Get(ctx, doc.ID, page, lang, func() (string, error) {
		if e.text != nil {
			text, err := e.text.PageText(ctx, doc, page)
			if err == nil && strings.TrimSpace(text) != "" {
				return text, nil
			}
			if err != nil && !errors.Is(err, common.ErrCollaborator) {
				return "", err
			}
		}
		if e.ocr == nil {
			return "", common.NewAppError("OCR_UNAVAILABLE", "no text layer and no OCR reader configured", common.ErrCollaborator)
		}
		return e.ocr.PageText(ctx, doc, page, lang)
	})
}
