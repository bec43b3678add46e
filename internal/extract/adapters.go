package extract

import (
	"context"

	"github.com/joseph-ayodele/docmapper/internal/entity"
	"github.com/joseph-ayodele/docmapper/internal/geometry"
	"github.com/joseph-ayodele/docmapper/internal/ocr"
	"github.com/joseph-ayodele/docmapper/internal/pdf"
)

// PDFTextLayer adapts pdf.Processor to the TextLayerReader contract.
type PDFTextLayer struct {
	Proc *pdf.Processor
}

func (t PDFTextLayer) PageText(ctx context.Context, doc *entity.Document, page int) (string, error) {
	return t.Proc.PageText(ctx, doc.Path, page)
}

func (t PDFTextLayer) RegionText(ctx context.Context, doc *entity.Document, page int, rect geometry.Rect) (string, error) {
	return t.Proc.RegionText(ctx, doc.Path, page, rect)
}

// TesseractOCR adapts ocr.Reader to the OCRReader contract.
type TesseractOCR struct {
	Reader *ocr.Reader
}

func (o TesseractOCR) PageText(ctx context.Context, doc *entity.Document, page int, lang string) (string, error) {
	return o.Reader.PageText(ctx, doc.Path, page, lang)
}

func (o TesseractOCR) RegionText(ctx context.Context, doc *entity.Document, page int, rect geometry.Rect, lang string) (string, error) {
	return o.Reader.RegionText(ctx, doc.Path, page, rect, lang)
}

// DocumentGeometry resolves page sizes from the ingested document record
// and falls back to probing the file when the record has none.
type DocumentGeometry struct {
	Proc *pdf.Processor
}

func (g DocumentGeometry) PageSize(ctx context.Context, doc *entity.Document, page int) (float64, float64, error) {
	if ps, ok := doc.PageSize(page); ok {
		return ps.Width, ps.Height, nil
	}
	return g.Proc.PageSize(ctx, doc.Path, page)
}
