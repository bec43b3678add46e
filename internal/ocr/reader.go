package ocr

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/joseph-ayodele/docmapper/internal/common"
	"github.com/joseph-ayodele/docmapper/internal/geometry"
	"github.com/joseph-ayodele/docmapper/internal/pdf"
)

// Renderer rasterizes document pages. *pdf.Processor satisfies it.
type Renderer interface {
	RenderPage(ctx context.Context, path string, page int) (image.Image, error)
	DPI() int
}

// Reader recognizes text from rendered page regions.
type Reader struct {
	renderer Renderer
	runner   pdf.Runner
	cfg      common.OCRConfig
	opts     PreprocessOptions
	logger   *slog.Logger
}

func NewReader(renderer Renderer, cfg common.OCRConfig, opts PreprocessOptions, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	return &Reader{
		renderer: renderer,
		runner:   pdf.ExecRunner{},
		cfg:      cfg,
		opts:     opts,
		logger:   logger,
	}
}

// WithRunner swaps the command runner; tests use this to stub tesseract.
func (r *Reader) WithRunner(run pdf.Runner) *Reader {
	r.runner = run
	return r
}

// RegionText renders the page, crops the native-unit rectangle scaled to the
// render DPI, cleans the crop up and runs tesseract over it. lang overrides
// the configured language when non-empty.
func (r *Reader) RegionText(ctx context.Context, path string, page int, rect geometry.Rect, lang string) (string, error) {
	img, err := r.renderer.RenderPage(ctx, path, page)
	if err != nil {
		return "", err
	}

	px := scaleRect(rect.X0, rect.Y0, rect.X1, rect.Y1, r.renderer.DPI())
	px = px.Intersect(img.Bounds())
	if px.Empty() {
		return "", common.NewAppError("REGION_OUT_OF_PAGE",
			fmt.Sprintf("region maps outside the rendered page %d", page), common.ErrGeometry)
	}

	crop := imaging.Crop(img, px)
	cleaned := Preprocess(crop, r.opts)
	if blank(cleaned) && !blank(crop) {
		// preprocessing wiped the crop, recognize the raw pixels instead
		r.logger.Warn("preprocessing produced a blank crop, using raw region", "page", page)
		cleaned = crop
	}

	return r.recognize(ctx, cleaned, lang)
}

// PageText runs OCR over the whole rendered page.
func (r *Reader) PageText(ctx context.Context, path string, page int, lang string) (string, error) {
	img, err := r.renderer.RenderPage(ctx, path, page)
	if err != nil {
		return "", err
	}
	return r.recognize(ctx, Preprocess(img, r.opts), lang)
}

func (r *Reader) recognize(ctx context.Context, img image.Image, lang string) (string, error) {
	if lang == "" {
		lang = r.cfg.Language
	}

	tmp, err := os.CreateTemp("", "dm-ocr-*.png")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer func() {
		if err := os.Remove(tmpPath); err != nil {
			r.logger.Warn("failed to remove temp image", "path", tmpPath, "error", err)
		}
	}()

	if err := imaging.Save(img, tmpPath, imaging.PNGCompressionLevel(0)); err != nil {
		return "", fmt.Errorf("write ocr input: %w", err)
	}

	args := []string{tmpPath, "stdout", "-l", lang}
	if r.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(r.cfg.PSM))
	}
	if r.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", r.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := r.runner.Run(ctx, r.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return strings.TrimSpace(string(out)), nil
}

// blank reports whether the image has a single uniform shade.
func blank(img image.Image) bool {
	b := img.Bounds()
	if b.Empty() {
		return true
	}
	first := img.At(b.Min.X, b.Min.Y)
	fr, fg, fb, _ := first.RGBA()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			if cr != fr || cg != fg || cb != fb {
				return false
			}
		}
	}
	return true
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
