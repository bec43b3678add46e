package pdf

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/docmapper/internal/common"
	"github.com/joseph-ayodele/docmapper/internal/geometry"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Pdfinfo   string // binary name or absolute path; if empty -> "pdfinfo"

	DPI      int // rasterization DPI for rendering, default 300
	MaxPages int // 0 = no limit
}

// Processor drives the poppler tools for one configured toolchain.
type Processor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewProcessor(cfg Config, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Pdfinfo == "" {
		cfg.Pdfinfo = "pdfinfo"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Processor{cfg: cfg, runner: ExecRunner{}, logger: logger}
}

// WithRunner swaps the command runner; tests use this to stub the tools.
func (p *Processor) WithRunner(r Runner) *Processor {
	p.runner = r
	return p
}

// DPI returns the configured rasterization DPI.
func (p *Processor) DPI() int { return p.cfg.DPI }

// FullText extracts the whole embedded text layer. Pages are separated by
// form feeds, which is also how the page count is derived.
func (p *Processor) FullText(ctx context.Context, path string) (string, int, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := p.runner.Run(ctx, p.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, fmt.Errorf("pdftotext: %w: %s", err, truncate(string(errb), 512))
	}
	text := string(out)
	pages := 1 + strings.Count(text, "\f")
	if p.cfg.MaxPages > 0 && pages > p.cfg.MaxPages {
		parts := strings.SplitN(text, "\f", p.cfg.MaxPages+1)
		text = strings.Join(parts[:p.cfg.MaxPages], "\f")
		pages = p.cfg.MaxPages
	}
	return text, pages, nil
}

// PageText extracts one page's embedded text. An empty result signals no
// usable text layer on that page; callers fall back to OCR.
func (p *Processor) PageText(ctx context.Context, path string, page int) (string, error) {
	pg := strconv.Itoa(page + 1)
	out, errb, err := p.runner.Run(ctx, p.cfg.Pdftotext,
		"-layout", "-enc", "UTF-8", "-eol", "unix", "-f", pg, "-l", pg, path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext page %d: %w: %s", page, err, truncate(string(errb), 512))
	}
	text := strings.TrimRight(string(out), "\f\n ")
	if strings.TrimSpace(text) == "" {
		return "", common.NewAppError("NO_TEXT_LAYER", fmt.Sprintf("page %d has no embedded text", page), common.ErrCollaborator)
	}
	return text, nil
}

// RegionText extracts embedded text inside a native-unit rectangle using
// pdftotext's crop flags. The rectangle is in PDF points.
func (p *Processor) RegionText(ctx context.Context, path string, page int, rect geometry.Rect) (string, error) {
	pg := strconv.Itoa(page + 1)
	args := []string{
		"-layout", "-enc", "UTF-8", "-eol", "unix",
		"-f", pg, "-l", pg,
		"-x", strconv.Itoa(int(math.Floor(rect.X0))),
		"-y", strconv.Itoa(int(math.Floor(rect.Y0))),
		"-W", strconv.Itoa(int(math.Ceil(rect.Width()))),
		"-H", strconv.Itoa(int(math.Ceil(rect.Height()))),
		path, "-",
	}
	out, errb, err := p.runner.Run(ctx, p.cfg.Pdftotext, args...)
	if err != nil {
		return "", fmt.Errorf("pdftotext region on page %d: %w: %s", page, err, truncate(string(errb), 512))
	}
	return strings.TrimSpace(strings.TrimRight(string(out), "\f")), nil
}

var rePageSize = regexp.MustCompile(`Page\s+(?:\d+\s+)?size:\s+([0-9.]+)\s+x\s+([0-9.]+)\s+pts`)

// PageSize returns one page's native dimensions in points via pdfinfo.
func (p *Processor) PageSize(ctx context.Context, path string, page int) (float64, float64, error) {
	pg := strconv.Itoa(page + 1)
	out, errb, err := p.runner.Run(ctx, p.cfg.Pdfinfo, "-f", pg, "-l", pg, path)
	if err != nil {
		return 0, 0, fmt.Errorf("pdfinfo page %d: %w: %s", page, err, truncate(string(errb), 512))
	}
	m := rePageSize.FindStringSubmatch(string(out))
	if m == nil {
		return 0, 0, common.NewAppError("PAGE_SIZE", fmt.Sprintf("pdfinfo reported no size for page %d", page), common.ErrCollaborator)
	}
	w, err1 := strconv.ParseFloat(m[1], 64)
	h, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, common.NewAppError("PAGE_SIZE", fmt.Sprintf("unparsable page size %q x %q", m[1], m[2]), common.ErrCollaborator)
	}
	return w, h, nil
}

// PageCount returns the document's page count via pdfinfo.
func (p *Processor) PageCount(ctx context.Context, path string) (int, error) {
	out, errb, err := p.runner.Run(ctx, p.cfg.Pdfinfo, path)
	if err != nil {
		return 0, fmt.Errorf("pdfinfo: %w: %s", err, truncate(string(errb), 512))
	}
	for _, ln := range strings.Split(string(out), "\n") {
		if rest, ok := strings.CutPrefix(ln, "Pages:"); ok {
			n, err := strconv.Atoi(strings.TrimSpace(rest))
			if err != nil {
				return 0, fmt.Errorf("unparsable page count %q: %w", rest, err)
			}
			return n, nil
		}
	}
	return 0, common.NewAppError("PAGE_COUNT", "pdfinfo reported no page count", common.ErrCollaborator)
}

// RenderPage rasterizes one page to an image at the configured DPI.
func (p *Processor) RenderPage(ctx context.Context, path string, page int) (image.Image, error) {
	tmpDir, err := os.MkdirTemp("", "dm-render-*")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			p.logger.Warn("failed to remove temp dir", "path", tmpDir, "error", err)
		}
	}()

	pg := strconv.Itoa(page + 1)
	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -f N -l N -r <dpi> -png <in.pdf> <tmp/page>
	_, errb, err := p.runner.Run(ctx, p.cfg.Pdftoppm,
		"-f", pg, "-l", pg, "-r", strconv.Itoa(p.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w: %s", page, err, truncate(string(errb), 512))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, common.NewAppError("RENDER", fmt.Sprintf("pdftoppm produced no image for page %d", page), common.ErrCollaborator)
	}

	f, err := os.Open(matches[0])
	if err != nil {
		return nil, fmt.Errorf("open rendered page: %w", err)
	}
	defer func() { _ = f.Close() }()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode rendered page %d: %w", page, err)
	}
	return img, nil
}
