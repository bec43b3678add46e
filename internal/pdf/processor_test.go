package pdf

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/docmapper/internal/common"
	"github.com/joseph-ayodele/docmapper/internal/geometry"
)

// fakeRunner records the invocations it sees and replays canned output.
type fakeRunner struct {
	stdout []byte
	stderr []byte
	err    error
	calls  [][]string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.stdout, f.stderr, f.err
}

func TestFullTextCountsFormFeedPages(t *testing.T) {
	fr := &fakeRunner{stdout: []byte("first page\n\fsecond page\n\fthird\n")}
	p := NewProcessor(Config{}, nil).WithRunner(fr)

	text, pages, err := p.FullText(context.Background(), "in.pdf")
	if err != nil {
		t.Fatalf("FullText: %v", err)
	}
	if pages != 3 {
		t.Fatalf("pages = %d, want 3", pages)
	}
	if !strings.Contains(text, "second page") {
		t.Fatalf("text missing page content: %q", text)
	}
}

func TestFullTextTruncatesToMaxPages(t *testing.T) {
	fr := &fakeRunner{stdout: []byte("a\fb\fc\fd")}
	p := NewProcessor(Config{MaxPages: 2}, nil).WithRunner(fr)

	text, pages, err := p.FullText(context.Background(), "in.pdf")
	if err != nil {
		t.Fatalf("FullText: %v", err)
	}
	if pages != 2 {
		t.Fatalf("pages = %d, want 2", pages)
	}
	if text != "a\fb" {
		t.Fatalf("text = %q, want %q", text, "a\fb")
	}
}

func TestPageTextEmptySignalsNoTextLayer(t *testing.T) {
	fr := &fakeRunner{stdout: []byte("\f\n")}
	p := NewProcessor(Config{}, nil).WithRunner(fr)

	_, err := p.PageText(context.Background(), "in.pdf", 0)
	if !errors.Is(err, common.ErrCollaborator) {
		t.Fatalf("err = %v, want ErrCollaborator", err)
	}
}

func TestRegionTextPassesCropFlags(t *testing.T) {
	fr := &fakeRunner{stdout: []byte("INV-2024-001\n")}
	p := NewProcessor(Config{}, nil).WithRunner(fr)

	rect := geometry.Rect{X0: 100.4, Y0: 50.2, X1: 200.9, Y1: 80.1}
	got, err := p.RegionText(context.Background(), "in.pdf", 1, rect)
	if err != nil {
		t.Fatalf("RegionText: %v", err)
	}
	if got != "INV-2024-001" {
		t.Fatalf("text = %q", got)
	}

	want := []string{
		"pdftotext",
		"-layout", "-enc", "UTF-8", "-eol", "unix",
		"-f", "2", "-l", "2",
		"-x", "100", "-y", "50", "-W", "101", "-H", "30",
		"in.pdf", "-",
	}
	if diff := cmp.Diff(want, fr.calls[0]); diff != "" {
		t.Fatalf("pdftotext args mismatch (-want +got):\n%s", diff)
	}
}

func TestPageSizeParsesPdfinfo(t *testing.T) {
	out := "Title:          Faktura\nPages:          2\nPage    1 size: 595.28 x 841.89 pts (A4)\n"
	fr := &fakeRunner{stdout: []byte(out)}
	p := NewProcessor(Config{}, nil).WithRunner(fr)

	w, h, err := p.PageSize(context.Background(), "in.pdf", 0)
	if err != nil {
		t.Fatalf("PageSize: %v", err)
	}
	if w != 595.28 || h != 841.89 {
		t.Fatalf("size = %v x %v, want 595.28 x 841.89", w, h)
	}
}

func TestPageSizeMissingIsCollaboratorError(t *testing.T) {
	fr := &fakeRunner{stdout: []byte("Pages: 1\n")}
	p := NewProcessor(Config{}, nil).WithRunner(fr)

	_, _, err := p.PageSize(context.Background(), "in.pdf", 0)
	if !errors.Is(err, common.ErrCollaborator) {
		t.Fatalf("err = %v, want ErrCollaborator", err)
	}
}

func TestPageCount(t *testing.T) {
	fr := &fakeRunner{stdout: []byte("Producer: x\nPages:          7\n")}
	p := NewProcessor(Config{}, nil).WithRunner(fr)

	n, err := p.PageCount(context.Background(), "in.pdf")
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	if n != 7 {
		t.Fatalf("pages = %d, want 7", n)
	}
}

func TestCapabilitiesLanguages(t *testing.T) {
	caps := Capabilities{Tesseract: true, Languages: []string{"eng", "osd", "swe"}}

	if !caps.HasLanguage("swe+eng") {
		t.Fatal("swe+eng should be available")
	}
	if caps.HasLanguage("swe+fin") {
		t.Fatal("fin is not installed")
	}
	if (Capabilities{}).HasLanguage("eng") {
		t.Fatal("no tesseract means no languages")
	}
}
