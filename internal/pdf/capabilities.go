package pdf

import (
	"context"
	"os/exec"
	"sort"
	"strings"
)

// Capabilities is an immutable snapshot of the external tools available on
// this host, probed once at startup.
type Capabilities struct {
	Pdftotext bool
	Pdftoppm  bool
	Pdfinfo   bool
	Tesseract bool

	// Languages holds the tesseract language packs found, sorted.
	Languages []string
}

// TextLayer reports whether embedded text extraction is available.
func (c Capabilities) TextLayer() bool { return c.Pdftotext }

// OCR reports whether the rasterize-and-recognize path is available.
func (c Capabilities) OCR() bool { return c.Pdftoppm && c.Tesseract }

// HasLanguage reports whether every "+"-joined part of lang is installed.
func (c Capabilities) HasLanguage(lang string) bool {
	if !c.Tesseract {
		return false
	}
	for _, part := range strings.Split(lang, "+") {
		found := false
		for _, l := range c.Languages {
			if l == part {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Probe inspects PATH for the poppler tools and tesseract and queries the
// installed language packs.
func Probe(ctx context.Context, runner Runner) Capabilities {
	caps := Capabilities{
		Pdftotext: lookPath("pdftotext"),
		Pdftoppm:  lookPath("pdftoppm"),
		Pdfinfo:   lookPath("pdfinfo"),
		Tesseract: lookPath("tesseract"),
	}
	if !caps.Tesseract {
		return caps
	}
	out, errb, err := runner.Run(ctx, "tesseract", "--list-langs")
	if err != nil {
		return caps
	}
	// tesseract prints a banner line before the list, historically on stderr.
	listing := string(out)
	if strings.TrimSpace(listing) == "" {
		listing = string(errb)
	}
	for _, ln := range strings.Split(listing, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" || strings.Contains(ln, ":") {
			continue
		}
		caps.Languages = append(caps.Languages, ln)
	}
	sort.Strings(caps.Languages)
	return caps
}

func lookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
