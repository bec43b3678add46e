// Package fingerprint produces normalized text signatures used to compare
// documents for similarity. A signature is a pure function of the input
// text: same text in, same signature out.
package fingerprint

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)

	// page-number-like lines are volatile across otherwise identical
	// documents and are stripped before tokenization
	rePageNumber = regexp.MustCompile(`(?i)^\s*(?:page|sida|sid\.?)\s*\d+(?:\s*(?:of|av|/|\(\s*)\s*\d+\s*\)?)?\s*$|^\s*-?\s*\d{1,3}\s*-?\s*$`)

	reColumns = regexp.MustCompile(`\s{2,}|\t`)
)

// Swedish and English invoice vocabulary. Matched as prefixes so inflected
// forms (fakturan, fakturanummer) count as hits.
var keywordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bfaktura\w*`),
	regexp.MustCompile(`\binvoice\w*`),
	regexp.MustCompile(`\btotal\w*`),
	regexp.MustCompile(`\bmoms\w*`),
	regexp.MustCompile(`\bvat\w*`),
	regexp.MustCompile(`\bdatum\w*`),
	regexp.MustCompile(`\bdate\w*`),
	regexp.MustCompile(`\bnummer\w*`),
	regexp.MustCompile(`\bnumber\w*`),
	regexp.MustCompile(`\bordernr\w*`),
	regexp.MustCompile(`\border\s*no\w*`),
	regexp.MustCompile(`\bartikel\w*`),
	regexp.MustCompile(`\bitem\w*`),
	regexp.MustCompile(`\bpris\w*`),
	regexp.MustCompile(`\bprice\w*`),
	regexp.MustCompile(`\bantal\w*`),
	regexp.MustCompile(`\bquantity\w*`),
	regexp.MustCompile(`\bsumma\w*`),
	regexp.MustCompile(`\bsum\w*`),
}

const edgeLines = 10

// Signature is a document's cleaned text fingerprint plus the structural
// features fed into vectorization and reference selection.
type Signature struct {
	TopText    string
	BottomText string
	Keywords   []string
	TotalWords int
	TotalLines int
	HasTable   bool
	Text       string
}

// New builds a signature from a document's full extracted text.
func New(text string) Signature {
	cleaned := normalize(text)
	lines := strings.Split(cleaned, "\n")

	top := lines
	if len(top) > edgeLines {
		top = top[:edgeLines]
	}
	bottom := lines
	if len(bottom) > edgeLines {
		bottom = bottom[len(bottom)-edgeLines:]
	}

	return Signature{
		TopText:    strings.Join(top, " "),
		BottomText: strings.Join(bottom, " "),
		Keywords:   extractKeywords(cleaned),
		TotalWords: len(strings.Fields(cleaned)),
		TotalLines: len(lines),
		HasTable:   detectTable(lines),
		Text:       cleaned,
	}
}

// CorpusText joins the signature's features into the string handed to the
// vectorizer: edge text and keywords are repeated ahead of the body so the
// layout-stable parts of a document weigh more than its variable middle.
func (s Signature) CorpusText() string {
	parts := []string{s.TopText, s.BottomText, strings.Join(s.Keywords, " "), s.Text}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func normalize(text string) string {
	s := reCRLF.ReplaceAllString(text, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, ln := range lines {
		ln = strings.TrimRight(ln, " ")
		if rePageNumber.MatchString(ln) {
			continue
		}
		kept = append(kept, ln)
	}
	return strings.TrimSpace(strings.ToLower(strings.Join(kept, "\n")))
}

func extractKeywords(text string) []string {
	seen := make(map[string]struct{})
	var found []string
	for _, p := range keywordPatterns {
		for _, m := range p.FindAllString(text, -1) {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			found = append(found, m)
		}
	}
	return found
}

// detectTable uses the column heuristic from clustering: three or more lines
// that split into at least three column-like parts.
func detectTable(lines []string) bool {
	indicators := 0
	for _, ln := range lines {
		parts := reColumns.Split(strings.TrimSpace(ln), -1)
		if len(parts) >= 3 {
			indicators++
			if indicators >= 3 {
				return true
			}
		}
	}
	return false
}
