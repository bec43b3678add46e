package detect

import (
	"regexp"
	"sort"
	"strings"
)

// Detector holds the compiled pattern and keyword tables. Safe for
// concurrent use; construct once and share.
type Detector struct {
	patterns map[FieldType][]*regexp.Regexp
	keywords map[FieldType][]string
}

// NewDetector compiles the pattern and keyword tables.
func NewDetector() *Detector {
	return &Detector{
		patterns: map[FieldType][]*regexp.Regexp{
			InvoiceNumber: {
				// generic invoice numbers lead with letters so that bare
				// dates and amounts never classify here
				regexp.MustCompile(`^(?i)INV[-_]?[0-9]{4,}$`),
				regexp.MustCompile(`^(?i)FAKT[-_]?[0-9]{4,}$`),
				// digits capped at 8 so 12-digit VAT numbers stay out
				regexp.MustCompile(`^(?i)[A-Z]{1,5}[-/]?[0-9]{3,8}(?:[-/][0-9]+)?$`),
			},
			Date: {
				regexp.MustCompile(`^\d{4}[-/]\d{2}[-/]\d{2}$`),
				regexp.MustCompile(`^\d{2}[-/.]\d{2}[-/.]\d{4}$`),
				regexp.MustCompile(`^\d{2}[-/.]\d{2}[-/.]\d{2}$`),
				regexp.MustCompile(`^(?i)\d{1,2}\s+(januari|februari|mars|april|maj|juni|juli|augusti|september|oktober|november|december)\s+\d{4}$`),
			},
			Amount: {
				regexp.MustCompile(`^(?i)\d{1,3}(?:\s?\d{3})*(?:[,.]\d{2})?\s*(?:SEK|EUR|USD|kr|€|\$)?$`),
			},
			VATNumber: {
				regexp.MustCompile(`^(?i)SE[- ]?\d{12}$`),
			},
			Email: {
				regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`),
			},
			Phone: {
				regexp.MustCompile(`^\+?[\d\s\-()]{8,}$`),
				regexp.MustCompile(`^0\d{1,3}[- ]?\d{2,4}[- ]?\d{2,4}[- ]?\d{2,4}$`),
			},
			OrderNumber: {
				regexp.MustCompile(`^(?i)ORD(?:ER)?[-_]?[0-9]{4,}$`),
			},
			ProjectNumber: {
				regexp.MustCompile(`^(?i)PROJ(?:ECT)?[-_]?[0-9]{4,}$`),
			},
		},
		keywords: map[FieldType][]string{
			InvoiceNumber: {
				"fakturanummer", "invoice number", "invoice no", "faktura nr",
				"invoice", "faktura", "invoice#", "faktura#",
			},
			Date: {
				"datum", "date", "faktureringsdatum", "invoice date", "betaldatum",
				"due date", "förfallodatum",
			},
			Amount: {
				"belopp", "amount", "pris", "price", "summa", "sum", "kr", "sek",
			},
			TotalAmount: {
				"total", "totalt", "summa", "total amount",
				"totalt belopp", "totalsumma", "total sum",
			},
			VATNumber: {
				"momsnummer", "vat number", "vat no", "organisationsnummer",
				"org nr", "vat", "moms", "momsnr",
			},
			CompanyName: {
				"företag", "company", "leverantör", "supplier", "kund", "customer",
				"fakturerad till", "billed to", "från", "from",
			},
			Address: {
				"adress", "address", "gata", "street", "postnummer", "zip code",
				"post code", "stad", "city", "land", "country",
			},
			Email: {
				"e-post", "email", "e-mail", "mail", "epost",
			},
			Phone: {
				"telefon", "phone", "tel", "telefonnummer", "phone number", "tfn",
			},
			OrderNumber: {
				"ordernummer", "order number", "order no", "order nr",
				"order", "order#", "ordernr",
			},
			ProjectNumber: {
				"projektnummer", "project number", "project no", "project nr",
				"projekt", "project", "proj", "projekt#",
			},
		},
	}
}

// DetectAll classifies text against every field type and returns detections
// ranked by confidence, ranking ties broken by declaration order. context is
// text near the candidate (a header, the surrounding line) and feeds the
// keyword rules; it may be empty.
func (d *Detector) DetectAll(text, context string) []Detection {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	contextLower := strings.ToLower(context)

	var detections []Detection
	for _, ft := range fieldTypeOrder {
		if ft == TotalAmount {
			// total_amount only classifies through the compound rule below:
			// a bare amount is never a total
			continue
		}

		pattern := ""
		for _, p := range d.patterns[ft] {
			if p.MatchString(text) {
				pattern = p.String()
				break
			}
		}
		keywords := d.contextHits(ft, contextLower)

		switch {
		case pattern != "" && len(keywords) > 0:
			detections = append(detections, Detection{
				Type: ft, Confidence: High, Value: text,
				Rule: RuleCompound, Pattern: pattern, Keywords: keywords,
			})
		case pattern != "":
			detections = append(detections, Detection{
				Type: ft, Confidence: High, Value: text,
				Rule: RulePattern, Pattern: pattern,
			})
		case len(keywords) > 0:
			detections = append(detections, Detection{
				Type: ft, Confidence: Medium, Value: text,
				Rule: RuleKeyword, Keywords: keywords,
			})
		}
	}

	// compound rule for totals: an amount-shaped value with a
	// total-indicating keyword in context. The plain amount detection is
	// dropped in its favor so the more specific type ranks first.
	if hits := d.contextHits(TotalAmount, contextLower); len(hits) > 0 {
		for _, p := range d.patterns[Amount] {
			if p.MatchString(text) {
				detections = append(detections, Detection{
					Type: TotalAmount, Confidence: High, Value: text,
					Rule: RuleCompound, Pattern: p.String(), Keywords: hits,
				})
				detections = dropType(detections, Amount)
				break
			}
		}
	}

	sort.SliceStable(detections, func(i, j int) bool {
		if detections[i].Confidence != detections[j].Confidence {
			return detections[i].Confidence > detections[j].Confidence
		}
		return typeRank(detections[i].Type) < typeRank(detections[j].Type)
	})
	return detections
}

// Best returns the top-ranked detection, or an Other/Low detection when
// nothing matched.
func (d *Detector) Best(text, context string) Detection {
	if all := d.DetectAll(text, context); len(all) > 0 {
		return all[0]
	}
	return Detection{Type: Other, Confidence: Low, Value: strings.TrimSpace(text)}
}

func (d *Detector) contextHits(ft FieldType, contextLower string) []string {
	if contextLower == "" {
		return nil
	}
	var hits []string
	for _, kw := range d.keywords[ft] {
		if strings.Contains(contextLower, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}

func dropType(detections []Detection, ft FieldType) []Detection {
	kept := detections[:0]
	for _, det := range detections {
		if det.Type != ft {
			kept = append(kept, det)
		}
	}
	return kept
}
