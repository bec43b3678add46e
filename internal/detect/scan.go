package detect

import (
	"regexp"
	"strings"
)

var reLabelSplit = regexp.MustCompile(`[:;,]`)

// ScanText walks a document's text line by line and returns a detection for
// every line that classifies as something other than Other. Lines shaped
// like "Label: value" use the label part as keyword context; bare lines are
// classified on their own. Used to pre-suggest field mappings for a
// reference document.
func (d *Detector) ScanText(text string) []Detection {
	if text == "" {
		return nil
	}
	var out []Detection
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var det Detection
		if loc := reLabelSplit.FindStringIndex(line); loc != nil {
			label := strings.TrimSpace(line[:loc[0]])
			value := strings.TrimSpace(line[loc[1]:])
			det = d.Best(value, label)
		} else {
			det = d.Best(line, "")
		}
		if det.Type != Other {
			out = append(out, det)
		}
	}
	return out
}

// SuggestName proposes a display name for a detected field type; templates
// carry Swedish labels by default.
func SuggestName(ft FieldType) string {
	switch ft {
	case InvoiceNumber:
		return "Fakturanummer"
	case Date:
		return "Datum"
	case Amount:
		return "Belopp"
	case TotalAmount:
		return "Totalt"
	case VATNumber:
		return "Momsnummer"
	case CompanyName:
		return "Företagsnamn"
	case Address:
		return "Adress"
	case Email:
		return "E-post"
	case Phone:
		return "Telefon"
	case OrderNumber:
		return "Ordernummer"
	case ProjectNumber:
		return "Projektnummer"
	default:
		return "Okänt fält"
	}
}
