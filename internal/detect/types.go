// Package detect classifies extracted text into semantic field types with a
// confidence level, using regex patterns on the value and Swedish/English
// keyword lists on the surrounding context.
package detect

// FieldType is the fixed enumeration of semantic field categories.
type FieldType string

const (
	InvoiceNumber FieldType = "invoice_number"
	Date          FieldType = "date"
	Amount        FieldType = "amount"
	TotalAmount   FieldType = "total_amount"
	VATNumber     FieldType = "vat_number"
	CompanyName   FieldType = "company_name"
	Address       FieldType = "address"
	Email         FieldType = "email"
	Phone         FieldType = "phone"
	OrderNumber   FieldType = "order_number"
	ProjectNumber FieldType = "project_number"
	Other         FieldType = "other"
)

// fieldTypeOrder is the documented declaration order used for deterministic
// tie-breaking between detections of equal confidence.
var fieldTypeOrder = []FieldType{
	InvoiceNumber,
	Date,
	Amount,
	TotalAmount,
	VATNumber,
	CompanyName,
	Address,
	Email,
	Phone,
	OrderNumber,
	ProjectNumber,
}

func typeRank(ft FieldType) int {
	for i, t := range fieldTypeOrder {
		if t == ft {
			return i
		}
	}
	return len(fieldTypeOrder)
}

// Confidence is a detection's confidence level.
type Confidence int

const (
	Low Confidence = iota
	Medium
	High
)

func (c Confidence) String() string {
	switch c {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// ParseConfidence maps the persisted string form back to a Confidence.
func ParseConfidence(s string) Confidence {
	switch s {
	case "high":
		return High
	case "medium":
		return Medium
	default:
		return Low
	}
}

// Rule names which classifier rule produced a detection.
type Rule string

const (
	RulePattern  Rule = "pattern"
	RuleKeyword  Rule = "keyword"
	RuleCompound Rule = "compound" // value pattern plus context keyword
)

// Detection is one classification outcome. Transient: produced on demand,
// only ever persisted as a field mapping's cached suggestion.
type Detection struct {
	Type       FieldType
	Confidence Confidence
	Value      string
	Rule       Rule
	Pattern    string   // the pattern that matched, for RulePattern/RuleCompound
	Keywords   []string // context keywords that hit, for RuleKeyword/RuleCompound
}
