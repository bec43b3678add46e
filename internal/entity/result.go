package entity

import "github.com/google/uuid"

// FieldValue is one extracted field: a value or a per-field error marker,
// never both. Order in ExtractionResult.Fields follows the template.
type FieldValue struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Cell is one table cell: a value or a per-cell error marker.
type Cell struct {
	Value string `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// TableData is one extracted table. Warnings carry validation findings that
// did not block extraction; Error is set only when the table region was
// structurally empty and nothing could be extracted.
type TableData struct {
	Name     string            `json:"name"`
	Rows     []map[string]Cell `json:"rows,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// ExtractionResult holds one document's replay of one template. Partial
// results are first-class: some fields may carry error markers while the
// rest carry values.
type ExtractionResult struct {
	DocumentID uuid.UUID    `json:"document_id"`
	Fields     []FieldValue `json:"fields"`
	Tables     []TableData  `json:"tables,omitempty"`
	Warnings   []string     `json:"warnings,omitempty"`
	Failed     bool         `json:"failed,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Partial reports whether the result mixes successes and per-item failures.
func (r *ExtractionResult) Partial() bool {
	if r.Failed {
		return false
	}
	var ok, bad int
	for _, f := range r.Fields {
		if f.Error != "" {
			bad++
		} else {
			ok++
		}
	}
	for _, t := range r.Tables {
		if t.Error != "" {
			bad++
		} else {
			ok++
		}
	}
	return ok > 0 && bad > 0
}

// Complete reports whether every field and table extracted cleanly.
func (r *ExtractionResult) Complete() bool {
	if r.Failed {
		return false
	}
	for _, f := range r.Fields {
		if f.Error != "" {
			return false
		}
	}
	for _, t := range r.Tables {
		if t.Error != "" {
			return false
		}
	}
	return true
}
