// Package template holds the persisted extraction contract for one cluster:
// field and table mappings in normalized coordinates plus the OCR language.
package template

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docmapper/internal/common"
	"github.com/joseph-ayodele/docmapper/internal/detect"
	"github.com/joseph-ayodele/docmapper/internal/geometry"
)

// SchemaVersion is written into every serialized template.
const SchemaVersion = 1

// DefaultLanguage is the OCR language used when a template predates
// language support and carries none.
const DefaultLanguage = "swe+eng"

// FieldMapping binds a field name to its value region on the reference
// document. The optional header region and text are used for display and
// validation only. Recurring marks values that mean the same thing across
// the whole cluster, as opposed to per-document values.
type FieldMapping struct {
	Name               string           `json:"name"`
	Value              geometry.Region  `json:"value"`
	Header             *geometry.Region `json:"header,omitempty"`
	HeaderText         string           `json:"header_text,omitempty"`
	Recurring          bool             `json:"recurring"`
	DetectedType       detect.FieldType `json:"detected_type,omitempty"`
	DetectedConfidence string           `json:"detected_confidence,omitempty"`
}

// Column is a named column inside a table region. Start and End are
// horizontal offsets within the table region in the same scaled units as
// Region coordinates; columns are kept ordered by Start.
type Column struct {
	Name  string `json:"name"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// TableMapping binds a named table region to its ordered columns. HeaderRow
// is nil when no header row was identified; HasHeader says whether the
// table is expected to have one at all.
type TableMapping struct {
	Name      string          `json:"name"`
	Region    geometry.Region `json:"region"`
	Columns   []Column        `json:"columns"`
	HeaderRow *int            `json:"header_row,omitempty"`
	HasHeader bool            `json:"has_header"`
}

// Template is one cluster's extraction contract. Regions are always
// expressed against the reference document's page geometry at creation
// time and are never silently re-normalized.
type Template struct {
	Version     int            `json:"version"`
	ClusterID   string         `json:"cluster_id"`
	ReferenceID uuid.UUID      `json:"reference_id"`
	Language    string         `json:"ocr_language,omitempty"`
	Fields      []FieldMapping `json:"field_mappings"`
	Tables      []TableMapping `json:"table_mappings"`

	// NeedsRevalidation is set when the cluster's reference was re-selected
	// after this template was built; mappings must be re-validated against
	// the new reference's geometry before the template is trusted again.
	NeedsRevalidation bool `json:"needs_revalidation,omitempty"`
}

// EffectiveLanguage resolves the OCR language, defaulting legacy templates
// to swe+eng.
func (t *Template) EffectiveLanguage() string {
	if t.Language == "" {
		return DefaultLanguage
	}
	return t.Language
}

// FieldByName returns the index of the named field mapping, or -1.
func (t *Template) FieldByName(name string) int {
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// TableByName returns the index of the named table mapping, or -1.
func (t *Template) TableByName(name string) int {
	for i, tm := range t.Tables {
		if tm.Name == name {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy. Extractions run against clones so a template
// being edited never changes under a running batch.
func (t *Template) Clone() *Template {
	c := *t
	c.Fields = make([]FieldMapping, len(t.Fields))
	copy(c.Fields, t.Fields)
	for i := range c.Fields {
		if h := c.Fields[i].Header; h != nil {
			hh := *h
			c.Fields[i].Header = &hh
		}
	}
	c.Tables = make([]TableMapping, len(t.Tables))
	copy(c.Tables, t.Tables)
	for i := range c.Tables {
		cols := make([]Column, len(t.Tables[i].Columns))
		copy(cols, t.Tables[i].Columns)
		c.Tables[i].Columns = cols
		if hr := t.Tables[i].HeaderRow; hr != nil {
			v := *hr
			c.Tables[i].HeaderRow = &v
		}
	}
	return &c
}

// Encode serializes the template, stamping the current schema version.
func Encode(t *Template) ([]byte, error) {
	t.Version = SchemaVersion
	b, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal template %s: %w", t.ClusterID, err)
	}
	return b, nil
}

// Decode validates raw template JSON against the schema, unmarshals it and
// applies backward-compatible defaults. A template that fails either step
// is a template-integrity error, surfaced, never silently dropped.
func Decode(data []byte) (*Template, error) {
	if err := validateSchema(data); err != nil {
		return nil, common.NewAppError("TEMPLATE_SCHEMA", "template does not match schema", fmt.Errorf("%w: %w", common.ErrTemplateIntegrity, err))
	}
	var t Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, common.NewAppError("TEMPLATE_DECODE", "template failed to deserialize", fmt.Errorf("%w: %w", common.ErrTemplateIntegrity, err))
	}
	if t.Language == "" {
		t.Language = DefaultLanguage
	}
	for _, f := range t.Fields {
		if !f.Value.Valid() {
			return nil, common.NewAppError("TEMPLATE_REGION", fmt.Sprintf("field %q has an invalid region", f.Name), common.ErrTemplateIntegrity)
		}
	}
	for _, tm := range t.Tables {
		if !tm.Region.Valid() {
			return nil, common.NewAppError("TEMPLATE_REGION", fmt.Sprintf("table %q has an invalid region", tm.Name), common.ErrTemplateIntegrity)
		}
	}
	return &t, nil
}
