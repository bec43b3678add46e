package template

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docmapper/internal/common"
	"github.com/joseph-ayodele/docmapper/internal/geometry"
)

var refID = uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2")

func region(x0, y0, x1, y1 int) geometry.Region {
	return geometry.Region{Page: 0, X0: x0, Y0: y0, X1: x1, Y1: y1}
}

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewFSStore(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	m, errs := NewManager(context.Background(), store, nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected load errors: %v", errs)
	}
	return m, dir
}

func TestCreateRequiresReference(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.Create(context.Background(), "cluster_0", uuid.Nil); err == nil {
		t.Fatal("expected error creating a template without a resolved reference")
	}
}

func TestCreateGetRoundTrip(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	created, err := m.Create(ctx, "cluster_0", refID)
	if err != nil {
		t.Fatal(err)
	}
	if created.EffectiveLanguage() != DefaultLanguage {
		t.Errorf("new template language = %q, want %q", created.EffectiveLanguage(), DefaultLanguage)
	}

	got, err := m.Get("cluster_0")
	if err != nil {
		t.Fatal(err)
	}
	if got.ClusterID != "cluster_0" || got.ReferenceID != refID {
		t.Errorf("unexpected template identity: %+v", got)
	}

	if _, err := m.Create(ctx, "cluster_0", refID); err == nil {
		t.Error("duplicate create should fail")
	}
}

func TestFieldMappingLifecycle(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	if _, err := m.Create(ctx, "cluster_0", refID); err != nil {
		t.Fatal(err)
	}

	fm := FieldMapping{Name: "Fakturanummer", Value: region(100, 50, 300, 90)}
	if err := m.PutField(ctx, "cluster_0", fm); err != nil {
		t.Fatal(err)
	}
	second := FieldMapping{Name: "Datum", Value: region(100, 100, 300, 140), Recurring: true}
	if err := m.PutField(ctx, "cluster_0", second); err != nil {
		t.Fatal(err)
	}

	// update keeps position
	fm.Recurring = true
	if err := m.PutField(ctx, "cluster_0", fm); err != nil {
		t.Fatal(err)
	}
	got, _ := m.Get("cluster_0")
	if len(got.Fields) != 2 || got.Fields[0].Name != "Fakturanummer" || !got.Fields[0].Recurring {
		t.Errorf("update should replace in place: %+v", got.Fields)
	}

	if err := m.RemoveField(ctx, "cluster_0", "Fakturanummer"); err != nil {
		t.Fatal(err)
	}
	got, _ = m.Get("cluster_0")
	if len(got.Fields) != 1 || got.Fields[0].Name != "Datum" {
		t.Errorf("remove should preserve remaining order: %+v", got.Fields)
	}

	if err := m.RemoveField(ctx, "cluster_0", "missing"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("removing a missing field should be ErrNotFound, got %v", err)
	}
	if err := m.PutField(ctx, "cluster_0", FieldMapping{Name: "bad", Value: region(300, 0, 100, 50)}); err == nil {
		t.Error("invalid region should be rejected")
	}
}

func TestTableColumnsSortedByStart(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	if _, err := m.Create(ctx, "cluster_0", refID); err != nil {
		t.Fatal(err)
	}

	tm := TableMapping{
		Name:   "Rader",
		Region: region(50, 300, 950, 800),
		Columns: []Column{
			{Name: "Summa", Start: 700, End: 950},
			{Name: "Artikel", Start: 0, End: 400},
			{Name: "Antal", Start: 400, End: 700},
		},
		HasHeader: true,
	}
	if err := m.PutTable(ctx, "cluster_0", tm); err != nil {
		t.Fatal(err)
	}
	got, _ := m.Get("cluster_0")
	names := []string{got.Tables[0].Columns[0].Name, got.Tables[0].Columns[1].Name, got.Tables[0].Columns[2].Name}
	if names[0] != "Artikel" || names[1] != "Antal" || names[2] != "Summa" {
		t.Errorf("columns should be ordered by start offset, got %v", names)
	}
}

func TestLegacyTemplateDefaultsLanguage(t *testing.T) {
	// a record written before language support carried no ocr_language
	legacy := `{
		"cluster_id": "cluster_7",
		"reference_id": "7d444840-9dc0-11d1-b245-5ffdce74fad2",
		"field_mappings": [],
		"table_mappings": []
	}`
	tpl, err := Decode([]byte(legacy))
	if err != nil {
		t.Fatal(err)
	}
	if tpl.EffectiveLanguage() != "swe+eng" {
		t.Errorf("legacy template language = %q, want swe+eng", tpl.EffectiveLanguage())
	}
}

func TestDecodeRejectsBrokenTemplates(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", "{nope"},
		{"missing cluster id", `{"reference_id":"x","field_mappings":[],"table_mappings":[]}`},
		{"invalid region", `{
			"cluster_id": "c", "reference_id": "7d444840-9dc0-11d1-b245-5ffdce74fad2",
			"field_mappings": [{"name":"f","value":{"page":0,"x0":900,"y0":0,"x1":100,"y1":50}}],
			"table_mappings": []
		}`},
	}
	for _, tc := range cases {
		_, err := Decode([]byte(tc.data))
		if err == nil {
			t.Errorf("%s: expected decode failure", tc.name)
			continue
		}
		if !errors.Is(err, common.ErrTemplateIntegrity) {
			t.Errorf("%s: error should wrap ErrTemplateIntegrity, got %v", tc.name, err)
		}
	}
}

func TestLoadAllSurfacesBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	good := &Template{ClusterID: "cluster_0", ReferenceID: refID, Fields: []FieldMapping{}, Tables: []TableMapping{}}
	if err := store.Save(context.Background(), good); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "cluster_1.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	loaded, errs := store.LoadAll(context.Background())
	if len(loaded) != 1 || loaded[0].ClusterID != "cluster_0" {
		t.Errorf("expected the intact template to load, got %+v", loaded)
	}
	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "cluster_1") {
		t.Errorf("broken template must surface as an error, got %v", errs)
	}
}

func TestSetReferenceFlagsRevalidation(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	if _, err := m.Create(ctx, "cluster_0", refID); err != nil {
		t.Fatal(err)
	}
	if err := m.PutField(ctx, "cluster_0", FieldMapping{Name: "Datum", Value: region(0, 0, 200, 50)}); err != nil {
		t.Fatal(err)
	}

	next := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	if err := m.SetReference(ctx, "cluster_0", next); err != nil {
		t.Fatal(err)
	}
	got, _ := m.Get("cluster_0")
	if !got.NeedsRevalidation {
		t.Error("re-selecting the reference must flag existing mappings for re-validation")
	}
	if got.Fields[0].Value != region(0, 0, 200, 50) {
		t.Error("regions must never be silently re-normalized on reference change")
	}

	if err := m.ClearRevalidation(ctx, "cluster_0"); err != nil {
		t.Fatal(err)
	}
	got, _ = m.Get("cluster_0")
	if got.NeedsRevalidation {
		t.Error("ClearRevalidation should reset the flag")
	}
}
