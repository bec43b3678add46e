package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docmapper/constants"
	"github.com/joseph-ayodele/docmapper/internal/common"
	"github.com/joseph-ayodele/docmapper/internal/entity"
	"github.com/joseph-ayodele/docmapper/internal/geometry"
	"github.com/joseph-ayodele/docmapper/internal/template"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), common.StoreConfig{DSN: ":memory:"}, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { store.Close(nil) })
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestDocumentUpsertRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository(testStore(t), nil)

	doc := &entity.Document{
		ID:        uuid.New(),
		Path:      "/corpus/inv-001.pdf",
		Text:      "Faktura 100",
		Pages:     2,
		PageSizes: []entity.PageSize{{Width: 595.28, Height: 841.89}},
		Status:    constants.DocumentStatusProcessed,
	}
	if err := repo.Upsert(ctx, doc); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := repo.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Fatalf("document round trip (-want +got):\n%s", diff)
	}

	// second upsert updates in place
	doc.Status = constants.DocumentStatusClustered
	doc.ClusterID = "cluster_0"
	if err := repo.Upsert(ctx, doc); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	got, err = repo.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.ClusterID != "cluster_0" {
		t.Fatalf("update not applied: %+v", got)
	}
}

func TestDocumentGetMissing(t *testing.T) {
	repo := NewDocumentRepository(testStore(t), nil)
	_, err := repo.Get(context.Background(), uuid.New())
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestReplaceAssignmentIsWholesale(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	docs := NewDocumentRepository(store, nil)
	clusters := NewClusterRepository(store, nil)

	ids := make([]uuid.UUID, 3)
	for i := range ids {
		ids[i] = uuid.New()
		if err := docs.Upsert(ctx, &entity.Document{
			ID: ids[i], Path: "/corpus/x.pdf", Status: constants.DocumentStatusProcessed,
		}); err != nil {
			t.Fatal(err)
		}
	}

	first := []entity.Cluster{{ID: "cluster_0", Members: ids, ReferenceID: ids[0]}}
	if err := clusters.ReplaceAssignment(ctx, first); err != nil {
		t.Fatalf("first assignment: %v", err)
	}

	// re-cluster into two groups; the old assignment must vanish entirely
	second := []entity.Cluster{
		{ID: "cluster_0", Members: ids[:2], ReferenceID: ids[1]},
		{ID: "cluster_1", Members: ids[2:], ReferenceID: ids[2]},
	}
	if err := clusters.ReplaceAssignment(ctx, second); err != nil {
		t.Fatalf("second assignment: %v", err)
	}

	got, err := clusters.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d clusters, want 2", len(got))
	}

	ref, err := docs.Get(ctx, ids[1])
	if err != nil {
		t.Fatal(err)
	}
	if !ref.Reference || ref.ClusterID != "cluster_0" {
		t.Fatalf("reference flag not reassigned: %+v", ref)
	}
	old, err := docs.Get(ctx, ids[0])
	if err != nil {
		t.Fatal(err)
	}
	if old.Reference {
		t.Fatal("previous reference flag should be cleared")
	}
}

func TestTemplateStoreBackedManager(t *testing.T) {
	ctx := context.Background()
	ts := NewTemplateStore(testStore(t), nil)

	mgr, errs := template.NewManager(ctx, ts, nil)
	if len(errs) != 0 {
		t.Fatalf("load errors: %v", errs)
	}

	ref := uuid.New()
	if _, err := mgr.Create(ctx, "cluster_0", ref); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := mgr.PutField(ctx, "cluster_0", template.FieldMapping{
		Name:  "invoice_number",
		Value: geometry.Region{Page: 0, X0: 100, Y0: 50, X1: 300, Y1: 80},
	}); err != nil {
		t.Fatalf("put field: %v", err)
	}

	// a fresh manager sees what the first one persisted
	mgr2, errs := template.NewManager(ctx, ts, nil)
	if len(errs) != 0 {
		t.Fatalf("reload errors: %v", errs)
	}
	got, err := mgr2.Get("cluster_0")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ReferenceID != ref || len(got.Fields) != 1 {
		t.Fatalf("template not persisted faithfully: %+v", got)
	}
}
