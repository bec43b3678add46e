package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docmapper/constants"
	"github.com/joseph-ayodele/docmapper/internal/common"
	"github.com/joseph-ayodele/docmapper/internal/detect"
	"github.com/joseph-ayodele/docmapper/internal/entity"
	"github.com/joseph-ayodele/docmapper/internal/extract"
	"github.com/joseph-ayodele/docmapper/internal/geometry"
	"github.com/joseph-ayodele/docmapper/internal/repository"
	"github.com/joseph-ayodele/docmapper/internal/template"
)

type stubText struct{ text string }

func (s stubText) PageText(context.Context, *entity.Document, int) (string, error) {
	return s.text, nil
}

func (s stubText) RegionText(context.Context, *entity.Document, int, geometry.Rect) (string, error) {
	return s.text, nil
}

type stubGeom struct{}

func (stubGeom) PageSize(context.Context, *entity.Document, int) (float64, float64, error) {
	return 595.28, 841.89, nil
}

const invoiceText = `Faktura
Fakturanummer: INV-100
Leverantör: Byggbolaget AB
Belopp: 1 234,56
Total: 1 234,56
Förfallodatum: 2024-02-15`

func testService(t *testing.T) (*Service, repository.DocumentRepository) {
	t.Helper()
	ctx := context.Background()

	store, err := repository.Open(ctx, common.StoreConfig{DSN: ":memory:"}, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close(nil) })
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	docs := repository.NewDocumentRepository(store, nil)
	clusters := repository.NewClusterRepository(store, nil)
	mgr, errs := template.NewManager(ctx, repository.NewTemplateStore(store, nil), nil)
	if len(errs) != 0 {
		t.Fatalf("manager load: %v", errs)
	}

	engine := extract.NewEngine(stubText{text: "INV-100"}, nil, stubGeom{}, nil)
	svc := NewService(common.LoadConfig(), docs, clusters, mgr, nil, engine, nil)
	return svc, docs
}

func seedDoc(t *testing.T, docs repository.DocumentRepository, text string) uuid.UUID {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	doc := &entity.Document{
		ID:     uuid.New(),
		Path:   path,
		Text:   text,
		Pages:  1,
		Status: constants.DocumentStatusProcessed,
	}
	if err := docs.Upsert(context.Background(), doc); err != nil {
		t.Fatal(err)
	}
	return doc.ID
}

func TestClusterCorpusPersistsAssignment(t *testing.T) {
	ctx := context.Background()
	svc, docs := testService(t)

	var invoiceIDs []uuid.UUID
	for i := 0; i < 3; i++ {
		invoiceIDs = append(invoiceIDs, seedDoc(t, docs, invoiceText))
	}
	outlier := seedDoc(t, docs, "Mötesprotokoll styrelsemöte paragraf ett två tre")

	assignment, err := svc.ClusterCorpus(ctx)
	if err != nil {
		t.Fatalf("ClusterCorpus: %v", err)
	}
	if len(assignment.Clusters) != 2 {
		t.Fatalf("got %d clusters, want 2", len(assignment.Clusters))
	}

	invoiceCluster := assignment.ByDocument[invoiceIDs[0]]
	for _, id := range invoiceIDs[1:] {
		if assignment.ByDocument[id] != invoiceCluster {
			t.Fatal("identical invoices landed in different clusters")
		}
	}
	if assignment.ByDocument[outlier] == invoiceCluster {
		t.Fatal("outlier joined the invoice cluster")
	}

	// assignment was persisted, including the selected reference
	ref, err := docs.Get(ctx, assignment.Clusters[0].ReferenceID)
	if err != nil {
		t.Fatalf("reference lookup: %v", err)
	}
	if !ref.Reference {
		t.Fatal("reference document not flagged in store")
	}
}

func TestEnsureTemplateAndExtract(t *testing.T) {
	ctx := context.Background()
	svc, docs := testService(t)

	for i := 0; i < 2; i++ {
		seedDoc(t, docs, invoiceText)
	}
	assignment, err := svc.ClusterCorpus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	clusterID := assignment.Clusters[0].ID

	tpl, err := svc.EnsureTemplate(ctx, clusterID)
	if err != nil {
		t.Fatalf("EnsureTemplate: %v", err)
	}
	if tpl.ReferenceID != assignment.Clusters[0].ReferenceID {
		t.Fatal("template not anchored on the cluster reference")
	}
	// idempotent
	again, err := svc.EnsureTemplate(ctx, clusterID)
	if err != nil || again.ClusterID != clusterID {
		t.Fatalf("second EnsureTemplate: %+v, %v", again, err)
	}

	if err := svc.templates.PutField(ctx, clusterID, template.FieldMapping{
		Name:  "invoice_number",
		Value: geometry.Region{Page: 0, X0: 100, Y0: 50, X1: 300, Y1: 80},
	}); err != nil {
		t.Fatal(err)
	}

	results, err := svc.ExtractCluster(ctx, clusterID)
	if err != nil {
		t.Fatalf("ExtractCluster: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for id, res := range results {
		if res.Fields[0].Value != "INV-100" {
			t.Fatalf("field not extracted: %+v", res.Fields[0])
		}
		doc, err := docs.Get(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if doc.Status != constants.DocumentStatusMapped {
			t.Fatalf("status = %s, want MAPPED", doc.Status)
		}
	}
}

func TestScanReferenceSuggestsFields(t *testing.T) {
	ctx := context.Background()
	svc, docs := testService(t)

	seedDoc(t, docs, invoiceText)
	seedDoc(t, docs, invoiceText)
	assignment, err := svc.ClusterCorpus(ctx)
	if err != nil {
		t.Fatal(err)
	}

	detections, err := svc.ScanReference(ctx, assignment.Clusters[0].ID)
	if err != nil {
		t.Fatalf("ScanReference: %v", err)
	}

	found := map[detect.FieldType]bool{}
	for _, d := range detections {
		found[d.Type] = true
	}
	for _, want := range []detect.FieldType{detect.InvoiceNumber, detect.Date} {
		if !found[want] {
			t.Fatalf("scan missed %s; got %v", want, detections)
		}
	}
}

func TestSimilarDocuments(t *testing.T) {
	ctx := context.Background()
	svc, docs := testService(t)

	a := seedDoc(t, docs, invoiceText)
	b := seedDoc(t, docs, strings.Replace(invoiceText, "INV-100", "INV-101", 1))
	seedDoc(t, docs, "Helt annat dokument utan gemensamma ord alls")

	similar, err := svc.SimilarDocuments(ctx, a, 0.7)
	if err != nil {
		t.Fatalf("SimilarDocuments: %v", err)
	}
	foundB := false
	for _, id := range similar {
		if id == b {
			foundB = true
		}
	}
	if !foundB {
		t.Fatal("near-identical document not reported as similar")
	}
}

func TestClusterCorpusHonorsVectorizerConfig(t *testing.T) {
	ctx := context.Background()
	svc, docs := testService(t)

	for i := 0; i < 2; i++ {
		seedDoc(t, docs, "alfa beta")
	}
	for i := 0; i < 2; i++ {
		seedDoc(t, docs, "alfa gamma")
	}

	assignment, err := svc.ClusterCorpus(ctx)
	if err != nil {
		t.Fatalf("ClusterCorpus: %v", err)
	}
	if len(assignment.Clusters) != 2 {
		t.Fatalf("defaults: got %d clusters, want 2", len(assignment.Clusters))
	}

	// a one-term vocabulary makes every document look identical
	svc.cfg.Clustering.MaxFeatures = 1
	assignment, err = svc.ClusterCorpus(ctx)
	if err != nil {
		t.Fatalf("ClusterCorpus with MaxFeatures=1: %v", err)
	}
	if len(assignment.Clusters) != 1 {
		t.Fatalf("MaxFeatures=1: got %d clusters, want 1", len(assignment.Clusters))
	}

	// only "alfa" appears in three or more documents
	svc.cfg.Clustering.MaxFeatures = 500
	svc.cfg.Clustering.MinDocFreq = 3
	assignment, err = svc.ClusterCorpus(ctx)
	if err != nil {
		t.Fatalf("ClusterCorpus with MinDocFreq=3: %v", err)
	}
	if len(assignment.Clusters) != 1 {
		t.Fatalf("MinDocFreq=3: got %d clusters, want 1", len(assignment.Clusters))
	}
}

func TestSimilarDocumentsSkipsFailedDocuments(t *testing.T) {
	ctx := context.Background()
	svc, docs := testService(t)

	a := seedDoc(t, docs, invoiceText)
	b := seedDoc(t, docs, strings.Replace(invoiceText, "INV-100", "INV-101", 1))

	broken := &entity.Document{
		ID:     uuid.New(),
		Path:   "/nonexistent/broken.pdf",
		Status: constants.DocumentStatusError,
	}
	if err := docs.Upsert(ctx, broken); err != nil {
		t.Fatal(err)
	}

	similar, err := svc.SimilarDocuments(ctx, a, 0.7)
	if err != nil {
		t.Fatalf("SimilarDocuments: %v", err)
	}
	for _, id := range similar {
		if id == broken.ID {
			t.Fatal("failed document reported as similar")
		}
	}
	foundB := false
	for _, id := range similar {
		if id == b {
			foundB = true
		}
	}
	if !foundB {
		t.Fatal("near-identical document not reported as similar")
	}

	// failed documents are outside the comparison corpus entirely
	if _, err := svc.SimilarDocuments(ctx, broken.ID, 0.7); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("query for a failed document: %v, want not-found", err)
	}
}
