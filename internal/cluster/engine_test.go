package cluster

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docmapper/internal/fingerprint"
)

func fixedUUID(n byte) uuid.UUID {
	var b [16]byte
	b[15] = n
	id, _ := uuid.FromBytes(b[:])
	return id
}

func inputsFromTexts(texts ...string) []Input {
	docs := make([]Input, len(texts))
	for i, t := range texts {
		docs[i] = Input{ID: fixedUUID(byte(i + 1)), Signature: fingerprint.New(t)}
	}
	return docs
}

func vectorize(t *testing.T, texts ...string) []Vector {
	t.Helper()
	return NewVectorizer().FitTransform(inputsFromTexts(texts...))
}

func TestClusterEmptyCorpusIsError(t *testing.T) {
	if _, err := NewEngine(nil).Cluster(nil); err == nil {
		t.Fatal("expected error for empty corpus")
	}
}

func TestClusterSingleDocument(t *testing.T) {
	vectors := vectorize(t, "Invoice #100 Acme AB Total 250 SEK")
	a, err := NewEngine(nil).Cluster(vectors)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Clusters) != 1 || len(a.Clusters[0].Members) != 1 {
		t.Fatalf("expected one cluster of size one, got %+v", a.Clusters)
	}
}

func TestClusterIdenticalCorpusCollapses(t *testing.T) {
	text := "Invoice #100 from Acme AB\nDatum: 2024-01-16\nTotalt: 250 SEK"
	vectors := vectorize(t, text, text, text, text, text, text)
	a, err := NewEngine(nil).Cluster(vectors)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Clusters) != 1 {
		t.Fatalf("identical corpus should collapse to a single cluster, got %d", len(a.Clusters))
	}
	if len(a.Clusters[0].Members) != 6 {
		t.Errorf("collapse lost members: %d of 6", len(a.Clusters[0].Members))
	}
}

func TestClusterTwoSimilarOneOutlier(t *testing.T) {
	vectors := vectorize(t,
		"Invoice #100 from Acme AB\nFakturanummer: INV-100\nTotalt: 250 SEK\nMoms: 62,50",
		"Invoice #101 from Acme AB\nFakturanummer: INV-101\nTotalt: 300 SEK\nMoms: 75,00",
		"Quarterly penguin census field notes, Antarctica expedition journal",
	)
	a, err := NewEngine(nil).Cluster(vectors)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d: %+v", len(a.Clusters), a.Clusters)
	}
	if a.ByDocument[fixedUUID(1)] != a.ByDocument[fixedUUID(2)] {
		t.Error("the two invoices should share a cluster")
	}
	if a.ByDocument[fixedUUID(3)] == a.ByDocument[fixedUUID(1)] {
		t.Error("the outlier should not share the invoice cluster")
	}
}

func TestClusterTotality(t *testing.T) {
	texts := make([]string, 9)
	for i := range texts {
		texts[i] = fmt.Sprintf("document %d with some shared invoice words and unique token u%d", i, i*i)
	}
	vectors := vectorize(t, texts...)
	a, err := NewEngine(nil).Cluster(vectors)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[uuid.UUID]int)
	for _, c := range a.Clusters {
		for _, m := range c.Members {
			seen[m]++
		}
	}
	for _, v := range vectors {
		if seen[v.ID] != 1 {
			t.Errorf("document %s appears %d times in the partition", v.ID, seen[v.ID])
		}
	}
	if len(seen) != len(vectors) {
		t.Errorf("partition covers %d documents, want %d", len(seen), len(vectors))
	}
}

func TestClusterDeterminism(t *testing.T) {
	vectors := vectorize(t,
		"Invoice #100 Acme Totalt 250 SEK",
		"Invoice #101 Acme Totalt 300 SEK",
		"Receipt Beta AB summa 12 kr",
		"Receipt Beta AB summa 14 kr",
		"Unrelated meeting minutes about procurement strategy",
	)
	first, err := NewEngine(nil).Cluster(vectors)
	if err != nil {
		t.Fatal(err)
	}
	for run := 0; run < 5; run++ {
		again, err := NewEngine(nil).Cluster(vectors)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d produced a different partition (-first +again):\n%s", run, diff)
		}
	}
}

func TestClusterAllDissimilar(t *testing.T) {
	vectors := vectorize(t,
		"alpha bravo charlie delta",
		"echo foxtrot golf hotel",
		"india juliett kilo lima",
		"mike november oscar papa",
	)
	a, err := NewEngine(nil).Cluster(vectors)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Clusters) != len(vectors) {
		t.Fatalf("maximally dissimilar corpus should stay one cluster per document, got %d clusters for %d documents", len(a.Clusters), len(vectors))
	}
}

func TestVectorizeIsBatchRelative(t *testing.T) {
	// adding a member changes document frequencies, so the same document
	// must come out with a different vector
	a := vectorize(t, "invoice total amount extra", "invoice total amount extra")
	b := vectorize(t, "invoice total amount extra", "invoice total amount extra", "invoice banana")
	if len(a[0].Values) == len(b[0].Values) {
		if diff := cmp.Diff(a[0].Values, b[0].Values); diff == "" {
			t.Error("adding a document to the batch should change existing vectors")
		}
	}
}

func TestSimilarDocuments(t *testing.T) {
	vectors := vectorize(t,
		"Invoice #100 Acme AB Totalt 250 SEK Moms 62",
		"Invoice #101 Acme AB Totalt 300 SEK Moms 75",
		"Deep sea cartography almanac volume twelve",
	)
	got := SimilarDocuments(vectors[0], vectors, 0.5)
	if len(got) != 1 || got[0] != vectors[1].ID {
		t.Errorf("expected only the sibling invoice above threshold, got %v", got)
	}
}
