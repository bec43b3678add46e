package detect

import "testing"

func TestDetectDateWithoutContext(t *testing.T) {
	d := NewDetector()
	got := d.Best("2024-01-16", "")
	if got.Type != Date {
		t.Fatalf("Best(2024-01-16) = %s, want %s", got.Type, Date)
	}
	if got.Confidence != High {
		t.Errorf("date pattern match should be high confidence, got %s", got.Confidence)
	}
	if got.Rule != RulePattern {
		t.Errorf("expected pattern rule, got %s", got.Rule)
	}
}

func TestDetectTotalAmountNeedsContext(t *testing.T) {
	d := NewDetector()

	withTotal := d.Best("1 234,56 SEK", "Total:")
	if withTotal.Type != TotalAmount {
		t.Fatalf("amount near a total keyword should classify as total_amount, got %s", withTotal.Type)
	}
	if withTotal.Confidence != High || withTotal.Rule != RuleCompound {
		t.Errorf("compound total detection should be high/compound, got %s/%s", withTotal.Confidence, withTotal.Rule)
	}

	bare := d.Best("1 234,56 SEK", "")
	if bare.Type != Amount {
		t.Errorf("a bare amount must never classify as total, got %s", bare.Type)
	}
}

func TestDetectRankedOrdering(t *testing.T) {
	d := NewDetector()
	all := d.DetectAll("2024-01-16", "")
	if len(all) < 2 {
		t.Fatalf("expected date and phone candidates, got %v", all)
	}
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if cur.Confidence > prev.Confidence {
			t.Fatalf("ranking not sorted by confidence: %v", all)
		}
		if cur.Confidence == prev.Confidence && typeRank(cur.Type) < typeRank(prev.Type) {
			t.Fatalf("equal-confidence tie must follow declaration order: %v", all)
		}
	}
	if all[0].Type != Date {
		t.Errorf("date declares earlier than phone and must win the tie, got %s", all[0].Type)
	}
}

func TestDetectKeywordOnlyIsMedium(t *testing.T) {
	d := NewDetector()
	got := d.Best("Acme Aktiebolag", "Leverantör:")
	if got.Type != CompanyName {
		t.Fatalf("expected company_name from context keyword, got %s", got.Type)
	}
	if got.Confidence != Medium || got.Rule != RuleKeyword {
		t.Errorf("keyword-only hit should be medium/keyword, got %s/%s", got.Confidence, got.Rule)
	}
}

func TestDetectPatternPlusKeywordUpgrades(t *testing.T) {
	d := NewDetector()
	got := d.Best("INV-10023", "Fakturanummer:")
	if got.Type != InvoiceNumber || got.Confidence != High || got.Rule != RuleCompound {
		t.Errorf("pattern+keyword should be invoice_number/high/compound, got %s/%s/%s",
			got.Type, got.Confidence, got.Rule)
	}
}

func TestDetectCommonShapes(t *testing.T) {
	d := NewDetector()
	cases := []struct {
		text, context string
		want          FieldType
	}{
		{"billing@acme.se", "", Email},
		{"070-123 45 67", "Telefon:", Phone},
		{"SE556677889901", "", VATNumber},
		{"ORD-10045", "Ordernummer:", InvoiceNumber}, // generic alnum pattern wins the declaration-order tie
		{"16 januari 2024", "", Date},
	}
	for _, tc := range cases {
		if got := d.Best(tc.text, tc.context); got.Type != tc.want {
			t.Errorf("Best(%q, %q) = %s, want %s", tc.text, tc.context, got.Type, tc.want)
		}
	}
}

func TestDetectEmptyAndUnknown(t *testing.T) {
	d := NewDetector()
	if got := d.Best("", ""); got.Type != Other || got.Confidence != Low {
		t.Errorf("empty text should be other/low, got %s/%s", got.Type, got.Confidence)
	}
	if got := d.Best("???", ""); got.Type != Other {
		t.Errorf("unclassifiable text should be other, got %s", got.Type)
	}
}

func TestScanText(t *testing.T) {
	d := NewDetector()
	text := "Fakturanummer: INV-10023\nDatum: 2024-01-16\n\nsome prose line without structure"
	got := d.ScanText(text)
	if len(got) < 2 {
		t.Fatalf("expected at least invoice number and date detections, got %v", got)
	}
	if got[0].Type != InvoiceNumber || got[1].Type != Date {
		t.Errorf("scan order should follow line order: got %s then %s", got[0].Type, got[1].Type)
	}
}
