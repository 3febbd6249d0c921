package services

import (
	"context"
	"testing"
	"unicode/utf8"

	"retail-pipeline/models"
	"retail-pipeline/utils"
)

func TestReportTopProducts(t *testing.T) {
	_, products, _ := NewAggregator().Aggregate(sampleTransactions())
	top := TopProducts(products, 2)
	if len(top) != 2 {
		t.Fatalf("TopProducts len: got %d, want 2", len(top))
	}
	if top[0].StockCode != "P2" {
		t.Errorf("TopProducts[0]: got %q, want P2", top[0].StockCode)
	}
	if top[1].StockCode != "P1" {
		t.Errorf("TopProducts[1]: got %q, want P1", top[1].StockCode)
	}
}

func TestReportSegmentCounts(t *testing.T) {
	_, _, customers := NewAggregator().Aggregate(sampleTransactions())
	counts := SegmentCounts(customers)
	if counts[models.SegmentVIP] != 1 {
		t.Errorf("VIP count: got %d, want 1", counts[models.SegmentVIP])
	}
	if counts[models.SegmentLow] != 2 {
		t.Errorf("Low count: got %d, want 2", counts[models.SegmentLow])
	}
}

func TestReportMonthlyRevenue(t *testing.T) {
	trend := MonthlyRevenueTrend(sampleTransactions())
	if len(trend) != 3 {
		t.Fatalf("months: got %d, want 3", len(trend))
	}
	if trend[0].Revenue != 57 || trend[0].UniqueCustomers != 1 {
		t.Errorf("January: got %+v", trend[0])
	}
	if trend[1].Revenue != 17 || trend[1].TransactionCount != 2 {
		t.Errorf("February: got %+v", trend[1])
	}
}

func TestReportCountryRanking(t *testing.T) {
	ranked := CountryRanking(sampleTransactions(), 10)
	if len(ranked) != 3 {
		t.Fatalf("countries: got %d, want 3", len(ranked))
	}
	if ranked[0].Country != "US" || ranked[0].Revenue != 12057 {
		t.Errorf("first country: got %+v", ranked[0])
	}
	if ranked[0].UniqueCustomers != 2 {
		t.Errorf("US customers: got %d, want 2", ranked[0].UniqueCustomers)
	}
}

func TestReportReturnRates(t *testing.T) {
	rates := ReturnRates(sampleTransactions(), 5)
	if len(rates) != 1 {
		t.Fatalf("return rates: got %d, want 1", len(rates))
	}
	if rates[0].StockCode != "P1" || rates[0].Rate != 33.33 {
		t.Errorf("P1 return rate: got %+v", rates[0])
	}
}

func TestReportGenerate(t *testing.T) {
	p := NewPipeline(utils.NewNopLogger(), 1)
	batch, results, err := p.Run(context.Background(), "r", sampleRaw(), WindowAll)
	if err != nil {
		t.Fatal(err)
	}

	rep := NewReporter(utils.NewNopLogger()).Generate(results, batch.Transactions)
	if len(rep.Summaries) != 1 {
		t.Errorf("summaries: got %d, want 1", len(rep.Summaries))
	}
	if rep.Rejections[models.ReasonMissingField] != 1 {
		t.Errorf("rejections: got %v", rep.Rejections)
	}
	if len(rep.TopProducts) != 2 {
		t.Errorf("top products: got %d, want 2", len(rep.TopProducts))
	}
}

func TestReportEmptyInput(t *testing.T) {
	rep := NewReporter(utils.NewNopLogger()).Generate(nil, nil)
	if len(rep.TopProducts) != 0 || len(rep.MonthlyRevenue) != 0 {
		t.Errorf("expected empty report for empty input")
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"MUG", 28, "MUG"},
		{"CAFÉ", 4, "CAFÉ"},
		{"ÉÉÉÉÉÉ", 5, "ÉÉ..."},
		{"WHITE HANGING HEART T-LIGHT HOLDER", 10, "WHITE H..."},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.max)
		if got != tt.want {
			t.Errorf("truncate(%q, %d): got %q, want %q", tt.in, tt.max, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.max)
		}
	}
}
