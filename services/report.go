package services

import (
	"fmt"
	"sort"
	"strings"

	"retail-pipeline/models"
	"retail-pipeline/utils"
)

const reportTopN = 5

// Reporter builds and prints the end-of-run analytics. Everything it shows
// is derived from the run summaries and the canonical transaction log.
type Reporter struct {
	logger     *utils.Logger
	aggregator *Aggregator
}

// NewReporter creates a Reporter that logs through logger.
func NewReporter(logger *utils.Logger) *Reporter {
	return &Reporter{logger: logger, aggregator: NewAggregator()}
}

// Generate builds the run report from the window results and the canonical log.
func (r *Reporter) Generate(results []*models.RunResult, txns []*models.Transaction) *models.RunReport {
	report := &models.RunReport{
		Rejections:    make(map[models.RejectionReason]int),
		SegmentCounts: make(map[models.Segment]int),
	}
	for _, res := range results {
		report.Summaries = append(report.Summaries, res.Summary)
	}
	if len(results) > 0 {
		for reason, n := range results[0].Rejections {
			report.Rejections[reason] = n
		}
	}

	_, products, customers := r.aggregator.Aggregate(txns)
	report.TopProducts = TopProducts(products, reportTopN)
	report.SegmentCounts = SegmentCounts(customers)
	report.MonthlyRevenue = MonthlyRevenueTrend(txns)
	report.TopCountries = CountryRanking(txns, reportTopN)
	report.TopReturnRates = ReturnRates(txns, reportTopN)

	r.logger.Debug("[report] %d products, %d customers, %d months in report",
		len(products), len(customers), len(report.MonthlyRevenue))
	return report
}

// TopProducts ranks products by revenue, then stock code.
func TopProducts(products map[string]*models.ProductPerformance, n int) []*models.ProductPerformance {
	ranked := make([]*models.ProductPerformance, 0, len(products))
	for _, p := range products {
		ranked = append(ranked, p)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TotalRevenue != ranked[j].TotalRevenue {
			return ranked[i].TotalRevenue > ranked[j].TotalRevenue
		}
		return ranked[i].StockCode < ranked[j].StockCode
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func SegmentCounts(customers map[string]*models.CustomerAnalysis) map[models.Segment]int {
	counts := make(map[models.Segment]int)
	for _, c := range customers {
		counts[c.Segment]++
	}
	return counts
}

// MonthlyRevenueTrend sums non-return revenue per calendar month, oldest first.
func MonthlyRevenueTrend(txns []*models.Transaction) []models.MonthlyRevenue {
	type acc struct {
		row       models.MonthlyRevenue
		customers map[string]struct{}
	}
	byMonth := make(map[int]*acc)
	for _, t := range txns {
		if t.IsReturn {
			continue
		}
		key := t.Year*100 + t.Month
		a, ok := byMonth[key]
		if !ok {
			a = &acc{row: models.MonthlyRevenue{Year: t.Year, Month: t.Month}, customers: make(map[string]struct{})}
			byMonth[key] = a
		}
		a.row.Revenue += t.TotalAmount
		a.row.TransactionCount++
		if t.CustomerID != models.UnknownCustomer {
			a.customers[t.CustomerID] = struct{}{}
		}
	}

	keys := make([]int, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	trend := make([]models.MonthlyRevenue, 0, len(keys))
	for _, k := range keys {
		a := byMonth[k]
		a.row.Revenue = round2(a.row.Revenue)
		a.row.UniqueCustomers = len(a.customers)
		trend = append(trend, a.row)
	}
	return trend
}

// CountryRanking ranks countries by non-return revenue.
func CountryRanking(txns []*models.Transaction, n int) []models.CountryRevenue {
	type acc struct {
		row       models.CountryRevenue
		customers map[string]struct{}
	}
	byCountry := make(map[string]*acc)
	for _, t := range txns {
		if t.IsReturn {
			continue
		}
		a, ok := byCountry[t.Country]
		if !ok {
			a = &acc{row: models.CountryRevenue{Country: t.Country}, customers: make(map[string]struct{})}
			byCountry[t.Country] = a
		}
		a.row.Revenue += t.TotalAmount
		a.row.TransactionCount++
		if t.CustomerID != models.UnknownCustomer {
			a.customers[t.CustomerID] = struct{}{}
		}
	}

	ranked := make([]models.CountryRevenue, 0, len(byCountry))
	for _, a := range byCountry {
		a.row.Revenue = round2(a.row.Revenue)
		a.row.UniqueCustomers = len(a.customers)
		ranked = append(ranked, a.row)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Revenue != ranked[j].Revenue {
			return ranked[i].Revenue > ranked[j].Revenue
		}
		return ranked[i].Country < ranked[j].Country
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// ReturnRates returns the products with the highest share of return rows.
// Products without returns are omitted.
func ReturnRates(txns []*models.Transaction, n int) []models.ProductReturnRate {
	byCode := make(map[string]*models.ProductReturnRate)
	for _, t := range txns {
		r, ok := byCode[t.StockCode]
		if !ok {
			r = &models.ProductReturnRate{StockCode: t.StockCode}
			byCode[t.StockCode] = r
		}
		r.RowCount++
		if t.IsReturn {
			r.ReturnCount++
		}
	}

	rates := make([]models.ProductReturnRate, 0)
	for _, r := range byCode {
		if r.ReturnCount == 0 {
			continue
		}
		r.Rate = round2(100 * float64(r.ReturnCount) / float64(r.RowCount))
		rates = append(rates, *r)
	}
	sort.Slice(rates, func(i, j int) bool {
		if rates[i].Rate != rates[j].Rate {
			return rates[i].Rate > rates[j].Rate
		}
		return rates[i].StockCode < rates[j].StockCode
	})
	if len(rates) > n {
		rates = rates[:n]
	}
	return rates
}

// Print writes the report to stdout.
func (r *Reporter) Print(rep *models.RunReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  RETAIL PIPELINE REPORT\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Runs\033[0m\n")
	fmt.Printf("  %s\n", thin)
	for _, s := range rep.Summaries {
		fmt.Printf("  %-12s txns \033[1m%6d\033[0m  revenue \033[1;32m%12.2f\033[0m  returns %4d  quality %6.2f\n",
			s.Window, s.TotalTransactions, s.TotalRevenue, s.ReturnCount, s.DataQualityScore)
	}
	if len(rep.Rejections) > 0 {
		reasons := make([]string, 0, len(rep.Rejections))
		for reason := range rep.Rejections {
			reasons = append(reasons, string(reason))
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Printf("  rejected %-22s %d\n", reason, rep.Rejections[models.RejectionReason(reason)])
		}
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Top Products by Revenue\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(rep.TopProducts) == 0 {
		fmt.Printf("  No product data\n")
	}
	for i, p := range rep.TopProducts {
		fmt.Printf("  \033[1m%d.\033[0m %-10s %-28s \033[1;32m%10.2f\033[0m\n",
			i+1, p.StockCode, truncate(p.Description, 28), p.TotalRevenue)
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Customer Segments\033[0m\n")
	fmt.Printf("  %s\n", thin)
	for _, seg := range []models.Segment{models.SegmentVIP, models.SegmentHigh, models.SegmentMedium, models.SegmentLow} {
		cnt := rep.SegmentCounts[seg]
		fmt.Printf("  %-14s %s (%d)\n", seg, strings.Repeat("█", min(cnt, 40)), cnt)
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Monthly Revenue\033[0m\n")
	fmt.Printf("  %s\n", thin)
	for _, m := range rep.MonthlyRevenue {
		fmt.Printf("  %04d-%02d  %12.2f  (%d txns, %d customers)\n",
			m.Year, m.Month, m.Revenue, m.TransactionCount, m.UniqueCustomers)
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Top Countries\033[0m\n")
	fmt.Printf("  %s\n", thin)
	for _, c := range rep.TopCountries {
		fmt.Printf("  %-28s %12.2f\n", truncate(c.Country, 28), c.Revenue)
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Highest Return Rates\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(rep.TopReturnRates) == 0 {
		fmt.Printf("  No returns\n")
	}
	for _, rr := range rep.TopReturnRates {
		fmt.Printf("  %-10s %6.2f%% (%d of %d rows)\n", rr.StockCode, rr.Rate, rr.ReturnCount, rr.RowCount)
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
