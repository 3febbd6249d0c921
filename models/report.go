package models

// MonthlyRevenue is one point of the monthly revenue trend.
type MonthlyRevenue struct {
	Year             int
	Month            int
	Revenue          float64
	TransactionCount int
	UniqueCustomers  int
}

// CountryRevenue is one row of the country ranking.
type CountryRevenue struct {
	Country          string
	Revenue          float64
	TransactionCount int
	UniqueCustomers  int
}

// ProductReturnRate is the share of a product's rows that were returns.
type ProductReturnRate struct {
	StockCode   string
	ReturnCount int
	RowCount    int
	Rate        float64
}

// RunReport holds the analytics printed at the end of a pipeline run.
type RunReport struct {
	Summaries      []*BatchSummary
	Rejections     map[RejectionReason]int
	TopProducts    []*ProductPerformance
	SegmentCounts  map[Segment]int
	MonthlyRevenue []MonthlyRevenue
	TopCountries   []CountryRevenue
	TopReturnRates []ProductReturnRate
}
