package models

import "time"

// Segment is a customer spend tier.
type Segment string

const (
	SegmentVIP    Segment = "VIP"
	SegmentHigh   Segment = "High Value"
	SegmentMedium Segment = "Medium Value"
	SegmentLow    Segment = "Low Value"
)

// BatchSummary is the append-only, one-row-per-run global summary.
type BatchSummary struct {
	RunID  string
	RunKey string
	Window string

	TotalTransactions int
	UniqueCustomers   int
	UniqueProducts    int
	UniqueCountries   int
	TotalRevenue      float64
	ReturnCount       int
	DataQualityScore  float64

	RecordsSeen         int
	RecordsRejected     int
	EarliestTransaction time.Time
	LatestTransaction   time.Time
	CreatedAt           time.Time
}

// ProductPerformance is keyed by StockCode.
type ProductPerformance struct {
	StockCode         string
	Description       string
	TotalQuantitySold int
	TotalRevenue      float64
	TransactionCount  int
	UniqueCustomers   int
	AvgUnitPrice      float64
}

// CustomerAnalysis is keyed by CustomerID; the UNKNOWN sentinel never appears.
type CustomerAnalysis struct {
	CustomerID           string
	TotalTransactions    int
	TotalSpent           float64
	AvgTransactionValue  float64
	FirstPurchaseDate    time.Time
	LastPurchaseDate     time.Time
	FavoriteProduct      string
	PrimaryCountry       string
	CustomerLifetimeDays int
	Segment              Segment
}

// WriteOpKind identifies the materialization a WriteOp performs.
type WriteOpKind int

const (
	OpUpsertProduct WriteOpKind = iota + 1
	OpUpsertCustomer
	OpInsertSummary
)

func (k WriteOpKind) String() string {
	switch k {
	case OpUpsertProduct:
		return "upsert_product"
	case OpUpsertCustomer:
		return "upsert_customer"
	case OpInsertSummary:
		return "insert_summary"
	default:
		return "unknown"
	}
}

// WriteOp is one idempotent write against the external store.
// Exactly one of Product, Customer or Summary is set, matching Kind.
type WriteOp struct {
	Kind     WriteOpKind
	Product  *ProductPerformance
	Customer *CustomerAnalysis
	Summary  *BatchSummary
}

// Key returns the natural key of the row the op writes.
func (op WriteOp) Key() string {
	switch op.Kind {
	case OpUpsertProduct:
		return op.Product.StockCode
	case OpUpsertCustomer:
		return op.Customer.CustomerID
	case OpInsertSummary:
		return op.Summary.RunKey
	default:
		return ""
	}
}

// Window is a bounded, disjoint slice of canonical transactions processed as one run.
type Window struct {
	Key          string
	Transactions []*Transaction
}

// RunResult is everything a single pipeline run produced.
type RunResult struct {
	Summary    *BatchSummary
	Products   map[string]*ProductPerformance
	Customers  map[string]*CustomerAnalysis
	Plan       []WriteOp
	Rejections map[RejectionReason]int
}
