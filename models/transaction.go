package models

import "time"

// UnknownCustomer is the sentinel assigned to records without a customer id.
const UnknownCustomer = "UNKNOWN"

// Raw record keys, as produced by the extract step.
const (
	FieldInvoiceNo   = "invoice_no"
	FieldStockCode   = "stock_code"
	FieldDescription = "description"
	FieldQuantity    = "quantity"
	FieldInvoiceDate = "invoice_date"
	FieldUnitPrice   = "unit_price"
	FieldCustomerID  = "customer_id"
	FieldCountry     = "country"
)

// RawRecord holds one untyped line item exactly as extracted.
// An absent key means the source cell was null.
type RawRecord map[string]string

// Get returns the value for key and whether it was present.
func (r RawRecord) Get(key string) (string, bool) {
	v, ok := r[key]
	return v, ok
}

// Transaction is the validated, typed form of a RawRecord with derived fields.
type Transaction struct {
	InvoiceNo   string
	StockCode   string
	Description string
	Quantity    int
	InvoiceDate time.Time
	UnitPrice   float64
	CustomerID  string
	Country     string

	TotalAmount float64
	IsReturn    bool
	Year        int
	Month       int
}

// RejectionReason explains why a RawRecord could not be normalized.
type RejectionReason string

const (
	ReasonNone                RejectionReason = ""
	ReasonMissingField        RejectionReason = "missing_field"
	ReasonUnparseableQuantity RejectionReason = "unparseable_quantity"
	ReasonInvalidUnitPrice    RejectionReason = "invalid_unit_price"
	ReasonUnparseableDate     RejectionReason = "unparseable_date"
	ReasonMissingCountry      RejectionReason = "missing_country"
)

// NormalizeResult is either an accepted Transaction or a rejection reason.
type NormalizeResult struct {
	Txn    *Transaction
	Reason RejectionReason
}

// OK reports whether the record was accepted.
func (r NormalizeResult) OK() bool {
	return r.Txn != nil && r.Reason == ReasonNone
}
