package services

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"retail-pipeline/models"
)

// dateLayouts are tried in order when parsing invoice dates.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
}

var requiredFields = []string{
	models.FieldInvoiceNo,
	models.FieldStockCode,
	models.FieldQuantity,
	models.FieldInvoiceDate,
	models.FieldUnitPrice,
	models.FieldCountry,
}

// Normalizer validates raw records and coerces them into canonical Transactions.
// It is pure: it never logs and never mutates its input.
type Normalizer struct{}

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize checks r in a fixed order and stops at the first failure.
func (n *Normalizer) Normalize(r models.RawRecord) models.NormalizeResult {
	for _, f := range requiredFields {
		v, ok := r.Get(f)
		if f != models.FieldCountry {
			v = strings.TrimSpace(v)
		}
		if !ok || v == "" {
			return reject(models.ReasonMissingField)
		}
	}

	qty, ok := parseQuantity(r[models.FieldQuantity])
	if !ok {
		return reject(models.ReasonUnparseableQuantity)
	}

	price, ok := parseUnitPrice(r[models.FieldUnitPrice])
	if !ok {
		return reject(models.ReasonInvalidUnitPrice)
	}

	date, ok := parseInvoiceDate(r[models.FieldInvoiceDate])
	if !ok {
		return reject(models.ReasonUnparseableDate)
	}

	country := normaliseText(r[models.FieldCountry])
	if country == "" {
		return reject(models.ReasonMissingCountry)
	}

	customer := strings.TrimSpace(r[models.FieldCustomerID])
	if customer == "" {
		customer = models.UnknownCustomer
	}

	return models.NormalizeResult{Txn: &models.Transaction{
		InvoiceNo:   strings.TrimSpace(r[models.FieldInvoiceNo]),
		StockCode:   strings.TrimSpace(r[models.FieldStockCode]),
		Description: normaliseText(r[models.FieldDescription]),
		Quantity:    qty,
		InvoiceDate: date,
		UnitPrice:   price,
		CustomerID:  customer,
		Country:     country,
		TotalAmount: round2(float64(qty) * price),
		IsReturn:    qty < 0,
		Year:        date.Year(),
		Month:       int(date.Month()),
	}}
}

// Batch is the outcome of normalizing a whole input sequence.
type Batch struct {
	Transactions []*models.Transaction
	Seen         int
	Rejected     int
	Rejections   map[models.RejectionReason]int
}

// NormalizeBatch normalizes every record, keeping accepted ones in input order.
func (n *Normalizer) NormalizeBatch(raw []models.RawRecord) *Batch {
	b := &Batch{
		Transactions: make([]*models.Transaction, 0, len(raw)),
		Seen:         len(raw),
		Rejections:   make(map[models.RejectionReason]int),
	}
	for _, r := range raw {
		res := n.Normalize(r)
		if res.OK() {
			b.Transactions = append(b.Transactions, res.Txn)
			continue
		}
		b.Rejected++
		b.Rejections[res.Reason]++
	}
	return b
}

func reject(reason models.RejectionReason) models.NormalizeResult {
	return models.NormalizeResult{Reason: reason}
}

// parseQuantity accepts non-zero integers and integral decimals such as
// "3.0" within the INTEGER column range.
func parseQuantity(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if q, err := strconv.ParseInt(s, 10, 32); err == nil {
		return int(q), q != 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f == 0 || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

func parseUnitPrice(raw string) (float64, bool) {
	p, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return 0, false
	}
	return p, true
}

func parseInvoiceDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
