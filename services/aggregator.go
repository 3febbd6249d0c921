package services

import (
	"retail-pipeline/models"
)

// Aggregator folds one window of canonical transactions into the three
// derived views. It keeps no state between calls; every call must receive
// the entire window it represents.
type Aggregator struct{}

// NewAggregator creates an Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

type productAcc struct {
	perf      *models.ProductPerformance
	revenue   float64
	priceSum  float64
	customers map[string]struct{}
}

type customerAcc struct {
	analysis *models.CustomerAnalysis
	spent    float64

	qtyByProduct map[string]int
	productOrder []string

	countryCount map[string]int
	countryOrder []string
}

// Aggregate performs a single pass over txns. Empty input yields a
// zero-valued summary and empty maps.
func (a *Aggregator) Aggregate(txns []*models.Transaction) (*models.BatchSummary, map[string]*models.ProductPerformance, map[string]*models.CustomerAnalysis) {
	summary := &models.BatchSummary{}
	productAccs := make(map[string]*productAcc)
	customerAccs := make(map[string]*customerAcc)
	customers := make(map[string]struct{})
	countries := make(map[string]struct{})

	var revenue float64
	for _, t := range txns {
		summary.TotalTransactions++
		if t.IsReturn {
			summary.ReturnCount++
		} else {
			revenue += t.TotalAmount
		}
		if summary.EarliestTransaction.IsZero() || t.InvoiceDate.Before(summary.EarliestTransaction) {
			summary.EarliestTransaction = t.InvoiceDate
		}
		if t.InvoiceDate.After(summary.LatestTransaction) {
			summary.LatestTransaction = t.InvoiceDate
		}
		if t.CustomerID != models.UnknownCustomer {
			customers[t.CustomerID] = struct{}{}
		}
		countries[t.Country] = struct{}{}

		a.addProduct(productAccs, t)
		if t.CustomerID != models.UnknownCustomer {
			a.addCustomer(customerAccs, t)
		}
	}

	summary.TotalRevenue = round2(revenue)
	summary.UniqueCustomers = len(customers)
	summary.UniqueProducts = len(productAccs)
	summary.UniqueCountries = len(countries)

	products := make(map[string]*models.ProductPerformance, len(productAccs))
	for code, acc := range productAccs {
		p := acc.perf
		p.TotalRevenue = round2(acc.revenue)
		p.UniqueCustomers = len(acc.customers)
		p.AvgUnitPrice = round2(acc.priceSum / float64(p.TransactionCount))
		products[code] = p
	}

	analyses := make(map[string]*models.CustomerAnalysis, len(customerAccs))
	for id, acc := range customerAccs {
		c := acc.analysis
		c.TotalSpent = round2(acc.spent)
		c.AvgTransactionValue = round2(acc.spent / float64(c.TotalTransactions))
		c.FavoriteProduct = firstMax(acc.productOrder, acc.qtyByProduct)
		c.PrimaryCountry = firstMax(acc.countryOrder, acc.countryCount)
		c.CustomerLifetimeDays = int(c.LastPurchaseDate.Sub(c.FirstPurchaseDate).Hours() / 24)
		c.Segment = ClassifySegment(c.TotalSpent)
		analyses[id] = c
	}

	return summary, products, analyses
}

func (a *Aggregator) addProduct(accs map[string]*productAcc, t *models.Transaction) {
	acc, ok := accs[t.StockCode]
	if !ok {
		acc = &productAcc{
			perf:      &models.ProductPerformance{StockCode: t.StockCode},
			customers: make(map[string]struct{}),
		}
		accs[t.StockCode] = acc
	}
	p := acc.perf
	if p.Description == "" {
		p.Description = t.Description
	}
	p.TransactionCount++
	acc.priceSum += t.UnitPrice
	if !t.IsReturn {
		p.TotalQuantitySold += t.Quantity
		acc.revenue += t.TotalAmount
	}
	if t.CustomerID != models.UnknownCustomer {
		acc.customers[t.CustomerID] = struct{}{}
	}
}

func (a *Aggregator) addCustomer(accs map[string]*customerAcc, t *models.Transaction) {
	acc, ok := accs[t.CustomerID]
	if !ok {
		acc = &customerAcc{
			analysis: &models.CustomerAnalysis{
				CustomerID:        t.CustomerID,
				FirstPurchaseDate: t.InvoiceDate,
				LastPurchaseDate:  t.InvoiceDate,
			},
			qtyByProduct: make(map[string]int),
			countryCount: make(map[string]int),
		}
		accs[t.CustomerID] = acc
	}
	c := acc.analysis
	c.TotalTransactions++
	acc.spent += t.TotalAmount
	if t.InvoiceDate.Before(c.FirstPurchaseDate) {
		c.FirstPurchaseDate = t.InvoiceDate
	}
	if t.InvoiceDate.After(c.LastPurchaseDate) {
		c.LastPurchaseDate = t.InvoiceDate
	}

	if _, seen := acc.qtyByProduct[t.StockCode]; !seen {
		acc.productOrder = append(acc.productOrder, t.StockCode)
	}
	acc.qtyByProduct[t.StockCode] += t.Quantity

	if _, seen := acc.countryCount[t.Country]; !seen {
		acc.countryOrder = append(acc.countryOrder, t.Country)
	}
	acc.countryCount[t.Country]++
}

// firstMax returns the key with the highest count; ties go to the key that
// appears first in order.
func firstMax(order []string, counts map[string]int) string {
	best := ""
	for i, k := range order {
		if i == 0 || counts[k] > counts[best] {
			best = k
		}
	}
	return best
}
