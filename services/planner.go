package services

import (
	"sort"

	"retail-pipeline/models"
)

// Planner turns an aggregate snapshot into an ordered list of idempotent writes.
type Planner struct{}

// NewPlanner creates a Planner.
func NewPlanner() *Planner {
	return &Planner{}
}

// Plan emits product upserts (by stock code), then customer upserts (by
// customer id), then the summary insert. The summary is always last so a
// reader that sees it can trust the detail tables for the same run.
func (p *Planner) Plan(
	summary *models.BatchSummary,
	products map[string]*models.ProductPerformance,
	customers map[string]*models.CustomerAnalysis,
) []models.WriteOp {
	ops := make([]models.WriteOp, 0, len(products)+len(customers)+1)

	for _, code := range sortedKeys(products) {
		ops = append(ops, models.WriteOp{Kind: models.OpUpsertProduct, Product: products[code]})
	}
	for _, id := range sortedKeys(customers) {
		if id == models.UnknownCustomer {
			continue
		}
		ops = append(ops, models.WriteOp{Kind: models.OpUpsertCustomer, Customer: customers[id]})
	}
	if summary != nil {
		ops = append(ops, models.WriteOp{Kind: models.OpInsertSummary, Summary: summary})
	}
	return ops
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
