package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"retail-pipeline/models"
	"retail-pipeline/utils"
)

// Pipeline drives normalize -> aggregate -> score -> plan for one batch.
// It performs no writes; applying the plan is the caller's job.
type Pipeline struct {
	logger     *utils.Logger
	normalizer *Normalizer
	aggregator *Aggregator
	planner    *Planner
	workers    int
}

// runNamespace scopes the name-based run IDs of batch summaries.
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("retail-pipeline/batch-summary"))

// NewPipeline creates a Pipeline that processes up to workers windows in parallel.
func NewPipeline(logger *utils.Logger, workers int) *Pipeline {
	return &Pipeline{
		logger:     logger,
		normalizer: NewNormalizer(),
		aggregator: NewAggregator(),
		planner:    NewPlanner(),
		workers:    workers,
	}
}

// RunWindow aggregates a single window and plans its writes. The quality
// score comes from the batch the window was cut from.
//
// The run ID and run key are derived from the window's content, so replaying
// the same input plans identical writes while a different batch under the
// same RUN_KEY gets a summary row of its own. CreatedAt is left to the store.
func (p *Pipeline) RunWindow(runKey string, w models.Window, batch *Batch) *models.RunResult {
	summary, products, customers := p.aggregator.Aggregate(w.Transactions)

	id := uuid.NewSHA1(runNamespace, windowFingerprint(runKey, w, batch))
	summary.RunID = id.String()
	summary.RunKey = runKey + ":" + w.Key + ":" + strings.ReplaceAll(summary.RunID, "-", "")[:16]
	summary.Window = w.Key
	summary.RecordsSeen = batch.Seen
	summary.RecordsRejected = batch.Rejected
	summary.DataQualityScore = QualityScore(batch.Seen, batch.Rejected)

	return &models.RunResult{
		Summary:    summary,
		Products:   products,
		Customers:  customers,
		Plan:       p.planner.Plan(summary, products, customers),
		Rejections: batch.Rejections,
	}
}

// Run normalizes raw and processes every window of the given granularity.
// Windows run on separate workers, each with its own aggregate maps.
// Results are sorted by window key.
func (p *Pipeline) Run(ctx context.Context, runKey string, raw []models.RawRecord, by WindowBy) (*Batch, []*models.RunResult, error) {
	log := p.logger.With("run_key", runKey)
	batch := p.normalizer.NormalizeBatch(raw)
	log.Info("[pipeline] Normalized %d records: %d accepted, %d rejected",
		batch.Seen, len(batch.Transactions), batch.Rejected)
	for reason, n := range batch.Rejections {
		log.Debug("[pipeline] Rejected %d records: %s", n, reason)
	}

	results, err := p.RunWindows(ctx, runKey, Partition(batch.Transactions, by), batch)
	if err != nil {
		return batch, nil, err
	}
	return batch, results, nil
}

// RunWindows processes disjoint windows concurrently. A window key may
// appear only once. Cancelling ctx stops scheduling new windows; nothing
// has been written at this point so an abandoned run has no side effects.
func (p *Pipeline) RunWindows(ctx context.Context, runKey string, windows []models.Window, batch *Batch) ([]*models.RunResult, error) {
	scheduled := make(map[string]struct{}, len(windows))
	for _, w := range windows {
		if _, dup := scheduled[w.Key]; dup {
			return nil, fmt.Errorf("pipeline: window %q scheduled twice", w.Key)
		}
		scheduled[w.Key] = struct{}{}
	}

	pool := utils.NewWorkerPool(p.workers)
	var mu sync.Mutex
	results := make([]*models.RunResult, 0, len(windows))

	for _, w := range windows {
		w := w
		err := pool.Submit(ctx, func() {
			res := p.RunWindow(runKey, w, batch)
			p.logger.Info("[pipeline] Window %s: %d transactions, %d products, %d customers, revenue %.2f",
				w.Key, res.Summary.TotalTransactions, len(res.Products), len(res.Customers), res.Summary.TotalRevenue)

			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		})
		if err != nil {
			pool.Wait()
			return nil, fmt.Errorf("pipeline: run abandoned: %w", err)
		}
	}
	pool.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: run abandoned: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Summary.Window < results[j].Summary.Window
	})
	return results, nil
}

// windowFingerprint serializes everything a window's planned writes depend on.
func windowFingerprint(runKey string, w models.Window, batch *Batch) []byte {
	var b strings.Builder
	b.WriteString(runKey)
	b.WriteByte(0)
	b.WriteString(w.Key)
	b.WriteByte(0)
	b.WriteString(strconv.Itoa(batch.Seen))
	b.WriteByte(0)
	b.WriteString(strconv.Itoa(batch.Rejected))
	for _, t := range w.Transactions {
		b.WriteByte('\n')
		for _, f := range []string{
			t.InvoiceNo, t.StockCode, t.Description, strconv.Itoa(t.Quantity),
			t.InvoiceDate.UTC().Format(time.RFC3339Nano),
			strconv.FormatFloat(t.UnitPrice, 'g', -1, 64),
			t.CustomerID, t.Country,
		} {
			b.WriteString(f)
			b.WriteByte(0)
		}
	}
	return []byte(b.String())
}
