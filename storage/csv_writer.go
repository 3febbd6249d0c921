package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"retail-pipeline/models"
)

var processedHeader = []string{
	"invoice_no", "stock_code", "description", "quantity", "invoice_date", "unit_price",
	"customer_id", "country", "total_amount", "is_return", "year", "month",
}

// CSVWriter exports canonical transactions with their derived columns.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(processedHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteTransactions appends txns to the file.
func (c *CSVWriter) WriteTransactions(txns []*models.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range txns {
		row := []string{
			t.InvoiceNo,
			t.StockCode,
			t.Description,
			strconv.Itoa(t.Quantity),
			t.InvoiceDate.Format(time.RFC3339),
			strconv.FormatFloat(t.UnitPrice, 'f', -1, 64),
			t.CustomerID,
			t.Country,
			strconv.FormatFloat(t.TotalAmount, 'f', 2, 64),
			strconv.FormatBool(t.IsReturn),
			strconv.Itoa(t.Year),
			strconv.Itoa(t.Month),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
