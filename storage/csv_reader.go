package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"retail-pipeline/models"
)

// headerAliases maps lower-cased source headers to raw record keys. The
// Online Retail export uses run-together names such as "InvoiceNo".
var headerAliases = map[string]string{
	"invoiceno":    models.FieldInvoiceNo,
	"stockcode":    models.FieldStockCode,
	"description":  models.FieldDescription,
	"quantity":     models.FieldQuantity,
	"invoicedate":  models.FieldInvoiceDate,
	"unitprice":    models.FieldUnitPrice,
	"customerid":   models.FieldCustomerID,
	"country":      models.FieldCountry,
	"invoice_no":   models.FieldInvoiceNo,
	"stock_code":   models.FieldStockCode,
	"invoice_date": models.FieldInvoiceDate,
	"unit_price":   models.FieldUnitPrice,
	"customer_id":  models.FieldCustomerID,
}

var _ RawRecordReader = (*CSVReader)(nil)

// CSVReader extracts raw records from a CSV export with a header row.
type CSVReader struct {
	closer io.Closer
	reader *csv.Reader
}

// OpenCSVReader opens the CSV file at path.
func OpenCSVReader(path string) (*CSVReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open file %q: %w", path, err)
	}
	return &CSVReader{closer: f, reader: newCSVReader(f)}, nil
}

// NewCSVReader reads from r; Close is a no-op.
func NewCSVReader(r io.Reader) *CSVReader {
	return &CSVReader{reader: newCSVReader(r)}
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

// ReadAll returns every data row as a RawRecord. Empty cells are left out
// of the record so they read as absent. Unknown columns are ignored.
func (c *CSVReader) ReadAll() ([]models.RawRecord, error) {
	header, err := c.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = headerAliases[normaliseHeader(h)]
	}

	var records []models.RawRecord
	for {
		row, err := c.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read row %d: %w", len(records)+1, err)
		}

		rec := make(models.RawRecord, len(keys))
		for i, cell := range row {
			if i >= len(keys) || keys[i] == "" || cell == "" {
				continue
			}
			rec[keys[i]] = cell
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close closes the underlying file, if any.
func (c *CSVReader) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

func normaliseHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}
