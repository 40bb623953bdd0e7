package export

import (
	"encoding/csv"
	"io"

	"github.com/kentandrian/vertexai-demos/internal/claims"
	"github.com/rotisserie/eris"
)

// BOM is the UTF-8 byte order mark, written first so Excel on Windows detects the encoding.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter wraps csv.Writer for exporting enriched items.
type CSVWriter struct {
	out io.Writer
	csv *csv.Writer
}

// NewCSVWriter creates a CSVWriter that writes to w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{out: w, csv: csv.NewWriter(w)}
}

// WriteBOM writes the byte order mark. Call it before anything else.
func (w *CSVWriter) WriteBOM() error {
	_, err := w.out.Write(BOM)
	return err
}

// WriteHeader writes the column header row.
func (w *CSVWriter) WriteHeader() error {
	return w.csv.Write(Columns)
}

// WriteItems writes one row per item.
func (w *CSVWriter) WriteItems(items []claims.EnrichedItem) error {
	for i := range items {
		if err := w.csv.Write(Row(items[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *CSVWriter) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *CSVWriter) Error() error {
	return w.csv.Error()
}

// WriteCSV writes a complete CSV document (BOM, header, rows) for items.
func WriteCSV(out io.Writer, items []claims.EnrichedItem) error {
	w := NewCSVWriter(out)
	if err := w.WriteBOM(); err != nil {
		return eris.Wrap(err, "WriteCSV: write BOM")
	}
	if err := w.WriteHeader(); err != nil {
		return eris.Wrap(err, "WriteCSV: write header")
	}
	if err := w.WriteItems(items); err != nil {
		return eris.Wrap(err, "WriteCSV: write rows")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "WriteCSV: flush")
	}
	return nil
}
