package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/aluiziolira/go-scrape-products/models"
)

// ErrEmptyOutput is returned by Validate when no product was written.
var ErrEmptyOutput = errors.New("pipeline: no products written")

// column is one CSV field of a product.
type column struct {
	name  string
	value func(*models.Product) string
}

// csvColumns fixes the CSV layout. Amounts are minor units and images are
// space separated.
var csvColumns = []column{
	{"shops_item_id", func(p *models.Product) string { return p.ShopsItemID }},
	{"shop_id", func(p *models.Product) string { return p.ShopID }},
	{"shop_name", func(p *models.Product) string { return p.ShopName }},
	{"title", func(p *models.Product) string { return p.Title.Text }},
	{"title_language", func(p *models.Product) string { return p.Title.Language }},
	{"description", func(p *models.Product) string { return p.Description.Text }},
	{"description_language", func(p *models.Product) string { return p.Description.Language }},
	{"currency", func(p *models.Product) string { return p.Price.Currency }},
	{"amount", func(p *models.Product) string { return strconv.FormatInt(p.Price.Amount, 10) }},
	{"state", func(p *models.Product) string { return string(p.State) }},
	{"url", func(p *models.Product) string { return p.URL }},
	{"images", func(p *models.Product) string { return strings.Join(p.Images, " ") }},
}

// outputFile is the file handle and record count shared by the writers.
type outputFile struct {
	kind    string
	file    *os.File
	mu      sync.Mutex
	records int
}

func createOutput(kind, filename string) (*outputFile, error) {
	dir := filepath.Dir(filename)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create %s file: %w", kind, err)
	}
	return &outputFile{kind: kind, file: f}, nil
}

// Validate fails when nothing besides a header was written.
func (o *outputFile) Validate() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.records == 0 {
		return fmt.Errorf("%s %s: %w", o.kind, o.file.Name(), ErrEmptyOutput)
	}
	return nil
}

// CSVWriter writes one CSV row per product after a header row.
type CSVWriter struct {
	*outputFile
	writer *csv.Writer
}

// NewCSVWriter creates filename, including missing directories, and writes
// the header.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	out, err := createOutput("csv", filename)
	if err != nil {
		return nil, err
	}

	cw := &CSVWriter{outputFile: out, writer: csv.NewWriter(out.file)}
	header := make([]string, len(csvColumns))
	for i, c := range csvColumns {
		header[i] = c.name
	}
	if err := cw.writeRows([][]string{header}); err != nil {
		out.file.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	return cw, nil
}

func (cw *CSVWriter) writeRows(rows [][]string) error {
	if err := cw.writer.WriteAll(rows); err != nil {
		return err
	}
	return cw.writer.Error()
}

// Write appends products and flushes.
func (cw *CSVWriter) Write(products []*models.Product) error {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		row := make([]string, len(csvColumns))
		for i, c := range csvColumns {
			row[i] = c.value(p)
		}
		rows = append(rows, row)
	}

	cw.mu.Lock()
	defer cw.mu.Unlock()
	if err := cw.writeRows(rows); err != nil {
		return fmt.Errorf("write csv records: %w", err)
	}
	cw.records += len(rows)
	return nil
}

// Close flushes and closes the file.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		cw.file.Close()
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// JSONWriter writes products as JSON lines.
type JSONWriter struct {
	*outputFile
	buf     *bufio.Writer
	encoder *json.Encoder
}

// NewJSONWriter creates filename, including missing directories.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	out, err := createOutput("json", filename)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(out.file)
	return &JSONWriter{outputFile: out, buf: buf, encoder: json.NewEncoder(buf)}, nil
}

// Write appends one line per product and flushes.
func (jw *JSONWriter) Write(products []*models.Product) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, p := range products {
		if err := jw.encoder.Encode(p); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
		jw.records++
	}
	if err := jw.buf.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	if err := jw.buf.Flush(); err != nil {
		jw.file.Close()
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}
