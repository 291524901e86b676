package pipeline

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-products/models"
)

// MultiWriter fans every batch out to several writers in order. Write stops
// at the first failure; Close and Validate report every failure.
type MultiWriter struct {
	writers []OutputWriter
}

// NewMultiWriter returns a writer over ws.
func NewMultiWriter(ws ...OutputWriter) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// NewDualWriter writes CSV and JSON lines side by side.
func NewDualWriter(csvFilename, jsonFilename string) (*MultiWriter, error) {
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, err
	}
	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		_ = csvWriter.Close()
		return nil, err
	}
	return NewMultiWriter(csvWriter, jsonWriter), nil
}

func (mw *MultiWriter) Write(products []*models.Product) error {
	for i, w := range mw.writers {
		if err := w.Write(products); err != nil {
			return fmt.Errorf("writer %d: %w", i, err)
		}
	}
	return nil
}

func (mw *MultiWriter) Close() error {
	return mw.each(OutputWriter.Close)
}

func (mw *MultiWriter) Validate() error {
	return mw.each(OutputWriter.Validate)
}

func (mw *MultiWriter) each(fn func(OutputWriter) error) error {
	var errs []error
	for i, w := range mw.writers {
		if err := fn(w); err != nil {
			errs = append(errs, fmt.Errorf("writer %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
