package storage

import (
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// PageCount reads the page count of a PDF. The parser panics on some malformed
// documents, so panics are reported as errors.
func PageCount(r io.ReaderAt, size int64) (pages int, err error) {
	defer func() {
		if p := recover(); p != nil {
			pages, err = 0, fmt.Errorf("parse pdf: %v", p)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return 0, fmt.Errorf("parse pdf: %w", err)
	}
	return reader.NumPage(), nil
}
