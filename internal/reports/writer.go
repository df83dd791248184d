// Package reports implements the observer-hook reporting layer (C13):
// a buffered, optionally-gzipped CSV writer keyed by baseName, a
// sampling policy deciding which steps get written, a per-run UUID
// manifest, and one Report per required output kind.
//
// Grounded on the contagion-simulation reference's DataLogger/CSVLogger
// pair (SetBasePath/Init file-per-kind layout, one append per event),
// generalized from its channel-fed writers to direct synchronous calls
// from trial.Hook, since this engine's scheduler is single-threaded and
// has no concurrent producers to funnel through a channel.
package reports

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Writer is a buffered, delimiter-configurable record writer over a
// single file, transparently gzip-compressed when path ends in ".gz".
// It writes header as the first record at construction, matching the
// teacher pack's CSVLogger.Init pattern of writing headers up front.
type Writer struct {
	f      *os.File
	gz     *gzip.Writer
	csv    *csv.Writer
	closed bool
}

// NewWriter creates (truncating) the file at path and writes header as
// its first record. delimiter is ',' for the comma-separated report
// kinds and ';' for the semicolon-delimited ancestry/mutation-list
// kinds (spec.md §6).
func NewWriter(path string, delimiter rune, header []string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("reports: creating %s: %w", path, err)
	}
	w := &Writer{f: f}
	var dest io.Writer = f
	if strings.HasSuffix(path, ".gz") {
		w.gz = gzip.NewWriter(f)
		dest = w.gz
	}
	w.csv = csv.NewWriter(dest)
	w.csv.Comma = delimiter
	if len(header) > 0 {
		if err := w.csv.Write(header); err != nil {
			w.Close()
			return nil, fmt.Errorf("reports: writing header to %s: %w", path, err)
		}
	}
	return w, nil
}

// WriteRecord appends one record, buffered until the next Flush/Close.
func (w *Writer) WriteRecord(fields []string) error {
	if w.closed {
		return fmt.Errorf("reports: write on closed writer")
	}
	return w.csv.Write(fields)
}

// Flush pushes buffered records to the underlying file (and gzip
// stream, if any) without closing it.
func (w *Writer) Flush() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return err
	}
	if w.gz != nil {
		return w.gz.Flush()
	}
	return nil
}

// Close flushes and closes the writer. Safe to call more than once.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.csv.Flush()
	err := w.csv.Error()
	if w.gz != nil {
		if e := w.gz.Close(); e != nil && err == nil {
			err = e
		}
	}
	if e := w.f.Close(); e != nil && err == nil {
		err = e
	}
	return err
}
