package telemetry

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
)

// FrameRecord is one benchmark CSV row.
type FrameRecord struct {
	Frame     int     `csv:"frame"`
	Method    string  `csv:"method"`
	Particles int     `csv:"particles"`
	FrameMs   float64 `csv:"frame_ms"`
	EMAMs     float64 `csv:"ema_ms"`
	FPS       float64 `csv:"fps"`
}

// Output appends frame records to a CSV file, writing the header once.
// A nil Output discards everything, so callers need no branching when
// CSV export is disabled.
type Output struct {
	file          *os.File
	headerWritten bool
}

// NewOutput creates (truncating) the CSV file at path. An empty path
// returns a nil Output, which is valid and discards writes.
func NewOutput(path string) (*Output, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return &Output{file: f}, nil
}

// Write appends one record.
func (o *Output) Write(rec FrameRecord) error {
	if o == nil {
		return nil
	}
	records := []FrameRecord{rec}
	if !o.headerWritten {
		if err := gocsv.Marshal(records, o.file); err != nil {
			return fmt.Errorf("writing frame record: %w", err)
		}
		o.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, o.file); err != nil {
		return fmt.Errorf("writing frame record: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (o *Output) Close() error {
	if o == nil || o.file == nil {
		return nil
	}
	return o.file.Close()
}
