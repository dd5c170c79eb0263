package dataset

// Package dataset reads and writes the CSV files an experiment run leaves
// behind: one file per ensemble member plus client.csv.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Row types printed by the ensemble.
const (
	TypeLead = "EXP-LEAD"
	TypeLoad = "EXP-LOAD"

	// Lead phases in the value column of EXP-LEAD rows.
	PhaseStart = "START"
	PhaseEnd   = "END"
)

// TimeLayout is the timestamp format written by the ensemble and the client.
const TimeLayout = "2006-01-02T15:04:05.000"

// Columns is the column order of ensemble files.
var Columns = []string{"type", "time", "node", "candidate", "value"}

// Record is one row of an ensemble member's log file.
type Record struct {
	Type      string
	Time      string
	Node      string
	Candidate string
	Value     string
}

// Timestamp parses the record's time column.
func (r Record) Timestamp() (time.Time, error) {
	return ParseTime(r.Time)
}

// ParseTime parses a TimeLayout timestamp; any number of fractional digits
// is accepted.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02T15:04:05", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

// ReadRecords parses an ensemble log file. Leading spaces after commas are
// ignored.
func ReadRecords(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	cr.FieldsPerRecord = len(Columns)

	var out []Record
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		out = append(out, Record{
			Type:      fields[0],
			Time:      fields[1],
			Node:      fields[2],
			Candidate: fields[3],
			Value:     fields[4],
		})
	}
}

// WriteRecords writes records in the same ", "-separated form the ensemble
// prints.
func WriteRecords(w io.Writer, records []Record) error {
	for _, r := range records {
		line := strings.Join([]string{r.Type, r.Time, r.Node, r.Candidate, r.Value}, ", ")
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	return nil
}

// ReadRecordsFile reads an ensemble log file from disk.
func ReadRecordsFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// WriteRecordsFile writes records to path, replacing any existing file.
func WriteRecordsFile(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteRecords(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
