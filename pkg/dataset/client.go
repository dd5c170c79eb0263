package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// ClientColumns is the column order of client.csv.
var ClientColumns = []string{"time", "node", "latency"}

// ClientRow is one poll of the workload service. Failed polls have no node
// and no latency.
type ClientRow struct {
	Time    time.Time
	Node    string
	Latency time.Duration
	Failed  bool
}

// WriteClientRow appends one row in `time, node, latency` form, latency in
// seconds with microsecond precision. Failed rows are written as `time, , `.
func WriteClientRow(w io.Writer, row ClientRow, loc *time.Location) error {
	t := row.Time
	if loc != nil {
		t = t.In(loc)
	}
	var line string
	if row.Failed {
		line = fmt.Sprintf("%s, , \n", t.Format(TimeLayout))
	} else {
		line = fmt.Sprintf("%s, %s, %.6f\n", t.Format(TimeLayout), row.Node, row.Latency.Seconds())
	}
	if _, err := io.WriteString(w, line); err != nil {
		return fmt.Errorf("write client row: %w", err)
	}
	return nil
}

// ReadClientRows parses client.csv. Rows of failed polls are dropped.
func ReadClientRows(r io.Reader) ([]ClientRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	var out []ClientRow
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read client row: %w", err)
		}
		if len(fields) != len(ClientColumns) {
			return nil, fmt.Errorf("read client row: expected %d fields, got %d", len(ClientColumns), len(fields))
		}
		node := strings.TrimSpace(fields[1])
		latency := strings.TrimSpace(fields[2])
		if node == "" || latency == "" {
			continue
		}

		t, err := ParseTime(fields[0])
		if err != nil {
			return nil, err
		}
		secs, err := strconv.ParseFloat(latency, 64)
		if err != nil {
			return nil, fmt.Errorf("parse latency %q: %w", latency, err)
		}
		out = append(out, ClientRow{
			Time:    t,
			Node:    node,
			Latency: time.Duration(math.Round(secs * float64(time.Second))),
		})
	}
}

// ReadClientFile reads client.csv from disk.
func ReadClientFile(path string) ([]ClientRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := ReadClientRows(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
