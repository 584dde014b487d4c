// Package report writes per-index statistics as CSV.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/gocarina/gocsv"

	"github.com/forest-guardian/salinity-indices/internal/indices"
)

type Row struct {
	Scene      string  `csv:"scene"`
	Index      string  `csv:"index"`
	Formula    string  `csv:"formula"`
	Pixels     int     `csv:"pixels"`
	Valid      int     `csv:"valid"`
	Min        float64 `csv:"min"`
	Max        float64 `csv:"max"`
	Mean       float64 `csv:"mean"`
	StdDev     float64 `csv:"std_dev"`
	P02        float64 `csv:"p02"`
	P98        float64 `csv:"p98"`
	DisplayMin float64 `csv:"display_min"`
	DisplayMax float64 `csv:"display_max"`
}

// Rows summarises every result of one scene, in order.
func Rows(scene string, results []indices.IndexResult) []Row {
	rows := make([]Row, 0, len(results))
	for _, res := range results {
		s := indices.Summarize(res)
		rows = append(rows, Row{
			Scene:      scene,
			Index:      res.Name,
			Formula:    res.Formula,
			Pixels:     s.Pixels,
			Valid:      s.Valid,
			Min:        s.Min,
			Max:        s.Max,
			Mean:       s.Mean,
			StdDev:     s.StdDev,
			P02:        s.P02,
			P98:        s.P98,
			DisplayMin: res.Display.Min,
			DisplayMax: res.Display.Max,
		})
	}
	return rows
}

// Write writes rows with a header line.
func Write(w io.Writer, rows []Row) error {
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// appendMu serialises appends so concurrent scene runs write one header.
var appendMu sync.Mutex

// AppendFile appends rows to the CSV at path, writing the header only when
// the file is new or empty.
func AppendFile(path string, rows []Row) error {
	appendMu.Lock()
	defer appendMu.Unlock()

	fileExists := false
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		fileExists = true
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("report: opening %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if fileExists {
		err = gocsv.MarshalCSVWithoutHeaders(&rows, writer)
	} else {
		err = gocsv.MarshalCSV(&rows, writer)
	}
	if err != nil {
		return fmt.Errorf("report: writing %s: %w", path, err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("report: writing %s: %w", path, err)
	}
	return file.Close()
}

// ReadFile loads every row of a report.
func ReadFile(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	defer file.Close()
	var rows []Row
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("report: reading %s: %w", path, err)
	}
	return rows, nil
}
