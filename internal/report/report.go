// Package report writes the text records of a finished run: rounds, load
// histories and ward visits.
package report

import (
	"aid-delivery-sim/internal/domain"
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
)

// Files names the three reports of one run.
func Files(rec domain.RunRecords) (rounds, parcels, wards string) {
	suffix := fmt.Sprintf("_%s_%d.txt", rec.Summary.RunID, rec.Summary.Seed)
	return "RoundRecord" + suffix, "ParcelRecord" + suffix, "WardsVisited" + suffix
}

// WriteAll writes the three reports of rec into dir, creating it if needed,
// and returns the paths written. header is the parameter summary line.
func WriteAll(dir, header string, rec domain.RunRecords) (paths []string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("write reports: %w", err)
	}

	rounds, parcels, wards := Files(rec)
	writers := []struct {
		name  string
		write func(io.Writer) error
	}{
		{rounds, func(w io.Writer) error { return WriteRounds(w, header, rec.Rounds) }},
		{parcels, func(w io.Writer) error { return WriteParcels(w, header, rec.Loads) }},
		{wards, func(w io.Writer) error { return WriteWards(w, header, rec.Visits) }},
	}

	for _, wr := range writers {
		path := filepath.Join(dir, wr.name)
		if werr := writeFile(path, wr.write); werr != nil {
			err = multierr.Append(err, werr)
			continue
		}
		paths = append(paths, path)
	}
	return paths, err
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return bw.Flush()
}

func WriteRounds(w io.Writer, header string, rounds []domain.RoundRecord) error {
	if _, err := fmt.Fprintf(w, "ROUND RECORD: %s\nDriver,Duration,Distance,Finish time\n", header); err != nil {
		return err
	}
	for _, r := range rounds {
		if _, err := fmt.Fprintln(w, r.String()); err != nil {
			return err
		}
	}
	return nil
}

// WriteParcels lists each load with its history, newest event first.
func WriteParcels(w io.Writer, header string, loads []*domain.AidLoad) error {
	if _, err := fmt.Fprintf(w, "PARCEL RECORD: %s\nLoad ID,Ward,Status,History (newest first)\n", header); err != nil {
		return err
	}
	for _, l := range loads {
		events := make([]string, 0, len(l.History))
		for i := len(l.History) - 1; i >= 0; i-- {
			events = append(events, l.History[i].String())
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", l.ID, l.Ward, l.Status, strings.Join(events, " ")); err != nil {
			return err
		}
	}
	return nil
}

func WriteWards(w io.Writer, header string, visits []domain.WardVisit) error {
	if _, err := fmt.Fprintf(w, "WARDS VISITED: %s\nWard,Num. Visits\n", header); err != nil {
		return err
	}
	for _, v := range visits {
		if _, err := fmt.Fprintf(w, "%s\t%d\n", v.Ward, v.Visits); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON exports runs in the form the database tool imports.
func WriteJSON(w io.Writer, recs []domain.RunRecords) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(recs); err != nil {
		return fmt.Errorf("write json records: %w", err)
	}
	return nil
}
