// Package report exports ledger records as CSV and JSON files.
package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/ledger"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"

	fileLayout = "20060102_150405"
	dateLayout = "2006-01-02 15:04:05"
)

var ErrUnknownFormat = errors.New("unknown report format")

var header = []string{"job_id", "title", "company", "location", "status", "date", "reason", "url"}

// now is replaced in tests.
var now = time.Now

// Export writes records into dir as applications_<timestamp>.<format> for
// every requested format and returns the written paths in format order.
func Export(ctx context.Context, records []ledger.Record, dir string, formats []string) ([]string, error) {
	formats = slices.Compact(slices.Clone(formats))
	for _, f := range formats {
		if f != FormatCSV && f != FormatJSON {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
		}
	}
	if len(formats) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	base := filepath.Join(dir, "applications_"+now().Format(fileLayout))
	paths := make([]string, len(formats))

	g, ctx := errgroup.WithContext(ctx)
	for i, format := range formats {
		paths[i] = base + "." + format
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			switch format {
			case FormatCSV:
				return writeFile(paths[i], func(f *os.File) error { return writeCSV(f, records) })
			default:
				return writeFile(paths[i], func(f *os.File) error { return writeJSON(f, records) })
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func writeFile(path string, write func(*os.File) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}

func writeCSV(f *os.File, records []ledger.Record) error {
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.PostingID,
			r.Title,
			r.Company,
			r.Location,
			r.Status,
			r.Timestamp.UTC().Format(dateLayout),
			r.Reason,
			r.URL,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeJSON(f *os.File, records []ledger.Record) error {
	if records == nil {
		records = []ledger.Record{}
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
