package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/ledger"
)

func fixedNow(t *testing.T) {
	t.Helper()
	prev := now
	now = func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }
	t.Cleanup(func() { now = prev })
}

var records = []ledger.Record{
	{
		PostingID: "4001",
		Status:    "applied",
		Reason:    "submitted",
		Timestamp: time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC),
		Title:     "Go Engineer",
		Company:   "Acme, Inc.",
		Location:  "Berlin",
		URL:       "https://www.linkedin.com/jobs/view/4001/",
		Attempted: true,
	},
	{
		PostingID: "4002",
		Status:    "skipped",
		Reason:    "blacklisted-company",
		Timestamp: time.Date(2026, 3, 14, 8, 5, 0, 0, time.UTC),
		Title:     "Backend Developer",
		Company:   "Globex",
	},
}

func TestExport(t *testing.T) {
	fixedNow(t)
	dir := filepath.Join(t.TempDir(), "reports")

	paths, err := Export(context.Background(), records, dir, []string{FormatCSV, FormatJSON})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	want := []string{
		filepath.Join(dir, "applications_20260314_092653.csv"),
		filepath.Join(dir, "applications_20260314_092653.json"),
	}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}

	f, err := os.Open(paths[0])
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("csv rows = %d, want 3", len(rows))
	}
	if !reflect.DeepEqual(rows[0], header) {
		t.Fatalf("header = %v", rows[0])
	}
	wantRow := []string{"4001", "Go Engineer", "Acme, Inc.", "Berlin", "applied", "2026-03-14 08:00:00", "submitted", "https://www.linkedin.com/jobs/view/4001/"}
	if !reflect.DeepEqual(rows[1], wantRow) {
		t.Fatalf("row = %v, want %v", rows[1], wantRow)
	}

	data, err := os.ReadFile(paths[1])
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var decoded []ledger.Record
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(decoded) != 2 || decoded[1].Reason != "blacklisted-company" {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestExportEmptyJSON(t *testing.T) {
	fixedNow(t)
	paths, err := Export(context.Background(), nil, t.TempDir(), []string{FormatJSON})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	if string(data) != "[]\n" {
		t.Fatalf("json = %q, want empty array", data)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	_, err := Export(context.Background(), records, dir, []string{FormatCSV, "xlsx"})
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("err = %v, want ErrUnknownFormat", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("report dir must not be created on invalid formats")
	}
}

func TestExportNoFormats(t *testing.T) {
	paths, err := Export(context.Background(), records, t.TempDir(), nil)
	if err != nil || paths != nil {
		t.Fatalf("paths = %v, err = %v", paths, err)
	}
}
