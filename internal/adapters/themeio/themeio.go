// Package themeio moves theme lists between blob storage and the theme
// catalog: CSV imports of grade,theme pairs and JSON or CSV exports of the
// grade listing.
package themeio

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"tutorcore/internal/blob"
	"tutorcore/pkg/domain"
)

// Format names an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Catalog is the subset of core.ThemeCatalog used here.
type Catalog interface {
	AddTheme(ctx context.Context, grade, name string) (domain.Theme, error)
	ListGradeThemeViews(ctx context.Context) ([]domain.GradeThemeView, error)
}

// RejectedRow is an import line that did not produce a theme.
type RejectedRow struct {
	Line   int    `json:"line"`
	Grade  string `json:"grade"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ImportReport summarizes one import run.
type ImportReport struct {
	Added      int           `json:"added"`
	Duplicates int           `json:"duplicates"`
	Invalid    int           `json:"invalid"`
	Rejected   []RejectedRow `json:"rejected,omitempty"`
}

// Service runs imports and exports against one blob store and manages the
// files kept there.
type Service struct {
	catalog Catalog
	store   blob.Store
}

func New(catalog Catalog, store blob.Store) *Service {
	return &Service{catalog: catalog, store: store}
}

// Import reads the CSV blob at key and adds each row through the catalog.
// A leading "grade,theme" header is skipped. Duplicate and invalid rows are
// counted and reported; any other catalog failure stops the run.
func (s *Service) Import(ctx context.Context, key string) (ImportReport, error) {
	var report ImportReport
	_, rc, err := s.store.Get(ctx, key)
	if err != nil {
		return report, fmt.Errorf("open import %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()

	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	for first := true; ; first = false {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return report, nil
		}
		if err != nil {
			return report, fmt.Errorf("read import %s: %w", key, err)
		}
		if first && isHeader(record) {
			continue
		}
		// Quoted fields may span lines, so report where the record starts.
		line, _ := r.FieldPos(0)
		if len(record) != 2 {
			report.reject(line, record, "expected 2 fields")
			continue
		}
		_, err = s.catalog.AddTheme(ctx, record[0], record[1])
		switch {
		case err == nil:
			report.Added++
		case domain.IsDuplicate(err):
			report.Duplicates++
		case domain.IsValidation(err):
			report.reject(line, record, err.Error())
		default:
			return report, fmt.Errorf("import line %d: %w", line, err)
		}
	}
}

func (r *ImportReport) reject(line int, record []string, reason string) {
	r.Invalid++
	row := RejectedRow{Line: line, Reason: reason}
	if len(record) > 0 {
		row.Grade = record[0]
	}
	if len(record) > 1 {
		row.Name = record[1]
	}
	r.Rejected = append(r.Rejected, row)
}

func isHeader(record []string) bool {
	return len(record) == 2 &&
		strings.EqualFold(strings.TrimSpace(record[0]), "grade") &&
		strings.EqualFold(strings.TrimSpace(record[1]), "theme")
}

// Export writes the current grade listing to key, replacing any previous
// export at the same key.
func (s *Service) Export(ctx context.Context, key string, format Format) (blob.Info, error) {
	views, err := s.catalog.ListGradeThemeViews(ctx)
	if err != nil {
		return blob.Info{}, err
	}
	var (
		buf         bytes.Buffer
		contentType string
	)
	switch format {
	case FormatJSON, "":
		contentType = "application/json"
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(views); err != nil {
			return blob.Info{}, err
		}
	case FormatCSV:
		contentType = "text/csv"
		w := csv.NewWriter(&buf)
		_ = w.Write([]string{"grade", "theme_id", "theme"})
		for _, view := range views {
			for _, entry := range view.Themes {
				_ = w.Write([]string{view.Grade, strconv.FormatInt(entry.ID, 10), entry.Name})
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return blob.Info{}, err
		}
	default:
		return blob.Info{}, fmt.Errorf("unsupported export format %q", format)
	}
	info, err := s.store.Put(ctx, key, &buf, blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"grades": strconv.Itoa(len(views))},
		Overwrite:   true,
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("store export %s: %w", key, err)
	}
	return info, nil
}

// List returns the stored files under prefix, sorted by key.
func (s *Service) List(ctx context.Context, prefix string) ([]blob.Info, error) {
	infos, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	return infos, nil
}

// Stat returns the metadata of the file at key without reading it.
func (s *Service) Stat(ctx context.Context, key string) (blob.Info, error) {
	info, err := s.store.Head(ctx, key)
	if err != nil {
		return blob.Info{}, fmt.Errorf("stat %s: %w", key, err)
	}
	return info, nil
}

// Delete removes the file at key and reports whether it existed.
func (s *Service) Delete(ctx context.Context, key string) (bool, error) {
	ok, err := s.store.Delete(ctx, key)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	return ok, nil
}
