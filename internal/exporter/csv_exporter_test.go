package exporter

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"bookstore/internal/catalog"
)

func intPtr(v int) *int { return &v }

func TestCSVExporter_ExportWritesHeaderAndRows(t *testing.T) {
	books := []catalog.Book{
		{
			ID:             7,
			Title:          "Dune",
			ISBN:           "9780441013593",
			PageCount:      412,
			PublishedDate:  "1965-08-01T00:00:00",
			AuthorFullName: "Frank Herbert",
			PublisherName:  "Chilton",
			YearsAgo:       intPtr(60),
		},
		{Title: "Untitled, Vol. 1", ISBN: "0441013597"},
	}

	var buf bytes.Buffer
	if err := NewCSVExporter().Export(&buf, books); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("exported CSV did not parse: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(records))
	}

	if strings.Join(records[0], ",") != "schemaVersion,title,isbn,pageCount,publishedDate,author,publisher,yearsAgo" {
		t.Fatalf("unexpected header %v", records[0])
	}

	first := records[1]
	if first[0] != SchemaVersion || first[1] != "Dune" || first[3] != "412" || first[4] != "1965-08-01" || first[7] != "60" {
		t.Fatalf("unexpected first row %v", first)
	}

	second := records[2]
	if second[1] != "Untitled, Vol. 1" {
		t.Fatalf("expected comma in title to survive quoting, got %q", second[1])
	}
	if second[3] != "" || second[7] != "" {
		t.Fatalf("expected blank page count and age, got %v", second)
	}
}

func TestCSVExporter_ExportEmptyList(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVExporter().Export(&buf, nil); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected header only, got %d lines", len(lines))
	}
}

func TestCSVExporter_ColumnsIsACopy(t *testing.T) {
	exporter := NewCSVExporter()
	columns := exporter.Columns()
	columns[0] = "changed"

	if exporter.Columns()[0] != "schemaVersion" {
		t.Fatal("Columns must not expose the internal slice")
	}
}
