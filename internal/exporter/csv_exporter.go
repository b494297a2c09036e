package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"bookstore/internal/catalog"
)

// SchemaVersion identifies the CSV export format version.
// This version should be incremented when adding new columns or changing the format.
const SchemaVersion = "1"

// csvColumns defines the column order for export. The importer reads the
// same header, so an export can be imported into another catalog.
var csvColumns = []string{
	"schemaVersion",
	"title",
	"isbn",
	"pageCount",
	"publishedDate",
	"author",
	"publisher",
	"yearsAgo",
}

// CSVExporter exports books to CSV format.
type CSVExporter struct{}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Columns returns the header row written by Export.
func (e *CSVExporter) Columns() []string {
	return append([]string(nil), csvColumns...)
}

// Export writes books to the given writer in CSV format.
func (e *CSVExporter) Export(w io.Writer, books []catalog.Book) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(csvColumns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, book := range books {
		if err := writer.Write(e.bookToRow(book)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// bookToRow converts a book to a CSV row following the column order.
func (e *CSVExporter) bookToRow(book catalog.Book) []string {
	row := make([]string, len(csvColumns))

	row[0] = SchemaVersion
	row[1] = book.Title
	row[2] = book.ISBN
	row[3] = formatPositiveInt(book.PageCount)
	row[4] = book.PublishedDay()
	row[5] = book.AuthorFullName
	row[6] = book.PublisherName
	row[7] = formatOptionalInt(book.YearsAgo)

	return row
}

func formatOptionalInt(value *int) string {
	if value == nil {
		return ""
	}
	return strconv.Itoa(*value)
}

// formatPositiveInt leaves zero blank; the importer reads blank as zero.
func formatPositiveInt(value int) string {
	if value <= 0 {
		return ""
	}
	return strconv.Itoa(value)
}
