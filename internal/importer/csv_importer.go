package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"bookstore/internal/api"
	"bookstore/internal/catalog"
)

// BookStore is the part of the API client the importer writes through.
type BookStore interface {
	Books(ctx context.Context, sort string) ([]catalog.Book, error)
	LoadBookFormOptions(ctx context.Context) (api.BookFormOptions, error)
	CreateBook(ctx context.Context, input catalog.BookInput) error
}

type Summary struct {
	TotalRows         int             `json:"totalRows"`
	Imported          int             `json:"imported"`
	SkippedDuplicates []SkippedRecord `json:"skippedDuplicates"`
	Failed            []FailedRecord  `json:"failed"`
	TruncatedRecords  bool            `json:"truncatedRecords,omitempty"`
}

type SkippedRecord struct {
	Row    int    `json:"row"`
	Title  string `json:"title,omitempty"`
	ISBN   string `json:"isbn,omitempty"`
	Reason string `json:"reason"`
}

type FailedRecord struct {
	Row   int    `json:"row"`
	Title string `json:"title,omitempty"`
	ISBN  string `json:"isbn,omitempty"`
	Error string `json:"error"`
}

var ErrInvalidCSV = errors.New("invalid csv upload")

// MaxImportRows limits the number of data rows processed per CSV import.
const MaxImportRows = 1000

// MaxFailedRecords caps the number of failed/skipped records stored in the
// summary to avoid unbounded memory growth from malformed files.
const MaxFailedRecords = 100

var requiredColumns = []string{
	"title",
	"isbn",
	"publisheddate",
	"author",
	"publisher",
}

type CSVImporter struct {
	books BookStore
}

func NewCSVImporter(books BookStore) *CSVImporter {
	return &CSVImporter{books: books}
}

// Import creates one book per CSV row. Authors and publishers are matched by
// name against the catalog; rows whose ISBN is already present are skipped.
func (i *CSVImporter) Import(ctx context.Context, reader io.Reader) (Summary, error) {
	if i.books == nil {
		return Summary{}, fmt.Errorf("%w: book store is not configured", ErrInvalidCSV)
	}

	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Summary{}, fmt.Errorf("%w: file is empty", ErrInvalidCSV)
		}
		return Summary{}, fmt.Errorf("%w: failed to read header", ErrInvalidCSV)
	}

	columns, err := normalizeHeader(header)
	if err != nil {
		return Summary{}, err
	}

	type parsedRow struct {
		number int
		values map[string]string
	}

	var rows []parsedRow
	rowNumber := 1
	totalRows := 0

	for {
		record, err := csvReader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return Summary{}, fmt.Errorf("%w: failed to read row %d", ErrInvalidCSV, rowNumber+1)
		}
		rowNumber++
		values := mapRecord(columns, record)
		if isRowEmpty(values) {
			continue
		}

		totalRows++
		if totalRows > MaxImportRows {
			return Summary{}, fmt.Errorf("%w: CSV exceeds maximum of %d rows", ErrInvalidCSV, MaxImportRows)
		}

		rows = append(rows, parsedRow{number: rowNumber, values: values})
	}

	existing, err := i.books.Books(ctx, "")
	if err != nil {
		return Summary{}, fmt.Errorf("list books: %w", err)
	}
	options, err := i.books.LoadBookFormOptions(ctx)
	if err != nil {
		return Summary{}, err
	}

	tracker := newDuplicateTracker(existing)
	names := newNameIndex(options)
	summary := Summary{TotalRows: totalRows}

	for _, row := range rows {
		input, rowErr := names.buildInput(row.values)
		if rowErr != nil {
			summary.fail(row.number, row.values["title"], row.values["isbn"], rowErr.Error())
			continue
		}

		if tracker.Seen(input.ISBN) {
			if len(summary.SkippedDuplicates) < MaxFailedRecords {
				summary.SkippedDuplicates = append(summary.SkippedDuplicates, SkippedRecord{
					Row:    row.number,
					Title:  input.Title,
					ISBN:   input.ISBN,
					Reason: "a book with this ISBN already exists",
				})
			} else {
				summary.TruncatedRecords = true
			}
			continue
		}

		if err := i.books.CreateBook(ctx, input); err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			summary.fail(row.number, input.Title, input.ISBN, api.Message(err))
			continue
		}

		tracker.Add(input.ISBN)
		summary.Imported++
	}

	return summary, nil
}

func (s *Summary) fail(row int, title, isbn, message string) {
	if len(s.Failed) >= MaxFailedRecords {
		s.TruncatedRecords = true
		return
	}
	s.Failed = append(s.Failed, FailedRecord{Row: row, Title: title, ISBN: isbn, Error: message})
}

type nameIndex struct {
	authors    map[string]int
	publishers map[string]int
}

func newNameIndex(options api.BookFormOptions) nameIndex {
	idx := nameIndex{
		authors:    make(map[string]int, len(options.Authors)),
		publishers: make(map[string]int, len(options.Publishers)),
	}
	for _, a := range options.Authors {
		idx.authors[normalizeName(a.FullName)] = a.ID
	}
	for _, p := range options.Publishers {
		idx.publishers[normalizeName(p.Name)] = p.ID
	}
	return idx
}

func (idx nameIndex) buildInput(values map[string]string) (catalog.BookInput, error) {
	input := catalog.BookInput{
		Title:         values["title"],
		ISBN:          values["isbn"],
		PublishedDate: values["publisheddate"],
	}

	if raw := values["pagecount"]; raw != "" {
		pages, err := strconv.Atoi(raw)
		if err != nil || pages < 0 {
			return input, fmt.Errorf("pageCount must be a non-negative whole number")
		}
		input.PageCount = pages
	}

	if author := values["author"]; author != "" {
		id, ok := idx.authors[normalizeName(author)]
		if !ok {
			return input, fmt.Errorf("unknown author %q", author)
		}
		input.AuthorID = id
	}
	if publisher := values["publisher"]; publisher != "" {
		id, ok := idx.publishers[normalizeName(publisher)]
		if !ok {
			return input, fmt.Errorf("unknown publisher %q", publisher)
		}
		input.PublisherID = id
	}

	input = input.Normalize()
	if err := input.Validate(); err != nil {
		return input, errors.New(catalog.ValidationMessage(err))
	}
	return input, nil
}

func normalizeHeader(header []string) (map[int]string, error) {
	columns := make(map[int]string, len(header))
	present := make(map[string]bool, len(header))
	for idx, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if key == "" {
			continue
		}
		columns[idx] = key
		present[key] = true
	}

	var missing []string
	for _, required := range requiredColumns {
		if !present[required] {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required columns: %s", ErrInvalidCSV, strings.Join(missing, ", "))
	}
	return columns, nil
}

func mapRecord(columns map[int]string, record []string) map[string]string {
	values := make(map[string]string, len(columns))
	for idx, key := range columns {
		if idx < len(record) {
			values[key] = strings.TrimSpace(record[idx])
		} else {
			values[key] = ""
		}
	}
	return values
}

func isRowEmpty(values map[string]string) bool {
	for key, value := range values {
		if key == "schemaversion" {
			continue
		}
		if value != "" {
			return false
		}
	}
	return true
}

func normalizeName(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}

type duplicateTracker struct {
	isbns map[string]struct{}
}

func newDuplicateTracker(existing []catalog.Book) *duplicateTracker {
	t := &duplicateTracker{isbns: make(map[string]struct{}, len(existing))}
	for _, book := range existing {
		t.Add(book.ISBN)
	}
	return t
}

func (t *duplicateTracker) Seen(isbn string) bool {
	key := catalog.NormalizeISBN(isbn)
	if key == "" {
		return false
	}
	_, ok := t.isbns[key]
	return ok
}

func (t *duplicateTracker) Add(isbn string) {
	if key := catalog.NormalizeISBN(isbn); key != "" {
		t.isbns[key] = struct{}{}
	}
}
