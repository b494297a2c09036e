package catalog

// SortOption is a selectable ordering for a list page.
type SortOption struct {
	Value string
	Label string
}

// PublisherSorts lists the orderings the publisher endpoint understands.
var PublisherSorts = []SortOption{
	{Value: "NameAsc", Label: "Name ↑"},
	{Value: "NameDesc", Label: "Name ↓"},
	{Value: "AddressAsc", Label: "Address ↑"},
	{Value: "AddressDesc", Label: "Address ↓"},
}

// BookSorts lists the orderings the book endpoint understands.
var BookSorts = []SortOption{
	{Value: "title_asc", Label: "Title ↑"},
	{Value: "title_desc", Label: "Title ↓"},
	{Value: "date_asc", Label: "Published ↑"},
	{Value: "date_desc", Label: "Published ↓"},
}

const (
	// DefaultPublisherSort is used when no valid sort is requested.
	DefaultPublisherSort = "NameAsc"
	// DefaultBookSort is used when no valid sort is requested.
	DefaultBookSort = "title_asc"
)

// NormalizeSort returns value when it is one of options, otherwise fallback.
func NormalizeSort(value string, options []SortOption, fallback string) string {
	for _, opt := range options {
		if opt.Value == value {
			return value
		}
	}
	return fallback
}
