package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"bookstore/internal/api"
	"bookstore/internal/catalog"
)

// CatalogHandler serves the book, author and publisher pages.
type CatalogHandler struct {
	views  *views
	client *api.Client
	logger *slog.Logger
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(v *views, client *api.Client, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{views: v, client: client, logger: logger}
}

type booksView struct {
	Query     string
	Sort      string
	Sorts     []catalog.SortOption
	Books     []catalog.Book
	LoadError string
}

// Books handles GET /books.
func (h *CatalogHandler) Books(w http.ResponseWriter, r *http.Request) {
	view := booksView{
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
		Sort:  catalog.NormalizeSort(r.URL.Query().Get("sort"), catalog.BookSorts, catalog.DefaultBookSort),
		Sorts: catalog.BookSorts,
	}

	client := clientFor(r, h.client)
	var (
		books []catalog.Book
		err   error
	)
	if view.Query != "" {
		books, err = client.SearchBooks(r.Context(), api.BookSearch{Title: view.Query, Sort: view.Sort})
	} else {
		books, err = client.Books(r.Context(), view.Sort)
	}
	if requestGone(r) {
		return
	}
	if err != nil {
		h.logger.Warn("list books", "error", err)
		view.LoadError = api.Message(err)
	}
	view.Books = books

	h.views.render(w, r, http.StatusOK, "books", "Books", "", view)
}

type bookFormView struct {
	Edit    bool
	Action  string
	Input   catalog.BookInput
	Options api.BookFormOptions
}

// NewBook handles GET /books/create.
func (h *CatalogHandler) NewBook(w http.ResponseWriter, r *http.Request) {
	h.renderBookForm(w, r, http.StatusOK, catalog.BookInput{}, "")
}

// CreateBook handles POST /books/create.
func (h *CatalogHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	input := bookInputFromForm(r)

	if err := input.Validate(); err != nil {
		h.renderBookForm(w, r, http.StatusUnprocessableEntity, input, catalog.ValidationMessage(err))
		return
	}

	err := clientFor(r, h.client).CreateBook(r.Context(), input)
	if requestGone(r) {
		return
	}
	if err != nil {
		h.logger.Warn("create book", "error", err)
		h.renderBookForm(w, r, apiFailureStatus(err), input, api.Message(err))
		return
	}

	http.Redirect(w, r, "/books", http.StatusSeeOther)
}

// EditBook handles GET /books/{id}/edit.
func (h *CatalogHandler) EditBook(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	book, err := clientFor(r, h.client).Book(r.Context(), id)
	if requestGone(r) {
		return
	}
	if err != nil {
		h.logger.Warn("load book", "id", id, "error", err)
		status := apiFailureStatus(err)
		h.views.render(w, r, status, "error", "Book unavailable", api.Message(err), nil)
		return
	}

	h.renderBookForm(w, r, http.StatusOK, catalog.BookInputFrom(book), "")
}

// UpdateBook handles POST /books/{id}/edit.
func (h *CatalogHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	if !parseForm(w, r) {
		return
	}
	input := bookInputFromForm(r)
	input.ID = id

	if err := input.Validate(); err != nil {
		h.renderBookForm(w, r, http.StatusUnprocessableEntity, input, catalog.ValidationMessage(err))
		return
	}

	err := clientFor(r, h.client).UpdateBook(r.Context(), input)
	if requestGone(r) {
		return
	}
	if err != nil {
		h.logger.Warn("update book", "id", id, "error", err)
		h.renderBookForm(w, r, apiFailureStatus(err), input, api.Message(err))
		return
	}

	http.Redirect(w, r, "/books", http.StatusSeeOther)
}

// DeleteBook handles POST /books/{id}/delete.
func (h *CatalogHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	err := clientFor(r, h.client).DeleteBook(r.Context(), id)
	if requestGone(r) {
		return
	}
	if err != nil {
		h.logger.Warn("delete book", "id", id, "error", err)
		redirectWithError(w, r, "/books", api.Message(err))
		return
	}

	h.logger.Info("book deleted", "id", id)
	http.Redirect(w, r, "/books", http.StatusSeeOther)
}

func (h *CatalogHandler) renderBookForm(w http.ResponseWriter, r *http.Request, status int, input catalog.BookInput, message string) {
	view := bookFormView{
		Edit:   input.ID > 0,
		Action: "/books/create",
		Input:  input,
	}
	title := "Create book"
	if view.Edit {
		view.Action = fmt.Sprintf("/books/%d/edit", input.ID)
		title = "Edit book"
	}

	options, err := clientFor(r, h.client).LoadBookFormOptions(r.Context())
	if requestGone(r) {
		return
	}
	if err != nil {
		h.logger.Warn("load book form options", "error", err)
		if message == "" {
			message = api.Message(err)
		}
	}
	view.Options = options

	h.views.render(w, r, status, "book_form", title, message, view)
}

func bookInputFromForm(r *http.Request) catalog.BookInput {
	return catalog.BookInput{
		Title:         r.PostFormValue("title"),
		ISBN:          r.PostFormValue("isbn"),
		PageCount:     formInt(r, "pageCount"),
		PublishedDate: r.PostFormValue("publishedDate"),
		AuthorID:      formInt(r, "authorId"),
		PublisherID:   formInt(r, "publisherId"),
	}
}

type authorsView struct {
	Page      catalog.AuthorPage
	Size      int
	LoadError string
}

// Authors handles GET /authors.
func (h *CatalogHandler) Authors(w http.ResponseWriter, r *http.Request) {
	pageNumber := queryInt(r, "page", 1)
	pageSize := queryInt(r, "size", api.DefaultAuthorPageSize)
	view := authorsView{
		Page: catalog.AuthorPage{PageNumber: pageNumber, PageSize: pageSize},
		Size: pageSize,
	}

	page, err := clientFor(r, h.client).AuthorPage(r.Context(), pageNumber, pageSize)
	if requestGone(r) {
		return
	}
	if err != nil {
		h.logger.Warn("list authors", "error", err)
		view.LoadError = api.Message(err)
	} else {
		view.Page = page
		if page.PageSize > 0 {
			view.Size = page.PageSize
		}
	}

	h.views.render(w, r, http.StatusOK, "authors", "Authors", "", view)
}

type publishersView struct {
	Sort       string
	Sorts      []catalog.SortOption
	Publishers []catalog.Publisher
	LoadError  string
}

// Publishers handles GET /publishers.
func (h *CatalogHandler) Publishers(w http.ResponseWriter, r *http.Request) {
	view := publishersView{
		Sort:  catalog.NormalizeSort(r.URL.Query().Get("sort"), catalog.PublisherSorts, catalog.DefaultPublisherSort),
		Sorts: catalog.PublisherSorts,
	}

	publishers, err := clientFor(r, h.client).Publishers(r.Context(), view.Sort)
	if requestGone(r) {
		return
	}
	if err != nil {
		h.logger.Warn("list publishers", "error", err)
		view.LoadError = api.Message(err)
	}
	view.Publishers = publishers

	h.views.render(w, r, http.StatusOK, "publishers", "Publishers", "", view)
}

func queryInt(r *http.Request, key string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(key)))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

// apiFailureStatus maps a remote error onto the status of the re-rendered page.
func apiFailureStatus(err error) int {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		return apiErr.StatusCode
	}
	return http.StatusBadGateway
}

// requestGone reports whether the browser abandoned the request, in which
// case nothing is written for it.
func requestGone(r *http.Request) bool {
	return r.Context().Err() != nil
}
