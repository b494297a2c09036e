package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"bookstore/internal/api"
	"bookstore/internal/catalog"
)

// ComicsHandler serves the external comics search and the save-issue form.
type ComicsHandler struct {
	views  *views
	client *api.Client
	logger *slog.Logger
}

// NewComicsHandler constructs a ComicsHandler.
func NewComicsHandler(v *views, client *api.Client, logger *slog.Logger) *ComicsHandler {
	return &ComicsHandler{views: v, client: client, logger: logger}
}

type volumesView struct {
	Query     string
	Volumes   []catalog.Volume
	LoadError string
}

// Volumes handles GET /comics/volumes.
func (h *ComicsHandler) Volumes(w http.ResponseWriter, r *http.Request) {
	view := volumesView{Query: strings.TrimSpace(r.URL.Query().Get("q"))}

	if view.Query != "" {
		volumes, err := clientFor(r, h.client).SearchVolumes(r.Context(), view.Query)
		if requestGone(r) {
			return
		}
		if err != nil {
			h.logger.Warn("search volumes", "query", view.Query, "error", err)
			view.LoadError = api.Message(err)
		}
		view.Volumes = volumes
	}

	h.views.render(w, r, http.StatusOK, "volumes", "Comics", "", view)
}

type issuesView struct {
	VolumeID  int
	Issues    []catalog.Issue
	LoadError string
}

// Issues handles GET /comics/volumes/{id}/issues.
func (h *ComicsHandler) Issues(w http.ResponseWriter, r *http.Request) {
	volumeID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	view := issuesView{VolumeID: volumeID}

	issues, err := clientFor(r, h.client).VolumeIssues(r.Context(), volumeID)
	if requestGone(r) {
		return
	}
	if err != nil {
		h.logger.Warn("list volume issues", "volume", volumeID, "error", err)
		view.LoadError = api.Message(err)
	}
	view.Issues = issues

	h.views.render(w, r, http.StatusOK, "issues", "Issues", "", view)
}

type issueFormView struct {
	Selected  bool
	VolumeID  int
	Input     catalog.IssueInput
	PageCount string
	Price     string
}

// NewIssue handles GET /comics/issues/create?volume=&issue=.
func (h *ComicsHandler) NewIssue(w http.ResponseWriter, r *http.Request) {
	volumeID := queryInt(r, "volume", 0)
	issueID := queryInt(r, "issue", 0)
	view := issueFormView{VolumeID: volumeID}

	if volumeID == 0 || issueID == 0 {
		h.views.render(w, r, http.StatusOK, "issue_form", "Save comic issue", "", view)
		return
	}

	issues, err := clientFor(r, h.client).VolumeIssues(r.Context(), volumeID)
	if requestGone(r) {
		return
	}
	if err != nil {
		h.logger.Warn("load issue for save", "volume", volumeID, "issue", issueID, "error", err)
		h.views.render(w, r, apiFailureStatus(err), "issue_form", "Save comic issue", api.Message(err), view)
		return
	}

	for _, issue := range issues {
		if issue.ExternalID == issueID {
			view.Selected = true
			view.Input = catalog.IssueInputFrom(issue)
			view.PageCount = formatOptionalInt(view.Input.PageCount)
			break
		}
	}

	h.views.render(w, r, http.StatusOK, "issue_form", "Save comic issue", "", view)
}

// CreateIssue handles POST /comics/issues/create.
func (h *ComicsHandler) CreateIssue(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	view := issueFormView{
		Selected:  true,
		VolumeID:  formInt(r, "volume"),
		PageCount: strings.TrimSpace(r.PostFormValue("pageCount")),
		Price:     strings.TrimSpace(r.PostFormValue("price")),
		Input: catalog.IssueInput{
			ExternalIssueID: formInt(r, "externalIssueId"),
			Title:           strings.TrimSpace(r.PostFormValue("title")),
			ReleaseDate:     strings.TrimSpace(r.PostFormValue("releaseDate")),
			IssueNumber:     strings.TrimSpace(r.PostFormValue("issueNumber")),
			CoverImageURL:   strings.TrimSpace(r.PostFormValue("coverImageUrl")),
			Description:     r.PostFormValue("description"),
		},
	}

	input, err := parseIssueNumbers(view.Input, view.PageCount, view.Price, r.PostFormValue("stock"))
	if err == nil {
		err = input.Validate()
	}
	if err != nil {
		view.Input = input
		h.views.render(w, r, http.StatusUnprocessableEntity, "issue_form", "Save comic issue", catalog.ValidationMessage(err), view)
		return
	}

	err = clientFor(r, h.client).SaveIssue(r.Context(), input)
	if requestGone(r) {
		return
	}
	if err != nil {
		h.logger.Warn("save comic issue", "issue", input.ExternalIssueID, "error", err)
		view.Input = input
		h.views.render(w, r, apiFailureStatus(err), "issue_form", "Save comic issue", api.Message(err), view)
		return
	}

	h.logger.Info("comic issue saved", "issue", input.ExternalIssueID)
	http.Redirect(w, r, "/books", http.StatusSeeOther)
}

func parseIssueNumbers(input catalog.IssueInput, pageCount, price, stock string) (catalog.IssueInput, error) {
	pages, err := catalog.ParseOptionalInt(pageCount)
	if err != nil {
		return input, err
	}
	input.PageCount = pages

	amount, err := catalog.ParseOptionalFloat(price)
	if err != nil {
		return input, err
	}
	input.Price = amount

	input.Stock, err = catalog.ParseStock(stock)
	return input, err
}

func formatOptionalInt(value *int) string {
	if value == nil {
		return ""
	}
	return strconv.Itoa(*value)
}
