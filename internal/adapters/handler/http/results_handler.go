package http

import (
	"net/http"

	"github.com/vncsmyrnk/near-poll/internal/adapters/handler/http/view"
	"github.com/vncsmyrnk/near-poll/internal/core/domain"
	"github.com/vncsmyrnk/near-poll/internal/core/ports"
)

type ResultsHandler struct {
	service ports.ResultsService
	pages   *Pages
}

func NewResultsHandler(service ports.ResultsService, pages *Pages) *ResultsHandler {
	return &ResultsHandler{
		service: service,
		pages:   pages,
	}
}

func (h *ResultsHandler) ShowResults(w http.ResponseWriter, r *http.Request) {
	state := voteState(r)
	panel, ok := h.pages.enter(w, r, state, domain.EventShowResults)
	if !ok {
		return
	}

	page := view.NewPage(panel, state)
	if state.HasPoll() {
		lookup := h.service.ShowResults(r.Context(), state)
		if lookup.Found() {
			page.Results = view.NewResults(lookup.Value)
			page.Status = "Ready!"
		} else {
			page.Status = noSuchPoll(state.PollID())
		}
	}
	h.pages.write(w, http.StatusOK, page)
}
