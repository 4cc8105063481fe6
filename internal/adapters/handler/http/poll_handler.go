package http

import (
	"net/http"

	"github.com/vncsmyrnk/near-poll/internal/adapters/handler/http/view"
	"github.com/vncsmyrnk/near-poll/internal/core/domain"
	"github.com/vncsmyrnk/near-poll/internal/core/ports"
)

type PollHandler struct {
	service ports.PollService
	pages   *Pages
}

func NewPollHandler(service ports.PollService, pages *Pages) *PollHandler {
	return &PollHandler{
		service: service,
		pages:   pages,
	}
}

// Index is the page load: the panel follows from the session and poll_id.
func (h *PollHandler) Index(w http.ResponseWriter, r *http.Request) {
	state := voteState(r)
	panel := domain.InitialPanel(state)
	h.pages.write(w, http.StatusOK, h.pages.build(r.Context(), panel, state))
}

func (h *PollHandler) ShowPoll(w http.ResponseWriter, r *http.Request) {
	state := voteState(r)
	panel, ok := h.pages.enter(w, r, state, domain.EventToggleVote)
	if !ok {
		return
	}
	h.pages.write(w, http.StatusOK, h.pages.build(r.Context(), panel, state))
}

func (h *PollHandler) NewPoll(w http.ResponseWriter, r *http.Request) {
	state := voteState(r)
	panel, ok := h.pages.enter(w, r, state, domain.EventOpenCreatePoll)
	if !ok {
		return
	}
	h.pages.write(w, http.StatusOK, view.NewPage(panel, state))
}

func (h *PollHandler) CancelPoll(w http.ResponseWriter, r *http.Request) {
	state := voteState(r)
	panel, ok := h.pages.enter(w, r, state, domain.EventCancelCreatePoll)
	if !ok {
		return
	}
	h.pages.write(w, http.StatusOK, h.pages.build(r.Context(), panel, state))
}

func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	state := voteState(r)
	panel, ok := h.pages.enter(w, r, state, domain.EventSubmitCreatePoll)
	if !ok {
		return
	}

	input := ports.CreatePollInput{
		Question: r.PostFormValue("question"),
		Variants: [3]string{r.PostFormValue("v1"), r.PostFormValue("v2"), r.PostFormValue("v3")},
	}

	created, err := h.service.CreatePoll(r.Context(), state, input)
	if err != nil {
		status, message := changeFailure("Poll could not be created:", err)
		page := view.NewPage(domain.PanelCreatingPoll, state)
		page.Draft = view.DraftFrom(input)
		page.Status = message
		h.pages.write(w, status, page)
		return
	}

	page := h.pages.build(r.Context(), panel, state)
	page.Status = "Ready, created " + created.ID
	page.NewPollAddress = created.ShareURL
	h.pages.write(w, http.StatusCreated, page)
}
