package http

import (
	"errors"
	"net/http"

	"github.com/vncsmyrnk/near-poll/internal/core/domain"
	"github.com/vncsmyrnk/near-poll/internal/core/ports"
)

type VoteHandler struct {
	service ports.VoteService
	pages   *Pages
}

func NewVoteHandler(service ports.VoteService, pages *Pages) *VoteHandler {
	return &VoteHandler{
		service: service,
		pages:   pages,
	}
}

// Vote submits the ballot posted by the vote form. Every rendered option is
// posted as "option" and every ticked checkbox as "checked".
func (h *VoteHandler) Vote(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	state := voteState(r)
	panel, ok := h.pages.enter(w, r, state, domain.EventToggleVote)
	if !ok {
		return
	}

	input := ports.VoteInput{
		Rendered: r.PostForm["option"],
		Checked:  r.PostForm["checked"],
	}

	counted, err := h.service.Vote(r.Context(), state, input)
	if errors.Is(err, domain.ErrPollNotFound) {
		page := h.pages.build(r.Context(), panel, state)
		page.Status = noSuchPoll(state.PollID())
		h.pages.write(w, http.StatusBadRequest, page)
		return
	}
	if err != nil {
		status, message := changeFailure("Your vote could not be submitted:", err)
		page := h.pages.build(r.Context(), panel, state)
		page.Status = message
		h.pages.write(w, status, page)
		return
	}

	page := h.pages.build(r.Context(), panel, state)
	page.Status = domain.VoteStatus(counted)
	h.pages.write(w, http.StatusOK, page)
}
