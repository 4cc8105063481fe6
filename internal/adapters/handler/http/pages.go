package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/near-poll/internal/adapters/handler/http/view"
	"github.com/vncsmyrnk/near-poll/internal/core/domain"
	"github.com/vncsmyrnk/near-poll/internal/core/ports"
)

// Pages renders the voting page for the panel a request ends on.
type Pages struct {
	renderer *view.Renderer
	polls    ports.PollService
	log      logrus.FieldLogger
}

func NewPages(renderer *view.Renderer, polls ports.PollService, log logrus.FieldLogger) *Pages {
	return &Pages{
		renderer: renderer,
		polls:    polls,
		log:      log,
	}
}

func voteState(r *http.Request) domain.VoteState {
	return domain.NewVoteState(r.FormValue("poll_id"), accountID(r.Context()))
}

func pollPath(pollID string) string {
	if pollID == "" {
		return "/"
	}
	return "/?" + url.Values{"poll_id": {pollID}}.Encode()
}

func noSuchPoll(pollID string) string {
	return "No such poll " + pollID
}

// enter applies e to the panel the page was showing. Signed-out callers get
// the signed-out page with 401 and ok is false.
func (p *Pages) enter(w http.ResponseWriter, r *http.Request, state domain.VoteState, e domain.Event) (domain.Panel, bool) {
	from := domain.InitialPanel(state)
	if from.SignedIn() && (e == domain.EventSubmitCreatePoll || e == domain.EventCancelCreatePoll) {
		// The create form is only reachable from the create panel.
		from = domain.PanelCreatingPoll
	}

	next, err := from.Next(e)
	if err != nil {
		if !from.SignedIn() {
			p.write(w, http.StatusUnauthorized, view.NewPage(domain.PanelSignedOut, state))
			return from, false
		}
		p.log.WithError(err).Warn("rejected panel transition")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return from, false
	}
	return next, true
}

// build fills the page for panel with what the panel shows.
func (p *Pages) build(ctx context.Context, panel domain.Panel, state domain.VoteState) *view.Page {
	page := view.NewPage(panel, state)

	switch panel {
	case domain.PanelShowingPoll:
		if !state.HasPoll() {
			break
		}
		lookup := p.polls.ShowPoll(ctx, state)
		if lookup.Found() {
			page.Poll = &lookup.Value
		} else {
			page.Status = noSuchPoll(state.PollID())
		}

	case domain.PanelIdle:
		for _, s := range p.polls.CreatedPolls(ctx, state) {
			page.CreatedPolls = append(page.CreatedPolls, view.PollLink{
				Question: s.Question,
				URL:      pollPath(s.ID),
			})
		}
	}

	return page
}

func (p *Pages) write(w http.ResponseWriter, status int, page *view.Page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := p.renderer.Page(w, page); err != nil {
		p.log.WithError(err).Error("failed to render page")
	}
}

// changeFailure maps a failed change call to its HTTP status and the text
// shown after prefix in the status bar.
func changeFailure(prefix string, err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidPoll):
		return http.StatusUnprocessableEntity, fmt.Sprintf("%s %s", prefix, domain.ErrInvalidPoll)
	case errors.Is(err, domain.ErrChangeUnavailable):
		return http.StatusBadGateway, fmt.Sprintf("%s %s", prefix, domain.ErrChangeUnavailable)
	case errors.Is(err, domain.ErrCallFailed):
		return http.StatusBadGateway, fmt.Sprintf("%s %s", prefix, domain.ErrCallFailed)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway, prefix + " the network did not answer in time"
	default:
		return http.StatusBadGateway, prefix + " " + domain.ErrInternal.Error()
	}
}
