package ports

import (
	"context"

	"github.com/vncsmyrnk/near-poll/internal/core/domain"
)

type CreatePollInput struct {
	Question string
	Variants [3]string
}

type CreatedPoll struct {
	ID       string
	ShareURL string
}

type PollService interface {
	ShowPoll(ctx context.Context, state domain.VoteState) domain.Lookup[domain.Poll]
	CreatePoll(ctx context.Context, state domain.VoteState, input CreatePollInput) (*CreatedPoll, error)
	CreatedPolls(ctx context.Context, state domain.VoteState) []domain.PollSummary
	Ping(ctx context.Context) (string, error)
}
