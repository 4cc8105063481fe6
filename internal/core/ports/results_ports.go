package ports

import (
	"context"

	"github.com/vncsmyrnk/near-poll/internal/core/domain"
)

// PollResults pairs a poll with its tally so results can be labelled.
type PollResults struct {
	Poll    domain.Poll
	Results domain.Results
}

type ResultsService interface {
	ShowResults(ctx context.Context, state domain.VoteState) domain.Lookup[PollResults]
}
