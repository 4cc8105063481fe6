package ports

import (
	"context"

	"github.com/vncsmyrnk/near-poll/internal/core/domain"
)

type VoteInput struct {
	Rendered []string
	Checked  []string
}

type VoteService interface {
	Vote(ctx context.Context, state domain.VoteState, input VoteInput) (counted bool, err error)
}
