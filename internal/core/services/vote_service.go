package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/near-poll/internal/core/domain"
	"github.com/vncsmyrnk/near-poll/internal/core/ports"
	"golang.org/x/sync/singleflight"
)

const voteTimeout = 30 * time.Second

type voteService struct {
	contract ports.ContractClient
	gas      uint64
	inflight singleflight.Group
	log      logrus.FieldLogger
}

func NewVoteService(contract ports.ContractClient, gas uint64, log logrus.FieldLogger) ports.VoteService {
	return &voteService{
		contract: contract,
		gas:      gas,
		log:      log,
	}
}

type voteArgs struct {
	PollID string                `json:"poll_id"`
	Votes  domain.VoteSubmission `json:"votes"`
}

// Vote submits the ballot once. A second submission for the same account and
// poll that arrives while the first is still in flight shares its outcome
// instead of reaching the contract again. Failures are not retried.
func (s *voteService) Vote(ctx context.Context, state domain.VoteState, input ports.VoteInput) (bool, error) {
	if !state.SignedIn() {
		return false, domain.ErrNotSignedIn
	}
	if !state.HasPoll() {
		return false, domain.ErrPollNotFound
	}

	votes := domain.BuildVoteSubmission(input.Rendered, input.Checked)
	key := state.AccountID() + "\x00" + state.PollID()

	// The shared call is detached from the first caller's cancellation. Each
	// caller waits on its own ctx.
	ch := s.inflight.DoChan(key, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), voteTimeout)
		defer cancel()

		raw, err := s.contract.Call(callCtx, ports.ChangeCall{
			Signer: state.AccountID(),
			Method: ports.MethodVote,
			Args:   voteArgs{PollID: state.PollID(), Votes: votes},
			Gas:    s.gas,
		})
		if err != nil {
			return false, err
		}
		return decodeAck(raw)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("failed to submit vote: %w", ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		s.log.WithError(res.Err).WithFields(logrus.Fields{
			"poll_id": state.PollID(),
			"account": state.AccountID(),
		}).Warn("vote failed")
		return false, fmt.Errorf("failed to submit vote: %w", res.Err)
	}

	return res.Val.(bool), nil
}
