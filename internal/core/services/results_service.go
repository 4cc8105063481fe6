package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/near-poll/internal/core/domain"
	"github.com/vncsmyrnk/near-poll/internal/core/ports"
)

type resultsService struct {
	contract ports.ContractClient
	log      logrus.FieldLogger
}

func NewResultsService(contract ports.ContractClient, log logrus.FieldLogger) ports.ResultsService {
	return &resultsService{
		contract: contract,
		log:      log,
	}
}

func (s *resultsService) ShowResults(ctx context.Context, state domain.VoteState) domain.Lookup[ports.PollResults] {
	if !state.HasPoll() {
		return domain.NotFound[ports.PollResults]()
	}
	args := map[string]string{"poll_id": state.PollID()}

	raw, err := s.contract.View(ctx, ports.MethodShowResults, args)
	if err != nil {
		s.log.WithError(err).WithField("poll_id", state.PollID()).Warn("show_results failed")
		return domain.Failed[ports.PollResults](fmt.Errorf("failed to show results: %w", err))
	}

	tally, embedded, ok, err := decodeResults(raw)
	if err != nil {
		return domain.Failed[ports.PollResults](fmt.Errorf("failed to show results: %w", err))
	}
	if !ok {
		return domain.NotFound[ports.PollResults]()
	}
	tally.PollID = state.PollID()

	var poll domain.Lookup[domain.Poll]
	if embedded.Exists() {
		poll = pollFromResult(embedded, state.PollID())
	} else {
		raw, err := s.contract.View(ctx, ports.MethodShowPoll, args)
		if err != nil {
			return domain.Failed[ports.PollResults](fmt.Errorf("failed to show poll: %w", err))
		}
		poll = decodePoll(raw, state.PollID())
	}

	switch poll.Status {
	case domain.LookupFound:
		return domain.Found(ports.PollResults{Poll: poll.Value, Results: tally})
	case domain.LookupNotFound:
		return domain.NotFound[ports.PollResults]()
	default:
		return domain.Failed[ports.PollResults](poll.Err)
	}
}
