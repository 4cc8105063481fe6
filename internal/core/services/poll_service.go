package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/near-poll/internal/core/domain"
	"github.com/vncsmyrnk/near-poll/internal/core/ports"
)

type pollService struct {
	contract  ports.ContractClient
	gas       uint64
	publicURL string
	log       logrus.FieldLogger
}

func NewPollService(contract ports.ContractClient, gas uint64, publicURL string, log logrus.FieldLogger) ports.PollService {
	return &pollService{
		contract:  contract,
		gas:       gas,
		publicURL: publicURL,
		log:       log,
	}
}

type createPollArgs struct {
	Question string            `json:"question"`
	Variants map[string]string `json:"variants"`
}

func (s *pollService) ShowPoll(ctx context.Context, state domain.VoteState) domain.Lookup[domain.Poll] {
	if !state.HasPoll() {
		return domain.NotFound[domain.Poll]()
	}

	raw, err := s.contract.View(ctx, ports.MethodShowPoll, map[string]string{"poll_id": state.PollID()})
	if err != nil {
		s.log.WithError(err).WithField("poll_id", state.PollID()).Warn("show_poll failed")
		return domain.Failed[domain.Poll](fmt.Errorf("failed to show poll: %w", err))
	}

	return decodePoll(raw, state.PollID())
}

func (s *pollService) CreatePoll(ctx context.Context, state domain.VoteState, input ports.CreatePollInput) (*ports.CreatedPoll, error) {
	if !state.SignedIn() {
		return nil, domain.ErrNotSignedIn
	}

	question := strings.TrimSpace(input.Question)
	variants := make(map[string]string, len(input.Variants))
	for i, label := range input.Variants {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		variants[fmt.Sprintf("v%d", i+1)] = label
	}
	if question == "" || len(variants) < 2 {
		return nil, domain.ErrInvalidPoll
	}

	raw, err := s.contract.Call(ctx, ports.ChangeCall{
		Signer: state.AccountID(),
		Method: ports.MethodCreatePoll,
		Args:   createPollArgs{Question: question, Variants: variants},
		Gas:    s.gas,
	})
	if err != nil {
		s.log.WithError(err).WithField("account", state.AccountID()).Warn("create_poll failed")
		return nil, fmt.Errorf("failed to create poll: %w", err)
	}

	id, err := decodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create poll: %w", err)
	}
	if id == "" {
		return nil, fmt.Errorf("failed to create poll: %w: empty poll id", domain.ErrCallFailed)
	}

	return &ports.CreatedPoll{ID: id, ShareURL: ShareURL(s.publicURL, id)}, nil
}

func (s *pollService) CreatedPolls(ctx context.Context, state domain.VoteState) []domain.PollSummary {
	if !state.SignedIn() {
		return nil
	}

	raw, err := s.contract.View(ctx, ports.MethodShowOptions, map[string]string{"account_id": state.AccountID()})
	if err != nil {
		s.log.WithError(err).WithField("account", state.AccountID()).Warn("show_options failed")
		return nil
	}

	polls, err := decodeSummaries(raw)
	if err != nil {
		s.log.WithError(err).WithField("account", state.AccountID()).Warn("show_options returned an unreadable payload")
		return nil
	}
	return polls
}

func (s *pollService) Ping(ctx context.Context) (string, error) {
	raw, err := s.contract.View(ctx, ports.MethodPing, nil)
	if err != nil {
		return "", fmt.Errorf("failed to ping contract: %w", err)
	}
	return decodeString(raw)
}

// ShareURL is the address a poll can be opened at.
func ShareURL(base, pollID string) string {
	return strings.TrimRight(base, "/") + "/?" + url.Values{"poll_id": {pollID}}.Encode()
}
