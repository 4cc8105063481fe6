// Package emulator runs the poll contract in-process so the application can be
// developed and tested without a ledger node.
package emulator

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/vncsmyrnk/near-poll/internal/core/domain"
	"github.com/vncsmyrnk/near-poll/internal/core/ports"
)

// Store persists polls and tallies for the emulated contract.
type Store interface {
	CreatePoll(ctx context.Context, poll domain.Poll) error
	Poll(ctx context.Context, id string) (*domain.Poll, error)
	PollsByCreator(ctx context.Context, creator string) ([]domain.PollSummary, error)
	Results(ctx context.Context, id string) (*domain.Results, error)
	// RecordVote reports false when voter already voted on the poll.
	RecordVote(ctx context.Context, pollID, voter string, votes domain.VoteSubmission) (bool, error)
}

type Contract struct {
	account string
	store   Store
	seed    func() []byte
}

func New(account string, store Store) *Contract {
	return &Contract{
		account: account,
		store:   store,
		seed: func() []byte {
			id := uuid.New()
			return id[:]
		},
	}
}

var sentinelPoll = domain.Poll{
	ID:       domain.SentinelPollID,
	Creator:  "Bogus",
	Question: "Bogus question",
	Variants: []domain.Variant{
		{OptionID: "variant1", Message: "Variant 1"},
		{OptionID: "variant2", Message: "Variant2 2"},
	},
}

type pollArgs struct {
	PollID string `json:"poll_id"`
}

type accountArgs struct {
	AccountID string `json:"account_id"`
}

type voteArgs struct {
	PollID string                `json:"poll_id"`
	Votes  domain.VoteSubmission `json:"votes"`
}

type createPollArgs struct {
	Question string            `json:"question"`
	Variants map[string]string `json:"variants"`
}

type resultsView struct {
	Poll    domain.Poll    `json:"poll"`
	Results domain.Results `json:"results"`
}

func (c *Contract) View(ctx context.Context, method string, args any) (json.RawMessage, error) {
	switch method {
	case ports.MethodPing:
		return encode("HELLO")

	case ports.MethodShowPoll:
		var in pollArgs
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		poll, err := c.store.Poll(ctx, in.PollID)
		if errors.Is(err, domain.ErrPollNotFound) {
			return encode(sentinelPoll)
		}
		if err != nil {
			return nil, err
		}
		return encode(poll)

	case ports.MethodShowResults:
		var in pollArgs
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		poll, err := c.store.Poll(ctx, in.PollID)
		if errors.Is(err, domain.ErrPollNotFound) {
			return encode(nil)
		}
		if err != nil {
			return nil, err
		}
		results, err := c.store.Results(ctx, in.PollID)
		if err != nil {
			return nil, err
		}
		return encode(resultsView{Poll: *poll, Results: *results})

	case ports.MethodShowOptions:
		var in accountArgs
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		polls, err := c.store.PollsByCreator(ctx, in.AccountID)
		if err != nil {
			return nil, err
		}
		if polls == nil {
			polls = []domain.PollSummary{}
		}
		return encode(polls)
	}

	return nil, fmt.Errorf("%w: view %s", domain.ErrUnknownMethod, method)
}

func (c *Contract) Call(ctx context.Context, call ports.ChangeCall) (json.RawMessage, error) {
	if call.Signer == "" {
		return nil, domain.ErrNotSignedIn
	}
	if call.Gas == 0 {
		return nil, fmt.Errorf("%w: no gas attached to %s", domain.ErrCallFailed, call.Method)
	}

	switch call.Method {
	case ports.MethodVote:
		var in voteArgs
		if err := decodeArgs(call.Args, &in); err != nil {
			return nil, err
		}
		counted, err := c.store.RecordVote(ctx, in.PollID, call.Signer, in.Votes)
		if errors.Is(err, domain.ErrPollNotFound) {
			return encode(false)
		}
		if err != nil {
			return nil, err
		}
		return encode(counted)

	case ports.MethodCreatePoll:
		var in createPollArgs
		if err := decodeArgs(call.Args, &in); err != nil {
			return nil, err
		}
		digest := sha256.Sum256(c.seed())
		id := fmt.Sprintf("owner=%s&voting=%s", c.account, base58.Encode(digest[:]))

		keys := make([]string, 0, len(in.Variants))
		for k := range in.Variants {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		poll := domain.Poll{ID: id, Creator: call.Signer, Question: in.Question}
		for _, k := range keys {
			poll.Variants = append(poll.Variants, domain.Variant{OptionID: k, Message: in.Variants[k]})
		}
		if err := c.store.CreatePoll(ctx, poll); err != nil {
			return nil, err
		}
		return encode(id)
	}

	return nil, fmt.Errorf("%w: change %s", domain.ErrUnknownMethod, call.Method)
}

// decodeArgs round-trips args through JSON, the same encoding the ledger
// receives them in.
func decodeArgs(args any, out any) error {
	if args == nil {
		return nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to encode args: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: malformed args: %v", domain.ErrCallFailed, err)
	}
	return nil
}

func encode(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return raw, nil
}
