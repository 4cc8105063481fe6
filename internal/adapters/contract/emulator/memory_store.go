package emulator

import (
	"context"
	"sync"

	"github.com/vncsmyrnk/near-poll/internal/core/domain"
)

type memoryStore struct {
	mu      sync.Mutex
	polls   map[string]domain.Poll
	order   []string
	results map[string]*domain.Results
}

func NewMemoryStore() Store {
	return &memoryStore{
		polls:   make(map[string]domain.Poll),
		results: make(map[string]*domain.Results),
	}
}

func (s *memoryStore) CreatePoll(_ context.Context, poll domain.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	poll.Variants = append([]domain.Variant(nil), poll.Variants...)
	if _, ok := s.polls[poll.ID]; !ok {
		s.order = append(s.order, poll.ID)
	}
	s.polls[poll.ID] = poll
	s.results[poll.ID] = &domain.Results{
		PollID:   poll.ID,
		Variants: make(map[string]int64),
		Voted:    make(map[string]int),
	}
	return nil
}

func (s *memoryStore) Poll(_ context.Context, id string) (*domain.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	poll, ok := s.polls[id]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	poll.Variants = append([]domain.Variant(nil), poll.Variants...)
	return &poll, nil
}

func (s *memoryStore) PollsByCreator(_ context.Context, creator string) ([]domain.PollSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var polls []domain.PollSummary
	for _, id := range s.order {
		if p := s.polls[id]; p.Creator == creator {
			polls = append(polls, domain.PollSummary{ID: p.ID, Question: p.Question})
		}
	}
	return polls, nil
}

func (s *memoryStore) Results(_ context.Context, id string) (*domain.Results, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.results[id]
	if !ok {
		return nil, domain.ErrPollNotFound
	}

	out := domain.Results{
		PollID:   r.PollID,
		Variants: make(map[string]int64, len(r.Variants)),
		Voted:    make(map[string]int, len(r.Voted)),
	}
	for k, v := range r.Variants {
		out.Variants[k] = v
	}
	for k, v := range r.Voted {
		out.Voted[k] = v
	}
	return &out, nil
}

func (s *memoryStore) RecordVote(_ context.Context, pollID, voter string, votes domain.VoteSubmission) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.results[pollID]
	if !ok {
		return false, domain.ErrPollNotFound
	}
	if _, voted := r.Voted[voter]; voted {
		return false, nil
	}
	r.Voted[voter] = 1

	for option, checked := range votes {
		if checked != 0 {
			r.Variants[option]++
		}
	}
	return true, nil
}
