package services

import (
	"bytes"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/vncsmyrnk/near-poll/internal/core/domain"
)

// Contract payloads have changed shape across deployments: polls carry their
// variants either as a list of {option_id, message} or as a key -> label
// object, and unknown polls come back as null, a bare marker string or the
// sentinel poll. gjson lets us read all of them while keeping document order.

func parsePayload(raw []byte) (gjson.Result, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return gjson.Result{}, nil
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("%w: malformed contract payload", domain.ErrCallFailed)
	}
	return gjson.ParseBytes(raw), nil
}

func decodePoll(raw []byte, pollID string) domain.Lookup[domain.Poll] {
	res, err := parsePayload(raw)
	if err != nil {
		return domain.Failed[domain.Poll](err)
	}
	return pollFromResult(res, pollID)
}

func pollFromResult(res gjson.Result, pollID string) domain.Lookup[domain.Poll] {
	if !res.IsObject() {
		return domain.NotFound[domain.Poll]()
	}

	question := res.Get("question").String()
	if question == "" {
		return domain.NotFound[domain.Poll]()
	}

	poll := domain.Poll{
		ID:       res.Get("poll_id").String(),
		Creator:  res.Get("creator").String(),
		Question: question,
	}
	if poll.IsSentinel() {
		return domain.NotFound[domain.Poll]()
	}
	poll.ID = pollID

	variants := res.Get("variants")
	switch {
	case variants.IsArray():
		variants.ForEach(func(_, v gjson.Result) bool {
			poll.Variants = append(poll.Variants, domain.Variant{
				OptionID: v.Get("option_id").String(),
				Message:  v.Get("message").String(),
			})
			return true
		})
	case variants.IsObject():
		variants.ForEach(func(k, v gjson.Result) bool {
			poll.Variants = append(poll.Variants, domain.Variant{
				OptionID: k.String(),
				Message:  v.String(),
			})
			return true
		})
	}

	return domain.Found(poll)
}

// decodeResults reads either {poll, results: {variants, voted}} or a flat
// {variants, voted}. The embedded poll, when present, is returned as well.
func decodeResults(raw []byte) (tally domain.Results, poll gjson.Result, ok bool, err error) {
	res, err := parsePayload(raw)
	if err != nil {
		return domain.Results{}, gjson.Result{}, false, err
	}
	if !res.IsObject() {
		return domain.Results{}, gjson.Result{}, false, nil
	}

	body := res
	if nested := res.Get("results"); nested.IsObject() {
		body = nested
	}

	variants := body.Get("variants")
	voted := body.Get("voted")
	if !variants.Exists() && !voted.Exists() {
		return domain.Results{}, gjson.Result{}, false, nil
	}

	tally = domain.Results{
		Variants: make(map[string]int64),
		Voted:    make(map[string]int),
	}
	variants.ForEach(func(k, v gjson.Result) bool {
		tally.Variants[k.String()] = v.Int()
		return true
	})
	switch {
	case voted.IsArray():
		voted.ForEach(func(_, v gjson.Result) bool {
			tally.Voted[v.String()] = 1
			return true
		})
	case voted.IsObject():
		voted.ForEach(func(k, v gjson.Result) bool {
			tally.Voted[k.String()] = int(v.Int())
			return true
		})
	}

	return tally, res.Get("poll"), true, nil
}

func decodeSummaries(raw []byte) ([]domain.PollSummary, error) {
	res, err := parsePayload(raw)
	if err != nil {
		return nil, err
	}

	var polls []domain.PollSummary
	switch {
	case res.IsArray():
		res.ForEach(func(_, v gjson.Result) bool {
			if v.IsObject() {
				polls = append(polls, domain.PollSummary{ID: v.Get("poll_id").String(), Question: v.Get("question").String()})
			} else if id := v.String(); id != "" {
				polls = append(polls, domain.PollSummary{ID: id})
			}
			return true
		})
	case res.IsObject():
		res.ForEach(func(k, v gjson.Result) bool {
			polls = append(polls, domain.PollSummary{ID: k.String(), Question: v.String()})
			return true
		})
	}
	return polls, nil
}

// decodeAck reads the truthiness of a change method result: true, 1 and
// "true" count, anything else does not.
func decodeAck(raw []byte) (bool, error) {
	res, err := parsePayload(raw)
	if err != nil {
		return false, err
	}
	return res.Bool(), nil
}

func decodeString(raw []byte) (string, error) {
	res, err := parsePayload(raw)
	if err != nil {
		return "", err
	}
	return res.String(), nil
}
