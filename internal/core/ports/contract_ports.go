package ports

import (
	"context"
	"encoding/json"
)

// ContractClient is the proxy to the remote poll contract. View calls are
// read-only and free; change calls are signed for Signer and spend Gas.
type ContractClient interface {
	View(ctx context.Context, method string, args any) (json.RawMessage, error)
	Call(ctx context.Context, call ChangeCall) (json.RawMessage, error)
}

type ChangeCall struct {
	Signer string
	Method string
	Args   any
	Gas    uint64
}

// Contract method names.
const (
	MethodShowPoll    = "show_poll"
	MethodShowResults = "show_results"
	MethodShowOptions = "show_options"
	MethodPing        = "ping"
	MethodVote        = "vote"
	MethodCreatePoll  = "create_poll"
)
