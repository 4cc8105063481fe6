package domain

import "errors"

var (
	ErrPollNotFound      = errors.New("poll not found")
	ErrInvalidPoll       = errors.New("poll needs a question and at least two variants")
	ErrInvalidTransition = errors.New("invalid panel transition")
	ErrNotSignedIn       = errors.New("account is not signed in")
	ErrInvalidAccountID  = errors.New("invalid account id")
	ErrUnknownMethod     = errors.New("unknown contract method")
	ErrChangeUnavailable = errors.New("change methods are not available on this network")
	ErrCallFailed        = errors.New("contract call failed")
	ErrInternal          = errors.New("internal server error")
)
