package wallet

import (
	"context"
	"net/url"

	"github.com/vncsmyrnk/near-poll/internal/core/domain"
	"github.com/vncsmyrnk/near-poll/internal/core/ports"
)

// LocalWallet signs accounts in without a key pair. It is used with the
// emulated contract backends, where the app serves its own login form.
type LocalWallet struct {
	loginURL string
}

func NewLocalWallet(loginURL string) ports.Wallet {
	return &LocalWallet{loginURL: loginURL}
}

func (w *LocalWallet) SignInURL(req ports.SignInRequest) string {
	q := url.Values{
		"success_url": {req.CallbackURL},
		"failure_url": {req.FailureURL},
	}
	return w.loginURL + "?" + q.Encode()
}

func (w *LocalWallet) Verify(_ context.Context, proof ports.SignInProof) error {
	return domain.ValidateAccountID(proof.AccountID)
}
