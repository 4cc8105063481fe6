package ports

import (
	"context"
	"time"
)

// SignInRequest is the challenge sent to the wallet. Nonce is single use and
// bound to the browser that started the sign in.
type SignInRequest struct {
	CallbackURL string
	FailureURL  string
	Nonce       []byte
}

// SignInProof is what the wallet hands back to the callback.
type SignInProof struct {
	AccountID   string
	PublicKey   string
	Signature   string
	Nonce       []byte
	CallbackURL string
}

// Wallet is the external identity provider accounts sign in with.
type Wallet interface {
	SignInURL(req SignInRequest) string
	Verify(ctx context.Context, proof SignInProof) error
}

// AccessKey is the permission an account granted to one of its public keys.
type AccessKey struct {
	FullAccess bool
	ReceiverID string
}

type SessionService interface {
	Issue(accountID string) (token string, expiresAt time.Time, err error)
	AccountID(token string) (string, error)
}
