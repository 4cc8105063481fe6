// Package wallet adapts the identity providers accounts sign in with.
package wallet

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/vncsmyrnk/near-poll/internal/core/domain"
	"github.com/vncsmyrnk/near-poll/internal/core/ports"
)

const (
	appTitle      = "Voting app"
	signInMessage = "Sign in to " + appTitle

	// NEP-413 prefix, 2^31 + 413. It keeps signed messages from ever being
	// valid transactions.
	signedMessageTag uint32 = 1<<31 + 413

	ed25519Prefix = "ed25519:"
	nonceSize     = 32
)

// AccessKeyChecker looks up the permission of an account's public key.
type AccessKeyChecker interface {
	AccessKey(ctx context.Context, accountID, publicKey string) (ports.AccessKey, error)
}

// NEARWallet signs accounts in with a signed message. The wallet signs the
// sign in nonce with one of the account's keys and the key must be on chain.
type NEARWallet struct {
	walletURL  string
	contractID string
	keys       AccessKeyChecker
}

func NewNEARWallet(walletURL, contractID string, keys AccessKeyChecker) ports.Wallet {
	return &NEARWallet{
		walletURL:  strings.TrimRight(walletURL, "/"),
		contractID: contractID,
		keys:       keys,
	}
}

// SignInURL asks the wallet to sign the challenge. The wallet answers on the
// callback URL, with either the signature or an error in the fragment.
func (w *NEARWallet) SignInURL(req ports.SignInRequest) string {
	q := url.Values{
		"message":     {signInMessage},
		"nonce":       {base64.StdEncoding.EncodeToString(req.Nonce)},
		"recipient":   {w.contractID},
		"callbackUrl": {req.CallbackURL},
	}
	return w.walletURL + "/sign-message?" + q.Encode()
}

func (w *NEARWallet) Verify(ctx context.Context, proof ports.SignInProof) error {
	if err := domain.ValidateAccountID(proof.AccountID); err != nil {
		return err
	}
	if proof.PublicKey == "" || proof.Signature == "" {
		return fmt.Errorf("%w: wallet returned no signed key for %s", domain.ErrInvalidAccountID, proof.AccountID)
	}
	if len(proof.Nonce) != nonceSize {
		return fmt.Errorf("%w: sign in challenge missing", domain.ErrInvalidAccountID)
	}

	key, err := parsePublicKey(proof.PublicKey)
	if err != nil {
		return err
	}
	sig, err := base64.StdEncoding.DecodeString(proof.Signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("%w: malformed signature", domain.ErrInvalidAccountID)
	}

	digest := SignInDigest(proof.Nonce, w.contractID, proof.CallbackURL)
	if !ed25519.Verify(key, digest[:], sig) {
		return fmt.Errorf("%w: signature does not match %s", domain.ErrInvalidAccountID, proof.PublicKey)
	}

	if w.keys == nil {
		return errors.New("no node to check access keys")
	}
	access, err := w.keys.AccessKey(ctx, proof.AccountID, proof.PublicKey)
	if err != nil {
		return err
	}
	if !access.FullAccess && access.ReceiverID != w.contractID {
		return fmt.Errorf("%w: key %s of %s cannot sign for %s", domain.ErrInvalidAccountID, proof.PublicKey, proof.AccountID, w.contractID)
	}
	return nil
}

func parsePublicKey(s string) (ed25519.PublicKey, error) {
	encoded, ok := strings.CutPrefix(s, ed25519Prefix)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported key type %q", domain.ErrInvalidAccountID, s)
	}
	raw, err := base58.Decode(encoded)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: malformed public key %q", domain.ErrInvalidAccountID, s)
	}
	return ed25519.PublicKey(raw), nil
}

// SignInDigest is what a wallet signs to answer a sign in challenge for
// recipient.
func SignInDigest(nonce []byte, recipient, callbackURL string) [32]byte {
	return signedMessageHash(signInMessage, nonce, recipient, callbackURL)
}

// signedMessageHash is sha256 over the borsh encoding of the tag and the
// message payload {message, nonce, recipient, callbackUrl?}.
func signedMessageHash(message string, nonce []byte, recipient, callbackURL string) [32]byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, signedMessageTag)
	writeBorshString(&buf, message)
	buf.Write(nonce)
	writeBorshString(&buf, recipient)
	if callbackURL == "" {
		buf.WriteByte(0)
	} else {
		buf.WriteByte(1)
		writeBorshString(&buf, callbackURL)
	}
	return sha256.Sum256(buf.Bytes())
}

func writeBorshString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, uint32(len(s)))
	buf.WriteString(s)
}
