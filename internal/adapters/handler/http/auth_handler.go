package http

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/near-poll/internal/adapters/handler/http/view"
	"github.com/vncsmyrnk/near-poll/internal/core/domain"
	"github.com/vncsmyrnk/near-poll/internal/core/ports"
)

const (
	signInCookie    = "near_poll_signin"
	signInNonceSize = 32
	signInTTL       = 10 * time.Minute
)

var errSignInExpired = errors.New("sign in expired, try again")

type AuthHandler struct {
	wallet    ports.Wallet
	sessions  ports.SessionService
	renderer  *view.Renderer
	publicURL string
	log       logrus.FieldLogger
}

func NewAuthHandler(wallet ports.Wallet, sessions ports.SessionService, renderer *view.Renderer, publicURL string, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		wallet:    wallet,
		sessions:  sessions,
		renderer:  renderer,
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       log,
	}
}

// SignIn sends the browser to the wallet with a fresh challenge. The nonce is
// kept in a short lived cookie so only this browser can complete the sign in.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	pollID := r.FormValue("poll_id")

	nonce := make([]byte, signInNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		h.log.WithError(err).Error("failed to generate sign in nonce")
		http.Error(w, domain.ErrInternal.Error(), http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     signInCookie,
		Value:    base64.RawURLEncoding.EncodeToString(nonce),
		Path:     "/auth",
		HttpOnly: true,
		Secure:   strings.HasPrefix(h.publicURL, "https://"),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(signInTTL.Seconds()),
	})

	http.Redirect(w, r, h.wallet.SignInURL(ports.SignInRequest{
		CallbackURL: h.callbackURL(pollID),
		FailureURL:  h.publicURL + pollPath(pollID),
		Nonce:       nonce,
	}), http.StatusSeeOther)
}

// Callback completes the sign in. Wallets that answer in the URL fragment
// first get a page that moves the fragment into the query.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pollID := q.Get("poll_id")
	accountID := firstValue(q, "account_id", "accountId")

	if accountID == "" && q.Get("error") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := h.renderer.SignInRelay(w, view.SignInRelay{BackURL: pollPath(pollID)}); err != nil {
			h.log.WithError(err).Error("failed to render sign in relay")
		}
		return
	}

	nonce, nonceErr := h.takeNonce(w, r)
	if e := q.Get("error"); e != "" {
		h.signInFailed(w, pollID, http.StatusUnauthorized, errors.New(e))
		return
	}
	if nonceErr != nil {
		h.signInFailed(w, pollID, http.StatusUnauthorized, nonceErr)
		return
	}

	proof := ports.SignInProof{
		AccountID:   accountID,
		PublicKey:   firstValue(q, "public_key", "publicKey"),
		Signature:   q.Get("signature"),
		Nonce:       nonce,
		CallbackURL: h.callbackURL(pollID),
	}
	if err := h.wallet.Verify(r.Context(), proof); err != nil {
		h.log.WithError(err).WithField("account", accountID).Warn("wallet sign in rejected")

		status := http.StatusUnauthorized
		if !errors.Is(err, domain.ErrInvalidAccountID) {
			status = http.StatusBadGateway
		}
		h.signInFailed(w, pollID, status, err)
		return
	}

	token, expiresAt, err := h.sessions.Issue(accountID)
	if err != nil {
		h.log.WithError(err).Error("failed to issue session")
		http.Error(w, domain.ErrInternal.Error(), http.StatusInternalServerError)
		return
	}

	h.setSessionCookie(w, token, expiresAt)
	http.Redirect(w, r, pollPath(pollID), http.StatusSeeOther)
}

func (h *AuthHandler) callbackURL(pollID string) string {
	u := h.publicURL + "/auth/callback"
	if pollID != "" {
		u += "?" + url.Values{"poll_id": {pollID}}.Encode()
	}
	return u
}

// takeNonce reads the sign in nonce and expires its cookie, so each
// challenge is answered at most once.
func (h *AuthHandler) takeNonce(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	cookie, err := r.Cookie(signInCookie)
	if err != nil || cookie.Value == "" {
		return nil, errSignInExpired
	}
	http.SetCookie(w, &http.Cookie{Name: signInCookie, Path: "/auth", MaxAge: -1})

	nonce, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil || len(nonce) != signInNonceSize {
		return nil, errSignInExpired
	}
	return nonce, nil
}

func (h *AuthHandler) signInFailed(w http.ResponseWriter, pollID string, status int, err error) {
	page := view.NewPage(domain.PanelSignedOut, domain.NewVoteState(pollID, ""))
	page.Status = "Sign in failed: " + err.Error()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.renderer.Page(w, page); err != nil {
		h.log.WithError(err).Error("failed to render page")
	}
}

func firstValue(q url.Values, names ...string) string {
	for _, name := range names {
		if v := q.Get(name); v != "" {
			return v
		}
	}
	return ""
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	expireSession(w)
	http.Redirect(w, r, pollPath(r.FormValue("poll_id")), http.StatusSeeOther)
}

// WalletLogin is the sign-in form of the local wallet.
func (h *AuthHandler) WalletLogin(w http.ResponseWriter, r *http.Request) {
	success := r.URL.Query().Get("success_url")
	failure := r.URL.Query().Get("failure_url")
	if !h.ownURL(success) || !h.ownURL(failure) {
		http.Error(w, "invalid redirect", http.StatusBadRequest)
		return
	}

	action, err := url.Parse(success)
	if err != nil {
		http.Error(w, "invalid redirect", http.StatusBadRequest)
		return
	}
	carry := make(map[string]string)
	for name, values := range action.Query() {
		carry[name] = values[0]
	}
	action.RawQuery = ""

	login := view.Login{
		AppTitle:   "Voting app",
		SuccessURL: action.String(),
		FailureURL: failure,
		Carry:      carry,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.Login(w, login); err != nil {
		h.log.WithError(err).Error("failed to render login")
	}
}

func (h *AuthHandler) ownURL(u string) bool {
	return u == h.publicURL || strings.HasPrefix(u, h.publicURL+"/")
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   strings.HasPrefix(h.publicURL, "https://"),
		SameSite: http.SameSiteLaxMode,
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
	})
}
