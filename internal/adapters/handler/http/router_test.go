package http

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/near-poll/internal/adapters/contract/emulator"
	"github.com/vncsmyrnk/near-poll/internal/adapters/handler/http/view"
	"github.com/vncsmyrnk/near-poll/internal/adapters/wallet"
	"github.com/vncsmyrnk/near-poll/internal/core/domain"
	"github.com/vncsmyrnk/near-poll/internal/core/ports"
	"github.com/vncsmyrnk/near-poll/internal/core/services"
	"github.com/vncsmyrnk/near-poll/internal/metrics"
)

const (
	testPublicURL = "http://poll.test"
	testGas       = 10_000_000_000_000
)

type testApp struct {
	handler  http.Handler
	store    emulator.Store
	sessions ports.SessionService
}

func newTestApp(t *testing.T, limit float64, burst int) *testApp {
	t.Helper()
	return newTestAppWithWallet(t, limit, burst, wallet.NewLocalWallet(testPublicURL+"/wallet/login"), true)
}

func newTestAppWithWallet(t *testing.T, limit float64, burst int, w ports.Wallet, local bool) *testApp {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	store := emulator.NewMemoryStore()
	contract := emulator.New("voting.test", store)

	polls := services.NewPollService(contract, testGas, testPublicURL, log)
	votes := services.NewVoteService(contract, testGas, log)
	results := services.NewResultsService(contract, log)
	sessions := services.NewSessionService([]byte("test-secret"), time.Hour)

	renderer, err := view.NewRenderer()
	require.NoError(t, err)
	pages := NewPages(renderer, polls, log)

	handler := NewHandler(Handlers{
		Polls:   NewPollHandler(polls, pages),
		Votes:   NewVoteHandler(votes, pages),
		Results: NewResultsHandler(results, pages),
		Auth:    NewAuthHandler(w, sessions, renderer, testPublicURL, log),
		API:     NewAPIHandler(polls, results, time.Second, log),
	}, RouterConfig{
		Sessions:    sessions,
		Limiter:     NewRateLimiter(limit, burst, log),
		Metrics:     metrics.New(),
		Log:         log,
		LocalWallet: local,
	})

	return &testApp{handler: handler, store: store, sessions: sessions}
}

func (a *testApp) seedPoll(t *testing.T, poll domain.Poll) {
	t.Helper()
	require.NoError(t, a.store.CreatePoll(context.Background(), poll))
}

func (a *testApp) do(t *testing.T, account, method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	if account != "" {
		token, _, err := a.sessions.Issue(account)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	}
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

var yesNoPoll = domain.Poll{
	ID:       "42",
	Creator:  "alice",
	Question: "Q",
	Variants: []domain.Variant{{OptionID: "a", Message: "Yes"}, {OptionID: "b", Message: "No"}},
}

func TestIndexSignedOut(t *testing.T) {
	app := newTestApp(t, 100, 100)

	rec := app.do(t, "", http.MethodGet, "/?poll_id=42", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `<div id="signed-out-flow">`)
	assert.Contains(t, body, `<div id="signed-in-flow" hidden>`)
	assert.NotContains(t, body, `id="vote-form"`)
}

func TestIndexRendersPollForSignedInAccount(t *testing.T) {
	app := newTestApp(t, 100, 100)
	app.seedPoll(t, yesNoPoll)

	rec := app.do(t, "bob", http.MethodGet, "/?poll_id=42", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `<div id="signed-out-flow" hidden>`)
	assert.Contains(t, body, `<div id="signed-in-flow">`)
	assert.Contains(t, body, `<input type="checkbox" id="a" name="checked" value="a">`)
	assert.Contains(t, body, `<input type="checkbox" id="b" name="checked" value="b">`)
	assert.Contains(t, body, "Dear @bob please vote on poll by @alice")
	assert.Contains(t, body, `<div class="vote_question">Q</div>`)
}

func TestUnknownPollRendersNoSuchPoll(t *testing.T) {
	app := newTestApp(t, 100, 100)

	for _, target := range []string{"/?poll_id=nope", "/poll?poll_id=nope", "/results?poll_id=nope"} {
		rec := app.do(t, "bob", http.MethodGet, target, nil)
		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "No such poll nope", target)
	}
}

func TestVoteOnceThenNotCounted(t *testing.T) {
	app := newTestApp(t, 100, 100)
	app.seedPoll(t, yesNoPoll)

	form := url.Values{"poll_id": {"42"}, "option": {"a", "b"}, "checked": {"a"}}

	rec := app.do(t, "bob", http.MethodPost, "/vote", form)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Your voice is counted")

	rec = app.do(t, "bob", http.MethodPost, "/vote", form)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Your voice is NOT counted")

	results, err := app.store.Results(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"a": 1}, results.Variants)
}

func TestVoteSignedOutIsUnauthorized(t *testing.T) {
	app := newTestApp(t, 100, 100)
	app.seedPoll(t, yesNoPoll)

	rec := app.do(t, "", http.MethodPost, "/vote", url.Values{"poll_id": {"42"}, "option": {"a"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `<div id="signed-out-flow">`)
}

func TestShowResults(t *testing.T) {
	app := newTestApp(t, 100, 100)
	app.seedPoll(t, yesNoPoll)

	ballots := map[string][]string{"bob": {"a", "b"}, "carol": {"a"}, "dave": {"a"}}
	for voter, checked := range ballots {
		rec := app.do(t, voter, http.MethodPost, "/vote", url.Values{"poll_id": {"42"}, "option": {"a", "b"}, "checked": checked})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := app.do(t, "bob", http.MethodGet, "/results?poll_id=42", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<li>Yes -&gt; 3</li>")
	assert.Contains(t, body, "<li>No -&gt; 1</li>")
	assert.Contains(t, body, `<span id="result-poll-voted">bob carol dave</span>`)
	assert.Contains(t, body, `<div id="vote-options" hidden>`)
	assert.Contains(t, body, "Ready!")
}

func TestCreatePollFlow(t *testing.T) {
	app := newTestApp(t, 100, 100)

	rec := app.do(t, "alice", http.MethodGet, "/polls/new", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<div id="new-poll-form">`)
	assert.Contains(t, rec.Body.String(), `<div id="show-poll-results" hidden>`)
	assert.Contains(t, rec.Body.String(), `<div id="vote-options" hidden>`)

	rec = app.do(t, "alice", http.MethodPost, "/polls", url.Values{
		"question": {"Lunch?"},
		"v1":       {"Pizza"},
		"v2":       {""},
		"v3":       {"Sushi"},
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `<div id="new-poll-form" hidden>`)
	assert.Contains(t, body, "Ready, created owner=voting.test&amp;voting=")
	assert.Contains(t, body, "Newly created poll at")
	assert.Contains(t, body, testPublicURL+"/?poll_id=owner%3Dvoting.test%26voting%3D")
	assert.Contains(t, body, "Lunch?", "created polls are listed")

	polls, err := app.store.PollsByCreator(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, polls, 1)

	poll, err := app.store.Poll(context.Background(), polls[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Variant{{OptionID: "v1", Message: "Pizza"}, {OptionID: "v3", Message: "Sushi"}}, poll.Variants)
}

func TestCreatePollRejectsSingleVariant(t *testing.T) {
	app := newTestApp(t, 100, 100)

	rec := app.do(t, "alice", http.MethodPost, "/polls", url.Values{"question": {"Lunch?"}, "v1": {"Pizza"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Poll could not be created:")
	assert.Contains(t, body, `<div id="new-poll-form">`)
	assert.Contains(t, body, `value="Lunch?"`)
}

func TestCancelCreatePoll(t *testing.T) {
	app := newTestApp(t, 100, 100)

	rec := app.do(t, "alice", http.MethodGet, "/polls/cancel", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<div id="new-poll-form" hidden>`)
}

func TestPollTextIsEscaped(t *testing.T) {
	app := newTestApp(t, 100, 100)
	app.seedPoll(t, domain.Poll{
		ID:       "x",
		Creator:  "mallory",
		Question: "<script>alert(1)</script>",
		Variants: []domain.Variant{{OptionID: "a", Message: "<img src=x onerror=alert(1)>"}, {OptionID: "b", Message: "ok"}},
	})

	rec := app.do(t, "bob", http.MethodGet, "/?poll_id=x", nil)
	body := rec.Body.String()
	assert.Contains(t, body, "&lt;script&gt;")
	assert.NotContains(t, body, "<script>")
	assert.NotContains(t, body, "<img")
}

func TestMutatingRoutesAreRateLimited(t *testing.T) {
	app := newTestApp(t, 0.001, 1)
	app.seedPoll(t, yesNoPoll)

	form := url.Values{"poll_id": {"42"}, "option": {"a"}}
	assert.Equal(t, http.StatusOK, app.do(t, "bob", http.MethodPost, "/vote", form).Code)
	assert.Equal(t, http.StatusTooManyRequests, app.do(t, "bob", http.MethodPost, "/vote", form).Code)
	assert.Equal(t, http.StatusOK, app.do(t, "carol", http.MethodPost, "/vote", form).Code, "limits are per account")
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSignInThroughLocalWallet(t *testing.T) {
	app := newTestApp(t, 100, 100)

	rec := app.do(t, "", http.MethodPost, "/auth/signin", url.Values{"poll_id": {"42"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	challenge := cookieNamed(rec, signInCookie)
	require.NotNil(t, challenge)
	assert.True(t, challenge.HttpOnly)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/wallet/login", loc.Path)
	success := loc.Query().Get("success_url")
	assert.Equal(t, testPublicURL+"/auth/callback?poll_id=42", success)

	rec = app.do(t, "", http.MethodGet, "/wallet/login?"+loc.RawQuery, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<input type="hidden" name="poll_id" value="42">`)

	rec = app.do(t, "", http.MethodGet, "/auth/callback?poll_id=42&account_id=bob", nil, challenge)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?poll_id=42", rec.Header().Get("Location"))

	session := cookieNamed(rec, sessionCookie)
	require.NotNil(t, session)
	account, err := app.sessions.AccountID(session.Value)
	require.NoError(t, err)
	assert.Equal(t, "bob", account)

	spent := cookieNamed(rec, signInCookie)
	require.NotNil(t, spent)
	assert.Less(t, spent.MaxAge, 0, "the challenge is single use")
}

func TestCallbackRejectsInvalidAccount(t *testing.T) {
	app := newTestApp(t, 100, 100)

	rec := app.do(t, "", http.MethodPost, "/auth/signin", url.Values{})
	challenge := cookieNamed(rec, signInCookie)
	require.NotNil(t, challenge)

	rec = app.do(t, "", http.MethodGet, "/auth/callback?account_id=Not+Valid", nil, challenge)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, cookieNamed(rec, sessionCookie))
}

func TestCallbackWithoutChallengeIsRejected(t *testing.T) {
	app := newTestApp(t, 100, 100)

	rec := app.do(t, "", http.MethodGet, "/auth/callback?poll_id=42&account_id=bob", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sign in failed: sign in expired")
	assert.Nil(t, cookieNamed(rec, sessionCookie))
}

func TestCallbackRelaysFragment(t *testing.T) {
	app := newTestApp(t, 100, 100)

	rec := app.do(t, "", http.MethodGet, "/auth/callback?poll_id=42", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "window.location.hash")
	assert.Nil(t, cookieNamed(rec, sessionCookie))
}

type nodeKeys map[string]ports.AccessKey

func (k nodeKeys) AccessKey(_ context.Context, accountID, publicKey string) (ports.AccessKey, error) {
	key, ok := k[accountID+"/"+publicKey]
	if !ok {
		return ports.AccessKey{}, domain.ErrInvalidAccountID
	}
	return key, nil
}

func TestNEARSignInRequiresSignedChallenge(t *testing.T) {
	priv := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{5}, ed25519.SeedSize))
	publicKey := "ed25519:" + base58.Encode(priv.Public().(ed25519.PublicKey))
	keys := nodeKeys{"alice.testnet/" + publicKey: {FullAccess: true}}

	app := newTestAppWithWallet(t, 100, 100, wallet.NewNEARWallet("https://wallet.testnet.near.org", "voting.test", keys), false)

	signIn := func(t *testing.T) (*http.Cookie, []byte) {
		t.Helper()
		rec := app.do(t, "", http.MethodPost, "/auth/signin", url.Values{"poll_id": {"42"}})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "/sign-message", loc.Path)
		nonce, err := base64.StdEncoding.DecodeString(loc.Query().Get("nonce"))
		require.NoError(t, err)
		challenge := cookieNamed(rec, signInCookie)
		require.NotNil(t, challenge)
		return challenge, nonce
	}

	t.Run("account without signature", func(t *testing.T) {
		challenge, _ := signIn(t)
		rec := app.do(t, "", http.MethodGet, "/auth/callback?account_id=victim.testnet", nil, challenge)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, cookieNamed(rec, sessionCookie))
	})

	t.Run("public key without signature", func(t *testing.T) {
		challenge, _ := signIn(t)
		q := url.Values{"poll_id": {"42"}, "accountId": {"alice.testnet"}, "publicKey": {publicKey}}
		rec := app.do(t, "", http.MethodGet, "/auth/callback?"+q.Encode(), nil, challenge)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, cookieNamed(rec, sessionCookie))
	})

	t.Run("signed challenge", func(t *testing.T) {
		challenge, nonce := signIn(t)
		digest := wallet.SignInDigest(nonce, "voting.test", testPublicURL+"/auth/callback?poll_id=42")
		q := url.Values{
			"poll_id":   {"42"},
			"accountId": {"alice.testnet"},
			"publicKey": {publicKey},
			"signature": {base64.StdEncoding.EncodeToString(ed25519.Sign(priv, digest[:]))},
		}

		rec := app.do(t, "", http.MethodGet, "/auth/callback?"+q.Encode(), nil, challenge)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		session := cookieNamed(rec, sessionCookie)
		require.NotNil(t, session)
		account, err := app.sessions.AccountID(session.Value)
		require.NoError(t, err)
		assert.Equal(t, "alice.testnet", account)

		rec = app.do(t, "", http.MethodGet, "/auth/callback?"+q.Encode(), nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "a spent challenge cannot be replayed")
	})

	t.Run("signature for another browser's challenge", func(t *testing.T) {
		_, nonce := signIn(t)
		other, _ := signIn(t)
		digest := wallet.SignInDigest(nonce, "voting.test", testPublicURL+"/auth/callback?poll_id=42")
		q := url.Values{
			"poll_id":   {"42"},
			"accountId": {"alice.testnet"},
			"publicKey": {publicKey},
			"signature": {base64.StdEncoding.EncodeToString(ed25519.Sign(priv, digest[:]))},
		}

		rec := app.do(t, "", http.MethodGet, "/auth/callback?"+q.Encode(), nil, other)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, cookieNamed(rec, sessionCookie))
	})
}

func TestWalletLoginRejectsForeignRedirect(t *testing.T) {
	app := newTestApp(t, 100, 100)

	rec := app.do(t, "", http.MethodGet, "/wallet/login?success_url=https://evil.test/&failure_url=https://evil.test/", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignOutClearsSession(t *testing.T) {
	app := newTestApp(t, 100, 100)

	rec := app.do(t, "bob", http.MethodPost, "/auth/signout", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestInvalidSessionCountsAsSignedOut(t *testing.T) {
	app := newTestApp(t, 100, 100)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "garbage"})
	rec := httptest.NewRecorder()
	app.handler.ServeHTTP(rec, req)

	assert.Contains(t, rec.Body.String(), `<div id="signed-out-flow">`)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Less(t, rec.Result().Cookies()[0].MaxAge, 0)
}

func TestAPI(t *testing.T) {
	app := newTestApp(t, 100, 100)
	app.seedPoll(t, yesNoPoll)

	rec := app.do(t, "", http.MethodGet, "/api/poll?poll_id=42", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var poll domain.Poll
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &poll))
	assert.Equal(t, yesNoPoll, poll)

	rec = app.do(t, "", http.MethodGet, "/api/poll?poll_id=missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, "", http.MethodGet, "/api/poll", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, "", http.MethodGet, "/api/results?poll_id=42", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"poll": {"poll_id": "42", "creator": "alice", "question": "Q",
			"variants": [{"option_id": "a", "message": "Yes"}, {"option_id": "b", "message": "No"}]},
		"results": {"poll_id": "42", "variants": {}, "voted": {}}
	}`, rec.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t, 100, 100)

	rec := app.do(t, "", http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","contract":"HELLO"}`, rec.Body.String())

	rec = app.do(t, "", http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "near_poll_http_requests_total")
}
