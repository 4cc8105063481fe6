// Package view renders the voting page.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/vncsmyrnk/near-poll/internal/core/domain"
	"github.com/vncsmyrnk/near-poll/internal/core/ports"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page is everything the voting page shows for one request.
type Page struct {
	Visibility     domain.Visibility
	AccountID      string
	PollID         string
	Poll           *domain.Poll
	Results        *Results
	Draft          Draft
	CreatedPolls   []PollLink
	NewPollAddress string
	Status         string
}

type Results struct {
	Question string
	Lines    []string
	Voters   string
}

// Draft refills the create form after a rejected submission.
type Draft struct {
	Question string
	Variants [3]string
}

type PollLink struct {
	Question string
	URL      string
}

// Login is the local wallet form. Carry holds query parameters of the
// success URL, since a GET form drops the query of its action.
type Login struct {
	AppTitle   string
	SuccessURL string
	FailureURL string
	Carry      map[string]string
}

// SignInRelay is served on the sign in callback when the wallet answered in
// the URL fragment, which never reaches the server.
type SignInRelay struct {
	BackURL string
}

// NewPage starts a page for panel p.
func NewPage(p domain.Panel, state domain.VoteState) *Page {
	return &Page{
		Visibility: p.Visibility(),
		AccountID:  state.AccountID(),
		PollID:     state.PollID(),
	}
}

// NewResults formats a tally for display: one "label -> count" line per
// variant in poll order, and the voters joined by a space.
func NewResults(r ports.PollResults) *Results {
	lines := make([]string, 0, len(r.Poll.Variants))
	for _, v := range r.Poll.Variants {
		lines = append(lines, domain.FormatVariant(v, r.Results))
	}
	return &Results{
		Question: r.Poll.Question,
		Lines:    lines,
		Voters:   strings.Join(r.Results.Voters(), " "),
	}
}

func DraftFrom(input ports.CreatePollInput) Draft {
	return Draft{Question: input.Question, Variants: input.Variants}
}

type Renderer struct {
	templates *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// Page renders p into a buffer, then writes it to w.
func (r *Renderer) Page(w io.Writer, p *Page) error {
	return r.execute(w, "page", p)
}

func (r *Renderer) Login(w io.Writer, l Login) error {
	return r.execute(w, "login", l)
}

func (r *Renderer) SignInRelay(w io.Writer, s SignInRelay) error {
	return r.execute(w, "signin_relay", s)
}

func (r *Renderer) execute(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
