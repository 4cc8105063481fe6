package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/near-poll/internal/core/ports"
)

// fakeContract answers view and change calls from canned JSON keyed by method.
type fakeContract struct {
	mu      sync.Mutex
	views   map[string]string
	changes map[string]string
	err     error
	calls   []ports.ChangeCall
	viewed  []string
	block   chan struct{}
	started chan struct{}
}

func newFakeContract() *fakeContract {
	return &fakeContract{
		views:   make(map[string]string),
		changes: make(map[string]string),
	}
}

func (f *fakeContract) View(_ context.Context, method string, _ any) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.viewed = append(f.viewed, method)
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.views[method]
	if !ok {
		return nil, errors.New("unexpected view " + method)
	}
	return json.RawMessage(body), nil
}

func (f *fakeContract) Call(ctx context.Context, call ports.ChangeCall) (json.RawMessage, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.changes[call.Method]), nil
}

func quietLogger(t *testing.T) logrus.FieldLogger {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
