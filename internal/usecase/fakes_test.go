package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"easy-chat-server/internal/domain"
)

type fakeConnStore struct {
	mu         sync.Mutex
	byID       map[string]domain.Connection
	byNickname map[string]domain.Connection
	listed     []domain.Connection

	putErr    error
	deleteErr error
	getErr    error
	findErr   error
	listErr   error

	puts    []domain.Connection
	deletes []string
}

func (f *fakeConnStore) PutConnection(_ context.Context, conn domain.Connection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, conn)
	return f.putErr
}

func (f *fakeConnStore) DeleteConnection(_ context.Context, connectionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, connectionID)
	return f.deleteErr
}

func (f *fakeConnStore) GetConnection(_ context.Context, connectionID string) (domain.Connection, bool, error) {
	if f.getErr != nil {
		return domain.Connection{}, false, f.getErr
	}
	conn, found := f.byID[connectionID]
	return conn, found, nil
}

func (f *fakeConnStore) FindConnectionByNickname(_ context.Context, nickname string) (domain.Connection, bool, error) {
	if f.findErr != nil {
		return domain.Connection{}, false, f.findErr
	}
	conn, found := f.byNickname[nickname]
	return conn, found, nil
}

func (f *fakeConnStore) ListConnections(_ context.Context) ([]domain.Connection, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listed, nil
}

type fakeMessageStore struct {
	putErr       error
	queryOut     []domain.Message
	queryLastKey map[string]any
	queryErr     error

	puts         []domain.Message
	lastQueryKey string
	lastLimit    int32
	lastStartKey map[string]any
}

func (f *fakeMessageStore) PutMessage(_ context.Context, msg domain.Message) error {
	f.puts = append(f.puts, msg)
	return f.putErr
}

func (f *fakeMessageStore) QueryMessages(_ context.Context, conversationKey string, limit int32, startKey map[string]any) ([]domain.Message, map[string]any, error) {
	f.lastQueryKey = conversationKey
	f.lastLimit = limit
	f.lastStartKey = startKey
	return f.queryOut, f.queryLastKey, f.queryErr
}

type push struct {
	connectionID string
	payload      any
}

// fakePusher is safe for concurrent use; broadcasts fan out in goroutines.
type fakePusher struct {
	mu    sync.Mutex
	errs  map[string]error
	posts []push
}

func (f *fakePusher) Post(_ context.Context, connectionID string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, push{connectionID: connectionID, payload: payload})
	return f.errs[connectionID]
}

func (f *fakePusher) postsTo(connectionID string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var payloads []any
	for _, p := range f.posts {
		if p.connectionID == connectionID {
			payloads = append(payloads, p.payload)
		}
	}
	return payloads
}

type fakeNotifier struct {
	excluded []string
	err      error
}

func (f *fakeNotifier) NotifyAll(_ context.Context, excludeConnectionID string) error {
	f.excluded = append(f.excluded, excludeConnectionID)
	return f.err
}

// goneError mimics the push gateway's gone signal without importing it.
type goneError struct{}

func (goneError) Error() string        { return "gone" }
func (goneError) ConnectionGone() bool { return true }

func requireErrorCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	require.Error(t, err)
	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, code, ucErr.Code)
}

func requireJSONPayload(t *testing.T, payload any, want string) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.JSONEq(t, want, string(raw))
}
