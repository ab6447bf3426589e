package kafka

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderflow/internal/usercache"
)

// fakeReader replays a fixed list of messages and then times out forever.
type fakeReader struct {
	mu       sync.Mutex
	messages []*kafka.Message
	closed   bool
}

func (r *fakeReader) ReadMessage(timeout time.Duration) (*kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return nil, kafka.NewError(kafka.ErrTimedOut, "timed out", false)
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func TestNewUserConsumerPanicsOnNilCollaborators(t *testing.T) {
	assert.Panics(t, func() {
		NewUserConsumer(nil, usercache.New(), zerolog.Nop())
	})
	assert.Panics(t, func() {
		NewUserConsumer(&fakeReader{}, nil, zerolog.Nop())
	})
}

func TestDecodeUserCreated(t *testing.T) {
	userID := uuid.MustParse("b4b8f0a0-8f53-4f10-bb1a-96f64aa34c5a")
	testcases := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{
			name: "plain json document",
			raw:  `{"id":"b4b8f0a0-8f53-4f10-bb1a-96f64aa34c5a","name":"Jane","email":"jane@example.com"}`,
		},
		{
			name: "double-encoded json document",
			raw:  `"{\"id\":\"b4b8f0a0-8f53-4f10-bb1a-96f64aa34c5a\",\"name\":\"Jane\",\"email\":\"jane@example.com\"}"`,
		},
		{
			name: "leading whitespace before double encoding",
			raw:  `  "{\"id\":\"b4b8f0a0-8f53-4f10-bb1a-96f64aa34c5a\"}"`,
		},
		{
			name:    "empty payload",
			raw:     "",
			wantErr: true,
		},
		{
			name:    "garbage payload",
			raw:     "not json at all",
			wantErr: true,
		},
		{
			name:    "string literal wrapping garbage",
			raw:     `"not json at all"`,
			wantErr: true,
		},
		{
			name:    "valid document without an id",
			raw:     `{"name":"Jane","email":"jane@example.com"}`,
			wantErr: true,
		},
		{
			name:    "malformed uuid",
			raw:     `{"id":"not-a-uuid","name":"Jane"}`,
			wantErr: true,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			evt, err := decodeUserCreated([]byte(tc.raw))
			if tc.wantErr {
				assert.Error(t, err)
				assert.Nil(t, evt)
			} else {
				require.NoError(t, err)
				assert.Equal(t, userID, evt.ID)
			}
		})
	}
}

func TestHandleMessage(t *testing.T) {
	cache := usercache.New()
	c := NewUserConsumer(&fakeReader{}, cache, zerolog.Nop())
	userID := uuid.New()

	c.handleMessage([]byte(`{"id":"` + userID.String() + `","name":"Jane"}`))
	assert.True(t, cache.IsKnown(userID))

	// redelivery is a no-op.
	c.handleMessage([]byte(`{"id":"` + userID.String() + `","name":"Jane"}`))
	assert.Equal(t, 1, cache.Len())

	// undecodable messages are dropped without touching the cache.
	c.handleMessage([]byte("garbage"))
	assert.Equal(t, 1, cache.Len())
}

func TestUserConsumerStartAndShutdown(t *testing.T) {
	userID1 := uuid.New()
	userID2 := uuid.New()
	payload := func(id uuid.UUID) []byte {
		return []byte(`{"id":"` + id.String() + `","name":"Jane"}`)
	}
	reader := &fakeReader{
		messages: []*kafka.Message{
			{Value: payload(userID1)},
			{Value: []byte("garbage in between")},
			{Value: payload(userID2)},
		},
	}
	cache := usercache.New()
	c := NewUserConsumer(reader, cache, zerolog.Nop())

	require.NoError(t, c.Start(context.Background()))
	assert.Error(t, c.Start(context.Background()), "second start must be rejected")

	assert.Eventually(t, func() bool {
		return cache.IsKnown(userID1) && cache.IsKnown(userID2)
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Shutdown(ctx))
	assert.True(t, reader.isClosed())
	assert.Equal(t, 2, cache.Len())
}

func TestUserConsumerShutdownBeforeStart(t *testing.T) {
	c := NewUserConsumer(&fakeReader{}, usercache.New(), zerolog.Nop())
	assert.NoError(t, c.Shutdown(context.Background()))
}
