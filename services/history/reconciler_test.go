package history

import (
	"sync"
	"testing"

	"novelchat/pkg/wire"
	"novelchat/services/conversation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func text(sender, receiver wire.ID, content string) wire.ChatMessage {
	return wire.ChatMessage{SenderID: sender, ReceiverID: receiver, Content: content, Timestamp: "2024-01-01T00:00:00.000Z"}
}

func TestLifecycle(t *testing.T) {
	r := New(conversation.Group())
	assert.Equal(t, StateEmpty, r.State())

	r.BeginLoad()
	assert.Equal(t, StateLoading, r.State())

	require.True(t, r.Seed([]wire.ChatMessage{text(1, 0, "a")}))
	assert.Equal(t, StateReady, r.State())

	r.BeginLoad()
	assert.Equal(t, StateReady, r.State())

	r.Terminate()
	assert.Equal(t, StateTerminated, r.State())
	assert.Equal(t, "TERMINATED", r.State().String())
}

func TestSeedThenStream(t *testing.T) {
	r := New(conversation.Private(1, 2))
	r.BeginLoad()

	require.True(t, r.Seed([]wire.ChatMessage{text(1, 2, "h1"), text(2, 1, "h2")}))
	assert.True(t, r.Append(text(2, 1, "live")))

	assert.Equal(t, []string{"h1", "h2", "live"}, contents(r.Messages()))
}

func TestStreamBeforeSeedIsFlushedAfterHistory(t *testing.T) {
	r := New(conversation.Group())
	r.BeginLoad()

	assert.True(t, r.Append(text(3, 0, "early1")))
	assert.True(t, r.Append(text(4, 0, "early2")))
	assert.Zero(t, r.Len())

	require.True(t, r.Seed([]wire.ChatMessage{text(1, 0, "old")}))
	assert.Equal(t, []string{"old", "early1", "early2"}, contents(r.Messages()))
}

func TestAppendFiltersByScope(t *testing.T) {
	r := New(conversation.Private(1, 2))
	require.True(t, r.Seed(nil))

	assert.False(t, r.Append(text(1, 0, "group")))
	assert.False(t, r.Append(text(1, 3, "other pair")))
	assert.True(t, r.Append(text(1, 2, "mine")))

	assert.Equal(t, []string{"mine"}, contents(r.Messages()))
}

func TestSeedReplacesWholesale(t *testing.T) {
	r := New(conversation.Group())
	require.True(t, r.Seed([]wire.ChatMessage{text(1, 0, "a")}))
	require.True(t, r.Append(text(1, 0, "b")))

	require.True(t, r.Seed([]wire.ChatMessage{text(1, 0, "c")}))
	assert.Equal(t, []string{"c"}, contents(r.Messages()))
}

func TestTerminatedDiscardsLateResults(t *testing.T) {
	r := New(conversation.Group())
	r.BeginLoad()
	r.Append(text(1, 0, "queued"))
	r.Terminate()

	assert.False(t, r.Seed([]wire.ChatMessage{text(1, 0, "late")}))
	assert.False(t, r.Append(text(1, 0, "later")))
	assert.Empty(t, r.Messages())
	assert.Equal(t, StateTerminated, r.State())
}

func TestDuplicatesKeptByDefault(t *testing.T) {
	r := New(conversation.Group())
	r.BeginLoad()

	dup := text(1, 0, "both")
	r.Append(dup)
	r.Seed([]wire.ChatMessage{dup})

	assert.Equal(t, []string{"both", "both"}, contents(r.Messages()))
}

func TestWithDedupe(t *testing.T) {
	r := New(conversation.Group(), WithDedupe())
	r.BeginLoad()

	dup := text(1, 0, "both")
	assert.True(t, r.Append(dup))

	stored := dup
	stored.MessageID = 501
	require.True(t, r.Seed([]wire.ChatMessage{stored}))
	assert.Len(t, r.Messages(), 1)

	assert.False(t, r.Append(dup))

	other := dup
	other.Timestamp = "2024-01-01T00:00:01.000Z"
	assert.True(t, r.Append(other))
	assert.Len(t, r.Messages(), 2)
}

func TestMessagesReturnsCopy(t *testing.T) {
	r := New(conversation.Group())
	r.Seed([]wire.ChatMessage{text(1, 0, "a")})

	ms := r.Messages()
	ms[0].Content = "mutated"

	assert.Equal(t, "a", r.Messages()[0].Content)
}

func TestConcurrentAppend(t *testing.T) {
	r := New(conversation.Group())
	r.Seed(nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Append(text(1, 0, "x"))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, r.Len())
}

func contents(ms []wire.ChatMessage) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Content)
	}
	return out
}
