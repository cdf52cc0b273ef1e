package chat

import (
	"context"
	"sync"

	"novelchat/apperrors"
	"novelchat/pkg/wire"
	"novelchat/services/transport"
)

type fakeChannel struct {
	frames chan []byte

	mu        sync.Mutex
	state     transport.State
	observers []func(transport.State)
	sent      [][]byte
	sendErr   error
	started   bool
	closed    bool
	closeOnce sync.Once
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		frames: make(chan []byte),
		state:  transport.StateConnecting,
	}
}

func (f *fakeChannel) Start(context.Context) {
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
}

func (f *fakeChannel) Frames() <-chan []byte { return f.frames }

func (f *fakeChannel) State() transport.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeChannel) OnStateChange(fn func(transport.State)) {
	f.mu.Lock()
	f.observers = append(f.observers, fn)
	f.mu.Unlock()
}

func (f *fakeChannel) Send(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != transport.StateOpen {
		return apperrors.NewNotConnectedError(f.state.String())
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, append([]byte(nil), b...))
	return nil
}

func (f *fakeChannel) Close() error {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		f.setState(transport.StateClosed)
	})
	return nil
}

func (f *fakeChannel) setState(s transport.State) {
	f.mu.Lock()
	f.state = s
	observers := f.observers
	f.mu.Unlock()

	for _, fn := range observers {
		fn(s)
	}
}

func (f *fakeChannel) sentFrames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.sent...)
}

func (f *fakeChannel) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type privateCall struct {
	self, peer wire.ID
	limit      int
}

// fakeFetcher serves canned history. With a gate it blocks until the gate is
// closed or the view is torn down.
type fakeFetcher struct {
	group   []wire.ChatMessage
	private []wire.ChatMessage
	err     error
	gate    chan struct{}

	mu    sync.Mutex
	calls []privateCall
}

func (f *fakeFetcher) GroupHistory(ctx context.Context) ([]wire.ChatMessage, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.group, f.err
}

func (f *fakeFetcher) PrivateHistory(ctx context.Context, self, peer wire.ID, limit int) ([]wire.ChatMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, privateCall{self: self, peer: peer, limit: limit})
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.private, f.err
}

func (f *fakeFetcher) wait(ctx context.Context) error {
	if f.gate == nil {
		return nil
	}
	select {
	case <-f.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeFetcher) privateCalls() []privateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]privateCall(nil), f.calls...)
}
