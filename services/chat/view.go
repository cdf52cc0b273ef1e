// Package chat mounts one conversation: it seeds the message list from
// history, streams new frames into it and sends what the user types.
package chat

import (
	"context"
	"sync"
	"time"

	"novelchat/apperrors"
	"novelchat/config"
	"novelchat/pkg/logger"
	"novelchat/pkg/metrics"
	"novelchat/pkg/wire"
	"novelchat/services/api"
	"novelchat/services/conversation"
	"novelchat/services/history"
	"novelchat/services/sessions"
	"novelchat/services/transport"
	"novelchat/services/uploads"

	"github.com/google/uuid"
)

const DefaultEventBuffer = 256

// Channel is the transport a view owns. *transport.Channel implements it.
type Channel interface {
	Start(ctx context.Context)
	Frames() <-chan []byte
	Send(b []byte) error
	State() transport.State
	OnStateChange(fn func(transport.State))
	Close() error
}

// Fetcher loads the history of a scope. *api.Client implements it.
type Fetcher interface {
	GroupHistory(ctx context.Context) ([]wire.ChatMessage, error)
	PrivateHistory(ctx context.Context, self, peer wire.ID, limit int) ([]wire.ChatMessage, error)
}

type Option func(*View)

// WithClock replaces time.Now for outbound timestamps.
func WithClock(now func() time.Time) Option {
	return func(v *View) {
		v.now = now
	}
}

// WithEventBuffer sets how many events may wait for the UI before new ones
// are dropped.
func WithEventBuffer(n int) Option {
	return func(v *View) {
		if n > 0 {
			v.eventBuffer = n
		}
	}
}

type historyResult struct {
	list []wire.ChatMessage
	err  error
}

type sendRequest struct {
	frame []byte
	reply chan error
}

// View is one mounted conversation. All list mutations and sends run on a
// single loop goroutine. Close must be called on every exit path.
type View struct {
	id       string
	session  sessions.Session
	scope    conversation.Scope
	channel  Channel
	fetcher  Fetcher
	limit    int
	now      func() time.Time
	log      *logger.Logger
	messages *history.Reconciler

	eventBuffer int
	events      chan Event
	history     chan historyResult
	sends       chan sendRequest

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Open mounts a view for scope. It starts the history fetch and the channel
// and returns immediately; progress is reported on Events.
func Open(ctx context.Context, session sessions.Session, scope conversation.Scope, channel Channel,
	fetcher Fetcher, cfg config.HistoryConfig, opts ...Option) (*View, error) {
	if session.UserID == 0 {
		return nil, apperrors.NewValidationError("Session has no user id")
	}
	if channel == nil || fetcher == nil {
		return nil, apperrors.NewInternalError("chat view needs a channel and a history fetcher")
	}
	if !scope.IsGroup() && scope.Self() != session.UserID {
		return nil, apperrors.NewValidationError("Private scope does not belong to the session user").
			WithDetails("scope", scope.String())
	}

	var reconcilerOpts []history.Option
	if cfg.Dedupe {
		reconcilerOpts = append(reconcilerOpts, history.WithDedupe())
	}

	v := &View{
		id:          uuid.NewString(),
		session:     session,
		scope:       scope,
		channel:     channel,
		fetcher:     fetcher,
		limit:       cfg.Limit,
		now:         time.Now,
		messages:    history.New(scope, reconcilerOpts...),
		eventBuffer: DefaultEventBuffer,
		history:     make(chan historyResult),
		sends:       make(chan sendRequest),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.limit <= 0 {
		v.limit = config.Default().History.Limit
	}
	v.events = make(chan Event, v.eventBuffer)

	v.log = logger.WithComponent("chat").WithFields(map[string]any{
		"view_id": v.id,
		"user_id": session.UserID.String(),
		"scope":   scope.String(),
	})

	v.ctx, v.cancel = context.WithCancel(ctx)

	channel.OnStateChange(func(s transport.State) {
		v.emit(Event{Kind: EventStateChanged, State: s})
	})

	v.messages.BeginLoad()
	v.wg.Add(2)
	go v.fetch()
	go v.run()
	channel.Start(v.ctx)

	v.log.Info("View opened")
	return v, nil
}

func (v *View) ID() string {
	return v.id
}

func (v *View) Scope() conversation.Scope {
	return v.scope
}

func (v *View) Session() sessions.Session {
	return v.session
}

// Events is closed by Close.
func (v *View) Events() <-chan Event {
	return v.events
}

// Messages returns a copy of the current list.
func (v *View) Messages() []wire.ChatMessage {
	return v.messages.Messages()
}

func (v *View) HistoryState() history.State {
	return v.messages.State()
}

func (v *View) ConnectionState() transport.State {
	return v.channel.State()
}

func (v *View) SendText(text string) error {
	return v.send(wire.ChatMessage{Kind: wire.KindText, Content: text})
}

func (v *View) SendEmoji(emoji string) error {
	return v.send(wire.ChatMessage{Kind: wire.KindEmoji, Content: emoji})
}

// SendAttachment announces an uploaded image or file.
func (v *View) SendAttachment(att uploads.Attachment) error {
	return v.send(wire.ChatMessage{
		Kind:     att.Kind,
		FileURL:  att.URL,
		FileName: att.Name,
		FileSize: att.Size,
		Content:  att.Name,
	})
}

// send stamps m with the session identity and the scope's receiver, encodes
// it and writes one frame. Schema and connection errors are returned as is;
// nothing is retried.
func (v *View) send(m wire.ChatMessage) error {
	m.SenderID = v.session.UserID
	m.SenderNickname = v.session.DisplayName()
	m.SenderAvatar = v.session.Avatar
	m.Timestamp = v.now().UTC().Format(api.TimestampLayout)
	v.scope.Address(&m)

	frame, err := wire.Encode(m)
	if err != nil {
		metrics.RecordSendFailure(string(apperrors.ErrCodeSchema))
		return err
	}

	req := sendRequest{frame: frame, reply: make(chan error, 1)}
	select {
	case v.sends <- req:
	case <-v.ctx.Done():
		return apperrors.NewNotConnectedError(transport.StateClosed.String())
	}

	select {
	case err := <-req.reply:
		return err
	case <-v.ctx.Done():
		return apperrors.NewNotConnectedError(transport.StateClosed.String())
	}
}

// Close unmounts the view: the list stops changing, the channel is closed
// without a reconnect and a history result that arrives later is dropped.
// Safe to call more than once.
func (v *View) Close() error {
	v.closeOnce.Do(func() {
		v.messages.Terminate()
		v.cancel()
		v.channel.Close()
		v.wg.Wait()
		close(v.events)

		v.log.WithField("messages", v.messages.Len()).Info("View closed")
	})
	return nil
}

func (v *View) fetch() {
	defer v.wg.Done()

	var (
		list []wire.ChatMessage
		err  error
	)
	if v.scope.IsGroup() {
		list, err = v.fetcher.GroupHistory(v.ctx)
	} else {
		list, err = v.fetcher.PrivateHistory(v.ctx, v.scope.Self(), v.scope.Peer(), v.limit)
	}

	select {
	case v.history <- historyResult{list: list, err: err}:
	case <-v.ctx.Done():
		metrics.IncrementHistoryDiscarded()
	}
}

func (v *View) run() {
	defer v.wg.Done()

	frames := v.channel.Frames()
	for {
		select {
		case <-v.ctx.Done():
			return

		case res := <-v.history:
			v.seed(res)

		case b, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			v.receive(b)

		case req := <-v.sends:
			req.reply <- v.channel.Send(req.frame)
		}
	}
}

func (v *View) seed(res historyResult) {
	if res.err != nil {
		v.log.WithError(res.err).Warn("History fetch failed")
		v.emit(Event{Kind: EventHistoryFailed, Err: res.err})
	}

	// A failed fetch still seeds an empty list so streamed messages show up.
	if !v.messages.Seed(conversation.Filter(res.list, v.scope)) {
		return
	}
	snapshot := v.messages.Messages()
	v.emit(Event{Kind: EventHistorySeeded, Messages: snapshot, Count: len(snapshot)})
}

func (v *View) receive(b []byte) {
	m, err := wire.Decode(b)
	if err != nil {
		metrics.IncrementDecodeFailures()
		v.log.LogAppError(err, logger.WARN)
		v.emit(Event{Kind: EventDecodeDropped, Err: err})
		return
	}

	if !v.messages.Append(m) {
		return
	}
	if v.messages.State() == history.StateReady {
		v.emit(Event{Kind: EventMessage, Message: m})
	}
}

// emit never blocks; a UI that stops draining loses events, not messages.
func (v *View) emit(e Event) {
	select {
	case v.events <- e:
	default:
		metrics.IncrementEventsDropped()
		v.log.WithField("event", e.Kind.String()).Debug("Event dropped")
	}
}
