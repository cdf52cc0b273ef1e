// Package history merges a one-shot history fetch with the live stream of
// one conversation.
package history

import (
	"sync"

	"novelchat/pkg/metrics"
	"novelchat/pkg/wire"
	"novelchat/services/conversation"
)

type State int

const (
	StateEmpty State = iota
	StateLoading
	StateReady
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "EMPTY"
	case StateLoading:
		return "LOADING"
	case StateReady:
		return "READY"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

type Option func(*Reconciler)

// WithDedupe drops a streamed message whose fingerprint already appears in
// the list. Without it a message delivered both by the fetch and by the
// stream shows up twice.
func WithDedupe() Option {
	return func(r *Reconciler) {
		r.dedupe = true
	}
}

// Reconciler owns the ordered message list of one conversation.
//
// Streamed messages that arrive before the history seed are held back and
// appended right after it, in arrival order. Once terminated the list never
// changes again.
type Reconciler struct {
	mu      sync.Mutex
	scope   conversation.Scope
	state   State
	list    []wire.ChatMessage
	pending []wire.ChatMessage

	dedupe bool
	seen   map[fingerprint]struct{}
}

func New(scope conversation.Scope, opts ...Option) *Reconciler {
	r := &Reconciler{scope: scope}
	for _, opt := range opts {
		opt(r)
	}
	if r.dedupe {
		r.seen = make(map[fingerprint]struct{})
	}
	return r
}

func (r *Reconciler) Scope() conversation.Scope {
	return r.scope
}

// BeginLoad marks the history fetch as in flight. It is a no-op in any state
// other than EMPTY.
func (r *Reconciler) BeginLoad() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateEmpty {
		r.state = StateLoading
	}
}

// Seed replaces the list with the fetched history and then flushes messages
// that streamed in while it loaded. It returns false, leaving everything
// untouched, once the reconciler is terminated.
func (r *Reconciler) Seed(list []wire.ChatMessage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateTerminated {
		metrics.IncrementHistoryDiscarded()
		return false
	}

	r.list = make([]wire.ChatMessage, 0, len(list)+len(r.pending))
	if r.dedupe {
		r.seen = make(map[fingerprint]struct{}, len(list))
	}
	for _, m := range list {
		r.push(m)
	}

	pending := r.pending
	r.pending = nil
	for _, m := range pending {
		if r.dedupe && r.has(m) {
			continue
		}
		r.push(m)
	}

	r.state = StateReady
	return true
}

// Append adds a streamed message to the tail if the scope accepts it. Before
// the seed the message is queued. It returns whether the message was kept.
func (r *Reconciler) Append(m wire.ChatMessage) bool {
	accepted := conversation.Accept(m, r.scope)
	metrics.RecordFilterOutcome(accepted)
	if !accepted {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateTerminated:
		return false
	case StateEmpty, StateLoading:
		r.pending = append(r.pending, m)
		return true
	}

	if r.dedupe && r.has(m) {
		return false
	}
	r.push(m)
	return true
}

// Terminate freezes the reconciler. Later Seed and Append calls are ignored.
func (r *Reconciler) Terminate() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state = StateTerminated
	r.pending = nil
}

// Messages returns a copy of the current list.
func (r *Reconciler) Messages() []wire.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]wire.ChatMessage, len(r.list))
	copy(out, r.list)
	return out
}

func (r *Reconciler) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.list)
}

func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reconciler) push(m wire.ChatMessage) {
	r.list = append(r.list, m)
	if r.dedupe {
		r.seen[fingerprintOf(m)] = struct{}{}
	}
}

func (r *Reconciler) has(m wire.ChatMessage) bool {
	_, ok := r.seen[fingerprintOf(m)]
	return ok
}

// History records carry a backend id that frames do not, so identity is the
// frame content.
type fingerprint struct {
	sender    wire.ID
	receiver  wire.ID
	kind      wire.Kind
	content   string
	fileURL   string
	timestamp string
}

func fingerprintOf(m wire.ChatMessage) fingerprint {
	return fingerprint{
		sender:    m.SenderID,
		receiver:  m.ReceiverID,
		kind:      m.Kind,
		content:   m.Content,
		fileURL:   m.FileURL,
		timestamp: m.Timestamp,
	}
}
