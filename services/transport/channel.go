// Package transport keeps one duplex binary websocket to the chat server
// alive for as long as its owner wants it.
package transport

import (
	"context"
	"sync"
	"time"

	"novelchat/apperrors"
	"novelchat/config"
	"novelchat/pkg/logger"
	"novelchat/pkg/metrics"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
)

type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

type Option func(*Channel)

// WithOnStateChange registers fn to be called after every state transition.
// fn runs on the channel's goroutine and must not block.
func WithOnStateChange(fn func(State)) Option {
	return func(c *Channel) {
		c.onState = append(c.onState, fn)
	}
}

// WithClock replaces time.After for the reconnect delay.
func WithClock(after func(time.Duration) <-chan time.Time) Option {
	return func(c *Channel) {
		c.after = after
	}
}

// Channel is a self-healing websocket connection.
//
// After an unexpected close it waits exactly ReconnectDelay and dials once
// more, forever, until Close is called or the Start context ends. Inbound
// binary frames are delivered in order on Frames; text frames are dropped.
type Channel struct {
	id      string
	cfg     config.TransportConfig
	dialer  Dialer
	after   func(time.Duration) <-chan time.Time
	onState []func(State)
	log     *logger.Logger

	mu      sync.Mutex
	state   State
	conn    Conn
	started bool
	closed  bool
	cancel  context.CancelFunc

	writeMu sync.Mutex

	queue  *frameQueue
	frames chan []byte

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func New(cfg config.TransportConfig, dialer Dialer, opts ...Option) *Channel {
	cfg = withDefaults(cfg)
	if dialer == nil {
		dialer = NewDialer(cfg.HandshakeTimeout)
	}

	c := &Channel{
		id:     uuid.NewString(),
		cfg:    cfg,
		dialer: dialer,
		after:  time.After,
		state:  StateConnecting,
		queue:  newFrameQueue(),
		frames: make(chan []byte),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.log = logger.WithComponent("transport").WithFields(map[string]any{
		"channel_id": c.id,
		"endpoint":   cfg.URL,
	})
	return c
}

func withDefaults(cfg config.TransportConfig) config.TransportConfig {
	d := config.Default().Transport
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = d.ReconnectDelay
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = d.HandshakeTimeout
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = d.PongWait
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = d.WriteWait
	}
	if cfg.MaxFrameSize <= 0 {
		cfg.MaxFrameSize = d.MaxFrameSize
	}
	return cfg
}

func (c *Channel) ID() string {
	return c.id
}

// OnStateChange adds an observer after construction, with the same rules as
// WithOnStateChange.
func (c *Channel) OnStateChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = append(c.onState, fn)
}

// Start begins connecting in the background. It is a no-op after the first
// call or after Close.
func (c *Channel) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started || c.closed {
		return
	}
	c.started = true

	ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(2)
	go c.connectLoop(ctx)
	go c.deliver(ctx)
}

// Frames delivers inbound binary frames. It is closed by Close.
func (c *Channel) Frames() <-chan []byte {
	return c.frames
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send writes b as one binary frame. It fails with NOT_CONNECTED unless the
// channel is OPEN; nothing is queued for later.
func (c *Channel) Send(b []byte) error {
	c.mu.Lock()
	conn, state := c.conn, c.state
	c.mu.Unlock()

	if state != StateOpen || conn == nil {
		metrics.RecordSendFailure(string(apperrors.ErrCodeNotConnected))
		return apperrors.NewNotConnectedError(state.String())
	}

	if err := c.write(conn, websocket.BinaryMessage, b); err != nil {
		metrics.RecordSendFailure(string(apperrors.ErrCodeNetwork))
		appErr := apperrors.NewNetworkError("write", c.cfg.URL, err)
		c.log.LogAppError(appErr, logger.WARN)
		// the read loop notices the dead socket and schedules the reconnect
		conn.Close()
		return appErr
	}

	metrics.IncrementFramesSent()
	return nil
}

// Close tears the channel down for good: no reconnect is scheduled, every
// goroutine has exited and Frames is closed when it returns. Safe to call
// more than once.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		cancel, conn := c.cancel, c.conn
		c.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if conn != nil {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			if err := c.write(conn, websocket.CloseMessage, msg); err != nil {
				c.log.WithError(err).Debug("Close frame not sent")
			}
			conn.Close()
		}

		c.wg.Wait()
		c.setState(StateClosed)
		close(c.frames)

		c.log.WithField("undelivered", c.queue.len()).Info("Channel closed")
	})
	return nil
}

func (c *Channel) connectLoop(ctx context.Context) {
	defer c.wg.Done()

	for attempt := 1; ; attempt++ {
		c.setState(StateConnecting)

		conn, err := c.dialer.Dial(ctx, c.cfg.URL)
		metrics.RecordConnectAttempt(err == nil)
		if ctx.Err() != nil {
			if conn != nil {
				conn.Close()
			}
			return
		}

		if err != nil {
			c.log.WithFields(map[string]any{
				"attempt": attempt,
				"error":   err.Error(),
			}).Warn("Dial failed")
			c.setState(StateClosed)
		} else {
			c.serve(ctx, conn)
			if ctx.Err() != nil {
				return
			}
		}

		metrics.IncrementReconnects()
		c.log.WithField("delay", c.cfg.ReconnectDelay.String()).Info("Reconnect scheduled")

		select {
		case <-c.after(c.cfg.ReconnectDelay):
		case <-ctx.Done():
			return
		}
	}
}

// serve runs one connection until it fails.
func (c *Channel) serve(ctx context.Context, conn Conn) {
	conn.SetReadLimit(c.cfg.MaxFrameSize)
	conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.mu.Unlock()
	c.setState(StateOpen)
	c.log.Info("Connected")

	done := make(chan struct{})
	var pinger sync.WaitGroup
	pinger.Add(1)
	go func() {
		defer pinger.Done()
		c.pingLoop(conn, done)
	}()

	c.readLoop(ctx, conn)

	close(done)
	conn.Close()
	pinger.Wait()

	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
	if ctx.Err() == nil {
		c.setState(StateClosed)
	}
}

func (c *Channel) readLoop(ctx context.Context, conn Conn) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.log.LogAppError(apperrors.NewNetworkError("read", c.cfg.URL, err), logger.WARN)
			}
			return
		}

		if messageType != websocket.BinaryMessage {
			c.log.WithFields(map[string]any{
				"message_type": messageType,
				"size":         len(data),
			}).Warn("Discarding non-binary frame")
			continue
		}

		metrics.IncrementFramesReceived()
		c.queue.push(data)
	}
}

func (c *Channel) pingLoop(conn Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.write(conn, websocket.PingMessage, nil); err != nil {
				c.log.WithError(err).Debug("Ping failed")
				conn.Close()
				return
			}
		}
	}
}

func (c *Channel) deliver(ctx context.Context) {
	defer c.wg.Done()

	for {
		b, ok := c.queue.pop()
		if !ok {
			select {
			case <-c.queue.notify:
				continue
			case <-ctx.Done():
				return
			}
		}

		select {
		case c.frames <- b:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Channel) write(conn Conn, messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	return conn.WriteMessage(messageType, data)
}

func (c *Channel) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	observers := c.onState
	c.mu.Unlock()

	metrics.SetConnectionState(int(s))
	c.log.WithField("state", s.String()).Debug("State changed")
	for _, fn := range observers {
		fn(s)
	}
}
