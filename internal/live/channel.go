// Package live maintains the push connection that delivers live game updates
// and dispatches them to registered handlers, reconnecting with linear backoff.
package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/guttosm/sunday-edge/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State of a Channel.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ErrGaveUp is passed to OnGiveUp once automatic reconnects are exhausted.
var ErrGaveUp = errors.New("live: gave up reconnecting")

const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = time.Second
)

// Config configures a Channel.
type Config struct {
	// MaxAttempts is the number of automatic reconnects after a drop or failed
	// open. Zero means DefaultMaxAttempts; negative disables reconnects.
	MaxAttempts int
	// BaseDelay is multiplied by the attempt number to get the reconnect delay.
	BaseDelay time.Duration
	// OnGiveUp is called once per exhausted reconnect cycle. It must not block.
	OnGiveUp func(err error)
	Logger   *zerolog.Logger
}

// Handler receives a decoded inbound message.
type Handler func(msg Message)

// SubscribeParams are sent along with a subscribe request.
type SubscribeParams struct {
	UserID string
}

// Status is a diagnostic snapshot of a Channel.
type Status struct {
	State             State    `json:"state"`
	ReconnectAttempts int      `json:"reconnect_attempts"`
	Subscriptions     []string `json:"subscriptions"`
	LastError         string   `json:"last_error,omitempty"`
}

// Channel owns at most one underlying connection at a time. Each dial or
// close bumps a generation counter so results of superseded attempts and
// timers scheduled before Close are discarded.
type Channel struct {
	dialer Dialer
	cfg    Config
	log    zerolog.Logger

	mu       sync.Mutex
	state    State
	attempts int
	gen      uint64
	conn     Conn
	timer    *time.Timer
	lastErr  error
	subs     []subscribeMessage
	handlers map[MessageType][]Handler

	writeMu sync.Mutex
}

// NewChannel creates a disconnected Channel. Call Connect to open it.
func NewChannel(dialer Dialer, cfg Config) *Channel {
	if cfg.MaxAttempts < 0 {
		cfg.MaxAttempts = 0
	} else if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	logger := log.Logger.With().Str("component", "live").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Channel{
		dialer:   dialer,
		cfg:      cfg,
		log:      logger,
		handlers: make(map[MessageType][]Handler),
	}
}

// Connect opens the connection in the background. It is a no-op while
// connecting or connected, and resets the reconnect counter otherwise.
// ctx bounds every dial, including automatic reconnects.
func (c *Channel) Connect(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()
	c.attempts = 0
	gen := c.beginAttemptLocked()
	c.mu.Unlock()

	go c.dial(ctx, gen)
}

// Subscribe records channel and sends the subscribe request now if
// connected, otherwise on the next successful open.
func (c *Channel) Subscribe(channel string, params SubscribeParams) {
	msg := subscribeMessage{Type: TypeSubscribe, Channel: channel, UserID: params.UserID}

	c.mu.Lock()
	replaced := false
	for i := range c.subs {
		if c.subs[i].Channel == channel {
			c.subs[i] = msg
			replaced = true
			break
		}
	}
	if !replaced {
		c.subs = append(c.subs, msg)
	}
	var conn Conn
	if c.state == StateConnected {
		conn = c.conn
	}
	c.mu.Unlock()

	if conn == nil {
		c.log.Debug().Str("channel", channel).Msg("Subscription queued until connected")
		return
	}
	if err := c.send(conn, msg); err != nil {
		c.log.Warn().Err(err).Str("channel", channel).Msg("Failed to send subscribe request")
		return
	}
	c.log.Info().Str("channel", channel).Msg("Subscribed to live channel")
}

// OnMessage registers h for messages of type t. Handlers run in
// registration order on the read goroutine.
func (c *Channel) OnMessage(t MessageType, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[t] = append(c.handlers[t], h)
}

// Handle registers fn for the message type M.
func Handle[M Message](c *Channel, fn func(M)) {
	var zero M
	c.OnMessage(zero.Kind(), func(msg Message) {
		if m, ok := msg.(M); ok {
			fn(m)
		}
	})
}

// Close tears down the connection, clears subscriptions and cancels any
// pending reconnect. Connect must be called again to resume.
func (c *Channel) Close() error {
	c.mu.Lock()
	c.gen++
	c.stopTimerLocked()
	conn := c.conn
	c.conn = nil
	c.subs = nil
	c.attempts = 0
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

// State returns the current state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns a diagnostic snapshot.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	subs := make([]string, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s.Channel)
	}
	st := Status{
		State:             c.state,
		ReconnectAttempts: c.attempts,
		Subscriptions:     subs,
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	return st
}

func (c *Channel) beginAttemptLocked() uint64 {
	c.gen++
	c.setStateLocked(StateConnecting)
	return c.gen
}

func (c *Channel) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.log.Info().Str("from", c.state.String()).Str("to", s.String()).Msg("Live channel state changed")
	c.state = s
	metrics.SetLiveState(int(s))
}

func (c *Channel) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Channel) dial(ctx context.Context, gen uint64) {
	conn, err := c.dialer.Dial(ctx)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		c.lastErr = err
		c.setStateLocked(StateDisconnected)
		gaveUp := c.retryLocked(ctx)
		attempts := c.attempts
		c.mu.Unlock()

		c.log.Warn().Err(err).Int("attempt", attempts).Msg("Live channel open failed")
		metrics.RecordLiveReconnect("failed")
		if gaveUp {
			c.giveUp(attempts, err)
		}
		return
	}

	c.conn = conn
	c.attempts = 0
	c.lastErr = nil
	c.setStateLocked(StateConnected)
	subs := append([]subscribeMessage(nil), c.subs...)
	c.mu.Unlock()

	metrics.RecordLiveReconnect("connected")
	for _, s := range subs {
		if err := c.send(conn, s); err != nil {
			c.log.Warn().Err(err).Str("channel", s.Channel).Msg("Failed to resend subscription")
		}
	}

	c.readLoop(ctx, conn, gen)
}

func (c *Channel) readLoop(ctx context.Context, conn Conn, gen uint64) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			c.dropped(ctx, conn, gen, err)
			return
		}
		c.dispatch(data)
	}
}

func (c *Channel) dropped(ctx context.Context, conn Conn, gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.lastErr = err
	c.setStateLocked(StateDisconnected)
	gaveUp := c.retryLocked(ctx)
	attempts := c.attempts
	c.mu.Unlock()

	_ = conn.Close()
	c.log.Warn().Err(err).Msg("Live channel connection lost")
	if gaveUp {
		c.giveUp(attempts, err)
	}
}

// retryLocked schedules the next reconnect and reports whether the retry
// budget is exhausted.
func (c *Channel) retryLocked(ctx context.Context) bool {
	if ctx.Err() != nil {
		c.log.Info().Msg("Live channel context done, not reconnecting")
		return false
	}
	if c.attempts >= c.cfg.MaxAttempts {
		return true
	}
	c.attempts++
	delay := c.cfg.BaseDelay * time.Duration(c.attempts)
	gen := c.gen
	c.timer = time.AfterFunc(delay, func() {
		c.reconnect(ctx, gen)
	})
	c.log.Info().Int("attempt", c.attempts).Dur("delay", delay).Msg("Scheduled live channel reconnect")
	return false
}

func (c *Channel) reconnect(ctx context.Context, gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	next := c.beginAttemptLocked()
	c.mu.Unlock()

	metrics.RecordLiveReconnect("attempt")
	c.dial(ctx, next)
}

func (c *Channel) giveUp(attempts int, last error) {
	metrics.RecordLiveReconnect("gave_up")
	c.log.Error().Err(last).Int("attempts", attempts).Msg("Live channel gave up reconnecting")
	if c.cfg.OnGiveUp != nil {
		c.cfg.OnGiveUp(fmt.Errorf("%w after %d attempts: %v", ErrGaveUp, attempts, last))
	}
}

func (c *Channel) send(conn Conn, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(v)
}

func (c *Channel) dispatch(data []byte) {
	msg, err := Decode(data)
	if err != nil {
		t := string(typeOf(data))
		switch {
		case errors.Is(err, ErrUnknownMessageType):
			metrics.RecordLiveMessage(t, "ignored")
			c.log.Debug().Str("type", t).Msg("Ignoring unknown live message type")
		default:
			metrics.RecordLiveMessage(t, "malformed")
			c.log.Warn().Err(err).Msg("Dropping malformed live message")
		}
		return
	}

	c.mu.Lock()
	handlers := append([]Handler(nil), c.handlers[msg.Kind()]...)
	c.mu.Unlock()

	metrics.RecordLiveMessage(string(msg.Kind()), "dispatched")
	c.log.Debug().Str("type", string(msg.Kind())).Int("handlers", len(handlers)).Msg("Live message received")
	for _, h := range handlers {
		h(msg)
	}
}
