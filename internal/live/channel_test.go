package live

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errDial   = errors.New("connection refused")
	errClosed = errors.New("use of closed connection")
)

type fakeConn struct {
	in        chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	written []map[string]any
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.in:
		return data, nil
	case <-c.closed:
		return nil, errClosed
	}
}

func (c *fakeConn) WriteJSON(v any) error {
	select {
	case <-c.closed:
		return errClosed
	default:
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	c.mu.Lock()
	c.written = append(c.written, m)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) writes() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]map[string]any(nil), c.written...)
}

// fakeDialer fails the first failN dials (all of them when failN < 0).
// When gate is set every dial waits for it first.
type fakeDialer struct {
	mu    sync.Mutex
	failN int
	calls int
	conns []*fakeConn
	gate  chan struct{}
}

func (d *fakeDialer) Dial(ctx context.Context) (Conn, error) {
	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.failN < 0 || d.calls <= d.failN {
		return nil, errDial
	}
	conn := newFakeConn()
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.conns) {
		return nil
	}
	return d.conns[i]
}

func newTestChannel(t *testing.T, dialer Dialer, cfg Config) *Channel {
	t.Helper()
	nop := zerolog.Nop()
	cfg.Logger = &nop
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = time.Millisecond
	}
	ch := NewChannel(dialer, cfg)
	t.Cleanup(func() { _ = ch.Close() })
	return ch
}

func waitConnected(t *testing.T, ch *Channel) {
	t.Helper()
	require.Eventually(t, func() bool {
		return ch.State() == StateConnected
	}, time.Second, time.Millisecond)
}

func TestChannel_GivesUpAfterMaxAttempts(t *testing.T) {
	dialer := &fakeDialer{failN: -1}
	gaveUp := make(chan error, 2)
	ch := newTestChannel(t, dialer, Config{
		MaxAttempts: 5,
		OnGiveUp:    func(err error) { gaveUp <- err },
	})

	ch.Connect(context.Background())

	select {
	case err := <-gaveUp:
		assert.ErrorIs(t, err, ErrGaveUp)
	case <-time.After(2 * time.Second):
		t.Fatal("channel never gave up")
	}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 6, dialer.dials(), "initial open plus exactly 5 reconnects")
	assert.Equal(t, StateDisconnected, ch.State())
	assert.Equal(t, 5, ch.Status().ReconnectAttempts)
	assert.Len(t, gaveUp, 0, "give up is reported once")
}

func TestChannel_ConnectAfterGiveUpResetsCounter(t *testing.T) {
	dialer := &fakeDialer{failN: 2}
	gaveUp := make(chan error, 1)
	ch := newTestChannel(t, dialer, Config{
		MaxAttempts: 1,
		OnGiveUp:    func(err error) { gaveUp <- err },
	})

	ch.Connect(context.Background())
	select {
	case <-gaveUp:
	case <-time.After(time.Second):
		t.Fatal("channel never gave up")
	}
	assert.Equal(t, 2, dialer.dials())

	ch.Connect(context.Background())
	waitConnected(t, ch)
	assert.Equal(t, 3, dialer.dials())
	assert.Equal(t, 0, ch.Status().ReconnectAttempts)
}

func TestChannel_SubscribeBeforeConnectSendsOnce(t *testing.T) {
	dialer := &fakeDialer{}
	ch := newTestChannel(t, dialer, Config{})

	ch.Subscribe("game-updates", SubscribeParams{UserID: "user-7"})
	ch.Connect(context.Background())
	waitConnected(t, ch)

	conn := dialer.conn(0)
	require.NotNil(t, conn)
	require.Eventually(t, func() bool { return len(conn.writes()) == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	writes := conn.writes()
	require.Len(t, writes, 1)
	assert.Equal(t, map[string]any{"type": "subscribe", "channel": "game-updates", "userId": "user-7"}, writes[0])
}

func TestChannel_SubscribeWhileConnected(t *testing.T) {
	dialer := &fakeDialer{}
	ch := newTestChannel(t, dialer, Config{})

	ch.Connect(context.Background())
	waitConnected(t, ch)

	ch.Subscribe("odds", SubscribeParams{})
	ch.Subscribe("odds", SubscribeParams{})

	writes := dialer.conn(0).writes()
	require.Len(t, writes, 2)
	assert.Equal(t, map[string]any{"type": "subscribe", "channel": "odds"}, writes[0])
	assert.Equal(t, []string{"odds"}, ch.Status().Subscriptions, "duplicate channels are stored once")
}

func TestChannel_ReconnectResubscribes(t *testing.T) {
	dialer := &fakeDialer{}
	ch := newTestChannel(t, dialer, Config{})

	ch.Subscribe("game-updates", SubscribeParams{})
	ch.Connect(context.Background())
	waitConnected(t, ch)

	first := dialer.conn(0)
	require.Eventually(t, func() bool { return len(first.writes()) == 1 }, time.Second, time.Millisecond)
	_ = first.Close()

	require.Eventually(t, func() bool {
		c := dialer.conn(1)
		return c != nil && len(c.writes()) == 1
	}, time.Second, time.Millisecond)
	waitConnected(t, ch)
	assert.Equal(t, 2, dialer.dials())
	assert.Equal(t, 0, ch.Status().ReconnectAttempts)
	assert.Equal(t, "game-updates", dialer.conn(1).writes()[0]["channel"])
}

func TestChannel_ConnectIsIdempotent(t *testing.T) {
	dialer := &fakeDialer{gate: make(chan struct{})}
	ch := newTestChannel(t, dialer, Config{})

	ch.Connect(context.Background())
	ch.Connect(context.Background())
	assert.Equal(t, StateConnecting, ch.State())

	close(dialer.gate)
	waitConnected(t, ch)
	ch.Connect(context.Background())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, dialer.dials())
}

func TestChannel_CloseCancelsPendingReconnect(t *testing.T) {
	dialer := &fakeDialer{failN: -1}
	ch := newTestChannel(t, dialer, Config{BaseDelay: 50 * time.Millisecond})

	ch.Subscribe("game-updates", SubscribeParams{})
	ch.Connect(context.Background())
	require.Eventually(t, func() bool {
		return ch.Status().ReconnectAttempts == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, ch.Close())
	time.Sleep(150 * time.Millisecond)

	assert.Equal(t, 1, dialer.dials())
	st := ch.Status()
	assert.Equal(t, StateDisconnected, st.State)
	assert.Empty(t, st.Subscriptions)
}

func TestChannel_CloseDiscardsInFlightOpen(t *testing.T) {
	dialer := &fakeDialer{gate: make(chan struct{})}
	ch := newTestChannel(t, dialer, Config{})

	ch.Connect(context.Background())
	require.NoError(t, ch.Close())
	close(dialer.gate)

	require.Eventually(t, func() bool {
		c := dialer.conn(0)
		return c != nil && c.isClosed()
	}, time.Second, time.Millisecond)
	assert.Equal(t, StateDisconnected, ch.State())
}

func TestChannel_CloseWhileConnected(t *testing.T) {
	dialer := &fakeDialer{}
	ch := newTestChannel(t, dialer, Config{})

	ch.Connect(context.Background())
	waitConnected(t, ch)
	require.NoError(t, ch.Close())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, dialer.conn(0).isClosed())
	assert.Equal(t, 1, dialer.dials(), "explicit close never reconnects")
	assert.Equal(t, StateDisconnected, ch.State())
}

func TestChannel_Dispatch(t *testing.T) {
	dialer := &fakeDialer{}
	ch := newTestChannel(t, dialer, Config{})

	var mu sync.Mutex
	var order []string
	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	ch.OnMessage(TypeProbabilityUpdate, func(Message) { record("first") })
	Handle(ch, func(u ProbabilityUpdate) { record("second:" + u.GameID) })
	Handle(ch, func(SubscriptionConfirmed) { record("confirmed") })

	ch.Connect(context.Background())
	waitConnected(t, ch)

	conn := dialer.conn(0)
	conn.in <- []byte(`{not json`)
	conn.in <- []byte(`{"type":"score-update","gameId":"1"}`)
	conn.in <- []byte(`{"gameId":"1"}`)
	conn.in <- []byte(`{"type":"probability-update","gameId":"401547","probabilities":{"home":0.61,"away":0.39},"gameState":{"quarter":3}}`)
	conn.in <- []byte(`{"type":"subscription-confirmed","channel":"game-updates"}`)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, time.Second, time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"first", "second:401547", "confirmed"}, order)
	mu.Unlock()
	assert.Equal(t, StateConnected, ch.State(), "bad frames never change state")
}
