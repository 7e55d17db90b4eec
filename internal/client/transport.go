package client

import (
	"net/http"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"

	"ruleboard/internal/protocol"
)

// Status is the transport's connection status as observers see it.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
)

const (
	defaultReconnectDelay    = 750 * time.Millisecond
	defaultMaxReconnectDelay = 8 * time.Second
	backoffFactor            = 1.6
)

// Unsubscribe removes a previously registered observer.
type Unsubscribe func()

// Dialer abstracts the websocket dial so tests can substitute endpoints.
type Dialer interface {
	Dial(urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

type Options struct {
	URL               string
	Dialer            Dialer        // defaults to websocket.DefaultDialer
	ReconnectDelay    time.Duration // base backoff delay, default 750ms
	MaxReconnectDelay time.Duration // backoff cap, default 8s
}

// Transport keeps one logical duplex link alive over an unreliable
// physical websocket. It reconnects with exponential backoff until
// Disconnect, which is terminal.
type Transport struct {
	url    string
	dialer Dialer

	mu             sync.Mutex
	sock           *websocket.Conn
	dialing        bool
	status         Status
	shouldRun      bool
	reconnectTimer *time.Timer

	baseDelay time.Duration
	maxDelay  time.Duration
	curDelay  time.Duration

	nextObserverID  int
	msgObservers    map[int]func(protocol.Envelope)
	statusObservers map[int]func(Status)

	writeMu sync.Mutex
}

func NewTransport(opts Options) *Transport {
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	base := opts.ReconnectDelay
	if base <= 0 {
		base = defaultReconnectDelay
	}
	max := opts.MaxReconnectDelay
	if max <= 0 {
		max = defaultMaxReconnectDelay
	}

	return &Transport{
		url:             opts.URL,
		dialer:          dialer,
		status:          StatusDisconnected,
		shouldRun:       true,
		baseDelay:       base,
		maxDelay:        max,
		curDelay:        base,
		msgObservers:    make(map[int]func(protocol.Envelope)),
		statusObservers: make(map[int]func(Status)),
	}
}

func (t *Transport) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Connect is idempotent: a no-op while a connection is open or in
// progress, and permanently inert after Disconnect.
func (t *Transport) Connect() {
	t.mu.Lock()
	if !t.shouldRun || t.sock != nil || t.dialing {
		t.mu.Unlock()
		return
	}
	t.dialing = true
	connected := t.status == StatusConnected
	t.mu.Unlock()

	if !connected {
		t.setStatus(StatusConnecting)
	}

	go t.dial()
}

func (t *Transport) dial() {
	sock, _, err := t.dialer.Dial(t.url, nil)

	t.mu.Lock()
	t.dialing = false

	if !t.shouldRun {
		t.mu.Unlock()
		if sock != nil {
			sock.Close()
		}
		return
	}

	if err != nil {
		slog.Debug("Dial failed", "url", t.url, "error", err)
		t.scheduleReconnectLocked()
		t.mu.Unlock()
		t.setStatus(StatusDisconnected)
		return
	}

	t.sock = sock
	// Backoff resets to base only on a successful open.
	t.curDelay = t.baseDelay
	t.mu.Unlock()

	t.setStatus(StatusConnected)
	go t.readLoop(sock)
}

func (t *Transport) readLoop(sock *websocket.Conn) {
	for {
		_, data, err := sock.ReadMessage()
		if err != nil {
			t.handleClose(sock)
			return
		}

		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			// Malformed frames must never take the link down.
			continue
		}

		for _, observer := range t.snapshotMsgObservers() {
			observer(env)
		}
	}
}

// handleClose runs the single reconnect path. Network errors always
// precede a close, so this is the only place a retry is scheduled.
func (t *Transport) handleClose(sock *websocket.Conn) {
	t.mu.Lock()
	if t.sock != sock {
		// A stale read loop for a link already replaced or torn down.
		t.mu.Unlock()
		return
	}
	t.sock = nil

	wasConnected := t.status == StatusConnected
	if t.shouldRun {
		t.scheduleReconnectLocked()
	}
	t.mu.Unlock()

	if wasConnected {
		t.setStatus(StatusReconnecting)
	} else {
		t.setStatus(StatusDisconnected)
	}
}

// scheduleReconnectLocked arms the reconnect timer, cancelling any pending
// one first so duplicate timers cannot coexist. The delay grows by a fixed
// factor up to the cap; it never grows on open, only on retry.
func (t *Transport) scheduleReconnectLocked() {
	if t.reconnectTimer != nil {
		t.reconnectTimer.Stop()
	}

	delay := t.curDelay
	next := time.Duration(float64(t.curDelay) * backoffFactor)
	if next > t.maxDelay {
		next = t.maxDelay
	}
	t.curDelay = next

	t.reconnectTimer = time.AfterFunc(delay, t.Connect)
}

// Disconnect tears the transport down for good: it cancels any pending
// reconnect, closes the link and suppresses all future reconnects. A new
// Transport is required to connect again.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	t.shouldRun = false
	if t.reconnectTimer != nil {
		t.reconnectTimer.Stop()
		t.reconnectTimer = nil
	}
	sock := t.sock
	t.sock = nil
	t.mu.Unlock()

	if sock != nil {
		sock.Close()
	}
	t.setStatus(StatusDisconnected)
}

// Send writes one message if the link is open. Best-effort: it reports
// failure instead of queueing or blocking for a reconnect.
func (t *Transport) Send(v any) bool {
	t.mu.Lock()
	sock := t.sock
	connected := t.status == StatusConnected
	t.mu.Unlock()

	if sock == nil || !connected {
		return false
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := sock.WriteJSON(v); err != nil {
		slog.Debug("Send failed", "error", err)
		return false
	}
	return true
}

// OnMessage registers an inbound envelope observer.
func (t *Transport) OnMessage(observer func(protocol.Envelope)) Unsubscribe {
	t.mu.Lock()
	id := t.nextObserverID
	t.nextObserverID++
	t.msgObservers[id] = observer
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.msgObservers, id)
		t.mu.Unlock()
	}
}

// OnStatus registers a status observer and immediately replays the current
// status to it, so a late registration never misses the initial state.
func (t *Transport) OnStatus(observer func(Status)) Unsubscribe {
	t.mu.Lock()
	id := t.nextObserverID
	t.nextObserverID++
	t.statusObservers[id] = observer
	current := t.status
	t.mu.Unlock()

	observer(current)

	return func() {
		t.mu.Lock()
		delete(t.statusObservers, id)
		t.mu.Unlock()
	}
}

func (t *Transport) setStatus(next Status) {
	t.mu.Lock()
	if t.status == next {
		t.mu.Unlock()
		return
	}
	t.status = next
	observers := make([]func(Status), 0, len(t.statusObservers))
	for _, observer := range t.statusObservers {
		observers = append(observers, observer)
	}
	t.mu.Unlock()

	for _, observer := range observers {
		observer(next)
	}
}

func (t *Transport) snapshotMsgObservers() []func(protocol.Envelope) {
	t.mu.Lock()
	defer t.mu.Unlock()

	observers := make([]func(protocol.Envelope), 0, len(t.msgObservers))
	for _, observer := range t.msgObservers {
		observers = append(observers, observer)
	}
	return observers
}
