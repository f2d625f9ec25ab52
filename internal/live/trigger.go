// Package live turns an exchange websocket ticker stream into refresh
// requests. Pushed prices are never displayed; every push only asks the
// dashboard to re-fetch from its provider.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"coinmon/internal/util"
)

// TriggerOpts configures a Trigger.
type TriggerOpts struct {
	URL         string        // e.g. wss://stream.binance.com:9443/ws
	Symbols     []string      // exchange pairs, e.g. BTCUSDT
	MinGap      time.Duration // minimum time between two refresh requests; 0 forwards every tick
	ReadTimeout time.Duration // default 60s
	RetryDelay  time.Duration // first reconnect delay, doubled per failure up to a minute; default 1s
	Logger      *slog.Logger
}

// healthySession is how long a connection that delivered ticks must last
// before the reconnect backoff resets.
const healthySession = 10 * time.Second

// Trigger subscribes to miniTicker streams and calls onTick, throttled, for
// every ticker update.
type Trigger struct {
	url         string
	streams     []string
	readTimeout time.Duration
	retryDelay  time.Duration
	limiter     *util.RateLimiter
	log         *slog.Logger
}

// miniTicker is the subset of a 24hrMiniTicker event we look at.
type miniTicker struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
}

type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

// NewTrigger creates a trigger for opts.
func NewTrigger(opts TriggerOpts) *Trigger {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 60 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	t := &Trigger{
		url:         opts.URL,
		readTimeout: opts.ReadTimeout,
		retryDelay:  opts.RetryDelay,
		log:         opts.Logger.With("component", "live"),
	}
	for _, s := range opts.Symbols {
		t.streams = append(t.streams, strings.ToLower(s)+"@miniTicker")
	}
	if opts.MinGap > 0 {
		t.limiter = util.NewIntervalLimiter(opts.MinGap)
	}
	return t
}

// Run keeps a subscription open until ctx is done, reconnecting with
// backoff. A connection that drops before delivering ticks for a while
// counts as a failure, so the delay keeps growing until a session is
// healthy again. onTick is called from Run's goroutine with the pair symbol
// of each accepted update; it must not block.
func (t *Trigger) Run(ctx context.Context, onTick func(symbol string)) error {
	if len(t.streams) == 0 {
		return fmt.Errorf("live: no symbols to subscribe")
	}
	failures := 0
	for {
		var conn *websocket.Conn
		err := util.Retry(ctx, 0, t.retryDelay, time.Minute,
			func(attempt int, err error, next time.Duration) {
				t.log.Warn("stream connect failed", "attempt", attempt, "error", err, "retryIn", next)
			},
			func() error {
				c, err := t.dial(ctx)
				conn = c
				return err
			})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		began := time.Now()
		ticks, err := t.read(ctx, conn, onTick)
		if ctx.Err() != nil {
			return nil
		}
		if ticks > 0 && time.Since(began) >= healthySession {
			failures = 0
			t.log.Warn("stream disconnected, reconnecting", "error", err, "ticks", ticks)
			continue
		}

		delay := util.Backoff(failures, t.retryDelay, time.Minute)
		failures++
		t.log.Warn("stream dropped early", "error", err, "ticks", ticks, "retryIn", delay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

func (t *Trigger) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, t.url, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", t.url, err)
	}
	req := subscribeRequest{Method: "SUBSCRIBE", Params: t.streams, ID: 1}
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribing: %w", err)
	}
	t.log.Info("stream connected", "url", t.url, "streams", len(t.streams))
	return conn, nil
}

// read consumes messages until the connection fails or ctx is done. It
// returns the number of ticker events seen, throttled or not.
func (t *Trigger) read(ctx context.Context, conn *websocket.Conn, onTick func(string)) (int, error) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	ticks := 0
	for {
		conn.SetReadDeadline(time.Now().Add(t.readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return ticks, fmt.Errorf("reading: %w", err)
		}
		sym, ok := parseTick(msg)
		if !ok {
			continue
		}
		ticks++
		if t.limiter != nil && !t.limiter.Allow() {
			continue
		}
		onTick(sym)
	}
}

// parseTick extracts the symbol from a miniTicker event. Subscription acks
// and other payloads report false.
func parseTick(msg []byte) (string, bool) {
	var ev miniTicker
	if err := json.Unmarshal(msg, &ev); err != nil {
		return "", false
	}
	if ev.Event != "24hrMiniTicker" || ev.Symbol == "" {
		return "", false
	}
	return ev.Symbol, true
}
