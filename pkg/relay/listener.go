package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// bodyFrameTimeout bounds how long the listener waits for the binary
// frame carrying a request body after an envelope announces body=true.
const bodyFrameTimeout = 5 * time.Second

// NotificationHandler processes a decoded change-notification body and
// reports per-item results; implemented by pkg/ingest.Handler.
type NotificationHandler interface {
	HandleNotification(ctx context.Context, raw json.RawMessage) []Result
}

// Result mirrors pkg/ingest.Result's shape closely enough to summarize
// handling outcomes in logs without importing pkg/ingest here.
type Result struct {
	Status string
	Error  string
}

// Listener owns the single goroutine that dials out to the relay,
// reads inbound envelopes, answers the validation handshake, and hands
// real notification bodies to the registered callback.
type Listener struct {
	cfg      Config
	handler  NotificationHandler
	validate string // expected validationToken query param name, "validationToken"

	cancel context.CancelFunc
	done   chan struct{}
}

// NewListener builds a Listener. handler receives every notification body
// that isn't a validation handshake.
func NewListener(cfg Config, handler NotificationHandler) *Listener {
	return &Listener{cfg: cfg.withDefaults(), handler: handler, validate: "validationToken"}
}

// Start dials the relay and begins processing in a background goroutine.
// It reconnects indefinitely on error until Stop is called.
func (l *Listener) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.run(runCtx)
}

// Stop cancels the run loop and waits for the current connection to close.
func (l *Listener) Stop() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	<-l.done
}

func (l *Listener) run(ctx context.Context) {
	defer close(l.done)
	listenerID := "listener-" + uuid.New().String()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := l.connectAndServe(ctx, listenerID); err != nil {
			slog.Error("relay: connection lost", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.cfg.ReconnectWait):
		}
	}
}

func (l *Listener) connectAndServe(ctx context.Context, listenerID string) error {
	dialURL := l.cfg.listenURL(listenerID, time.Now().UTC())
	conn, _, err := websocket.Dial(ctx, dialURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	slog.Info("relay: connected", "connection_name", l.cfg.ConnectionName)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		l.handleMessage(ctx, conn, data)
	}
}

func (l *Listener) handleMessage(ctx context.Context, conn *websocket.Conn, data []byte) {
	env, err := decodeInbound(data)
	if err != nil {
		slog.Warn("relay: invalid envelope", "error", err)
		return
	}
	req := env.Request
	if req.RequestTarget == "" {
		// Connection-level control frame (e.g. accept/ping); nothing to answer.
		return
	}

	query := queryOf(req.RequestTarget)
	if token := query.Get(l.validate); token != "" {
		l.respondValidation(ctx, conn, req.ID, req.Address, token)
		return
	}

	var body []byte
	if req.Body {
		body, err = l.readBodyFrame(ctx, conn)
		if err != nil {
			slog.Warn("relay: reading body frame failed", "error", err)
			l.sendControlResponse(ctx, conn, req.ID, http.StatusBadRequest, nil)
			return
		}
	}

	results := l.handler.HandleNotification(ctx, json.RawMessage(body))
	status := http.StatusAccepted
	for _, r := range results {
		if r.Status == "error" {
			status = http.StatusInternalServerError
		}
	}
	l.sendControlResponse(ctx, conn, req.ID, status, nil)
}

// respondValidation answers Graph's subscription-validation handshake by
// echoing the token back as a text/plain 200. The relay may ask for this
// over the listening connection itself (a control-channel reply) or over
// a fresh rendezvous sub-connection when the original request announced
// sb-hc-action=request in its address.
func (l *Listener) respondValidation(ctx context.Context, conn *websocket.Conn, requestID, address, token string) {
	headers := map[string][]string{"Content-Type": {"text/plain"}}

	if strings.Contains(address, "sb-hc-action=request") {
		l.respondViaRendezvous(ctx, address, requestID, token, headers)
		return
	}

	env, err := encodeResponse(requestID, http.StatusOK, headers, true)
	if err != nil {
		slog.Warn("relay: encoding validation response failed", "error", err)
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, env); err != nil {
		slog.Warn("relay: writing validation response failed", "error", err)
		return
	}
	_ = conn.Write(ctx, websocket.MessageBinary, []byte(token))
}

// respondViaRendezvous opens a one-shot sub-connection the relay
// correlates with the original request via its address, writes the
// response envelope and body there, then closes it.
func (l *Listener) respondViaRendezvous(ctx context.Context, address, requestID, token string, headers map[string][]string) {
	rctx, cancel := context.WithTimeout(ctx, bodyFrameTimeout)
	defer cancel()

	rendezvousURL := l.cfg.rendezvousURL(address, time.Now().UTC())
	conn, _, err := websocket.Dial(rctx, rendezvousURL, nil)
	if err != nil {
		slog.Warn("relay: rendezvous dial failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	env, err := encodeResponse(requestID, http.StatusOK, headers, true)
	if err != nil {
		slog.Warn("relay: encoding rendezvous response failed", "error", err)
		return
	}
	if err := conn.Write(rctx, websocket.MessageText, env); err != nil {
		slog.Warn("relay: writing rendezvous response failed", "error", err)
		return
	}
	_ = conn.Write(rctx, websocket.MessageBinary, []byte(token))
}

func (l *Listener) sendControlResponse(ctx context.Context, conn *websocket.Conn, requestID string, statusCode int, body []byte) {
	env, err := encodeResponse(requestID, statusCode, nil, len(body) > 0)
	if err != nil {
		slog.Warn("relay: encoding response failed", "error", err)
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, env); err != nil {
		slog.Warn("relay: writing response failed", "error", err)
		return
	}
	if len(body) > 0 {
		_ = conn.Write(ctx, websocket.MessageBinary, body)
	}
}

func (l *Listener) readBodyFrame(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	rctx, cancel := context.WithTimeout(ctx, bodyFrameTimeout)
	defer cancel()
	_, data, err := conn.Read(rctx)
	return data, err
}

func queryOf(requestTarget string) url.Values {
	u, err := url.Parse(requestTarget)
	if err != nil {
		return url.Values{}
	}
	return u.Query()
}
