package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"gisco/internal/async"
	"gisco/internal/host"
	"gisco/internal/logging"
	"gisco/internal/observability"
)

const protocolVersion = 1

// notifyBuffer bounds the inbound page-message queue. The dispatcher drains
// it on its own goroutine so the socket read loop never blocks on a slow
// subscriber.
const notifyBuffer = 64

var errNotConnected = errors.New("page relay is not connected")

type Config struct {
	ListenAddr string
	Token      string
	Timeout    time.Duration
}

func (c Config) withDefaults() Config {
	out := c
	out.ListenAddr = strings.TrimSpace(out.ListenAddr)
	out.Token = strings.TrimSpace(out.Token)
	if out.ListenAddr == "" {
		out.ListenAddr = "127.0.0.1:17610"
	}
	if out.Timeout <= 0 {
		out.Timeout = 15 * time.Second
	}
	return out
}

// Endpoint hosts a local WebSocket endpoint that an in-page shim connects
// to. The endpoint issues JSON-RPC requests to the shim to drive the page
// (describe it, create and resize frames, post messages) and receives
// page.message notifications carrying cross-frame traffic back.
type Endpoint struct {
	cfg     Config
	logger  logging.Logger
	metrics *observability.MetricsCollector

	mu        sync.RWMutex
	ln        net.Listener
	httpSrv   *http.Server
	addr      string
	conn      *websocket.Conn
	lastHello helloMessage

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan callResult
	nextID    atomic.Uint64

	notifyCh chan host.Message
	done     chan struct{}

	subsMu sync.Mutex
	subs   map[uint64]func(host.Message)
	subSeq uint64
}

func New(cfg Config, logger logging.Logger, metrics *observability.MetricsCollector) *Endpoint {
	cfg = cfg.withDefaults()
	return &Endpoint{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "Relay"),
		metrics:  metrics,
		pending:  make(map[string]chan callResult),
		notifyCh: make(chan host.Message, notifyBuffer),
		done:     make(chan struct{}),
		subs:     make(map[uint64]func(host.Message)),
	}
}

func (e *Endpoint) Addr() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.addr
}

func (e *Endpoint) Connected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.conn != nil
}

// LastHello reports the identity the connected shim announced.
func (e *Endpoint) LastHello() (client string, version int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return strings.TrimSpace(e.lastHello.Client), e.lastHello.Version
}

func (e *Endpoint) Start() error {
	if e == nil {
		return errors.New("endpoint is nil")
	}
	e.mu.Lock()
	if e.ln != nil {
		e.mu.Unlock()
		return nil
	}
	cfg := e.cfg
	e.mu.Unlock()

	hostPart, _, err := net.SplitHostPort(cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("invalid relay_listen_addr %q: %w", cfg.ListenAddr, err)
	}
	if hostPart == "" || hostPart == "0.0.0.0" {
		return fmt.Errorf("relay_listen_addr must bind to loopback, got %q", cfg.ListenAddr)
	}
	if hostPart != "localhost" {
		ip := net.ParseIP(hostPart)
		if ip == nil || !ip.IsLoopback() {
			return fmt.Errorf("relay_listen_addr must bind to loopback, got %q", cfg.ListenAddr)
		}
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %q: %w", cfg.ListenAddr, err)
	}
	addr := ln.Addr().String()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", e.handleWS)

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	e.mu.Lock()
	e.ln = ln
	e.httpSrv = httpSrv
	e.addr = addr
	e.mu.Unlock()

	async.Go(e.logger, "relay-serve", func() {
		_ = httpSrv.Serve(ln)
	})
	async.Go(e.logger, "relay-dispatch", e.dispatchLoop)

	e.logger.Info("relay listening on %s", addr)
	return nil
}

func (e *Endpoint) Close(ctx context.Context) error {
	if e == nil {
		return nil
	}

	e.mu.Lock()
	srv := e.httpSrv
	conn := e.conn
	e.httpSrv = nil
	e.conn = nil
	e.ln = nil
	e.addr = ""
	e.lastHello = helloMessage{}
	select {
	case <-e.done:
	default:
		close(e.done)
	}
	e.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if srv == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return srv.Shutdown(ctx)
}

// WaitForConnected blocks until a shim completes the handshake.
func (e *Endpoint) WaitForConnected(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = e.cfg.Timeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if e.Connected() {
			return nil
		}
		select {
		case <-waitCtx.Done():
			return waitCtx.Err()
		case <-ticker.C:
		}
	}
}

// WaitForDisconnected blocks until the current connection drops or ctx ends.
func (e *Endpoint) WaitForDisconnected(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if !e.Connected() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Call issues one JSON-RPC request to the shim and waits for its response.
func (e *Endpoint) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if e == nil {
		return nil, errors.New("endpoint is nil")
	}
	method = strings.TrimSpace(method)
	if method == "" {
		return nil, errors.New("method is required")
	}

	e.mu.RLock()
	conn := e.conn
	timeout := e.cfg.Timeout
	e.mu.RUnlock()
	if conn == nil {
		return nil, errNotConnected
	}

	start := time.Now()
	id := fmt.Sprintf("%d", e.nextID.Add(1))
	ch := make(chan callResult, 1)

	e.pendingMu.Lock()
	e.pending[id] = ch
	e.pendingMu.Unlock()

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}
	if err := e.writeJSON(conn, req); err != nil {
		e.pendingMu.Lock()
		delete(e.pending, id)
		e.pendingMu.Unlock()
		e.metrics.RecordRelayCall(ctx, method, "write_error", time.Since(start))
		return nil, err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-callCtx.Done():
		e.pendingMu.Lock()
		delete(e.pending, id)
		e.pendingMu.Unlock()
		e.metrics.RecordRelayCall(ctx, method, "timeout", time.Since(start))
		return nil, callCtx.Err()
	case res := <-ch:
		status := "ok"
		if res.Err != nil {
			status = "error"
		}
		e.metrics.RecordRelayCall(ctx, method, status, time.Since(start))
		return res.Result, res.Err
	}
}

func (e *Endpoint) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	if err := e.accept(conn); err != nil {
		e.logger.Warn("handshake rejected: %v", err)
		_ = conn.Close()
		return
	}
}

type helloMessage struct {
	Type    string `json:"type"`
	Token   string `json:"token,omitempty"`
	Client  string `json:"client,omitempty"`
	Version int    `json:"version,omitempty"`
}

type welcomeMessage struct {
	Type    string `json:"type"`
	Version int    `json:"version"`
}

func (e *Endpoint) accept(conn *websocket.Conn) error {
	if conn == nil {
		return errors.New("conn is nil")
	}

	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	var hello helloMessage
	if err := json.Unmarshal(data, &hello); err != nil {
		return fmt.Errorf("parse hello: %w", err)
	}
	if strings.ToLower(strings.TrimSpace(hello.Type)) != "hello" {
		return fmt.Errorf("expected hello, got %q", hello.Type)
	}

	cfg := e.cfg.withDefaults()
	if cfg.Token != "" && hello.Token != cfg.Token {
		return errors.New("unauthorized")
	}

	_ = conn.SetReadDeadline(time.Time{})
	if err := e.writeJSON(conn, welcomeMessage{Type: "welcome", Version: protocolVersion}); err != nil {
		return err
	}

	e.mu.Lock()
	if e.conn != nil {
		_ = e.conn.Close()
		e.failAllPendingLocked(errNotConnected)
		e.metrics.DecrementRelayConnections(context.Background())
	}
	e.conn = conn
	e.lastHello = hello
	e.mu.Unlock()

	e.metrics.IncrementRelayConnections(context.Background())
	e.logger.Info("shim connected: %s (protocol %d)", hello.Client, hello.Version)

	async.Go(e.logger, "relay-read", func() { e.readLoop(conn) })
	return nil
}

func (e *Endpoint) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		e.handleMessage(data)
	}

	e.mu.Lock()
	if e.conn == conn {
		e.conn = nil
		e.lastHello = helloMessage{}
		e.failAllPendingLocked(errNotConnected)
		e.metrics.DecrementRelayConnections(context.Background())
		e.logger.Info("shim disconnected")
	}
	e.mu.Unlock()
	_ = conn.Close()
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type callResult struct {
	Result json.RawMessage
	Err    error
}

// pageMessageParams is the payload of a page.message notification: one
// cross-frame message observed by the shim.
type pageMessageParams struct {
	Origin string          `json:"origin"`
	Data   json.RawMessage `json:"data"`
}

func (e *Endpoint) handleMessage(data []byte) {
	var resp rpcResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return
	}
	if strings.TrimSpace(resp.JSONRPC) != "2.0" {
		return
	}
	if resp.Method != "" {
		e.handleNotification(resp.Method, resp.Params)
		return
	}

	id := rpcIDToString(resp.ID)
	if id == "" {
		return
	}

	var out callResult
	out.Result = resp.Result
	if resp.Error != nil {
		out.Err = fmt.Errorf("rpc error %d: %s", resp.Error.Code, resp.Error.Message)
	}

	e.pendingMu.Lock()
	ch := e.pending[id]
	delete(e.pending, id)
	e.pendingMu.Unlock()
	if ch == nil {
		return
	}
	ch <- out
}

// handleNotification runs on the socket read loop. Messages are queued for
// the dispatcher: subscribers make blocking calls back through this
// endpoint, and those responses arrive on this very loop.
func (e *Endpoint) handleNotification(method string, params json.RawMessage) {
	if method != notificationPageEvent {
		e.logger.Debug("ignoring notification %q", method)
		return
	}

	var pm pageMessageParams
	if err := json.Unmarshal(params, &pm); err != nil {
		e.logger.Warn("malformed page.message params: %v", err)
		return
	}

	msg := host.Message{Origin: pm.Origin, Data: []byte(pm.Data)}
	select {
	case e.notifyCh <- msg:
	case <-e.done:
	default:
		e.logger.Warn("dropping page message: dispatch queue full")
	}
}

func (e *Endpoint) dispatchLoop() {
	for {
		select {
		case <-e.done:
			return
		case msg := <-e.notifyCh:
			e.dispatch(msg)
		}
	}
}

func (e *Endpoint) dispatch(msg host.Message) {
	e.subsMu.Lock()
	fns := make([]func(host.Message), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subsMu.Unlock()

	for _, fn := range fns {
		fn(msg)
	}
}

func (e *Endpoint) failAllPendingLocked(err error) {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	for id, ch := range e.pending {
		delete(e.pending, id)
		if ch == nil {
			continue
		}
		ch <- callResult{Err: err}
	}
}

func (e *Endpoint) writeJSON(conn *websocket.Conn, v any) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if conn == nil {
		return errNotConnected
	}
	return conn.WriteJSON(v)
}

func rpcIDToString(id any) string {
	switch v := id.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
