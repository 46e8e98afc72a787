package relay

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"gisco/internal/host"
)

func TestEndpointCallRequiresConnection(t *testing.T) {
	endpoint := New(Config{ListenAddr: "127.0.0.1:0"}, nil, nil)
	if _, err := endpoint.Call(context.Background(), methodPageDescribe, nil); !errors.Is(err, errNotConnected) {
		t.Fatalf("expected not-connected error, got %v", err)
	}
}

func TestEndpointRejectsNonLoopback(t *testing.T) {
	endpoint := New(Config{ListenAddr: "0.0.0.0:0"}, nil, nil)
	if err := endpoint.Start(); err == nil {
		t.Cleanup(func() { _ = endpoint.Close(context.Background()) })
		t.Fatal("expected Start to reject non-loopback listen address")
	}
}

func TestEndpointHandshakeAndCall(t *testing.T) {
	endpoint := New(Config{ListenAddr: "127.0.0.1:0", Token: "test-token", Timeout: 2 * time.Second}, nil, nil)
	if err := endpoint.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	t.Cleanup(func() {
		_ = endpoint.Close(context.Background())
	})

	wsURL := "ws://" + endpoint.Addr() + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial returned error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if err := conn.WriteJSON(helloMessage{Type: "hello", Token: "test-token", Client: "gisco_shim", Version: 1}); err != nil {
		t.Fatalf("write hello returned error: %v", err)
	}
	var welcome welcomeMessage
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("read welcome returned error: %v", err)
	}
	if welcome.Type != "welcome" || welcome.Version != protocolVersion {
		t.Fatalf("unexpected welcome message: %+v", welcome)
	}
	if err := endpoint.WaitForConnected(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("WaitForConnected returned error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var req rpcRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if req.JSONRPC != "2.0" || req.ID == "" {
				continue
			}
			if req.Method == methodPageDescribe {
				_ = conn.WriteJSON(rpcResponse{
					JSONRPC: "2.0",
					ID:      req.ID,
					Result:  json.RawMessage(`{"url":"https://example.com/posts/a","title":"A Post","pathname":"/posts/a"}`),
				})
			} else {
				_ = conn.WriteJSON(rpcResponse{
					JSONRPC: "2.0",
					ID:      req.ID,
					Error: &rpcError{
						Code:    -32601,
						Message: "method not found",
					},
				})
			}
		}
	}()

	info, err := endpoint.DescribePage(context.Background())
	if err != nil {
		t.Fatalf("DescribePage returned error: %v", err)
	}
	if info.URL != "https://example.com/posts/a" || info.Title != "A Post" || info.Pathname != "/posts/a" {
		t.Fatalf("unexpected page info: %+v", info)
	}

	if client, version := endpoint.LastHello(); client != "gisco_shim" || version != 1 {
		t.Fatalf("unexpected hello identity: %s/%d", client, version)
	}

	if _, err := endpoint.Call(context.Background(), "page.unknown", nil); err == nil {
		t.Fatal("expected rpc error for unknown method")
	}

	_ = conn.Close()
	<-done
}

func TestEndpointRejectsBadToken(t *testing.T) {
	endpoint := New(Config{ListenAddr: "127.0.0.1:0", Token: "expected"}, nil, nil)
	if err := endpoint.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	t.Cleanup(func() {
		_ = endpoint.Close(context.Background())
	})

	wsURL := "ws://" + endpoint.Addr() + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial returned error: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(helloMessage{Type: "hello", Token: "wrong"}); err != nil {
		t.Fatalf("write hello returned error: %v", err)
	}
	var welcome welcomeMessage
	if err := conn.ReadJSON(&welcome); err == nil {
		t.Fatalf("expected handshake failure, got welcome: %+v", welcome)
	}
}

// shimConn connects a fake in-page shim and completes the handshake.
func shimConn(t *testing.T, endpoint *Endpoint, token string) *websocket.Conn {
	t.Helper()

	wsURL := "ws://" + endpoint.Addr() + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial returned error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if err := conn.WriteJSON(helloMessage{Type: "hello", Token: token, Client: "gisco_shim", Version: 1}); err != nil {
		t.Fatalf("write hello returned error: %v", err)
	}
	var welcome welcomeMessage
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("read welcome returned error: %v", err)
	}
	if err := endpoint.WaitForConnected(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("shim never registered: %v", err)
	}
	return conn
}

func TestFrameLifecycleOverRelay(t *testing.T) {
	endpoint := New(Config{ListenAddr: "127.0.0.1:0", Timeout: 2 * time.Second}, nil, nil)
	if err := endpoint.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	t.Cleanup(func() { _ = endpoint.Close(context.Background()) })

	conn := shimConn(t, endpoint, "")

	type seenCall struct {
		Method string
		Params map[string]any
	}
	calls := make(chan seenCall, 16)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var req struct {
				JSONRPC string         `json:"jsonrpc"`
				ID      string         `json:"id"`
				Method  string         `json:"method"`
				Params  map[string]any `json:"params"`
			}
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			calls <- seenCall{Method: req.Method, Params: req.Params}
			switch req.Method {
			case methodFrameCreate:
				_ = conn.WriteJSON(rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{"frameId":"f1"}`)})
			default:
				_ = conn.WriteJSON(rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{}`)})
			}
		}
	}()

	frame, err := endpoint.CreateFrame(context.Background(), host.FrameOptions{
		Address: "https://giscus.app/en/widget?origin=x",
		Loading: "eager",
	})
	if err != nil {
		t.Fatalf("CreateFrame returned error: %v", err)
	}

	created := <-calls
	if created.Method != methodFrameCreate {
		t.Fatalf("expected %s, got %s", methodFrameCreate, created.Method)
	}
	if created.Params["src"] != "https://giscus.app/en/widget?origin=x" || created.Params["loading"] != "eager" {
		t.Fatalf("unexpected frame.create params: %#v", created.Params)
	}

	if err := frame.SetHeight(context.Background(), 320); err != nil {
		t.Fatalf("SetHeight returned error: %v", err)
	}
	resized := <-calls
	if resized.Method != methodFrameSetHeight || resized.Params["frameId"] != "f1" || resized.Params["height"] != float64(320) {
		t.Fatalf("unexpected frame.setHeight call: %#v", resized)
	}

	if err := frame.Post(context.Background(), []byte(`{"giscus":{"setConfig":{"theme":"dark"}}}`), "https://giscus.app"); err != nil {
		t.Fatalf("Post returned error: %v", err)
	}
	posted := <-calls
	if posted.Method != methodFramePost || posted.Params["targetOrigin"] != "https://giscus.app" {
		t.Fatalf("unexpected frame.post call: %#v", posted)
	}
	data, ok := posted.Params["data"].(map[string]any)
	if !ok {
		t.Fatalf("frame.post data should be a JSON object, got %#v", posted.Params["data"])
	}
	if _, ok := data["giscus"]; !ok {
		t.Fatalf("frame.post data lost the protocol tag: %#v", data)
	}

	if err := frame.Destroy(context.Background()); err != nil {
		t.Fatalf("Destroy returned error: %v", err)
	}
	destroyed := <-calls
	if destroyed.Method != methodFrameDestroy || destroyed.Params["frameId"] != "f1" {
		t.Fatalf("unexpected frame.destroy call: %#v", destroyed)
	}

	if err := endpoint.ReplaceLocation(context.Background(), "https://example.com/posts/a"); err != nil {
		t.Fatalf("ReplaceLocation returned error: %v", err)
	}
	replaced := <-calls
	if replaced.Method != methodPageReplaceLoc || replaced.Params["address"] != "https://example.com/posts/a" {
		t.Fatalf("unexpected page.replaceLocation call: %#v", replaced)
	}

	_ = conn.Close()
	<-done
}

func TestPageMessageNotificationDispatch(t *testing.T) {
	endpoint := New(Config{ListenAddr: "127.0.0.1:0", Timeout: 2 * time.Second}, nil, nil)
	if err := endpoint.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	t.Cleanup(func() { _ = endpoint.Close(context.Background()) })

	conn := shimConn(t, endpoint, "")

	got := make(chan host.Message, 4)
	remove, err := endpoint.Listen(func(msg host.Message) { got <- msg })
	if err != nil {
		t.Fatalf("Listen returned error: %v", err)
	}

	notification := `{"jsonrpc":"2.0","method":"page.message","params":{"origin":"https://giscus.app","data":{"giscus":{"resizeHeight":100}}}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(notification)); err != nil {
		t.Fatalf("write notification returned error: %v", err)
	}

	select {
	case msg := <-got:
		if msg.Origin != "https://giscus.app" {
			t.Fatalf("unexpected origin: %s", msg.Origin)
		}
		var payload struct {
			Giscus struct {
				ResizeHeight float64 `json:"resizeHeight"`
			} `json:"giscus"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			t.Fatalf("unmarshal relayed data returned error: %v", err)
		}
		if payload.Giscus.ResizeHeight != 100 {
			t.Fatalf("unexpected relayed payload: %s", msg.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification dispatch")
	}

	remove()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(notification)); err != nil {
		t.Fatalf("write notification returned error: %v", err)
	}
	select {
	case msg := <-got:
		t.Fatalf("unexpected delivery after remove: %+v", msg)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWaitForConnected(t *testing.T) {
	endpoint := New(Config{ListenAddr: "127.0.0.1:0", Timeout: 2 * time.Second}, nil, nil)
	if err := endpoint.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	t.Cleanup(func() { _ = endpoint.Close(context.Background()) })

	if err := endpoint.WaitForConnected(context.Background(), 100*time.Millisecond); err == nil {
		t.Fatal("expected timeout while no shim is connected")
	}

	_ = shimConn(t, endpoint, "")

	if err := endpoint.WaitForConnected(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("WaitForConnected returned error: %v", err)
	}
	if !endpoint.Connected() {
		t.Fatal("expected Connected() to report true")
	}
}
