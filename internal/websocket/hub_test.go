package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xelth-com/wotrack/internal/models"
	"github.com/xelth-com/wotrack/internal/store"
)

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(v); err != nil {
		t.Fatalf("read: %v", err)
	}
}

func TestHubIdentifyAndBroadcast(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	st := store.New(store.NewMemoryCache())
	hub.AttachStore(st)

	conn := dial(t, hub)
	if err := conn.WriteJSON(BaseMessage{Type: "CLIENT_IDENTIFY", Operator: "Ana", MsgID: "1"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var ack map[string]string
	readJSON(t, conn, &ack)
	if ack["type"] != "ACK" || ack["msgId"] != "1" || !strings.HasPrefix(ack["clientId"], "web_") {
		t.Fatalf("unexpected ack %v", ack)
	}

	st.Insert(models.Document{ID: "100000001", Type: models.DocTypeRTA, Status: models.StatusAcceptance, CreatedAt: time.Now()})

	var ev DocumentEvent
	readJSON(t, conn, &ev)
	if ev.Type != EventDocumentsChanged || ev.Kind != store.ChangeCreated {
		t.Fatalf("unexpected event %+v", ev)
	}
	if len(ev.IDs) != 1 || ev.IDs[0] != "100000001" {
		t.Fatalf("ids = %v", ev.IDs)
	}
	if len(ev.Documents) != 1 || ev.Documents[0].Status != models.StatusAcceptance {
		t.Fatalf("documents = %+v", ev.Documents)
	}

	st.Remove("100000001")
	ev = DocumentEvent{}
	readJSON(t, conn, &ev)
	if ev.Kind != store.ChangeDeleted || len(ev.Documents) != 0 {
		t.Fatalf("unexpected delete event %+v", ev)
	}
}

func TestHubPing(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	conn := dial(t, hub)
	msg, _ := json.Marshal(BaseMessage{Type: "PING", MsgID: "p"})
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	var pong map[string]string
	readJSON(t, conn, &pong)
	if pong["type"] != "PONG" || pong["msgId"] != "p" {
		t.Fatalf("unexpected reply %v", pong)
	}
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount = %d, want 1", hub.ClientCount())
	}
}

func TestSendJSONAfterDisconnect(t *testing.T) {
	hub := NewHub()
	c := &Client{hub: hub, send: make(chan []byte, 1), ID: "web_test"}

	if err := c.SendJSON(map[string]string{"type": "PONG"}); err != ErrClientGone {
		t.Fatalf("unregistered client: err = %v, want ErrClientGone", err)
	}

	hub.mu.Lock()
	hub.clients[c.ID] = c
	hub.mu.Unlock()
	if err := c.SendJSON(map[string]string{"type": "PONG"}); err != nil {
		t.Fatalf("registered client: %v", err)
	}
	if len(c.send) != 1 {
		t.Fatalf("expected a queued message, got %d", len(c.send))
	}
	// full buffer drops instead of blocking
	if err := c.SendJSON(map[string]string{"type": "PONG"}); err != nil {
		t.Fatalf("full buffer: %v", err)
	}

	// the hub drops the client and closes its channel
	hub.mu.Lock()
	delete(hub.clients, c.ID)
	close(c.send)
	hub.mu.Unlock()
	if err := c.SendJSON(map[string]string{"type": "PONG"}); err != ErrClientGone {
		t.Errorf("closed client: err = %v, want ErrClientGone", err)
	}
}
