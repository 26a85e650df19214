package live

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iliyamo/todo-app/internal/model"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubDeliversOnlyToOwner(t *testing.T) {
	h := newTestHub(t)
	alice := &Client{hub: h, send: make(chan []byte, 1), userID: "alice"}
	bob := &Client{hub: h, send: make(chan []byte, 1), userID: "bob"}
	h.register <- alice
	h.register <- bob

	h.TodoChanged("alice", TodoAdded, model.Todo{ID: "t1", Title: "buy milk", Owner: "alice"})

	select {
	case data := <-alice.send:
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if ev.Type != TodoAdded || ev.Todo.ID != "t1" {
			t.Errorf("alice got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("alice received nothing")
	}

	select {
	case data := <-bob.send:
		t.Errorf("bob received %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	h := newTestHub(t)
	c := &Client{hub: h, send: make(chan []byte, 1), userID: "alice"}
	h.register <- c
	waitFor(t, func() bool { return h.Connections("alice") == 1 })

	h.unregister <- c
	waitFor(t, func() bool { return h.Connections("alice") == 0 })
	if _, ok := <-c.send; ok {
		t.Error("send channel still open after unregister")
	}
}

func TestServeWSStreamsEvents(t *testing.T) {
	h := newTestHub(t)
	up := Upgrader("")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.ServeWS(&up, w, r, "alice"); err != nil {
			t.Errorf("ServeWS() unexpected error: %v", err)
		}
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return h.Connections("alice") == 1 })

	h.TodoChanged("alice", TodoToggled, model.Todo{ID: "t1", IsCompleted: true})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if ev.Type != TodoToggled || !ev.Todo.IsCompleted {
		t.Errorf("event = %+v", ev)
	}
}

func TestUpgraderOriginCheck(t *testing.T) {
	up := Upgrader("http://app.test")
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "http://evil.test")
	if up.CheckOrigin(r) {
		t.Error("CheckOrigin accepted a foreign origin")
	}
	r.Header.Set("Origin", "http://app.test")
	if !up.CheckOrigin(r) {
		t.Error("CheckOrigin rejected the configured origin")
	}
}

func TestUpgraderAcceptsSameHost(t *testing.T) {
	up := Upgrader("http://localhost:5173")
	r := httptest.NewRequest(http.MethodGet, "http://127.0.0.1:4000/api/users/live", nil)
	r.Header.Set("Origin", "http://127.0.0.1:4000")
	if !up.CheckOrigin(r) {
		t.Error("CheckOrigin rejected the server's own origin")
	}
	r.Header.Set("Origin", "http://127.0.0.1:4001")
	if up.CheckOrigin(r) {
		t.Error("CheckOrigin accepted a different port on the same host")
	}
}
