package state

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/legalease/backend/internal/service/appstate"
	chatservice "github.com/zhouzirui/legalease/backend/internal/service/chat"
	"github.com/zhouzirui/legalease/backend/internal/store"
)

type testEnv struct {
	router  *chi.Mux
	chatSvc *chatservice.Service
	machine *appstate.Machine
}

func setupRouter() testEnv {
	mem := store.NewMemory()
	chatSvc := chatservice.NewService(mem)
	machine := appstate.NewMachine(mem)

	r := chi.NewRouter()
	New(machine, chatSvc, nil).RegisterRoutes(r)
	return testEnv{router: r, chatSvc: chatSvc, machine: machine}
}

func decodeState(t *testing.T, body []byte) appstate.State {
	t.Helper()
	var snapshot appstate.State
	if err := json.Unmarshal(body, &snapshot); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return snapshot
}

func TestDisclaimer(t *testing.T) {
	env := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/disclaimer", nil)
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "disclaimer") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestAcceptUnlocksSession(t *testing.T) {
	env := setupRouter()
	session, err := env.chatSvc.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/state/"+session.ID, nil)
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)
	if decodeState(t, resp.Body.Bytes()).DisclaimerAccepted {
		t.Fatal("new session should start locked")
	}

	payload, _ := json.Marshal(map[string]string{"session_id": session.ID})
	req = httptest.NewRequest(http.MethodPost, "/disclaimer/accept", bytes.NewReader(payload))
	resp = httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	snapshot := decodeState(t, resp.Body.Bytes())
	if !snapshot.DisclaimerAccepted || snapshot.SessionID != session.ID {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
}

func TestAcceptWithoutSessionCreatesOne(t *testing.T) {
	env := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/disclaimer/accept", http.NoBody)
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	snapshot := decodeState(t, resp.Body.Bytes())
	if snapshot.SessionID == "" || !snapshot.DisclaimerAccepted {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
	if _, err := env.chatSvc.GetSession(context.Background(), snapshot.SessionID); err != nil {
		t.Fatalf("session should exist: %v", err)
	}
}

func TestAcceptUnknownSession(t *testing.T) {
	env := setupRouter()

	payload, _ := json.Marshal(map[string]string{"session_id": "missing"})
	req := httptest.NewRequest(http.MethodPost, "/disclaimer/accept", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) outgoingMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg outgoingMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return msg
}

func TestWebSocketPushesStateAndRenders(t *testing.T) {
	env := setupRouter()
	session, err := env.chatSvc.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	server := httptest.NewServer(env.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/" + session.ID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	first := readMessage(t, conn)
	if first.Type != "state" {
		t.Fatalf("expected initial state, got %s", first.Type)
	}

	if _, err := env.machine.Accept(context.Background(), session.ID); err != nil {
		t.Fatalf("Accept err: %v", err)
	}
	update := readMessage(t, conn)
	data, _ := update.Data.(map[string]any)
	if update.Type != "state" || data["disclaimerAccepted"] != true {
		t.Fatalf("expected accepted state update, got %+v", update)
	}

	if err := conn.WriteJSON(map[string]any{"type": "render", "data": map[string]string{"text": "**bold** and *italic*"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	rendered := readMessage(t, conn)
	data, _ = rendered.Data.(map[string]any)
	if rendered.Type != "render" || data["html"] != "<strong>bold</strong> and <em>italic</em>" {
		t.Fatalf("unexpected render reply %+v", rendered)
	}

	if err := conn.WriteJSON(map[string]any{"type": "dance"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if reply := readMessage(t, conn); reply.Type != "error" {
		t.Fatalf("expected error reply, got %s", reply.Type)
	}
}

func TestWebSocketUnknownSession(t *testing.T) {
	env := setupRouter()
	server := httptest.NewServer(env.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/missing"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial failure")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 response, got %+v", resp)
	}
}
