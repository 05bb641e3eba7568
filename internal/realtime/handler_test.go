package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ashureev/hint-trivia/internal/domain"
	"github.com/ashureev/hint-trivia/internal/game"
	"github.com/ashureev/hint-trivia/internal/identity"
	"github.com/coder/websocket"
)

const testPlayer = "0f8fad5b-d9cb-469f-a165-70867728950e"

type staticProvider []domain.Category

func (p staticProvider) ListVisibleCategories(context.Context) ([]domain.Category, error) {
	return p, nil
}

type firstSource struct{}

func (firstSource) IntN(int) int { return 0 }

func newTestServer(t *testing.T) (*httptest.Server, *game.Registry, *ConnManager) {
	t.Helper()
	provider := staticProvider{{
		ID:        1,
		Name:      "Capitals",
		IsVisible: true,
		Questions: []domain.Question{{
			ID:         10,
			Answer:     "Bangkok",
			CategoryID: 1,
			IsVisible:  true,
			Hints:      domain.HintsFromText([]string{"Thailand", "Tuk-tuk"}),
		}},
	}}
	registry := game.NewRegistry(func() *game.Controller {
		return game.NewController(provider, firstSource{})
	}, time.Hour)
	conns := NewConnManager()
	registry.OnEvict(conns.CloseSession)

	h := identity.Middleware(true)(NewHandler(registry, conns, nil, false))
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, registry, conns
}

func dial(t *testing.T, srv *httptest.Server, session string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	header := http.Header{}
	header.Set("Cookie", identity.PlayerCookieName+"="+testPlayer)
	ws, _, err := websocket.Dial(ctx, srv.URL+"/ws/play?session_id="+session, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { _ = ws.CloseNow() })
	return ws
}

func exchange(t *testing.T, ws *websocket.Conn, msg string) serverMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if msg != "" {
		if err := ws.Write(ctx, websocket.MessageText, []byte(msg)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	return read(t, ctx, ws)
}

func read(t *testing.T, ctx context.Context, ws *websocket.Conn) serverMessage {
	t.Helper()
	_, data, err := ws.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	var reply serverMessage
	if err := json.Unmarshal(data, &reply); err != nil {
		t.Fatalf("Invalid reply %q: %v", data, err)
	}
	return reply
}

func TestWebSocketPlaysARound(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ws := dial(t, srv, "tab-1")

	reply := exchange(t, ws, "")
	if reply.Type != "state" || reply.State == nil || len(reply.State.Categories) != 1 {
		t.Fatalf("Expected initial state, got %+v", reply)
	}

	reply = exchange(t, ws, `{"type":"select_category","categoryId":"1"}`)
	if reply.State.State != game.StateCategoryChosen {
		t.Fatalf("Expected category chosen, got %+v", reply.State)
	}

	reply = exchange(t, ws, `{"type":"start"}`)
	if reply.State.State != game.StateQuestionActive || reply.State.Hints[0] != "Thailand" {
		t.Fatalf("Expected active question, got %+v", reply.State)
	}

	reply = exchange(t, ws, `{"type":"draft","answer":"Bang"}`)
	if reply.State.Draft != "Bang" {
		t.Fatalf("Expected draft to be kept, got %q", reply.State.Draft)
	}

	reply = exchange(t, ws, `{"type":"answer","answer":"Bangkok "}`)
	if reply.State.Result != game.ResultCorrect || reply.State.Answer != "Bangkok" {
		t.Fatalf("Expected trailing space to be trimmed, got %+v", reply.State)
	}
}

func TestWebSocketPingAndErrors(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ws := dial(t, srv, "tab-1")
	exchange(t, ws, "")

	tests := []struct {
		msg      string
		wantType string
	}{
		{`{"type":"ping"}`, "pong"},
		{`not json`, "error"},
		{`{"type":"fly"}`, "error"},
		{`{"type":"select_category","categoryId":"x"}`, "error"},
		{`{"type":"select_category"}`, "error"},
		{`{"type":"select_category","categoryId":"1"}`, "state"},
		{`{"type":"hint"}`, "state"},
	}
	for _, tt := range tests {
		if reply := exchange(t, ws, tt.msg); reply.Type != tt.wantType {
			t.Errorf("%s: expected %s, got %+v", tt.msg, tt.wantType, reply)
		}
	}
}

func TestWebSocketSharesSessionWithRegistry(t *testing.T) {
	srv, registry, conns := newTestServer(t)
	ws := dial(t, srv, "tab-7")
	exchange(t, ws, "")
	exchange(t, ws, `{"type":"select_category","categoryId":1}`)

	var state game.State
	registry.Do(game.Key(testPlayer, "tab-7"), func(c *game.Controller) { state = c.State() })
	if state != game.StateCategoryChosen {
		t.Fatalf("Expected registry session to be updated, got %s", state)
	}
	if current(conns, game.Key(testPlayer, "tab-7")) == nil {
		t.Fatal("Expected connection to be registered")
	}
}

func TestWebSocketClosedOnEviction(t *testing.T) {
	srv, _, conns := newTestServer(t)
	ws := dial(t, srv, "tab-1")
	exchange(t, ws, "")

	// Close waits for the client's half of the handshake, so run it aside.
	go conns.CloseSession(game.Key(testPlayer, "tab-1"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err := ws.Read(ctx)
	if websocket.CloseStatus(err) != websocket.StatusGoingAway {
		t.Fatalf("Expected going-away close, got %v", err)
	}
}
