package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"quizmap-service/internal/app"
	"quizmap-service/internal/catalog"
	"quizmap-service/internal/infra/memory"
	"quizmap-service/internal/quiz"
)

// manualTicker hands every countdown the same channel so tests decide when a second passes.
type manualTicker struct {
	ticks chan time.Time
}

func (m *manualTicker) ticker(time.Duration) (<-chan time.Time, func()) {
	return m.ticks, func() {}
}

func newTestServer(t *testing.T) (*httptest.Server, *app.Service, *manualTicker) {
	t.Helper()
	mt := &manualTicker{ticks: make(chan time.Time)}
	store := memory.NewStore()
	catalogs := memory.NewCatalogRepository(app.NewStoreCatalogLoader(store), time.Minute)
	service := app.NewService(store, catalogs, memory.NewAttemptRegistry(),
		app.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		app.WithAttemptOptions(quiz.WithTicker(mt.ticker)),
	)
	server := httptest.NewServer(NewRouter(service, nil))
	t.Cleanup(server.Close)
	return server, service, mt
}

func TestWebSocketAttemptFlow(t *testing.T) {
	server, service, mt := newTestServer(t)
	if _, _, err := service.RegisterPlayer(context.Background(), "Alice", "🦊"); err != nil {
		t.Fatalf("register: %v", err)
	}

	u := "ws" + server.URL[len("http"):] + "/ws?player=Alice"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Subscribers get the current board first.
	readNext(conn, t, "leaderboard")

	send(t, conn, "start", map[string]any{"subject": "General Knowledge"})
	_, payload := readNext(conn, t, "question")
	if payload["index"].(float64) != 0 || payload["total"].(float64) != 5 {
		t.Fatalf("unexpected first question %v", payload)
	}

	mt.ticks <- time.Now()
	_, payload = readNext(conn, t, "tick")
	if payload["remaining"].(float64) != 14 {
		t.Fatalf("expected 14 seconds left, got %v", payload["remaining"])
	}

	send(t, conn, "lifeline", map[string]any{"kind": "extra-time"})
	_, payload = readNext(conn, t, "question")
	if payload["remaining"].(float64) != 29 || payload["extraTimeAvailable"].(bool) {
		t.Fatalf("unexpected view after extra time %v", payload)
	}

	answers := correctAnswers()
	for {
		send(t, conn, "answer", map[string]any{"answer": answers[payload["question"].(string)]})
		_, reveal := readNext(conn, t, "revealed")
		if reveal["pointsAwarded"].(float64) == 0 {
			t.Fatalf("expected points for %q", payload["question"])
		}
		send(t, conn, "continue", nil)
		typ, next := readSkipping(conn, t, "leaderboard")
		if typ == "complete" {
			result := next["result"].(map[string]any)
			if result["pointsGained"].(float64) != 75 {
				t.Fatalf("expected 75 points, got %v", result["pointsGained"])
			}
			break
		}
		if typ != "question" {
			t.Fatalf("expected question or complete, got %s", typ)
		}
		payload = next
	}

	if _, err := service.Attempt("Alice"); err == nil {
		t.Fatalf("finished attempt must be cleared")
	}
}

func TestWebSocketTimeoutReveals(t *testing.T) {
	server, service, mt := newTestServer(t)
	if _, _, err := service.RegisterPlayer(context.Background(), "Bob", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/ws?player=Bob", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readNext(conn, t, "leaderboard")

	send(t, conn, "start", map[string]any{"subject": "General Knowledge"})
	_, view := readNext(conn, t, "question")
	limit := int(view["remaining"].(float64))
	for i := 1; i < limit; i++ {
		mt.ticks <- time.Now()
		readNext(conn, t, "tick")
	}
	mt.ticks <- time.Now()
	_, reveal := readNext(conn, t, "revealed")
	result := reveal["result"].(map[string]any)
	if result["timedOut"] != true || result["isCorrect"] != false {
		t.Fatalf("expected timed out reveal, got %v", result)
	}

	send(t, conn, "answer", map[string]any{"answer": "Paris"})
	_, errPayload := readNext(conn, t, "error")
	if errPayload["status"].(float64) != http.StatusConflict {
		t.Fatalf("expected conflict after timeout, got %v", errPayload)
	}
}

func TestWebSocketRejectsUnknownPlayerAndLockedSubject(t *testing.T) {
	server, service, _ := newTestServer(t)
	base := "ws" + server.URL[len("http"):] + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(base+"?player=Ghost", nil)
	if err == nil {
		t.Fatalf("expected unknown player to be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 handshake, got %v", resp)
	}

	if _, _, err := service.RegisterPlayer(context.Background(), "Cara", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(base+"?player=Cara", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	readNext(conn, t, "leaderboard")

	send(t, conn, "start", map[string]any{"subject": "Animals"})
	_, payload := readNext(conn, t, "error")
	if payload["status"].(float64) != http.StatusConflict {
		t.Fatalf("expected locked subject conflict, got %v", payload)
	}
	send(t, conn, "dance", nil)
	readNext(conn, t, "error")

	send(t, conn, "start", map[string]any{"subject": "General Knowledge"})
	readNext(conn, t, "question")
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := service.Attempt("Cara"); err != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("closing the socket must abandon the attempt")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocketCloseKeepsAttemptFromOtherSocket(t *testing.T) {
	_, service, _ := newTestServer(t)
	if _, _, err := service.RegisterPlayer(context.Background(), "Dana", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	handler := NewWSHandler(service)
	served := make(chan struct{}, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeWS(w, r)
		served <- struct{}{}
	}))
	defer server.Close()
	u := "ws" + server.URL[len("http"):] + "/?player=Dana"

	first, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial first: %v", err)
	}
	defer first.Close()
	readNext(first, t, "leaderboard")
	send(t, first, "start", map[string]any{"subject": "General Knowledge"})
	_, payload := readNext(first, t, "question")

	second, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial second: %v", err)
	}
	readNext(second, t, "leaderboard")
	second.Close()

	select {
	case <-served:
	case <-time.After(5 * time.Second):
		t.Fatalf("second socket handler did not return")
	}

	if _, err := service.Attempt("Dana"); err != nil {
		t.Fatalf("attempt from the first socket must survive: %v", err)
	}
	send(t, first, "answer", map[string]any{"answer": correctAnswers()[payload["question"].(string)]})
	if _, reveal := readNext(first, t, "revealed"); reveal["pointsAwarded"].(float64) == 0 {
		t.Fatalf("expected points on the first socket, got %v", reveal)
	}
}

func TestRESTPlayersAndAdmin(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := do(t, http.MethodPost, server.URL+"/api/players", "", map[string]any{"name": "   "})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for blank name, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodPost, server.URL+"/api/players", "", map[string]any{"name": "Dana", "avatar": "🐼"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var registered registerResponse
	decodeBody(t, resp, &registered)

	resp = do(t, http.MethodGet, server.URL+"/api/identity/"+registered.Identity.Token, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("identify: %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, server.URL+"/api/players/Dana/map", "", nil)
	var nodes []app.MapNode
	decodeBody(t, resp, &nodes)
	if len(nodes) == 0 || !nodes[0].Unlocked {
		t.Fatalf("expected first subject unlocked, got %+v", nodes)
	}

	resp = do(t, http.MethodGet, server.URL+"/api/players/Nobody", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, server.URL+"/api/admin/dashboard", "Dana", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodPost, server.URL+"/api/admin/subjects", "admin", map[string]any{"key": "Music"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for new subject, got %d", resp.StatusCode)
	}
	resp = do(t, http.MethodPost, server.URL+"/api/admin/subjects", "admin", map[string]any{"key": "Music"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for duplicate subject, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodPost, server.URL+"/api/admin/generate", "admin", map[string]any{"topic": "planets"})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a generator, got %d", resp.StatusCode)
	}
	var body errResp
	decodeBody(t, resp, &body)
	if !body.Transient {
		t.Fatalf("generation failures must be marked transient")
	}

	resp = do(t, http.MethodDelete, server.URL+"/api/admin/subjects/Music", "admin", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete subject: %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, server.URL+"/api/admin/dashboard.xlsx", "admin", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: %d", resp.StatusCode)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Fatalf("expected xlsx archive")
	}

	resp = do(t, http.MethodDelete, server.URL+"/api/leaderboard", "Dana", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 resetting leaderboard, got %d", resp.StatusCode)
	}
}

func TestStatusForUnknownErrorIs500(t *testing.T) {
	if got := statusFor(io.ErrUnexpectedEOF); got != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", got)
	}
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s: %s", expect, msg.Type, msg.Payload)
	}
	// Leaderboard payloads are arrays; callers only inspect object payloads.
	payload := map[string]any{}
	_ = json.Unmarshal(msg.Payload, &payload)
	return msg.Type, payload
}

func readSkipping(conn *websocket.Conn, t *testing.T, skip string) (string, map[string]any) {
	t.Helper()
	for {
		typ, payload := readNext(conn, t, "")
		if typ != skip {
			return typ, payload
		}
	}
}

func do(t *testing.T, method, url, player string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if player != "" {
		req.Header.Set(PlayerHeader, player)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func correctAnswers() map[string]string {
	answers := map[string]string{}
	for _, s := range catalog.DefaultCatalog().Subjects {
		for _, q := range s.Questions {
			answers[q.Prompt] = q.CorrectAnswer
		}
	}
	return answers
}
