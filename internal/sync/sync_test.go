package sync

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"epubhub/internal/auth"
)

// fakeAuth accepts tokens of the form "token-<userID>".
type fakeAuth struct{}

func (fakeAuth) Verify(_ context.Context, token string) (*auth.Claims, error) {
	id, ok := strings.CutPrefix(token, "token-")
	if !ok || id == "" {
		return nil, auth.ErrUnauthorized
	}
	return &auth.Claims{UserID: id}, nil
}

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func startTCP(t *testing.T, hub *Hub) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := NewServer("", hub, fakeAuth{}, quiet())
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })
	return ln.Addr().String()
}

func dialTCP(t *testing.T, addr, token string) (net.Conn, *bufio.Scanner) {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := conn.Write([]byte(`{"type":"auth","token":"` + token + `"}` + "\n")); err != nil {
		t.Fatal(err)
	}
	return conn, bufio.NewScanner(conn)
}

func readLine(t *testing.T, sc *bufio.Scanner) map[string]any {
	t.Helper()
	if !sc.Scan() {
		t.Fatalf("read line: %v", sc.Err())
	}
	var m map[string]any
	if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", sc.Text(), err)
	}
	return m
}

func TestTCP_DeliversOnlyOwnEvents(t *testing.T) {
	hub := NewHub(quiet())
	addr := startTCP(t, hub)

	_, alice := dialTCP(t, addr, "token-alice")
	if m := readLine(t, alice); m["type"] != "welcome" || m["userId"] != "alice" {
		t.Fatalf("welcome = %v", m)
	}

	hub.Publish(NewEvent(EventFavoriteAdded, "bob", "Dune"))
	p := 0.5
	ev := NewEvent(EventProgressUpdated, "alice", "Dune")
	ev.Progress = &p
	hub.Publish(ev)

	m := readLine(t, alice)
	if m["type"] != EventProgressUpdated || m["book"] != "Dune" || m["progress"] != 0.5 {
		t.Errorf("event = %v", m)
	}
}

func TestTCP_RejectsBadAuth(t *testing.T) {
	hub := NewHub(quiet())
	addr := startTCP(t, hub)

	for _, first := range []string{`{"type":"auth","token":"bogus"}`, `{"type":"hello"}`, `not json`} {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			t.Fatal(err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, _ = conn.Write([]byte(first + "\n"))

		sc := bufio.NewScanner(conn)
		if m := readLine(t, sc); m["type"] != "error" {
			t.Errorf("%s: reply = %v, want error", first, m)
		}
		if sc.Scan() {
			t.Errorf("%s: connection should be closed", first)
		}
		_ = conn.Close()
	}
	if s := hub.Stats(); s.TCPClients != 0 {
		t.Errorf("Stats() = %+v, want no clients", s)
	}
}

func TestHub_StatsAndClose(t *testing.T) {
	hub := NewHub(quiet())
	addr := startTCP(t, hub)

	_, a1 := dialTCP(t, addr, "token-alice")
	readLine(t, a1)
	_, a2 := dialTCP(t, addr, "token-alice")
	readLine(t, a2)
	_, b := dialTCP(t, addr, "token-bob")
	readLine(t, b)

	if s := hub.Stats(); s.TCPClients != 3 || s.Users != 2 {
		t.Errorf("Stats() = %+v, want 3 clients / 2 users", s)
	}

	hub.Close()
	if s := hub.Stats(); s != (Stats{}) {
		t.Errorf("Stats() after Close = %+v", s)
	}
	if a1.Scan() {
		t.Error("connection should be closed by hub.Close")
	}
}

func TestWSHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(quiet())

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		claims, err := fakeAuth{}.Verify(c.Request.Context(), c.Query("token"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(auth.CtxClaimsKey, claims)
	}, WSHandler(hub, quiet()))
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=token-carol"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()
	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	var welcome map[string]any
	if err := ws.ReadJSON(&welcome); err != nil || welcome["transport"] != "websocket" {
		t.Fatalf("welcome = %v, err = %v", welcome, err)
	}

	hub.Publish(NewEvent(EventDownloadAdded, "carol", "Neuromancer"))
	var ev UserEvent
	if err := ws.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Type != EventDownloadAdded || ev.UserID != "carol" || ev.Book != "Neuromancer" || ev.Progress != nil {
		t.Errorf("event = %+v", ev)
	}

	_, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if !errors.Is(err, websocket.ErrBadHandshake) {
		t.Errorf("unauthenticated dial err = %v, want ErrBadHandshake", err)
	}
}
