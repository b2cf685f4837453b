package sync

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"sync"
	"time"

	"epubhub/internal/auth"
)

const authTimeout = 10 * time.Second

// Authenticator resolves a token to its claims.
type Authenticator interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

// authMessage must be the first line a TCP client sends.
type authMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// Server is the line-delimited JSON feed over TCP.
type Server struct {
	Addr   string
	Hub    *Hub
	Auth   Authenticator
	Logger *log.Logger

	mu sync.Mutex
	ln net.Listener
}

func NewServer(addr string, hub *Hub, authn Authenticator, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{Addr: addr, Hub: hub, Auth: authn, Logger: logger}
}

func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Close is called.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.Logger.Printf("[tcp-sync] listening on %s", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.Logger.Printf("[tcp-sync] accept: %v", err)
			continue
		}
		go s.handle(conn)
	}
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}

func (s *Server) handle(conn net.Conn) {
	sc := bufio.NewScanner(conn)

	_ = conn.SetReadDeadline(time.Now().Add(authTimeout))
	claims, err := s.authenticate(sc)
	if err != nil {
		s.Logger.Printf("[tcp-sync] rejected %s: %v", conn.RemoteAddr(), err)
		_, _ = conn.Write([]byte(`{"type":"error","message":"unauthorized"}` + "\n"))
		_ = conn.Close()
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	userID := claims.UserID
	s.Hub.Add(userID, conn)
	s.Logger.Printf("[tcp-sync] client connected: %s (user %s)", conn.RemoteAddr(), userID)
	s.Hub.Welcome(userID, conn)

	defer func() {
		s.Hub.Remove(userID, conn)
		s.Logger.Printf("[tcp-sync] client disconnected: %s", conn.RemoteAddr())
	}()

	// Keep the connection alive; further input is ignored.
	for sc.Scan() {
	}
}

func (s *Server) authenticate(sc *bufio.Scanner) (*auth.Claims, error) {
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("connection closed before auth")
	}
	var msg authMessage
	if err := json.Unmarshal(sc.Bytes(), &msg); err != nil {
		return nil, err
	}
	if msg.Type != "auth" {
		return nil, errors.New("first message must be auth")
	}

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()
	return s.Auth.Verify(ctx, msg.Token)
}
