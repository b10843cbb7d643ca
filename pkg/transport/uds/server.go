package uds

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"
)

// writeTimeout bounds how long one observer can hold a write. The capture
// goroutine broadcasts synchronously, so a stalled observer must be dropped
// rather than waited on.
const writeTimeout = time.Second

// HandlerFunc processes a request and returns a response payload or error.
type HandlerFunc func(ctx context.Context, req Message) (any, error)

// client is one accepted connection. The write mutex keeps broadcast events
// from interleaving with responses on the same connection.
type client struct {
	conn    net.Conn
	writeMu sync.Mutex
}

func (c *client) send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err = c.conn.Write(data)
	c.conn.SetWriteDeadline(time.Time{})
	return err
}

// Server listens on a Unix domain socket and dispatches NDJSON messages.
type Server struct {
	socketPath string
	listener   net.Listener
	handlers   map[string]HandlerFunc
	clients    map[*client]struct{}
	mu         sync.RWMutex
	logger     *slog.Logger
	ready      chan struct{}
}

// NewServer creates a UDS server bound to socketPath once started.
func NewServer(socketPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		socketPath: socketPath,
		handlers:   make(map[string]HandlerFunc),
		clients:    make(map[*client]struct{}),
		logger:     logger,
		ready:      make(chan struct{}),
	}
}

// Ready is closed once the socket is bound and accepting connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Handle registers a handler for a method.
func (s *Server) Handle(method string, h HandlerFunc) {
	s.handlers[method] = h
}

// Start begins listening, removing any stale socket file first. Blocks until
// ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.socketPath, err)
	}
	s.listener = ln
	s.logger.Info("control socket listening", "socket", s.socketPath)
	close(s.ready)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil // shutting down
			}
			s.logger.Error("accept error", "err", err)
			continue
		}
		c := &client{conn: conn}
		s.mu.Lock()
		s.clients[c] = struct{}{}
		s.mu.Unlock()
		go s.serveClient(ctx, c)
	}
}

// Broadcast sends an event to every connected client. Slow or dead clients
// lose the event rather than stalling the capture path.
func (s *Server) Broadcast(msg Message) {
	s.mu.RLock()
	conns := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.mu.RUnlock()

	for _, c := range conns {
		if err := c.send(msg); err != nil {
			s.logger.Debug("dropping observer", "err", err)
			s.drop(c)
		}
	}
}

// drop disconnects a client whose writes no longer complete. Its serve
// goroutine cleans up once the read side fails too.
func (s *Server) drop(c *client) {
	c.conn.Close()
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}

// Shutdown stops the server and removes the socket file.
func (s *Server) Shutdown() {
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Lock()
	for c := range s.clients {
		c.conn.Close()
	}
	s.mu.Unlock()
	os.Remove(s.socketPath)
}

func (s *Server) serveClient(ctx context.Context, c *client) {
	defer func() {
		c.conn.Close()
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
	}()

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		var msg Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			s.logger.Error("invalid message", "err", err)
			continue
		}
		if msg.Type != MsgTypeReq {
			continue
		}

		handler, ok := s.handlers[msg.Method]
		if !ok {
			s.reply(c, NewErrorResponse(msg.ID, msg.Method, "unknown method: "+msg.Method))
			continue
		}

		result, err := handler(ctx, msg)
		if err != nil {
			s.reply(c, NewErrorResponse(msg.ID, msg.Method, err.Error()))
			continue
		}
		resp, err := NewResponse(msg.ID, msg.Method, result)
		if err != nil {
			s.logger.Error("marshal response", "method", msg.Method, "err", err)
			continue
		}
		s.reply(c, resp)
	}
}

func (s *Server) reply(c *client, msg Message) {
	if err := c.send(msg); err != nil {
		s.logger.Error("write response", "err", err)
	}
}
