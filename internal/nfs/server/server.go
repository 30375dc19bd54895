// Package server implements the TCP connection supervisor: accept loop,
// per-connection goroutine, and the graceful shutdown sequence described in
// spec.md §6 (exit behavior) and §5 (concurrency model).
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nfsd3/nfsd3/internal/logger"
	"github.com/nfsd3/nfsd3/internal/nfs/dispatch"
)

// Config holds the server's tunables. Zero values are replaced by
// ApplyDefaults.
type Config struct {
	ListenAddr         string
	MaxConnections     int
	MaxRequestsPerConn int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutdownTimeout    time.Duration
	MaxRecordSize      int
}

// ApplyDefaults fills in zero-valued fields with production-sane defaults.
func (c *Config) ApplyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":2049"
	}
	if c.MaxRequestsPerConn == 0 {
		c.MaxRequestsPerConn = 64
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Minute
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.MaxRecordSize == 0 {
		c.MaxRecordSize = 1 << 20 // 1MiB, comfortably above MaxReadCount/MaxWriteCount
	}
}

// Server owns the listener and the set of live connections.
type Server struct {
	cfg     Config
	table   *dispatch.Table
	ln      net.Listener
	connSem chan struct{}

	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup

	activeConn atomic.Int64
}

// New builds a Server bound to table but not yet listening.
func New(cfg Config, table *dispatch.Table) *Server {
	cfg.ApplyDefaults()
	connSem := (chan struct{})(nil)
	if cfg.MaxConnections > 0 {
		connSem = make(chan struct{}, cfg.MaxConnections)
	}
	return &Server{
		cfg:      cfg,
		table:    table,
		connSem:  connSem,
		shutdown: make(chan struct{}),
	}
}

// ActiveConnections reports the current live connection count, for metrics.
func (s *Server) ActiveConnections() int64 { return s.activeConn.Load() }

// Serve binds the listener and accepts connections until ctx is cancelled
// or Stop is called. It returns nil on a clean shutdown.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
	}
	s.ln = ln
	logger.Info("nfs server listening", "address", ln.Addr().String())

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.shutdown:
		}
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}

		if s.connSem != nil {
			select {
			case s.connSem <- struct{}{}:
			default:
				logger.Warn("connection limit reached, rejecting", "client", conn.RemoteAddr())
				_ = conn.Close()
				continue
			}
		}

		connID := uuid.NewString()
		s.wg.Add(1)
		s.activeConn.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			defer s.activeConn.Add(-1)
			if s.connSem != nil {
				defer func() { <-s.connSem }()
			}
			conn := newConnection(s, c, connID)
			conn.serve(ctx)
		}(conn)
	}
}

// Stop signals shutdown and closes the listener, then returns without
// waiting; Wait does the bounded wait for active connections to drain.
// Safe to call multiple times.
func (s *Server) Stop() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
		if s.ln != nil {
			_ = s.ln.Close()
		}
	})
}

// Wait blocks until every in-flight connection finishes, or the shutdown
// timeout elapses, whichever comes first.
func (s *Server) Wait() {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownTimeout):
		logger.Warn("shutdown timeout elapsed with connections still active")
	}
}
