// SPDX-License-Identifier: MIT

// Package rpcserver binds the RpcSurface to a loopback gRPC listener and
// owns its start/stop lifecycle.
package rpcserver

import (
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"

	"github.com/emassey0135/btspeak-key-interceptor/internal/logger"
	"github.com/emassey0135/btspeak-key-interceptor/internal/rpcapi"
)

// Server owns a *grpc.Server bound to a single loopback address. Start is
// not safe to call twice; Stop is idempotent.
type Server struct {
	addr    string
	logger  logger.Logger
	grpc    *grpc.Server
	lis     net.Listener
	started bool
	wg      sync.WaitGroup
}

// New constructs a Server that will register svc against a *grpc.Server
// bound to addr once Start is called.
func New(addr string, svc rpcapi.Server, log logger.Logger) *Server {
	gs := grpc.NewServer()
	rpcapi.RegisterServer(gs, svc)
	return &Server{addr: addr, logger: log, grpc: gs}
}

// Start opens the loopback listener and begins serving in a background
// goroutine. It returns once the listener is bound; Serve errors surface
// only through the log, matching the fire-and-forget accept loop shape.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("rpcserver: listen %s: %w", s.addr, err)
	}
	s.lis = lis
	s.started = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("Starting RPC surface on %s", s.addr)
		if err := s.grpc.Serve(lis); err != nil && err != grpc.ErrServerStopped {
			s.logger.Error("RPC surface error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully drains in-flight calls and waits for the accept loop to
// exit. Open streaming subscriptions are not cancelled by Stop: it returns
// only once each of them has ended. Safe to call more than once or without
// a prior Start.
func (s *Server) Stop() {
	if !s.started {
		return
	}
	s.logger.Info("Stopping RPC surface...")
	s.grpc.GracefulStop()
	s.wg.Wait()
	s.started = false
	s.logger.Info("RPC surface stopped")
}

// Addr returns the bound address, valid only after a successful Start.
func (s *Server) Addr() net.Addr {
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}
