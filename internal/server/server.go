package server

import (
	stdctx "context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/eternalApril/moonmock/internal/resp"
	"go.uber.org/zap"
)

// Server accepts RESP connections and runs their commands on an Engine
type Server struct {
	engine          *Engine
	logger          *zap.Logger
	shutdownTimeout time.Duration

	wg    sync.WaitGroup
	mu    sync.Mutex
	peers map[*Peer]struct{}
}

// NewServer creates a Server. shutdownTimeout bounds how long Serve waits for clients after its context ends
func NewServer(engine *Engine, logger *zap.Logger, shutdownTimeout time.Duration) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:          engine,
		logger:          logger,
		shutdownTimeout: shutdownTimeout,
		peers:           make(map[*Peer]struct{}),
	}
}

// Serve accepts connections on ln until ctx is done, then closes ln and waits for the
// open connections. Connections still open after the shutdown timeout are closed forcibly
func (s *Server) Serve(ctx stdctx.Context, ln net.Listener) error {
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-ctx.Done():
			ln.Close() //nolint:errcheck
		case <-stop:
		}
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept error", zap.Error(err))
			continue
		}

		peer := NewPeer(conn)
		s.track(peer, true)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.track(peer, false)
			s.handleConnection(peer)
		}()
	}

	return s.drain()
}

// drain waits for every connection to finish, closing them once the shutdown timeout elapses
func (s *Server) drain() error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("all connections closed gracefully")
		return nil
	case <-time.After(s.shutdownTimeout):
		s.logger.Warn("shutdown timed out, closing connections", zap.Duration("timeout", s.shutdownTimeout))
	}

	s.mu.Lock()
	for peer := range s.peers {
		peer.Close() //nolint:errcheck
	}
	s.mu.Unlock()

	<-done
	return nil
}

func (s *Server) track(peer *Peer, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.peers[peer] = struct{}{}
	} else {
		delete(s.peers, peer)
	}
}

// handleConnection handles a connection for a single user
func (s *Server) handleConnection(peer *Peer) {
	log := s.logger.With(zap.String("peer", peer.ID()))

	if log.Core().Enabled(zap.DebugLevel) {
		log.Debug("client connected", zap.String("addr", peer.RemoteAddr()))
	}

	defer func() {
		peer.Close() //nolint:errcheck
		// log connection close
		if log.Core().Enabled(zap.DebugLevel) {
			log.Debug("client disconnected")
		}
	}()

	for {
		cmdValue, err := peer.ReadCommand()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Warn("read command failed", zap.Error(err))
				peer.Send(resp.MakeError("ERR Protocol error: " + err.Error())) //nolint:errcheck
				peer.Flush()                                                    //nolint:errcheck
			}
			return
		}

		if cmdValue.Type != resp.TypeArray {
			log.Warn("invalid request type", zap.String("type", string(cmdValue.Type)))
			peer.Send(resp.MakeError("ERR Protocol error: expected '*', got '" + string(cmdValue.Type) + "'")) //nolint:errcheck
			peer.Flush()                                                                                       //nolint:errcheck
			return
		}

		if len(cmdValue.Array) == 0 {
			continue
		}

		commandName := string(cmdValue.Array[0].String)
		args := cmdValue.Array[1:]

		result := s.engine.Execute(commandName, args)

		if err = peer.Send(result); err != nil {
			log.Error("error writing response", zap.Error(err))
			return
		}

		// pipelined requests share one flush
		if peer.InputBuffered() == 0 {
			if err := peer.Flush(); err != nil {
				return
			}
		}
	}
}
