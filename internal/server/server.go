// Package server drives the TCP accept loop and per-connection command
// loop, following the accept/handle/shutdown shape of the teacher's
// main.go and its AppState connection bookkeeping.
package server

import (
	"bufio"
	"io"
	"net"
	"sync"

	"github.com/akashmaji946/goredisd/internal/dispatch"
	"github.com/akashmaji946/goredisd/internal/logging"
	"github.com/akashmaji946/goredisd/internal/metrics"
	"github.com/akashmaji946/goredisd/internal/resp"
)

const readBufferSize = 4096

// Server accepts client connections and serves them against a shared
// Dispatcher. It tracks active connections so Shutdown can close every
// one of them, mirroring AppState's activeConns bookkeeping.
type Server struct {
	addr       string
	dispatcher *dispatch.Dispatcher
	log        *logging.Logger
	metrics    *metrics.Collector

	mu          sync.Mutex
	listener    net.Listener
	activeConns map[net.Conn]struct{}
	wg          sync.WaitGroup
}

// New builds a Server listening on addr once Run is called.
func New(addr string, d *dispatch.Dispatcher, log *logging.Logger, m *metrics.Collector) *Server {
	return &Server{
		addr:        addr,
		dispatcher:  d,
		log:         log,
		metrics:     m,
		activeConns: make(map[net.Conn]struct{}),
	}
}

// Addr returns the address the listener is bound to. It must only be
// called after Run has started (e.g. from another goroutine), and is
// primarily useful when the server was configured to listen on an
// ephemeral port.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run opens the listener and serves connections until Shutdown closes
// it. It blocks until the accept loop exits.
func (s *Server) Run() error {
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	s.log.Infof("listening on %s", s.addr)

	for {
		conn, err := l.Accept()
		if err != nil {
			s.log.Info("listener closed, stopping accept loop")
			break
		}

		s.addConn(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}

	s.wg.Wait()
	return nil
}

// Shutdown stops accepting new connections and closes every connection
// currently being served, then waits for their handler goroutines to
// return.
func (s *Server) Shutdown() {
	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Unlock()

	s.mu.Lock()
	for conn := range s.activeConns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Server) addConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeConns[conn] = struct{}{}
	if s.metrics != nil {
		s.metrics.ActiveConnections.Inc()
	}
}

func (s *Server) removeConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.activeConns, conn)
	if s.metrics != nil {
		s.metrics.ActiveConnections.Dec()
	}
}

// handleConnection drives one client's command loop: parse a command
// array, dispatch it, render the reply, repeat until the connection is
// closed or a parse error that can never resolve occurs.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	defer s.removeConn(conn)

	log := s.log.With("remote_addr", conn.RemoteAddr().String())
	log.Info("accepted connection")
	defer log.Info("closed connection")

	reader := bufio.NewReaderSize(conn, readBufferSize)
	var pending []byte

	for {
		cmdValue, consumed, err := readCommand(reader, &pending)
		if err != nil {
			if err != io.EOF {
				log.Warnf("closing connection: %v", err)
			}
			return
		}
		_ = consumed

		name, args, err := toCommand(cmdValue)
		if err != nil {
			writeReply(conn, resp.Err(err.Error()), log)
			continue
		}

		reply := s.dispatcher.Dispatch(name, args)
		writeReply(conn, reply, log)
	}
}

// readCommand incrementally reads from r until a complete resp.Value
// has been parsed out of the accumulated buffer, growing pending as
// needed. It returns the parsed value and drops the consumed prefix
// from pending for the next call.
func readCommand(r *bufio.Reader, pending *[]byte) (resp.Value, int, error) {
	for {
		if len(*pending) > 0 {
			v, n, err := resp.Parse(*pending)
			if err == nil {
				*pending = (*pending)[n:]
				return v, n, nil
			}
			if err != resp.ErrIncomplete {
				*pending = nil
				return resp.Value{}, 0, err
			}
		}

		chunk := make([]byte, readBufferSize)
		n, err := r.Read(chunk)
		if n > 0 {
			*pending = append(*pending, chunk[:n]...)
		}
		if err != nil {
			if n > 0 {
				continue
			}
			return resp.Value{}, 0, err
		}
	}
}

// toCommand extracts a command name and argument vector from a parsed
// Value, which must be a non-empty Array of BulkStrings.
func toCommand(v resp.Value) (string, []resp.Value, error) {
	if v.Type != resp.TypeArray || len(v.Arr) == 0 {
		return "", nil, errMalformedCommand
	}
	head := v.Arr[0]
	if head.Type != resp.TypeBulkString || head.Bulk == nil {
		return "", nil, errMalformedCommand
	}
	return *head.Bulk, v.Arr[1:], nil
}

var errMalformedCommand = &commandError{"ERR malformed command"}

type commandError struct{ msg string }

func (e *commandError) Error() string { return e.msg }

func writeReply(conn net.Conn, reply resp.Value, log *logging.Logger) {
	if _, err := conn.Write(resp.Render(reply)); err != nil {
		log.Warnf("write reply: %v", err)
	}
}
