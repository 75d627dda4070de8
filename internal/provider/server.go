package provider

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	. "github.com/RobertHenschel/HierarchyBrowserv2/internal/logging"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/wire"
)

// connTimeout bounds the read and write of a single request/response pair.
const connTimeout = 30 * time.Second

// Server serves one backend over the line protocol: one request line per
// TCP connection, one response line, then close.
type Server struct {
	opts    Options
	backend Backend
	icons   *iconCatalog
}

// NewServer wires a backend into the protocol runtime.
func NewServer(opts Options, backend Backend) *Server {
	return &Server{
		opts:    opts,
		backend: backend,
		icons:   newIconCatalog(opts.ResourcesDir, opts.CustomizeIcons),
	}
}

// ListenAndServe binds the address and accepts connections until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context, host string, port int) error {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on an existing listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	defer s.icons.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	L_info("provider listening", "root", s.opts.RootName, "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || IsShuttingDown() {
				return nil
			}
			L_warn("accept failed", "error", err)
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

// handleConn processes exactly one request line. No per-connection state
// survives the response.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(connTimeout))

	line, err := wire.ReadLine(bufio.NewReader(conn))
	if err != nil {
		return
	}
	L_trace("incoming", "line", string(line))

	req, perr := wire.ParseRequest(line)
	var payload any
	if perr != nil {
		payload = wire.Errorf("Invalid JSON")
	} else {
		payload = s.dispatch(ctx, req)
	}
	if err := wire.WriteLine(conn, payload); err != nil {
		L_debug("write response failed", "error", err)
	}
}

// dispatch maps a parsed request to its response payload. Backend errors
// never escape: they become {"error": ...} on the same line.
func (s *Server) dispatch(ctx context.Context, req *wire.Request) any {
	switch req.Method {
	case wire.MethodGetInfo:
		return &wire.Info{
			RootName: s.opts.RootName,
			Icons:    s.icons.Entries(),
		}

	case wire.MethodGetRootObjects:
		objs, err := s.backend.RootObjects(ctx)
		if err != nil {
			L_error("root listing failed", "error", err)
			return wire.Errorf("Failed to serve objects: %v", err)
		}
		return wire.Objects(objs)

	case wire.MethodGetObjects:
		id, ok := req.ObjectID()
		if !ok {
			return wire.Errorf("Missing id")
		}
		objs, err := s.backend.ObjectsForPath(ctx, id)
		if err != nil {
			L_error("listing failed", "id", id, "error", err)
			return wire.Errorf("Failed to list objects: %v", err)
		}
		return wire.Objects(objs)

	case wire.MethodSearch:
		searcher, ok := s.backend.(Searcher)
		if !ok {
			return wire.Objects(nil)
		}
		id, _ := req.ObjectID()
		objs := searcher.Search(ctx, SearchRequest{
			ID:        id,
			Term:      req.SearchTerm(),
			Recursive: req.Recursive(),
			Handle:    req.SearchHandle(),
		})
		return wire.Objects(objs)

	default:
		return wire.Errorf("Unknown message")
	}
}
