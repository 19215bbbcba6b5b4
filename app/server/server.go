package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/xavierroma/go-rakis/app/config"
	"github.com/xavierroma/go-rakis/app/engine"
	"github.com/xavierroma/go-rakis/app/request"
	"github.com/xavierroma/go-rakis/app/response"
	"github.com/xavierroma/go-rakis/app/router"
	"github.com/xavierroma/go-rakis/app/types"
)

// Server routes each request event to the first registered handler whose
// method and pattern match, or serves RootPath+path from disk. It holds no
// per-request state and is meant to be driven by a single event loop.
type Server struct {
	cfg    config.Config
	router router.Router
	logger *slog.Logger

	readFile func(name string) ([]byte, error)
}

func NewServer(cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		router:   router.New(),
		logger:   logger,
		readFile: os.ReadFile,
	}
}

func (s *Server) RootPath() string {
	return s.cfg.RootPath
}

// RegisterHandler adds a route. Routes are tried in the order they were
// registered and pattern is searched for anywhere in the path.
func (s *Server) RegisterHandler(m types.Method, pattern string, h router.Handler) error {
	if err := s.router.Register(m, pattern, h); err != nil {
		return fmt.Errorf("error registering %s %s: %w", m, pattern, err)
	}
	return nil
}

func (s *Server) RegisterHandlerFunc(m types.Method, pattern string, h router.HandlerFunc) error {
	return s.RegisterHandler(m, pattern, h)
}

// Listen binds the configured port and serves until ctx is done. A bind
// failure is returned before anything is served.
func (s *Server) Listen(ctx context.Context) error {
	e, err := engine.Bind(s.cfg.ListenPort, engine.Options{
		ReadTimeout:  s.cfg.ReadTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		MaxBodyBytes: s.cfg.MaxBodyBytes,
		Gzip:         s.cfg.Gzip,
		Logger:       s.logger,
	})
	if err != nil {
		return err
	}
	s.logger.Info("web server listening", slog.String("addr", e.Addr().String()), slog.String("root", s.cfg.RootPath))
	return e.Serve(ctx, s)
}

// HandleEvent consumes EventHTTPRequest and ignores every other kind.
func (s *Server) HandleEvent(ctx context.Context, c engine.Conn, kind engine.EventKind, data any) {
	if kind != engine.EventHTTPRequest {
		return
	}
	ev, ok := data.(*engine.RequestEvent)
	if !ok || ev == nil {
		s.logger.Error("request event without request data", slog.String("event", kind.String()))
		return
	}
	s.serveRequest(ctx, c, ev)
}

func (s *Server) serveRequest(ctx context.Context, conn response.Sender, ev *engine.RequestEvent) {
	req := request.New(types.Method(ev.Method), ev.Path, ev.Query, ev.Headers, ev.Body)
	res := response.New(conn, s.cfg.RootPath, s.logger.With(slog.String("path", ev.Path)))

	s.logger.Debug("matching", slog.String("method", ev.Method), slog.String("path", ev.Path), slog.String("query", ev.Query))

	if h, ok := s.router.Match(req.Method(), req.Path()); ok {
		h.ServeRequest(ctx, req, res)
		return
	}
	s.serveFile(req, res)
}

// serveFile answers with the file at rootPath+path, or 404 with an empty
// body when it cannot be read.
func (s *Server) serveFile(req *request.Request, res *response.Response) {
	if hasDotDot(req.PathSplit()) {
		s.logger.Debug("refusing path outside root", slog.String("path", req.Path()))
		s.notFound(res)
		return
	}

	filePath := res.RootPath() + req.Path()
	s.logger.Debug("opening file", slog.String("file", filePath))
	data, err := s.readFile(filePath)
	if err != nil {
		s.notFound(res)
		return
	}
	if err := res.Send(data); err != nil {
		s.logger.Warn("error sending file", slog.String("file", filePath), slog.Any("err", err))
	}
}

func (s *Server) notFound(res *response.Response) {
	res.SetStatus(types.StatusNotFound)
	if err := res.Send(nil); err != nil {
		s.logger.Warn("error sending not found", slog.Any("err", err))
	}
}

func hasDotDot(segments []string) bool {
	for _, seg := range segments {
		if seg == ".." {
			return true
		}
	}
	return false
}
