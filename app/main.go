package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/xavierroma/go-rakis/app/config"
	"github.com/xavierroma/go-rakis/app/request"
	"github.com/xavierroma/go-rakis/app/response"
	"github.com/xavierroma/go-rakis/app/server"
	"github.com/xavierroma/go-rakis/app/types"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	port := flag.Uint("port", 0, "listen port (overrides config)")
	root := flag.String("root", "", "directory served for unrouted paths (overrides config)")
	level := flag.String("log-level", "", "debug, info, warn or error (overrides config)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *port != 0 {
		if *port > 0xffff {
			fmt.Fprintf(os.Stderr, "invalid port %d\n", *port)
			os.Exit(1)
		}
		cfg.ListenPort = uint16(*port)
	}
	if *root != "" {
		cfg.RootPath = *root
	}
	if *level != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(*level)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	s := server.NewServer(cfg, logger)
	if err := registerRoutes(s); err != nil {
		logger.Error("failed to register routes", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Listen(ctx); err != nil {
		logger.Error("server stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

func registerRoutes(s *server.Server) error {
	routes := []struct {
		method  types.Method
		pattern string
		handler func(context.Context, *request.Request, *response.Response)
	}{
		{types.Get, `^/$`, handleRoot},
		{types.Get, `^/echo/`, handleEcho},
		{types.Get, `^/user-agent$`, handleUserAgent},
		{types.Get, `^/query$`, handleQuery},
	}
	for _, r := range routes {
		if err := s.RegisterHandlerFunc(r.method, r.pattern, r.handler); err != nil {
			return err
		}
	}
	return nil
}

func handleRoot(ctx context.Context, req *request.Request, res *response.Response) {
	res.AddHeader("Content-Type", "text/plain")
	_ = res.SendString("Hello, World!")
}

func handleEcho(ctx context.Context, req *request.Request, res *response.Response) {
	res.AddHeader("Content-Type", "text/plain")
	_ = res.SendString(strings.TrimPrefix(req.Path(), "/echo/"))
}

func handleUserAgent(ctx context.Context, req *request.Request, res *response.Response) {
	res.AddHeader("Content-Type", "text/plain")
	_ = res.SendString(req.Header("User-Agent"))
}

func handleQuery(ctx context.Context, req *request.Request, res *response.Response) {
	q := req.Query()
	names := make([]string, 0, len(q))
	for name := range q {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s=%s\n", name, q[name])
	}
	res.AddHeader("Content-Type", "text/plain")
	_ = res.SendString(b.String())
}
