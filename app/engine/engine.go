package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xavierroma/go-rakis/app/types"
)

type Options struct {
	// ReadTimeout bounds reading one request. Zero means no limit.
	ReadTimeout time.Duration
	// IdleTimeout closes a connection whose request was never answered.
	IdleTimeout  time.Duration
	WriteTimeout time.Duration
	// PollInterval is the EventPoll period. Zero disables polling.
	PollInterval time.Duration
	MaxBodyBytes int64
	// Gzip compresses bodies for clients that accept it.
	Gzip   bool
	Logger *slog.Logger
}

type event struct {
	kind EventKind
	conn *connection
	data *RequestEvent
	err  error
}

// Engine accepts connections and delivers their events to a single
// EventHandler from one goroutine. Every connection carries one request and
// is closed after it has been answered.
type Engine struct {
	ln     net.Listener
	opts   Options
	logger *slog.Logger

	events    chan event
	acceptErr chan error
	done      chan struct{}
	closeOnce sync.Once

	// every accepted socket, including those whose EventAccept is still queued
	mu      sync.Mutex
	live    map[uint64]net.Conn
	stopped bool

	// owned by the event loop
	conns map[uint64]*connection
}

// Bind listens on port on all interfaces. A failure here means the server
// has nothing to serve and should not continue.
func Bind(port uint16, opts Options) (*Engine, error) {
	return Listen(":"+strconv.Itoa(int(port)), opts)
}

func Listen(addr string, opts Options) (*Engine, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind to %s: %w", addr, err)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		ln:        l,
		opts:      opts,
		logger:    opts.Logger,
		events:    make(chan event, 64),
		acceptErr: make(chan error, 1),
		done:      make(chan struct{}),
		live:      make(map[uint64]net.Conn),
		conns:     make(map[uint64]*connection),
	}, nil
}

func (e *Engine) Addr() net.Addr {
	return e.ln.Addr()
}

// Close stops the listener and makes Serve return.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.done)
		err = e.ln.Close()
	})
	return err
}

// Serve runs the event loop until ctx is done or Close is called. Handler
// calls never overlap, so a slow handler stalls every connection.
func (e *Engine) Serve(ctx context.Context, h EventHandler) error {
	go e.acceptLoop()

	var tick <-chan time.Time
	if e.opts.PollInterval > 0 {
		t := time.NewTicker(e.opts.PollInterval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			e.shutdown(ctx, h)
			return nil
		case <-e.done:
			e.shutdown(ctx, h)
			return nil
		case err := <-e.acceptErr:
			e.shutdown(ctx, h)
			return fmt.Errorf("error accepting connection: %w", err)
		case <-tick:
			h.HandleEvent(ctx, nil, EventPoll, nil)
		case ev := <-e.events:
			e.dispatch(ctx, h, ev)
		}
	}
}

func (e *Engine) acceptLoop() {
	var nextID uint64
	for {
		nc, err := e.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				e.logger.Warn("error accepting connection", slog.Any("err", err))
				time.Sleep(50 * time.Millisecond)
				continue
			}
			select {
			case e.acceptErr <- err:
			default:
			}
			return
		}
		nextID++
		if !e.track(nextID, nc) {
			nc.Close()
			return
		}
		c := newConnection(nextID, nc, e.logger)
		c.writeTimeout = e.opts.WriteTimeout
		if !e.post(event{kind: EventAccept, conn: c}) {
			nc.Close()
			return
		}
		go e.readLoop(c)
	}
}

// readLoop reads the single request of c, then waits for the peer to go away
// or the idle timeout to expire.
func (e *Engine) readLoop(c *connection) {
	if e.opts.ReadTimeout > 0 {
		_ = c.nc.SetReadDeadline(time.Now().Add(e.opts.ReadTimeout))
	}
	req, err := parseRequest(c.nc, e.opts.MaxBodyBytes)
	if errors.Is(err, errNoRequest) {
		e.post(event{kind: EventClose, conn: c})
		return
	}
	if !e.post(event{kind: EventHTTPRequest, conn: c, data: req, err: err}) {
		return
	}

	if e.opts.IdleTimeout > 0 {
		_ = c.nc.SetReadDeadline(time.Now().Add(e.opts.IdleTimeout))
	} else {
		_ = c.nc.SetReadDeadline(time.Time{})
	}
	_, _ = io.Copy(io.Discard, c.nc)
	e.post(event{kind: EventClose, conn: c})
}

func (e *Engine) track(id uint64, nc net.Conn) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return false
	}
	e.live[id] = nc
	return true
}

func (e *Engine) untrack(id uint64) {
	e.mu.Lock()
	delete(e.live, id)
	e.mu.Unlock()
}

func (e *Engine) post(ev event) bool {
	select {
	case e.events <- ev:
		return true
	case <-e.done:
		return false
	}
}

func (e *Engine) dispatch(ctx context.Context, h EventHandler, ev event) {
	c := ev.conn
	switch ev.kind {
	case EventAccept:
		e.conns[c.id] = c
		h.HandleEvent(ctx, c, EventAccept, nil)
	case EventHTTPRequest:
		if c.closed {
			return
		}
		if ev.err != nil {
			status := statusFor(ev.err)
			c.logger.Debug("rejecting request", slog.Int("status", int(status)), slog.Any("err", ev.err))
			if err := c.SendHeadAndBody(int(status), nil, nil); err != nil {
				c.logger.Debug("error answering rejected request", slog.Any("err", err))
			}
			e.closeConn(ctx, h, c)
			return
		}
		c.head = ev.data.Method == string(types.Head)
		c.gzip = e.opts.Gzip && strings.Contains(ev.data.Headers["Accept-Encoding"], "gzip")
		e.invoke(ctx, h, c, ev.data)
		if c.closeOnFlush {
			e.closeConn(ctx, h, c)
		}
	case EventClose:
		if !c.closed {
			c.logger.Debug("closing idle connection")
		}
		e.closeConn(ctx, h, c)
	}
}

// invoke delivers a request event. A panicking handler answers 500 if it has
// not answered yet; the loop keeps running.
func (e *Engine) invoke(ctx context.Context, h EventHandler, c *connection, req *RequestEvent) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("handler panic", slog.Any("panic", r), slog.String("path", req.Path))
			if !c.closeOnFlush {
				_ = c.SendHeadAndBody(int(types.StatusInternalServerError), nil, nil)
			}
		}
	}()
	h.HandleEvent(ctx, c, EventHTTPRequest, req)
}

func (e *Engine) closeConn(ctx context.Context, h EventHandler, c *connection) {
	if c.closed {
		return
	}
	if err := c.close(); err != nil {
		c.logger.Debug("error closing connection", slog.Any("err", err))
	}
	delete(e.conns, c.id)
	e.untrack(c.id)
	h.HandleEvent(ctx, c, EventClose, nil)
}

func (e *Engine) shutdown(ctx context.Context, h EventHandler) {
	_ = e.Close()
	for _, c := range e.conns {
		e.closeConn(ctx, h, c)
	}
drain:
	for {
		select {
		case ev := <-e.events:
			e.closeConn(ctx, h, ev.conn)
		default:
			break drain
		}
	}

	// Sockets accepted after the drain never reach the loop.
	e.mu.Lock()
	e.stopped = true
	for id, nc := range e.live {
		nc.Close()
		delete(e.live, id)
	}
	e.mu.Unlock()
}
