package engine

import (
	"context"
	"net"
	"strconv"
)

type EventKind uint8

const (
	EventPoll EventKind = iota + 1
	EventAccept
	EventHTTPRequest
	EventClose
)

func (k EventKind) String() string {
	switch k {
	case EventPoll:
		return "EV_POLL"
	case EventAccept:
		return "EV_ACCEPT"
	case EventHTTPRequest:
		return "EV_HTTP_REQUEST"
	case EventClose:
		return "EV_CLOSE"
	}
	return "Unknown event: " + strconv.Itoa(int(k))
}

// RequestEvent is the data delivered with EventHTTPRequest.
type RequestEvent struct {
	Method  string
	Path    string
	Query   string
	Version string
	Headers map[string]string
	Body    []byte
}

// Conn is one accepted connection as seen by an EventHandler. It is only
// valid inside the event loop.
type Conn interface {
	ID() uint64
	RemoteAddr() net.Addr
	// SendHeadAndBody writes the complete response and marks the connection
	// to be closed once the event that triggered it has been handled.
	SendHeadAndBody(status int, headers map[string]string, body []byte) error
}

// EventHandler receives every event of an Engine, one at a time, from the
// event loop goroutine. Conn is nil for EventPoll.
type EventHandler interface {
	HandleEvent(ctx context.Context, c Conn, kind EventKind, data any)
}

type EventHandlerFunc func(ctx context.Context, c Conn, kind EventKind, data any)

func (f EventHandlerFunc) HandleEvent(ctx context.Context, c Conn, kind EventKind, data any) {
	f(ctx, c, kind, data)
}
