package response

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/xavierroma/go-rakis/app/types"
)

var ErrAlreadySent = errors.New("response already sent")

// Sender is the connection primitive a Response writes through. After a
// successful call the connection is closed once the bytes are flushed.
type Sender interface {
	SendHeadAndBody(status int, headers map[string]string, body []byte) error
}

// Response is a write-once view over the answer to one request. Exactly one
// Send or SendString call delivers data; later calls are rejected with
// ErrAlreadySent and leave the connection untouched.
type Response struct {
	conn     Sender
	status   types.Status
	headers  map[string]string
	sent     bool
	rootPath string
	logger   *slog.Logger
}

func New(conn Sender, rootPath string, logger *slog.Logger) *Response {
	if logger == nil {
		logger = slog.Default()
	}
	return &Response{
		conn:     conn,
		status:   types.StatusOK,
		headers:  make(map[string]string),
		rootPath: rootPath,
		logger:   logger,
	}
}

func (r *Response) SetStatus(s types.Status) { r.status = s }

func (r *Response) Status() types.Status { return r.status }

// AddHeader sets a single header, replacing any earlier value for name.
func (r *Response) AddHeader(name, value string) {
	r.headers[name] = value
}

// SetHeaders replaces the whole header set.
func (r *Response) SetHeaders(h map[string]string) {
	r.headers = make(map[string]string, len(h))
	for k, v := range h {
		r.headers[k] = v
	}
}

func (r *Response) Header(name string) (string, bool) {
	v, ok := r.headers[name]
	return v, ok
}

// RootPath is the file root of the server that created the response.
func (r *Response) RootPath() string { return r.rootPath }

func (r *Response) Sent() bool { return r.sent }

func (r *Response) SendString(data string) error {
	return r.Send([]byte(data))
}

func (r *Response) Send(data []byte) error {
	if r.sent {
		r.logger.Error("data already sent, dropping further send",
			slog.Int("status", int(r.status)),
			slog.Int("bytes", len(data)))
		return ErrAlreadySent
	}
	r.sent = true

	if err := r.conn.SendHeadAndBody(int(r.status), r.headers, data); err != nil {
		return fmt.Errorf("error sending response: %w", err)
	}
	return nil
}
