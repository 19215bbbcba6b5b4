package engine

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xavierroma/go-rakis/app/types"
)

var (
	ErrAlreadyAnswered = errors.New("connection already answered")
	ErrClosed          = errors.New("connection closed")
)

const serverHeader = "go-rakis/0.1"

type connection struct {
	id     uint64
	nc     net.Conn
	logger *slog.Logger

	writeTimeout time.Duration
	gzip         bool
	head         bool

	closeOnFlush bool
	closed       bool
}

func newConnection(id uint64, nc net.Conn, logger *slog.Logger) *connection {
	return &connection{
		id:     id,
		nc:     nc,
		logger: logger.With(slog.Uint64("conn", id)),
	}
}

func (c *connection) ID() uint64 { return c.id }

func (c *connection) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }

func (c *connection) SendHeadAndBody(status int, headers map[string]string, body []byte) error {
	if c.closed {
		return ErrClosed
	}
	if c.closeOnFlush {
		return ErrAlreadyAnswered
	}
	c.closeOnFlush = true

	h := make(map[string]string, len(headers)+5)
	for k, v := range headers {
		if k == "" || strings.ContainsAny(k, "\r\n: ") || strings.ContainsAny(v, "\r\n") {
			c.logger.Warn("dropping invalid response header", slog.String("name", k))
			continue
		}
		h[textproto.CanonicalMIMEHeaderKey(k)] = v
	}
	h["Server"] = serverHeader
	h["Date"] = time.Now().UTC().Format(time.RFC1123)
	h["Connection"] = "close"

	if _, set := h["Content-Encoding"]; c.gzip && !set && len(body) > 0 {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(body); err == nil {
			if err := gz.Close(); err == nil {
				body = buf.Bytes()
				h["Content-Encoding"] = "gzip"
			} else {
				c.logger.Warn("error closing gzip writer", slog.Any("err", err))
			}
		} else {
			c.logger.Warn("error writing to gzip writer", slog.Any("err", err))
		}
	}
	h["Content-Length"] = strconv.Itoa(len(body))

	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if c.writeTimeout > 0 {
		_ = c.nc.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	w := bufio.NewWriter(c.nc)
	fmt.Fprintf(w, "HTTP/1.1 %d %s\r\n", status, types.Status(status).Text())
	for _, k := range keys {
		fmt.Fprintf(w, "%s: %s\r\n", k, h[k])
	}
	w.WriteString("\r\n")
	if !c.head {
		w.Write(body)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("error writing response: %w", err)
	}
	return nil
}

func (c *connection) close() error {
	c.closed = true
	return c.nc.Close()
}
