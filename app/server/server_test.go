package server

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierroma/go-rakis/app/config"
	"github.com/xavierroma/go-rakis/app/engine"
	"github.com/xavierroma/go-rakis/app/request"
	"github.com/xavierroma/go-rakis/app/response"
	"github.com/xavierroma/go-rakis/app/types"
)

type sentFrame struct {
	status  int
	headers map[string]string
	body    []byte
}

// fakeConn records what the dispatcher sends instead of writing a socket.
type fakeConn struct {
	frames []sentFrame
}

func (c *fakeConn) ID() uint64 { return 1 }

func (c *fakeConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(192, 0, 2, 1), Port: 12345}
}

func (c *fakeConn) SendHeadAndBody(status int, headers map[string]string, body []byte) error {
	c.frames = append(c.frames, sentFrame{status: status, headers: headers, body: body})
	return nil
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.RootPath = root
	return NewServer(cfg, nil), root
}

func deliver(s *Server, method, path, query string) *fakeConn {
	c := &fakeConn{}
	s.HandleEvent(context.Background(), c, engine.EventHTTPRequest, &engine.RequestEvent{
		Method:  method,
		Path:    path,
		Query:   query,
		Version: "HTTP/1.1",
		Headers: map[string]string{},
	})
	return c
}

func reply(body string) func(context.Context, *request.Request, *response.Response) {
	return func(ctx context.Context, req *request.Request, res *response.Response) {
		_ = res.SendString(body)
	}
}

func TestDispatchToHandler(t *testing.T) {
	s, _ := newTestServer(t)
	require.NoError(t, s.RegisterHandlerFunc(types.Get, "^/item$", func(ctx context.Context, req *request.Request, res *response.Response) {
		res.SetStatus(types.StatusCreated)
		res.AddHeader("Content-Type", "text/plain")
		_ = res.SendString("id=" + req.Query()["id"] + " parts=" + strings.Join(req.PathSplit(), ","))
	}))

	c := deliver(s, "GET", "/item", "id=42")
	require.Len(t, c.frames, 1)
	assert.Equal(t, 201, c.frames[0].status)
	assert.Equal(t, "text/plain", c.frames[0].headers["Content-Type"])
	assert.Equal(t, "id=42 parts=,item", string(c.frames[0].body))
}

func TestDispatchFirstMatchWins(t *testing.T) {
	s, _ := newTestServer(t)
	require.NoError(t, s.RegisterHandlerFunc(types.Get, "/a", reply("first")))
	require.NoError(t, s.RegisterHandlerFunc(types.Get, "/a/b", reply("second")))

	c := deliver(s, "GET", "/a/b", "")
	require.Len(t, c.frames, 1)
	assert.Equal(t, "first", string(c.frames[0].body))
}

func TestDispatchMethodMismatchFallsThrough(t *testing.T) {
	s, root := newTestServer(t)
	require.NoError(t, s.RegisterHandlerFunc(types.Get, "/x", reply("handler")))
	require.NoError(t, os.WriteFile(filepath.Join(root, "x"), []byte("file"), 0o644))

	c := deliver(s, "POST", "/x", "")
	require.Len(t, c.frames, 1)
	assert.Equal(t, 200, c.frames[0].status)
	assert.Equal(t, "file", string(c.frames[0].body))

	c = deliver(s, "POST", "/y", "")
	require.Len(t, c.frames, 1)
	assert.Equal(t, 404, c.frames[0].status)
}

func TestStaticFallback(t *testing.T) {
	s, root := newTestServer(t)
	content := []byte("<html>\x00\x01binary-safe</html>\n")
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), content, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   []byte
	}{
		{name: "Existing file", path: "/index.html", wantStatus: 200, wantBody: content},
		{name: "Missing file", path: "/missing.html", wantStatus: 404, wantBody: nil},
		{name: "Directory", path: "/sub", wantStatus: 404, wantBody: nil},
		{name: "Parent traversal", path: "/sub/../index.html", wantStatus: 404, wantBody: nil},
		{name: "Query does not reach the filesystem", path: "/index.html", wantStatus: 200, wantBody: content},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := deliver(s, "GET", tt.path, "v=1")
			require.Len(t, c.frames, 1)
			assert.Equal(t, tt.wantStatus, c.frames[0].status)
			assert.Equal(t, len(tt.wantBody), len(c.frames[0].body))
			if tt.wantBody != nil {
				assert.Equal(t, tt.wantBody, c.frames[0].body)
			}
		})
	}
}

func TestStaticFallbackUsesRootPathVerbatim(t *testing.T) {
	s, _ := newTestServer(t)
	s.cfg.RootPath = "/www"
	var opened string
	s.readFile = func(name string) ([]byte, error) {
		opened = name
		return nil, errors.New("not found")
	}

	c := deliver(s, "GET", "/index.html", "")
	assert.Equal(t, "/www/index.html", opened)
	require.Len(t, c.frames, 1)
	assert.Equal(t, 404, c.frames[0].status)
	assert.Empty(t, c.frames[0].body)
}

func TestDoubleSendKeepsFirstPayload(t *testing.T) {
	s, _ := newTestServer(t)
	var second error
	require.NoError(t, s.RegisterHandlerFunc(types.Get, "^/twice$", func(ctx context.Context, req *request.Request, res *response.Response) {
		require.NoError(t, res.SendString("one"))
		second = res.SendString("two")
	}))

	c := deliver(s, "GET", "/twice", "")
	assert.ErrorIs(t, second, response.ErrAlreadySent)
	require.Len(t, c.frames, 1)
	assert.Equal(t, "one", string(c.frames[0].body))
}

func TestUnsentResponseIsLeftToEngine(t *testing.T) {
	s, _ := newTestServer(t)
	require.NoError(t, s.RegisterHandlerFunc(types.Get, "^/silent$", func(context.Context, *request.Request, *response.Response) {}))

	c := deliver(s, "GET", "/silent", "")
	assert.Empty(t, c.frames)
}

func TestHandleEventIgnoresOtherKinds(t *testing.T) {
	s, _ := newTestServer(t)
	require.NoError(t, s.RegisterHandlerFunc(types.Get, "", func(context.Context, *request.Request, *response.Response) {
		t.Fatal("handler must not run")
	}))

	c := &fakeConn{}
	for _, k := range []engine.EventKind{engine.EventPoll, engine.EventAccept, engine.EventClose} {
		s.HandleEvent(context.Background(), c, k, nil)
	}
	s.HandleEvent(context.Background(), c, engine.EventHTTPRequest, "not a request")
	assert.Empty(t, c.frames)
}

func TestRegisterHandlerBadPattern(t *testing.T) {
	s, _ := newTestServer(t)
	err := s.RegisterHandlerFunc(types.Get, "(", reply("x"))
	assert.ErrorContains(t, err, "error registering GET (")
}

func TestServeOverEngine(t *testing.T) {
	s, root := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "hello.txt"), []byte("hello file"), 0o644))
	require.NoError(t, s.RegisterHandlerFunc(types.Post, "^/echo$", func(ctx context.Context, req *request.Request, res *response.Response) {
		_ = res.Send(req.Body())
	}))

	e, err := engine.Listen("127.0.0.1:0", engine.Options{IdleTimeout: time.Second})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Serve(ctx, s) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	get := func(raw string) string {
		conn, err := net.Dial("tcp", e.Addr().String())
		require.NoError(t, err)
		defer conn.Close()
		require.NoError(t, conn.SetDeadline(time.Now().Add(2*time.Second)))
		_, err = io.WriteString(conn, raw)
		require.NoError(t, err)
		out, err := io.ReadAll(conn)
		require.NoError(t, err)
		return string(out)
	}

	out := get("POST /echo HTTP/1.1\r\nContent-Length: 4\r\n\r\nping")
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n"))
	assert.True(t, strings.HasSuffix(out, "\r\n\r\nping"))

	out = get("GET /hello.txt HTTP/1.1\r\n\r\n")
	assert.True(t, strings.HasSuffix(out, "\r\n\r\nhello file"))

	out = get("GET /nope HTTP/1.1\r\n\r\n")
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 404 Not Found\r\n"))
	assert.Contains(t, out, "Content-Length: 0\r\n")
}
