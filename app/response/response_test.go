package response

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierroma/go-rakis/app/types"
)

type sentFrame struct {
	status  int
	headers map[string]string
	body    []byte
}

type recordingSender struct {
	frames []sentFrame
	err    error
}

func (s *recordingSender) SendHeadAndBody(status int, headers map[string]string, body []byte) error {
	s.frames = append(s.frames, sentFrame{status: status, headers: headers, body: body})
	return s.err
}

func TestResponseDefaults(t *testing.T) {
	res := New(&recordingSender{}, "/www", nil)

	assert.Equal(t, types.StatusOK, res.Status())
	assert.Equal(t, "/www", res.RootPath())
	assert.False(t, res.Sent())
}

func TestResponseSendOnce(t *testing.T) {
	conn := &recordingSender{}
	res := New(conn, "", nil)

	require.NoError(t, res.SendString("first"))
	assert.True(t, res.Sent())

	err := res.Send([]byte("second"))
	assert.ErrorIs(t, err, ErrAlreadySent)

	res.SetStatus(types.StatusInternalServerError)
	assert.ErrorIs(t, res.SendString("third"), ErrAlreadySent)

	require.Len(t, conn.frames, 1)
	assert.Equal(t, 200, conn.frames[0].status)
	assert.Equal(t, []byte("first"), conn.frames[0].body)
}

func TestResponseHeaders(t *testing.T) {
	conn := &recordingSender{}
	res := New(conn, "", nil)

	res.AddHeader("Content-Type", "text/plain")
	res.AddHeader("X-Id", "1")
	res.AddHeader("X-Id", "2")
	v, ok := res.Header("X-Id")
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	res.SetHeaders(map[string]string{"Cache-Control": "no-store"})
	_, ok = res.Header("Content-Type")
	assert.False(t, ok, "SetHeaders replaces the whole set")

	res.SetStatus(types.StatusCreated)
	require.NoError(t, res.Send(nil))

	require.Len(t, conn.frames, 1)
	assert.Equal(t, 201, conn.frames[0].status)
	assert.Equal(t, map[string]string{"Cache-Control": "no-store"}, conn.frames[0].headers)
}

func TestResponseSendErrorStillCountsAsSent(t *testing.T) {
	conn := &recordingSender{err: errors.New("broken pipe")}
	res := New(conn, "", nil)

	err := res.SendString("x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadySent)
	assert.True(t, res.Sent())

	assert.ErrorIs(t, res.SendString("y"), ErrAlreadySent)
	assert.Len(t, conn.frames, 1)
}
