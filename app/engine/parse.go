package engine

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/xavierroma/go-rakis/app/types"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes = 1 << 20

var (
	errNoRequest      = errors.New("connection closed before request")
	errMalformed      = errors.New("malformed request")
	errBodyTooLarge   = errors.New("request body too large")
	errNotImplemented = errors.New("transfer encoding not supported")
)

// statusFor maps a parse error to the status answered on the wire.
func statusFor(err error) types.Status {
	switch {
	case errors.Is(err, errBodyTooLarge):
		return types.StatusRequestEntityTooLarge
	case errors.Is(err, errNotImplemented):
		return types.StatusNotImplemented
	}
	return types.StatusBadRequest
}

func parseRequest(r io.Reader, maxBody int64) (*RequestEvent, error) {
	result := &RequestEvent{
		Headers: make(map[string]string),
	}
	reader := bufio.NewReader(r)

	requestLineBytes, err := reader.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(requestLineBytes) == 0 {
			return nil, errNoRequest
		}
		return nil, fmt.Errorf("%w: error reading request line: %v", errMalformed, err)
	}
	requestLineBytes = bytes.TrimRight(requestLineBytes, "\r\n")
	if len(requestLineBytes) == 0 {
		return nil, fmt.Errorf("%w: empty request line", errMalformed)
	}

	requestLineParts := bytes.SplitN(requestLineBytes, []byte(" "), 3)
	if len(requestLineParts) != 3 {
		return nil, fmt.Errorf("%w: request line %q", errMalformed, string(requestLineBytes))
	}
	result.Method = string(requestLineParts[0])
	target := string(requestLineParts[1])
	result.Version = string(requestLineParts[2])
	if !strings.HasPrefix(result.Version, "HTTP/") {
		return nil, fmt.Errorf("%w: version %q", errMalformed, result.Version)
	}
	result.Path, result.Query, _ = strings.Cut(target, "?")

	for {
		headerLineBytes, err := reader.ReadBytes('\n')
		if err != nil {
			return nil, fmt.Errorf("%w: error reading header line: %v", errMalformed, err)
		}

		headerLineBytes = bytes.TrimRight(headerLineBytes, "\r\n")

		if len(headerLineBytes) == 0 {
			break
		}

		headerParts := bytes.SplitN(headerLineBytes, []byte(":"), 2)
		if len(headerParts) != 2 {
			// Skipped, like any other header we cannot use.
			continue
		}

		key := textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(string(headerParts[0])))
		value := strings.TrimSpace(string(headerParts[1]))

		result.Headers[key] = value
	}

	if te, ok := result.Headers["Transfer-Encoding"]; ok && !strings.EqualFold(te, "identity") {
		return nil, fmt.Errorf("%w: %q", errNotImplemented, te)
	}

	if contentLengthStr, ok := result.Headers["Content-Length"]; ok {
		contentLength, err := strconv.ParseInt(contentLengthStr, 10, 64)
		if err != nil || contentLength < 0 {
			return nil, fmt.Errorf("%w: invalid Content-Length %q", errMalformed, contentLengthStr)
		}
		if maxBody <= 0 {
			maxBody = DefaultMaxBodyBytes
		}
		if contentLength > maxBody {
			return nil, fmt.Errorf("%w: %d bytes", errBodyTooLarge, contentLength)
		}
		var body bytes.Buffer
		if _, err := io.CopyN(&body, reader, contentLength); err != nil {
			return nil, fmt.Errorf("%w: error reading request body: %v", errMalformed, err)
		}
		result.Body = body.Bytes()
	}

	return result, nil
}
