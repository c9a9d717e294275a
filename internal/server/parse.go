package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/cryguy/raven/internal/core"
	"golang.org/x/net/http/httpguts"
)

var (
	ErrHeaderTooLarge = errors.New("request header too large")
	ErrBodyTooLarge   = errors.New("request body too large")
	errMalformed      = errors.New("malformed request")
)

// lineReader reads CRLF or LF terminated lines while counting header bytes.
type lineReader struct {
	r      *bufio.Reader
	budget int
}

func (lr *lineReader) readLine() (string, error) {
	var sb strings.Builder
	for {
		chunk, err := lr.r.ReadSlice('\n')
		lr.budget -= len(chunk)
		if lr.budget < 0 {
			return "", ErrHeaderTooLarge
		}
		sb.Write(chunk)
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) && sb.Len() > 0 {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	line := sb.String()
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// ReadRequest parses one HTTP/1.x request from r. Header names are
// lower-cased and repeated headers joined with ", ". The body is read only
// when a numeric content-length is present.
func ReadRequest(r *bufio.Reader, maxHeaderBytes int, maxBodyBytes int64) (*core.HTTPRequest, error) {
	lr := &lineReader{r: r, budget: maxHeaderBytes}

	line, err := lr.readLine()
	if err != nil {
		return nil, err
	}
	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: bad request line %q", errMalformed, line)
	}
	method, path, version := parts[0], parts[1], parts[2]
	if method == "" || !httpguts.ValidHeaderFieldName(method) {
		return nil, fmt.Errorf("%w: bad method %q", errMalformed, method)
	}
	if !strings.HasPrefix(path, "/") && path != "*" {
		return nil, fmt.Errorf("%w: bad request target %q", errMalformed, path)
	}
	if !strings.HasPrefix(version, "HTTP/1.") {
		return nil, fmt.Errorf("%w: unsupported version %q", errMalformed, version)
	}

	req := &core.HTTPRequest{
		Method:  method,
		Path:    path,
		Version: version,
		Headers: make(map[string]string),
	}
	for {
		line, err := lr.readLine()
		if err != nil {
			return nil, err
		}
		if line == "" {
			break
		}
		name, value, found := strings.Cut(line, ":")
		if !found {
			return nil, fmt.Errorf("%w: bad header line %q", errMalformed, line)
		}
		value = strings.TrimSpace(value)
		if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
			return nil, fmt.Errorf("%w: invalid header %q", errMalformed, name)
		}
		key := strings.ToLower(name)
		if prev, ok := req.Headers[key]; ok {
			value = prev + ", " + value
		}
		req.Headers[key] = value
	}

	if cl, ok := req.Headers["content-length"]; ok {
		n, err := strconv.ParseInt(cl, 10, 64)
		if err == nil && n > 0 {
			if n > maxBodyBytes {
				return nil, ErrBodyTooLarge
			}
			req.Body = make([]byte, n)
			if _, err := io.ReadFull(r, req.Body); err != nil {
				return nil, fmt.Errorf("reading body: %w", err)
			}
		}
	}
	return req, nil
}

// WriteResponse writes resp as HTTP/1.1 with sorted headers. Headers that
// cannot be written safely are dropped.
func WriteResponse(w io.Writer, resp *core.HTTPResponse) error {
	bw := bufio.NewWriter(w)
	text := resp.StatusText
	if text == "" {
		text = core.StatusText(resp.Status)
	}
	fmt.Fprintf(bw, "HTTP/1.1 %d %s\r\n", resp.Status, text)

	names := make([]string, 0, len(resp.Headers))
	for name := range resp.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value := resp.Headers[name]
		if name == "connection" || !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
			continue
		}
		fmt.Fprintf(bw, "%s: %s\r\n", name, value)
	}
	bw.WriteString("connection: close\r\n\r\n")
	bw.Write(resp.Body)
	return bw.Flush()
}
