package core

import "time"

// HTTPRequest is the host-side view of one inbound request.
type HTTPRequest struct {
	Method  string
	Path    string
	Version string
	Headers map[string]string // keys lower-cased
	Body    []byte
}

// Header returns the value of the lower-cased header name.
func (r *HTTPRequest) Header(name string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers[name]
}

// HTTPResponse is the host-side view of one outbound response.
type HTTPResponse struct {
	Status     int
	StatusText string
	Headers    map[string]string
	Body       []byte
}

// LogEntry is a single console.log/warn/error captured from a script.
type LogEntry struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

var statusText = map[int]string{
	200: "OK",
	201: "Created",
	204: "No Content",
	301: "Moved Permanently",
	302: "Found",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	500: "Internal Server Error",
}

// StatusText returns the reason phrase for the common codes and "Unknown"
// for everything else.
func StatusText(code int) string {
	if s, ok := statusText[code]; ok {
		return s
	}
	return "Unknown"
}
