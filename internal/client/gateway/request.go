package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// Request is an API call. The body is held in memory so a retry sends the
// exact same bytes.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        []byte
	ContentType string
	Header      http.Header
}

// NewRequest builds a request without a body.
func NewRequest(method, path string) *Request {
	return &Request{Method: method, Path: path}
}

// NewJSONRequest encodes v as the JSON body.
func NewJSONRequest(method, path string, v any) (*Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("gateway: encode body: %w", err)
	}
	return &Request{
		Method:      method,
		Path:        path,
		Body:        body,
		ContentType: "application/json",
	}, nil
}

// NewFormRequest encodes fields as multipart/form-data. Fields are written
// in key order.
func NewFormRequest(method, path string, fields map[string]string) (*Request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, fmt.Errorf("gateway: write form field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gateway: close form: %w", err)
	}

	return &Request{
		Method:      method,
		Path:        path,
		Body:        buf.Bytes(),
		ContentType: w.FormDataContentType(),
	}, nil
}

// url resolves the request against base. Absolute paths are used as is.
func (r *Request) url(base string) (string, error) {
	raw := r.Path
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = strings.TrimRight(base, "/") + "/" + strings.TrimLeft(r.Path, "/")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("gateway: invalid url %q: %w", raw, err)
	}
	if len(r.Query) > 0 {
		q := u.Query()
		for k, vs := range r.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Response is a completed 2xx response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("gateway: decode response: %w", err)
	}
	return nil
}

// APIError is a non-2xx response passed through to the caller.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       []byte
	RequestID  string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, msg)
}

// newAPIError extracts message and code from a {message, code} envelope
// when the body has one.
func newAPIError(status int, body []byte, requestID string) *APIError {
	e := &APIError{StatusCode: status, Body: body, RequestID: requestID}

	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Code    any    `json:"code"`
	}
	if json.Unmarshal(body, &env) == nil {
		e.Message = env.Message
		if e.Message == "" {
			e.Message = env.Error
		}
		if env.Code != nil {
			e.Code = fmt.Sprint(env.Code)
		}
	}
	return e
}
