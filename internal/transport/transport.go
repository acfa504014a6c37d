package transport

import (
	"fmt"

	"github.com/valyala/fasthttp"
)

// Response is a transport-level reply: status code, raw body and a snapshot
// of the response headers.
type Response struct {
	Status  int
	Body    []byte
	Headers map[string]string
}

// Header returns a response header value, or "" when absent.
func (r *Response) Header(name string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers[name]
}

// Transport issues a single HTTP request. Implementations carry no retry or
// session logic; classification of failures is the gateway's job.
type Transport interface {
	Do(method, url string, body []byte, headers map[string]string) (*Response, error)
}

// FastHTTP is the production transport.
type FastHTTP struct {
	client *fasthttp.Client
}

func NewFastHTTP() *FastHTTP {
	return &FastHTTP{client: &fasthttp.Client{}}
}

func (t *FastHTTP) Do(method, url string, body []byte, headers map[string]string) (*Response, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	if err := t.client.Do(req, resp); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}

	out := &Response{
		Status:  resp.StatusCode(),
		Body:    append([]byte(nil), resp.Body()...),
		Headers: map[string]string{},
	}
	resp.Header.VisitAll(func(key, value []byte) {
		out.Headers[string(key)] = string(value)
	})
	return out, nil
}
