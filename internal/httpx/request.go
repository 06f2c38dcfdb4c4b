// Package httpx implements the minimal HTTP/1.1 message handling this server
// needs: a one-shot request parser over a single bounded read, percent
// encoding/decoding, and a raw response builder.
//
// Known limitation carried over from the original design: the body is whatever
// fit into the first read. Content-Length is ignored and bodies larger than
// the read buffer are truncated.
package httpx

import "strings"

// Param is one key/value pair of a query string or form body.
type Param struct {
	Key   string
	Value string
}

// Params preserves the order in which pairs appeared on the wire.
type Params []Param

// Get returns the first value for key, or "".
func (p Params) Get(key string) string {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value
		}
	}
	return ""
}

// GetAll returns every value for key, in order.
func (p Params) GetAll(key string) []string {
	var vals []string
	for _, kv := range p {
		if kv.Key == key {
			vals = append(vals, kv.Value)
		}
	}
	return vals
}

// Header is one request header line.
type Header struct {
	Name  string
	Value string
}

// Request is the decomposed form of one raw request buffer. Zero-valued
// fields mean the corresponding part was absent or malformed; parsing never
// fails outright.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Query    Params
	Headers  []Header
	Cookies  map[string]string
	Body     string
}

// Parse decomposes a single raw read of a client connection. Structurally
// unexpected input degrades to empty fields so the dispatcher can still route
// to a safe default.
func Parse(buf []byte) Request {
	req := Request{Cookies: map[string]string{}}

	raw := string(buf)
	head, body, found := strings.Cut(raw, "\r\n\r\n")
	if found {
		req.Body = body
	}

	lines := strings.Split(head, "\r\n")
	if len(lines) == 0 {
		return req
	}

	fields := strings.Fields(lines[0])
	if len(fields) < 2 {
		return req
	}
	req.Method = fields[0]

	target := fields[1]
	if path, rawQuery, ok := strings.Cut(target, "?"); ok {
		req.Path = path
		req.RawQuery = rawQuery
		req.Query = parsePairs(rawQuery)
	} else {
		req.Path = target
	}

	for _, line := range lines[1:] {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		h := Header{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)}
		req.Headers = append(req.Headers, h)
		if strings.EqualFold(h.Name, "Cookie") {
			parseCookies(h.Value, req.Cookies)
		}
	}

	return req
}

// Header returns the value of the named header, case-insensitively.
func (r Request) Header(name string) string {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Cookie returns the named cookie value, or "".
func (r Request) Cookie(name string) string {
	return r.Cookies[name]
}

// Form parses the body as application/x-www-form-urlencoded pairs.
func (r Request) Form() Params {
	return parsePairs(r.Body)
}

func parsePairs(s string) Params {
	var params Params
	for _, pair := range strings.Split(s, "&") {
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		params = append(params, Param{
			Key:   DecodeComponent(key),
			Value: DecodeComponent(value),
		})
	}
	return params
}

func parseCookies(header string, into map[string]string) {
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		into[name] = DecodeComponent(value)
	}
}
