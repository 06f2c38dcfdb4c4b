package httpx

import (
	"fmt"
	"strings"
)

// Cookie is a Set-Cookie line to attach to a response.
type Cookie struct {
	Name     string
	Value    string
	HTTPOnly bool
	Clear    bool // emit Max-Age=0 to remove the cookie
}

// Response is an outbound message rendered as raw HTTP/1.1 bytes. Every
// response closes the connection.
type Response struct {
	Status   int
	Location string
	Body     string
	cookies  []Cookie
}

// HTML builds a 200 response carrying a rendered page.
func HTML(body string) *Response {
	return &Response{Status: 200, Body: body}
}

// Redirect builds a 302 response pointing at location.
func Redirect(location string) *Response {
	return &Response{Status: 302, Location: location}
}

// WithCookie attaches a Set-Cookie line; all cookies use Path=/.
func (r *Response) WithCookie(c Cookie) *Response {
	r.cookies = append(r.cookies, c)
	return r
}

func statusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 302:
		return "Found"
	default:
		return "OK"
	}
}

// Bytes renders the full wire message. Page responses carry Content-Type and
// a computed Content-Length; redirects carry only Location. Both end with
// Connection: close.
func (r *Response) Bytes() []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", r.Status, statusText(r.Status))

	if r.Location != "" {
		fmt.Fprintf(&b, "Location: %s\r\n", r.Location)
	} else {
		b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
		fmt.Fprintf(&b, "Content-Length: %d\r\n", len(r.Body))
	}

	for _, c := range r.cookies {
		fmt.Fprintf(&b, "Set-Cookie: %s=%s; Path=/", c.Name, c.Value)
		if c.HTTPOnly {
			b.WriteString("; HttpOnly")
		}
		if c.Clear {
			b.WriteString("; Max-Age=0")
		}
		b.WriteString("\r\n")
	}

	b.WriteString("Connection: close\r\n\r\n")
	b.WriteString(r.Body)

	return []byte(b.String())
}
