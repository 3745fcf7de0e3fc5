package pipeline

import (
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

// Response is the in-flight response passed through the stages. Its body is
// either a string or a stream; stages that need the text call Body, which
// drains a stream into a string first.
type Response struct {
	Status int
	Header http.Header

	body     string
	stream   io.Reader
	hasBody  bool
	explicit bool
}

// NewResponse returns an empty response. Until a body or status is set the
// status is 404.
func NewResponse() *Response {
	return &Response{Status: http.StatusNotFound, Header: http.Header{}}
}

// SetStatus sets the status code.
func (r *Response) SetStatus(code int) {
	r.Status = code
	r.explicit = true
}

// SetBody replaces the body with s. A response without an explicit status
// becomes 200; one without a content type is sniffed as HTML or plain text.
func (r *Response) SetBody(s string) {
	r.closeStream()
	r.body = s
	r.stream = nil
	r.assigned(strings.HasPrefix(strings.TrimSpace(s), "<"))
}

// SetStream replaces the body with a reader. Readers implementing io.Closer
// are closed once drained or written.
func (r *Response) SetStream(rd io.Reader) {
	r.closeStream()
	r.body = ""
	r.stream = rd
	r.assigned(false)
}

func (r *Response) assigned(looksHTML bool) {
	r.hasBody = true
	if !r.explicit {
		r.Status = http.StatusOK
	}
	if r.ContentType() == "" {
		if looksHTML {
			r.SetContentType("text/html; charset=utf-8")
		} else if r.stream == nil {
			r.SetContentType("text/plain; charset=utf-8")
		}
	}
}

// HasBody reports whether a body was assigned.
func (r *Response) HasBody() bool { return r.hasBody }

// IsStream reports whether the body is an undrained stream.
func (r *Response) IsStream() bool { return r.stream != nil }

// Body returns the body as a string, draining a stream body first.
func (r *Response) Body() (string, error) {
	if r.stream == nil {
		return r.body, nil
	}
	data, err := io.ReadAll(r.stream)
	r.closeStream()
	r.stream = nil
	if err != nil {
		return "", err
	}
	r.body = string(data)
	return r.body, nil
}

// ContentType returns the Content-Type header.
func (r *Response) ContentType() string { return r.Header.Get("Content-Type") }

// SetContentType sets the Content-Type header.
func (r *Response) SetContentType(ct string) { r.Header.Set("Content-Type", ct) }

// IsHTML reports whether the response carries an HTML body.
func (r *Response) IsHTML() bool {
	if !r.hasBody {
		return false
	}
	mt, _, err := mime.ParseMediaType(r.ContentType())
	return err == nil && mt == "text/html"
}

// Reset discards body, headers and status.
func (r *Response) Reset() {
	r.closeStream()
	*r = Response{Status: http.StatusNotFound, Header: http.Header{}}
}

func (r *Response) closeStream() {
	if c, ok := r.stream.(io.Closer); ok {
		_ = c.Close()
	}
}

// WriteTo sends the response. With head set only the headers are written.
func (r *Response) WriteTo(w http.ResponseWriter, head bool) error {
	h := w.Header()
	for k, vv := range r.Header {
		h[k] = vv
	}
	if r.stream == nil {
		h.Set("Content-Length", strconv.Itoa(len(r.body)))
	}
	w.WriteHeader(r.Status)
	if head || !r.hasBody {
		r.closeStream()
		return nil
	}
	if r.stream != nil {
		defer r.closeStream()
		_, err := io.Copy(w, r.stream)
		return err
	}
	_, err := io.WriteString(w, r.body)
	return err
}
