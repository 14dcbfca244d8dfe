// File: httpwire/http1.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// HTTP1Decoder is grounded on the line/header reading shape of
// gufeijun-blog's httpd tutorial (httpd/6/httpd/request.go,
// httpd/6/httpd/chunk.go): read a line with bufio, split on the first
// ':', bound the total bytes read so oversize input fails fast instead
// of buffering unbounded.

package httpwire

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
)

// HTTP1Decoder is the default Decoder, supporting HTTP/1.0 and
// HTTP/1.1 request/response framing including keep-alive and chunked
// transfer, per spec §6.
type HTTP1Decoder struct{}

var _ Decoder = HTTP1Decoder{}

func (HTTP1Decoder) ReadRequestLine(r *bufio.Reader, maxLineSize int) (RequestLine, error) {
	line, err := readBoundedLine(r, maxLineSize)
	if err != nil {
		return RequestLine{}, err
	}

	fields := strings.Fields(string(line))
	if len(fields) != 3 {
		return RequestLine{}, fmt.Errorf("%w: request line %q", ErrMalformedRequest, line)
	}

	u, err := url.ParseRequestURI(fields[1])
	if err != nil {
		return RequestLine{}, fmt.Errorf("%w: uri %q: %v", ErrMalformedRequest, fields[1], err)
	}

	ver, err := parseVersion(fields[2])
	if err != nil {
		return RequestLine{}, err
	}

	return RequestLine{Method: fields[0], URI: u, Version: ver}, nil
}

func parseVersion(tok string) (Version, error) {
	if !strings.HasPrefix(tok, "HTTP/") {
		return Version{}, fmt.Errorf("%w: version %q", ErrMalformedRequest, tok)
	}
	parts := strings.SplitN(tok[len("HTTP/"):], ".", 2)
	if len(parts) != 2 {
		return Version{}, fmt.Errorf("%w: version %q", ErrMalformedRequest, tok)
	}
	major, err1 := strconv.Atoi(parts[0])
	minor, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return Version{}, fmt.Errorf("%w: version %q", ErrMalformedRequest, tok)
	}
	return Version{Major: major, Minor: minor}, nil
}

func (HTTP1Decoder) ReadHeaders(r *bufio.Reader, maxHeaderSize int) (textproto.MIMEHeader, int, error) {
	header := make(textproto.MIMEHeader)
	consumed := 0

	for {
		line, err := readBoundedLine(r, maxHeaderSize-consumed)
		if err != nil {
			return nil, consumed, err
		}
		consumed += len(line) + 2 // account for the stripped CRLF
		if consumed > maxHeaderSize {
			return nil, consumed, ErrHeaderTooLarge
		}
		if len(line) == 0 {
			break
		}

		i := bytes.IndexByte(line, ':')
		if i <= 0 {
			return nil, consumed, fmt.Errorf("%w: header %q", ErrMalformedRequest, line)
		}
		key := textproto.TrimString(string(line[:i]))
		val := textproto.TrimString(string(line[i+1:]))
		header.Add(key, val)
	}

	return header, consumed, nil
}

func (HTTP1Decoder) Body(r *bufio.Reader, headers textproto.MIMEHeader, maxBodySize int) (io.Reader, error) {
	if strings.EqualFold(headers.Get("Transfer-Encoding"), "chunked") {
		return &limitedReader{r: newChunkReader(r), limit: int64(maxBodySize)}, nil
	}

	cl := headers.Get("Content-Length")
	if cl == "" {
		return io.LimitReader(r, 0), nil
	}
	n, err := strconv.ParseInt(cl, 10, 64)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: content-length %q", ErrMalformedRequest, cl)
	}
	if n > int64(maxBodySize) {
		return nil, ErrBodyTooLarge
	}
	return io.LimitReader(r, n), nil
}

func (HTTP1Decoder) KeepAlive(version Version, headers textproto.MIMEHeader) bool {
	conn := strings.ToLower(headers.Get("Connection"))
	switch conn {
	case "close":
		return false
	case "keep-alive":
		return true
	}
	return version.AtLeast11()
}

func (HTTP1Decoder) WriteResponse(w io.Writer, resp Response) error {
	bw := bufio.NewWriter(w)

	reason := resp.Reason
	if reason == "" {
		reason = "Status"
	}
	if _, err := fmt.Fprintf(bw, "%s %d %s\r\n", resp.Version.String(), resp.Status, reason); err != nil {
		return err
	}

	header := resp.Header
	if header == nil {
		header = make(textproto.MIMEHeader)
	}
	if header.Get("Content-Length") == "" {
		header.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	}
	if header.Get("Connection") == "" {
		if resp.KeepAlive {
			header.Set("Connection", "keep-alive")
		} else {
			header.Set("Connection", "close")
		}
	}

	for k, vs := range header {
		for _, v := range vs {
			if _, err := fmt.Fprintf(bw, "%s: %s\r\n", k, v); err != nil {
				return err
			}
		}
	}
	if _, err := bw.WriteString("\r\n"); err != nil {
		return err
	}
	if len(resp.Body) > 0 {
		if _, err := bw.Write(resp.Body); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// readBoundedLine reads one CRLF- or LF-terminated line, refusing to
// buffer more than limit bytes so a client that never sends a
// terminator cannot exhaust memory.
func readBoundedLine(r *bufio.Reader, limit int) ([]byte, error) {
	if limit < 0 {
		return nil, ErrHeaderTooLarge
	}
	var line []byte
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return nil, err
		}
		line = append(line, chunk...)
		if len(line) > limit {
			return nil, ErrHeaderTooLarge
		}
		if !isPrefix {
			return line, nil
		}
	}
}

type limitedReader struct {
	r     io.Reader
	limit int64
	read  int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.read >= l.limit {
		// A body exactly at the limit ends here; only a further byte is
		// an oversize body.
		var probe [1]byte
		for {
			n, err := l.r.Read(probe[:])
			if n > 0 {
				return 0, ErrBodyTooLarge
			}
			if err != nil {
				return 0, err
			}
		}
	}
	if int64(len(p)) > l.limit-l.read {
		p = p[:l.limit-l.read]
	}
	n, err := l.r.Read(p)
	l.read += int64(n)
	return n, err
}
