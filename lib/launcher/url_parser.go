package launcher

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
)

var _ io.Writer = &URLParser{}

// URLParser scrapes the remote debugging control URL from the browser's
// stderr output.
type URLParser struct {
	sync.Mutex

	URL    chan string
	Buffer string // buffer for the browser output

	done bool
}

// NewURLParser instance
func NewURLParser() *URLParser {
	return &URLParser{
		URL: make(chan string, 1),
	}
}

var regWS = regexp.MustCompile(`ws://.+/`)

// Write interface
func (r *URLParser) Write(p []byte) (n int, err error) {
	r.Lock()
	defer r.Unlock()

	if !r.done {
		r.Buffer += string(p)

		str := regWS.FindString(r.Buffer)
		if str != "" {
			u, err := url.Parse(strings.TrimSpace(str))
			if err == nil {
				r.URL <- "http://" + u.Host
				r.done = true
				r.Buffer = ""
			}
		}
	}

	return len(p), nil
}

// Read the control URL, waiting at most timeout for the browser to print it
func (r *URLParser) Read(timeout time.Duration) (string, error) {
	select {
	case u := <-r.URL:
		return u, nil
	case <-time.After(timeout):
		r.Lock()
		defer r.Unlock()
		return "", fmt.Errorf("launcher: failed to get the control url within %v: %s", timeout, r.Buffer)
	}
}
