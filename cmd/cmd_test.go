package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chromectl/chromectl"
	"github.com/chromectl/chromectl/lib/cdp"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// discoveryStub serves just the HTTP discovery surface
func discoveryStub(t *testing.T) (host, port string) {
	t.Helper()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.GET("/json/version", func(c *gin.Context) {
		c.String(http.StatusOK, `{"webSocketDebuggerUrl":"ws://%s/devtools/browser/stub"}`, c.Request.Host)
	})
	router.GET("/json/list", func(c *gin.Context) {
		c.String(http.StatusOK, `[{"id":"tab-1","type":"page","title":"Example","url":"https://example.com/","attached":false}]`)
	})
	router.PUT("/json/new", func(c *gin.Context) {
		c.String(http.StatusOK, `{"id":"tab-2","type":"page","title":"","url":"%s","attached":false}`, c.Request.URL.RawQuery)
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, port, err = net.SplitHostPort(u.Host)
	require.NoError(t, err)
	return host, port
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"stale target", fmt.Errorf("attach: %w", chromectl.ErrTargetNotFound), exitStale},
		{"inactive session", chromectl.ErrSessionInactive, exitStale},
		{"script threw", &chromectl.EvalError{Description: "Error: boom"}, exitRemote},
		{"browser error", &cdp.Error{Code: -32000, Message: "nope"}, exitRemote},
		{"connection lost", &cdp.ErrConnClosed{Details: errors.New("eof")}, exitConnection},
		{"timed out", context.DeadlineExceeded, exitConnection},
		{"anything else", errors.New("kaboom"), exitFailure},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.code, exitCode(c.err))
		})
	}
}

func TestFlagsReachConfig(t *testing.T) {
	host, port := discoveryStub(t)

	_, err := execute(t, "list", "--host", host, "--port", port)

	require.NoError(t, err)
	assert.Equal(t, host, cfg.Host)
	assert.Equal(t, port, cfg.Port)
}

func TestStartReusesRunningInstance(t *testing.T) {
	host, port := discoveryStub(t)

	// the stub answers /json/version on the fixed port, so start must
	// reuse it instead of spawning a browser
	out, err := execute(t, "start", "--host", host, "--port", port)

	require.NoError(t, err)
	assert.Contains(t, out, "http://127.0.0.1:"+port)
}

func TestListText(t *testing.T) {
	host, port := discoveryStub(t)

	out, err := execute(t, "list", "--host", host, "--port", port)

	require.NoError(t, err)
	assert.Contains(t, out, "tab-1")
	assert.Contains(t, out, "https://example.com/")
}

func TestListJSON(t *testing.T) {
	host, port := discoveryStub(t)

	out, err := execute(t, "list", "--json", "--host", host, "--port", port)

	require.NoError(t, err)
	assert.Contains(t, out, `"id":"tab-1"`)
	assert.Contains(t, out, `"type":"page"`)
}

func TestOpen(t *testing.T) {
	host, port := discoveryStub(t)

	out, err := execute(t, "open", "https://example.com/new", "--host", host, "--port", port)

	require.NoError(t, err)
	assert.Contains(t, out, "tab-2")
}

func TestListUnreachable(t *testing.T) {
	out, err := execute(t, "list", "--host", "127.0.0.1", "--port", "1")

	require.Error(t, err)
	assert.NotContains(t, out, "tab-")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "chromectl")
}

func TestPickTargetFlag(t *testing.T) {
	flagTarget = "explicit-target"
	defer func() { flagTarget = "" }()

	id, err := pickTarget(nil)
	require.NoError(t, err)
	assert.Equal(t, "explicit-target", id)
}
