package cmd

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// consoleStub is a fake endpoint whose one page logs on a fixed interval
// for as long as the connection lives.
func consoleStub(t *testing.T, interval time.Duration) (host, port string) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/devtools/"):
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}

			var mu sync.Mutex
			send := func(frame string) {
				mu.Lock()
				defer mu.Unlock()
				_ = conn.WriteMessage(websocket.TextMessage, []byte(frame))
			}

			done := make(chan struct{})
			defer close(done)
			go func() {
				tick := time.NewTicker(interval)
				defer tick.Stop()
				n := 0
				for {
					select {
					case <-done:
						return
					case <-tick.C:
						n++
						send(fmt.Sprintf(
							`{"sessionId":"sess-1","method":"Runtime.consoleAPICalled","params":{"type":"log","args":[{"type":"number","value":%d}],"timestamp":%f}}`,
							n, float64(time.Now().UnixNano())/float64(time.Millisecond)))
					}
				}
			}()

			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					return
				}
				req := gjson.ParseBytes(data)
				if req.Get("method").String() == "Target.attachToTarget" {
					send(fmt.Sprintf(`{"id":%d,"result":{"sessionId":"sess-1"}}`, req.Get("id").Int()))
					continue
				}
				send(fmt.Sprintf(`{"id":%d,"result":{}}`, req.Get("id").Int()))
			}

		case r.URL.Path == "/json/version":
			fmt.Fprintf(w, `{"webSocketDebuggerUrl":"ws://%s/devtools/browser/stub"}`, r.Host)

		case r.URL.Path == "/json/list":
			fmt.Fprint(w, `[{"id":"tab-1","type":"page","title":"","url":"about:blank","attached":false}]`)

		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, port, err = net.SplitHostPort(u.Host)
	require.NoError(t, err)
	return host, port
}

func TestConsoleStreamOutlivesSetupTimeout(t *testing.T) {
	host, port := consoleStub(t, 50*time.Millisecond)
	defer func() { flagTimeout = 30 * time.Second }()

	start := time.Now()
	out, err := execute(t, "console",
		"--duration", "700ms", "--timeout", "200ms",
		"--host", host, "--port", port)
	elapsed := time.Since(start)

	require.NoError(t, err)
	// the stream runs for the full duration, the setup timeout only bounds
	// connect and attach
	assert.GreaterOrEqual(t, elapsed, 700*time.Millisecond)
	records := strings.Count(out, `"kind":"log"`)
	assert.Greater(t, records, 6,
		"events past the 200ms setup timeout must still be delivered, got %d:\n%s", records, out)
}
