package chromectl_test

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// idle keepalive connections of the shared http client
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

const defaultLayoutMetrics = `{
	"layoutViewport":{"pageX":0,"pageY":0,"clientWidth":1280,"clientHeight":800},
	"cssLayoutViewport":{"clientWidth":1280,"clientHeight":800},
	"visualViewport":{"scale":1},
	"contentSize":{"x":0,"y":0,"width":1280,"height":4500},
	"cssContentSize":{"width":1280,"height":4500}
}`

var fakePNG = []byte("fake-png-bytes")

// mockBrowser is a fake debugging endpoint: the HTTP discovery surface plus
// a websocket speaking just enough of the protocol for the driver.
type mockBrowser struct {
	t   *testing.T
	srv *httptest.Server

	mu        sync.Mutex
	targets   map[string]mockTarget
	nextID    int
	calls     []string          // method names in arrival order
	overrides []gjson.Result    // params of every device metrics override
	evals     map[string]string // expression -> Runtime.evaluate result payload
	metrics   string
	failNext  map[string]bool // method -> respond with an error once

	// emit Target.targetDestroyed right before the attach response, the
	// tab closing while the attach is in flight
	destroyDuringAttach bool

	conn   *websocket.Conn
	connMu sync.Mutex
}

type mockTarget struct {
	id, typ, title, url string
}

func newMockBrowser(t *testing.T) *mockBrowser {
	t.Helper()

	b := &mockBrowser{
		t:        t,
		targets:  map[string]mockTarget{},
		evals:    map[string]string{},
		metrics:  defaultLayoutMetrics,
		failNext: map[string]bool{},
	}

	upgrader := websocket.Upgrader{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/devtools/"):
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			b.connMu.Lock()
			b.conn = conn
			b.connMu.Unlock()
			b.serve(conn)

		case r.URL.Path == "/json/version":
			host := strings.TrimPrefix(b.srv.URL, "http://")
			fmt.Fprintf(w, `{"webSocketDebuggerUrl":"ws://%s/devtools/browser/mock"}`, host)

		case r.URL.Path == "/json/list":
			b.writeTargetList(w)

		case r.URL.Path == "/json/new" && r.Method == http.MethodPut:
			fmt.Fprint(w, targetJSON(b.addTarget(r.URL.RawQuery)))

		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(b.close)

	return b
}

func (b *mockBrowser) close() {
	b.connMu.Lock()
	if b.conn != nil {
		_ = b.conn.Close()
	}
	b.connMu.Unlock()
	b.srv.Close()
}

func (b *mockBrowser) url() string { return b.srv.URL }

func (b *mockBrowser) addTarget(url string) mockTarget {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	t := mockTarget{id: fmt.Sprintf("t-%d", b.nextID), typ: "page", title: "mock", url: url}
	b.targets[t.id] = t
	return t
}

// destroyTarget removes the target and notifies like a real browser would
func (b *mockBrowser) destroyTarget(id string) {
	b.mu.Lock()
	delete(b.targets, id)
	b.mu.Unlock()
	b.emit("Target.targetDestroyed", "", fmt.Sprintf(`{"targetId":"%s"}`, id))
}

func (b *mockBrowser) writeTargetList(w http.ResponseWriter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := []string{}
	for _, t := range b.targets {
		items = append(items, targetJSON(t))
	}
	fmt.Fprint(w, "["+strings.Join(items, ",")+"]")
}

func targetJSON(t mockTarget) string {
	return fmt.Sprintf(`{"id":"%s","type":"%s","title":"%s","url":"%s","attached":false}`,
		t.id, t.typ, t.title, t.url)
}

// emit an unsolicited event frame to the client
func (b *mockBrowser) emit(method, sessionID, params string) {
	ses := ""
	if sessionID != "" {
		ses = fmt.Sprintf(`"sessionId":"%s",`, sessionID)
	}
	b.send(fmt.Sprintf(`{%s"method":"%s","params":%s}`, ses, method, params))
}

func (b *mockBrowser) send(frame string) {
	b.connMu.Lock()
	defer b.connMu.Unlock()
	if b.conn != nil {
		_ = b.conn.WriteMessage(websocket.TextMessage, []byte(frame))
	}
}

// calledMethods returns a copy of the method log
func (b *mockBrowser) calledMethods() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string{}, b.calls...)
}

func (b *mockBrowser) overrideParams() []gjson.Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]gjson.Result{}, b.overrides...)
}

func (b *mockBrowser) stubEval(expression, resultPayload string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.evals[expression] = resultPayload
}

func (b *mockBrowser) failOnce(method string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNext[method] = true
}

func (b *mockBrowser) serve(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		req := gjson.ParseBytes(data)
		id := req.Get("id").Int()
		method := req.Get("method").String()

		b.mu.Lock()
		b.calls = append(b.calls, method)
		shouldFail := b.failNext[method]
		if shouldFail {
			delete(b.failNext, method)
		}
		b.mu.Unlock()

		if shouldFail {
			b.send(fmt.Sprintf(`{"id":%d,"error":{"code":-32000,"message":"mock failure of %s"}}`, id, method))
			continue
		}

		b.send(fmt.Sprintf(`{"id":%d,%s}`, id, b.respond(req)))
	}
}

// respond returns either a "result" or an "error" member for the request
func (b *mockBrowser) respond(req gjson.Result) string {
	method := req.Get("method").String()

	switch method {
	case "Target.attachToTarget":
		targetID := req.Get("params.targetId").String()
		b.mu.Lock()
		_, ok := b.targets[targetID]
		destroy := b.destroyDuringAttach
		b.mu.Unlock()
		if !ok {
			return `"error":{"code":-32602,"message":"No target with given id found"}`
		}
		if destroy {
			b.emit("Target.targetDestroyed", "", fmt.Sprintf(`{"targetId":"%s"}`, targetID))
		}
		return fmt.Sprintf(`"result":{"sessionId":"sess-%s"}`, targetID)

	case "Runtime.evaluate":
		expr := req.Get("params.expression").String()
		b.mu.Lock()
		payload, ok := b.evals[expr]
		b.mu.Unlock()
		if !ok {
			return `"result":{"result":{"type":"undefined"}}`
		}
		return `"result":` + payload

	case "Page.getLayoutMetrics":
		b.mu.Lock()
		m := b.metrics
		b.mu.Unlock()
		return `"result":` + m

	case "Emulation.setDeviceMetricsOverride":
		b.mu.Lock()
		b.overrides = append(b.overrides, req.Get("params"))
		b.mu.Unlock()
		return `"result":{}`

	case "Page.captureScreenshot":
		return fmt.Sprintf(`"result":{"data":"%s"}`, base64.StdEncoding.EncodeToString(fakePNG))

	default:
		// Target.setDiscoverTargets, Runtime.enable, Log.enable,
		// Page.bringToFront, Target.detachFromTarget, ...
		return `"result":{}`
	}
}
