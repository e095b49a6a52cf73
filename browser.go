// Package chromectl drives a local browser through its remote debugging
// protocol: discover and open targets, attach debugging sessions, evaluate
// scripts, capture screenshots and stream console output.
package chromectl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	nurl "net/url"
	"strings"
	"sync"

	"github.com/chromectl/chromectl/lib/cdp"
	"github.com/chromectl/chromectl/lib/defaults"
	"github.com/chromectl/chromectl/lib/launcher"
	"github.com/chromectl/chromectl/lib/utils"
	"github.com/tidwall/gjson"
	"github.com/ysmood/kit"
)

// Target is an inspectable browser object, such as a tab or a worker. The
// descriptor is a point-in-time snapshot from the discovery endpoint, the
// browser owns the object, we only cache it.
type Target struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Attached bool   `json:"attached"`
}

// Browser is one debugging connection to one browser instance. Its methods
// are safe for concurrent use. Targets and Open only need the HTTP
// discovery surface, everything session-bound needs Connect first.
type Browser struct {
	ctx    context.Context
	cancel func()

	url    string // control url, such as http://127.0.0.1:9222
	client *cdp.Client
	events *Observable
	logger utils.Logger

	mu    sync.Mutex
	pages map[string]*Page // by target id
}

// New creates a controller with the defaults from the env
func New() *Browser {
	u := defaults.URL
	if u == "" {
		u = "http://" + defaults.Host + ":" + defaults.Port
	}

	return &Browser{
		url:    u,
		logger: utils.LoggerQuiet,
		pages:  map[string]*Page{},
	}
}

// ControlURL sets the remote debugging endpoint, such as http://127.0.0.1:9222
func (b *Browser) ControlURL(u string) *Browser {
	b.url = u
	return b
}

// Client sets the cdp client, mostly for tests
func (b *Browser) Client(c *cdp.Client) *Browser {
	b.client = c
	return b
}

// Logger sets the logger for connection diagnostics
func (b *Browser) Logger(l utils.Logger) *Browser {
	b.logger = l
	return b
}

// Connect to the browser-level websocket endpoint and start dispatching
// the inbound stream. Frames carrying a correlation id resolve their
// pending call inside the client, the rest flow through the event router.
func (b *Browser) Connect(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	b.ctx = ctx
	b.cancel = cancel

	if b.client == nil {
		wsURL := b.url
		if !strings.HasPrefix(wsURL, "ws") {
			var err error
			wsURL, err = launcher.GetWebSocketDebuggerURL(b.url)
			if err != nil {
				cancel()
				return err
			}
		}
		b.client = cdp.New(wsURL).Logger(b.logger)
	}

	if err := b.client.Connect(ctx); err != nil {
		cancel()
		return err
	}

	b.events = NewObservable()
	go b.dispatch()

	// without discovery the browser never reports destroyed targets
	_, err := b.call(ctx, "Target.setDiscoverTargets", cdp.Object{"discover": true})
	return err
}

// MustConnect is similar to Connect
func (b *Browser) MustConnect(ctx context.Context) *Browser {
	utils.E(b.Connect(ctx))
	return b
}

// Disconnect drops the debugging connection, the browser keeps running.
// Every active session becomes inactive.
func (b *Browser) Disconnect() {
	if b.cancel != nil {
		b.cancel()
	}
}

// Close asks the browser process to quit, then drops the connection
func (b *Browser) Close() error {
	_, err := b.call(b.ctx, "Browser.close", nil)
	b.Disconnect()
	return err
}

// Event returns the event router for this connection
func (b *Browser) Event() *Observable {
	return b.events
}

// dispatch is the single consumer of the client's event stream. It keeps
// the session state machines current and fans the events out.
func (b *Browser) dispatch() {
	for e := range b.client.Event() {
		if e.Method == "Target.targetDestroyed" {
			b.closeTarget(gjson.GetBytes(e.Params, "targetId").String())
		}
		b.events.Publish(e)
	}

	// connection is gone, no session can be used anymore
	b.mu.Lock()
	pages := make([]*Page, 0, len(b.pages))
	for _, p := range b.pages {
		pages = append(pages, p)
	}
	b.mu.Unlock()
	for _, p := range pages {
		p.markClosed()
	}

	b.events.UnsubscribeAll()
}

func (b *Browser) closeTarget(targetID string) {
	b.mu.Lock()
	p := b.pages[targetID]
	b.mu.Unlock()
	if p != nil {
		p.markClosed()
	}
}

// Targets returns the current target list from the discovery endpoint,
// a snapshot, not a subscription. An empty browser yields an empty list.
func (b *Browser) Targets() ([]Target, error) {
	obj, err := kit.Req(b.httpURL("/json/list", "")).JSON()
	if err != nil {
		return nil, err
	}

	list := []Target{}
	for _, t := range obj.Array() {
		list = append(list, Target{
			ID:       t.Get("id").String(),
			Type:     t.Get("type").String(),
			Title:    t.Get("title").String(),
			URL:      t.Get("url").String(),
			Attached: t.Get("attached").Bool(),
		})
	}
	return list, nil
}

// Open a new target at url and return its freshly assigned descriptor
func (b *Browser) Open(ctx context.Context, url string) (Target, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, b.httpURL("/json/new", url), nil)
	if err != nil {
		return Target{}, err
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return Target{}, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return Target{}, fmt.Errorf("open target: %s", res.Status)
	}

	var t Target
	err = json.NewDecoder(res.Body).Decode(&t)
	if err != nil {
		return Target{}, err
	}
	return t, nil
}

// Attach establishes a debugging session to the target. The target id may
// be stale, the tab can close between discovery and attach, then the call
// fails with ErrTargetNotFound.
func (b *Browser) Attach(ctx context.Context, targetID string) (*Page, error) {
	page := &Page{
		browser:  b,
		TargetID: targetID,
		state:    stateAttaching,
	}

	// register before the call: a Target.targetDestroyed racing the attach
	// response must still find the page and close it
	b.mu.Lock()
	b.pages[targetID] = page
	b.mu.Unlock()

	res, err := b.call(ctx, "Target.attachToTarget", cdp.Object{
		"targetId": targetID,
		"flatten":  true, // without it no response will return
	})
	if err != nil {
		b.mu.Lock()
		delete(b.pages, targetID)
		b.mu.Unlock()
		if isTargetNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, targetID)
		}
		return nil, err
	}

	page.SessionID = gjson.GetBytes(res, "sessionId").String()
	page.setState(stateAttached)

	return page, nil
}

// call issues a browser-level command, not bound to any session
func (b *Browser) call(ctx context.Context, method string, params interface{}) ([]byte, error) {
	return b.client.Call(ctx, "", method, params)
}

func (b *Browser) httpURL(path, query string) string {
	u, err := nurl.Parse(b.url)
	utils.E(err)
	if u.Scheme == "ws" {
		u.Scheme = "http"
	}
	if u.Scheme == "wss" {
		u.Scheme = "https"
	}
	u.Path = path
	u.RawQuery = query
	return u.String()
}

func isTargetNotFound(err error) bool {
	var cdpErr *cdp.Error
	return errors.As(err, &cdpErr) && strings.Contains(cdpErr.Message, "No target with given id")
}
