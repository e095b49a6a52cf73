package chromectl

import (
	"context"
	"sync"

	"github.com/chromectl/chromectl/lib/cdp"
	"github.com/tidwall/gjson"
)

type sessionState int32

// client-side view of the session lifecycle, closed is terminal
const (
	stateUnattached sessionState = iota
	stateAttaching
	stateAttached
	stateDetached
	stateClosed
)

// Page is one attached debugging session. The target id identifies the
// browser object, the session id addresses the wire frames after attach,
// they live in different namespaces and must not be conflated.
type Page struct {
	browser *Browser

	TargetID  string
	SessionID string

	muState sync.Mutex
	state   sessionState

	// one full page capture at a time per session, the viewport override
	// must not interleave with another capture's
	muScreenshot sync.Mutex
}

// Call issues a command bound to this session
func (p *Page) Call(ctx context.Context, method string, params interface{}) (gjson.Result, error) {
	if !p.Active() {
		return gjson.Result{}, ErrSessionInactive
	}

	res, err := p.browser.client.Call(ctx, p.SessionID, method, params)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(res), nil
}

// Active reports whether commands can still be issued through this session
func (p *Page) Active() bool {
	p.muState.Lock()
	defer p.muState.Unlock()
	return p.state == stateAttached
}

// Navigate the page to url
func (p *Page) Navigate(ctx context.Context, url string) error {
	_, err := p.Call(ctx, "Page.navigate", cdp.Object{"url": url})
	return err
}

// Detach releases the session, idempotent. The target keeps running.
func (p *Page) Detach(ctx context.Context) error {
	p.muState.Lock()
	if p.state == stateDetached || p.state == stateClosed {
		p.muState.Unlock()
		return nil
	}
	p.state = stateDetached
	p.muState.Unlock()

	_, err := p.browser.call(ctx, "Target.detachFromTarget", cdp.Object{
		"sessionId": p.SessionID,
	})
	return err
}

func (p *Page) setState(s sessionState) {
	p.muState.Lock()
	defer p.muState.Unlock()
	if p.state == stateClosed {
		return
	}
	p.state = s
}

// markClosed is called when the browser reports the target gone or the
// connection is lost, terminal.
func (p *Page) markClosed() {
	p.muState.Lock()
	defer p.muState.Unlock()
	p.state = stateClosed
}
