// Package cdp for application layer communication with browser.
package cdp

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/chromectl/chromectl/lib/defaults"
	"github.com/chromectl/chromectl/lib/utils"
)

// Client is a devtools protocol connection instance.
// It owns exactly one websocket connection. One read loop splits the inbound
// stream into correlated responses and unsolicited events.
type Client struct {
	ctx   context.Context
	close func()

	wsURL  string
	header http.Header
	ws     WebSocketable

	muSend sync.Mutex

	pending *pendingCalls // responses waiting to be correlated

	chEvent chan *Event

	count uint64

	logger utils.Logger
}

// Request to send to browser
type Request struct {
	ID        int         `json:"id"`
	SessionID string      `json:"sessionId,omitempty"`
	Method    string      `json:"method"`
	Params    interface{} `json:"params,omitempty"`
}

// Response from browser
type Response struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// Event from browser
type Event struct {
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// Object is a json object for the params of a request
type Object map[string]interface{}

// WebSocketable enables you to choose the websocket lib you want to use.
// Such as you can easily wrap gorilla/websocket and use it as the transport layer.
type WebSocketable interface {
	// Connect to server
	Connect(ctx context.Context, url string, header http.Header) error
	// Send text message only
	Send([]byte) error
	// Read returns text message only
	Read() ([]byte, error)
}

// New creates a cdp connection, all messages from Client.Event must be received or they will block the client.
func New(websocketURL string) *Client {
	logger := utils.LoggerQuiet
	if defaults.CDP {
		logger = defaultLogger
	}

	return &Client{
		pending: newPendingCalls(),
		chEvent: make(chan *Event),
		wsURL:   websocketURL,
		logger:  logger,
	}
}

// Header set the header of the remote control websocket request
func (cdp *Client) Header(header http.Header) *Client {
	cdp.header = header
	return cdp
}

// Websocket set the websocket lib to use
func (cdp *Client) Websocket(ws WebSocketable) *Client {
	cdp.ws = ws
	return cdp
}

// Logger sets the logger to log all the requests, responses, and events transferred between chromectl and the browser.
// The default format for each type is in file format.go
func (cdp *Client) Logger(l utils.Logger) *Client {
	cdp.logger = l
	return cdp
}

// Connect to browser
func (cdp *Client) Connect(ctx context.Context) error {
	if cdp.ws == nil {
		cdp.ws = &WebSocket{}
	}

	// the connection lifetime is tied to this ctx, wsClose cancels it
	ctx, cancel := context.WithCancel(ctx)

	err := cdp.ws.Connect(ctx, cdp.wsURL, cdp.header)
	if err != nil {
		cancel()
		return err
	}

	cdp.ctx = ctx
	cdp.close = cancel

	go cdp.readMsgFromBrowser()

	return nil
}

// MustConnect is similar to Connect
func (cdp *Client) MustConnect(ctx context.Context) *Client {
	utils.E(cdp.Connect(ctx))
	return cdp
}

// Call a method and wait for its response. The id space is shared by all
// concurrent callers, each caller only ever receives the response whose id
// matches its own request. When ctx is done before the response arrives the
// pending entry is removed so a late response is silently dropped.
func (cdp *Client) Call(ctx context.Context, sessionID, method string, params interface{}) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := &Request{
		ID:        int(atomic.AddUint64(&cdp.count, 1)),
		SessionID: sessionID,
		Method:    method,
		Params:    params,
	}

	cdp.logger.Println(req)

	data, err := json.Marshal(req)
	utils.E(err)

	pending := newPendingCall()
	if err := cdp.pending.add(req.ID, pending); err != nil {
		return nil, err
	}
	defer cdp.pending.delete(req.ID)

	if err := cdp.sendMsg(data); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()

	case r := <-pending.result:
		if r.err != nil {
			return nil, r.err
		}
		res := r.response
		if res.Error != nil {
			return nil, res.Error
		}
		return res.Result, nil
	}
}

// Event returns a channel that will emit browser devtools protocol events. Must be consumed or will block producer.
// The channel is closed when the connection is gone.
func (cdp *Client) Event() <-chan *Event {
	return cdp.chEvent
}

func (cdp *Client) sendMsg(data []byte) error {
	cdp.muSend.Lock()
	defer cdp.muSend.Unlock()

	err := cdp.ws.Send(data)
	if err != nil {
		cdp.wsClose(err)
		return &ErrConnClosed{err}
	}

	return nil
}

func (cdp *Client) readMsgFromBrowser() {
	defer close(cdp.chEvent)
	defer cdp.wsClose(nil)

	for {
		data, err := cdp.ws.Read()
		if err != nil {
			cdp.wsClose(err)
			return
		}

		var id struct {
			ID int `json:"id"`
		}
		err = json.Unmarshal(data, &id)
		utils.E(err)

		if id.ID != 0 {
			var res Response
			err := json.Unmarshal(data, &res)
			utils.E(err)
			cdp.logger.Println(&res)
			cdp.pending.fulfill(id.ID, &res)
		} else {
			var evt Event
			err := json.Unmarshal(data, &evt)
			utils.E(err)
			cdp.logger.Println(&evt)
			select {
			case <-cdp.ctx.Done():
				return
			case cdp.chEvent <- &evt:
			}
		}
	}
}

func (cdp *Client) wsClose(err error) {
	if err != nil {
		cdp.logger.Println(err)
	}
	cdp.pending.close(&ErrConnClosed{err})
	cdp.close()
}

// pendingCalls tracks the requests that have been sent to the browser and
// are still waiting for a response.
type pendingCalls struct {
	mu      sync.Mutex
	err     error
	pending map[int]*pendingCall
}

func newPendingCalls() *pendingCalls {
	return &pendingCalls{
		pending: map[int]*pendingCall{},
	}
}

// close rejects all the pending calls and makes every later add fail,
// so that after the connection is gone no call can hang.
func (calls *pendingCalls) close(err error) {
	calls.mu.Lock()
	defer calls.mu.Unlock()

	if calls.err != nil {
		return
	}
	calls.err = err

	for _, pending := range calls.pending {
		pending.reject(err)
	}
	calls.pending = map[int]*pendingCall{}
}

// add a new pending call. When the browser has disconnected it returns the
// connection error instead.
func (calls *pendingCalls) add(id int, call *pendingCall) error {
	calls.mu.Lock()
	defer calls.mu.Unlock()
	if calls.err != nil {
		return calls.err
	}
	calls.pending[id] = call
	return nil
}

// fulfill resolves the pending call and removes it from the map.
// A response without a matching call is dropped, the caller gave up already.
func (calls *pendingCalls) fulfill(id int, r *Response) {
	calls.mu.Lock()
	defer calls.mu.Unlock()

	pending, ok := calls.pending[id]
	if !ok {
		return
	}
	pending.respond(r)
	delete(calls.pending, id)
}

func (calls *pendingCalls) delete(id int) {
	calls.mu.Lock()
	defer calls.mu.Unlock()
	delete(calls.pending, id)
}

type pendingCall struct {
	done   sync.Once
	result chan pendingResult
}

type pendingResult struct {
	response *Response
	err      error
}

func newPendingCall() *pendingCall {
	return &pendingCall{result: make(chan pendingResult, 1)}
}

func (pending *pendingCall) respond(r *Response) {
	select {
	case pending.result <- pendingResult{response: r}:
	default:
	}
	pending.done.Do(func() { close(pending.result) })
}

func (pending *pendingCall) reject(err error) {
	select {
	case pending.result <- pendingResult{err: err}:
	default:
	}
	pending.done.Do(func() { close(pending.result) })
}
