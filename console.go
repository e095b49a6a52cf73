package chromectl

import (
	"context"
	"fmt"
	"time"

	"github.com/chromectl/chromectl/lib/cdp"
	"github.com/tidwall/gjson"
)

// ConsoleRecord is one console or log event, normalized for rendering.
type ConsoleRecord struct {
	// T is the time since the subscription started, such as "+1.234s"
	T string `json:"t"`
	// Kind is the console call type (log, warning, ...) or the log entry level
	Kind string `json:"kind"`
	// Source of a log entry, such as "network", empty for console calls
	Source string `json:"source,omitempty"`
	// Text of a log entry, empty for console calls
	Text string `json:"text,omitempty"`
	// Args of a console call, normalized values
	Args []interface{} `json:"args,omitempty"`
}

// ConsoleTail streams the console and log events of this session for the
// given duration, then closes the channel. The cancellation is timer
// driven: the page may keep logging, the stream still ends. Events emitted
// before the subscription started are not replayed.
func (p *Page) ConsoleTail(ctx context.Context, d time.Duration) (<-chan ConsoleRecord, error) {
	if _, err := p.Call(ctx, "Runtime.enable", nil); err != nil {
		return nil, err
	}
	if _, err := p.Call(ctx, "Log.enable", nil); err != nil {
		return nil, err
	}

	sub := p.browser.events.Subscribe(EventFilter{SessionID: p.SessionID})
	start := time.Now()

	out := make(chan ConsoleRecord, 64)
	go func() {
		defer close(out)
		defer p.browser.events.Unsubscribe(sub)

		timer := time.NewTimer(d)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				return
			case e, ok := <-sub.C:
				if !ok {
					return
				}
				rec, ok := consoleRecord(e, start)
				if !ok {
					continue
				}
				select {
				case out <- rec:
				case <-ctx.Done():
					return
				case <-timer.C:
					return
				}
			}
		}
	}()

	return out, nil
}

// consoleRecord converts a protocol event into a ConsoleRecord. Enabling
// the runtime domain replays messages buffered before we subscribed, those
// are dropped by their own timestamp.
func consoleRecord(e *cdp.Event, start time.Time) (ConsoleRecord, bool) {
	params := gjson.ParseBytes(e.Params)
	rec := ConsoleRecord{T: fmt.Sprintf("+%.3fs", time.Since(start).Seconds())}

	switch e.Method {
	case "Runtime.consoleAPICalled":
		if stale(params.Get("timestamp"), start) {
			return rec, false
		}
		rec.Kind = params.Get("type").String()
		for _, arg := range params.Get("args").Array() {
			rec.Args = append(rec.Args, normalizeRemoteObject(arg).Value())
		}
		return rec, true

	case "Log.entryAdded":
		entry := params.Get("entry")
		if stale(entry.Get("timestamp"), start) {
			return rec, false
		}
		rec.Kind = entry.Get("level").String()
		rec.Source = entry.Get("source").String()
		rec.Text = entry.Get("text").String()
		return rec, true
	}

	return rec, false
}

// stale reports whether the event's own epoch-ms timestamp predates the
// subscription start.
func stale(ts gjson.Result, start time.Time) bool {
	return ts.Exists() && ts.Float() > 0 &&
		ts.Float() < float64(start.UnixNano())/float64(time.Millisecond)
}
