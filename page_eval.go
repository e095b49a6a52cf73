package chromectl

import (
	"context"
	"strconv"

	"github.com/chromectl/chromectl/lib/cdp"
	"github.com/tidwall/gjson"
)

// Eval evaluates the expression in the page context and returns the
// normalized value. With awaitPromise the remote side waits for a returned
// promise to settle before replying, so asynchronous page code needs no
// special casing by the caller: the resolved value comes back as the value,
// a rejection comes back as an *EvalError.
func (p *Page) Eval(ctx context.Context, expression string, awaitPromise bool) (gjson.Result, error) {
	res, err := p.Call(ctx, "Runtime.evaluate", cdp.Object{
		"expression":    expression,
		"returnByValue": true,
		"awaitPromise":  awaitPromise,
		"replMode":      true, // top level await works
	})
	if err != nil {
		return gjson.Result{}, err
	}

	if details := res.Get("exceptionDetails"); details.Exists() {
		return gjson.Result{}, &EvalError{
			Description: exceptionDescription(details),
			Details:     details.Raw,
		}
	}

	return normalizeRemoteObject(res.Get("result")), nil
}

func exceptionDescription(details gjson.Result) string {
	if desc := details.Get("exception.description"); desc.Exists() {
		return desc.String()
	}
	if val := details.Get("exception.value"); val.Exists() {
		return val.String()
	}
	return details.Get("text").String()
}

// normalizeRemoteObject reduces a protocol remote object to a renderable
// JSON value: primitives and by-value objects as-is (key order preserved),
// everything unserializable degrades to its description string. It never
// fails, there is always something to print.
func normalizeRemoteObject(r gjson.Result) gjson.Result {
	if v := r.Get("value"); v.Exists() {
		return v
	}

	desc := r.Get("description").String()
	if desc == "" {
		desc = r.Get("subtype").String()
	}
	if desc == "" {
		desc = r.Get("type").String()
	}
	return gjson.Parse(strconv.Quote(desc))
}
