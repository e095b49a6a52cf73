package cdp

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/chromectl/chromectl/lib/utils"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var defaultLogger utils.Logger = log.New(os.Stdout, "[cdp] ", log.LstdFlags)

// maxPayload is the longest string field printed by the frame log, longer
// ones (screenshot base64 for example) are elided.
const maxPayload = 256

// String interface
func (req *Request) String() string {
	data, _ := json.Marshal(req)
	return fmt.Sprintf("=> #%d %s %s", req.ID, req.Method, elide(data, "params"))
}

// String interface
func (res *Response) String() string {
	if res.Error != nil {
		return fmt.Sprintf("<= #%d error: %s", res.ID, res.Error.Message)
	}
	return fmt.Sprintf("<= #%d %s", res.ID, elide(res.Result, ""))
}

// String interface
func (e *Event) String() string {
	ses := ""
	if e.SessionID != "" {
		ses = " @" + e.SessionID
	}
	return fmt.Sprintf("<- %s%s %s", e.Method, ses, elide(e.Params, ""))
}

// elide replaces every long string leaf under root with a length marker so
// the frame log stays readable.
func elide(data []byte, root string) string {
	if len(data) == 0 {
		return "{}"
	}

	out := string(data)
	doc := gjson.ParseBytes(data)
	if root != "" {
		doc = doc.Get(root)
		if !doc.Exists() {
			return "{}"
		}
		out = doc.Raw
	}

	doc.ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.String && len(value.String()) > maxPayload {
			out, _ = sjson.Set(out, key.String(),
				fmt.Sprintf("<%d bytes elided>", len(value.String())))
		}
		return true
	})

	return out
}
