package launcher

import (
	"errors"
	nurl "net/url"

	"github.com/ysmood/kit"
)

// GetWebSocketDebuggerURL resolves the browser-level websocket endpoint
// from the plain HTTP discovery surface, url is like http://127.0.0.1:9222.
func GetWebSocketDebuggerURL(url string) (string, error) {
	u, err := nurl.Parse(url)
	if err != nil {
		return "", err
	}

	if u.Scheme == "ws" {
		u.Scheme = "http"
	}
	if u.Scheme == "wss" {
		u.Scheme = "https"
	}

	u.Path = "/json/version"

	obj, err := kit.Req(u.String()).JSON()
	if err != nil {
		return "", err
	}

	ws := obj.Get("webSocketDebuggerUrl").String()
	if ws == "" {
		return "", errors.New("launcher: no webSocketDebuggerUrl in " + u.String())
	}
	return ws, nil
}
