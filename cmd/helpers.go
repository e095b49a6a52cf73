package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/chromectl/chromectl"
	"github.com/chromectl/chromectl/internal/observability"
	"github.com/chromectl/chromectl/lib/cdp"
)

// exit codes, stable for scripting
const (
	exitFailure    = 1
	exitRemote     = 2 // the browser or the evaluated script failed
	exitConnection = 3 // the endpoint is unreachable or the connection dropped
	exitStale      = 4 // the target or session is gone
)

func exitCode(err error) int {
	var evalErr *chromectl.EvalError
	var cdpErr *cdp.Error
	var connErr *cdp.ErrConnClosed
	var netErr net.Error

	switch {
	case errors.Is(err, chromectl.ErrTargetNotFound),
		errors.Is(err, chromectl.ErrSessionInactive):
		return exitStale
	case errors.As(err, &connErr),
		errors.As(err, &netErr),
		errors.Is(err, context.DeadlineExceeded):
		return exitConnection
	case errors.As(err, &evalErr), errors.As(err, &cdpErr):
		return exitRemote
	default:
		return exitFailure
	}
}

func newBrowser() *chromectl.Browser {
	return chromectl.New().
		ControlURL(cfg.ControlURL()).
		Logger(observability.FrameLogger())
}

// pickTarget resolves the target to act on: the --target flag, or the
// first page of the browser.
func pickTarget(b *chromectl.Browser) (string, error) {
	if flagTarget != "" {
		return flagTarget, nil
	}

	targets, err := b.Targets()
	if err != nil {
		return "", err
	}
	for _, t := range targets {
		if t.Type == "page" {
			return t.ID, nil
		}
	}
	return "", fmt.Errorf("%w: no page target, open one first", chromectl.ErrTargetNotFound)
}

// withPage connects, attaches to the chosen target, runs fn and tears the
// session down. The connect ctx is the connection's lifetime and must
// outlive fn, so it is the command context, not the --timeout one: a
// console stream longer than the setup timeout must keep its connection.
// The dial is bounded by the websocket handshake timeout, target picking
// and attach by the --timeout flag.
func withPage(ctx context.Context, fn func(context.Context, *chromectl.Page) error) error {
	b := newBrowser()
	if err := b.Connect(ctx); err != nil {
		return err
	}
	defer b.Disconnect()

	setupCtx, cancel := context.WithTimeout(ctx, flagTimeout)
	defer cancel()

	targetID, err := pickTarget(b)
	if err != nil {
		return err
	}

	page, err := b.Attach(setupCtx, targetID)
	if err != nil {
		return err
	}
	defer func() {
		// fn may outlive the setup timeout, the detach gets its own
		dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dcancel()
		_ = page.Detach(dctx)
	}()

	return fn(ctx, page)
}
