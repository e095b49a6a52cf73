package chromectl

import (
	"context"
	"encoding/base64"
	"errors"
	"math"
	"time"

	"github.com/chromectl/chromectl/lib/cdp"
	"github.com/tidwall/gjson"
)

// ViewportState is the device metrics saved before a full page override
// and restored after, scoped to one capture.
type ViewportState struct {
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	DeviceScaleFactor float64 `json:"deviceScaleFactor"`
	Mobile            bool    `json:"mobile"`
}

var restoreTimeout = 15 * time.Second

// Screenshot captures the page as PNG bytes. With fullPage the whole
// scrollable content area is captured: read the layout metrics, save the
// viewport, override it to the content size, capture, restore. The restore
// runs unconditionally once the override happened, a failed capture must
// not leak an overridden viewport. Captures on one session never
// interleave.
func (p *Page) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	p.muScreenshot.Lock()
	defer p.muScreenshot.Unlock()

	if !fullPage {
		data, err := p.capture(ctx)
		if err != nil {
			return nil, &ScreenshotError{Stage: StageCapture, Err: err}
		}
		return data, nil
	}

	// 1. layout metrics
	metrics, err := p.Call(ctx, "Page.getLayoutMetrics", nil)
	if err != nil {
		return nil, &ScreenshotError{Stage: StageLayoutMetrics, Err: err}
	}

	content := metrics.Get("cssContentSize")
	if !content.Exists() {
		content = metrics.Get("contentSize")
	}
	width := int(math.Ceil(content.Get("width").Float()))
	height := int(math.Ceil(content.Get("height").Float()))
	if width <= 0 || height <= 0 {
		return nil, &ScreenshotError{Stage: StageLayoutMetrics, Err: errors.New("empty content size")}
	}

	// 2. save the current viewport
	saved, err := viewportFromMetrics(metrics)
	if err != nil {
		return nil, &ScreenshotError{Stage: StageSaveViewport, Err: err}
	}

	// 3. override to the content size
	_, err = p.Call(ctx, "Emulation.setDeviceMetricsOverride", cdp.Object{
		"width":             width,
		"height":            height,
		"deviceScaleFactor": saved.DeviceScaleFactor,
		"mobile":            saved.Mobile,
	})
	if err != nil {
		return nil, &ScreenshotError{Stage: StageOverrideViewport, Err: err}
	}

	// 4. capture, 5. restore. The restore runs on the browser context so a
	// caller that gave up waiting cannot skip it.
	data, captureErr := p.capture(ctx)
	restoreErr := p.restoreViewport(saved)

	if captureErr != nil {
		return nil, &ScreenshotError{Stage: StageCapture, Err: captureErr}
	}
	if restoreErr != nil {
		return nil, &ScreenshotError{Stage: StageRestoreViewport, Err: restoreErr}
	}
	return data, nil
}

func (p *Page) capture(ctx context.Context) ([]byte, error) {
	_, err := p.Call(ctx, "Page.bringToFront", nil)
	if err != nil {
		return nil, err
	}

	res, err := p.Call(ctx, "Page.captureScreenshot", cdp.Object{
		"format":      "png",
		"fromSurface": true,
	})
	if err != nil {
		return nil, err
	}

	b64 := res.Get("data").String()
	if b64 == "" {
		return nil, errors.New("no screenshot data returned")
	}
	return base64.StdEncoding.DecodeString(b64)
}

func (p *Page) restoreViewport(saved ViewportState) error {
	ctx := p.browser.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, restoreTimeout)
	defer cancel()

	_, err := p.Call(ctx, "Emulation.setDeviceMetricsOverride", cdp.Object{
		"width":             saved.Width,
		"height":            saved.Height,
		"deviceScaleFactor": saved.DeviceScaleFactor,
		"mobile":            saved.Mobile,
	})
	return err
}

// viewportFromMetrics reads the pre-override viewport out of the layout
// metrics. The protocol has no query for the current emulation state, the
// observed css layout viewport is what we can put back.
func viewportFromMetrics(metrics gjson.Result) (ViewportState, error) {
	viewport := metrics.Get("cssLayoutViewport")
	if !viewport.Exists() {
		viewport = metrics.Get("layoutViewport")
	}

	state := ViewportState{
		Width:             int(viewport.Get("clientWidth").Int()),
		Height:            int(viewport.Get("clientHeight").Int()),
		DeviceScaleFactor: metrics.Get("visualViewport.scale").Float(),
		Mobile:            false,
	}
	if state.DeviceScaleFactor == 0 {
		state.DeviceScaleFactor = 1
	}
	if state.Width <= 0 || state.Height <= 0 {
		return state, errors.New("no layout viewport in metrics")
	}
	return state, nil
}
