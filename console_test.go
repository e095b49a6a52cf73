package chromectl_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chromectl/chromectl"
)

func nowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}

func collect(t *testing.T, ch <-chan chromectl.ConsoleRecord) []chromectl.ConsoleRecord {
	t.Helper()

	records := []chromectl.ConsoleRecord{}
	deadline := time.After(5 * time.Second)
	for {
		select {
		case rec, ok := <-ch:
			if !ok {
				return records
			}
			records = append(records, rec)
		case <-deadline:
			t.Fatal("stream did not close in time")
		}
	}
}

func TestConsoleTail(t *testing.T) {
	mock := newMockBrowser(t)
	page := openPage(t, mock)

	ch, err := page.ConsoleTail(context.Background(), 400*time.Millisecond)
	require.NoError(t, err)

	mock.emit("Runtime.consoleAPICalled", page.SessionID, fmt.Sprintf(
		`{"type":"log","args":[{"type":"string","value":"hello"},{"type":"number","value":7}],"timestamp":%f}`,
		nowMillis()))
	mock.emit("Log.entryAdded", page.SessionID, fmt.Sprintf(
		`{"entry":{"source":"network","level":"warning","text":"404 not found","timestamp":%f}}`,
		nowMillis()))

	records := collect(t, ch)
	require.Len(t, records, 2)

	assert.Equal(t, "log", records[0].Kind)
	assert.Equal(t, []interface{}{"hello", float64(7)}, records[0].Args)
	assert.Regexp(t, `^\+\d+\.\d{3}s$`, records[0].T)

	assert.Equal(t, "warning", records[1].Kind)
	assert.Equal(t, "network", records[1].Source)
	assert.Equal(t, "404 not found", records[1].Text)
}

func TestConsoleTailFiltersSessions(t *testing.T) {
	mock := newMockBrowser(t)
	page := openPage(t, mock)

	ch, err := page.ConsoleTail(context.Background(), 300*time.Millisecond)
	require.NoError(t, err)

	mock.emit("Runtime.consoleAPICalled", "sess-other-tab", fmt.Sprintf(
		`{"type":"log","args":[{"type":"string","value":"not yours"}],"timestamp":%f}`,
		nowMillis()))
	mock.emit("Runtime.consoleAPICalled", page.SessionID, fmt.Sprintf(
		`{"type":"log","args":[{"type":"string","value":"yours"}],"timestamp":%f}`,
		nowMillis()))

	records := collect(t, ch)
	require.Len(t, records, 1)
	assert.Equal(t, []interface{}{"yours"}, records[0].Args)
}

func TestConsoleTailDropsReplayed(t *testing.T) {
	mock := newMockBrowser(t)
	page := openPage(t, mock)

	ch, err := page.ConsoleTail(context.Background(), 300*time.Millisecond)
	require.NoError(t, err)

	// enabling the runtime domain replays buffered messages with their
	// original timestamps, those predate the subscription
	mock.emit("Runtime.consoleAPICalled", page.SessionID, fmt.Sprintf(
		`{"type":"log","args":[{"type":"string","value":"old"}],"timestamp":%f}`,
		nowMillis()-3600_000))
	mock.emit("Runtime.consoleAPICalled", page.SessionID, fmt.Sprintf(
		`{"type":"log","args":[{"type":"string","value":"fresh"}],"timestamp":%f}`,
		nowMillis()))

	records := collect(t, ch)
	require.Len(t, records, 1)
	assert.Equal(t, []interface{}{"fresh"}, records[0].Args)
}

func TestConsoleTailEndsOnDuration(t *testing.T) {
	mock := newMockBrowser(t)
	page := openPage(t, mock)

	start := time.Now()
	ch, err := page.ConsoleTail(context.Background(), 100*time.Millisecond)
	require.NoError(t, err)

	records := collect(t, ch)
	assert.Empty(t, records)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestConsoleTailEndsOnCancel(t *testing.T) {
	mock := newMockBrowser(t)
	page := openPage(t, mock)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := page.ConsoleTail(ctx, time.Minute)
	require.NoError(t, err)

	cancel()
	collect(t, ch)
}

func TestConsoleTailInactiveSession(t *testing.T) {
	mock := newMockBrowser(t)
	page := openPage(t, mock)

	require.NoError(t, page.Detach(context.Background()))

	_, err := page.ConsoleTail(context.Background(), time.Second)
	assert.ErrorIs(t, err, chromectl.ErrSessionInactive)
}
