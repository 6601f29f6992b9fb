package sink

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"logrelay/src/internal/config"
	"logrelay/src/internal/core"
	"logrelay/src/internal/format"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// webhookRecorder is a fake Discord-compatible endpoint. It records
// every request body and answers 204 unless told to fail.
type webhookRecorder struct {
	mu     sync.Mutex
	bodies []string
	fail   bool

	server *httptest.Server
}

func newWebhookRecorder() *webhookRecorder {
	r := &webhookRecorder{}
	r.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)

		r.mu.Lock()
		defer r.mu.Unlock()
		r.bodies = append(r.bodies, string(body))
		if r.fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	return r
}

func (r *webhookRecorder) setFail(fail bool) {
	r.mu.Lock()
	r.fail = fail
	r.mu.Unlock()
}

// requestCount excludes the construction probe.
func (r *webhookRecorder) requestCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.bodies) == 0 {
		return 0
	}
	return len(r.bodies) - 1
}

func (r *webhookRecorder) lastBody() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.bodies) == 0 {
		return ""
	}
	return r.bodies[len(r.bodies)-1]
}

func discordOptions(url string) *config.DiscordSinkOptions {
	return &config.DiscordSinkOptions{
		URL:           url,
		Capacity:      5,
		FlushInterval: 3600, // effectively disabled for tests
		ThrottleLimit: 3600,
		FlushOnClose:  false,
		// Keep the outbound guard out of the way
		SendsPerMinute: 60000,
	}
}

func newTestDiscordSink(t *testing.T, opts *config.DiscordSinkOptions) *DiscordSink {
	t.Helper()
	formatter, err := format.NewRawFormatter(log.NewLogger())
	require.NoError(t, err)
	d, err := NewDiscordSink(opts, log.NewLogger(), formatter)
	require.NoError(t, err)
	return d
}

func infoEntry(msg string) core.LogEntry {
	return core.LogEntry{Time: time.Now(), Source: "test", Level: core.LevelInfo, Message: msg}
}

func TestNewDiscordSink(t *testing.T) {
	t.Run("ProbeSuccess", func(t *testing.T) {
		rec := newWebhookRecorder()
		defer rec.server.Close()

		d := newTestDiscordSink(t, discordOptions(rec.server.URL))
		assert.NotNil(t, d)

		// Exactly the probe request was made
		rec.mu.Lock()
		defer rec.mu.Unlock()
		require.Len(t, rec.bodies, 1)
		assert.Contains(t, rec.bodies[0], "Initializing webhook connection")
	})

	t.Run("ProbeRejected", func(t *testing.T) {
		rec := newWebhookRecorder()
		defer rec.server.Close()
		rec.setFail(true)

		formatter, err := format.NewRawFormatter(log.NewLogger())
		require.NoError(t, err)
		d, err := NewDiscordSink(discordOptions(rec.server.URL), log.NewLogger(), formatter)
		assert.Error(t, err)
		assert.Nil(t, d)
		assert.Contains(t, err.Error(), "probe failed")
	})

	t.Run("ProbeUnreachable", func(t *testing.T) {
		formatter, err := format.NewRawFormatter(log.NewLogger())
		require.NoError(t, err)
		opts := discordOptions("http://127.0.0.1:1/webhook")
		opts.Timeout = 1
		d, err := NewDiscordSink(opts, log.NewLogger(), formatter)
		assert.Error(t, err)
		assert.Nil(t, d)
	})

	t.Run("NilOptions", func(t *testing.T) {
		formatter, err := format.NewRawFormatter(log.NewLogger())
		require.NoError(t, err)
		_, err = NewDiscordSink(nil, log.NewLogger(), formatter)
		assert.Error(t, err)
	})
}

func TestDiscordSinkCapacityTrigger(t *testing.T) {
	rec := newWebhookRecorder()
	defer rec.server.Close()

	d := newTestDiscordSink(t, discordOptions(rec.server.URL))
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	// Four entries: under capacity, inside the throttle window
	for i := 0; i < 4; i++ {
		d.Emit(infoEntry("pending message"))
	}
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, rec.requestCount(), "no send before the buffer reaches capacity")

	// The fifth reaches capacity and forces exactly one send
	d.Emit(infoEntry("final message"))

	assert.Eventually(t, func() bool {
		return rec.requestCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	var payload struct {
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal([]byte(rec.lastBody()), &payload))
	assert.Equal(t, 4, strings.Count(payload.Content, "pending message"))
	assert.Contains(t, payload.Content, "final message")

	d.mu.Lock()
	assert.Empty(t, d.buffer, "buffer cleared after confirmed send")
	d.mu.Unlock()
}

func TestDiscordSinkUrgentTrigger(t *testing.T) {
	rec := newWebhookRecorder()
	defer rec.server.Close()

	d := newTestDiscordSink(t, discordOptions(rec.server.URL))
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	entry := infoEntry("something is on fire")
	entry.Urgent = true
	d.Emit(entry)

	assert.Eventually(t, func() bool {
		return rec.requestCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, rec.lastBody(), "something is on fire")
}

func TestDiscordSinkUrgentLevels(t *testing.T) {
	rec := newWebhookRecorder()
	defer rec.server.Close()

	opts := discordOptions(rec.server.URL)
	opts.UrgentLevels = []string{"error"}
	d := newTestDiscordSink(t, opts)
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	entry := core.LogEntry{Time: time.Now(), Source: "test", Level: "ERROR", Message: "disk failure"}
	d.Emit(entry)

	assert.Eventually(t, func() bool {
		return rec.requestCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, rec.lastBody(), "disk failure")
}

func TestDiscordSinkFlushDirect(t *testing.T) {
	rec := newWebhookRecorder()
	defer rec.server.Close()

	d := newTestDiscordSink(t, discordOptions(rec.server.URL))

	t.Run("EmptyBufferIsNoop", func(t *testing.T) {
		require.NoError(t, d.flush())
		assert.Equal(t, 0, rec.requestCount())
	})

	t.Run("FailureRetainsBuffer", func(t *testing.T) {
		d.buffer = append(d.buffer, infoEntry("first"), infoEntry("second"))

		rec.setFail(true)
		err := d.flush()
		require.Error(t, err)

		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)

		// Buffer untouched, in order, ready for the next attempt
		require.Len(t, d.buffer, 2)
		assert.Equal(t, "first", d.buffer[0].Message)
		assert.Equal(t, "second", d.buffer[1].Message)
	})

	t.Run("RetrySucceedsAndClears", func(t *testing.T) {
		rec.setFail(false)
		before := d.lastSent

		require.NoError(t, d.flush())
		assert.Empty(t, d.buffer)
		assert.True(t, d.lastSent.After(before), "throttle timestamp advances only on success")
		assert.Contains(t, rec.lastBody(), "first")
		assert.Contains(t, rec.lastBody(), "second")
	})
}

func TestDiscordSinkThrottleElapsedTrigger(t *testing.T) {
	rec := newWebhookRecorder()
	defer rec.server.Close()

	opts := discordOptions(rec.server.URL)
	opts.ThrottleLimit = 0.5
	d := newTestDiscordSink(t, opts)
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	// Inside the window since the probe nothing goes out
	d.Emit(infoEntry("too soon"))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, rec.requestCount(), "no send while the throttle window is open")

	// Once the window has elapsed, a single non-urgent entry well
	// under capacity is enough to flush everything buffered so far
	time.Sleep(600 * time.Millisecond)
	d.Emit(infoEntry("after the window"))

	assert.Eventually(t, func() bool {
		return rec.requestCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, rec.lastBody(), "too soon")
	assert.Contains(t, rec.lastBody(), "after the window")
}

func TestDiscordSinkPeriodicFlushSurvivesFailure(t *testing.T) {
	rec := newWebhookRecorder()
	defer rec.server.Close()

	opts := discordOptions(rec.server.URL)
	opts.FlushInterval = 0.1
	d := newTestDiscordSink(t, opts)

	// Endpoint goes down after the probe
	rec.setFail(true)
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	d.Emit(infoEntry("survives the bad tick"))

	// Ticks keep firing into the failing endpoint
	assert.Eventually(t, func() bool {
		return rec.requestCount() >= 2
	}, 2*time.Second, 10*time.Millisecond, "ticker keeps flushing after a failure")
	d.mu.Lock()
	assert.Len(t, d.buffer, 1, "failed ticks keep the buffer intact")
	d.mu.Unlock()

	rec.setFail(false)
	assert.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return len(d.buffer) == 0
	}, 2*time.Second, 10*time.Millisecond, "next tick delivers once the endpoint recovers")
	assert.Contains(t, rec.lastBody(), "survives the bad tick")
}

func TestDiscordSinkStopIsSafe(t *testing.T) {
	t.Run("DoubleStop", func(t *testing.T) {
		rec := newWebhookRecorder()
		defer rec.server.Close()

		d := newTestDiscordSink(t, discordOptions(rec.server.URL))
		require.NoError(t, d.Start(context.Background()))
		d.Stop()
		assert.NotPanics(t, func() { d.Stop() })
	})

	t.Run("StopBeforeStart", func(t *testing.T) {
		rec := newWebhookRecorder()
		defer rec.server.Close()

		opts := discordOptions(rec.server.URL)
		opts.FlushOnClose = true
		d := newTestDiscordSink(t, opts)

		done := make(chan struct{})
		go func() {
			d.Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Stop before Start must not block")
		}
	})
}

func TestDiscordSinkFlushOnClose(t *testing.T) {
	rec := newWebhookRecorder()
	defer rec.server.Close()

	opts := discordOptions(rec.server.URL)
	opts.FlushOnClose = true
	d := newTestDiscordSink(t, opts)
	require.NoError(t, d.Start(context.Background()))

	d.Emit(infoEntry("leftover message"))
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 0, rec.requestCount())

	d.Stop()

	assert.Equal(t, 1, rec.requestCount())
	assert.Contains(t, rec.lastBody(), "leftover message")
}

func TestDiscordSinkEmbedPayload(t *testing.T) {
	rec := newWebhookRecorder()
	defer rec.server.Close()

	embedFormatter, err := format.NewEmbedFormatter(nil, log.NewLogger())
	require.NoError(t, err)

	d, err := NewDiscordSink(discordOptions(rec.server.URL), log.NewLogger(), embedFormatter)
	require.NoError(t, err)

	d.buffer = append(d.buffer,
		core.LogEntry{Time: time.Now(), Source: "api", Level: "ERROR", Message: "boom"})
	require.NoError(t, d.flush())

	var payload struct {
		Content string       `json:"content"`
		Embeds  []core.Embed `json:"embeds"`
	}
	require.NoError(t, json.Unmarshal([]byte(rec.lastBody()), &payload))
	assert.Empty(t, payload.Content)
	require.Len(t, payload.Embeds, 1)
	assert.Contains(t, payload.Embeds[0].Description, "boom")
	assert.NotZero(t, payload.Embeds[0].Color)
}
