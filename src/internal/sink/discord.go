package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"logrelay/src/internal/config"
	"logrelay/src/internal/core"
	"logrelay/src/internal/format"
	"logrelay/src/internal/version"

	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpproxy"
	"golang.org/x/time/rate"
)

const (
	// Discord returns 204 on successful webhook execution
	webhookSuccessStatus = 204

	defaultWebhookTimeout = 60 * time.Second
	defaultSendsPerMinute = 30

	probeMessage = "Initializing webhook connection..."
)

// webhookPayload is the outbound request body. At least one of the two
// fields is present on every send.
type webhookPayload struct {
	Content string       `json:"content,omitempty"`
	Embeds  []core.Embed `json:"embeds,omitempty"`
}

// DiscordSink buffers log entries and delivers them to a Discord
// webhook in batches. Emit never blocks on the network: it appends
// under a mutex and at most signals the background goroutine, which
// owns every outbound request.
type DiscordSink struct {
	config   *config.DiscordSinkOptions
	endpoint string
	timeout  time.Duration

	client      *fasthttp.Client
	sendLimiter *rate.Limiter

	input          chan core.LogEntry
	formatter      format.Formatter
	embedFormatter format.EmbedBatchFormatter // nil when formatter has no embed path
	urgentLevels   map[string]struct{}
	logger         *log.Logger

	// buffer is cleared only after a confirmed send; lastSent moves
	// only on success, so failed deliveries never consume the throttle
	mu       sync.Mutex
	buffer   []core.LogEntry
	lastSent time.Time

	flushCh  chan struct{}   // collapsed async flush triggers
	syncCh   chan chan error // blocking flush requests
	done     chan struct{}
	wg       sync.WaitGroup
	started  atomic.Bool
	stopOnce sync.Once

	startTime time.Time

	// Statistics
	totalProcessed atomic.Uint64
	totalSends     atomic.Uint64
	failedSends    atomic.Uint64
	lastProcessed  atomic.Value // time.Time
}

// NewDiscordSink creates a webhook sink and probes the endpoint. A
// probe response other than 204 fails construction: a sink that cannot
// reach its webhook is useless and should not start.
func NewDiscordSink(opts *config.DiscordSinkOptions, logger *log.Logger, formatter format.Formatter) (*DiscordSink, error) {
	if opts == nil {
		return nil, fmt.Errorf("discord sink requires options")
	}

	timeout := defaultWebhookTimeout
	if opts.Timeout > 0 {
		timeout = time.Duration(opts.Timeout) * time.Second
	}

	sendsPerMinute := opts.SendsPerMinute
	if sendsPerMinute <= 0 {
		sendsPerMinute = defaultSendsPerMinute
	}

	d := &DiscordSink{
		config:      opts,
		endpoint:    opts.Endpoint(),
		timeout:     timeout,
		sendLimiter: rate.NewLimiter(rate.Limit(float64(sendsPerMinute)/60.0), 1),
		input:       make(chan core.LogEntry, opts.Capacity*2),
		formatter:   formatter,
		logger:      logger,
		buffer:      make([]core.LogEntry, 0, opts.Capacity),
		flushCh:     make(chan struct{}, 1),
		syncCh:      make(chan chan error),
		done:        make(chan struct{}),
		startTime:   time.Now(),
	}
	d.lastProcessed.Store(time.Time{})

	if ef, ok := formatter.(format.EmbedBatchFormatter); ok {
		d.embedFormatter = ef
	}

	d.urgentLevels = make(map[string]struct{}, len(opts.UrgentLevels))
	for _, level := range opts.UrgentLevels {
		d.urgentLevels[core.NormalizeLevel(level)] = struct{}{}
	}

	d.client = &fasthttp.Client{
		MaxConnsPerHost:     10,
		MaxIdleConnDuration: 10 * time.Second,
		ReadTimeout:         timeout,
		WriteTimeout:        timeout,
	}

	if opts.Proxy != "" {
		if strings.HasPrefix(opts.Proxy, "socks5://") {
			d.client.Dial = fasthttpproxy.FasthttpSocksDialer(opts.Proxy)
		} else {
			addr := strings.TrimPrefix(strings.TrimPrefix(opts.Proxy, "https://"), "http://")
			d.client.Dial = fasthttpproxy.FasthttpHTTPDialerTimeout(addr, timeout)
		}
		logger.Info("msg", "Webhook proxy configured",
			"component", "discord_sink",
			"proxy", opts.Proxy)
	}

	if err := d.probe(); err != nil {
		return nil, fmt.Errorf("webhook connectivity probe failed: %w", err)
	}

	// The probe counts as the first successful send
	d.lastSent = time.Now()

	return d, nil
}

// Input returns the channel for sending log entries.
func (d *DiscordSink) Input() chan<- core.LogEntry {
	return d.input
}

// Start launches the intake and flush loops.
func (d *DiscordSink) Start(ctx context.Context) error {
	d.started.Store(true)
	d.wg.Add(2)
	go d.processLoop(ctx)
	go d.flushLoop()

	d.logger.Info("msg", "Discord sink started",
		"component", "discord_sink",
		"capacity", d.config.Capacity,
		"flush_interval", d.config.FlushInterval,
		"throttle_limit", d.config.ThrottleLimit)
	return nil
}

// Stop shuts the sink down, optionally flushing the remaining buffer.
// Safe to call more than once, and before Start.
func (d *DiscordSink) Stop() {
	d.stopOnce.Do(func() {
		d.logger.Info("msg", "Stopping Discord sink")

		// The handshake needs a running flush loop on the other end
		if d.config.FlushOnClose && d.started.Load() {
			reply := make(chan error, 1)
			select {
			case d.syncCh <- reply:
				if err := <-reply; err != nil {
					d.logger.Error("msg", "Final flush failed",
						"component", "discord_sink",
						"error", err)
				}
			case <-d.done:
			}
		}

		close(d.done)
		d.wg.Wait()

		d.logger.Info("msg", "Discord sink stopped",
			"total_processed", d.totalProcessed.Load(),
			"total_sends", d.totalSends.Load(),
			"failed_sends", d.failedSends.Load())
	})
}

// GetStats returns the sink's statistics.
func (d *DiscordSink) GetStats() SinkStats {
	lastProc, _ := d.lastProcessed.Load().(time.Time)

	d.mu.Lock()
	pending := len(d.buffer)
	lastSent := d.lastSent
	d.mu.Unlock()

	return SinkStats{
		Type:           "discord",
		TotalProcessed: d.totalProcessed.Load(),
		StartTime:      d.startTime,
		LastProcessed:  lastProc,
		Details: map[string]any{
			"pending_entries": pending,
			"total_sends":     d.totalSends.Load(),
			"failed_sends":    d.failedSends.Load(),
			"last_sent":       lastSent,
		},
	}
}

// Emit appends one entry to the buffer and schedules a flush when a
// trigger condition holds. The append itself always succeeds.
func (d *DiscordSink) Emit(entry core.LogEntry) {
	d.totalProcessed.Add(1)
	d.lastProcessed.Store(time.Now())

	d.mu.Lock()
	d.buffer = append(d.buffer, entry)
	trigger := d.shouldFlushLocked(entry)
	if !trigger {
		// Throttle window expiry is an independent trigger
		trigger = time.Since(d.lastSent).Seconds() >= d.config.ThrottleLimit
	}
	d.mu.Unlock()

	if trigger {
		d.scheduleFlush()
	}
}

// shouldFlushLocked reports whether the entry forces an immediate
// flush. Caller MUST hold d.mu.
func (d *DiscordSink) shouldFlushLocked(entry core.LogEntry) bool {
	if entry.Urgent {
		return true
	}
	if _, urgent := d.urgentLevels[core.NormalizeLevel(entry.Level)]; urgent {
		return true
	}
	return int64(len(d.buffer)) >= d.config.Capacity
}

// scheduleFlush signals the flush loop without blocking. A pending
// signal subsumes any further ones.
func (d *DiscordSink) scheduleFlush() {
	select {
	case d.flushCh <- struct{}{}:
	default:
	}
}

// processLoop drains the input channel into the buffer.
func (d *DiscordSink) processLoop(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case entry, ok := <-d.input:
			if !ok {
				return
			}
			d.Emit(entry)

		case <-ctx.Done():
			return
		case <-d.done:
			return
		}
	}
}

// flushLoop owns every outbound request. It reacts to scheduled
// triggers, fires unconditionally every flush_interval, and serves
// blocking flush requests during shutdown. A failed flush only logs;
// the buffer stays intact and the next trigger retries it.
func (d *DiscordSink) flushLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(time.Duration(d.config.FlushInterval * float64(time.Second)))
	defer ticker.Stop()

	for {
		select {
		case <-d.flushCh:
			if err := d.flush(); err != nil {
				d.logger.Warn("msg", "Webhook flush failed",
					"component", "discord_sink",
					"error", err)
			}

		case <-ticker.C:
			if err := d.flush(); err != nil {
				d.logger.Warn("msg", "Periodic webhook flush failed",
					"component", "discord_sink",
					"error", err)
			}

		case reply := <-d.syncCh:
			reply <- d.flush()

		case <-d.done:
			return
		}
	}
}

// flush sends the buffered entries as one webhook request. The buffer
// is snapshotted under the lock and the request runs outside it, so
// Emit never waits on the network. Only a confirmed send drops the
// snapshot from the buffer and advances the throttle timestamp;
// entries appended during the request are retained for the next flush.
func (d *DiscordSink) flush() error {
	d.mu.Lock()
	n := len(d.buffer)
	if n == 0 {
		d.mu.Unlock()
		return nil
	}
	batch := make([]core.LogEntry, n)
	copy(batch, d.buffer)
	d.mu.Unlock()

	payload, err := d.buildPayload(batch)
	if err != nil {
		return fmt.Errorf("building webhook payload: %w", err)
	}
	if payload == nil {
		// Nothing renderable; keep the buffer for the next attempt
		return nil
	}

	d.sendLimiter.Wait(context.Background())

	if err := d.post(payload); err != nil {
		d.failedSends.Add(1)
		return err
	}

	d.mu.Lock()
	d.buffer = d.buffer[n:]
	d.lastSent = time.Now()
	d.mu.Unlock()

	d.totalSends.Add(1)
	d.logger.Debug("msg", "Webhook batch sent",
		"component", "discord_sink",
		"batch_size", n)
	return nil
}

// buildPayload partitions the batch into embeds and plain text lines.
// Returns nil when nothing in the batch produced output.
func (d *DiscordSink) buildPayload(batch []core.LogEntry) ([]byte, error) {
	payload := webhookPayload{}

	if d.embedFormatter != nil {
		embeds, err := d.embedFormatter.FormatEmbedBatch(batch)
		if err != nil {
			return nil, err
		}
		for _, embed := range embeds {
			if embed.Valid() {
				payload.Embeds = append(payload.Embeds, embed)
			}
		}
	} else {
		var lines []string
		for _, entry := range batch {
			formatted, err := d.formatter.Format(entry)
			if err != nil {
				d.logger.Warn("msg", "Failed to format entry for webhook",
					"component", "discord_sink",
					"error", err)
				continue
			}
			lines = append(lines, strings.TrimRight(string(formatted), "\n"))
		}
		payload.Content = strings.Join(lines, "\n")
	}

	if payload.Content == "" && len(payload.Embeds) == 0 {
		return nil, nil
	}
	return json.Marshal(payload)
}

// probe posts a short message to verify the webhook is reachable and
// the credentials are accepted.
func (d *DiscordSink) probe() error {
	body, err := json.Marshal(webhookPayload{Content: probeMessage})
	if err != nil {
		return err
	}
	return d.post(body)
}

// post performs one webhook request. Transport failures and non-204
// statuses surface as distinct error kinds.
func (d *DiscordSink) post(body []byte) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()

	req.SetRequestURI(d.endpoint)
	req.Header.SetMethod("POST")
	req.Header.SetContentType("application/json")
	req.Header.Set("User-Agent", fmt.Sprintf("logrelay/%s", version.Short()))
	req.SetBody(body)

	err := d.client.DoTimeout(req, resp, d.timeout)

	statusCode := resp.StatusCode()
	var respBody string
	if err == nil && statusCode != webhookSuccessStatus && len(resp.Body()) > 0 {
		respBody = string(resp.Body())
	}

	fasthttp.ReleaseRequest(req)
	fasthttp.ReleaseResponse(resp)

	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	if statusCode != webhookSuccessStatus {
		return &StatusError{StatusCode: statusCode, Body: respBody}
	}
	return nil
}
