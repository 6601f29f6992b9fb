package config

import (
	"fmt"
	"strings"
)

// DiscordSinkOptions configures the buffered webhook sink.
type DiscordSinkOptions struct {
	// Webhook credential pair, combined into the endpoint URL
	WebhookID    string `toml:"webhook_id"`
	WebhookToken string `toml:"webhook_token"`

	// Full endpoint override for Discord-compatible endpoints; when
	// set, the credential pair is ignored
	URL string `toml:"url"`

	// Buffered records before a forced flush
	Capacity int64 `toml:"capacity"`

	// Seconds between periodic background flushes
	FlushInterval float64 `toml:"flush_interval"`

	// Minimum seconds between two non-forced sends
	ThrottleLimit float64 `toml:"throttle_limit"`

	// Attempt one last blocking flush on shutdown
	FlushOnClose bool `toml:"flush_on_close"`

	// Optional http://, https:// or socks5:// proxy
	Proxy string `toml:"proxy"`

	// Total request timeout in seconds
	Timeout int64 `toml:"timeout"`

	// Outbound guard against the Discord webhook rate limit
	// (0 = library default of 30)
	SendsPerMinute int64 `toml:"sends_per_minute"`

	// Severity levels delivered as urgent regardless of the entry flag
	UrgentLevels []string `toml:"urgent_levels"`
}

func (o *DiscordSinkOptions) validate() error {
	if o.URL == "" && (o.WebhookID == "" || o.WebhookToken == "") {
		return fmt.Errorf("discord sink requires 'webhook_id' and 'webhook_token' (or a full 'url')")
	}
	if o.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive: %d", o.Capacity)
	}
	if o.FlushInterval <= 0 {
		return fmt.Errorf("flush_interval must be positive: %f", o.FlushInterval)
	}
	if o.ThrottleLimit <= 0 {
		return fmt.Errorf("throttle_limit must be positive: %f", o.ThrottleLimit)
	}
	if o.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative: %d", o.Timeout)
	}
	if o.SendsPerMinute < 0 {
		return fmt.Errorf("sends_per_minute must not be negative: %d", o.SendsPerMinute)
	}
	if o.Proxy != "" {
		valid := false
		for _, scheme := range []string{"http://", "https://", "socks5://"} {
			if strings.HasPrefix(o.Proxy, scheme) {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("proxy URL must start with http://, https:// or socks5://: %s", o.Proxy)
		}
	}
	return nil
}

// Endpoint returns the webhook URL the sink posts to.
func (o *DiscordSinkOptions) Endpoint() string {
	if o.URL != "" {
		return o.URL
	}
	return fmt.Sprintf("https://discord.com/api/webhooks/%s/%s", o.WebhookID, o.WebhookToken)
}
