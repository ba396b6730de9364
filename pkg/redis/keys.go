package redis

import "strings"

const keyspace = "thriftlane"

const (
	kindIdempotency = "idem"
	kindRateLimit   = "rl"
	kindWebhook     = "webhook"
)

// IdempotencyKey names the stored response for one client-supplied key.
func (c *Client) IdempotencyKey(scope, id string) string {
	return buildKey(kindIdempotency, scope, id)
}

// RateLimitKey names an attempt counter, e.g. RateLimitKey("login", "ip", "1.2.3.4").
func (c *Client) RateLimitKey(parts ...string) string {
	return buildKey(append([]string{kindRateLimit}, parts...)...)
}

// WebhookDeliveryKey names the marker for one processed gateway event.
func (c *Client) WebhookDeliveryKey(provider, deliveryID string) string {
	return buildKey(kindWebhook, provider, deliveryID)
}

func buildKey(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyspace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
