package formsync

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-formsync/pkg/analytics"
	"github.com/goliatone/go-formsync/pkg/api"
	"github.com/goliatone/go-formsync/pkg/draft"
	"github.com/goliatone/go-formsync/pkg/editor"
	"github.com/goliatone/go-formsync/pkg/model"
	"github.com/goliatone/go-formsync/pkg/respond"
	"github.com/goliatone/go-formsync/pkg/stream"
	"github.com/goliatone/go-formsync/pkg/validation"
)

// RedisKeyPrefix namespaces the Redis stream carrying a form's analytics
// deltas.
const RedisKeyPrefix = "formsync:analytics:"

// FeedConfig selects how the analytics feed is reached.
type FeedConfig struct {
	// Transport is one of stream.TransportSSE, TransportWebSocket or
	// TransportRedis. Empty means SSE.
	Transport string
	// Redis is required for the Redis transport.
	Redis redis.UniversalClient
	// HTTPClient is used by the SSE transport when set.
	HTTPClient *http.Client
}

// NewClient exposes the API client constructor from the top-level module.
func NewClient(base string, options ...api.Option) (*api.Client, error) {
	return api.New(base, options...)
}

// NewEditor starts an editing session persisting through client.
func NewEditor(client *api.Client, options ...editor.Option) *editor.Session {
	return editor.NewSession(client, options...)
}

// NewResponder starts a public form session backed by client.
func NewResponder(client *api.Client, options ...respond.Option) *respond.Session {
	return respond.NewSession(client, options...)
}

// NewSynchronizer wires an analytics synchronizer that bootstraps through
// client and follows the feed over the configured transport.
func NewSynchronizer(client *api.Client, feed FeedConfig, options ...analytics.Option) (*analytics.Synchronizer, error) {
	dialer, target, err := NewFeed(client, feed)
	if err != nil {
		return nil, err
	}
	return analytics.NewSynchronizer(client, dialer, target, options...), nil
}

// NewFeed returns the dialer and the form id to target mapping for the
// configured transport.
func NewFeed(client *api.Client, feed FeedConfig) (stream.Dialer, analytics.TargetFunc, error) {
	if client == nil {
		return nil, nil, fmt.Errorf("formsync: api client is required")
	}
	switch strings.ToLower(feed.Transport) {
	case "", stream.TransportSSE:
		return stream.NewSSEDialer(feed.HTTPClient, client.StreamHeader()), client.StreamURL, nil
	case stream.TransportWebSocket:
		target := func(formID string) string {
			return WebSocketURL(client.StreamURL(formID))
		}
		return stream.NewWebSocketDialer(client.StreamHeader()), target, nil
	case stream.TransportRedis:
		if feed.Redis == nil {
			return nil, nil, fmt.Errorf("formsync: redis transport requires a redis client")
		}
		return stream.NewRedisDialer(feed.Redis), RedisKey, nil
	default:
		return nil, nil, fmt.Errorf("formsync: unknown transport %q", feed.Transport)
	}
}

// RedisKey returns the Redis stream key of formID's feed.
func RedisKey(formID string) string {
	if formID == "" {
		return ""
	}
	return RedisKeyPrefix + formID
}

// WebSocketURL rewrites an http(s) feed URL to its ws(s) equivalent.
func WebSocketURL(raw string) string {
	switch {
	case strings.HasPrefix(raw, "https://"):
		return "wss://" + strings.TrimPrefix(raw, "https://")
	case strings.HasPrefix(raw, "http://"):
		return "ws://" + strings.TrimPrefix(raw, "http://")
	default:
		return raw
	}
}

// DecodeSchema parses a JSON or YAML form document.
func DecodeSchema(data []byte) (model.FormSchema, error) {
	return draft.Decode(data)
}

// ValidateSchema reports structural problems that block saving or
// publishing schema.
func ValidateSchema(schema model.FormSchema) validation.Violations {
	return validation.ValidateSchema(schema.Fields)
}

// ValidateAnswers maps field ids to the message of each failing answer.
func ValidateAnswers(schema model.FormSchema, answers []model.Answer) map[string]string {
	return validation.ValidateAnswers(schema.Fields, answers)
}
