// Package activitymap turns sign-in activity into a flat record that can
// be written to an audit log or forwarded to another system.
package activitymap

import (
	"context"
	"strings"
	"time"

	auth "github.com/goliatone/go-signin"
)

const (
	// MetadataKeyProvider stores the sign-in method of the event.
	MetadataKeyProvider = "provider"
	// MetadataKeyReason stores why an attempt was rejected.
	MetadataKeyReason = "reason"
	// MetadataKeyEmail stores the email the attempt was made with.
	MetadataKeyEmail = "email"
)

const (
	defaultChannel    = "auth"
	defaultObjectType = "session"
	defaultActorID    = "anonymous"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel          string
	objectType       string
	actorFallback    string
	objectIDResolver func(auth.ActivityEvent) string
}

// Normalize converts an auth.ActivityEvent into the normalized shape.
// Failed attempts have no user id, the email is used as actor instead.
func Normalize(event auth.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	actorID := firstNonEmpty(
		strings.TrimSpace(event.UserID),
		auth.NormalizeEmail(event.Email),
		options.actorFallback,
	)

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       string(event.EventType),
		ObjectType: options.objectType,
		ObjectID:   resolveObjectID(event, options.objectIDResolver),
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

// WithDefaultChannel sets the channel of normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithDefaultObjectType sets the object type of normalized records.
func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithObjectIDResolver overrides how the object id is read from an event.
func WithObjectIDResolver(resolver func(auth.ActivityEvent) string) Option {
	return func(opts *normalizeOptions) {
		opts.objectIDResolver = resolver
	}
}

// WithActorFallback sets the actor id used when the event has neither a
// user id nor an email.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// Sink writes every event to logger as a normalized audit record.
type Sink struct {
	logger auth.Logger
	opts   []Option
}

var _ auth.ActivitySink = (*Sink)(nil)

// NewSink returns a Sink that logs through logger
func NewSink(logger auth.Logger, opts ...Option) *Sink {
	return &Sink{logger: logger, opts: opts}
}

// Record implements auth.ActivitySink
func (s *Sink) Record(_ context.Context, event auth.ActivityEvent) error {
	if s == nil || s.logger == nil {
		return nil
	}

	record := Normalize(event, s.opts...)
	args := []any{
		"actor_id", record.ActorID,
		"object_type", record.ObjectType,
		"channel", record.Channel,
		"occurred_at", record.OccurredAt.Format(time.RFC3339),
	}
	if record.ObjectID != "" {
		args = append(args, "object_id", record.ObjectID)
	}
	for _, key := range []string{MetadataKeyProvider, MetadataKeyReason} {
		if v, ok := record.Metadata[key]; ok {
			args = append(args, key, v)
		}
	}

	s.logger.Info(record.Verb, args...)
	return nil
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
	}
}

func resolveObjectID(event auth.ActivityEvent, resolver func(auth.ActivityEvent) string) string {
	if resolver != nil {
		return strings.TrimSpace(resolver(event))
	}
	return strings.TrimSpace(event.UserID)
}

func normalizeMetadata(event auth.ActivityEvent) map[string]any {
	metadata := cloneMap(event.Metadata)

	set := func(key, value string) {
		if value == "" {
			return
		}
		if metadata == nil {
			metadata = map[string]any{}
		}
		if _, exists := metadata[key]; !exists {
			metadata[key] = value
		}
	}

	set(MetadataKeyProvider, strings.TrimSpace(event.Provider))
	set(MetadataKeyReason, strings.TrimSpace(event.Reason))
	set(MetadataKeyEmail, auth.NormalizeEmail(event.Email))

	return metadata
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
