package prefs

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aelexs/fuzzyclock/internal/domain"
	"github.com/aelexs/fuzzyclock/internal/fuzzy"
	redisclient "github.com/aelexs/fuzzyclock/internal/redis"
	"github.com/aelexs/fuzzyclock/internal/scheduler"
)

const (
	// widgetKeyPrefix namespaces widget instances. Key pattern: widget:{id}.
	widgetKeyPrefix = "widget:"
	// screensaverKey holds the screensaver's preferences.
	screensaverKey = "dream"

	fieldPortrait   = "logic_port"
	fieldLandscape  = "logic_land"
	fieldHourFormat = "hour_format"
)

// Compile-time check: RedisStore satisfies scheduler.PreferenceStore.
var _ scheduler.PreferenceStore = (*RedisStore)(nil)

// RedisStore keeps each instance's preferences in one hash. Unknown or
// unparseable field values read back as the defaults.
type RedisStore struct {
	cmd redisclient.Cmdable
}

// NewRedisStore creates a RedisStore that uses cmd for Redis operations.
func NewRedisStore(cmd redisclient.Cmdable) *RedisStore {
	return &RedisStore{cmd: cmd}
}

// Key returns the hash key holding id's preferences.
func Key(id domain.InstanceID) string {
	if id == ScreensaverID {
		return screensaverKey
	}
	return widgetKeyPrefix + id.String()
}

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, name)
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", op),
	)
	return ctx, span
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (s *RedisStore) Get(ctx context.Context, id domain.InstanceID) (scheduler.Preferences, error) {
	ctx, span := startSpan(ctx, "redis.prefs.get", "HGETALL")
	defer span.End()

	fields, err := s.cmd.HGetAll(ctx, Key(id)).Result()
	if err != nil {
		fail(span, err)
		return scheduler.Preferences{}, fmt.Errorf("get preferences %s: %w", id, err)
	}

	var p scheduler.Preferences
	if k, err := fuzzy.ParseKind(fields[fieldPortrait]); err == nil {
		p.Portrait = k
	}
	if k, err := fuzzy.ParseKind(fields[fieldLandscape]); err == nil {
		p.Landscape = k
	}
	if f, err := scheduler.ParseFormatPreference(fields[fieldHourFormat]); err == nil {
		p.HourFormat = f
	}
	return p, nil
}

func (s *RedisStore) Put(ctx context.Context, id domain.InstanceID, p scheduler.Preferences) error {
	ctx, span := startSpan(ctx, "redis.prefs.put", "HSET")
	defer span.End()

	err := s.cmd.HSet(ctx, Key(id),
		fieldPortrait, p.Portrait.String(),
		fieldLandscape, p.Landscape.String(),
		fieldHourFormat, p.HourFormat.String(),
	).Err()
	if err != nil {
		fail(span, err)
		return fmt.Errorf("put preferences %s: %w", id, err)
	}
	return nil
}

// Delete removes both orientation choices and the hour format.
func (s *RedisStore) Delete(ctx context.Context, id domain.InstanceID) error {
	ctx, span := startSpan(ctx, "redis.prefs.delete", "DEL")
	defer span.End()

	if err := s.cmd.Del(ctx, Key(id)).Err(); err != nil {
		fail(span, err)
		return fmt.Errorf("delete preferences %s: %w", id, err)
	}
	return nil
}
