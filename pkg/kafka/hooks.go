package kafka

import (
    "context"
    "time"

    "github.com/segmentio/kafka-go"
)

// ConsumerHook defines lifecycle hooks around message handling.
// Hooks can mutate context, message, and payload.
// Returning a non-nil error from BeforeHandle will skip handler execution
// and trigger error processing (OnError, DLQ, and offset commit).
type ConsumerHook interface {
    BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error)
    AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
    OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
}

// NoopHook is a default hook that does nothing and is fully panic-safe.
type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
    return ctx, km, data, nil
}

func (NoopHook) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {}

func (NoopHook) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {}

type hookStartKey struct{}

// ObserverHook reports each handling attempt's topic, elapsed time, and
// outcome through a single callback. A nil callback makes it a no-op.
type ObserverHook struct {
    OnHandled func(topic string, elapsed time.Duration, err error)
}

func (h ObserverHook) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
    return context.WithValue(ctx, hookStartKey{}, time.Now()), km, data, nil
}

func (h ObserverHook) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
    if h.OnHandled == nil {
        return
    }
    var elapsed time.Duration
    if start, ok := ctx.Value(hookStartKey{}).(time.Time); ok {
        elapsed = time.Since(start)
    }
    h.OnHandled(topic, elapsed, err)
}

// OnError is covered by AfterHandle, which already sees the handling error.
func (h ObserverHook) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {}
