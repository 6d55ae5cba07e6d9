package correlation

import (
	"context"
	"maps"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
	"github.com/google/uuid"

	"github.com/rainbow-me/grpc-client-logging/common/headers"
	"github.com/rainbow-me/grpc-client-logging/common/logger"
)

// Standard correlation keys
const (
	IDKey = "correlation_id"
)

// IDHeader is the HTTP/gRPC header carrying the correlation id
const IDHeader = headers.HeaderXCorrelationID

// correlationContextKey is a private type for context keys to avoid collisions
type correlationContextKey struct{}

// Key is the context key for storing correlation data
var Key = correlationContextKey{} //nolint:gochecknoglobals

// Data represents the correlation context data
type Data map[string]string

// NewID returns a fresh correlation id. UUIDv7 keeps ids roughly time ordered;
// a random v4 is used if the v7 generator fails.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// ContextWithCorrelation sets the given correlation id on the context, generating one if empty.
func ContextWithCorrelation(ctx context.Context, id string) context.Context {
	if id == "" {
		if Has(ctx, IDKey) {
			return ctx
		}
		id = NewID()
	}
	return SetID(ctx, id)
}

// Set adds correlation values to a context, returning a new context.
// - Derives new context; doesn't modify input context or values map.
// - Merges input values into a copy of existing context correlation data.
// - The context logger gets the merged values as fields.
func Set(ctx context.Context, values map[string]string) context.Context {
	if len(values) == 0 {
		return ctx
	}

	correlationMap := maps.Clone(Get(ctx))
	for k, v := range values {
		if k != "" && v != "" {
			correlationMap[k] = v
		}
	}

	// Set baggage items for distributed tracing
	if span, ok := tracer.SpanFromContext(ctx); ok {
		for k, v := range correlationMap {
			span.SetBaggageItem(k, v)
		}
	}

	ctx = context.WithValue(ctx, Key, correlationMap)
	return logger.ContextWithFields(ctx, toLogFields(correlationMap)...)
}

// SetKey sets a single correlation key-value pair and returns a new context.
// An empty value removes the key.
func SetKey(ctx context.Context, key, value string) context.Context {
	if key == "" {
		return ctx
	}

	existing := Get(ctx)
	if current, ok := existing[key]; ok && current == value {
		return ctx
	}

	newMap := maps.Clone(existing)
	if value != "" {
		newMap[key] = value
	} else {
		delete(newMap, key)
	}

	if span, ok := tracer.SpanFromContext(ctx); ok && value != "" {
		span.SetBaggageItem(key, value)
	}

	ctx = context.WithValue(ctx, Key, newMap)
	return logger.ContextWithFields(ctx, toLogFields(Data{key: value})...)
}

// Get returns the correlation data from the context.
// Returns an empty map if no correlation data exists.
func Get(ctx context.Context) Data {
	if ctx == nil {
		return make(Data)
	}

	if v, ok := ctx.Value(Key).(Data); ok && v != nil {
		return v
	}

	return make(Data)
}

// GetValue returns a specific correlation value by key.
func GetValue(ctx context.Context, key string) string {
	if key == "" {
		return ""
	}
	return Get(ctx)[key]
}

// Has checks if a correlation key exists in the context.
func Has(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}
	_, exists := Get(ctx)[key]
	return exists
}

// ID returns the correlation ID from the correlation context.
func ID(ctx context.Context) string {
	return GetValue(ctx, IDKey)
}

// SetID sets the correlation ID in the correlation context.
func SetID(ctx context.Context, correlationID string) context.Context {
	return SetKey(ctx, IDKey, correlationID)
}

// ToLogFields converts the correlation context to zap fields for logging.
func ToLogFields(ctx context.Context) []logger.Field {
	return toLogFields(Get(ctx))
}

func toLogFields(data Data) []logger.Field {
	if len(data) == 0 {
		return nil
	}

	fields := make([]logger.Field, 0, len(data))
	for key, value := range data {
		if value != "" {
			fields = append(fields, logger.String(key, value))
		}
	}

	return fields
}
