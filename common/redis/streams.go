package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// StreamOptions controls XADD trimming. MaxLen 0 keeps the stream untrimmed.
type StreamOptions struct {
	MaxLen int64
}

// PublishToStream appends values to stream, stringifying each value the way
// consumers expect (numbers in decimal, bools as "true"/"false", others as JSON).
func PublishToStream(ctx context.Context, client *redis.Client, stream string, values map[string]interface{}, opts StreamOptions) (string, error) {
	streamValues := make(map[string]interface{}, len(values))
	for k, v := range values {
		s, err := stringify(v)
		if err != nil {
			return "", fmt.Errorf("failed to encode field %s: %w", k, err)
		}
		streamValues[k] = s
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: streamValues,
	}
	if opts.MaxLen > 0 {
		args.MaxLen = opts.MaxLen
		args.Approx = true
	}

	return client.XAdd(ctx, args).Result()
}

// PublishJSONToStream publishes data as a single "data" JSON field together
// with a unix "timestamp" field.
func PublishJSONToStream(ctx context.Context, client *redis.Client, stream string, data interface{}, opts StreamOptions) (string, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return PublishToStream(ctx, client, stream, map[string]interface{}{
		"data":      string(jsonBytes),
		"timestamp": time.Now().Unix(),
	}, opts)
}

func stringify(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
