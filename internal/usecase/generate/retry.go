package generate

import (
	"context"
	"time"

	"echoly/internal/infra/metrics"
)

// withRetry выполняет операцию до attempts раз. Повторяется только ошибка,
// которую признаёт retryable; пауза перед повтором N равна backoff(N).
// Любая неповторяемая ошибка или исчерпание попыток возвращаются сразу.
func withRetry[T any](ctx context.Context, attempts int, backoff func(attempt int) time.Duration, retryable func(error) bool, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable(err) || attempt == attempts {
			return zero, err
		}
		metrics.IncDraftRetry()
		if err := sleepCtx(ctx, backoff(attempt)); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

// linearBackoff возвращает паузы base, 2*base, 3*base...
func linearBackoff(base time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * base
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
