package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// lengthRetryKey marks contexts whose requests are reissued when content length is missing.
type lengthRetryKey struct{}

func withLengthRetry(ctx context.Context) context.Context {
	return context.WithValue(ctx, lengthRetryKey{}, true)
}

func lengthRetryEnabled(ctx context.Context) bool {
	enabled, _ := ctx.Value(lengthRetryKey{}).(bool)

	return enabled
}

// retryMissingLength asks for another attempt only when a successful response
// lacks a content length and the caller opted in. Transport errors are final.
func retryMissingLength(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}

	if err != nil || resp == nil {
		return false, nil
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return false, nil
	}

	return resp.ContentLength < 0 && lengthRetryEnabled(ctx), nil
}

// immediately reissues requests without waiting.
func immediately(_, _ time.Duration, _ int, _ *http.Response) time.Duration {
	return 0
}

// giveUp turns an exhausted or failed request into a plain error.
func giveUp(resp *http.Response, err error, attempts int) (*http.Response, error) {
	if resp != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		return nil, err
	}

	return nil, fmt.Errorf("%w after %d attempt(s)", ErrMissingContentLength, attempts)
}

// leveledLogger routes the client's own logs into zap. Request chatter goes to debug.
type leveledLogger struct {
	log *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...any) {
	l.log.Errorw(msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...any) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...any) {
	l.log.Warnw(msg, keysAndValues...)
}
