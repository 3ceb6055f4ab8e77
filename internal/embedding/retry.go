package embedding

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"resumatch/internal/errors"
	"resumatch/internal/matching"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

const maxBackoff = 30 * time.Second

// backoff is replaced in tests
var backoff = func(attempt int) time.Duration {
	base := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
	jitterMax := big.NewInt(int64(float64(base) * 0.1))
	jitterBig, _ := rand.Int(rand.Reader, jitterMax)
	return min(base+time.Duration(jitterBig.Int64()), maxBackoff)
}

// withRetry calls fn up to maxRetries+1 times while the failure is transient
func withRetry(ctx context.Context, logger *errors.Logger, provider string, maxRetries int, fn func() ([]matching.Vector, error)) ([]matching.Vector, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("Retrying embedding request",
				"provider", provider,
				"attempt", attempt,
				"max_retries", maxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		vectors, err := fn()
		if err == nil {
			if attempt > 0 {
				logger.Info("Embedding request succeeded after retry",
					"provider", provider,
					"total_attempts", attempt+1)
			}
			return vectors, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	return nil, fmt.Errorf("%s embedding request failed: %w", provider, lastErr)
}

// isRetryableError accepts network failures and throttling or server side HTTP statuses
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.HasCode(err, errors.ErrCodeEmbeddingMismatch) {
		return false
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}

	var gErr *googleapi.Error
	if stderrors.As(err, &gErr) {
		return retryableStatus(gErr.Code)
	}
	var genaiErr genai.APIError
	if stderrors.As(err, &genaiErr) {
		return retryableStatus(genaiErr.Code)
	}
	var oaiErr *openai.APIError
	if stderrors.As(err, &oaiErr) {
		return retryableStatus(oaiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if stderrors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}

	return false
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
