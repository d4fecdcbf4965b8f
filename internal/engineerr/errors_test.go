package engineerr

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	err := New(CodeRiskRejected, "risk", "daily loss limit hit").
		WithSymbol("00700.HK").
		WithTimestamp(time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC))

	s := err.Error()
	assert.Contains(t, s, "RISK_REJECTED")
	assert.Contains(t, s, "risk")
	assert.Contains(t, s, "daily loss limit hit")
	assert.Contains(t, s, "symbol=00700.HK")
	assert.Contains(t, s, "2024-06-03T10:00:00Z")
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeSourceUnavailable, "pipeline", "fetch failed")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Nil(t, Wrap(nil, CodeSourceUnavailable, "pipeline", "no-op"))
}

func TestIsMatchesOnCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeQualityRejected, "pipeline", "duplicates over threshold"))

	assert.True(t, errors.Is(err, New(CodeQualityRejected, "", "")))
	assert.False(t, errors.Is(err, New(CodeInsufficientData, "", "")))
}

func TestCodeOf(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(CodeCancelled, "simulator", "context done"))
	assert.Equal(t, CodeCancelled, CodeOf(err))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
	assert.Equal(t, Code(""), CodeOf(nil))
}

func TestRetryable(t *testing.T) {
	assert.True(t, New(CodeSourceUnavailable, "source", "timeout").Retryable())
	assert.False(t, New(CodeQualityRejected, "pipeline", "bad data").Retryable())
	assert.False(t, New(CodeInvalidArgument, "request", "no symbol").Retryable())
}
