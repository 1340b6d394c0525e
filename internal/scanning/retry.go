package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"
)

// minResponseChars is the least amount of non-whitespace text accepted as
// an answer.
const minResponseChars = 5

var errShortResponse = errors.New("response too short")

// RetryConfig controls how a Retrying scanner paces and repeats calls.
type RetryConfig struct {
	// Attempts is the maximum number of calls per attachment
	Attempts int
	// Pause is the fixed delay between attempts
	Pause time.Duration
	// RatePerSecond caps calls across all attachments; zero means unlimited
	RatePerSecond float64
}

// DefaultRetryConfig makes three attempts 200ms apart.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Attempts: 3, Pause: 200 * time.Millisecond}
}

// Retrying wraps a Scanner with a fixed-pause retry policy and a minimum
// response length. It is itself a Scanner.
type Retrying struct {
	scanner Scanner
	cfg     RetryConfig
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRetrying wraps scanner with cfg.
func NewRetrying(scanner Scanner, cfg RetryConfig, logger *slog.Logger) *Retrying {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Retrying{scanner: scanner, cfg: cfg, logger: logger}
	if cfg.RatePerSecond > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return r
}

// ScanReceipt calls the wrapped scanner until it returns usable text. It
// returns ErrModelExhausted when every attempt fails or answers too briefly.
func (r *Retrying) ScanReceipt(ctx context.Context, imageData []byte, contentType string) (string, error) {
	attempt := 0
	op := func() (string, error) {
		attempt++
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return "", backoff.Permanent(err)
			}
		}

		text, err := r.scanner.ScanReceipt(ctx, imageData, contentType)
		if errors.Is(err, ErrUnsupportedImage) {
			return "", backoff.Permanent(err)
		}
		if err != nil {
			r.logger.Warn("Vision model call failed", "engine", r.scanner.Engine(), "attempt", attempt, "error", err)
			return "", err
		}

		text = stripContentPrefix(text)
		if countNonSpace(text) < minResponseChars {
			r.logger.Warn("Vision model answer too short", "engine", r.scanner.Engine(), "attempt", attempt, "length", len(text))
			return "", errShortResponse
		}
		return text, nil
	}

	text, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(r.cfg.Pause)),
		backoff.WithMaxTries(uint(r.cfg.Attempts)),
	)
	switch {
	case err == nil:
		return text, nil
	case errors.Is(err, ErrUnsupportedImage), ctx.Err() != nil:
		return "", err
	default:
		return "", fmt.Errorf("%w after %d attempts: %v", ErrModelExhausted, attempt, err)
	}
}

// Engine names the wrapped scanner
func (r *Retrying) Engine() string {
	return r.scanner.Engine()
}

// Close closes the wrapped scanner
func (r *Retrying) Close() error {
	return r.scanner.Close()
}

func stripContentPrefix(text string) string {
	if !strings.HasPrefix(text, "content=") {
		return text
	}
	return strings.Trim(strings.TrimPrefix(text, "content="), `'"`)
}

func countNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
