package scanning

import (
	"context"
	"errors"
	"strings"
)

// ErrModelExhausted is returned when every attempt to read an attachment
// failed or produced too little text to be useful.
var ErrModelExhausted = errors.New("vision model exhausted")

// ErrUnsupportedImage is returned when attachment bytes cannot be turned into
// an image the model accepts. Retrying does not help.
var ErrUnsupportedImage = errors.New("unsupported image")

// preferredTemperature keeps model output close to deterministic.
const preferredTemperature = 0.1

// Scanner reads a receipt image and returns the model's raw text response.
type Scanner interface {
	// ScanReceipt sends the image with the receipt extraction prompt
	ScanReceipt(ctx context.Context, imageData []byte, contentType string) (string, error)
	// Engine names the provider and model, e.g. "gemini:gemini-2.5-pro"
	Engine() string
	// Close closes the scanner and releases resources
	Close() error
}

// temperatureRejected reports whether a provider refused the temperature
// setting, in which case the call is repeated without it.
func temperatureRejected(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "temperature")
}
