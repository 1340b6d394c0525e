package scanning

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// heicBrands are the ftyp brands used by HEIC/HEIF files.
var heicBrands = map[string]bool{"heic": true, "heix": true, "heif": true, "mif1": true, "msf1": true}

// renderPDF rasterizes the first page of a PDF. Scanned receipts are
// almost always a single page.
func renderPDF(data []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: opening PDF: %v", ErrUnsupportedImage, err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("%w: PDF has no pages", ErrUnsupportedImage)
	}
	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("%w: rendering PDF page: %v", ErrUnsupportedImage, err)
	}
	return img, nil
}

// decodeImage decodes HEIC/HEIF and the formats registered with the
// standard image package.
func decodeImage(data []byte, mimeType string) (image.Image, error) {
	if isHEIC(data, mimeType) {
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: decoding HEIC/HEIF image: %v", ErrUnsupportedImage, err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if errors.Is(err, image.ErrFormat) {
		return nil, fmt.Errorf("%w: %s (supported: JPEG, PNG, GIF, HEIC, HEIF, PDF)", ErrUnsupportedImage, mimeType)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decoding image: %v", ErrUnsupportedImage, err)
	}
	return img, nil
}

// isHEIC checks the ftyp box brand at offset 8, falling back to the MIME type.
func isHEIC(data []byte, mimeType string) bool {
	if len(data) >= 12 && string(data[4:8]) == "ftyp" && heicBrands[string(data[8:12])] {
		return true
	}
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// toPNG normalizes an attachment into PNG bytes, the one format every
// provider accepts. PNG input is passed through untouched.
func toPNG(data []byte, contentType string) ([]byte, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	if mimeType == "image/png" && !isHEIC(data, "") {
		return data, nil
	}

	var (
		img image.Image
		err error
	)
	if mimeType == "application/pdf" {
		img, err = renderPDF(data)
	} else {
		img, err = decodeImage(data, mimeType)
	}
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
