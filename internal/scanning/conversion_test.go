package scanning

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("toPNG", func() {
	var (
		data        []byte
		contentType string
		out         []byte
		err         error
	)

	JustBeforeEach(func() {
		out, err = toPNG(data, contentType)
	})

	When("the input is already PNG", func() {
		BeforeEach(func() {
			data = []byte("not really decoded")
			contentType = "IMAGE/PNG "
		})

		It("passes it through", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(data))
		})
	})

	When("the input is JPEG", func() {
		BeforeEach(func() {
			img := image.NewRGBA(image.Rect(0, 0, 4, 4))
			img.Set(1, 1, color.White)
			var buf bytes.Buffer
			Expect(jpeg.Encode(&buf, img, nil)).To(Succeed())
			data = buf.Bytes()
			contentType = "image/jpeg"
		})

		It("converts it to PNG", func() {
			Expect(err).NotTo(HaveOccurred())
			decoded, decodeErr := png.Decode(bytes.NewReader(out))
			Expect(decodeErr).NotTo(HaveOccurred())
			Expect(decoded.Bounds().Dx()).To(Equal(4))
		})
	})

	When("the input is not an image", func() {
		BeforeEach(func() {
			data = []byte("plain text")
			contentType = "text/plain"
		})

		It("reports an unsupported image", func() {
			Expect(err).To(MatchError(ErrUnsupportedImage))
		})
	})
})

var _ = Describe("isHEIC", func() {
	It("recognises the ftyp brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...)
		Expect(isHEIC(data, "")).To(BeTrue())
	})

	It("recognises the MIME type", func() {
		Expect(isHEIC([]byte("x"), "image/heif")).To(BeTrue())
	})

	It("rejects other images", func() {
		Expect(isHEIC([]byte("\x89PNG\r\n\x1a\n0000"), "image/png")).To(BeFalse())
	})
})
