package inbox

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseBlobRef", func() {
	It("should read the container from the first segment of a URL", func() {
		ref, err := ParseBlobRef("https://acct.blob.example.net/receipts/m1/scan.png", "attachments")
		Expect(err).NotTo(HaveOccurred())
		Expect(ref).To(Equal(BlobRef{Container: "receipts", Blob: "m1/scan.png"}))
	})

	It("should place a bare path in the default container", func() {
		ref, err := ParseBlobRef("m1/scan.png", "attachments")
		Expect(err).NotTo(HaveOccurred())
		Expect(ref).To(Equal(BlobRef{Container: "attachments", Blob: "m1/scan.png"}))
		Expect(ref.String()).To(Equal("attachments/m1/scan.png"))
	})

	It("should reject a URL without a blob", func() {
		_, err := ParseBlobRef("http://host/receipts", "attachments")
		Expect(err).To(HaveOccurred())
	})

	It("should reject an empty reference", func() {
		_, err := ParseBlobRef("", "attachments")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage *LocalStorage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir, "attachments")
		Expect(err).NotTo(HaveOccurred())
	})

	It("should create the default container", func() {
		info, err := os.Stat(filepath.Join(tmpDir, "attachments"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})

	It("should require a default container", func() {
		_, err := NewLocalStorage(tmpDir, "")
		Expect(err).To(HaveOccurred())
	})

	Describe("Save and Get", func() {
		var ref BlobRef

		BeforeEach(func() {
			var err error
			ref, err = storage.Resolve("m1/scan.png")
			Expect(err).NotTo(HaveOccurred())
		})

		When("saving succeeds", func() {
			BeforeEach(func() {
				Expect(storage.Save(ref, []byte("content"))).To(Succeed())
			})

			It("should write under the container directory", func() {
				data, err := os.ReadFile(filepath.Join(tmpDir, "attachments", "m1", "scan.png"))
				Expect(err).NotTo(HaveOccurred())
				Expect(data).To(Equal([]byte("content")))
			})

			It("should read the blob back", func() {
				data, err := storage.Get(ref)
				Expect(err).NotTo(HaveOccurred())
				Expect(data).To(Equal([]byte("content")))
			})

			It("should delete the blob", func() {
				Expect(storage.Delete(ref)).To(Succeed())
				_, err := storage.Get(ref)
				Expect(err).To(MatchError(ErrBlobNotFound))
			})
		})

		When("the blob does not exist", func() {
			It("should return ErrBlobNotFound", func() {
				_, err := storage.Get(ref)
				Expect(err).To(MatchError(ErrBlobNotFound))
			})
		})

		It("should serve other containers", func() {
			other := BlobRef{Container: "receipts", Blob: "x.pdf"}
			Expect(storage.Save(other, []byte("pdf"))).To(Succeed())
			data, err := storage.Get(other)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("pdf")))
		})
	})

	Describe("path traversal", func() {
		It("should reject blobs escaping the base path", func() {
			err := storage.Save(BlobRef{Container: "attachments", Blob: "../../etc/passwd"}, []byte("x"))
			Expect(err).To(MatchError(ErrInvalidBlobRef))

			_, err = storage.Get(BlobRef{Container: "..", Blob: "secret"})
			Expect(err).To(MatchError(ErrInvalidBlobRef))
		})
	})
})
