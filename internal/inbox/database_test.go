package inbox

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/receipt-inbox/internal/extraction"
	"github.com/zombor/receipt-inbox/internal/routing"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	newMessage := func(id string) *Message {
		text := `{"merchant":"CVS","date":null,"total":"9.99","model":null,"store_number":null,"confidence_score":80,"duplication_score":0}`
		blob := id + "/a.png"
		received := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
		return &Message{
			ID:         id,
			Subject:    "Receipt",
			From:       "sender@example.com",
			ReceivedAt: received,
			Status:     StatusNew,
			Attachments: []Attachment{{
				Name:        "a.png",
				ContentType: "image/png",
				BlobPath:    &blob,
				OCR:         extraction.OCRResult{Status: extraction.StatusSuccess, Text: &text, Engine: "ollama:llava", LastUpdated: &received},
			}},
			OverallConfidence: 80,
			CreatedAt:         received,
			UpdatedAt:         received,
		}
	}

	Describe("SaveMessage", func() {
		It("should round trip the whole document", func() {
			msg := newMessage("m1")
			msg.Labels = &routing.Labels{Industry: "consumer", Category: "receipt"}
			msg.AssignedAgent = "agent_003"
			Expect(db.SaveMessage(msg)).To(Succeed())

			got, err := db.GetMessage("m1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(msg))
		})

		It("should replace an existing message", func() {
			msg := newMessage("m1")
			Expect(db.SaveMessage(msg)).To(Succeed())
			msg.OverallConfidence = 40
			Expect(db.SaveMessage(msg)).To(Succeed())

			got, err := db.GetMessage("m1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.OverallConfidence).To(Equal(40))

			all, err := db.ListMessages()
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
		})

		It("should persist across reopen", func() {
			Expect(db.SaveMessage(newMessage("m1"))).To(Succeed())
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())
			got, err := db.GetMessage("m1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Attachments).To(HaveLen(1))
		})
	})

	Describe("GetMessage", func() {
		It("should return ErrMessageNotFound for an unknown id", func() {
			_, err := db.GetMessage("nonexistent")
			Expect(err).To(MatchError(ErrMessageNotFound))
			Expect(err).To(MatchError(ContainSubstring("nonexistent")))
		})
	})

	Describe("ListMessages", func() {
		It("should return an empty list for an empty database", func() {
			all, err := db.ListMessages()
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(BeEmpty())
		})

		It("should return every message", func() {
			Expect(db.SaveMessage(newMessage("m1"))).To(Succeed())
			Expect(db.SaveMessage(newMessage("m2"))).To(Succeed())

			all, err := db.ListMessages()
			Expect(err).NotTo(HaveOccurred())
			ids := []string{all[0].ID, all[1].ID}
			Expect(ids).To(ConsistOf("m1", "m2"))
		})
	})

	Describe("DeleteMessage", func() {
		It("should remove the message", func() {
			Expect(db.SaveMessage(newMessage("m1"))).To(Succeed())
			Expect(db.DeleteMessage("m1")).To(Succeed())

			_, err := db.GetMessage("m1")
			Expect(err).To(MatchError(ErrMessageNotFound))
		})

		It("should not fail for an unknown id", func() {
			Expect(db.DeleteMessage("nonexistent")).To(Succeed())
		})
	})
})
