package extraction

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Edits", func() {
	Describe("NewEdit", func() {
		It("keeps only whitelisted fields", func() {
			edit := NewEdit(map[string]json.RawMessage{
				"total":            json.RawMessage(`"30.00"`),
				"model":            json.RawMessage(`null`),
				"confidence_score": json.RawMessage(`99`),
				"id":               json.RawMessage(`"abc"`),
			})
			Expect(edit).To(HaveLen(2))
			Expect(edit).To(HaveKeyWithValue("total", ptr("30.00")))
			Expect(edit).To(HaveKey("model"))
			Expect(edit["model"]).To(BeNil())
		})

		It("is empty without editable fields", func() {
			Expect(NewEdit(map[string]json.RawMessage{"id": json.RawMessage(`"abc"`)}).Empty()).To(BeTrue())
		})
	})

	Describe("ApplyEdit", func() {
		var (
			existing *string
			edit     Edit
			updated  Record
		)

		JustBeforeEach(func() {
			var err error
			updated, err = ParseRecord(ApplyEdit(existing, edit))
			Expect(err).NotTo(HaveOccurred())
		})

		When("a record exists", func() {
			BeforeEach(func() {
				existing = ptr(Record{Merchant: ptr("CVS"), Total: ptr("25.50"), ConfidenceScore: 80, DuplicationScore: 12}.Text())
				edit = Edit{"total": ptr("26.00")}
			})

			It("overwrites the edited field", func() {
				Expect(updated.Total).To(Equal(ptr("26.00")))
			})

			It("leaves other fields", func() {
				Expect(updated.Merchant).To(Equal(ptr("CVS")))
			})

			It("preserves both scores", func() {
				Expect(updated.ConfidenceScore).To(Equal(80))
				Expect(updated.DuplicationScore).To(Equal(12))
			})
		})

		When("an edit clears a field", func() {
			BeforeEach(func() {
				existing = ptr(Record{Merchant: ptr("CVS")}.Text())
				edit = Edit{"merchant": nil}
			})

			It("stores null", func() {
				Expect(updated.Merchant).To(BeNil())
			})
		})

		When("the merchant is long", func() {
			BeforeEach(func() {
				existing = nil
				edit = Edit{"merchant": ptr("Joe's Pizza Shop Downtown")}
			})

			It("stores it verbatim", func() {
				Expect(updated.Merchant).To(Equal(ptr("Joe's Pizza Shop Downtown")))
			})
		})

		When("there is no prior record", func() {
			BeforeEach(func() {
				existing = nil
				edit = Edit{"date": ptr("05/02/2024")}
			})

			It("writes zero scores", func() {
				Expect(updated.ConfidenceScore).To(Equal(0))
				Expect(updated.DuplicationScore).To(Equal(0))
				Expect(updated.Date).To(Equal(ptr("05/02/2024")))
			})
		})

		When("the prior record is garbage", func() {
			BeforeEach(func() {
				existing = ptr("{broken")
				edit = Edit{"model": ptr("X-100")}
			})

			It("starts from an empty record", func() {
				Expect(updated).To(Equal(Record{Model: ptr("X-100")}))
			})
		})
	})
})
