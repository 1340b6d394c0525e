package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Pattern library", func() {
	Describe("MatchDate", func() {
		It("prefers a slash date over an earlier ISO date", func() {
			Expect(MatchDate("Printed 2024-05-01\nPurchased 05/01/2024")).To(Equal(ptr("05/01/2024")))
		})

		It("accepts two digit years", func() {
			Expect(MatchDate("06/10/18 12:30")).To(Equal(ptr("06/10/18")))
		})

		It("falls back to dash dates", func() {
			Expect(MatchDate("Date: 05-01-2024")).To(Equal(ptr("05-01-2024")))
		})

		It("reads a bare ISO date whole", func() {
			Expect(MatchDate("2024-05-01")).To(Equal(ptr("2024-05-01")))
		})

		It("returns nil without a date", func() {
			Expect(MatchDate("no date here")).To(BeNil())
		})

		It("lists rules in priority order", func() {
			names := []string{}
			for _, r := range ordered(DateRules) {
				names = append(names, r.Name)
			}
			Expect(names).To(Equal([]string{"slash", "dash", "iso"}))
		})
	})

	Describe("MatchTotal", func() {
		It("takes the last total", func() {
			Expect(MatchTotal("Subtotal: 20.00\nTax: 5.50\nTotal: 25.50")).To(Equal(ptr("25.50")))
		})

		It("ignores case and dollar signs", func() {
			Expect(MatchTotal("TOTAL $42.75")).To(Equal(ptr("42.75")))
		})

		It("falls back to balance due", func() {
			Expect(MatchTotal("Balance Due: 13.10\nBalance due 12.00")).To(Equal(ptr("12.00")))
		})

		It("returns nil without an amount", func() {
			Expect(MatchTotal("Thank you")).To(BeNil())
		})
	})

	Describe("MatchStore", func() {
		It("prefers a street address over a suite", func() {
			Expect(MatchStore("1805 Parker RD Suite C110")).To(Equal(ptr("1805 Parker RD")))
		})

		It("finds a suite", func() {
			Expect(MatchStore("Suite C110")).To(Equal(ptr("Suite C110")))
		})

		It("returns the whole store match", func() {
			Expect(MatchStore("Store #123")).To(Equal(ptr("Store #123")))
		})

		It("returns nil without a location", func() {
			Expect(MatchStore("Joe's Pizza")).To(BeNil())
		})
	})

	Describe("CleanMerchant", func() {
		It("strips phone numbers", func() {
			Expect(CleanMerchant("Amici Conyers (770) 555-1234")).To(Equal("Amici Conyers"))
		})

		It("strips addresses and suites", func() {
			Expect(CleanMerchant("Amici 1805 Parker Rd Suite C110")).To(Equal("Amici"))
		})

		It("collapses whitespace", func() {
			Expect(CleanMerchant("  Joe's \t Pizza\n")).To(Equal("Joe's Pizza"))
		})
	})
})

var _ = Describe("NormalizeMerchant", func() {
	It("keeps the first two words", func() {
		Expect(NormalizeMerchant(ptr("Joe's Pizza Shop Downtown"))).To(Equal(ptr("Joe's Pizza")))
	})

	It("leaves short names alone", func() {
		Expect(NormalizeMerchant(ptr("Walgreens"))).To(Equal(ptr("Walgreens")))
	})

	It("keeps nil as nil", func() {
		Expect(NormalizeMerchant(nil)).To(BeNil())
	})

	It("turns a name that cleans to nothing into nil", func() {
		Expect(NormalizeMerchant(ptr("(770) 555-1234"))).To(BeNil())
	})
})
