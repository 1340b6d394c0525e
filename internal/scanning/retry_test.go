package scanning

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// scriptedScanner answers with one scripted reply per call
type scriptedScanner struct {
	replies []string
	errs    []error
	calls   int
	closed  bool
}

func (s *scriptedScanner) ScanReceipt(ctx context.Context, imageData []byte, contentType string) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return "", nil
}

func (s *scriptedScanner) Engine() string { return "scripted:test" }

func (s *scriptedScanner) Close() error {
	s.closed = true
	return nil
}

var _ = Describe("Retrying", func() {
	var (
		inner   *scriptedScanner
		retry   *Retrying
		text    string
		err     error
		cfg     RetryConfig
		started time.Time
	)

	BeforeEach(func() {
		inner = &scriptedScanner{}
		cfg = RetryConfig{Attempts: 3, Pause: time.Millisecond}
	})

	JustBeforeEach(func() {
		retry = NewRetrying(inner, cfg, discardLogger())
		started = time.Now()
		text, err = retry.ScanReceipt(context.Background(), []byte("img"), "image/png")
	})

	When("the first answer is usable", func() {
		BeforeEach(func() {
			inner.replies = []string{`{"merchant":"CVS"}`}
		})

		It("returns it after one call", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal(`{"merchant":"CVS"}`))
			Expect(inner.calls).To(Equal(1))
		})
	})

	When("the first answers are too short", func() {
		BeforeEach(func() {
			inner.replies = []string{"  ", "a b c", "Walgreens Total 9.99"}
		})

		It("keeps trying until the text is long enough", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("Walgreens Total 9.99"))
			Expect(inner.calls).To(Equal(3))
		})
	})

	When("every attempt fails", func() {
		BeforeEach(func() {
			inner.errs = []error{errors.New("boom"), errors.New("boom"), errors.New("boom"), errors.New("boom")}
		})

		It("reports exhaustion after the configured attempts", func() {
			Expect(err).To(MatchError(ErrModelExhausted))
			Expect(inner.calls).To(Equal(3))
		})
	})

	When("the answer carries a content= wrapper", func() {
		BeforeEach(func() {
			inner.replies = []string{`content='{"total":"1.00"}'`}
		})

		It("strips it", func() {
			Expect(text).To(Equal(`{"total":"1.00"}`))
		})
	})

	When("the wrapper hides a too-short answer", func() {
		BeforeEach(func() {
			inner.replies = []string{`content=''`, `content=""`, `content='ab'`}
		})

		It("is exhausted", func() {
			Expect(err).To(MatchError(ErrModelExhausted))
		})
	})

	When("the image cannot be decoded", func() {
		BeforeEach(func() {
			inner.errs = []error{ErrUnsupportedImage}
		})

		It("does not retry", func() {
			Expect(err).To(MatchError(ErrUnsupportedImage))
			Expect(err).NotTo(MatchError(ErrModelExhausted))
			Expect(inner.calls).To(Equal(1))
		})
	})

	When("a pause is configured", func() {
		BeforeEach(func() {
			cfg.Pause = 20 * time.Millisecond
			inner.replies = []string{"", "", "long enough"}
		})

		It("waits between attempts", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(time.Since(started)).To(BeNumerically(">=", 40*time.Millisecond))
		})
	})

	It("delegates Engine and Close", func() {
		Expect(retry.Engine()).To(Equal("scripted:test"))
		Expect(retry.Close()).To(Succeed())
		Expect(inner.closed).To(BeTrue())
	})
})

var _ = Describe("DefaultRetryConfig", func() {
	It("makes three attempts 200ms apart", func() {
		Expect(DefaultRetryConfig()).To(Equal(RetryConfig{Attempts: 3, Pause: 200 * time.Millisecond}))
	})
})
