package scanning

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		server   *ghttp.Server
		scanner  *Ollama
		requests []ollamaChatRequest
		text     string
		err      error
	)

	recordRequest := func(w http.ResponseWriter, r *http.Request) {
		body, readErr := io.ReadAll(r.Body)
		Expect(readErr).NotTo(HaveOccurred())
		var req ollamaChatRequest
		Expect(json.Unmarshal(body, &req)).To(Succeed())
		requests = append(requests, req)
	}

	BeforeEach(func() {
		server = ghttp.NewServer()
		requests = nil
		var newErr error
		scanner, newErr = NewOllama(server.URL(), "llava", discardLogger())
		Expect(newErr).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		text, err = scanner.ScanReceipt(context.Background(), []byte("png-bytes"), "image/png")
	})

	When("the model answers", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("POST", "/api/chat"),
				recordRequest,
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{Role: "assistant", Content: `{"merchant":"CVS"}`},
					Done:    true,
				}),
			))
		})

		It("returns the message content", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal(`{"merchant":"CVS"}`))
		})

		It("asks for a low temperature", func() {
			Expect(requests).To(HaveLen(1))
			Expect(requests[0].Options).To(HaveKeyWithValue("temperature", BeNumerically("~", 0.1)))
		})

		It("attaches the image to the user message", func() {
			Expect(requests[0].Messages).To(HaveLen(2))
			Expect(requests[0].Messages[1].Images).To(HaveLen(1))
		})

		It("names its engine", func() {
			Expect(scanner.Engine()).To(Equal("ollama:llava"))
		})
	})

	When("the model rejects the temperature option", func() {
		BeforeEach(func() {
			server.AppendHandlers(
				ghttp.CombineHandlers(
					recordRequest,
					ghttp.RespondWith(http.StatusBadRequest, `{"error":"invalid option: temperature"}`),
				),
				ghttp.CombineHandlers(
					recordRequest,
					ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
						Message: ollamaMessage{Role: "assistant", Content: "Walgreens"},
					}),
				),
			)
		})

		It("retries without it", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("Walgreens"))
			Expect(requests).To(HaveLen(2))
			Expect(requests[1].Options).To(BeEmpty())
		})
	})

	When("the server fails", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("status 500")))
		})
	})
})
