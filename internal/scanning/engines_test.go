package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NewRecognizer", func() {
	It("defaults to tesseract", func() {
		r, err := NewRecognizer(RecognizerConfig{})
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(BeAssignableToTypeOf(&Tesseract{}))
	})

	It("builds an Ollama recognizer", func() {
		r, err := NewRecognizer(RecognizerConfig{Engine: EngineOllama, OllamaURL: "http://ollama:11434"})
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(BeAssignableToTypeOf(&Ollama{}))
	})

	It("requires a Gemini key", func() {
		GinkgoT().Setenv("GEMINI_API_KEY", "")
		_, err := NewRecognizer(RecognizerConfig{Engine: EngineGemini})
		Expect(err).To(MatchError(ContainSubstring("api key")))
	})

	It("returns no recognizer for none", func() {
		r, err := NewRecognizer(RecognizerConfig{Engine: EngineNone})
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(BeNil())
	})

	It("rejects unknown engines", func() {
		_, err := NewRecognizer(RecognizerConfig{Engine: "abacus"})
		Expect(err).To(MatchError(ContainSubstring("abacus")))
	})
})
