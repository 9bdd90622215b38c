package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("cleanTranscript", func() {
	When("the reply is wrapped in a fenced block with a language tag", func() {
		It("should return only the inner text", func() {
			Expect(cleanTranscript("```text\nPROD003 5\nXYZ789 3\n```")).To(Equal("PROD003 5\nXYZ789 3"))
		})
	})

	When("the fence is on a single line", func() {
		It("should strip both fences", func() {
			Expect(cleanTranscript("```PROD003 5```")).To(Equal("PROD003 5"))
		})
	})

	When("the reply is plain text", func() {
		It("should only trim surrounding whitespace", func() {
			Expect(cleanTranscript("  PROD003 5\n")).To(Equal("PROD003 5"))
		})
	})
})
