package scanning

import (
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("truncate", func() {
	It("should leave short output alone", func() {
		Expect(truncate("error", 10)).To(Equal("error"))
	})

	It("should cut long output and mark it", func() {
		Expect(truncate("abcdef", 3)).To(Equal("abc...(truncated)"))
	})

	It("should not split a multibyte character", func() {
		out := truncate("héllo", 2)
		Expect(out).To(Equal("h...(truncated)"))
		Expect(utf8.ValidString(out)).To(BeTrue())
	})
})
