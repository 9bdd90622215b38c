package billparse

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("productName", func() {
	It("should strip codes, numbers and amounts", func() {
		Expect(productName("Blue widget ABC123 $4.50")).To(Equal("Blue widget"))
	})

	It("should return nothing when the remainder is too short", func() {
		Expect(productName("ABC123 42")).To(BeEmpty())
	})

	It("should keep lowercase words", func() {
		Expect(productName("5 units of ITEM42")).To(Equal("units of"))
	})
})

var _ = Describe("Lines", func() {
	It("should split on any line break, trim and drop blanks", func() {
		Expect(Lines("  first \r\n\r\n second\r third\n\n")).To(Equal([]string{"first", "second", "third"}))
	})

	It("should return an empty list for blank text", func() {
		Expect(Lines(" \n\t\n")).To(BeEmpty())
	})
})
