package billparse

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("itemFromLine", func() {
	var (
		line string
		item Item
		ok   bool
	)

	JustBeforeEach(func() {
		item, ok = itemFromLine(line)
	})

	When("the line is SKU, description, quantity and price", func() {
		BeforeEach(func() {
			line = "PROD001     Wireless Headphones            2      $45.99        $91.98"
		})

		It("should map every field", func() {
			Expect(ok).To(BeTrue())
			Expect(item).To(Equal(Item{SKU: "PROD001", Qty: 2, Name: "Wireless Headphones", Price: price(45.99)}))
		})
	})

	When("the line starts with the quantity", func() {
		BeforeEach(func() {
			line = "3 ABC123 Blue widget $4.50"
		})

		It("should map quantity first, then SKU and description", func() {
			Expect(ok).To(BeTrue())
			Expect(item).To(Equal(Item{SKU: "ABC123", Qty: 3, Name: "Blue widget", Price: price(4.5)}))
		})
	})

	When("the line is a SKU followed by a quantity", func() {
		BeforeEach(func() {
			line = "PROD003 5"
		})

		It("should extract both without name or price", func() {
			Expect(ok).To(BeTrue())
			Expect(item).To(Equal(Item{SKU: "PROD003", Qty: 5}))
		})
	})

	When("the line is a quantity followed by a SKU", func() {
		BeforeEach(func() {
			line = "7 XYZ789"
		})

		It("should extract both", func() {
			Expect(ok).To(BeTrue())
			Expect(item).To(Equal(Item{SKU: "XYZ789", Qty: 7}))
		})
	})

	When("the line is pipe delimited", func() {
		BeforeEach(func() {
			line = "PROD123|Widget|5|$29.99"
		})

		It("should split on the pipes", func() {
			Expect(ok).To(BeTrue())
			Expect(item).To(Equal(Item{SKU: "PROD123", Qty: 5, Name: "Widget", Price: price(29.99)}))
		})
	})

	When("the line is tab delimited and the description holds a large number", func() {
		BeforeEach(func() {
			line = "PROD123\tCable 2000\t5\t$3.50"
		})

		It("should split on the tabs", func() {
			Expect(ok).To(BeTrue())
			Expect(item).To(Equal(Item{SKU: "PROD123", Qty: 5, Name: "Cable 2000", Price: price(3.5)}))
		})
	})

	When("the columns are separated by runs of spaces and the description holds a large number", func() {
		BeforeEach(func() {
			line = "AB12  Widget 3000  4  $5.00"
		})

		It("should map SKU, description, quantity and price from the spaced columns", func() {
			Expect(ok).To(BeTrue())
			Expect(item).To(Equal(Item{SKU: "AB12", Qty: 4, Name: "Widget 3000", Price: price(5)}))
		})
	})

	When("the price cannot be read as a number", func() {
		BeforeEach(func() {
			line = "ABC123 Widget 2 ..."
		})

		It("should leave the price absent", func() {
			Expect(ok).To(BeTrue())
			Expect(item.Qty).To(Equal(2))
			Expect(item.Price).To(BeNil())
		})
	})

	When("the price uses thousands separators", func() {
		BeforeEach(func() {
			line = "ABC123 Desk 1 $1,299.00"
		})

		It("should drop the separators", func() {
			Expect(item.Price).To(Equal(price(1299)))
		})
	})

	When("the quantity is 1000 or more", func() {
		BeforeEach(func() {
			line = "PROD1 25000"
		})

		It("should not yield an item", func() {
			Expect(ok).To(BeFalse())
		})
	})

	When("the quantity is zero", func() {
		BeforeEach(func() {
			line = "ABC123 0"
		})

		It("should not yield an item", func() {
			Expect(ok).To(BeFalse())
		})
	})

	When("the only candidate SKU is a plain word", func() {
		BeforeEach(func() {
			line = "5 units"
		})

		It("should not yield an item", func() {
			Expect(ok).To(BeFalse())
		})
	})

	When("the line has no item structure", func() {
		BeforeEach(func() {
			line = "Thank you for shopping"
		})

		It("should not yield an item", func() {
			Expect(ok).To(BeFalse())
		})
	})
})

var _ = Describe("looksLikeCode", func() {
	DescribeTable("classifying candidates",
		func(s string, expected bool) {
			Expect(looksLikeCode(s)).To(Equal(expected))
		},
		Entry("letters and digits", "ABC123", true),
		Entry("with a hyphen", "AB-9", true),
		Entry("letters only", "units", false),
		Entry("digits only", "25000", false),
		Entry("too short", "A1", false),
	)
})

var _ = Describe("parsePrice", func() {
	It("should read plain decimals", func() {
		Expect(parsePrice("45.99")).To(Equal(price(45.99)))
	})

	It("should read the leading number when there are several dots", func() {
		Expect(parsePrice("1.2.3")).To(Equal(price(1.2)))
	})

	It("should return nil when no digits remain", func() {
		Expect(parsePrice(",.")).To(BeNil())
	})
})
