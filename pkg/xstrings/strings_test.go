package xstrings_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/taskhive/taskhive/pkg/xstrings"
)

var _ = Describe("UniqueSlice", func() {
	It("removes duplicates, keeping the first occurrence", func() {
		result := xstrings.UniqueSlice([]string{"a", "b", "a", "c", "b"})
		Expect(result).To(Equal([]string{"a", "b", "c"}))
	})

	It("handles an empty slice", func() {
		Expect(xstrings.UniqueSlice([]string{})).To(BeEmpty())
	})

	It("works for integer slices", func() {
		Expect(xstrings.UniqueSlice([]int{3, 1, 3, 2, 1})).To(Equal([]int{3, 1, 2}))
	})
})

var _ = Describe("Tokens", func() {
	It("splits on whitespace and lowercases", func() {
		Expect(xstrings.Tokens("Explain Quantum  Entanglement")).To(Equal(
			[]string{"explain", "quantum", "entanglement"},
		))
	})

	It("returns nothing for blank input", func() {
		Expect(xstrings.Tokens("   ")).To(BeEmpty())
	})
})

var _ = Describe("Truncate", func() {
	It("leaves short strings untouched", func() {
		Expect(xstrings.Truncate("short", 10)).To(Equal("short"))
	})

	It("cuts long strings to the rune limit", func() {
		Expect(xstrings.Truncate("abcdefgh", 3)).To(Equal("abc"))
	})
})
