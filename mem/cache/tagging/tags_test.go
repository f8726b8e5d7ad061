package tagging

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Tags", func() {
	var (
		tags *tagArrayImpl
	)

	BeforeEach(func() {
		tags = NewTagArray(4, 2, setFactories[SetImplLinked]).(*tagArrayImpl)
	})

	It("should have the configured geometry", func() {
		Expect(tags.NumSets()).To(Equal(uint64(4)))
		Expect(tags.NumWays()).To(Equal(2))
		Expect(tags.sets).To(HaveLen(4))
	})

	It("should create sets on first touch", func() {
		Expect(tags.sets[1]).To(BeNil())

		set := tags.GetSet(1)

		Expect(set).NotTo(BeNil())
		Expect(set.Capacity()).To(Equal(2))
		Expect(tags.GetSet(1)).To(BeIdenticalTo(set))
	})

	It("should lookup", func() {
		Expect(tags.Lookup(2, 0x100)).To(BeFalse())

		tags.Access(2, 0x100)

		Expect(tags.Lookup(2, 0x100)).To(BeTrue())
		Expect(tags.Lookup(3, 0x100)).To(BeFalse())
	})

	It("should keep sets independent", func() {
		Expect(tags.Access(0, 1).Hit).To(BeFalse())
		Expect(tags.Access(0, 2).Hit).To(BeFalse())
		Expect(tags.Access(1, 3).Hit).To(BeFalse())
		Expect(tags.Access(1, 4).Hit).To(BeFalse())
		Expect(tags.Access(1, 5)).To(Equal(Outcome{Evicted: true, EvictedTag: 3}))

		Expect(tags.GetSet(0).Tags()).To(Equal([]uint64{1, 2}))
		Expect(tags.Access(0, 1).Hit).To(BeTrue())
	})

	It("should drop every block on reset", func() {
		tags.Access(0, 1)
		tags.Access(3, 1)

		tags.Reset()

		Expect(tags.Lookup(0, 1)).To(BeFalse())
		Expect(tags.Lookup(3, 1)).To(BeFalse())
		Expect(tags.NumSets()).To(Equal(uint64(4)))
	})

	It("should refuse an empty geometry", func() {
		Expect(func() {
			NewTagArray(0, 1, setFactories[SetImplLinked])
		}).To(Panic())
		Expect(func() {
			NewTagArray(1, 0, setFactories[SetImplLinked])
		}).To(Panic())
	})
})
