package tagging

import (
	"math/rand"

	"go.uber.org/mock/gomock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func describeSet(name string, factory SetFactory) {
	Describe(name, func() {
		It("should fill up without evicting", func() {
			set := factory(4)

			for tag := uint64(0); tag < 4; tag++ {
				Expect(set.Access(tag)).To(Equal(Outcome{}))
			}

			Expect(set.Len()).To(Equal(4))
			Expect(set.Tags()).To(Equal([]uint64{0, 1, 2, 3}))
		})

		It("should evict the least recently used tag when full", func() {
			set := factory(4)
			for tag := uint64(10); tag < 14; tag++ {
				set.Access(tag)
			}

			outcome := set.Access(99)

			Expect(outcome).To(Equal(Outcome{Evicted: true, EvictedTag: 10}))
			Expect(set.Len()).To(Equal(4))
			Expect(set.Lookup(10)).To(BeFalse())
			Expect(set.Tags()).To(Equal([]uint64{11, 12, 13, 99}))
		})

		It("should promote a tag on hit", func() {
			set := factory(3)
			set.Access(1)
			set.Access(2)
			set.Access(3)

			Expect(set.Access(1)).To(Equal(Outcome{Hit: true}))
			Expect(set.Tags()).To(Equal([]uint64{2, 3, 1}))

			outcome := set.Access(4)
			Expect(outcome.EvictedTag).To(Equal(uint64(2)))
		})

		It("should count one miss for repeated accesses", func() {
			set := factory(2)

			Expect(set.Access(7).Hit).To(BeFalse())
			for i := 0; i < 9; i++ {
				Expect(set.Access(7)).To(Equal(Outcome{Hit: true}))
			}

			Expect(set.Len()).To(Equal(1))
		})

		It("should work with a single way", func() {
			set := factory(1)

			Expect(set.Access(1)).To(Equal(Outcome{}))
			Expect(set.Access(2)).To(Equal(Outcome{Evicted: true, EvictedTag: 1}))
			Expect(set.Access(2)).To(Equal(Outcome{Hit: true}))
			Expect(set.Access(1)).To(Equal(Outcome{Evicted: true, EvictedTag: 2}))
		})

		It("should not reorder on lookup", func() {
			set := factory(2)
			set.Access(1)
			set.Access(2)

			Expect(set.Lookup(1)).To(BeTrue())

			lru, ok := set.LeastRecent()
			Expect(ok).To(BeTrue())
			Expect(lru).To(Equal(uint64(1)))
		})

		It("should report no least recent tag when empty", func() {
			set := factory(2)

			_, ok := set.LeastRecent()

			Expect(ok).To(BeFalse())
			Expect(set.Tags()).To(BeEmpty())
			Expect(set.Capacity()).To(Equal(2))
		})

		It("should panic on a non-positive capacity", func() {
			Expect(func() { factory(0) }).To(Panic())
		})
	})
}

var _ = Describe("Set", func() {
	describeSet("linked", setFactories[SetImplLinked])
	describeSet("simplelru", setFactories[SetImplSimpleLRU])

	It("should behave the same across implementations", func() {
		r := rand.New(rand.NewSource(7))

		for _, capacity := range []int{1, 2, 3, 8, 16} {
			linked := NewSet(capacity, NewLRUVictimFinder())
			simple := NewSimpleLRUSet(capacity)

			for i := 0; i < 5000; i++ {
				tag := uint64(r.Intn(3 * capacity))

				Expect(linked.Access(tag)).To(Equal(simple.Access(tag)))
				Expect(linked.Tags()).To(Equal(simple.Tags()))
			}
		}
	})

	It("should reuse freed slots", func() {
		set := NewSet(2, NewLRUVictimFinder()).(*linkedSet)

		for tag := uint64(0); tag < 100; tag++ {
			set.Access(tag)
		}

		Expect(set.nodes).To(HaveLen(2))
		Expect(set.Tags()).To(Equal([]uint64{98, 99}))
	})

	Context("with a custom victim finder", func() {
		var (
			mockCtrl     *gomock.Controller
			victimFinder *MockVictimFinder
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			victimFinder = NewMockVictimFinder(mockCtrl)
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should evict the block chosen by the victim finder", func() {
			set := NewSet(2, victimFinder)
			set.Access(1)
			set.Access(2)

			victimFinder.EXPECT().FindVictim(set).Return(uint64(2), true)

			outcome := set.Access(3)

			Expect(outcome).To(Equal(Outcome{Evicted: true, EvictedTag: 2}))
			Expect(set.Tags()).To(Equal([]uint64{1, 3}))
		})

		It("should not consult the victim finder on hit", func() {
			set := NewSet(1, victimFinder)
			set.Access(1)

			Expect(set.Access(1).Hit).To(BeTrue())
		})

		It("should panic if no victim can be found", func() {
			set := NewSet(1, victimFinder)
			set.Access(1)

			victimFinder.EXPECT().FindVictim(set).Return(uint64(0), false)

			Expect(func() { set.Access(2) }).To(Panic())
		})
	})

	It("should look up set implementations by name", func() {
		f, err := SetFactoryByName("")
		Expect(err).NotTo(HaveOccurred())
		Expect(f(1)).To(BeAssignableToTypeOf(&linkedSet{}))

		f, err = SetFactoryByName(SetImplSimpleLRU)
		Expect(err).NotTo(HaveOccurred())
		Expect(f(1)).To(BeAssignableToTypeOf(&simpleLRUSet{}))

		_, err = SetFactoryByName("random")
		Expect(err).To(MatchError(ContainSubstring("unknown set implementation")))
		Expect(SetImplNames()).To(Equal([]string{"linked", "simplelru"}))
	})
})
