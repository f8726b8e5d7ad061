package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type countingHook struct {
	count int
}

func (h *countingHook) Func(_ HookCtx) {
	h.count++
}

var _ = Describe("HookableBase", func() {
	var base *HookableBase

	BeforeEach(func() {
		base = &HookableBase{}
	})

	It("should register and invoke hooks", func() {
		h1 := &countingHook{}
		h2 := &countingHook{}

		base.AcceptHook(h1)
		base.AcceptHook(h2)
		base.InvokeHook(HookCtx{Pos: HookPosAccess})

		Expect(base.NumHooks()).To(Equal(2))
		Expect(base.Hooks()).To(ConsistOf(h1, h2))
		Expect(h1.count).To(Equal(1))
		Expect(h2.count).To(Equal(1))
	})

	It("should refuse duplicated hooks", func() {
		h := &countingHook{}
		base.AcceptHook(h)

		Expect(func() { base.AcceptHook(h) }).To(Panic())
	})
})

var _ = Describe("AccessItem", func() {
	It("should summarize the outcome", func() {
		Expect(AccessItem{Hit: true}.Result()).To(Equal("hit"))
		Expect(AccessItem{}.Result()).To(Equal("miss"))
		Expect(AccessItem{Evicted: true}.Result()).To(Equal("miss eviction"))
	})

	It("should print like a verbose trace line", func() {
		item := AccessItem{
			Op:         "L",
			Address:    0x10,
			Evicted:    true,
			EvictedTag: 0x3,
		}

		Expect(item.String()).To(Equal("L 10 miss eviction (tag 0x3)"))
	})
})
