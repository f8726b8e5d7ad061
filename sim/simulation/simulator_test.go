package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/sarchlab/csim/mem/trace"
	"github.com/sarchlab/csim/sim/hooking"
	"go.uber.org/mock/gomock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const scenarioTrace = "L 0,1\nL 1,1\nL 2,1\nS 0,1\nM 3,1\n"

func scenarioBuilder() Builder {
	return MakeBuilder().
		WithSetBits(1).
		WithLinesPerSet(2).
		WithOffsetBits(0)
}

// randomTrace returns a trace and the number of elementary accesses it
// contains.
func randomTrace(seed int64, lines int, maxAddr uint64) (string, uint64) {
	rng := rand.New(rand.NewSource(seed))
	ops := []string{"L", "S", "M", "I"}

	sb := strings.Builder{}
	accesses := uint64(0)

	for i := 0; i < lines; i++ {
		op := ops[rng.Intn(len(ops))]
		addr := rng.Uint64() % maxAddr

		switch op {
		case "L", "S":
			accesses++
			fmt.Fprintf(&sb, " %s %x,%d\n", op, addr, 1+rng.Intn(8))
		case "M":
			accesses += 2
			fmt.Fprintf(&sb, " %s %x,%d\n", op, addr, 1+rng.Intn(8))
		default:
			fmt.Fprintf(&sb, "%s %08x,%d\n", op, addr, 1+rng.Intn(8))
		}
	}

	return sb.String(), accesses
}

var _ = Describe("Simulator", func() {
	var (
		mockCtrl *gomock.Controller
		ctx      context.Context
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		ctx = context.Background()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should count hits, misses and evictions", func() {
		s, err := scenarioBuilder().Build()
		Expect(err).ToNot(HaveOccurred())

		counters, err := s.Run(ctx, strings.NewReader(scenarioTrace))

		Expect(err).ToNot(HaveOccurred())
		Expect(counters.String()).To(Equal("hits:2 misses:4 evictions:0"))
		Expect(s.Counters()).To(Equal(counters))
	})

	It("should keep the sets in recency order", func() {
		s, _ := scenarioBuilder().Build()
		_, err := s.Run(ctx, strings.NewReader(scenarioTrace))
		Expect(err).ToNot(HaveOccurred())

		set0, err := s.SetContents(0)
		Expect(err).ToNot(HaveOccurred())
		Expect(set0).To(Equal([]uint64{1, 0}))

		set1, err := s.SetContents(1)
		Expect(err).ToNot(HaveOccurred())
		Expect(set1).To(Equal([]uint64{0, 1}))

		_, err = s.SetContents(2)
		Expect(err).To(MatchError(ErrSetOutOfRange))
	})

	It("should evict the least recently used line", func() {
		s, _ := MakeBuilder().
			WithSetBits(1).
			WithLinesPerSet(2).
			WithOffsetBits(4).
			Build()

		// 0x00, 0x20 and 0x40 share set 0 with tags 0, 1 and 2.
		counters, err := s.Run(ctx, strings.NewReader(
			"L 00,4\nL 20,4\nL 04,4\nL 40,4\nL 00,4\nL 20,4\n"))

		Expect(err).ToNot(HaveOccurred())
		Expect(counters).To(Equal(Counters{Hits: 2, Misses: 4, Evictions: 2}))

		set0, _ := s.SetContents(0)
		Expect(set0).To(Equal([]uint64{0, 1}))
	})

	It("should count one miss and then hits for a repeated address", func() {
		s, _ := MakeBuilder().WithSetBits(4).WithLinesPerSet(1).Build()

		counters, err := s.Run(ctx,
			strings.NewReader(strings.Repeat("L 7ff0,8\n", 10)))

		Expect(err).ToNot(HaveOccurred())
		Expect(counters).To(Equal(Counters{Hits: 9, Misses: 1}))
	})

	It("should conserve the number of accesses", func() {
		text, accesses := randomTrace(1, 2000, 1<<16)
		s, _ := MakeBuilder().
			WithSetBits(3).
			WithLinesPerSet(4).
			WithOffsetBits(5).
			Build()

		counters, err := s.Run(ctx, strings.NewReader(text))

		Expect(err).ToNot(HaveOccurred())
		Expect(counters.Accesses()).To(Equal(accesses))
		Expect(counters.Evictions).To(BeNumerically("<=", counters.Misses))
	})

	It("should produce the same results with both set implementations", func() {
		text, _ := randomTrace(7, 3000, 1<<12)
		b := MakeBuilder().WithSetBits(2).WithLinesPerSet(3).WithOffsetBits(3)

		linked, _ := b.Build()
		simple, _ := b.WithSetImpl("simplelru").Build()

		c1, err1 := linked.Run(ctx, strings.NewReader(text))
		c2, err2 := simple.Run(ctx, strings.NewReader(text))

		Expect(err1).ToNot(HaveOccurred())
		Expect(err2).ToNot(HaveOccurred())
		Expect(c1).To(Equal(c2))
	})

	It("should start every run with an empty cache", func() {
		s, _ := scenarioBuilder().Build()

		first, _ := s.Run(ctx, strings.NewReader(scenarioTrace))
		second, err := s.Run(ctx, strings.NewReader(scenarioTrace))

		Expect(err).ToNot(HaveOccurred())
		Expect(second).To(Equal(first))
	})

	It("should abort on a malformed line without counting", func() {
		s, _ := scenarioBuilder().Build()

		counters, err := s.Run(ctx, strings.NewReader("L 0,1\nL zz,1\n"))

		var pe *trace.ParseError
		Expect(err).To(HaveOccurred())
		Expect(err).To(BeAssignableToTypeOf(pe))
		Expect(err).To(MatchError(trace.ErrBadAddress))
		Expect(counters).To(Equal(Counters{}))
		Expect(s.Counters()).To(Equal(Counters{}))

		set0, _ := s.SetContents(0)
		Expect(set0).To(BeEmpty())
	})

	It("should accept a last line without newline by default", func() {
		s, _ := scenarioBuilder().Build()

		counters, err := s.Run(ctx, strings.NewReader("L 0,1\nL 0,1"))

		Expect(err).ToNot(HaveOccurred())
		Expect(counters).To(Equal(Counters{Hits: 1, Misses: 1}))
	})

	It("should reject a last line without newline in strict mode", func() {
		s, _ := scenarioBuilder().WithStrictNewline().Build()

		_, err := s.Run(ctx, strings.NewReader("L 0,1\nL 0,1"))

		Expect(err).To(MatchError(trace.ErrMissingNewline))
	})

	It("should reject lines longer than the limit", func() {
		s, _ := scenarioBuilder().WithMaxLineLength(8).Build()

		_, err := s.Run(ctx, strings.NewReader("L 0,1\nL 0000000000,1\n"))

		Expect(err).To(MatchError(trace.ErrLineTooLong))
	})

	It("should stop when the context is cancelled", func() {
		s, _ := scenarioBuilder().Build()
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := s.Run(cancelled, strings.NewReader(scenarioTrace))

		Expect(err).To(MatchError(context.Canceled))
	})

	It("should invoke hooks for every access", func() {
		s, _ := scenarioBuilder().Build()
		hook := NewMockHook(mockCtrl)
		s.AcceptHook(hook)

		items := []hooking.AccessItem{}
		hook.EXPECT().
			Func(gomock.Any()).
			Do(func(ctx hooking.HookCtx) {
				Expect(ctx.Pos).To(BeIdenticalTo(hooking.HookPosAccess))
				Expect(ctx.Domain).To(BeIdenticalTo(s))
				items = append(items, ctx.Item.(hooking.AccessItem))
			}).
			Times(6)

		_, err := s.Run(ctx, strings.NewReader(scenarioTrace))

		Expect(err).ToNot(HaveOccurred())
		Expect(items[0]).To(Equal(hooking.AccessItem{
			Line: 1, Op: "L", Kind: "load", Address: 0, SetID: 0, Tag: 0,
		}))
		Expect(items[4]).To(Equal(hooking.AccessItem{
			Line: 5, Op: "M", Kind: "load", Address: 3, SetID: 1, Tag: 1,
		}))
		Expect(items[5]).To(Equal(hooking.AccessItem{
			Line: 5, Op: "M", Kind: "store", Address: 3, SetID: 1, Tag: 1,
			Hit: true,
		}))
	})

	Context("when reading from a file", func() {
		It("should replay the file", func() {
			path := filepath.Join(GinkgoT().TempDir(), "scenario.trace")
			Expect(os.WriteFile(path, []byte(scenarioTrace), 0o644)).To(Succeed())

			s, _ := scenarioBuilder().Build()
			counters, err := s.RunFile(ctx, path)

			Expect(err).ToNot(HaveOccurred())
			Expect(counters.String()).To(Equal("hits:2 misses:4 evictions:0"))
		})

		It("should report a missing file as a configuration error", func() {
			s, _ := scenarioBuilder().Build()

			_, err := s.RunFile(ctx, filepath.Join(GinkgoT().TempDir(), "none"))

			var ce *ConfigError
			Expect(err).To(BeAssignableToTypeOf(ce))
			Expect(err).To(MatchError(os.ErrNotExist))
		})
	})

	Context("with several workers", func() {
		It("should match the sequential replay", func() {
			text, accesses := randomTrace(3, 5000, 1<<14)
			b := MakeBuilder().WithSetBits(4).WithLinesPerSet(2).WithOffsetBits(2)

			sequential, _ := b.Build()
			parallel, _ := b.WithWorkers(4).Build()

			seqStats := hooking.NewSetStatsTracer()
			parStats := hooking.NewSetStatsTracer()
			sequential.AcceptHook(seqStats)
			parallel.AcceptHook(parStats)

			c1, err := sequential.Run(ctx, strings.NewReader(text))
			Expect(err).ToNot(HaveOccurred())

			c2, err := parallel.Run(ctx, strings.NewReader(text))
			Expect(err).ToNot(HaveOccurred())

			Expect(c2).To(Equal(c1))
			Expect(c2.Accesses()).To(Equal(accesses))
			Expect(parStats.Stats()).To(Equal(seqStats.Stats()))

			for setID := uint64(0); setID < 16; setID++ {
				t1, _ := sequential.SetContents(setID)
				t2, _ := parallel.SetContents(setID)
				Expect(t2).To(Equal(t1), "set %d", setID)
			}
		})

		It("should abort on a malformed line", func() {
			text, _ := randomTrace(5, 3000, 1<<10)
			s, _ := scenarioBuilder().WithWorkers(2).Build()

			counters, err := s.Run(ctx, strings.NewReader(text+"L\n"+text))

			Expect(err).To(MatchError(trace.ErrMissingAddress))
			Expect(counters).To(Equal(Counters{}))
		})
	})
})
