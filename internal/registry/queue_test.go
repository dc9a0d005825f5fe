package registry_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/qbusio/qbus/internal/registry"
)

var _ = Describe("Queue", func() {
	It("keeps occupancy within [0, capacity]", func() {
		q := registry.NewQueue("q", 2)
		Expect(q.Push([]byte("a"))).To(BeTrue())
		Expect(q.Push([]byte("b"))).To(BeTrue())
		Expect(q.Push([]byte("c"))).To(BeFalse()) // full
		Expect(q.Len()).To(Equal(2))
	})

	It("returns Empty without suspending when timeout is zero", func() {
		q := registry.NewQueue("q", 4)
		v, ok := q.Pop()
		Expect(ok).To(BeFalse())
		Expect(v).To(BeNil())
	})

	It("preserves per-producer FIFO order of successful pushes", func() {
		q := registry.NewQueue("q", 8)
		Expect(q.Push([]byte("x1"))).To(BeTrue())
		Expect(q.Push([]byte("x2"))).To(BeTrue())

		v1, ok1 := q.Pop()
		v2, ok2 := q.Pop()
		Expect(ok1).To(BeTrue())
		Expect(ok2).To(BeTrue())
		Expect(string(v1)).To(Equal("x1"))
		Expect(string(v2)).To(Equal("x2"))
	})

	It("wakes a blocked PopWait as soon as a push lands, not at timeout", func() {
		q := registry.NewQueue("q", 1)

		var wg sync.WaitGroup
		wg.Add(1)
		start := time.Now()
		var got []byte
		var gotOK bool
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()
			got, gotOK = q.PopWait(ctx)
		}()

		time.Sleep(100 * time.Millisecond)
		Expect(q.Push([]byte("z"))).To(BeTrue())
		wg.Wait()

		Expect(gotOK).To(BeTrue())
		Expect(string(got)).To(Equal("z"))
		Expect(time.Since(start)).To(BeNumerically("<", 400*time.Millisecond))
	})

	It("returns Empty after the timeout elapses when nothing is produced", func() {
		q := registry.NewQueue("q", 1)
		ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
		defer cancel()
		start := time.Now()
		_, ok := q.PopWait(ctx)
		Expect(ok).To(BeFalse())
		Expect(time.Since(start)).To(BeNumerically(">=", 150*time.Millisecond))
	})
})
