package registry_test

import (
	"sync"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/qbusio/qbus/internal/registry"
)

var _ = Describe("Registry", func() {
	It("CreateTopic is idempotent: second call is a no-op that returns the same topic", func() {
		r := registry.New()
		t1, created1 := r.CreateTopic("t1")
		t2, created2 := r.CreateTopic("t1")
		Expect(created1).To(BeTrue())
		Expect(created2).To(BeFalse())
		Expect(t1).To(BeIdenticalTo(t2))
	})

	It("CreateQueue keeps the original capacity on a repeat call", func() {
		r := registry.New()
		q1, _ := r.CreateQueue("q1", 8)
		q2, created := r.CreateQueue("q1", 999)
		Expect(created).To(BeFalse())
		Expect(q2).To(BeIdenticalTo(q1))
		Expect(q2.Capacity()).To(Equal(8))
	})

	It("get-or-create never produces two distinct topics under one name, even under a race", func() {
		r := registry.New()
		const n = 64
		var wg sync.WaitGroup
		topics := make([]*registry.Topic, n)
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func(i int) {
				defer wg.Done()
				t, _ := r.CreateTopic("race")
				topics[i] = t
			}(i)
		}
		wg.Wait()
		for i := 1; i < n; i++ {
			Expect(topics[i]).To(BeIdenticalTo(topics[0]))
		}
	})

	It("BindQueue twice leaves the bound set equal to applying it once", func() {
		r := registry.New()
		topic, _ := r.CreateTopic("t1")
		topic.Bind("q1")
		topic.Bind("q1")
		Expect(topic.BoundQueues()).To(Equal([]string{"q1"}))
	})

	It("makes get_* succeed after a create returning Ok or already-exists", func() {
		r := registry.New()
		r.CreateTopic("t1")
		_, ok := r.GetTopic("t1")
		Expect(ok).To(BeTrue())

		r.CreateQueue("q1", 4)
		_, ok = r.GetQueue("q1")
		Expect(ok).To(BeTrue())
	})
})
