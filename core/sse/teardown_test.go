package sse

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("newTeardown", func() {
	It("runs the cleanup exactly once under concurrent callers", func() {
		cl := NewClient("c1")
		done := make(chan struct{})
		calls := 0

		teardown := newTeardown(func() {
			calls++
			close(cl.Chan())
			close(done)
		})

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				Expect(teardown).NotTo(Panic())
			}()
		}
		wg.Wait()

		Expect(calls).To(Equal(1))
		Expect(cl.Chan()).To(BeClosed())
		Expect(done).To(BeClosed())
	})
})
