package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/warren/pkg/worker"
)

// newTestPool creates a pool with the given sizes and a development logger.
// Callers should "wp.Close()" when done.
func newTestPool(workers, queue uint) *worker.Pool {
	logger, _ := zap.NewDevelopment()

	wp, err := worker.NewPool(&worker.Config{
		NumWorkers: workers,
		QueueSize:  queue,
		Logger:     logger,
	})
	Expect(err).NotTo(HaveOccurred())

	return wp
}

var _ = Describe("Worker Pool", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("NewPool", func() {
		It("applies defaults for zero sizes", func() {
			c := &worker.Config{}
			wp, err := worker.NewPool(c)
			Expect(err).NotTo(HaveOccurred())
			defer wp.Close()

			Expect(c.NumWorkers).To(Equal(uint(2)))
			Expect(c.QueueSize).To(Equal(uint(16)))
		})
	})

	Describe("Submit", func() {
		It("runs the task and returns its result", func() {
			wp := newTestPool(1, 1)
			defer wp.Close()

			ran := false
			err := wp.Submit(ctx, "ok", func(context.Context) error {
				ran = true
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(ran).To(BeTrue())
		})

		It("returns the task error", func() {
			wp := newTestPool(1, 1)
			defer wp.Close()

			boom := errors.New("boom")
			err := wp.Submit(ctx, "fail", func(context.Context) error { return boom })
			Expect(err).To(MatchError(boom))
		})

		It("rejects work once the queue is full", func() {
			wp := newTestPool(1, 1)
			defer wp.Close()

			release := make(chan struct{})
			started := make(chan struct{})

			// Occupy the single worker.
			go func() {
				defer GinkgoRecover()
				_ = wp.Submit(ctx, "blocker", func(context.Context) error {
					close(started)
					<-release
					return nil
				})
			}()
			Eventually(started).Should(BeClosed())

			// Fill the single queue slot.
			go func() {
				defer GinkgoRecover()
				_ = wp.Submit(ctx, "queued", func(context.Context) error { return nil })
			}()
			Eventually(wp.Pending).Should(Equal(1))

			err := wp.Submit(ctx, "overflow", func(context.Context) error { return nil })
			Expect(err).To(MatchError(worker.ErrQueueFull))

			close(release)
		})

		It("stops waiting when the caller's context expires", func() {
			wp := newTestPool(1, 1)
			defer wp.Close()

			release := make(chan struct{})
			timeout, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()

			err := wp.Submit(timeout, "slow", func(context.Context) error {
				<-release
				return nil
			})
			Expect(err).To(MatchError(context.DeadlineExceeded))
			close(release)
		})

		It("skips tasks whose submitter already gave up", func() {
			wp := newTestPool(1, 1)
			defer wp.Close()

			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			var ran atomic.Bool
			err := wp.Submit(cancelled, "abandoned", func(context.Context) error {
				ran.Store(true)
				return nil
			})
			Expect(err).To(MatchError(context.Canceled))

			// Drain the queue so the worker has seen the job.
			Expect(wp.Submit(ctx, "after", func(context.Context) error { return nil })).To(Succeed())
			Expect(ran.Load()).To(BeFalse())
		})

		It("returns ErrClosed after Close", func() {
			wp := newTestPool(1, 1)
			wp.Close()

			err := wp.Submit(ctx, "late", func(context.Context) error { return nil })
			Expect(err).To(MatchError(worker.ErrClosed))
		})
	})

	Describe("Close", func() {
		It("drains queued work and is safe to call twice", func() {
			wp := newTestPool(2, 4)

			var count atomic.Int32
			for range 4 {
				Expect(wp.Submit(ctx, "count", func(context.Context) error {
					count.Add(1)
					return nil
				})).To(Succeed())
			}

			wp.Close()
			wp.Close()
			Expect(count.Load()).To(Equal(int32(4)))
		})
	})
})
