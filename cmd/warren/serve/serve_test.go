package servecmder

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/papercomputeco/warren/pkg/catalog"
	"github.com/papercomputeco/warren/pkg/eventstream"
	"github.com/papercomputeco/warren/pkg/eventstream/kafka"
	"github.com/papercomputeco/warren/pkg/eventstream/nop"
	"github.com/papercomputeco/warren/pkg/metrics"
	"github.com/papercomputeco/warren/pkg/storage/inmemory"
	"github.com/papercomputeco/warren/pkg/worker"
)

var _ = Describe("newPublisher", func() {
	It("defaults to the nop publisher", func() {
		p, err := newPublisher("", nil, "", zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&nop.Publisher{}))

		p, err = newPublisher("nop", nil, "", zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&nop.Publisher{}))
	})

	It("creates a kafka publisher", func() {
		p, err := newPublisher("kafka", []string{"localhost:9092"}, "warren.test", zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&kafka.Publisher{}))
		Expect(p.Close()).To(Succeed())
	})

	It("requires brokers for kafka", func() {
		_, err := newPublisher("kafka", nil, "", zap.NewNop())
		Expect(err).To(HaveOccurred())
	})

	It("rejects unknown providers", func() {
		_, err := newPublisher("rabbitmq", nil, "", zap.NewNop())
		Expect(err).To(MatchError(eventstream.ErrUnknownProvider))
	})
})

// closeCounter is a publisher that only counts Close calls.
type closeCounter struct {
	closed int
}

func (p *closeCounter) Publish(context.Context, *eventstream.CatalogEvent) error { return nil }

func (p *closeCounter) Close() error {
	p.closed++
	return nil
}

var _ = Describe("newCatalog", func() {
	It("releases the pool and publisher when the catalog cannot be built", func() {
		pool, err := worker.NewPool(&worker.Config{NumWorkers: 1, QueueSize: 1})
		Expect(err).NotTo(HaveOccurred())
		pub := &closeCounter{}

		_, err = newCatalog(&catalog.Config{
			Pool:      pool,
			Publisher: pub,
			Logger:    zap.NewNop(),
		})
		Expect(err).To(HaveOccurred())
		Expect(pub.closed).To(Equal(1))

		err = pool.Submit(context.Background(), "after-close", func(context.Context) error { return nil })
		Expect(err).To(MatchError(worker.ErrClosed))
	})

	It("keeps the publisher open on success", func() {
		driver := inmemory.NewDriver()
		pub := &closeCounter{}

		svc, err := newCatalog(&catalog.Config{
			Store:        driver,
			Similarities: inmemory.NewSimilarityGraph(driver),
			Publisher:    pub,
			Metrics:      metrics.NewWithRegistry(prometheus.NewRegistry()),
			Logger:       zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(pub.closed).To(BeZero())

		Expect(svc.Close()).To(Succeed())
		Expect(pub.closed).To(Equal(1))
	})
})

var _ = Describe("NewServeCmd", func() {
	It("registers the shared flags", func() {
		cmd := NewServeCmd()
		for _, name := range []string{"listen", "analysis-timeout", "workers", "queue-size", "events-provider", "events-brokers", "events-topic", "log-file"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})

	It("resolves settings from config.toml and flags", func() {
		dir := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`version = 0

[api]
listen = ":9999"

[analysis]
workers = 7
`), 0o644)).To(Succeed())

		cmder := &serveCommander{}
		cmd := newServeCmd(cmder)
		cmd.Flags().String("config-dir", "", "")
		Expect(cmd.Flags().Set("config-dir", dir)).To(Succeed())
		Expect(cmd.Flags().Set("queue-size", "3")).To(Succeed())

		Expect(cmd.PreRunE(cmd, nil)).To(Succeed())
		Expect(cmder.listen).To(Equal(":9999"))
		Expect(cmder.workers).To(Equal(uint(7)))
		Expect(cmder.queueSize).To(Equal(uint(3)))
		Expect(cmder.analysisTimeout).To(Equal("10s"))
		Expect(cmder.eventsProvider).To(Equal("nop"))
	})
})
