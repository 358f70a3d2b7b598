package mcp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/papercomputeco/warren/api/mcp"
	"github.com/papercomputeco/warren/pkg/catalog"
	warrenlogger "github.com/papercomputeco/warren/pkg/logger"
	"github.com/papercomputeco/warren/pkg/metrics"
	"github.com/papercomputeco/warren/pkg/storage/inmemory"
)

var _ = Describe("MCP Server", func() {
	var (
		server *mcp.Server
		svc    *catalog.Service
	)

	BeforeEach(func() {
		driver := inmemory.NewDriver()

		var err error
		svc, err = catalog.NewService(&catalog.Config{
			Store:        driver,
			Similarities: inmemory.NewSimilarityGraph(driver),
			Metrics:      metrics.NewWithRegistry(prometheus.NewRegistry()),
			Logger:       warrenlogger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		server, err = mcp.NewServer(mcp.Config{
			Catalog: svc,
			Logger:  warrenlogger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(svc.Close()).To(Succeed())
	})

	Describe("NewServer", func() {
		It("returns an error when the catalog is nil", func() {
			_, err := mcp.NewServer(mcp.Config{
				Logger: warrenlogger.Nop(),
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("catalog service is required"))
		})

		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{
				Catalog: svc,
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("logger is required"))
		})

		It("creates an empty server when noop", func() {
			noop, err := mcp.NewServer(mcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(noop.Handler()).NotTo(BeNil())
		})

		It("creates a server with valid config", func() {
			Expect(server).NotTo(BeNil())
		})

		It("returns an HTTP handler", func() {
			handler := server.Handler()
			Expect(handler).NotTo(BeNil())
		})
	})
})
