package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/papercomputeco/warren/pkg/catalog"
	"github.com/papercomputeco/warren/pkg/category"
	"github.com/papercomputeco/warren/pkg/metrics"
	"github.com/papercomputeco/warren/pkg/rabbithole"
	"github.com/papercomputeco/warren/pkg/storage/inmemory"
	"github.com/papercomputeco/warren/pkg/worker"
)

// newTestServer wires a Server over a fresh in-memory catalog.
func newTestServer(config Config, pool *worker.Pool) (*Server, *catalog.Service) {
	driver := inmemory.NewDriver()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	svc, err := catalog.NewService(&catalog.Config{
		Store:        driver,
		Similarities: inmemory.NewSimilarityGraph(driver),
		Pool:         pool,
		Metrics:      m,
		Logger:       zap.NewNop(),
	})
	Expect(err).NotTo(HaveOccurred())

	if config.MetricsHandler == nil {
		config.MetricsHandler = m.Handler()
	}

	server, err := NewServer(config, svc, zap.NewNop())
	Expect(err).NotTo(HaveOccurred())
	return server, svc
}

// do sends a request with an optional JSON body and returns the status and
// the raw response body.
func do(server *Server, method, path string, body any) (int, []byte) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := server.app.Test(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp.StatusCode, raw
}

func decode[T any](raw []byte) T {
	var out T
	Expect(json.Unmarshal(raw, &out)).To(Succeed())
	return out
}

func createCategory(server *Server, name string, parent *string) {
	status, raw := do(server, http.MethodPost, "/categories", CategoryRequest{
		Name:        name,
		Description: category.StringPtr(name + " description"),
		ParentName:  parent,
	})
	Expect(status).To(Equal(http.StatusCreated), string(raw))
}

func addSimilarity(server *Server, a, b string) {
	status, raw := do(server, http.MethodPost, "/similarities", SimilarityRequest{
		CategoryName1: a,
		CategoryName2: b,
	})
	Expect(status).To(Equal(http.StatusCreated), string(raw))
}

func categoryNames(raw []byte) []string {
	cs := decode[[]*category.Category](raw)
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Name)
	}
	return out
}

var _ = Describe("Server", func() {
	var (
		server *Server
		svc    *catalog.Service
	)

	BeforeEach(func() {
		server, svc = newTestServer(Config{ListenAddr: ":0"}, nil)
	})

	AfterEach(func() {
		Expect(svc.Close()).To(Succeed())
	})

	Describe("NewServer", func() {
		It("requires a catalog service", func() {
			_, err := NewServer(Config{}, nil, zap.NewNop())
			Expect(err).To(MatchError("catalog service is required"))
		})

		It("defaults the analysis timeout", func() {
			Expect(server.config.AnalysisTimeout).To(Equal(DefaultAnalysisTimeout))
		})
	})

	Describe("GET /ping", func() {
		It("returns pong", func() {
			status, raw := do(server, http.MethodGet, "/ping", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(decode[string](raw)).To(Equal("pong"))
		})
	})

	Describe("categories", func() {
		BeforeEach(func() {
			createCategory(server, "root", nil)
			createCategory(server, "child1", category.StringPtr("root"))
			createCategory(server, "child2", category.StringPtr("root"))
			createCategory(server, "child1_1", category.StringPtr("child1"))
		})

		It("creates and gets a category", func() {
			status, raw := do(server, http.MethodGet, "/categories/child1", nil)
			Expect(status).To(Equal(http.StatusOK))

			got := decode[category.Category](raw)
			Expect(got.Name).To(Equal("child1"))
			Expect(got.ParentName).To(HaveValue(Equal("root")))
			Expect(got.Description).To(HaveValue(Equal("child1 description")))
		})

		It("unescapes category names in the path", func() {
			createCategory(server, "Rock Music", nil)

			status, raw := do(server, http.MethodGet, "/categories/Rock%20Music", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(decode[category.Category](raw).Name).To(Equal("Rock Music"))
		})

		It("returns 404 for an unknown category", func() {
			status, raw := do(server, http.MethodGet, "/categories/missing", nil)
			Expect(status).To(Equal(http.StatusNotFound))
			Expect(decode[ErrorResponse](raw).Error).To(Equal("category not found"))
		})

		It("rejects a category without a name", func() {
			status, raw := do(server, http.MethodPost, "/categories", map[string]any{"description": "x"})
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(decode[ErrorResponse](raw).Error).To(Equal("name is required"))
		})

		It("rejects a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/categories", bytes.NewBufferString("{"))
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a category under an unknown parent", func() {
			status, raw := do(server, http.MethodPost, "/categories", CategoryRequest{
				Name:       "orphan",
				ParentName: category.StringPtr("missing"),
			})
			Expect(status).To(Equal(http.StatusNotFound))
			Expect(decode[ErrorResponse](raw).Error).To(Equal("parent category not found"))
		})

		It("lists root categories and children in insertion order", func() {
			status, raw := do(server, http.MethodGet, "/categories", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(categoryNames(raw)).To(Equal([]string{"root"}))

			status, raw = do(server, http.MethodGet, "/categories?parent_name=root", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(categoryNames(raw)).To(Equal([]string{"child1", "child2"}))
		})

		It("updates only the description and image", func() {
			status, raw := do(server, http.MethodPut, "/categories/child2", map[string]any{
				"image":       "https://example.com/child2.png",
				"parent_name": "child1",
			})
			Expect(status).To(Equal(http.StatusOK), string(raw))

			got := decode[category.Category](raw)
			Expect(got.Image).To(HaveValue(Equal("https://example.com/child2.png")))
			Expect(got.Description).To(HaveValue(Equal("child2 description")))
			Expect(got.ParentName).To(HaveValue(Equal("root")))
		})

		It("clears a field sent as null and keeps omitted ones", func() {
			status, raw := do(server, http.MethodPut, "/categories/child2", map[string]any{
				"image": "child2.png",
			})
			Expect(status).To(Equal(http.StatusOK), string(raw))

			status, raw = do(server, http.MethodPut, "/categories/child2", map[string]any{
				"description": nil,
			})
			Expect(status).To(Equal(http.StatusOK), string(raw))

			got := decode[category.Category](raw)
			Expect(got.Description).To(BeNil())
			Expect(got.Image).To(HaveValue(Equal("child2.png")))

			_, raw = do(server, http.MethodGet, "/categories/child2", nil)
			Expect(decode[category.Category](raw).Description).To(BeNil())
		})

		It("leaves the category untouched on an empty update", func() {
			status, raw := do(server, http.MethodPut, "/categories/child2", map[string]any{})
			Expect(status).To(Equal(http.StatusOK), string(raw))
			Expect(decode[category.Category](raw).Description).To(HaveValue(Equal("child2 description")))
		})

		It("rejects an update renaming the category", func() {
			status, _ := do(server, http.MethodPut, "/categories/child2", CategoryUpdateRequest{
				Name: category.StringPtr("renamed"),
			})
			Expect(status).To(Equal(http.StatusBadRequest))
		})

		It("moves a category", func() {
			status, raw := do(server, http.MethodPatch, "/categories/child2/move?new_parent_name=child1", nil)
			Expect(status).To(Equal(http.StatusOK), string(raw))
			Expect(decode[category.Category](raw).ParentName).To(HaveValue(Equal("child1")))

			_, raw = do(server, http.MethodGet, "/categories?parent_name=child1", nil)
			Expect(categoryNames(raw)).To(Equal([]string{"child1_1", "child2"}))
		})

		It("moves a category to the root level without a new parent", func() {
			status, raw := do(server, http.MethodPatch, "/categories/child1/move", nil)
			Expect(status).To(Equal(http.StatusOK), string(raw))
			Expect(decode[category.Category](raw).ParentName).To(BeNil())
		})

		It("returns 404 when the new parent is unknown", func() {
			status, raw := do(server, http.MethodPatch, "/categories/child1/move?new_parent_name=missing", nil)
			Expect(status).To(Equal(http.StatusNotFound))
			Expect(decode[ErrorResponse](raw).Error).To(Equal("new parent category not found"))
		})

		It("returns 409 when a move would create a cycle", func() {
			status, _ := do(server, http.MethodPatch, "/categories/root/move?new_parent_name=child1_1", nil)
			Expect(status).To(Equal(http.StatusConflict))
		})

		It("deletes a category and re-parents its children", func() {
			status, raw := do(server, http.MethodDelete, "/categories/child1", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(decode[DeleteResponse](raw)).To(Equal(DeleteResponse{
				Name:       "child1",
				Reparented: []string{"child1_1"},
			}))

			_, raw = do(server, http.MethodGet, "/categories?parent_name=root", nil)
			Expect(categoryNames(raw)).To(Equal([]string{"child2", "child1_1"}))
		})

		It("returns the nested tree", func() {
			status, raw := do(server, http.MethodGet, "/categories/root/tree", nil)
			Expect(status).To(Equal(http.StatusOK))

			root := decode[category.TreeNode](raw)
			Expect(root.Name).To(Equal("root"))
			Expect(root.Children).To(HaveLen(2))
			Expect(root.Children[0].Name).To(Equal("child1"))
			Expect(root.Children[0].Children[0].Name).To(Equal("child1_1"))
			Expect(root.Children[1].Children).To(BeEmpty())
		})

		It("prints the tree outline as text", func() {
			status, raw := do(server, http.MethodGet, "/print_category_tree/child1", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(string(raw)).To(Equal(
				"Name: child1, Description: child1 description, Image: None\n" +
					"    Name: child1_1, Description: child1_1 description, Image: None\n",
			))
		})
	})

	Describe("similarities and analysis", func() {
		BeforeEach(func() {
			createCategory(server, "root", nil)
			for _, name := range []string{"A", "B", "C", "D"} {
				createCategory(server, name, category.StringPtr("root"))
			}
			addSimilarity(server, "A", "B")
			addSimilarity(server, "A", "D")
			addSimilarity(server, "B", "C")
			addSimilarity(server, "B", "D")
		})

		It("returns similar category records", func() {
			status, raw := do(server, http.MethodGet, "/similarities/B", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(categoryNames(raw)).To(Equal([]string{"A", "C", "D"}))
		})

		It("returns 404 when relating an unknown category", func() {
			status, raw := do(server, http.MethodPost, "/similarities", SimilarityRequest{
				CategoryName1: "A",
				CategoryName2: "missing",
			})
			Expect(status).To(Equal(http.StatusNotFound))
			Expect(decode[ErrorResponse](raw).Error).To(Equal("one or both categories not found"))
		})

		It("requires both names", func() {
			status, raw := do(server, http.MethodPost, "/similarities", map[string]string{
				"category_name_1": "A",
			})
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(decode[ErrorResponse](raw).Error).To(Equal("category_name_2 is required"))
		})

		It("removes pairs, including unknown ones", func() {
			status, _ := do(server, http.MethodDelete, "/similarities", SimilarityRequest{
				CategoryName1: "B",
				CategoryName2: "C",
			})
			Expect(status).To(Equal(http.StatusOK))

			status, _ = do(server, http.MethodDelete, "/similarities", SimilarityRequest{
				CategoryName1: "A",
				CategoryName2: "C",
			})
			Expect(status).To(Equal(http.StatusOK))

			_, raw := do(server, http.MethodGet, "/similarities/B", nil)
			Expect(categoryNames(raw)).To(Equal([]string{"A", "D"}))
		})

		It("returns the rabbit hole", func() {
			status, raw := do(server, http.MethodGet, "/rabbit_hole", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(decode[rabbithole.Hole](raw)).To(Equal(rabbithole.Hole{
				Length: 2,
				Paths:  [][]string{{"A", "B", "C"}, {"C", "B", "D"}},
			}))
		})

		It("returns the islands", func() {
			status, raw := do(server, http.MethodGet, "/rabbit_islands", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(decode[IslandsResponse](raw).Islands).To(Equal([][]string{{"A", "B", "C", "D"}}))
		})

		It("returns both analyses", func() {
			status, raw := do(server, http.MethodGet, "/rabbit_hole_and_islands", nil)
			Expect(status).To(Equal(http.StatusOK))

			report := decode[rabbithole.Report](raw)
			Expect(report.RabbitHole.Length).To(Equal(2))
			Expect(report.Islands).To(Equal([][]string{{"A", "B", "C", "D"}}))
		})

		It("drops a deleted category from the analysis", func() {
			status, _ := do(server, http.MethodDelete, "/categories/B", nil)
			Expect(status).To(Equal(http.StatusOK))

			_, raw := do(server, http.MethodGet, "/rabbit_islands", nil)
			Expect(decode[IslandsResponse](raw).Islands).To(Equal([][]string{{"A", "D"}}))
		})

		It("reports stats", func() {
			status, raw := do(server, http.MethodGet, "/stats", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(decode[catalog.Stats](raw)).To(Equal(catalog.Stats{
				Categories:         5,
				SimilarityPairs:    4,
				IslandParticipants: 4,
			}))
		})

		It("serves prometheus metrics", func() {
			status, raw := do(server, http.MethodGet, "/metrics", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(string(raw)).To(ContainSubstring("warren_categories 5"))
		})
	})

	Describe("analysis limits", func() {
		It("returns 504 when the analysis deadline expires", func() {
			timed, timedSvc := newTestServer(Config{AnalysisTimeout: time.Nanosecond}, nil)
			defer func() { Expect(timedSvc.Close()).To(Succeed()) }()

			status, raw := do(timed, http.MethodGet, "/rabbit_hole", nil)
			Expect(status).To(Equal(http.StatusGatewayTimeout))
			Expect(decode[ErrorResponse](raw).Error).To(Equal("analysis timed out"))
		})

		It("returns 503 when the analysis queue is full", func() {
			ctx := context.Background()
			pool, err := worker.NewPool(&worker.Config{NumWorkers: 1, QueueSize: 1})
			Expect(err).NotTo(HaveOccurred())

			busy, busySvc := newTestServer(Config{}, pool)
			defer func() { Expect(busySvc.Close()).To(Succeed()) }()

			release := make(chan struct{})
			started := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				_ = pool.Submit(ctx, "blocker", func(context.Context) error {
					close(started)
					<-release
					return nil
				})
			}()
			Eventually(started).Should(BeClosed())

			go func() {
				defer GinkgoRecover()
				_ = pool.Submit(ctx, "queued", func(context.Context) error { return nil })
			}()
			Eventually(pool.Pending).Should(Equal(1))

			status, _ := do(busy, http.MethodGet, "/rabbit_islands", nil)
			Expect(status).To(Equal(http.StatusServiceUnavailable))

			close(release)
		})
	})
})

var _ = Describe("Server on a live listener", func() {
	var (
		server  *Server
		svc     *catalog.Service
		baseURL string
		client  *http.Client
	)

	BeforeEach(func() {
		server, svc = newTestServer(Config{}, nil)

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		baseURL = "http://" + ln.Addr().String()

		go func() {
			defer GinkgoRecover()
			_ = server.app.Listener(ln)
		}()

		// One keep-alive connection so every request reuses the same
		// server-side buffers.
		client = &http.Client{
			Timeout:   5 * time.Second,
			Transport: &http.Transport{MaxConnsPerHost: 1, MaxIdleConnsPerHost: 1},
		}
	})

	AfterEach(func() {
		client.CloseIdleConnections()
		Expect(server.Shutdown()).To(Succeed())
		Expect(svc.Close()).To(Succeed())
	})

	send := func(method, path, body string) (int, []byte) {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req, err := http.NewRequest(method, baseURL+path, reader)
		Expect(err).NotTo(HaveOccurred())
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := client.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp.StatusCode, raw
	}

	It("keeps moved names intact across later requests", func() {
		status, raw := send(http.MethodPost, "/categories", `{"name":"parent1"}`)
		Expect(status).To(Equal(http.StatusCreated), string(raw))
		status, raw = send(http.MethodPost, "/categories", `{"name":"childAA"}`)
		Expect(status).To(Equal(http.StatusCreated), string(raw))

		status, raw = send(http.MethodPatch, "/categories/childAA/move?new_parent_name=parent1", "")
		Expect(status).To(Equal(http.StatusOK), string(raw))

		for i := range 50 {
			send(http.MethodGet, fmt.Sprintf("/categories/zz%02dzz?parent_name=qqqqqqqqqqqq%d", i, i), "")
			send(http.MethodGet, "/ping", "")
		}

		status, raw = send(http.MethodGet, "/categories?parent_name=parent1", "")
		Expect(status).To(Equal(http.StatusOK), string(raw))
		Expect(categoryNames(raw)).To(Equal([]string{"childAA"}))

		status, raw = send(http.MethodGet, "/categories/parent1/tree", "")
		Expect(status).To(Equal(http.StatusOK), string(raw))
		Expect(string(raw)).To(ContainSubstring(`"childAA"`))

		got, err := svc.GetCategory(context.Background(), "childAA")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ParentName).To(HaveValue(Equal("parent1")))
	})
})
