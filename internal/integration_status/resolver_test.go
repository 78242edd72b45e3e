package integration_status

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"github.com/telephony/integration-connector/internal/domain"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const (
	testTenant       = domain.TenantID("0367")
	testCacheTimeout = 50 * time.Millisecond
	testRetryCount   = 2
)

type fakeDatabaseTier struct {
	integrations domain.Integrations
	err          error
	calls        atomic.Int32
}

func (f *fakeDatabaseTier) Read(ctx context.Context, tenant domain.TenantID) (domain.Integrations, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	result := make(domain.Integrations, len(f.integrations))
	for k, v := range f.integrations {
		result[k] = v
	}
	return result, nil
}

type cacheServer struct {
	server   *httptest.Server
	calls    atomic.Int32
	lastPath atomic.Value
	release  chan struct{}
}

func newCacheServer(statusCode int, body string) *cacheServer {
	cs := &cacheServer{release: make(chan struct{})}
	cs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.calls.Add(1)
		cs.lastPath.Store(r.URL.Path)
		w.WriteHeader(statusCode)
		fmt.Fprint(w, body)
	}))
	return cs
}

func newHangingCacheServer() *cacheServer {
	cs := &cacheServer{release: make(chan struct{})}
	cs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-cs.release:
		}
	}))
	return cs
}

func (cs *cacheServer) Close() {
	close(cs.release)
	cs.server.Close()
}

func unreachableUrl() string {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	return url
}

func storedConfigFor0367() domain.Integrations {
	return domain.Integrations{"retailcrm": true, "amocrm": false}
}

var _ = Describe("Resolver", func() {

	var (
		stats       *StatsCollector
		database    *fakeDatabaseTier
		retryPolicy RetryPolicy
	)

	buildResolver := func(cacheUrl string) *Resolver {
		cache := NewCacheReader(http.DefaultClient, cacheUrl, testCacheTimeout, retryPolicy)
		return NewResolver(cache, database, stats)
	}

	BeforeEach(func() {
		stats = NewStatsCollector()
		database = &fakeDatabaseTier{integrations: storedConfigFor0367()}
		retryPolicy = NewRetryPolicy(testRetryCount, 5*time.Millisecond, false)
	})

	Context("When the cache answers", func() {

		It("returns the cached integrations and counts a cache hit", func() {
			cs := newCacheServer(http.StatusOK, `{"integrations": {"retailcrm": true, "amocrm": false}, "age_seconds": 12.5}`)
			defer cs.Close()

			status := buildResolver(cs.server.URL).GetStatus(context.TODO(), testTenant)

			Expect(status.Source).Should(Equal(domain.SourceCache))
			Expect(status.Integrations).Should(Equal(storedConfigFor0367()))
			Expect(status.AgeSeconds).Should(Equal(12.5))
			Expect(status.TenantID).Should(Equal(testTenant))

			snapshot := stats.Snapshot()
			Expect(snapshot.TotalRequests).Should(Equal(uint64(1)))
			Expect(snapshot.CacheHits).Should(Equal(uint64(1)))
			Expect(snapshot.CacheMisses).Should(Equal(uint64(0)))
			Expect(database.calls.Load()).Should(Equal(int32(0)))
			Expect(cs.lastPath.Load()).Should(Equal(fmt.Sprintf("/integrations/%s", testTenant)))
		})

		It("treats a 404 as an empty, valid answer", func() {
			cs := newCacheServer(http.StatusNotFound, `{"detail": "Enterprise not found"}`)
			defer cs.Close()

			status := buildResolver(cs.server.URL).GetStatus(context.TODO(), testTenant)

			Expect(status.Source).Should(Equal(domain.SourceCache))
			Expect(status.Integrations).ShouldNot(BeNil())
			Expect(status.Integrations).Should(BeEmpty())

			snapshot := stats.Snapshot()
			Expect(snapshot.CacheHits).Should(Equal(uint64(1)))
			Expect(snapshot.CacheMisses).Should(Equal(uint64(0)))
			Expect(cs.calls.Load()).Should(Equal(int32(1)))
			Expect(database.calls.Load()).Should(Equal(int32(0)))
		})

		It("returns equal integrations for sequential calls", func() {
			cs := newCacheServer(http.StatusOK, `{"integrations": {"retailcrm": true, "amocrm": false}, "age_seconds": 1}`)
			defer cs.Close()

			resolver := buildResolver(cs.server.URL)

			first := resolver.GetStatus(context.TODO(), testTenant)
			second := resolver.GetStatus(context.TODO(), testTenant)

			Expect(second.Integrations).Should(Equal(first.Integrations))
			Expect(second.Source).Should(Equal(first.Source))
		})
	})

	Context("When the cache times out", func() {

		It("retries, then serves the database result", func() {
			cs := newHangingCacheServer()
			defer cs.Close()

			status := buildResolver(cs.server.URL).GetStatus(context.TODO(), testTenant)

			Expect(status.Source).Should(Equal(domain.SourceDatabase))
			Expect(status.Integrations).Should(Equal(storedConfigFor0367()))
			Expect(cs.calls.Load()).Should(Equal(int32(testRetryCount)))

			snapshot := stats.Snapshot()
			Expect(snapshot.CacheMisses).Should(Equal(uint64(1)))
			Expect(snapshot.DBFallbacks).Should(Equal(uint64(1)))
			Expect(snapshot.CacheHits).Should(Equal(uint64(0)))
			Expect(snapshot.Errors).Should(Equal(uint64(0)))
		})
	})

	Context("When the cache responds with something unusable", func() {

		DescribeTable("falls back to the database without retrying",
			func(statusCode int, body string) {
				cs := newCacheServer(statusCode, body)
				defer cs.Close()

				status := buildResolver(cs.server.URL).GetStatus(context.TODO(), testTenant)

				Expect(status.Source).Should(Equal(domain.SourceDatabase))
				Expect(cs.calls.Load()).Should(Equal(int32(1)))
				Expect(stats.Snapshot().CacheMisses).Should(Equal(uint64(1)))
			},
			Entry("server error", http.StatusInternalServerError, `{}`),
			Entry("service unavailable", http.StatusServiceUnavailable, `{}`),
			Entry("unparseable body", http.StatusOK, `{"integrations": `),
			Entry("missing integrations", http.StatusOK, `{"age_seconds": 3}`),
			Entry("integrations of the wrong shape", http.StatusOK, `{"integrations": {"retailcrm": "yes"}}`),
		)
	})

	Context("When the cache is unreachable", func() {

		It("serves the stored configuration from the database", func() {
			status := buildResolver(unreachableUrl()).GetStatus(context.TODO(), testTenant)

			Expect(status.Source).Should(Equal(domain.SourceDatabase))
			Expect(status.Integrations).Should(Equal(domain.Integrations{"retailcrm": true, "amocrm": false}))
		})

		It("returns an empty database result for an unknown tenant", func() {
			database.integrations = domain.Integrations{}

			status := buildResolver(unreachableUrl()).GetStatus(context.TODO(), "9999")

			Expect(status.Source).Should(Equal(domain.SourceDatabase))
			Expect(status.Integrations).ShouldNot(BeNil())
			Expect(status.Integrations).Should(BeEmpty())
		})

		It("reports an error source when the database fails too", func() {
			database.err = errors.New("connection refused")

			status := buildResolver(unreachableUrl()).GetStatus(context.TODO(), testTenant)

			Expect(status.Source).Should(Equal(domain.SourceError))
			Expect(status.Integrations).ShouldNot(BeNil())
			Expect(status.Integrations).Should(BeEmpty())

			snapshot := stats.Snapshot()
			Expect(snapshot.Errors).Should(Equal(uint64(1)))
			Expect(snapshot.DBFallbacks).Should(Equal(uint64(0)))
			Expect(snapshot.CacheMisses).Should(Equal(uint64(1)))
		})

		It("reports an error source in cache-only mode", func() {
			cache := NewCacheReader(http.DefaultClient, unreachableUrl(), testCacheTimeout, retryPolicy)
			resolver := NewResolver(cache, NewFallbackStore(nil, time.Second), stats)

			status := resolver.GetStatus(context.TODO(), testTenant)

			Expect(status.Source).Should(Equal(domain.SourceError))
			Expect(stats.Snapshot().Errors).Should(Equal(uint64(1)))
		})
	})

	Context("Derived helpers", func() {

		var resolver *Resolver

		BeforeEach(func() {
			resolver = buildResolver(unreachableUrl())
		})

		It("reports retailcrm as enabled", func() {
			Expect(resolver.IsIntegrationEnabled(context.TODO(), testTenant, domain.RetailCRM)).Should(BeTrue())
		})

		It("reports amocrm as disabled", func() {
			Expect(resolver.IsIntegrationEnabled(context.TODO(), testTenant, domain.AmoCRM)).Should(BeFalse())
		})

		It("reports an unknown integration type as disabled", func() {
			Expect(resolver.IsIntegrationEnabled(context.TODO(), testTenant, "bitrix24")).Should(BeFalse())
		})

		It("lists only the enabled integrations", func() {
			Expect(resolver.GetEnabledIntegrations(context.TODO(), testTenant)).Should(Equal([]domain.IntegrationType{domain.RetailCRM}))
		})

		It("lists nothing when both tiers fail", func() {
			database.err = errors.New("connection refused")
			Expect(resolver.GetEnabledIntegrations(context.TODO(), testTenant)).Should(BeEmpty())
		})
	})
})
