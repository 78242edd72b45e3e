package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/telephony/integration-connector/internal/domain"
	"github.com/telephony/integration-connector/internal/integration_status"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeResolver struct {
	enabled []domain.IntegrationType
}

func (f *fakeResolver) GetEnabledIntegrations(ctx context.Context, tenant domain.TenantID) []domain.IntegrationType {
	return f.enabled
}

type recordingSender struct {
	mu    sync.Mutex
	tasks []domain.DeliveryTask
	err   error
	panic bool
}

func (s *recordingSender) Send(ctx context.Context, task domain.DeliveryTask) error {
	if s.panic {
		panic("sender blew up")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
	return s.err
}

func (s *recordingSender) Tasks() []domain.DeliveryTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.DeliveryTask(nil), s.tasks...)
}

type deliveryEndpoint struct {
	server   *httptest.Server
	received atomic.Int32
	mu       sync.Mutex
	bodies   []map[string]interface{}
	headers  []http.Header
	release  chan struct{}
}

func newDeliveryEndpoint(statusCode int, hang bool) *deliveryEndpoint {
	endpoint := &deliveryEndpoint{release: make(chan struct{})}
	endpoint.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hang {
			select {
			case <-r.Context().Done():
				return
			case <-endpoint.release:
			}
		}

		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)

		endpoint.mu.Lock()
		endpoint.bodies = append(endpoint.bodies, body)
		endpoint.headers = append(endpoint.headers, r.Header.Clone())
		endpoint.mu.Unlock()

		endpoint.received.Add(1)
		w.WriteHeader(statusCode)
	}))
	return endpoint
}

func (e *deliveryEndpoint) Bodies() []map[string]interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]map[string]interface{}(nil), e.bodies...)
}

func (e *deliveryEndpoint) Headers() []http.Header {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]http.Header(nil), e.headers...)
}

func (e *deliveryEndpoint) Close() {
	close(e.release)
	e.server.Close()
}

var _ = Describe("Dispatcher", func() {

	var (
		pool *WorkerPool
	)

	BeforeEach(func() {
		pool = NewWorkerPool("test", 5)
	})

	AfterEach(func() {
		pool.Close()
	})

	It("delivers the event envelope to the enabled integration's endpoint", func() {
		endpoint := newDeliveryEndpoint(http.StatusOK, false)
		defer endpoint.Close()

		senders := NewHTTPEventSenders(http.DefaultClient, map[string]string{"retailcrm": endpoint.server.URL})
		d := NewDispatcher(&fakeResolver{enabled: []domain.IntegrationType{domain.RetailCRM}}, senders, pool, time.Second)

		payload := map[string]interface{}{"phone": "+375296254070", "extension": "150"}
		d.SendToEnabledIntegrations(context.TODO(), "0367", "dial", payload)
		d.Wait()

		Expect(endpoint.received.Load()).Should(Equal(int32(1)))

		body := endpoint.Bodies()[0]
		Expect(body["enterprise_number"]).Should(Equal("0367"))
		Expect(body["event_type"]).Should(Equal("dial"))
		Expect(body["payload"]).Should(Equal(payload))

		headers := endpoint.Headers()[0]
		Expect(headers.Get("Content-Type")).Should(Equal("application/json"))
		Expect(headers.Get("X-Request-Id")).ShouldNot(BeEmpty())
	})

	It("returns before a hanging delivery completes", func() {
		endpoint := newDeliveryEndpoint(http.StatusOK, true)

		senders := NewHTTPEventSenders(http.DefaultClient, map[string]string{"retailcrm": endpoint.server.URL})
		d := NewDispatcher(&fakeResolver{enabled: []domain.IntegrationType{domain.RetailCRM}}, senders, pool, 5*time.Second)

		startTime := time.Now()
		d.SendToEnabledIntegrations(context.TODO(), "0367", "hangup", nil)

		Expect(time.Since(startTime)).Should(BeNumerically("<", time.Second))
		Expect(endpoint.received.Load()).Should(Equal(int32(0)))

		endpoint.Close()
		d.Wait()
	})

	It("keeps delivering to other integrations when one fails", func() {
		failing := newDeliveryEndpoint(http.StatusInternalServerError, false)
		defer failing.Close()
		hanging := newDeliveryEndpoint(http.StatusOK, true)
		healthy := newDeliveryEndpoint(http.StatusAccepted, false)
		defer healthy.Close()

		senders := NewHTTPEventSenders(http.DefaultClient, map[string]string{
			"retailcrm": failing.server.URL,
			"amocrm":    hanging.server.URL,
			"bitrix24":  healthy.server.URL,
		})
		resolver := &fakeResolver{enabled: []domain.IntegrationType{"amocrm", "bitrix24", "retailcrm"}}
		d := NewDispatcher(resolver, senders, pool, 5*time.Second)

		d.SendToEnabledIntegrations(context.TODO(), "0367", "bridge", map[string]string{"phone": "150"})

		Eventually(healthy.received.Load).Should(Equal(int32(1)))
		Eventually(failing.received.Load).Should(Equal(int32(1)))
		Expect(hanging.received.Load()).Should(Equal(int32(0)))

		hanging.Close()
		d.Wait()
	})

	It("isolates a panicking sender", func() {
		broken := &recordingSender{panic: true}
		working := &recordingSender{}

		senders := map[domain.IntegrationType]EventSender{"retailcrm": broken, "bitrix24": working}
		d := NewDispatcher(&fakeResolver{enabled: []domain.IntegrationType{"bitrix24", "retailcrm"}}, senders, pool, time.Second)

		Expect(func() {
			d.SendToEnabledIntegrations(context.TODO(), "0367", "dial", nil)
			d.Wait()
		}).ShouldNot(Panic())

		Expect(working.Tasks()).Should(HaveLen(1))
	})

	It("accepts integrations without a delivery endpoint", func() {
		endpoint := newDeliveryEndpoint(http.StatusOK, false)
		defer endpoint.Close()

		senders := NewHTTPEventSenders(http.DefaultClient, map[string]string{"retailcrm": endpoint.server.URL, "amocrm": ""})
		d := NewDispatcher(&fakeResolver{enabled: []domain.IntegrationType{domain.AmoCRM, domain.RetailCRM}}, senders, pool, time.Second)

		Expect(d.senderFor(domain.AmoCRM)).Should(Equal(EventSender(PlaceholderEventSender{})))

		d.SendToEnabledIntegrations(context.TODO(), "0367", "dial", nil)
		d.Wait()

		Expect(endpoint.received.Load()).Should(Equal(int32(1)))
	})

	It("schedules nothing when no integration is enabled", func() {
		sender := &recordingSender{}
		d := NewDispatcher(&fakeResolver{}, map[domain.IntegrationType]EventSender{"retailcrm": sender}, pool, time.Second)

		d.SendToEnabledIntegrations(context.TODO(), "0367", "dial", nil)
		d.Wait()

		Expect(sender.Tasks()).Should(BeEmpty())
	})

	It("does not schedule tasks that fail validation", func() {
		sender := &recordingSender{}
		d := NewDispatcher(&fakeResolver{enabled: []domain.IntegrationType{domain.RetailCRM}}, map[domain.IntegrationType]EventSender{"retailcrm": sender}, pool, time.Second)

		d.SendToEnabledIntegrations(context.TODO(), "0367", "", nil)
		d.SendToEnabledIntegrations(context.TODO(), "", "dial", nil)
		d.Wait()

		Expect(sender.Tasks()).Should(BeEmpty())
	})

	It("keeps delivering after the caller's context is cancelled", func() {
		sender := &recordingSender{}
		d := NewDispatcher(&fakeResolver{enabled: []domain.IntegrationType{domain.RetailCRM}}, map[domain.IntegrationType]EventSender{"retailcrm": sender}, pool, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		d.SendToEnabledIntegrations(ctx, "0367", "dial", nil)
		cancel()
		d.Wait()

		Expect(sender.Tasks()).Should(HaveLen(1))
	})

	Context("With the status resolver", func() {

		It("schedules exactly one delivery, to retailcrm, for tenant 0367", func() {
			cache := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"integrations": {"retailcrm": true, "amocrm": false}, "age_seconds": 4}`)
			}))
			defer cache.Close()

			retailcrm := &recordingSender{}
			amocrm := &recordingSender{}

			cacheReader := integration_status.NewCacheReader(http.DefaultClient, cache.URL, time.Second, integration_status.NewRetryPolicy(2, time.Millisecond, false))
			resolver := integration_status.NewResolver(cacheReader, integration_status.NewFallbackStore(nil, time.Second), nil)

			senders := map[domain.IntegrationType]EventSender{domain.RetailCRM: retailcrm, domain.AmoCRM: amocrm}
			d := NewDispatcher(resolver, senders, pool, time.Second)

			d.SendToEnabledIntegrations(context.TODO(), "0367", "dial", map[string]string{"phone": "+375296254070"})
			d.Wait()

			Expect(retailcrm.Tasks()).Should(HaveLen(1))
			Expect(retailcrm.Tasks()[0].IntegrationType).Should(Equal(domain.RetailCRM))
			Expect(retailcrm.Tasks()[0].TenantID).Should(Equal(domain.TenantID("0367")))
			Expect(amocrm.Tasks()).Should(BeEmpty())
		})
	})
})
