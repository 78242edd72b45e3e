package middlewares

import (
	"net/http"
	"net/http/httptest"

	"github.com/gorilla/mux"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(counter prometheus.Counter) float64 {
	var metric dto.Metric
	Expect(counter.Write(&metric)).Should(Succeed())
	return metric.GetCounter().GetValue()
}

var _ = Describe("MetricsMiddleware", func() {

	var router *mux.Router

	BeforeEach(func() {
		router = mux.NewRouter()
		router.Use((&MetricsMiddleware{}).RecordHTTPMetrics)
		router.HandleFunc("/integrations/{tenant}", func(w http.ResponseWriter, req *http.Request) {
			if mux.Vars(req)["tenant"] == "missing" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write([]byte("{}"))
		})
	})

	It("counts responses by route template and status code", func() {
		before := counterValue(statusCodeCounter.WithLabelValues("/integrations/{tenant}", "200"))

		for _, tenant := range []string{"0367", "0400"} {
			req, err := http.NewRequest(http.MethodGet, "/integrations/"+tenant, nil)
			Expect(err).ShouldNot(HaveOccurred())
			router.ServeHTTP(httptest.NewRecorder(), req)
		}

		after := counterValue(statusCodeCounter.WithLabelValues("/integrations/{tenant}", "200"))
		Expect(after - before).Should(Equal(float64(2)))
	})

	It("records the status written by the handler", func() {
		before := counterValue(statusCodeCounter.WithLabelValues("/integrations/{tenant}", "404"))

		req, err := http.NewRequest(http.MethodGet, "/integrations/missing", nil)
		Expect(err).ShouldNot(HaveOccurred())
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		Expect(rr.Code).Should(Equal(http.StatusNotFound))
		after := counterValue(statusCodeCounter.WithLabelValues("/integrations/{tenant}", "404"))
		Expect(after - before).Should(Equal(float64(1)))
	})
})
