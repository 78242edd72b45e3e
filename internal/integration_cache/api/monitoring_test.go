package api

import (
	"net/http"

	"github.com/telephony/integration-connector/internal/config"

	"github.com/gorilla/mux"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type readiness bool

func (r readiness) DatabaseConnected() bool {
	return bool(r)
}

var _ = Describe("Monitoring", func() {

	var router *mux.Router

	BeforeEach(func() {
		router = mux.NewRouter()
	})

	It("is always live", func() {
		NewMonitoringServer(router, config.GetConfig(), readiness(false)).Routes()

		rr := serve(router, http.MethodGet, "/liveness")
		Expect(rr.Code).Should(Equal(http.StatusOK))
	})

	It("is ready once the database is connected", func() {
		NewMonitoringServer(router, config.GetConfig(), readiness(true)).Routes()

		rr := serve(router, http.MethodGet, "/readiness")
		Expect(rr.Code).Should(Equal(http.StatusOK))
	})

	It("is not ready without a database", func() {
		NewMonitoringServer(router, config.GetConfig(), readiness(false)).Routes()

		rr := serve(router, http.MethodGet, "/readiness")
		Expect(rr.Code).Should(Equal(http.StatusServiceUnavailable))
	})

	It("exposes prometheus metrics", func() {
		NewMonitoringServer(router, config.GetConfig(), nil).Routes()

		rr := serve(router, http.MethodGet, "/metrics")
		Expect(rr.Code).Should(Equal(http.StatusOK))
	})
})
