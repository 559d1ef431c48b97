package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("run", func() {
	It("should send every request and read the backend header", func() {
		var n atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if n.Add(1)%2 == 0 {
				w.Header().Set("X-Backend-Server", "http://b")
			} else {
				w.Header().Set("X-Backend-Server", "http://a")
			}
		}))
		defer srv.Close()

		results, err := run(context.Background(), srv.Client(), options{
			url: srv.URL, method: http.MethodGet, concurrency: 4, requests: 20,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(20))

		s := summarize(srv.URL, results, time.Second)
		Expect(s.Success).To(Equal(20))
		Expect(s.Backends["http://a"].Total).To(Equal(10))
		Expect(s.Backends["http://b"].Total).To(Equal(10))
		Expect(s.StatusCodes).To(Equal(map[int]int{http.StatusOK: 20}))
	})
})

var _ = Describe("summarize", func() {
	It("should count failures and unknown backends", func() {
		results := []result{
			{idx: 0, backend: "http://a", status: 200, duration: 10 * time.Millisecond},
			{idx: 1, backend: "http://a", status: 502, duration: 30 * time.Millisecond},
			{idx: 2, backend: unknownBackend, status: 503, duration: time.Millisecond},
			{idx: 3, backend: unknownBackend, err: errors.New("refused")},
		}

		s := summarize("http://lb", results, 2*time.Second)

		Expect(s.Total).To(Equal(4))
		Expect(s.Success).To(Equal(1))
		Expect(s.Failure).To(Equal(3))
		Expect(s.ThroughputRPS).To(BeNumerically("~", 2.0))
		Expect(s.StatusCodes).To(Equal(map[int]int{200: 1, 502: 1, 503: 1}))
		Expect(s.Backends["http://a"]).To(Equal(backendSummary{Total: 2, Success: 1, Failure: 1, P50: 10, P90: 10, P99: 10}))
		Expect(s.Backends[unknownBackend].Failure).To(Equal(2))
	})
})

var _ = DescribeTable("percentileMS",
	func(p float64, want float64) {
		sorted := []time.Duration{1 * time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond, 4 * time.Millisecond, 5 * time.Millisecond}
		Expect(percentileMS(sorted, p)).To(Equal(want))
	},
	Entry("p0", 0.0, 1.0),
	Entry("p50", 0.5, 3.0),
	Entry("p99", 0.99, 4.0),
	Entry("p100", 1.0, 5.0),
)
