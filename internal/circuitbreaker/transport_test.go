package circuitbreaker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sony/gobreaker"

	"github.com/angeloszaimis/rr-balancer/internal/circuitbreaker"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

var _ = Describe("Transport", func() {
	var (
		registry *circuitbreaker.Registry
		server   *httptest.Server
	)

	BeforeEach(func() {
		registry = circuitbreaker.NewRegistry(2, 50*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("should pass responses through and treat 5xx as success", func() {
		breaker := registry.GetBreaker(server.URL)
		client := &http.Client{Transport: circuitbreaker.NewTransport(nil, breaker)}

		for i := 0; i < 3; i++ {
			res, err := client.Get(server.URL)
			Expect(err).NotTo(HaveOccurred())
			res.Body.Close()
			Expect(res.StatusCode).To(Equal(http.StatusInternalServerError))
		}

		Expect(breaker.State()).To(Equal(gobreaker.StateClosed))
	})

	It("should open after consecutive transport failures and fail fast", func() {
		calls := 0
		failing := roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return nil, errors.New("connection refused")
		})

		breaker := registry.GetBreaker("http://localhost:8001")
		transport := circuitbreaker.NewTransport(failing, breaker)

		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodGet, "http://localhost:8001/", nil)
			_, err := transport.RoundTrip(req)
			Expect(err).To(MatchError("connection refused"))
		}

		req := httptest.NewRequest(http.MethodGet, "http://localhost:8001/", nil)
		_, err := transport.RoundTrip(req)
		Expect(err).To(MatchError(gobreaker.ErrOpenState))
		Expect(err.Error()).To(Equal("circuit breaker is open"))
		Expect(calls).To(Equal(2))
	})

	It("should close again after a successful half-open probe", func() {
		fail := true
		flaky := roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if fail {
				return nil, errors.New("connection refused")
			}
			return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
		})

		breaker := registry.GetBreaker("http://localhost:8001")
		transport := circuitbreaker.NewTransport(flaky, breaker)

		for i := 0; i < 2; i++ {
			_, _ = transport.RoundTrip(httptest.NewRequest(http.MethodGet, "http://localhost:8001/", nil))
		}
		Expect(breaker.State()).To(Equal(gobreaker.StateOpen))

		fail = false
		time.Sleep(60 * time.Millisecond)

		res, err := transport.RoundTrip(httptest.NewRequest(http.MethodGet, "http://localhost:8001/", nil))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.StatusCode).To(Equal(http.StatusOK))
		Expect(breaker.State()).To(Equal(gobreaker.StateClosed))
	})

	It("should not count caller cancellation against the backend", func() {
		cancelled := roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, context.Canceled
		})

		breaker := registry.GetBreaker("http://localhost:8001")
		transport := circuitbreaker.NewTransport(cancelled, breaker)

		for i := 0; i < 5; i++ {
			_, _ = transport.RoundTrip(httptest.NewRequest(http.MethodGet, "http://localhost:8001/", nil))
		}

		Expect(breaker.State()).To(Equal(gobreaker.StateClosed))
	})
})
