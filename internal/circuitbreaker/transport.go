package circuitbreaker

import (
	"net/http"

	"github.com/sony/gobreaker"
)

// Transport runs every round trip through a circuit breaker.
type Transport struct {
	base    http.RoundTripper
	breaker *gobreaker.CircuitBreaker
}

func NewTransport(base http.RoundTripper, breaker *gobreaker.CircuitBreaker) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}

	return &Transport{
		base:    base,
		breaker: breaker,
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	res, err := t.breaker.Execute(func() (interface{}, error) {
		return t.base.RoundTrip(req)
	})
	if err != nil {
		return nil, err
	}

	return res.(*http.Response), nil
}
