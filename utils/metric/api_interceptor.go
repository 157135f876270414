// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package utilmetric

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/rpc/v2"
	metric "github.com/luxfi/metric"
)

const methodLabel = "method"

// APIInterceptor times JSON-RPC requests by method.
type APIInterceptor interface {
	InterceptRequest(i *rpc.RequestInfo) *http.Request
	AfterRequest(i *rpc.RequestInfo)
}

type contextKey int

const requestTimestampKey contextKey = iota

type apiInterceptor struct {
	requests metric.CounterVec
	duration metric.GaugeVec
	errors   metric.CounterVec
}

// NewAPIInterceptor registers the request metrics under namespace. A nil
// registry returns an interceptor that records nothing.
func NewAPIInterceptor(namespace string, registry metric.Registry) APIInterceptor {
	if registry == nil {
		return noopInterceptor{}
	}
	m := metric.NewWithRegistry(namespace, registry)
	labels := []string{methodLabel}
	return &apiInterceptor{
		requests: m.NewCounterVec(
			"request_count",
			"Number of requests by method",
			labels,
		),
		duration: m.NewGaugeVec(
			"request_duration_sum",
			"Nanoseconds spent handling requests by method",
			labels,
		),
		errors: m.NewCounterVec(
			"request_error_count",
			"Number of failed requests by method",
			labels,
		),
	}
}

func (*apiInterceptor) InterceptRequest(i *rpc.RequestInfo) *http.Request {
	ctx := context.WithValue(i.Request.Context(), requestTimestampKey, time.Now())
	return i.Request.WithContext(ctx)
}

func (a *apiInterceptor) AfterRequest(i *rpc.RequestInfo) {
	start, ok := i.Request.Context().Value(requestTimestampKey).(time.Time)
	if !ok {
		return
	}

	labels := metric.Labels{methodLabel: i.Method}
	a.requests.With(labels).Inc()
	a.duration.With(labels).Add(float64(time.Since(start)))
	if i.Error != nil {
		a.errors.With(labels).Inc()
	}
}

type noopInterceptor struct{}

func (noopInterceptor) InterceptRequest(i *rpc.RequestInfo) *http.Request {
	return i.Request
}

func (noopInterceptor) AfterRequest(*rpc.RequestInfo) {}
