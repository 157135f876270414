// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package utilmetric

import (
	metric "github.com/luxfi/metric"
)

// Averager tracks the count and sum of observations so a scraper can
// derive the mean.
type Averager interface {
	Observe(float64)
}

type averager struct {
	count metric.Counter
	sum   metric.Gauge
}

// NewAverager registers name_count and name_sum. A nil registry returns an
// averager that records nothing.
func NewAverager(namespace, name, desc string, registry metric.Registry) Averager {
	if registry == nil {
		return noopAverager{}
	}
	m := metric.NewWithRegistry(namespace, registry)
	return &averager{
		count: m.NewCounter(AppendNamespace(name, "count"), "Total # of observations of "+desc),
		sum:   m.NewGauge(AppendNamespace(name, "sum"), "Sum of "+desc),
	}
}

func (a *averager) Observe(v float64) {
	a.count.Inc()
	a.sum.Add(v)
}

type noopAverager struct{}

func (noopAverager) Observe(float64) {}

// AppendNamespace joins a metric namespace and name with an underscore.
func AppendNamespace(namespace, name string) string {
	switch {
	case namespace == "":
		return name
	case name == "":
		return namespace
	default:
		return namespace + "_" + name
	}
}
