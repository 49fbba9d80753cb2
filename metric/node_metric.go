// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package metric

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// NodeMetric defines the cluster node instruments
type NodeMetric struct {
	peersCount     metric.Int64ObservableUpDownCounter
	routesCount    metric.Int64ObservableUpDownCounter
	forwardedCount metric.Int64ObservableCounter
}

// NewNodeMetric creates an instance of NodeMetric
func NewNodeMetric(meter metric.Meter) (*NodeMetric, error) {
	nodeMetric := new(NodeMetric)
	var err error
	if nodeMetric.peersCount, err = meter.Int64ObservableUpDownCounter(
		"actormesh.node.peers",
		metric.WithDescription("Number of connected peers"),
	); err != nil {
		return nil, fmt.Errorf("failed to create peersCount instrument, %w", err)
	}
	if nodeMetric.routesCount, err = meter.Int64ObservableUpDownCounter(
		"actormesh.node.routes",
		metric.WithDescription("Number of addresses in the routing table"),
	); err != nil {
		return nil, fmt.Errorf("failed to create routesCount instrument, %w", err)
	}
	if nodeMetric.forwardedCount, err = meter.Int64ObservableCounter(
		"actormesh.node.messages.forwarded",
		metric.WithDescription("Total number of messages forwarded to a peer"),
	); err != nil {
		return nil, fmt.Errorf("failed to create forwardedCount instrument, %w", err)
	}
	return nodeMetric, nil
}

// PeersCount returns the connected peers instrument
func (x *NodeMetric) PeersCount() metric.Int64ObservableUpDownCounter {
	return x.peersCount
}

// RoutesCount returns the routing table size instrument
func (x *NodeMetric) RoutesCount() metric.Int64ObservableUpDownCounter {
	return x.routesCount
}

// ForwardedCount returns the forwarded messages instrument
func (x *NodeMetric) ForwardedCount() metric.Int64ObservableCounter {
	return x.forwardedCount
}
