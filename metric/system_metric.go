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

// SystemMetric defines the actor system instruments
type SystemMetric struct {
	actorsCount      metric.Int64ObservableUpDownCounter
	messagesSent     metric.Int64ObservableCounter
	undeliveredCount metric.Int64ObservableCounter
	unhandledCount   metric.Int64ObservableCounter
}

// NewSystemMetric creates an instance of SystemMetric
func NewSystemMetric(meter metric.Meter) (*SystemMetric, error) {
	systemMetric := new(SystemMetric)
	var err error
	if systemMetric.actorsCount, err = meter.Int64ObservableUpDownCounter(
		"actormesh.system.actors",
		metric.WithDescription("Number of actors currently registered"),
	); err != nil {
		return nil, fmt.Errorf("failed to create actorsCount instrument, %w", err)
	}
	if systemMetric.messagesSent, err = meter.Int64ObservableCounter(
		"actormesh.system.messages.sent",
		metric.WithDescription("Total number of messages delivered locally or forwarded"),
	); err != nil {
		return nil, fmt.Errorf("failed to create messagesSent instrument, %w", err)
	}
	if systemMetric.undeliveredCount, err = meter.Int64ObservableCounter(
		"actormesh.system.messages.undelivered",
		metric.WithDescription("Total number of messages that could not be delivered"),
	); err != nil {
		return nil, fmt.Errorf("failed to create undeliveredCount instrument, %w", err)
	}
	if systemMetric.unhandledCount, err = meter.Int64ObservableCounter(
		"actormesh.system.messages.unhandled",
		metric.WithDescription("Total number of messages reported as unhandled"),
	); err != nil {
		return nil, fmt.Errorf("failed to create unhandledCount instrument, %w", err)
	}
	return systemMetric, nil
}

// ActorsCount returns the registered actors instrument
func (x *SystemMetric) ActorsCount() metric.Int64ObservableUpDownCounter {
	return x.actorsCount
}

// MessagesSent returns the sent messages instrument
func (x *SystemMetric) MessagesSent() metric.Int64ObservableCounter {
	return x.messagesSent
}

// UndeliveredCount returns the undelivered messages instrument
func (x *SystemMetric) UndeliveredCount() metric.Int64ObservableCounter {
	return x.undeliveredCount
}

// UnhandledCount returns the unhandled messages instrument
func (x *SystemMetric) UnhandledCount() metric.Int64ObservableCounter {
	return x.unhandledCount
}
