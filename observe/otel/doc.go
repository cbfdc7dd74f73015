// Package otel provides an OpenTelemetry observer plugin for ki.
// It emits a span per scope and a span per child, recording errors and
// status as children finish.
package otel
