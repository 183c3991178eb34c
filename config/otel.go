// Copyright (c) 2025 Go Lambda API Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config defines the configuration types shared by all apps
// built on this module.
package config

import "time"

// Resource identifies the service which telemetry is reported for.
type Resource struct {
	ServiceName    string `config:"service_name"`
	ServiceVersion string `config:"service_version"`
}

// OTLPConnType selects the transport used for OTLP exporters.
type OTLPConnType string

const (
	OTLPHTTP OTLPConnType = "http"
	OTLPGRPC OTLPConnType = "grpc"
)

// OTLP configures a single OTLP exporter connection.
//
// An empty Target disables the corresponding signal entirely.
type OTLP struct {
	Type   OTLPConnType `config:"type"`
	Target string       `config:"target"`
}

// Batch configures batched exporting of telemetry.
type Batch struct {
	ExportInterval time.Duration `config:"export_interval"`
}

// SpanSampling configures ratio based trace sampling.
type SpanSampling struct {
	Ratio float64 `config:"ratio"`
}

// Trace configures the trace signal.
type Trace struct {
	Sampling SpanSampling `config:"sampling"`
	Processor struct {
		Batch Batch `config:"batch"`
	} `config:"processor"`
	Exporter struct {
		OTLP OTLP `config:"otlp"`
	} `config:"exporter"`
}

// Metric configures the metric signal.
type Metric struct {
	Reader struct {
		Periodic struct {
			ExportInterval time.Duration `config:"export_interval"`
		} `config:"periodic"`
	} `config:"reader"`
	Exporter struct {
		OTLP OTLP `config:"otlp"`
	} `config:"exporter"`
}

// Log configures the log signal.
type Log struct {
	Processor struct {
		Batch Batch `config:"batch"`
	} `config:"processor"`
	Exporter struct {
		OTLP OTLP `config:"otlp"`
	} `config:"exporter"`
}

// OTel aggregates the configuration for all telemetry signals.
type OTel struct {
	Resource Resource `config:"resource"`
	Trace    Trace    `config:"trace"`
	Metric   Metric   `config:"metric"`
	Log      Log      `config:"log"`
}
