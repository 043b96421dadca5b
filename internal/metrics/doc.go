// Package metrics provides an observability framework for KatSite build metrics.
//
// # Design
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	type Service struct {
//	    recorder metrics.Recorder
//	}
//
//	func NewService() *Service {
//	    return &Service{recorder: metrics.NoopRecorder{}}
//	}
//
// # Activation
//
// When `[metrics] textfile` is configured the build command swaps in a
// PrometheusRecorder backed by a private registry and, once the run has
// finished, writes that registry with WriteTextfile:
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	svc := build.NewService(build.WithRecorder(rec))
//	...
//	_ = metrics.WriteTextfile(reg, cfg.Metrics.Textfile)
//
// A build is a short-lived process, so there is no scrape endpoint.
package metrics
