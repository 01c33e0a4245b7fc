/*
Package observability turns engine lifecycle events into Prometheus metrics.

Metrics are attached through domain.LifecycleHooks, so the engine itself has
no dependency on a metrics backend:

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	engine, err := arbor.New(dir, executor, arbor.WithLifecycleHooks(metrics.Hooks()))
*/
package observability
