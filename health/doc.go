// Package health reports the readiness of the site's storage and cache.
//
// StorageChecker pings the SQLite handle behind the stores;
// CacheChecker watches the artifact cache's expired-entry backlog. A
// Probe runs the registered checks concurrently and folds them into a
// single Report whose status is the worst service status.
//
//	probe := health.SiteProbe(store.DB(), store)
//	report := probe.Run(ctx)
//
// HTTP handlers cover the common probe patterns:
//
//	http.Handle("/healthz", health.LivenessHandler())
//	http.Handle("/readyz", health.ReadinessHandler(probe))
//	http.Handle("/api/health", health.ReportHandler(probe))
package health
