// Package promadapters implements the auditstore metrics interfaces with the Prometheus client.
//
//	metrics, err := promadapters.NewMetricsCollector(promadapters.WithRegisterer(registry))
//	if err != nil {
//		return err
//	}
//
//	store, err := postgresengine.NewSnapshotStoreFromPGXPool(pool, postgresengine.WithMetrics(metrics))
package promadapters
