// Package resilience bounds how much work runs at once.
//
// A Bulkhead caps concurrent pipeline runs so that a burst of queries
// queues briefly or fails fast instead of exhausting memory:
//
//	runs := resilience.NewBulkhead(resilience.BulkheadConfig{Name: "query", MaxConcurrent: 8})
//	result, err := resilience.ExecuteWithResult(runs, ctx, func() (*xform.Result, error) {
//	    return engine.Execute(ctx, script, limit)
//	})
package resilience
