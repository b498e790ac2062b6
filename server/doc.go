// Package server exposes an engine over HTTP with gin.
//
//	POST /v1/query          {"query": "read WebRequest\ncount", "limit": 100}
//	POST /v1/query/stream   same body, rows sent as server-sent events
//	PUT  /v1/tables/:name   {"query": "..."} stores the output as a table
//	GET  /v1/verbs
//	GET  /v1/types
//	GET  /v1/tables
//	GET  /healthz
//
// Script errors are answered with 400 and the usage diagnostic in the
// error details. Runs beyond the configured concurrency get 503. Without TLS
// the listener also accepts HTTP/2 with prior knowledge (h2c).
package server
