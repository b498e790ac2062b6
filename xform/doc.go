// Package xform is the engine facade. An Engine owns the verb and type
// registries, the table runner and the stream provider, and compiles and
// runs pipeline scripts with logging, tracing and metrics.
//
//	engine, err := xform.New(cfg.Engine)
//	defer engine.Close()
//
//	result, err := engine.Execute(ctx, "read WebRequest\nwhere ServerPort = 80\ncount", 100)
package xform
