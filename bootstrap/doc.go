// Package bootstrap runs the xform process lifecycle: it applies and
// validates configuration, initializes the global logger, runs start and
// stop hooks and shuts down on SIGINT or SIGTERM.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.OnStop(func(ctx context.Context) error { return engine.Close() })
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    _, err := engine.RunScript(ctx, script)
//	    return err
//	})
//
// Run is for long-running services and blocks until a signal arrives.
package bootstrap
