package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/xform/config"
	"github.com/kbukum/xform/logger"
)

func newTestConfig() *config.Config {
	return &config.Config{ServiceConfig: config.ServiceConfig{Name: "xform-test", Version: "1.2.3"}}
}

func newTestApp(t *testing.T, opts ...Option) *App[*config.Config] {
	t.Helper()
	opts = append([]Option{WithLogger(logger.NewNop())}, opts...)
	app, err := NewApp(newTestConfig(), opts...)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return app
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t)
	if app.Name != "xform-test" || app.Version != "1.2.3" {
		t.Errorf("unexpected name/version %q %q", app.Name, app.Version)
	}
	if app.Cfg.Engine.BatchSize != config.DefaultBatchSize {
		t.Errorf("expected defaults applied, got batch size %d", app.Cfg.Engine.BatchSize)
	}
}

func TestNewApp_RegistersComponentLoggers(t *testing.T) {
	var buf bytes.Buffer
	base := logger.NewWithWriter(&logger.Config{Level: "info", Format: "json"}, "xform-test", &buf)
	if _, err := NewApp(newTestConfig(), WithLogger(base)); err != nil {
		t.Fatal(err)
	}
	for _, name := range logger.Components {
		buf.Reset()
		logger.Get(name).Info("hello")
		if !strings.Contains(buf.String(), `"component":"`+name+`"`) {
			t.Errorf("expected %s logger to write through the app logger, got %q", name, buf.String())
		}
	}
}

func TestNewApp_InvalidConfig(t *testing.T) {
	cfg := newTestConfig()
	cfg.Environment = "moon"
	if _, err := NewApp(cfg, WithLogger(logger.NewNop())); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRunTask_HookOrder(t *testing.T) {
	app := newTestApp(t)
	var calls []string
	record := func(name string) Hook {
		return func(context.Context) error {
			calls = append(calls, name)
			return nil
		}
	}
	app.OnStart(record("start"))
	app.OnReady(record("ready"))
	app.OnStop(record("stop-1"), record("stop-2"))

	err := app.RunTask(context.Background(), func(context.Context) error {
		calls = append(calls, "task")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := "start,ready,task,stop-2,stop-1"
	if got := strings.Join(calls, ","); got != want {
		t.Errorf("got %s want %s", got, want)
	}
}

func TestRunTask_Errors(t *testing.T) {
	taskErr := errors.New("task failed")
	stopErr := errors.New("stop failed")

	tests := []struct {
		name    string
		task    error
		stop    error
		wantErr error
	}{
		{"task error wins", taskErr, stopErr, taskErr},
		{"stop error surfaces", nil, stopErr, stopErr},
		{"clean", nil, nil, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t)
			app.OnStop(func(context.Context) error { return tc.stop })
			err := app.RunTask(context.Background(), func(context.Context) error { return tc.task })
			if !errors.Is(err, tc.wantErr) || (tc.wantErr == nil && err != nil) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestStartHookFailureRunsStopHooks(t *testing.T) {
	app := newTestApp(t)
	stopped := false
	app.OnStop(func(context.Context) error { stopped = true; return nil })
	app.OnStart(func(context.Context) error { return errors.New("no engine") })

	ran := false
	err := app.RunTask(context.Background(), func(context.Context) error { ran = true; return nil })
	if err == nil || !strings.Contains(err.Error(), "no engine") {
		t.Fatalf("expected start error, got %v", err)
	}
	if ran {
		t.Error("task must not run after a failed start")
	}
	if !stopped {
		t.Error("stop hooks must run after a failed start")
	}
}

func TestStopRunsOnce(t *testing.T) {
	app := newTestApp(t)
	n := 0
	app.OnStop(func(context.Context) error { n++; return nil })
	if err := app.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if err := app.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected one stop, got %d", n)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	app := newTestApp(t, WithGracefulTimeout(time.Second))
	stopped := make(chan struct{})
	app.OnStop(func(context.Context) error { close(stopped); return nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	select {
	case <-stopped:
	default:
		t.Error("stop hook did not run")
	}
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	app := newTestApp(t, WithSummary(&buf))
	app.Summary.Add("route", "POST /v1/query", "")
	app.Summary.Add("table", "WebRequest", "memory")

	if err := app.RunTask(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"xform-test", "1.2.3", "POST /v1/query", "WebRequest", "memory"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in summary:\n%s", want, out)
		}
	}
	if len(app.Summary.Items()) != 2 {
		t.Errorf("expected 2 items, got %d", len(app.Summary.Items()))
	}
}
