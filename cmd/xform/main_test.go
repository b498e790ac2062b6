package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCSV = "ServerName,ServerPort\nwww.contoso.com,80\napi.contoso.com,443\nfabrikam.net,80\n"

func dataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "Table"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Table", "Sample.csv"), []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun(t *testing.T) {
	dir := dataDir(t)

	tests := []struct {
		name   string
		stdin  string
		args   []string
		code   int
		stdout string
		stderr string
	}{
		{"version", "", []string{"--version"}, exitOK, "xform ", ""},
		{"unknown flag", "", []string{"--nope"}, exitUsage, "", "unknown flag"},
		{"bad format", "", []string{"-f", "xml"}, exitUsage, "", "--format"},
		{"no script", "", []string{"-d", dir}, exitUsage, "", "no script given"},
		{
			"csv output", "",
			[]string{"-d", dir, "-f", "csv", "-e", "read Sample\nwhere ServerPort = 80\ncolumns ServerName"},
			exitOK, "ServerName\nwww.contoso.com\nfabrikam.net\n", "",
		},
		{"table output", "", []string{"-d", dir, "-e", "read Sample; count"}, exitOK, "1 row", ""},
		{"stdin", "read Sample\nlimit 1\n", []string{"-d", dir, "-f", "json", "-"}, exitOK, `"row_count": 1`, ""},
		{"usage error", "", []string{"-d", dir, "-e", "read Sample\nlimit ten"}, exitUsage, "", "Line: 2"},
		{"unknown table", "", []string{"-d", dir, "-e", "read Missing"}, exitUsage, "", `"Missing" was not a valid`},
		{"truncated", "", []string{"-d", dir, "-n", "2", "-e", "read Sample"}, exitOK, "2 rows (truncated)", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(t, tc.stdin, tc.args...)
			if code != tc.code {
				t.Fatalf("exit %d, want %d\nstdout: %s\nstderr: %s", code, tc.code, stdout, stderr)
			}
			if !strings.Contains(stdout, tc.stdout) {
				t.Errorf("stdout %q does not contain %q", stdout, tc.stdout)
			}
			if !strings.Contains(stderr, tc.stderr) {
				t.Errorf("stderr %q does not contain %q", stderr, tc.stderr)
			}
		})
	}
}

func TestRun_ScriptFile(t *testing.T) {
	dir := dataDir(t)
	script := filepath.Join(dir, "port80.xql")
	if err := os.WriteFile(script, []byte("read Sample\nwhere ServerPort = 80\ncount\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, stdout, stderr := runCLI(t, "", "-d", dir, "-f", "csv", script)
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if stdout != "Count\n2\n" {
		t.Errorf("unexpected output %q", stdout)
	}
}

func TestRun_QuietWrite(t *testing.T) {
	dir := dataDir(t)
	code, stdout, stderr := runCLI(t, "", "-d", dir, "-q", "-e", "read Sample\ncolumns ServerPort\nwrite Ports")
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if stdout != "" {
		t.Errorf("quiet run printed %q", stdout)
	}
	b, err := os.ReadFile(filepath.Join(dir, "Table", "Ports.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "ServerPort\n80\n443\n80\n" {
		t.Errorf("unexpected file %q", b)
	}
}

func TestRun_MissingScriptFile(t *testing.T) {
	code, _, stderr := runCLI(t, "", "-d", t.TempDir(), "nowhere.xql")
	if code != exitUsage || !strings.Contains(stderr, "nowhere.xql") {
		t.Errorf("exit %d, stderr %q", code, stderr)
	}
}
