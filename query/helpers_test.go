package query_test

import (
	"testing"

	"github.com/kbukum/xform/streams"
	"github.com/kbukum/xform/xformtest"
)

func writeQuery(t *testing.T, env *xformtest.Env, name, script string) string {
	t.Helper()
	path := streams.QueryFolder + "/" + name + ".xql"
	if err := streams.WriteString(env.Streams, path, script); err != nil {
		t.Fatal(err)
	}
	return path
}
