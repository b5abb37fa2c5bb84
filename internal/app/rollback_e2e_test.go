package app

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/shipit/internal/adapters/in/cli"
	"github.com/bnema/shipit/internal/testutils"
)

const demoIndex = `{
  "info": {"name": "demo", "version": "1.2.3"},
  "releases": {
    "1.2.2": [{"filename": "demo-1.2.2.tar.gz", "yanked": false}],
    "1.2.3": [{"filename": "demo-1.2.3.tar.gz", "yanked": false}]
  }
}`

func TestRollbackCommand_EndToEnd(t *testing.T) {
	var deleted atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/pypi/demo/json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(demoIndex))
		case r.Method == http.MethodDelete && r.URL.Path == "/projects/demo/releases/1.2.3":
			if user, pass, ok := r.BasicAuth(); !ok || user != "__token__" || pass != "pypi-token" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			deleted.Store(true)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	workspace, _ := testutils.GitWorkspace(t, map[string]string{
		"pyproject.toml": testutils.PyProject("demo", "1.2.3"),
	}, true)
	t.Setenv(EnvRegistryToken, "pypi-token")
	t.Setenv(EnvTicketToken, "")

	path := writeConfig(t, "[project]\n"+
		"workspace = \""+filepath.ToSlash(workspace)+"\"\n"+
		"[registry.production]\n"+
		"index_url = \""+srv.URL+"\"\n"+
		"manage_url = \""+srv.URL+"\"\n"+
		"[registry.retry]\n"+
		"attempts = 1\n"+
		"base_delay = \"1ms\"\n")

	root := cli.NewRootCmd(Services)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(&bytes.Buffer{})
	root.SetArgs([]string{"rollback", "1.2.3", "--yes", "--config", path, "--reason", "broken wheel"})

	err := root.ExecuteContext(testutils.TestContext(t))
	require.NoError(t, err, stderr.String())

	assert.True(t, deleted.Load())
	assert.Contains(t, stdout.String(), "1.2.2")

	// no remote is configured, so the push and the issue are manual follow-ups
	assert.Contains(t, stdout.String(), "Manual follow-up")

	reports := filepath.Join(workspace, DefaultReportsDir)
	notices, err := filepath.Glob(filepath.Join(reports, "*notice*.md"))
	require.NoError(t, err)
	assert.Len(t, notices, 1)
	postIncident, err := filepath.Glob(filepath.Join(reports, "*post-incident*.md"))
	require.NoError(t, err)
	assert.Len(t, postIncident, 1)
}
