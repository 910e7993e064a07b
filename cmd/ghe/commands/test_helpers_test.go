package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/ghe-client/cmd/ghe/commands"
)

const (
	testToken  = "test-token"
	apiPrefix  = "/api/v3"
	hooksPath  = apiPrefix + "/admin/pre-receive-hooks"
	envsPath   = apiPrefix + "/admin/pre-receive-environments"
	widgetsAPI = apiPrefix + "/repos/octo/widgets/releases"
)

// findSubcommand finds a subcommand by name within a cobra command.
func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

// cliRun is the outcome of one CLI invocation.
type cliRun struct {
	stdout string
	stderr string
	err    error
}

// runCLI executes the command tree against configFile with a
// non-interactive stdin. The CLI keeps its settings in the global viper
// instance, so these tests do not run in parallel.
func runCLI(t *testing.T, configFile, stdin string, args ...string) cliRun {
	t.Helper()

	return execute(t, false, "", configFile, stdin, args)
}

// runTerminalCLI is runCLI with stdin reported as a terminal. secret is
// returned by the hidden token prompt.
func runTerminalCLI(t *testing.T, configFile, stdin, secret string, args ...string) cliRun {
	t.Helper()

	return execute(t, true, secret, configFile, stdin, args)
}

func execute(t *testing.T, terminal bool, secret, configFile, stdin string, args []string) cliRun {
	t.Helper()

	for _, key := range []string{"GHE_API", "GHE_TOKEN", "GHE_OUTPUT", "GHE_CACHE", "GHE_NATS_URL", "GHE_CURRENT_API"} {
		t.Setenv(key, "")
	}

	viper.Reset()
	restore := commands.SetTerminal(terminal, secret)
	defer restore()

	root := commands.NewRootCommand("1.2.3", "abc1234", "2026-10-01")

	var stdout, stderr bytes.Buffer

	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", configFile}, args...))

	err := root.ExecuteContext(context.Background())

	return cliRun{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// writeConfig writes a config file with a single "test" API.
func writeConfig(t *testing.T, endpoint string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	content := fmt.Sprintf("current_api: test\noutput: table\napis:\n  test:\n    endpoint: %s\n    token: %s\n", endpoint, testToken)

	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func readConfig(t *testing.T, path string) *commands.Config {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var config commands.Config
	require.NoError(t, yaml.Unmarshal(data, &config))

	return &config
}

// fakeGHE is a fake GitHub Enterprise Server recording every request.
type fakeGHE struct {
	*httptest.Server

	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
}

func newFakeGHE(t *testing.T, mux *http.ServeMux) *fakeGHE {
	t.Helper()

	fake := &fakeGHE{}
	fake.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		_, _ = body.ReadFrom(r.Body)

		fake.mu.Lock()
		fake.requests = append(fake.requests, r.Clone(context.Background()))
		fake.bodies = append(fake.bodies, body.String())
		fake.mu.Unlock()

		r.Body = http.NoBody
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(fake.Close)

	return fake
}

func (f *fakeGHE) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.requests)
}

func (f *fakeGHE) request(i int) (*http.Request, string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.requests[i], f.bodies[i]
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
}
