package cli_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/storecache/internal/cli"
)

type testEnv struct {
	home string
	vars map[string]string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := t.TempDir()
	return &testEnv{
		home: home,
		vars: map[string]string{"STORECACHE_HOME": home},
	}
}

func (e *testEnv) lookup(key string) (string, bool) {
	v, ok := e.vars[key]
	return v, ok
}

// run executes the CLI with args and returns combined output.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	root := cli.NewRootCmdWithArgs("1.2.3", e.lookup)
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, out)
	return out
}

func TestSetGetRoundTripAcrossInvocations(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "set", "products:featured", `["p1","p2"]`, "--ttl", "10m")
	assert.Contains(t, out, "cached products:featured for 10m")

	out = env.mustRun(t, "get", "products:featured")
	assert.JSONEq(t, `["p1","p2"]`, strings.TrimSpace(out))

	_, err := os.Stat(filepath.Join(env.home, "data", "storecache.json"))
	require.NoError(t, err, "cache should be persisted under the data directory")

	_, err = os.Stat(filepath.Join(env.home, "data", ".gitignore"))
	assert.NoError(t, err, "data directory should carry a .gitignore")
}

func TestSetNonJSONStoresString(t *testing.T) {
	env := newTestEnv(t)

	env.mustRun(t, "set", "banner", "Summer sale")
	out := env.mustRun(t, "get", "banner")
	assert.Equal(t, "\"Summer sale\"\n", out)
}

func TestGetMiss(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "get", "absent")
	require.Error(t, err)
	assert.ErrorIs(t, err, cli.ErrCacheMiss)
}

func TestFailingCommandClosesSession(t *testing.T) {
	env := newTestEnv(t)
	logFile := filepath.Join(env.home, "logs", "storecache.log")
	cfg := fmt.Sprintf("cache:\n  prune_interval: 1h\nlogging:\n  level: debug\n  format: json\n  file: %s\n", logFile)
	require.NoError(t, os.WriteFile(filepath.Join(env.home, "config.yaml"), []byte(cfg), 0o600))

	done := make(chan error, 1)
	go func() {
		_, err := env.run(t, "get", "absent")
		done <- err
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, cli.ErrCacheMiss)
	case <-time.After(5 * time.Second):
		t.Fatal("get did not return")
	}

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "command finished", "session cleanup runs after a failing command")
}

func TestHasDeleteClear(t *testing.T) {
	env := newTestEnv(t)

	env.mustRun(t, "set", "a", "1")
	env.mustRun(t, "set", "b", "2")

	assert.Equal(t, "true\n", env.mustRun(t, "has", "a"))
	assert.Equal(t, "false\n", env.mustRun(t, "has", "zzz"))

	env.mustRun(t, "delete", "a")
	assert.Equal(t, "false\n", env.mustRun(t, "has", "a"))

	out := env.mustRun(t, "clear")
	assert.Contains(t, out, "cleared 1 entries")
	assert.Equal(t, "false\n", env.mustRun(t, "has", "b"))

	_, err := os.Stat(filepath.Join(env.home, "data", "storecache.json"))
	assert.True(t, os.IsNotExist(err), "clear should remove the persisted file")
}

func TestHasQuiet(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "set", "a", "1")

	out, err := env.run(t, "has", "a", "--quiet")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = env.run(t, "has", "b", "-q")
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
	assert.True(t, exitErr.Silent)
}

func TestSetRejectsBadTTL(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "set", "a", "1", "--ttl", "soon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--ttl")
}

func TestMaxItemsFlagEvictsOldest(t *testing.T) {
	env := newTestEnv(t)

	env.mustRun(t, "set", "first", "1", "--max-items", "2")
	env.mustRun(t, "set", "second", "2", "--max-items", "2")
	env.mustRun(t, "set", "third", "3", "--max-items", "2")

	assert.Equal(t, "false\n", env.mustRun(t, "has", "first"))
	assert.Equal(t, "true\n", env.mustRun(t, "has", "second"))
	assert.Equal(t, "true\n", env.mustRun(t, "has", "third"))
}

func TestNamespaceFlag(t *testing.T) {
	env := newTestEnv(t)

	env.mustRun(t, "set", "k", "1", "--namespace", "catalog")
	assert.Equal(t, "false\n", env.mustRun(t, "has", "k"))
	assert.Equal(t, "true\n", env.mustRun(t, "has", "k", "--namespace", "catalog"))

	_, err := os.Stat(filepath.Join(env.home, "data", "catalog.json"))
	assert.NoError(t, err)
}

func TestNoPersist(t *testing.T) {
	env := newTestEnv(t)

	env.mustRun(t, "set", "k", "1", "--no-persist")
	assert.Equal(t, "false\n", env.mustRun(t, "has", "k"))
}

func TestEnvDisablesPersistence(t *testing.T) {
	env := newTestEnv(t)
	env.vars["STORECACHE_CACHE_ENABLED"] = "false"

	env.mustRun(t, "set", "k", "1")
	_, err := os.Stat(filepath.Join(env.home, "data", "storecache.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestListAndStats(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "set", "products:1", `{"id":1}`)
	env.mustRun(t, "set", "products:2", `{"id":2}`)

	out := env.mustRun(t, "list")
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "products:1")
	assert.Contains(t, out, "products:2")

	out = env.mustRun(t, "list", "--output", "json")
	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "products:1", entries[0]["key"])

	out = env.mustRun(t, "stats")
	assert.Contains(t, out, "Entries:           2 / 100")
	assert.Contains(t, out, "Namespace:         storecache")

	out = env.mustRun(t, "stats", "-o", "json")
	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.InDelta(t, 2, stats["size"], 0)

	_, err := env.run(t, "list", "--output", "xml")
	assert.Error(t, err)
}

func TestStatsFormatsLargeCounts(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "stats", "--max-items", "25000")
	assert.Contains(t, out, "0 / 25,000")
}

func TestInspectFallsBackToList(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "set", "k", "1")

	out := env.mustRun(t, "inspect")
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "k")
}

func TestPrune(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "set", "k", "1")

	out := env.mustRun(t, "prune")
	assert.Contains(t, out, "pruned 0 expired entries")
}

func newStorefront(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/products":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"category":"` + r.URL.Query().Get("category") + `"}`))
		case "/banners":
			_, _ = w.Write([]byte(`["spring"]`))
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestFetchCachesResponse(t *testing.T) {
	srv, calls := newStorefront(t)
	env := newTestEnv(t)
	env.vars["STORECACHE_API_BASE_URL"] = srv.URL

	out := env.mustRun(t, "fetch", "/products", "--query", "category=shoes")
	assert.JSONEq(t, `{"category":"shoes"}`, strings.TrimSpace(out))
	assert.Equal(t, int32(1), calls.Load())

	out = env.mustRun(t, "fetch", "/products", "--query", "category=shoes")
	assert.JSONEq(t, `{"category":"shoes"}`, strings.TrimSpace(out))
	assert.Equal(t, int32(1), calls.Load(), "second fetch should be served from cache")

	env.mustRun(t, "fetch", "/products", "--query", "category=hats")
	assert.Equal(t, int32(2), calls.Load(), "different query is a different key")
}

func TestFetchWithExplicitKey(t *testing.T) {
	srv, _ := newStorefront(t)
	env := newTestEnv(t)
	env.vars["STORECACHE_API_BASE_URL"] = srv.URL

	env.mustRun(t, "fetch", "/banners", "--key", "banners")
	out := env.mustRun(t, "get", "banners")
	assert.JSONEq(t, `["spring"]`, strings.TrimSpace(out))
}

func TestFetchErrorIsNotCached(t *testing.T) {
	srv, calls := newStorefront(t)
	env := newTestEnv(t)
	env.vars["STORECACHE_API_BASE_URL"] = srv.URL

	_, err := env.run(t, "fetch", "/missing", "--key", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	assert.Equal(t, "false\n", env.mustRun(t, "has", "missing"))
	_, err = env.run(t, "fetch", "/missing", "--key", "missing")
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestWarm(t *testing.T) {
	srv, calls := newStorefront(t)
	env := newTestEnv(t)
	env.vars["STORECACHE_API_BASE_URL"] = srv.URL

	manifest := filepath.Join(t.TempDir(), "warm.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(`requests:
  - path: /products
    key: shoes
    query: {category: shoes}
    ttl: 10m
  - path: /products
    key: hats
    query: {category: hats}
  - path: /banners
    key: banners
`), 0o600))

	out := env.mustRun(t, "warm", manifest)
	assert.Contains(t, out, "warmed 3 entries (3 fetched, 0 already cached)")
	assert.Equal(t, int32(3), calls.Load())

	out = env.mustRun(t, "warm", manifest)
	assert.Contains(t, out, "warmed 3 entries (0 fetched, 3 already cached)")
	assert.Equal(t, int32(3), calls.Load())

	out = env.mustRun(t, "get", "hats")
	assert.JSONEq(t, `{"category":"hats"}`, strings.TrimSpace(out))
}

func TestWarmStopsOnError(t *testing.T) {
	srv, _ := newStorefront(t)
	env := newTestEnv(t)
	env.vars["STORECACHE_API_BASE_URL"] = srv.URL

	manifest := filepath.Join(t.TempDir(), "warm.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(`requests:
  - path: /missing
`), 0o600))

	_, err := env.run(t, "warm", manifest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warming /missing")
}

func TestLoadWarmManifest(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		return p
	}

	_, err := cli.LoadWarmManifest(write("empty.yaml", "requests: []\n"))
	require.ErrorIs(t, err, cli.ErrEmptyManifest)

	_, err = cli.LoadWarmManifest(write("nopath.yaml", "requests:\n  - key: x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")

	_, err = cli.LoadWarmManifest(write("badttl.yaml", "requests:\n  - path: /a\n    ttl: later\n"))
	require.Error(t, err)

	m, err := cli.LoadWarmManifest(write("ok.yaml", "requests:\n  - path: /a\n    scope: en-US\n"))
	require.NoError(t, err)
	require.Len(t, m.Requests, 1)
	assert.Equal(t, "en-US", m.Requests[0].Scope)

	_, err = cli.LoadWarmManifest(filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err)
}

func TestConfigCommands(t *testing.T) {
	env := newTestEnv(t)
	env.vars["STORECACHE_API_TOKEN"] = "secret-token"

	out := env.mustRun(t, "config", "path")
	assert.Equal(t, filepath.Join(env.home, "config.yaml")+"\n", out)

	out = env.mustRun(t, "config", "init")
	assert.Contains(t, out, "Configuration written to")
	_, err := os.Stat(filepath.Join(env.home, "config.yaml"))
	require.NoError(t, err)

	_, err = env.run(t, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	env.mustRun(t, "config", "init", "--force")

	out = env.mustRun(t, "config", "show")
	assert.Contains(t, out, "max_items: 100")
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "secret-token")
}

func TestConfigInitAtExplicitPath(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")

	env.mustRun(t, "config", "init", "--config", path)
	_, err := os.Stat(path)
	require.NoError(t, err)

	// Other commands require an explicit config to exist.
	_, err = env.run(t, "get", "k", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestConfigFileOverridesDefaults(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.home, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  max_items: 7\n  namespace: shop\n"), 0o600))

	out := env.mustRun(t, "stats")
	assert.Contains(t, out, "Entries:           0 / 7")
	assert.Contains(t, out, "Namespace:         shop")
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "version")
	assert.Equal(t, "storecache 1.2.3 (cache format 1.0.0)\n", out)
}

func TestInvalidMaxItems(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "stats", "--max-items", "-1")
	assert.Error(t, err)
}

func TestListSortAndLimit(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "set", "b", `"medium"`, "--ttl", "1h")
	env.mustRun(t, "set", "a", `"x"`, "--ttl", "10m")
	env.mustRun(t, "set", "c", `"the longest value"`, "--ttl", "2h")

	listKeys := func(args ...string) []string {
		out := env.mustRun(t, append([]string{"list", "-o", "json"}, args...)...)
		var entries []map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &entries))
		keys := make([]string, len(entries))
		for i, e := range entries {
			keys[i], _ = e["key"].(string)
		}
		return keys
	}

	assert.Equal(t, []string{"a", "b", "c"}, listKeys("--sort", "key"))
	assert.Equal(t, []string{"c", "b", "a"}, listKeys("--sort", "size:desc"))
	assert.Equal(t, []string{"a", "b"}, listKeys("--sort", "expires", "--limit", "2"))
	assert.Equal(t, []string{"b", "c"}, listKeys("--sort", "key", "--offset", "1"))

	_, err := env.run(t, "list", "--sort", "weight")
	assert.Error(t, err)
	_, err = env.run(t, "list", "--limit", "-1")
	assert.Error(t, err)
}

func TestClearWithoutTerminalSkipsPrompt(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "set", "k", "1")

	out := env.mustRun(t, "clear")
	assert.Contains(t, out, "cleared 1 entries")
	assert.NotContains(t, out, "[y/N]")
}
