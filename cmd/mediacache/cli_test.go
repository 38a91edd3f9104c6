package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"mediacache/internal/config"
	"mediacache/internal/execx"
	"mediacache/internal/logging"
	"mediacache/internal/processor"
	"mediacache/internal/testsupport"
)

const testTemplates = `
[[template]]
key = "raw"
type = "original"
revision = 2
storage = "default"
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	runner     *execx.FakeRunner
}

func setupCLITestEnv(t *testing.T, mutate ...func(*config.Config)) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("NO_COLOR", "1")
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	testsupport.WriteBytes(t, cfg.Paths.TemplatesFile, []byte(testTemplates))
	for _, fn := range mutate {
		fn(cfg)
	}

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		runner: &execx.FakeRunner{Handler: func(_ context.Context, name string, args []string) ([]byte, error) {
			return []byte(filepath.Base(name) + " version 1.0\nbuilt with stubs\n"), nil
		}},
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	testsupport.WriteBytes(t, path, data)
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	ctx := newCommandContext()
	ctx.runner = e.runner
	ctx.newLogger = func(*config.Config) (*slog.Logger, error) { return logging.NewNop(), nil }

	cmd := newRootCommandWith(ctx)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	if closeErr := ctx.close(); closeErr != nil {
		t.Fatalf("close runtime: %v", closeErr)
	}
	return stdout.String(), err
}

func (e *cliTestEnv) addFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(testsupport.VolumeRoot(e.cfg), name)
	testsupport.WriteBytes(t, path, content)
	return path
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\n%s", needle, haystack)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, err = env.run(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected config init to refuse overwriting")
	}
}

func TestConfigShowJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "--json", "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	var decoded config.Config
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode config: %v\n%s", err, out)
	}
	if decoded.Paths.TemplatesFile != env.cfg.Paths.TemplatesFile {
		t.Fatalf("templates file = %q, want %q", decoded.Paths.TemplatesFile, env.cfg.Paths.TemplatesFile)
	}
}

func TestFilesAddQueuesAndProcessStores(t *testing.T) {
	env := setupCLITestEnv(t)
	path := env.addFile(t, "bundle.zip", []byte("PK\x03\x04 archive"))

	out, err := env.run(t, "--json", "files", "add", path, "--template", "raw")
	if err != nil {
		t.Fatalf("files add: %v", err)
	}
	var added struct {
		Files []fileView `json:"files"`
		Items []struct {
			ID               string `json:"id"`
			TemplateRevision int    `json:"templateRevision"`
			CacheStatus      string `json:"cacheStatus"`
			QueueStatus      string `json:"queueStatus"`
		} `json:"items"`
	}
	if err := json.Unmarshal([]byte(out), &added); err != nil {
		t.Fatalf("decode files add: %v\n%s", err, out)
	}
	if len(added.Files) != 1 || len(added.Items) != 1 {
		t.Fatalf("unexpected files add result: %+v", added)
	}
	item := added.Items[0]
	if item.TemplateRevision != 2 || item.CacheStatus != "pending" || item.QueueStatus != "queued" {
		t.Fatalf("unexpected queued item: %+v", item)
	}

	out, err = env.run(t, "process")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	requireContains(t, out, item.ID+" ok via original")
	requireContains(t, out, "Processed 1 items: 1 completed, 0 failed, 0 skipped")

	out, err = env.run(t, "items", "show", item.ID)
	if err != nil {
		t.Fatalf("items show: %v", err)
	}
	requireContains(t, out, "Status:      ok")
	requireContains(t, out, "Stored at:")

	out, err = env.run(t, "process")
	if err != nil {
		t.Fatalf("second process: %v", err)
	}
	requireContains(t, out, "Queue is empty")

	out, err = env.run(t, "health")
	if err != nil {
		t.Fatalf("health after run: %v\n%s", err, out)
	}
	requireContains(t, out, "[OK]")
}

func TestEnqueueUsesLatestVersion(t *testing.T) {
	env := setupCLITestEnv(t)
	first := env.addFile(t, "a.zip", []byte("one"))
	second := env.addFile(t, "b.zip", []byte("two"))

	out, err := env.run(t, "--json", "files", "add", first)
	if err != nil {
		t.Fatalf("files add: %v", err)
	}
	var added struct {
		Files []fileView `json:"files"`
	}
	if err := json.Unmarshal([]byte(out), &added); err != nil {
		t.Fatalf("decode: %v", err)
	}
	fileID := added.Files[0].ID

	if _, err := env.run(t, "files", "add", second, "--file-id", fileID); err != nil {
		t.Fatalf("add version: %v", err)
	}

	out, err = env.run(t, "enqueue", fileID, "raw")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	requireContains(t, out, fileID+"@2:raw#2")

	if _, err := env.run(t, "enqueue", fileID, "missing-template"); err == nil {
		t.Fatal("expected unknown template to fail")
	}
}

func TestItemsListRetryAndDelete(t *testing.T) {
	env := setupCLITestEnv(t)
	path := env.addFile(t, "bundle.zip", []byte("zip"))
	if _, err := env.run(t, "files", "add", path, "-t", "raw"); err != nil {
		t.Fatalf("files add: %v", err)
	}

	out, err := env.run(t, "--json", "items", "list", "--status", "pending")
	if err != nil {
		t.Fatalf("items list: %v", err)
	}
	var listed struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Items) != 1 {
		t.Fatalf("expected one pending item, got %d", len(listed.Items))
	}
	id := listed.Items[0].ID

	out, err = env.run(t, "items", "list")
	if err != nil {
		t.Fatalf("items list table: %v", err)
	}
	requireContains(t, out, id)
	requireContains(t, out, "pending")

	if _, err := env.run(t, "items", "list", "--status", "bogus"); err == nil {
		t.Fatal("expected unknown status to fail")
	}

	out, err = env.run(t, "items", "retry")
	if err != nil {
		t.Fatalf("items retry: %v", err)
	}
	requireContains(t, out, "No failed items to retry")

	out, err = env.run(t, "items", "delete", id)
	if err != nil {
		t.Fatalf("items delete: %v", err)
	}
	requireContains(t, out, "Deleted cache item "+id)

	out, err = env.run(t, "items", "list")
	if err != nil {
		t.Fatalf("items list after delete: %v", err)
	}
	requireContains(t, out, "No cache items")
}

func TestTemplatesList(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "templates", "list")
	if err != nil {
		t.Fatalf("templates list: %v", err)
	}
	requireContains(t, out, "raw")
	requireContains(t, out, "original")
	requireContains(t, out, "default")
}

func TestHealthNeverRun(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "health")
	if !errors.Is(err, errUnhealthy) {
		t.Fatalf("expected errUnhealthy, got %v", err)
	}
	requireContains(t, out, processor.ProblemNeverRun)
}

func TestProcessRefusedWhileLocked(t *testing.T) {
	env := setupCLITestEnv(t)

	unlock, err := processor.NewFlockLocker(env.cfg.Paths.LockDir).TryLock()
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer unlock.Unlock()

	_, err = env.run(t, "process")
	if err == nil || !strings.Contains(err.Error(), "another processor is running") {
		t.Fatalf("expected lock conflict, got %v", err)
	}
}

func TestDoctorReportsTools(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "doctor")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "FFmpeg")
	requireContains(t, out, "ffmpeg version 1.0")
	requireContains(t, out, "Integrity")
	if len(env.runner.Calls()) == 0 {
		t.Fatal("expected version probes through the runner")
	}
}

func TestRunPeriodicallyStopsOnCancel(t *testing.T) {
	env := setupCLITestEnv(t)
	cmdCtx := newCommandContext()
	cmdCtx.configFlag = env.configPath
	cmdCtx.runner = env.runner
	cmdCtx.newLogger = func(*config.Config) (*slog.Logger, error) { return logging.NewNop(), nil }
	rt, err := cmdCtx.ensureRuntime()
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	defer cmdCtx.close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runPeriodically(ctx, rt, 10*time.Millisecond)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}

	if _, ok, err := rt.props.GetTime(context.Background(), processor.PropertyNamespace, processor.PropertyLastRun); err != nil || ok {
		t.Fatalf("empty queue runs must not record a last run (ok=%v err=%v)", ok, err)
	}
}

func TestLogsCommandFiltersByItem(t *testing.T) {
	env := setupCLITestEnv(t)
	logPath := filepath.Join(env.cfg.Paths.LogDir, logging.LogFileName)
	testsupport.WriteBytes(t, logPath, []byte("INFO  processor item=5e1f: start\nINFO  processor item=9c2d: start\nINFO  processor item=5e1f: done\n"))

	out, err := env.run(t, "logs", "-n", "5", "--item", "5e1f")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "INFO  processor item=5e1f: start\nINFO  processor item=5e1f: done\n" {
		t.Fatalf("unexpected logs output: %q", out)
	}
}

func TestProcessSendsRunSummary(t *testing.T) {
	bodies := make(chan string, 4)
	ntfy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies <- string(body)
	}))
	t.Cleanup(ntfy.Close)

	env := setupCLITestEnv(t, func(cfg *config.Config) {
		cfg.Notifications.NtfyTopic = ntfy.URL
	})
	path := env.addFile(t, "bundle.zip", []byte("zip"))
	if _, err := env.run(t, "files", "add", path, "-t", "raw"); err != nil {
		t.Fatalf("files add: %v", err)
	}
	if _, err := env.run(t, "process"); err != nil {
		t.Fatalf("process: %v", err)
	}

	select {
	case body := <-bodies:
		requireContains(t, body, "1 completed, 0 failed, 0 skipped")
	default:
		t.Fatal("expected a run summary notification")
	}

	out, err := env.run(t, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Test notification sent")
}

func TestTestNotifyRequiresTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := env.run(t, "test-notify"); err == nil {
		t.Fatal("expected missing topic to fail")
	}
}
