package e2e

import (
	"archive/tar"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/twitchdesk/twitchdesk-desktop/internal/update"
)

const (
	binaryName   = "twitchdesk"
	buildVersion = "1.2.0"
)

var binaryPath string

// TestMain builds the binary with a release version stamped in
func TestMain(m *testing.M) {
	cmd := exec.Command("go", "build",
		"-ldflags", "-X main.version="+buildVersion,
		"-o", binaryName, "../../cmd/twitchdesk")
	if err := cmd.Run(); err != nil {
		panic("failed to build binary: " + err.Error())
	}

	binaryPath, _ = filepath.Abs(binaryName)

	code := m.Run()

	os.Remove(binaryName)

	os.Exit(code)
}

type testEnv struct {
	home    string
	install string
	env     []string
}

// setupTestEnv isolates the per-user cache and config directories
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("bundles in these tests use shell scripts")
	}

	home := t.TempDir()
	e := &testEnv{home: home, install: filepath.Join(home, "install")}
	if err := os.MkdirAll(e.install, 0o755); err != nil {
		t.Fatal(err)
	}

	e.env = append(os.Environ(),
		"HOME="+home,
		"XDG_CACHE_HOME="+filepath.Join(home, ".cache"),
		"XDG_CONFIG_HOME="+filepath.Join(home, ".config"),
		"TWITCHDESK_DISABLE_UPDATES=",
		"TWITCHDESK_UPDATE_REPO=",
		"TWITCHDESK_UPDATE_CONFIG=",
	)
	return e
}

// cacheRoot mirrors os.UserCacheDir for the isolated HOME
func (e *testEnv) cacheRoot() string {
	if runtime.GOOS == "darwin" {
		return filepath.Join(e.home, "Library", "Caches", "TwitchDesk", "updates")
	}
	return filepath.Join(e.home, ".cache", "TwitchDesk", "updates")
}

func (e *testEnv) setConfig(t *testing.T, apiBase string) {
	t.Helper()
	path := filepath.Join(e.home, "updater.toml")
	content := "api_base_url = \"" + apiBase + "\"\nretry_interval_ms = 50\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	e.env = append(e.env, "TWITCHDESK_UPDATE_CONFIG="+path)
}

// run executes bin with args and returns stdout, stderr and the exit code
func (e *testEnv) run(t *testing.T, bin string, args ...string) (string, string, int) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Env = e.env
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	code := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	} else if err != nil {
		t.Fatalf("failed to run %s: %v", bin, err)
	}
	return stdout.String(), stderr.String(), code
}

// relaunchScript records its arguments, one per line, into argsFile
func relaunchScript(argsFile, label string) string {
	return "#!/bin/sh\n# " + label + "\nfor a in \"$@\"; do echo \"$a\"; done > '" + argsFile + "'\n"
}

type member struct {
	name string
	body string
}

func writeBundle(t *testing.T, path string, members ...member) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for _, m := range members {
		hdr := &tar.Header{Name: m.name, Mode: 0o755, Size: int64(len(m.body)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(m.body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
}

// waitForFile polls until path exists or the deadline passes
func waitForFile(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if b, err := os.ReadFile(path); err == nil && len(b) > 0 {
			return string(b)
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", path)
	return ""
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(b)
}

func TestVersionCommand(t *testing.T) {
	e := setupTestEnv(t)

	stdout, _, code := e.run(t, binaryPath, "version")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stdout, "twitchdesk version "+buildVersion) {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestApplyMode_Success(t *testing.T) {
	e := setupTestEnv(t)
	argsFile := filepath.Join(e.home, "relaunch-args")
	target := filepath.Join(e.install, "twitchdesk-desktop")
	if err := os.WriteFile(target, []byte("old build"), 0o755); err != nil {
		t.Fatal(err)
	}

	bundle := filepath.Join(e.home, "bundle.tar.gz")
	writeBundle(t, bundle,
		member{"twitchdesk-desktop", relaunchScript(argsFile, "1.3.0")},
		member{"twitchdesk-preview", "preview 1.3.0"},
	)

	_, stderr, code := e.run(t, binaryPath,
		"--apply-update", bundle, "--target-exe", target,
		"--", "--channel", "foo bar", "--skip-update")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
	}

	got := waitForFile(t, argsFile)
	if got != "--channel\nfoo bar\n--skip-update\n" {
		t.Errorf("relaunch args = %q", got)
	}
	if !strings.Contains(readFile(t, target), "1.3.0") {
		t.Error("target was not replaced")
	}
	if readFile(t, target+".old") != "old build" {
		t.Error("backup missing")
	}
	if readFile(t, filepath.Join(e.install, "twitchdesk-preview")) != "preview 1.3.0" {
		t.Error("preview not installed")
	}

	log := readFile(t, filepath.Join(e.cacheRoot(), "helper", "apply.log"))
	if !strings.Contains(log, "update applied") {
		t.Errorf("apply.log = %q", log)
	}
}

func TestApplyMode_MissingMainExecutable(t *testing.T) {
	e := setupTestEnv(t)
	target := filepath.Join(e.install, "twitchdesk-desktop")
	if err := os.WriteFile(target, []byte("old build"), 0o755); err != nil {
		t.Fatal(err)
	}

	bundle := filepath.Join(e.home, "bundle.tar.gz")
	writeBundle(t, bundle, member{"twitchdesk-preview", "preview 1.3.0"})

	_, stderr, code := e.run(t, binaryPath, "--apply-update", bundle, "--target-exe", target, "--")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.Contains(stderr, "failed to stage update") {
		t.Errorf("stderr = %q", stderr)
	}
	if readFile(t, target) != "old build" {
		t.Error("target modified by aborted apply")
	}
	if _, err := os.Stat(target + ".old"); !os.IsNotExist(err) {
		t.Errorf("backup created by aborted apply (err = %v)", err)
	}
}

func TestApplyMode_MalformedInvocation(t *testing.T) {
	e := setupTestEnv(t)

	_, stderr, code := e.run(t, binaryPath, "--apply-update")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.Contains(stderr, "invalid apply-update invocation") {
		t.Errorf("stderr = %q", stderr)
	}
}

func newReleaseServer(t *testing.T, tag string, bundle string) *httptest.Server {
	t.Helper()
	asset := update.Detect().AssetName()
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/twitchdesk/twitchdesk-desktop/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(update.Release{
			TagName: tag,
			Assets:  []update.Asset{{Name: asset, DownloadURL: "http://" + r.Host + "/download/" + asset}},
		})
	})
	mux.HandleFunc("/download/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, bundle)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestUpdateCheck_JSON(t *testing.T) {
	e := setupTestEnv(t)
	srv := newReleaseServer(t, "v1.3.0", filepath.Join(e.home, "unused"))
	e.setConfig(t, srv.URL)

	stdout, stderr, code := e.run(t, binaryPath, "update", "check", "-o", "json")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
	}

	var result update.Result
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if !result.Available || result.LatestVersion != "1.3.0" || result.CurrentVersion != buildVersion {
		t.Errorf("result = %+v", result)
	}
}

// A normal start finds a newer release, hands off to the helper and exits;
// the helper replaces the installation and relaunches it with the original
// arguments.
func TestStartup_UpdatesAndRelaunches(t *testing.T) {
	e := setupTestEnv(t)
	argsFile := filepath.Join(e.home, "relaunch-args")

	installed := filepath.Join(e.install, "twitchdesk-desktop")
	self, err := os.ReadFile(binaryPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(installed, self, 0o755); err != nil {
		t.Fatal(err)
	}

	bundle := filepath.Join(e.home, "served", update.Detect().AssetName())
	writeBundle(t, bundle,
		member{"twitchdesk-desktop", relaunchScript(argsFile, "1.3.0")},
		member{"twitchdesk-preview", "preview 1.3.0"},
	)
	srv := newReleaseServer(t, "v1.3.0", bundle)
	e.setConfig(t, srv.URL)

	_, stderr, code := e.run(t, installed, "--channel", "foo")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
	}

	got := waitForFile(t, argsFile)
	if got != "--channel\nfoo\n--skip-update\n" {
		t.Errorf("relaunch args = %q", got)
	}
	if !strings.Contains(readFile(t, installed), "1.3.0") {
		t.Error("installation was not replaced")
	}

	cached := filepath.Join(e.cacheRoot(), "1.3.0", update.Detect().AssetName())
	if _, err := os.Stat(cached); err != nil {
		t.Errorf("bundle not cached: %v", err)
	}
	helper := filepath.Join(e.cacheRoot(), "helper", "twitchdesk-desktop-updater")
	if _, err := os.Stat(helper); err != nil {
		t.Errorf("helper not staged: %v", err)
	}
}

func TestStartup_DisabledSkipsCheck(t *testing.T) {
	e := setupTestEnv(t)
	e.env = append(e.env, "TWITCHDESK_DISABLE_UPDATES=1")

	requests := make(chan string, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r.URL.Path
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	e.setConfig(t, srv.URL)

	cmd := exec.Command(binaryPath, "--channel", "foo")
	cmd.Env = e.env
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(500 * time.Millisecond)
	_ = cmd.Process.Signal(os.Interrupt)
	_ = cmd.Wait()

	select {
	case path := <-requests:
		t.Errorf("feed contacted at %s with updates disabled", path)
	default:
	}
}
