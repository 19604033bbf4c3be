package startup

import (
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"video-clipper/internal/config"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
	if info.OS != runtime.GOOS || info.Arch != runtime.GOARCH {
		t.Errorf("OS/Arch = %s/%s, want %s/%s", info.OS, info.Arch, runtime.GOOS, runtime.GOARCH)
	}
}

func TestGetRoutes(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/upload", func(http.ResponseWriter, *http.Request) {}).Methods(http.MethodPost)
	router.HandleFunc("/config", func(http.ResponseWriter, *http.Request) {}).Methods(http.MethodGet)

	routes, err := GetRoutes(router)
	if err != nil {
		t.Fatalf("GetRoutes() error: %v", err)
	}

	found := map[string]string{}
	for _, r := range routes {
		found[r.Path] = r.Method
	}

	if found["/upload"] != http.MethodPost {
		t.Errorf("route /upload method = %q, want POST", found["/upload"])
	}
	if found["/config"] != http.MethodGet {
		t.Errorf("route /config method = %q, want GET", found["/config"])
	}
}

func TestEnsureDirectoryCreates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "new", "nested")

	if err := ensureDirectory(dir, "test"); err != nil {
		t.Fatalf("ensureDirectory() error: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}
	if !info.IsDir() {
		t.Error("created path is not a directory")
	}
}

func TestEnsureDirectoryRejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plainfile")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ensureDirectory(file, "test"); err == nil {
		t.Error("ensureDirectory() accepted a plain file")
	}
}

func TestTestWriteAccess(t *testing.T) {
	if err := testWriteAccess(t.TempDir()); err != nil {
		t.Errorf("testWriteAccess() error on writable dir: %v", err)
	}

	if err := testWriteAccess(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("testWriteAccess() succeeded on missing dir")
	}
}

func TestPrepareDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Defaults()
	cfg.Server.UploadDir = filepath.Join(base, "uploads")
	cfg.Server.OutputDir = filepath.Join(base, "output")

	if err := PrepareDirectories(&cfg); err != nil {
		t.Fatalf("PrepareDirectories() error: %v", err)
	}

	for _, dir := range []string{cfg.Server.UploadDir, cfg.Server.OutputDir} {
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("directory %s missing: %v", dir, err)
		}
	}
}
