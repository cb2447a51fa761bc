package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected config to be non-nil")
	}

	if cfg.Server.Port != 7777 {
		t.Errorf("expected default port 7777, got %d", cfg.Server.Port)
	}

	if cfg.Server.Host != "localhost" {
		t.Errorf("expected default host 'localhost', got %s", cfg.Server.Host)
	}

	if cfg.State.Driver != "sqlite" {
		t.Errorf("expected default state driver 'sqlite', got %s", cfg.State.Driver)
	}

	if cfg.State.DSN != "shellkit.db" {
		t.Errorf("expected default state dsn 'shellkit.db', got %s", cfg.State.DSN)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	configContent := `
project_name: test-session
server:
  port: 8080
  host: 0.0.0.0
state:
  driver: postgres
  dsn: "postgres://localhost/testdb"
mounts:
  - prefix: /tmp
    backend: local
    root: /var/tmp/shellkit
remotes:
  - name: files
    transport: stdio
    address: "mcp-server-files --root /data"
`
	os.WriteFile("shellkit.yml", []byte(configContent), 0644)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	if cfg.ProjectName != "test-session" {
		t.Errorf("expected project name 'test-session', got %s", cfg.ProjectName)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}

	if cfg.State.Driver != "postgres" {
		t.Errorf("expected state driver 'postgres', got %s", cfg.State.Driver)
	}

	if len(cfg.Mounts) != 1 || cfg.Mounts[0].Prefix != "/tmp" {
		t.Errorf("expected one mount at /tmp, got %+v", cfg.Mounts)
	}

	if len(cfg.Remotes) != 1 || cfg.Remotes[0].Name != "files" {
		t.Errorf("expected one remote named 'files', got %+v", cfg.Remotes)
	}
}

func TestLoadRejectsBadMountPrefix(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	os.WriteFile("shellkit.yml", []byte("mounts:\n  - prefix: tmp\n    backend: local\n"), 0644)

	if _, err := Load(); err == nil {
		t.Error("expected error for mount prefix without leading '/'")
	}
}

func TestLoadRejectsBadMountBackend(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	os.WriteFile("shellkit.yml", []byte("mounts:\n  - prefix: /tmp\n    backend: nonsense\n"), 0644)

	if _, err := Load(); err == nil {
		t.Error("expected error for unknown mount backend")
	}
}

func TestGetStateDSN(t *testing.T) {
	os.Setenv("SHELLKIT_STATE_DSN", "sqlite:///tmp/env-session.db")
	defer os.Unsetenv("SHELLKIT_STATE_DSN")

	if dsn := GetStateDSN(); dsn != "sqlite:///tmp/env-session.db" {
		t.Errorf("expected DSN from environment, got %s", dsn)
	}
}

func TestInProject(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	if InProject() {
		t.Error("expected InProject to return false in non-project directory")
	}

	os.WriteFile("shellkit.yml", []byte(""), 0644)

	if !InProject() {
		t.Error("expected InProject to return true in project directory")
	}
}

func TestGetProjectRoot(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	defer os.Chdir(oldWd)

	os.WriteFile(filepath.Join(tmpDir, "shellkit.yml"), []byte(""), 0644)

	subDir := filepath.Join(tmpDir, "src", "deep", "nested")
	os.MkdirAll(subDir, 0755)
	os.Chdir(subDir)

	root, err := GetProjectRoot()
	if err != nil {
		t.Fatalf("expected to find project root, got error: %v", err)
	}

	resolvedRoot, _ := filepath.EvalSymlinks(root)
	resolvedTmpDir, _ := filepath.EvalSymlinks(tmpDir)

	if resolvedRoot != resolvedTmpDir {
		t.Errorf("expected project root to be %s, got %s", resolvedTmpDir, resolvedRoot)
	}
}

func TestGetProjectRootNotInProject(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	_, err := GetProjectRoot()
	if err == nil {
		t.Error("expected error when not in a project, got nil")
	}
}
