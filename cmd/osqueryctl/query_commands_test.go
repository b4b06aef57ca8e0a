//go:build !windows

package main

import (
	"encoding/json"
	"errors"
	"testing"

	"osqueryctl/internal/client"
	"osqueryctl/internal/testsupport"
)

func TestQueryRendersTable(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"query", "select * from time"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	requireContains(t, out, "unix_time")
	requireContains(t, out, "1700000000")
	requireContains(t, out, "UTC")

	queries := env.daemon.Queries()
	if len(queries) != 1 || queries[0] != "select * from time" {
		t.Fatalf("daemon saw %v", queries)
	}
}

func TestQueryJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"query", "--json", "select * from time"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("query --json: %v", err)
	}
	var rows []map[string]string
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if len(rows) != 1 || rows[0]["timezone"] != "UTC" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestQueryEmptyResultJSONIsArray(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithRows(nil))

	out, _, err := runCLI(t, []string{"query", "--json", "select * from time where 0"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("query --json: %v", err)
	}
	requireContains(t, out, "[]")
}

func TestQueryReportsFailedStatus(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStatus(1, "no such table: nope"))

	_, _, err := runCLI(t, []string{"query", "select * from nope"}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected failed status to produce an error")
	}
	requireContains(t, err.Error(), "status 1")
	requireContains(t, err.Error(), "no such table: nope")
}

func TestQueryMissingSocketExplainsFix(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := testsupport.ShortSocketPath(t)

	_, _, err := runCLI(t, []string{"query", "select 1"}, missing, env.configPath)
	if err == nil {
		t.Fatal("expected connect error")
	}
	requireContains(t, err.Error(), "not found")
	requireContains(t, err.Error(), missing)
}

func TestColumnsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"columns", "select * from time"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("columns: %v", err)
	}
	requireContains(t, out, "unix_time")
	requireContains(t, out, "TEXT")
}

func TestPingCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"ping"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	requireContains(t, out, "[OK] OK")
	requireContains(t, out, env.socketPath)
}

func TestQuerySpawnTearsDownDaemon(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	exe := testsupport.UseHelperDaemon(t, testsupport.HelperServe)
	cfg := testsupport.NewConfig(t, testsupport.WithDaemonBinary(exe))
	configPath := testsupport.WriteConfig(t, cfg)

	out, _, err := runCLI(t, []string{"query", "--spawn", "select * from time"}, cfg.Socket.Path, configPath)
	if err != nil {
		t.Fatalf("query --spawn: %v", err)
	}
	requireContains(t, out, "1700000000")

	if testsupport.FileExists(t, cfg.Socket.Path) {
		t.Fatal("spawned daemon socket left behind")
	}
}

func TestQuerySpawnWithoutBinary(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OSQUERYD_PATH", "")
	t.Chdir(t.TempDir())
	cfg := testsupport.NewConfig(t)
	configPath := testsupport.WriteConfig(t, cfg)

	_, _, err := runCLI(t, []string{"query", "--spawn", "select 1"}, cfg.Socket.Path, configPath)
	if err == nil {
		t.Fatal("expected missing binary error")
	}
	requireContains(t, err.Error(), "no osqueryd binary configured")
}

func TestQuerySpawnMissingExecutable(t *testing.T) {
	env := setupCLITestEnv(t)
	socket := testsupport.ShortSocketPath(t)

	_, _, err := runCLI(t, []string{"query", "--spawn", "--osqueryd", "/nonexistent/osqueryd", "select 1"}, socket, env.configPath)
	if err == nil {
		t.Fatal("expected spawn error")
	}
	if !errors.Is(err, client.ErrSpawn) {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
	requireContains(t, err.Error(), "spawn osqueryd")
}
