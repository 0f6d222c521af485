package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"tonight/internal/ledger"
	"tonight/internal/testsupport"
)

type cliTestEnv struct {
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("TONIGHT_HOUSEHOLD", "")
	t.Setenv("TONIGHT_DATA_DIR", "")

	configPath := filepath.Join(base, "config.toml")
	testsupport.WriteFile(t, configPath, `
[paths]
data_dir = "`+filepath.Join(base, "data")+`"
log_dir = "`+filepath.Join(base, "logs")+`"

[household]
key = "cli-household"

[logging]
level = "error"
`)
	testsupport.WriteFile(t, filepath.Join(base, "meals.toml"), `
[[meals]]
key = "tacos"
name = "Beef Tacos"
steps = ["Brown the beef", "Warm tortillas", "Assemble"]
est_minutes = 25

[[meals.ingredients]]
name = "ground beef"

[[meals.ingredients]]
name = "tortillas"

[[meals.ingredients]]
name = "salt"
staple = true

[[meals]]
key = "lentil_soup"
name = "Lentil Soup"
instructions = "Simmer lentils with stock."
est_minutes = 45

[[meals.ingredients]]
name = "lentils"
`)
	testsupport.WriteFile(t, filepath.Join(base, "pantry.toml"), `
[[items]]
name = "ground beef"
confidence = 1.0
remaining = 2.0
last_seen = 2026-03-10T09:00:00-06:00

[[items]]
name = "tortillas"
confidence = 0.9
last_seen = 2026-03-10T09:00:00-06:00
`)
	return &cliTestEnv{configPath: configPath, baseDir: base}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (env *cliTestEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := env.run(t, args...)
	if err != nil {
		t.Fatalf("tonight %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestDecideApproveHistoryFlow(t *testing.T) {
	env := setupCLITestEnv(t)

	if out := env.mustRun(t, "meals", "import", filepath.Join(env.baseDir, "meals.toml")); !strings.Contains(out, "Imported 2 meals") {
		t.Fatalf("unexpected import output: %s", out)
	}
	if out := env.mustRun(t, "inventory", "import", filepath.Join(env.baseDir, "pantry.toml")); !strings.Contains(out, "Imported 2 pantry items") {
		t.Fatalf("unexpected inventory output: %s", out)
	}

	out := env.mustRun(t, "decide", "--now", "2026-03-10T12:00:00-06:00", "--json")
	decision := gjson.Get(out, "decision")
	if decision.Get("decisionType").String() != "cook" || decision.Get("title").String() != "Beef Tacos" {
		t.Fatalf("unexpected decision: %s", out)
	}
	if decision.Get("steps").String() != "Brown the beef\nWarm tortillas\nAssemble" {
		t.Fatalf("unexpected steps: %q", decision.Get("steps").String())
	}
	id := decision.Get("decisionEventId").String()

	if out := env.mustRun(t, "approve", id, "--now", "2026-03-10T12:10:00-06:00"); !strings.Contains(out, "Approved decision "+id) {
		t.Fatalf("unexpected approve output: %s", out)
	}
	if out := env.mustRun(t, "approve", id); !strings.Contains(out, "already recorded") {
		t.Fatalf("second approve should be a no-op: %s", out)
	}

	history := env.mustRun(t, "history", "--json")
	if got := gjson.Get(history, "0.status").String(); got != "approved" {
		t.Fatalf("history status = %q\n%s", got, history)
	}

	if out := env.mustRun(t, "undo", id, "--now", "2026-03-10T12:20:00-06:00"); !strings.Contains(out, "Undid decision") {
		t.Fatalf("unexpected undo output: %s", out)
	}
	history = env.mustRun(t, "history", "--json")
	if got := gjson.Get(history, "0.status").String(); got != "undone" {
		t.Fatalf("history status after undo = %q", got)
	}

	taste := env.mustRun(t, "taste", "recompute")
	if !strings.Contains(taste, "-0.50") {
		t.Fatalf("expected net taste -0.50 after approve and undo:\n%s", taste)
	}
}

func TestRescueCommandReturnsSingleRescue(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.mustRun(t, "rescue", "--now", "2026-03-10T18:30:00-06:00", "--reason", "im_done", "--json")
	if !gjson.Get(out, "rescue").IsObject() || gjson.Get(out, "exhausted").Bool() {
		t.Fatalf("unexpected rescue: %s", out)
	}
	if got := gjson.Get(out, "rescue.decisionType").String(); got != "order" {
		t.Fatalf("rescue type = %q, want order inside the ordering window", got)
	}
}

func TestUnknownDecisionExitCode(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := env.run(t, "approve", "does-not-exist")
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if code := exitCode(err); code != 3 {
		t.Fatalf("exit code = %d, want 3", code)
	}
}

func TestDoctorReportsEmptyCatalog(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "doctor")
	if err == nil {
		t.Fatalf("expected doctor failure on empty catalog:\n%s", out)
	}
	if !strings.Contains(out, "no active meals") {
		t.Fatalf("unexpected doctor output:\n%s", out)
	}

	env.mustRun(t, "meals", "import", filepath.Join(env.baseDir, "meals.toml"))
	out = env.mustRun(t, "doctor")
	if !strings.Contains(out, "2 active meals") || !strings.Contains(out, "schema v1") {
		t.Fatalf("unexpected doctor output:\n%s", out)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "fresh", "config.toml")

	out := env.mustRun(t, "config", "init", "--path", target)
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected init output: %s", out)
	}
	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config exists")
	}

	named := filepath.Join(env.baseDir, "named.toml")
	env.mustRun(t, "--household", "oak", "config", "init", "--path", named)
	content, err := os.ReadFile(named)
	if err != nil {
		t.Fatalf("read named config: %v", err)
	}
	if !strings.Contains(string(content), `key = "oak"`) {
		t.Fatalf("expected household in sample, got:\n%s", content)
	}

	out = env.mustRun(t, "config", "validate")
	if !strings.Contains(out, "Configuration valid") || !strings.Contains(out, "cli-household") {
		t.Fatalf("unexpected validate output: %s", out)
	}
}
