package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestRecalcFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "recalc"}
	addModelFlag(cmd, false)
	addActorFlags(cmd)
	cmd.Flags().Int("concurrency", 0, "")
	if err := cmd.ParseFlags([]string{
		"--model", "products",
		"--concurrency", "8",
		"--source", "admin",
		"--actor-user", " 7 ",
	}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	kind, err := modelFlag(cmd)
	if err != nil || kind != "Products" {
		t.Fatalf("modelFlag() = %q, %v", kind, err)
	}
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency != 8 {
		t.Fatalf("concurrency = %d, want 8", concurrency)
	}

	rc := recalcContextFromFlags(cmd)
	if rc.Source != "admin" || rc.ActorUserID == nil || *rc.ActorUserID != " 7 " {
		t.Fatalf("recalc context = %#v", rc)
	}
	if rc.ActorService == nil || *rc.ActorService != "cli:recalc" {
		t.Fatalf("actor service = %v, want cli:recalc", rc.ActorService)
	}
}

func TestModelFlagRejectsUnknownKind(t *testing.T) {
	cmd := &cobra.Command{Use: "show"}
	addModelFlag(cmd, true)
	if err := cmd.ParseFlags([]string{"--model", "orders"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	if _, err := requiredModelFlag(cmd); err == nil {
		t.Fatalf("requiredModelFlag() accepted unknown kind")
	}

	empty := &cobra.Command{Use: "show"}
	addModelFlag(empty, true)
	if _, err := requiredModelFlag(empty); err == nil {
		t.Fatalf("requiredModelFlag() accepted missing kind")
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := Execute(context.Background())
	return out.String(), err
}

func TestCLIEndToEnd(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	config := "database:\n  dsn: " + filepath.Join(dir, "reliability.sqlite") + "\ncache:\n  backend: db\n"
	if err := os.WriteFile(configPath, []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	entitiesPath := filepath.Join(dir, "entities.yaml")
	entities := `
model: Products
entities:
  - id: 1
    title: Widget
    price: 19.99
    currency: USD
  - id: 2
    title: Gadget
`
	if err := os.WriteFile(entitiesPath, []byte(entities), 0o644); err != nil {
		t.Fatalf("write entities: %v", err)
	}

	if _, err := runCLI(t, "init-db", "--config", configPath); err != nil {
		t.Fatalf("init-db error = %v", err)
	}

	out, err := runCLI(t, "recalc", "--config", configPath, "--file", entitiesPath)
	if err != nil {
		t.Fatalf("recalc error = %v", err)
	}
	if !strings.Contains(out, "processed") || !strings.Contains(out, "2") {
		t.Fatalf("recalc output = %q", out)
	}

	out, err = runCLI(t, "show", "--config", configPath, "--model", "Products", "--id", "1")
	if err != nil {
		t.Fatalf("show error = %v", err)
	}
	if !strings.Contains(out, "Products:1") || !strings.Contains(out, "title") {
		t.Fatalf("show output = %q", out)
	}

	out, err = runCLI(t, "verify", "--config", configPath, "--model", "Products")
	if err != nil {
		t.Fatalf("verify error = %v, output = %q", err, out)
	}
	if !strings.Contains(out, "verified") {
		t.Fatalf("verify output = %q", out)
	}
}
