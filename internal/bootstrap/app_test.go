package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestInitSchemaRecordsMeta(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	body := "database:\n  dsn: " + filepath.Join(dir, "db", "reliability.sqlite") + "\nreliability:\n  models:\n    products:\n      scoring_version: v2.1\n"
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	ctx := context.Background()
	app, err := New(ctx, configPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = app.Close(ctx) })

	for i := 0; i < 2; i++ {
		if err := app.InitSchema(ctx); err != nil {
			t.Fatalf("InitSchema() run %d error = %v", i+1, err)
		}
	}

	meta, err := app.SchemaMeta(ctx)
	if err != nil {
		t.Fatalf("SchemaMeta() error = %v", err)
	}
	if meta["schema_version"] != SchemaVersion || meta["scoring_version.Products"] != "v2.1" {
		t.Fatalf("SchemaMeta() = %#v", meta)
	}
	if len(meta) != 2 {
		t.Fatalf("SchemaMeta() has %d keys, want 2", len(meta))
	}
}
