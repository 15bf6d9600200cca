package main

import (
	"os"
	"testing"
)

func TestRunCreateThenValidate(t *testing.T) {
	dir := t.TempDir()
	if err := run(options{cmd: "create", dir: dir, name: "add order index"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one migration file, got %d (err=%v)", len(entries), err)
	}
	if err := run(options{cmd: "validate", dir: dir}); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestRunCreateRequiresName(t *testing.T) {
	if err := run(options{cmd: "create", dir: t.TempDir()}); err == nil {
		t.Fatal("expected error without -name")
	}
}

func TestRunValidatesEmbeddedSetByDefault(t *testing.T) {
	if err := run(options{cmd: "validate"}); err != nil {
		t.Fatalf("embedded migrations should validate: %v", err)
	}
}
