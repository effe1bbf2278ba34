package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analyzers.json")
	data := []byte(`{"en":{"tokenizer":{"name":"simple"}}}`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadFile(path, MaxConfigSize)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(data) {
		t.Errorf("ReadFile = %q, want %q", got, data)
	}
}

func TestReadFile_TooLarge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.json")
	if err := os.WriteFile(path, make([]byte, 64), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := ReadFile(path, 32)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got: %v", err)
	}
}

func TestReadFile_Directory(t *testing.T) {
	_, err := ReadFile(t.TempDir(), MaxConfigSize)
	if !errors.Is(err, ErrNotRegular) {
		t.Errorf("expected ErrNotRegular, got: %v", err)
	}
}

func TestReadFile_NotExists(t *testing.T) {
	_, err := ReadFile("/nonexistent/path/analyzers.json", MaxConfigSize)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got: %v", err)
	}
}
