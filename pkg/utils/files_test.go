package utils

import (
	"path/filepath"
	"testing"
)

func TestGetPathInfoResolvesAbsoluteAndParent(t *testing.T) {
	fullPath, parentDir, err := GetPathInfo("storage")
	if err != nil {
		t.Fatalf("GetPathInfo: %v", err)
	}
	if !filepath.IsAbs(fullPath) {
		t.Errorf("expected an absolute path, got %q", fullPath)
	}
	if filepath.Base(fullPath) != "storage" {
		t.Errorf("expected the resolved path to end in %q, got %q", "storage", fullPath)
	}
	if parentDir != filepath.Dir(fullPath) {
		t.Errorf("parentDir: expected %q, got %q", filepath.Dir(fullPath), parentDir)
	}
}
