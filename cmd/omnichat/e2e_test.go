package main

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestCLIJSONOutput(t *testing.T) {
	cmd := exec.Command("go", "run", "./cmd/omnichat", "--json", "--no-tools", "test question")
	cmd.Env = append(os.Environ(), "OMNICHAT_MOCK_LLM=1")
	wd, _ := os.Getwd()
	cmd.Dir = filepath.Dir(filepath.Dir(wd))

	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(out, &payload); err != nil {
		t.Fatalf("invalid json output: %v", err)
	}
	if payload["answer"] == "" {
		t.Fatalf("expected answer")
	}
	if payload["status"] != "success" {
		t.Fatalf("expected success status, got %v", payload["status"])
	}
}
