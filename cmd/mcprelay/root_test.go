package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harunnryd/mcprelay/internal/tool"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("MCPRELAY_TEST_KEY=from-file\nMCPRELAY_TEST_KEEP=from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MCPRELAY_TEST_KEEP", "from-env")
	t.Setenv("MCPRELAY_TEST_KEY", "")
	os.Unsetenv("MCPRELAY_TEST_KEY")

	if err := loadEnvFile(path); err != nil {
		t.Fatalf("loadEnvFile() error = %v", err)
	}
	if got := os.Getenv("MCPRELAY_TEST_KEY"); got != "from-file" {
		t.Errorf("MCPRELAY_TEST_KEY = %q, want from-file", got)
	}
	if got := os.Getenv("MCPRELAY_TEST_KEEP"); got != "from-env" {
		t.Errorf("existing variable was overridden: %q", got)
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	t.Chdir(t.TempDir())

	if err := loadEnvFile(""); err != nil {
		t.Fatalf("missing default .env should be ignored: %v", err)
	}
	if err := loadEnvFile("does-not-exist.env"); err == nil {
		t.Fatal("missing explicit env file should fail")
	}
}

func TestWriteTools(t *testing.T) {
	tools := []tool.ToolDescriptor{{
		Name:        "query_weather",
		Description: "Retrieve current weather information for a specified city.",
		Required:    []string{"city"},
		Metadata:    tool.ToolMetadata{Source: tool.SourceMCP, Server: "weather"},
	}}

	for _, format := range []string{"table", "json", "yaml"} {
		var buf bytes.Buffer
		if err := writeTools(&buf, tools, format); err != nil {
			t.Fatalf("writeTools(%s) error = %v", format, err)
		}
		if !strings.Contains(buf.String(), "query_weather") {
			t.Errorf("writeTools(%s) missing tool name:\n%s", format, buf.String())
		}
	}

	if err := writeTools(&bytes.Buffer{}, tools, "xml"); err == nil {
		t.Fatal("unknown format should fail")
	}
}
