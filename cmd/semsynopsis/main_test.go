package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/c360studio/semsynopsis/config"
	"github.com/c360studio/semsynopsis/style"
	"github.com/c360studio/semsynopsis/vocabulary"
)

// isolate keeps user and project config files out of the command under test.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvConfigPath, "")
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, Version) {
		t.Errorf("version output %q lacks %s", out, Version)
	}
}

func TestStyleCommand(t *testing.T) {
	dir := isolate(t)

	ontology := writeFile(t, dir, "ontology.json", `{
		"C1": {
			"`+vocabulary.PreferredCSSColor+`": [{"type": "literal", "value": "background-color: green"}],
			"`+vocabulary.ColorPriority+`": [{"type": "literal", "value": "2"}]
		},
		"C2": {"label": [{"type": "literal", "value": "Plain"}]}
	}`)
	annotations := writeFile(t, dir, "annotations.json", `{
		"A1": {"body": "", "predications": {"p": [{"type": "resource", "value": "C1"}]}},
		"A2": {"body": "", "predications": {"p": [{"type": "resource", "value": "C2"}]}}
	}`)
	segments := writeFile(t, dir, "t1.segments.json", `{"s1": ["A1"], "s2": ["A2"], "s3": ["A2", "A1"]}`)

	out, err := execute(t, "style", "--ontology", ontology, "--annotations", annotations, "--segments", segments)
	if err != nil {
		t.Fatalf("style failed: %v", err)
	}

	var css style.PerSegment
	if err := json.Unmarshal([]byte(out), &css); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	want := map[string]string{"s1": "green", "s2": "yellow", "s3": "green"}
	for seg, color := range want {
		if got := css[seg]["background-color"]; got != color {
			t.Errorf("%s background-color = %q, want %q", seg, got, color)
		}
	}
}

func TestStyleCommandRequiresSegments(t *testing.T) {
	isolate(t)
	if _, err := execute(t, "style"); err == nil {
		t.Error("expected error without --segments")
	}
}

func TestAlignCommand(t *testing.T) {
	dir := isolate(t)
	regex := writeFile(t, dir, "regex.json", `{"T1": {"T2": [{"matchPattern": "^p(\\d+)$", "replacementPattern": "q$1"}]}}`)
	mapping := writeFile(t, dir, "mapping.json", `{"T1": {"p1": {"T3": "r9"}}}`)

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "regex", args: []string{"--target", "T2", "p7"}, want: "q7"},
		{name: "mapping", args: []string{"--target", "T3", "p1"}, want: "r9"},
		{name: "unaligned", args: []string{"--target", "T3", "p2"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"align", "--regex", regex, "--mapping", mapping, "--source", "T1"}, tt.args...)
			out, err := execute(t, args...)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got output %q", out)
				}
				return
			}
			if err != nil {
				t.Fatalf("align failed: %v", err)
			}
			if got := strings.TrimSpace(out); got != tt.want {
				t.Errorf("align = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfigCommands(t *testing.T) {
	isolate(t)

	out, err := execute(t, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(out, ":8787") {
		t.Errorf("config show output lacks default addr:\n%s", out)
	}

	out, err = execute(t, "config", "init")
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	path := strings.TrimSpace(out)
	if _, err := os.Stat(path); err != nil {
		t.Errorf("user config not created at %s: %v", path, err)
	}

	out, err = execute(t, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(out, "# user: "+path) {
		t.Errorf("config show does not list the user layer:\n%s", out)
	}
}
