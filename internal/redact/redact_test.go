package redact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newScrubber(t *testing.T, allowlistPath string) *GitleaksScrubber {
	t.Helper()

	s, err := NewGitleaksScrubber(allowlistPath, zap.NewNop())
	if err != nil {
		t.Fatalf("NewGitleaksScrubber() error = %v", err)
	}
	return s
}

func TestScrub_CleanContentUnchanged(t *testing.T) {
	s := newScrubber(t, "")

	content := `I would use a hash map to count occurrences, then iterate once more
to find the first element with count one. O(n) time, O(n) space.`

	if got := s.Scrub(content); got != content {
		t.Errorf("Scrub() changed clean content:\n%s", got)
	}
}

func TestScrub_ReplacesDetectedSecret(t *testing.T) {
	s := newScrubber(t, "")

	content := `Here's my solution:
const apiKey = "sk-proj-abc123def456ghi789jkl012mno345pqr678stu901xyz"
fetch(url, apiKey)`

	got := s.Scrub(content)

	if strings.Contains(got, "sk-proj-abc123def456ghi789jkl012mno345pqr678stu901xyz") {
		t.Error("Scrub() left the secret in place")
	}
	if !strings.Contains(got, "[REDACTED:") {
		t.Errorf("Scrub() missing redaction marker:\n%s", got)
	}
	if !strings.Contains(got, "fetch(url, apiKey)") {
		t.Error("Scrub() damaged surrounding content")
	}
}

func TestScrub_ReplacesRepeatedOccurrences(t *testing.T) {
	s := newScrubber(t, "")

	secret := "sk-proj-abc123def456ghi789jkl012mno345pqr678stu901xyz"
	content := "first: " + secret + "\nsecond: " + secret

	got := s.Scrub(content)
	if strings.Contains(got, secret) {
		t.Errorf("Scrub() left a repeated secret in place:\n%s", got)
	}
}

func TestScrub_EmptyContent(t *testing.T) {
	s := newScrubber(t, "")

	if got := s.Scrub(""); got != "" {
		t.Errorf("Scrub(\"\") = %q, want empty", got)
	}
}

func TestScrub_AllowlistedPatternKept(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "allowlist.toml")
	content := `[allowlist]
regexes = ["DEMO_API_KEY"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s := newScrubber(t, path)

	input := `export DEMO_API_KEY="sk-proj-abc123def456ghi789jkl012mno345pqr678stu901xyz"`
	if got := s.Scrub(input); got != input {
		t.Errorf("Scrub() redacted allowlisted content:\n%s", got)
	}
}

func TestLoadAllowlist(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		al, err := LoadAllowlist(filepath.Join(t.TempDir(), "absent.toml"))
		if err != nil {
			t.Fatalf("LoadAllowlist() error = %v", err)
		}
		if al != nil {
			t.Errorf("LoadAllowlist() = %+v, want nil for missing file", al)
		}
	})

	t.Run("invalid toml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "allowlist.toml")
		if err := os.WriteFile(path, []byte("not [valid toml"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadAllowlist(path); err == nil {
			t.Error("LoadAllowlist() accepted invalid TOML")
		}
	})

	t.Run("invalid regex", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "allowlist.toml")
		content := `[allowlist]
regexes = ["(unclosed"]
`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadAllowlist(path); err == nil {
			t.Error("LoadAllowlist() accepted invalid regex")
		}
	})
}

func TestNew_DisabledPassesThrough(t *testing.T) {
	s, err := New(Config{Disabled: true}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := s.(Disabled); !ok {
		t.Fatalf("New(disabled) = %T, want Disabled", s)
	}

	secret := `const apiKey = "sk-proj-abc123def456ghi789jkl012mno345pqr678stu901xyz"`
	if got := s.Scrub(secret); got != secret {
		t.Error("Disabled scrubber modified content")
	}
}
