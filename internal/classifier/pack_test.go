package classifier

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPackExtendsWithoutShadowing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	pack := `
version: "1"
patterns:
  card-number:
    - kreditkarte
  iban:
    - \biban\b
autocomplete_tokens:
  - cc-family-name
`
	if err := os.WriteFile(path, []byte(pack), 0600); err != nil {
		t.Fatal(err)
	}

	c := New()
	if err := c.LoadPack(path); err != nil {
		t.Fatalf("LoadPack: %v", err)
	}

	tests := []struct {
		name  string
		attrs string
		want  bool
	}{
		{"pack pattern in existing group", `name="kreditkarte"`, true},
		{"pack pattern in new group", `placeholder="IBAN"`, true},
		{"pack autocomplete token", `autocomplete="cc-family-name"`, true},
		{"builtin still active", `name="card_number"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsCardField(inputEl(t, tt.attrs)); got != tt.want {
				t.Errorf("attrs %q: got %v, want %v", tt.attrs, got, tt.want)
			}
		})
	}

	// A pack loaded into one classifier must not leak into another.
	fresh := New()
	if fresh.IsCardField(inputEl(t, `name="kreditkarte"`)) {
		t.Error("pack patterns leaked into a fresh classifier")
	}
}

func TestLoadPackMissingFileIsFine(t *testing.T) {
	c := New()
	if err := c.LoadPack(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatalf("missing pack should not error: %v", err)
	}
}

func TestLoadPackRejectsBadPattern(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte("patterns:\n  card-number:\n    - '['\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := New().LoadPack(path); err == nil {
		t.Fatal("invalid regex in pack should fail loudly")
	}
}
