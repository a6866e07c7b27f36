package assets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateAssetName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple name", "invoice", false},
		{"with dash", "invoice-compact", false},
		{"empty", "", true},
		{"dot", "invoice.html", true},
		{"traversal", "../secrets", true},
		{"slash", "sub/invoice", true},
		{"backslash", `sub\invoice`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAssetName(tt.input)
			if tt.wantErr && !errors.Is(err, ErrInvalidAssetName) {
				t.Errorf("ValidateAssetName(%q) = %v, want ErrInvalidAssetName", tt.input, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateAssetName(%q) error: %v", tt.input, err)
			}
		})
	}
}

func TestEmbeddedLoader(t *testing.T) {
	loader := NewEmbeddedLoader()

	for _, name := range []string{DefaultTemplateName, ConfirmationTemplateName} {
		content, err := loader.LoadTemplate(name)
		if err != nil {
			t.Errorf("LoadTemplate(%q) error: %v", name, err)
		}
		if !strings.Contains(content, "<html") {
			t.Errorf("template %q is not an HTML document", name)
		}
	}

	if _, err := loader.LoadTemplate("missing"); !IsNotFound(err) {
		t.Errorf("LoadTemplate(missing) = %v, want not-found", err)
	}
}

func TestFilesystemLoader(t *testing.T) {
	dir := t.TempDir()
	custom := "<html>custom invoice</html>"
	if err := os.WriteFile(filepath.Join(dir, "invoice.html"), []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}

	loader, err := NewFilesystemLoader(dir)
	if err != nil {
		t.Fatalf("NewFilesystemLoader() error: %v", err)
	}

	content, err := loader.LoadTemplate("invoice")
	if err != nil {
		t.Fatalf("LoadTemplate() error: %v", err)
	}
	if content != custom {
		t.Errorf("LoadTemplate() = %q, want custom content", content)
	}

	if _, err := loader.LoadTemplate("absent"); !IsNotFound(err) {
		t.Errorf("LoadTemplate(absent) = %v, want not-found", err)
	}
	if _, err := loader.LoadTemplate("../evil"); !errors.Is(err, ErrInvalidAssetName) {
		t.Errorf("LoadTemplate(traversal) = %v, want ErrInvalidAssetName", err)
	}
}

func TestFilesystemLoaderRejectsBadBasePath(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"nonexistent", filepath.Join(t.TempDir(), "nope")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFilesystemLoader(tt.path); !errors.Is(err, ErrInvalidBasePath) {
				t.Errorf("NewFilesystemLoader(%q) = %v, want ErrInvalidBasePath", tt.path, err)
			}
		})
	}

	t.Run("file not directory", func(t *testing.T) {
		f := filepath.Join(t.TempDir(), "file.html")
		if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := NewFilesystemLoader(f); !errors.Is(err, ErrInvalidBasePath) {
			t.Errorf("NewFilesystemLoader(file) = %v, want ErrInvalidBasePath", err)
		}
	})
}

func TestResolverFallback(t *testing.T) {
	dir := t.TempDir()
	custom := "<html>override</html>"
	if err := os.WriteFile(filepath.Join(dir, "invoice.html"), []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}

	resolver, err := NewResolver(dir)
	if err != nil {
		t.Fatalf("NewResolver() error: %v", err)
	}

	// The custom directory overrides the embedded invoice template.
	content, err := resolver.LoadTemplate(DefaultTemplateName)
	if err != nil {
		t.Fatalf("LoadTemplate() error: %v", err)
	}
	if content != custom {
		t.Error("custom template did not take precedence")
	}

	// The confirmation template is not overridden and falls back to
	// the embedded copy.
	content, err = resolver.LoadTemplate(ConfirmationTemplateName)
	if err != nil {
		t.Fatalf("LoadTemplate(confirmation) error: %v", err)
	}
	if !strings.Contains(content, "<html") {
		t.Error("embedded fallback did not load")
	}
}

func TestResolverEmbeddedOnly(t *testing.T) {
	resolver, err := NewResolver("")
	if err != nil {
		t.Fatalf("NewResolver() error: %v", err)
	}
	if _, err := resolver.LoadTemplate(DefaultTemplateName); err != nil {
		t.Errorf("LoadTemplate() error: %v", err)
	}
}
