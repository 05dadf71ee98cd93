package templates

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/vango-dev/assetkit/internal/build"
	"github.com/vango-dev/assetkit/internal/config"
	"github.com/vango-dev/assetkit/internal/errors"
)

func TestGet(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"minimal", false},
		{"site", false},
		{"nonexistent", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Get(tt.name)
			if tt.wantErr {
				if !errors.HasCode(err, errors.CodeTemplateNotFound) {
					t.Errorf("Get(%q) error = %v, want %s", tt.name, err, errors.CodeTemplateNotFound)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tmpl.Name != tt.name {
				t.Errorf("Name = %q, want %q", tmpl.Name, tt.name)
			}
			if tmpl.Description == "" {
				t.Error("template should have a description")
			}
		})
	}
}

func TestList(t *testing.T) {
	if got, want := List(), []string{"minimal", "site"}; !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

func TestTemplate_Create_Minimal(t *testing.T) {
	tmpDir := t.TempDir()

	tmpl, _ := Get("minimal")
	if err := tmpl.Create(tmpDir, Config{ProjectName: "test-site"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	for _, file := range []string{config.ConfigFileName, "wwwroot/index.html", "wwwroot/css/site.css"} {
		if _, err := os.Stat(filepath.Join(tmpDir, filepath.FromSlash(file))); err != nil {
			t.Errorf("File %q not created: %v", file, err)
		}
	}

	cfg, err := config.Load(tmpDir)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("generated config invalid: %v", err)
	}
	if cfg.Name != "test-site" || cfg.Static.BasePath != "/" {
		t.Errorf("config = name %q basePath %q", cfg.Name, cfg.Static.BasePath)
	}
	if cfg.Publish.Bucket != "" {
		t.Errorf("Bucket = %q, want empty", cfg.Publish.Bucket)
	}

	index, _ := os.ReadFile(filepath.Join(tmpDir, "wwwroot", "index.html"))
	if !strings.Contains(string(index), "<title>test-site</title>") {
		t.Error("Project name not substituted in index.html")
	}
}

func TestTemplate_Create_Bucket(t *testing.T) {
	tmpDir := t.TempDir()

	tmpl, _ := Get("minimal")
	if err := tmpl.Create(tmpDir, Config{ProjectName: "x", BasePath: "/static/", Bucket: "my-assets"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	cfg, err := config.Load(tmpDir)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if cfg.Publish.Bucket != "my-assets" || cfg.Static.BasePath != "/static/" {
		t.Errorf("config = bucket %q basePath %q", cfg.Publish.Bucket, cfg.Static.BasePath)
	}
}

func TestTemplate_Create_SiteBuilds(t *testing.T) {
	tmpDir := t.TempDir()

	tmpl, _ := Get("site")
	if err := tmpl.Create(tmpDir, Config{ProjectName: "docs"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	cfg, err := config.Load(tmpDir)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if !reflect.DeepEqual(cfg.Manifests, []string{"aliases.json"}) {
		t.Errorf("Manifests = %v", cfg.Manifests)
	}
	if !cfg.Dev.HotReload {
		t.Error("generated config disables hot reload")
	}

	b, err := build.New(cfg, build.Options{})
	if err != nil {
		t.Fatalf("build.New error: %v", err)
	}
	result, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	routes := result.Manifest.Routes()
	for _, route := range []string{"index.html", "css/site.css", "js/app.js", "favicon.svg"} {
		if _, ok := routes[route]; !ok {
			t.Errorf("route %q missing from generated site", route)
		}
	}
}

func TestTemplate_Create_ExistingProject(t *testing.T) {
	tmpDir := t.TempDir()

	tmpl, _ := Get("minimal")
	if err := tmpl.Create(tmpDir, Config{ProjectName: "a"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	err := tmpl.Create(tmpDir, Config{ProjectName: "b"})
	if !errors.HasCode(err, errors.CodeDirectoryExists) {
		t.Fatalf("second Create error = %v, want %s", err, errors.CodeDirectoryExists)
	}
}
