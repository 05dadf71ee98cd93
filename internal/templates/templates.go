package templates

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"text/template"

	"github.com/vango-dev/assetkit/internal/config"
	"github.com/vango-dev/assetkit/internal/errors"
)

// Config contains template configuration.
type Config struct {
	// ProjectName is the name of the project.
	ProjectName string

	// BasePath is the URL prefix assets are served under.
	BasePath string

	// Bucket is the publish bucket, empty to leave publishing unconfigured.
	Bucket string
}

// Template represents a project template.
type Template struct {
	// Name is the template name.
	Name string

	// Description describes the template.
	Description string

	// Files maps slash-separated relative paths to text/template sources.
	Files map[string]string

	// Configure adjusts the generated assetkit.json beyond the defaults.
	Configure func(cfg *config.Config)
}

// Available templates.
var templates = map[string]*Template{
	"minimal": minimalTemplate(),
	"site":    siteTemplate(),
}

// Get returns a template by name.
func Get(name string) (*Template, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, errors.New(errors.CodeTemplateNotFound).
			WithDetail("Template '" + name + "' not found").
			WithSuggestion("Available templates: minimal, site")
	}
	return tmpl, nil
}

// List returns all available template names, sorted.
func List() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Create generates a project from the template. It refuses to write into a
// directory that already holds an assetkit.json.
func (t *Template) Create(dir string, cfg Config) error {
	if cfg.BasePath == "" {
		cfg.BasePath = "/"
	}
	if config.Exists(dir) {
		return errors.New(errors.CodeDirectoryExists).
			WithMeta("dir", dir).
			WithSuggestion("Choose an empty directory or edit the existing " + config.ConfigFileName)
	}

	project := t.projectConfig(cfg)
	if err := project.Validate(); err != nil {
		return err
	}

	for relPath, content := range t.Files {
		tmpl, err := template.New(relPath).Parse(content)
		if err != nil {
			return errors.Newf(errors.CategoryCLI, "invalid template %s: %v", relPath, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, cfg); err != nil {
			return errors.Newf(errors.CategoryCLI, "template execute error %s: %v", relPath, err)
		}

		fullPath := filepath.Join(dir, filepath.FromSlash(relPath))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(fullPath, buf.Bytes(), 0644); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return project.SaveTo(filepath.Join(dir, config.ConfigFileName))
}

// projectConfig is the default configuration with the template's and the
// caller's settings applied.
func (t *Template) projectConfig(cfg Config) *config.Config {
	project := config.New()
	project.Name = cfg.ProjectName
	project.Static.BasePath = cfg.BasePath
	project.Publish.Bucket = cfg.Bucket
	if t.Configure != nil {
		t.Configure(project)
	}
	return project
}

const indexTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{.ProjectName}}</title>
  <link rel="stylesheet" href="{{.BasePath}}css/site.css">
</head>
<body>
  <h1>{{.ProjectName}}</h1>
  <script src="/_assetkit/client.js"></script>
</body>
</html>
`

const siteCSSTemplate = `:root {
  --fg: #1a1a1a;
  --bg: #fafafa;
}

body {
  margin: 0 auto;
  max-width: 48rem;
  padding: 2rem;
  color: var(--fg);
  background: var(--bg);
  font-family: system-ui, sans-serif;
  line-height: 1.5;
}
`

// minimalTemplate returns the minimal template.
func minimalTemplate() *Template {
	return &Template{
		Name:        "minimal",
		Description: "A config file and a single page",
		Files: map[string]string{
			"wwwroot/index.html":   indexTemplate,
			"wwwroot/css/site.css": siteCSSTemplate,
		},
	}
}

// siteTemplate returns a starter with scripts, an alias manifest and a
// .gitignore for the build output.
func siteTemplate() *Template {
	return &Template{
		Name:        "site",
		Description: "Pages, styles, scripts and a favicon alias",
		Files: map[string]string{
			"wwwroot/index.html":   indexTemplate,
			"wwwroot/css/site.css": siteCSSTemplate,
			"wwwroot/js/app.js": `document.addEventListener('DOMContentLoaded', function() {
  document.documentElement.classList.add('js');
});
`,
			"wwwroot/img/icon.svg": `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16"><circle cx="8" cy="8" r="7" fill="#1a1a1a"/></svg>
`,
			"aliases.json": `{
  "Version": 1,
  "Endpoints": [
    {
      "Route": "favicon.svg",
      "AssetFile": "img/icon.svg",
      "Selectors": [],
      "ResponseHeaders": [
        { "Name": "Cache-Control", "Value": "max-age=86400" },
        { "Name": "Content-Type", "Value": "image/svg+xml" }
      ],
      "EndpointProperties": []
    }
  ]
}
`,
			".gitignore": "dist/\n",
		},
		Configure: func(cfg *config.Config) {
			cfg.Compression.Include = []string{"**/*.{css,js,html,svg}"}
			cfg.Manifests = []string{"aliases.json"}
		},
	}
}
