// Package templates provides project scaffolding for assetkit init.
//
// # Available Templates
//
//   - minimal: a config file and a single page
//   - site: pages, styles, scripts and a favicon alias manifest
//
// # Usage
//
//	tmpl, err := templates.Get("site")
//	if err != nil {
//	    return err
//	}
//	if err := tmpl.Create(projectDir, templates.Config{ProjectName: "docs"}); err != nil {
//	    return err
//	}
//
// The assetkit.json of a new project is config.New() with the project name,
// base path and bucket applied, plus any template-specific settings. It is
// validated before anything is written.
//
// # Template Variables
//
// Other files are text/template sources rendered with Config:
//
//	{{.ProjectName}} - Name of the project
//	{{.BasePath}}    - URL prefix assets are served under
//	{{.Bucket}}      - Publish bucket, may be empty
package templates
