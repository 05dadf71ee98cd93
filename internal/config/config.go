package config

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/vango-dev/assetkit/internal/contenttype"
	"github.com/vango-dev/assetkit/internal/errors"
	"github.com/vango-dev/assetkit/internal/fingerprint"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "assetkit.json"

	// DefaultPort is the default development server port.
	DefaultPort = 3000

	// DefaultHost is the default development server host.
	DefaultHost = "localhost"

	// DefaultOutput is the default build output directory.
	DefaultOutput = "dist"

	// DefaultStaticDir is the default directory scanned for assets.
	DefaultStaticDir = "wwwroot"

	// DefaultManifest is the file name of the endpoint manifest.
	DefaultManifest = "endpoints.json"

	// DefaultDebounce is the default delay between a change and a rebuild.
	DefaultDebounce = "100ms"
)

// Build modes.
const (
	ModeBuild   = "build"
	ModePublish = "publish"
)

// Config represents the complete assetkit.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Static describes where assets are discovered.
	Static StaticConfig `json:"static,omitempty"`

	// Fingerprint controls fingerprint insertion into asset paths.
	Fingerprint FingerprintConfig `json:"fingerprint,omitempty"`

	// ContentTypes are extra content type mappings, consulted before the
	// built-in table.
	ContentTypes []contenttype.Mapping `json:"contentTypes,omitempty"`

	// Compression controls generation of compressed variants.
	Compression CompressionConfig `json:"compression,omitempty"`

	// Build contains manifest build settings.
	Build BuildConfig `json:"build,omitempty"`

	// Dev contains development server configuration.
	Dev DevConfig `json:"dev,omitempty"`

	// Publish contains object storage upload settings.
	Publish PublishConfig `json:"publish,omitempty"`

	// Manifests lists hand-written endpoint manifests merged into the build,
	// for aliases and custom headers. Relative asset files resolve against
	// the static directory.
	Manifests []string `json:"manifests,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// StaticConfig contains asset discovery configuration.
type StaticConfig struct {
	// Dir is the directory containing static files.
	Dir string `json:"dir,omitempty"`

	// BasePath prefixes every route (default: "/").
	BasePath string `json:"basePath,omitempty"`

	// Include lists globs of files to pick up. Empty means all files.
	Include []string `json:"include,omitempty"`

	// Exclude lists globs of files to skip.
	Exclude []string `json:"exclude,omitempty"`
}

// FingerprintConfig controls fingerprinting.
type FingerprintConfig struct {
	// Enabled inserts fingerprint expressions into asset paths.
	Enabled bool `json:"enabled"`

	// Patterns maps globs to fingerprint expressions. First match wins.
	Patterns []fingerprint.Pattern `json:"patterns,omitempty"`
}

// CompressionConfig controls compressed variants.
type CompressionConfig struct {
	// Enabled turns compression on.
	Enabled bool `json:"enabled"`

	// Formats lists encodings to produce ("gzip", "br").
	Formats []string `json:"formats,omitempty"`

	// Include restricts compression to matching files.
	Include []string `json:"include,omitempty"`

	// MinSize skips files smaller than this many bytes.
	MinSize int64 `json:"minSize,omitempty"`
}

// BuildConfig contains manifest build settings.
type BuildConfig struct {
	// Output is the output directory for builds.
	Output string `json:"output,omitempty"`

	// Mode is "build" (manifest points at source files) or "publish"
	// (files are copied into the output directory).
	Mode string `json:"mode,omitempty"`

	// Manifest is the manifest file name inside Output.
	Manifest string `json:"manifest,omitempty"`
}

// DevConfig contains development server settings.
type DevConfig struct {
	// Port is the port to run the dev server on.
	Port int `json:"port,omitempty"`

	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Debounce is the delay before rebuilding after a change (e.g. "100ms").
	Debounce string `json:"debounce,omitempty"`

	// HotReload notifies connected browsers after each rebuild.
	HotReload bool `json:"hotReload"`
}

// PublishConfig contains S3 upload settings.
type PublishConfig struct {
	// Bucket is the target bucket.
	Bucket string `json:"bucket,omitempty"`

	// Prefix is prepended to every object key.
	Prefix string `json:"prefix,omitempty"`

	// Region overrides the region from the AWS environment.
	Region string `json:"region,omitempty"`

	// Endpoint is a custom S3-compatible endpoint URL.
	Endpoint string `json:"endpoint,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Static: StaticConfig{
			Dir:      DefaultStaticDir,
			BasePath: "/",
		},
		Fingerprint: FingerprintConfig{
			Enabled: true,
		},
		Compression: CompressionConfig{
			Enabled: true,
			Formats: []string{"gzip", "br"},
			MinSize: 256,
		},
		Build: BuildConfig{
			Output:   DefaultOutput,
			Mode:     ModeBuild,
			Manifest: DefaultManifest,
		},
		Dev: DevConfig{
			Port:      DefaultPort,
			Host:      DefaultHost,
			Debounce:  DefaultDebounce,
			HotReload: true,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for assetkit.json in the directory.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	return LoadFile(configPath)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeNotAProject).
				WithDetail("No assetkit.json found in " + filepath.Dir(path)).
				WithSuggestion("Create assetkit.json at the project root")
		}
		return nil, errors.New(errors.CodeInvalidConfig).Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.CodeInvalidConfig).
			WithDetail("Failed to parse assetkit.json: " + err.Error()).
			WithSuggestion("Check that assetkit.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// SaveTo writes the configuration to path and roots relative paths there.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New(errors.CodeInvalidConfig).Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.CodeInvalidConfig).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// SetDir roots relative paths at dir for configs that were not loaded from
// a file.
func (c *Config) SetDir(dir string) {
	c.configPath = filepath.Join(dir, ConfigFileName)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Static.Dir == "" {
		c.Static.Dir = DefaultStaticDir
	}
	if c.Static.BasePath == "" {
		c.Static.BasePath = "/"
	}

	if len(c.Compression.Formats) == 0 {
		c.Compression.Formats = []string{"gzip", "br"}
	}

	if c.Build.Output == "" {
		c.Build.Output = DefaultOutput
	}
	if c.Build.Mode == "" {
		c.Build.Mode = ModeBuild
	}
	if c.Build.Manifest == "" {
		c.Build.Manifest = DefaultManifest
	}

	if c.Dev.Port == 0 {
		c.Dev.Port = DefaultPort
	}
	if c.Dev.Host == "" {
		c.Dev.Host = DefaultHost
	}
	if c.Dev.Debounce == "" {
		c.Dev.Debounce = DefaultDebounce
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Dev.Port < 0 || c.Dev.Port > 65535 {
		return errors.New(errors.CodeInvalidPort).
			WithDetail("Port must be between 0 and 65535")
	}

	if c.Build.Mode != ModeBuild && c.Build.Mode != ModePublish {
		return errors.New(errors.CodeInvalidConfig).
			WithDetail("build.mode must be \"build\" or \"publish\"").
			WithMeta("mode", c.Build.Mode)
	}

	if _, err := time.ParseDuration(c.Dev.Debounce); err != nil {
		return errors.New(errors.CodeInvalidConfig).
			WithDetail("dev.debounce is not a duration").
			WithMeta("debounce", c.Dev.Debounce)
	}

	globs := append([]string{}, c.Static.Include...)
	globs = append(globs, c.Static.Exclude...)
	globs = append(globs, c.Compression.Include...)
	for _, p := range c.Fingerprint.Patterns {
		globs = append(globs, p.Glob)
	}
	for _, m := range c.ContentTypes {
		globs = append(globs, m.Pattern)
	}
	for _, g := range globs {
		if !doublestar.ValidatePattern(g) {
			return errors.New(errors.CodeInvalidGlob).WithMeta("pattern", g)
		}
	}

	for _, f := range c.Compression.Formats {
		if f != "gzip" && f != "br" {
			return errors.New(errors.CodeInvalidConfig).
				WithDetail("unsupported compression format").
				WithMeta("format", f)
		}
	}
	return nil
}

// DevAddress returns the address string for the dev server.
func (c *Config) DevAddress() string {
	return net.JoinHostPort(c.Dev.Host, strconv.Itoa(c.Dev.Port))
}

// DevURL returns the full URL for the dev server.
func (c *Config) DevURL() string {
	return "http://" + c.DevAddress()
}

// DebounceDuration parses Dev.Debounce, falling back to the default.
func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Dev.Debounce)
	if err != nil {
		d, _ = time.ParseDuration(DefaultDebounce)
	}
	return d
}

// StaticPath returns the absolute path to the static directory.
func (c *Config) StaticPath() string {
	return c.resolve(c.Static.Dir)
}

// OutputPath returns the absolute path to the build output directory.
func (c *Config) OutputPath() string {
	return c.resolve(c.Build.Output)
}

// ManifestPath returns the absolute path of the endpoint manifest.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.OutputPath(), c.Build.Manifest)
}

// ManifestPaths returns the absolute paths of the manifests to merge.
func (c *Config) ManifestPaths() []string {
	paths := make([]string, len(c.Manifests))
	for i, m := range c.Manifests {
		paths[i] = c.resolve(m)
	}
	return paths
}

// IsPublish reports whether builds copy files into the output directory.
func (c *Config) IsPublish() bool {
	return c.Build.Mode == ModePublish
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	path := filepath.Join(dir, ConfigFileName)
	_, err := os.Stat(path)
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing assetkit.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New(errors.CodeNotAProject).
				WithDetail("No assetkit.json found in " + startDir + " or any parent directory").
				WithSuggestion("Create assetkit.json at the project root")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
