package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	DocURL   string
}

// Registered error codes.
const (
	CodeInvalidConfig       = "E120"
	CodeMissingConfig       = "E121"
	CodeInvalidPort         = "E122"
	CodeInvalidGlob         = "E123"
	CodeDirectoryExists     = "E140"
	CodeNotAProject         = "E141"
	CodeBuildFailed         = "E142"
	CodeStaticDirNotFound   = "E143"
	CodeTemplateNotFound    = "E145"
	CodePublishFailed       = "E150"
	CodeInvalidManifest     = "E160"
	CodeManifestWriteFailed = "E161"
	CodeUnresolvedToken     = "E201"
	CodeAssetConflict       = "E202"
	CodeMissingAsset        = "E203"
	CodeInvalidPattern      = "E204"
	CodeDuplicateAsset      = "E205"
	CodeRouteConflict       = "E206"
)

const docBase = "https://assetkit.vango.dev/docs/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E120-E139)
	// ============================================

	CodeInvalidConfig: {
		Category: CategoryConfig,
		Message:  "Invalid assetkit.json",
		DocURL:   docBase + CodeInvalidConfig,
	},
	CodeMissingConfig: {
		Category: CategoryConfig,
		Message:  "Missing required configuration",
		DocURL:   docBase + CodeMissingConfig,
	},
	CodeInvalidPort: {
		Category: CategoryConfig,
		Message:  "Invalid port number",
		DocURL:   docBase + CodeInvalidPort,
	},
	CodeInvalidGlob: {
		Category: CategoryConfig,
		Message:  "Invalid glob pattern",
		DocURL:   docBase + CodeInvalidGlob,
	},

	// ============================================
	// CLI Errors (E140-E149)
	// ============================================

	CodeDirectoryExists: {
		Category: CategoryCLI,
		Message:  "Directory already contains a project",
		DocURL:   docBase + CodeDirectoryExists,
	},
	CodeNotAProject: {
		Category: CategoryCLI,
		Message:  "Not an assetkit project",
		DocURL:   docBase + CodeNotAProject,
	},
	CodeBuildFailed: {
		Category: CategoryCLI,
		Message:  "Build failed",
		DocURL:   docBase + CodeBuildFailed,
	},
	CodeStaticDirNotFound: {
		Category: CategoryCLI,
		Message:  "Static directory not found",
		DocURL:   docBase + CodeStaticDirNotFound,
	},
	CodeTemplateNotFound: {
		Category: CategoryCLI,
		Message:  "Project template not found",
		DocURL:   docBase + CodeTemplateNotFound,
	},

	// ============================================
	// Publish Errors (E150-E159)
	// ============================================

	CodePublishFailed: {
		Category: CategoryPublish,
		Message:  "Publish failed",
		DocURL:   docBase + CodePublishFailed,
	},

	// ============================================
	// Manifest Errors (E160-E179)
	// ============================================

	CodeInvalidManifest: {
		Category: CategoryManifest,
		Message:  "Invalid endpoint manifest",
		DocURL:   docBase + CodeInvalidManifest,
	},
	CodeManifestWriteFailed: {
		Category: CategoryManifest,
		Message:  "Failed to write endpoint manifest",
		DocURL:   docBase + CodeManifestWriteFailed,
	},

	// ============================================
	// Pattern and Asset Errors (E200-E219)
	// ============================================

	CodeUnresolvedToken: {
		Category: CategoryPattern,
		Message:  "Unresolved path pattern token",
		DocURL:   docBase + CodeUnresolvedToken,
	},
	CodeAssetConflict: {
		Category: CategoryAsset,
		Message:  "Conflicting assets for the same path",
		DocURL:   docBase + CodeAssetConflict,
	},
	CodeMissingAsset: {
		Category: CategoryAsset,
		Message:  "Referenced asset not found",
		DocURL:   docBase + CodeMissingAsset,
	},
	CodeInvalidPattern: {
		Category: CategoryPattern,
		Message:  "Invalid path pattern",
		DocURL:   docBase + CodeInvalidPattern,
	},
	CodeDuplicateAsset: {
		Category: CategoryAsset,
		Message:  "Duplicate asset identity",
		DocURL:   docBase + CodeDuplicateAsset,
	},
	CodeRouteConflict: {
		Category: CategoryAsset,
		Message:  "Multiple default endpoints for one route",
		DocURL:   docBase + CodeRouteConflict,
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
