// Package constants defines shared constant values.
package constants

// AppName is the project identifier used in logs and metadata.
const AppName = "project-builder"

// CommandName is the primary CLI command name.
const CommandName = "builder"

// Files the builder reads from and writes to the project root.
const (
	MetaFile             = "META.json"
	VersionFile          = "VERSION"
	ManifestFile         = "vcpkg.json"
	ManifestTemplateFile = "vcpkg.json.template"
	ArchiveFile          = "files.zip"
	EnvFile              = ".env"
	PerfExportFile       = "builder-perf.json"
)

// DefaultBuildDir is where cmake writes its build tree.
const DefaultBuildDir = "build-win"
