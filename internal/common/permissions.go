package common

// Modes for files and directories the tool creates
const (
	// FilePermissionSecure covers the config file and stored credentials
	FilePermissionSecure = 0600

	// FilePermissionNormal covers generated statistics scripts
	FilePermissionNormal = 0644

	DirPermissionSecure = 0700
	DirPermissionNormal = 0755
)
