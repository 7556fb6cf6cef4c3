package fsutil

// Permissions for everything written below the install and library directories.
// Replaced files keep the mode of the file they replace.
const (
	FileModeDefault = 0o644 // -rw-r--r--
	DirModeDefault  = 0o755 // drwxr-xr-x
)
