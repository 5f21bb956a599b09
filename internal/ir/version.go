package ir

// Version constants for the wire format and runtime.
const (
	// IRVersion is the program wire format version this runtime accepts.
	IRVersion = "1"

	// RuntimeVersion is the islet runtime version.
	RuntimeVersion = "0.1.0"
)

// SupportsVersion reports whether a program's declared version can be
// loaded. An empty version is treated as the current one.
func SupportsVersion(v string) bool {
	return v == "" || v == IRVersion
}
