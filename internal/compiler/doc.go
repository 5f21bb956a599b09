// Package compiler loads compiled programs from disk and checks them
// before they reach the runtime.
//
// Programs arrive as JSON, YAML or CUE. YAML and CUE sources are converted
// to JSON with object key order preserved, since state declaration order
// is initialization order, and then decoded by the ir package.
//
// Validate reports structural problems the runtime would otherwise only
// surface as warnings at dispatch time. AnalyzeInitCycles reports state
// initializers that reference each other.
package compiler
