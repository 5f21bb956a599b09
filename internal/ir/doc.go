// Package ir provides the wire types consumed by the islet runtime.
//
// A compiled program arrives as JSON produced by an external compiler. This
// package decodes it into closed sets of variant types:
//   - Expr: expressions, tagged by "expr"
//   - Node: view nodes, tagged by "kind"
//   - Step: action steps, tagged by "do"
//
// Each union is a sealed interface (an unexported marker method) so that
// consumers can switch exhaustively over the variants. This package imports
// nothing internal; every other package builds on it.
//
// Key design constraints:
//   - Object keys whose order carries meaning (state fields, element props)
//     are decoded in source order, never through a Go map
//   - Runtime values are plain JSON values: nil, bool, float64, string,
//     []any, map[string]any
//   - nil stands for both JSON null and "undefined"
package ir
