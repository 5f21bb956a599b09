// Package expr evaluates compiled expressions against a read-only context.
//
// Evaluation never fails on missing data: an absent state, import, local or
// loop variable, or a path segment on nil, evaluates to nil. Method calls
// are limited to a fixed whitelist of array, string, Math, Date, Object and
// JSON operations; anything else is logged and evaluates to nil.
//
// Operators follow JavaScript coercion rules for numbers and strings so that
// server-rendered and client-evaluated output agree.
package expr
