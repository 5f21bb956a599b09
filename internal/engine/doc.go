// Package engine renders compiled programs into a document and keeps them
// live.
//
// The engine is where the pieces meet: expressions from package expr,
// scopes from package state, the host from package dom and island
// scheduling from package island.
//
// ARCHITECTURE:
//
// Two entry points, one walk:
//   - CreateApp renders the view into an empty container.
//   - HydrateApp walks an existing server-rendered container alongside the
//     view and adopts its nodes instead of creating them.
//   - HydrateIslands leaves the page static and hydrates each island
//     element when its strategy fires.
//
// Both walks produce the same structure: every dynamic region (text,
// attribute, conditional, loop) is an effect that re-runs when a state
// cell it read changes, and every registration (effect, listener,
// observer, portal content, local scope) is paired with a cleanup on the
// owner of the region that created it. Removing a region disposes its
// owner, which releases everything beneath it.
//
// Markup contract shared by rendering and hydration:
//
//	<!--if:then--> <!--if:else--> <!--if:none-->   conditional branch marker
//	<!--each--> ... <!--/each-->                   loop anchors
//	<!--portal-->                                  portal placeholder
//	<!--portal-content-->                          start of portal content in its target
//	<!--slot:name-->                               slot placeholder
//	data-island-id / -strategy / -options / -state island wrapper
//	data-local-state                               server values of local fields
//
// CONCURRENCY:
//
// Everything runs on the goroutine that drives the app's dom.Window.
// Effects apply synchronously; fetch continuations arrive as window tasks.
// Failures in handlers, lifecycle hooks and teardown are logged and
// recorded on the app, never propagated to the caller.
package engine
