// Package island schedules the hydration of islands.
//
// Each island element carries a strategy in its data-island-strategy
// attribute. Activate arms the trigger for that strategy on a host and
// calls hydrate when it fires:
//
//	load         immediately
//	idle         on the next idle callback, or a short timer when the host
//	             has none; an optional timeout bounds the wait
//	visible      when an intersection observer reports the element
//	interaction  on the first click, focusin or mouseover
//	media        when a media query matches now or starts matching later
//	never        not at all
//
// Every activation hydrates at most once and returns a cleanup function
// that may be called any number of times. After cleanup no trigger can
// hydrate, even if it was already queued on the host.
package island
