// Package dom provides the document model and browser host the runtime
// renders into.
//
// The document is a golang.org/x/net/html node tree. Window stands in for
// the browser: it owns the event loop (tasks, microtasks, timers on a
// virtual clock), event listeners with bubbling, idle callbacks,
// intersection observers, media queries, fetch and key/value storage.
//
// Window is driven explicitly. Nothing runs until a caller advances time,
// fires an event or flushes the queues, which makes every interleaving of
// island triggers reproducible in tests.
//
// Only the goroutine driving the window may touch the document or call
// Window methods, with one exception: Post is safe from any goroutine and
// is how fetch results re-enter the loop.
package dom
