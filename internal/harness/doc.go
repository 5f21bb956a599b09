// Package harness runs hydration scenarios against the runtime.
//
// A scenario names a compiled program, the server markup to start from,
// how to attach to it, a list of host interactions, and assertions on the
// resulting document and state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: counter_island
//	description: "What this scenario validates"
//	program: counter.json        # relative to the scenario file
//	html: counter.html           # optional; SSR output of program if empty
//	mode: islands                # hydrate | islands | create
//	window:
//	  idle: false                # host without requestIdleCallback
//	  location: /docs
//	  media: {"(min-width: 800px)": true}
//	steps:
//	  - intersect: {target: "[data-island-id=counter]"}
//	  - click: "#inc"
//	  - input: {target: "#name", value: "ada"}
//	  - advance: 250             # virtual milliseconds
//	assertions:
//	  - type: text
//	    target: "#count"
//	    expect: "1"
//	  - type: hydrated
//	    island: counter
//	    expect: true
//
// # Step Types
//
//   - click, hover, focus: fire the event on the first element matching a selector
//   - input: set an input's value and fire input
//   - set_state: write a global state cell
//   - dispatch: dispatch an action with an optional payload
//   - navigate: change the route
//   - advance: move virtual time forward, firing due timers
//   - idle: run pending idle callbacks
//   - intersect: report an element's visibility ratio (default 1)
//   - media: flip a media query
//   - flush: drain queued tasks
//   - settle: wait for in-flight fetches
//   - destroy: tear the app down
//
// # Assertion Types
//
//   - text: text content of the first match
//   - attr: attribute value of the first match (expect null for absent)
//   - state: global state value
//   - count: number of matches
//   - hydrated: whether an island carries the hydrated marker
//   - errors: runtime error codes recorded by the app, in order
//
// # Deterministic Testing
//
// Every scenario runs on a fresh window with virtual time, sequential
// instance ids and a fresh in-memory SQLite store for storage steps, so the
// final markup is reproducible and can be compared with golden files.
package harness
