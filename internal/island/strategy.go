package island

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/roach88/islet/internal/dom"
)

// Strategy names when an island hydrates.
type Strategy string

const (
	Load        Strategy = "load"
	Idle        Strategy = "idle"
	Visible     Strategy = "visible"
	Interaction Strategy = "interaction"
	Media       Strategy = "media"
	Never       Strategy = "never"
)

// Island marker attributes.
const (
	AttrID       = "data-island-id"
	AttrStrategy = "data-island-strategy"
	AttrOptions  = "data-island-options"
	AttrState    = "data-island-state"
	// AttrHydrated is set on an island element once it has hydrated.
	AttrHydrated = "data-island-hydrated"
)

// IdleFallbackDelay is the timer used for idle islands when the host has
// no idle callback.
const IdleFallbackDelay = time.Millisecond

// ErrUnknownStrategy is returned by ParseStrategy for unrecognized names.
var ErrUnknownStrategy = errors.New("unknown island strategy")

// Strategies lists every strategy in documentation order.
func Strategies() []Strategy {
	return []Strategy{Load, Idle, Visible, Interaction, Media, Never}
}

// ParseStrategy parses a strategy name. The empty string means Load.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.TrimSpace(s)); st {
	case "":
		return Load, nil
	case Load, Idle, Visible, Interaction, Media, Never:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Options tune a strategy.
type Options struct {
	Threshold  float64       // visible: minimum intersection ratio
	RootMargin string        // visible: passed through to the observer
	Timeout    time.Duration // idle: upper bound on the wait
	Media      string        // media: the query
}

// OptionsFromMap reads options from decoded JSON. Timeout is in
// milliseconds; "query" is accepted as an alias of "media".
func OptionsFromMap(m map[string]any) Options {
	var o Options
	if v, ok := m["threshold"].(float64); ok {
		o.Threshold = v
	}
	if v, ok := m["rootMargin"].(string); ok {
		o.RootMargin = v
	}
	if v, ok := m["timeout"].(float64); ok && v > 0 {
		o.Timeout = time.Duration(v * float64(time.Millisecond))
	}
	if v, ok := m["media"].(string); ok {
		o.Media = v
	} else if v, ok := m["query"].(string); ok {
		o.Media = v
	}
	return o
}

// ParseOptions decodes the data-island-options attribute value as read
// from a parsed document (entities already decoded). An empty value yields
// zero options.
func ParseOptions(raw string) (Options, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Options{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return Options{}, fmt.Errorf("parse island options: %w", err)
	}
	return OptionsFromMap(m), nil
}

// Descriptor is an island marker found in a document.
type Descriptor struct {
	ID       string
	Strategy Strategy
	Options  Options
	// State is the seed decoded from data-island-state, or nil.
	State   map[string]any
	Element *html.Node
}

// Scan finds every island element under root in document order. Markers
// with a malformed strategy, options or state are reported in the error
// and skipped; the rest are still returned.
func Scan(root *html.Node) ([]Descriptor, error) {
	var (
		out  []Descriptor
		errs []error
	)
	for _, el := range dom.FindAll(root, dom.HasAttr(AttrID)) {
		d, err := Describe(el)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, d)
	}
	return out, errors.Join(errs...)
}

// Describe reads the island marker attributes of el.
func Describe(el *html.Node) (Descriptor, error) {
	id, ok := dom.GetAttr(el, AttrID)
	if !ok {
		return Descriptor{}, fmt.Errorf("element <%s> has no %s", el.Data, AttrID)
	}
	d := Descriptor{ID: id, Element: el}

	st, err := ParseStrategy(dom.AttrOr(el, AttrStrategy, ""))
	if err != nil {
		return Descriptor{}, fmt.Errorf("island %s: %w", id, err)
	}
	d.Strategy = st

	if d.Options, err = ParseOptions(dom.AttrOr(el, AttrOptions, "")); err != nil {
		return Descriptor{}, fmt.Errorf("island %s: %w", id, err)
	}

	if raw := strings.TrimSpace(dom.AttrOr(el, AttrState, "")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &d.State); err != nil {
			return Descriptor{}, fmt.Errorf("island %s: parse state: %w", id, err)
		}
	}
	return d, nil
}
