package engine

import (
	"fmt"
	"slices"
)

// owner collects the cleanups of one rendered region. Children are
// disposed before the owner's own cleanups, and cleanups run in reverse
// registration order.
type owner struct {
	parent   *owner
	children []*owner
	cleanups []func()
	disposed bool
}

func newOwner() *owner { return &owner{} }

func (o *owner) child() *owner {
	c := &owner{parent: o}
	if o.disposed {
		c.disposed = true
		return c
	}
	o.children = append(o.children, c)
	return c
}

// onCleanup registers fn. On a disposed owner fn runs immediately.
func (o *owner) onCleanup(fn func()) {
	if fn == nil {
		return
	}
	if o.disposed {
		fn()
		return
	}
	o.cleanups = append(o.cleanups, fn)
}

// dispose runs every cleanup once. A cleanup that panics is reported to
// onErr and the rest still run.
func (o *owner) dispose(onErr func(error)) {
	if o.disposed {
		return
	}
	o.disposed = true
	if o.parent != nil {
		o.parent.children = slices.DeleteFunc(o.parent.children, func(c *owner) bool { return c == o })
	}

	children := o.children
	o.children = nil
	for i := len(children) - 1; i >= 0; i-- {
		children[i].parent = nil
		children[i].dispose(onErr)
	}

	cleanups := o.cleanups
	o.cleanups = nil
	for i := len(cleanups) - 1; i >= 0; i-- {
		runCleanup(cleanups[i], onErr)
	}
}

func runCleanup(fn func(), onErr func(error)) {
	defer func() {
		if r := recover(); r != nil && onErr != nil {
			onErr(fmt.Errorf("panic: %v", r))
		}
	}()
	fn()
}
