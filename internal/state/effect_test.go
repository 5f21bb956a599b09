package state

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/islet/internal/expr"
	"github.com/roach88/islet/internal/testutil"
)

func TestEffect_RerunsOnDependencyChange(t *testing.T) {
	scope := NewGlobal(nil, nil)
	scope.Set("a", 1)
	scope.Set("b", 10)

	var seen []any
	e := NewEffect(scope, func(r expr.StateReader) {
		seen = append(seen, expr.Evaluate(testutil.State("a"), expr.NewContext(r)))
	})
	assert.Equal(t, []string{"a"}, e.Deps())

	scope.Set("a", 2)
	scope.Set("b", 11) // not read
	assert.Equal(t, []any{float64(1), float64(2)}, seen)

	e.Stop()
	e.Stop()
	scope.Set("a", 3)
	assert.Len(t, seen, 2)
	assert.True(t, e.Stopped())
	assert.Equal(t, 0, scope.Store().SubscriberCount("a"))
}

func TestEffect_DynamicDependencies(t *testing.T) {
	scope := NewGlobal(nil, nil)
	scope.Set("flag", true)
	scope.Set("x", "X")
	scope.Set("y", "Y")

	cond := testutil.Cond(testutil.State("flag"), testutil.State("x"), testutil.State("y"))
	runs := 0
	var last any
	NewEffect(scope, func(r expr.StateReader) {
		runs++
		last = expr.Evaluate(cond, expr.NewContext(r))
	})
	assert.Equal(t, "X", last)

	scope.Set("y", "Y2") // untaken branch is not watched
	assert.Equal(t, 1, runs)

	scope.Set("flag", false)
	assert.Equal(t, "Y2", last)

	scope.Set("x", "X2") // no longer watched
	assert.Equal(t, 2, runs)
}

func TestEffect_OwnWriteDoesNotLoop(t *testing.T) {
	scope := NewGlobal(nil, nil)
	scope.Set("n", 0)

	runs := 0
	NewEffect(scope, func(r expr.StateReader) {
		runs++
		n := expr.ToNumber(expr.Evaluate(testutil.State("n"), expr.NewContext(r)))
		scope.Set("n", n+1)
	})
	assert.Equal(t, 1, runs)
	assert.Equal(t, float64(1), scope.Get("n"))

	scope.Set("n", 10)
	assert.Equal(t, 2, runs)
	assert.Equal(t, float64(11), scope.Get("n"))
}

func TestEffect_ReadsThroughLocalScopes(t *testing.T) {
	global := NewGlobal(nil, nil)
	global.Set("count", 0)
	local := NewLocal(global, nil, "item")
	local.Store().Set("count", 5)

	var seen []any
	NewEffect(local, func(r expr.StateReader) {
		seen = append(seen, expr.Evaluate(testutil.State("count"), expr.NewContext(r)))
	})

	global.Set("count", 1) // shadowed
	local.Set("count", 6)
	assert.Equal(t, []any{float64(5), float64(6)}, seen)
}
