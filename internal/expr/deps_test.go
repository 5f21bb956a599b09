package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/islet/internal/ir"
	"github.com/roach88/islet/internal/testutil"
)

func TestAnalyze(t *testing.T) {
	e := &ir.Cond{
		If: testutil.Bin("&&", testutil.State("a"), testutil.Local("b")),
		Then: testutil.Concat(
			testutil.Import("site"),
			&ir.Call{Target: "array", Method: "map", Receiver: testutil.State("items"), Args: []ir.Expr{
				&ir.Lambda{Params: []string{"x"}, Body: testutil.Bin("+", testutil.Var("x"), testutil.Var("offset"))},
			}},
		),
		Else: &ir.RouteRef{Path: "path"},
	}

	d := Analyze(e)
	assert.Equal(t, []string{"a", "items"}, d.State)
	assert.Equal(t, []string{"b"}, d.Local)
	assert.Equal(t, []string{"site"}, d.Imports)
	assert.Equal(t, []string{"offset"}, d.Vars, "lambda params are not free variables")
	assert.True(t, d.Route)
	assert.False(t, d.Date)
	assert.True(t, d.External())
	assert.Equal(t, []string{"a", "items", "b"}, d.Names())
}

func TestAnalyzeDate(t *testing.T) {
	d := Analyze(&ir.Call{Target: "Date", Method: "now"})
	assert.True(t, d.Date)
	assert.True(t, d.External())
}

func TestAnalyzePureStateIsNotExternal(t *testing.T) {
	d := Analyze(testutil.Bin("*", testutil.Local("base"), testutil.Lit(2)))
	assert.False(t, d.External())
	assert.Equal(t, []string{"base"}, d.Names())
}
