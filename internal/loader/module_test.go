package loader

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalModule(t *testing.T, src string) *goja.Object {
	t.Helper()
	vm := goja.New()
	v, err := vm.RunString(wrapModule(src, "blob:ncube/test"))
	require.NoError(t, err)
	return v.ToObject(vm)
}

func TestWrapModuleExports(t *testing.T) {
	mod := evalModule(t, `
function helper() { return 1; }
export function named() { return helper() + 1; }
export const answer = 42;
export class Thing {}
let hidden = 7;
export { hidden as shown, helper };
export default async function init() { return "ok"; }
`)

	for _, name := range []string{"named", "answer", "Thing", "shown", "helper", "default"} {
		v := mod.Get(name)
		assert.False(t, v == nil || goja.IsUndefined(v), "missing export %s", name)
	}
	assert.Equal(t, int64(42), mod.Get("answer").ToInteger())
	assert.Equal(t, int64(7), mod.Get("shown").ToInteger())
	assert.True(t, goja.IsUndefined(mod.Get("hidden")))
}

func TestWrapModuleDefaultExpression(t *testing.T) {
	mod := evalModule(t, `
function __wbg_init(x) { return x * 2; }
export { __wbg_init as initSync };
export default __wbg_init;
`)

	fn, ok := goja.AssertFunction(mod.Get("default"))
	require.True(t, ok)
	v, err := fn(goja.Undefined(), goja.New().ToValue(21))
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.ToInteger())
}

func TestWrapModuleImportMetaURL(t *testing.T) {
	mod := evalModule(t, `export const here = import.meta.url;`)
	assert.Equal(t, "blob:ncube/test", mod.Get("here").String())
}

func TestWrapModuleIgnoresInlineExportText(t *testing.T) {
	mod := evalModule(t, `export const s = "not an export default here";`)
	assert.Equal(t, "not an export default here", mod.Get("s").String())
}
