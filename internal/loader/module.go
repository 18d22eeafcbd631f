package loader

import (
	"regexp"
	"strconv"
	"strings"
)

// moduleVar is the object a wrapped module assigns its exports to.
const moduleVar = "__module"

var (
	exportDefault = regexp.MustCompile(`(?m)^(\s*)export\s+default\s+`)
	exportDecl    = regexp.MustCompile(`(?m)^(\s*)export\s+((?:async\s+)?function\*?|class|const|let|var)\s+([A-Za-z_$][\w$]*)`)
	exportList    = regexp.MustCompile(`(?m)^\s*export\s*\{([^}]*)\}\s*;?`)
	importMetaURL = regexp.MustCompile(`\bimport\.meta\.url\b`)
)

// wrapModule rewrites an ES module into a script expression that evaluates
// to an object holding its exports. Only the export forms emitted by
// wasm-bindgen glue are supported; import statements are not.
func wrapModule(src, url string) string {
	var names []string

	src = importMetaURL.ReplaceAllString(src, strconv.Quote(url))
	src = exportDefault.ReplaceAllString(src, "${1}"+moduleVar+".default = ")
	src = exportDecl.ReplaceAllStringFunc(src, func(m string) string {
		parts := exportDecl.FindStringSubmatch(m)
		names = append(names, parts[3])
		return parts[1] + parts[2] + " " + parts[3]
	})
	src = exportList.ReplaceAllStringFunc(src, func(m string) string {
		inner := exportList.FindStringSubmatch(m)[1]
		var b strings.Builder
		for _, spec := range strings.Split(inner, ",") {
			spec = strings.TrimSpace(spec)
			if spec == "" {
				continue
			}
			local, exported := spec, spec
			if l, e, ok := strings.Cut(spec, " as "); ok {
				local, exported = strings.TrimSpace(l), strings.TrimSpace(e)
			}
			b.WriteString(moduleVar + "[" + strconv.Quote(exported) + "] = " + local + "; ")
		}
		return b.String()
	})

	var out strings.Builder
	out.WriteString("(function(" + moduleVar + ") {\n")
	out.WriteString(src)
	out.WriteString("\n;")
	for _, n := range names {
		out.WriteString(moduleVar + "." + n + " = " + n + "; ")
	}
	out.WriteString("\nreturn " + moduleVar + ";\n})({})")
	return out.String()
}
