// Package testutil holds fixtures shared across package tests: release
// bundles and hand-assembled guest modules.
package testutil

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zip"
)

// Entry is one file in a test bundle.
type Entry struct {
	Name string
	Data []byte
}

// ZipBytes packs entries into a zip archive in order.
func ZipBytes(t testing.TB, entries ...Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		f, err := w.Create(e.Name)
		if err != nil {
			t.Fatalf("zip create %s: %v", e.Name, err)
		}
		if _, err := f.Write(e.Data); err != nil {
			t.Fatalf("zip write %s: %v", e.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// DefaultScript is a loader script whose default export instantiates the
// payload through the host.
const DefaultScript = `export default async function init(wasm) {
	return host.instantiate(wasm);
}
`

// BuildBundle returns a release bundle holding script and payload under
// the standard entry names.
func BuildBundle(t testing.TB, script string, payload []byte) []byte {
	t.Helper()
	return ZipBytes(t,
		Entry{Name: "ncube.js", Data: []byte(script)},
		Entry{Name: "ncube_bg.wasm", Data: payload},
	)
}
