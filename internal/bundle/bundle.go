// Package bundle unpacks ncube release archives.
//
// A release is a zip holding exactly the two entries the host needs: the
// loader script and the compiled guest payload. Other entries are ignored.
package bundle

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// Entry names inside a release archive.
const (
	ScriptEntry  = "ncube.js"
	PayloadEntry = "ncube_bg.wasm"
)

// Assets are the decoded contents of a release bundle.
type Assets struct {
	Script  string
	Payload []byte
}

// MalformedBundleError reports an archive that cannot be used.
type MalformedBundleError struct {
	Entry  string
	Reason string
	Err    error
}

func (e *MalformedBundleError) Error() string {
	msg := "malformed bundle"
	if e.Entry != "" {
		msg += ": " + e.Entry
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedBundleError) Unwrap() error { return e.Err }

// Extract reads the script and payload out of a release archive.
func Extract(data []byte) (Assets, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Assets{}, &MalformedBundleError{Reason: "not a zip archive", Err: err}
	}
	r.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())

	files := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		files[f.Name] = f
	}

	script, err := readEntry(files, ScriptEntry)
	if err != nil {
		return Assets{}, err
	}
	if !utf8.Valid(script) {
		return Assets{}, &MalformedBundleError{Entry: ScriptEntry, Reason: "script is not valid UTF-8"}
	}

	payload, err := readEntry(files, PayloadEntry)
	if err != nil {
		return Assets{}, err
	}
	if len(payload) == 0 {
		return Assets{}, &MalformedBundleError{Entry: PayloadEntry, Reason: "payload is empty"}
	}

	return Assets{Script: string(script), Payload: payload}, nil
}

func readEntry(files map[string]*zip.File, name string) ([]byte, error) {
	f, ok := files[name]
	if !ok {
		return nil, &MalformedBundleError{Entry: name, Reason: "missing entry"}
	}
	rc, err := f.Open()
	if err != nil {
		return nil, &MalformedBundleError{Entry: name, Reason: "cannot open entry", Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &MalformedBundleError{Entry: name, Reason: "cannot read entry", Err: err}
	}
	return data, nil
}

// Method selects the compression used by Pack.
type Method uint16

const (
	Store   Method = Method(zip.Store)
	Deflate Method = Method(zip.Deflate)
	Zstd    Method = Method(zstd.ZipMethodWinZip)
)

// Pack builds a release archive from assets.
func Pack(assets Assets, method Method) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	if method == Zstd {
		w.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())
	}

	entries := []struct {
		name string
		data []byte
	}{
		{ScriptEntry, []byte(assets.Script)},
		{PayloadEntry, assets.Payload},
	}
	for _, e := range entries {
		fw, err := w.CreateHeader(&zip.FileHeader{Name: e.name, Method: uint16(method)})
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", e.name, err)
		}
		if _, err := fw.Write(e.data); err != nil {
			return nil, fmt.Errorf("write %s: %w", e.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}
