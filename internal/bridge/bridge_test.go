package bridge

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/GriffinCanCode/ncube-web/internal/shared/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	downloads []Download
}

func (r *recorder) Deliver(d Download) error {
	r.downloads = append(r.downloads, d)
	return nil
}

func TestImportDrainsOnce(t *testing.T) {
	b := New(&recorder{})

	_, ok := b.Import()
	assert.False(t, ok, "empty slot")

	b.Drop("x")
	got, ok := b.Import()
	require.True(t, ok)
	assert.Equal(t, "x", got)

	got, ok = b.Import()
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestLastDropWins(t *testing.T) {
	b := New(&recorder{})
	b.Drop("a")
	b.Drop("b")

	got, ok := b.Import()
	require.True(t, ok)
	assert.Equal(t, "b", got)

	_, ok = b.Import()
	assert.False(t, ok)
}

func TestEmptyDropIsPending(t *testing.T) {
	b := New(&recorder{})
	b.Drop("")

	got, ok := b.Peek()
	assert.True(t, ok)
	assert.Empty(t, got)

	_, ok = b.Import()
	assert.True(t, ok)
	_, ok = b.Peek()
	assert.False(t, ok)
}

func TestExport(t *testing.T) {
	rec := &recorder{}
	b := New(rec)

	require.NoError(t, b.Export(4, `{"a":1}`))
	require.Len(t, rec.downloads, 1)

	d := rec.downloads[0]
	assert.Regexp(t, regexp.MustCompile(`^4cube-\d{10}\.data$`), d.Name)
	assert.Equal(t, "{\n  \"a\": 1\n}", d.Content)
	assert.Equal(t, MediaJSON, d.MediaType)
}

func TestExportUsesClock(t *testing.T) {
	rec := &recorder{}
	fc := clock.NewFake(time.Unix(1700000000, 999_000_000))
	b := New(rec, WithClock(fc))

	require.NoError(t, b.Export(9, `[1,2]`))
	assert.Equal(t, "9cube-1700000000.data", rec.downloads[0].Name)
	assert.Equal(t, "[\n  1,\n  2\n]", rec.downloads[0].Content)
}

func TestExportKeepsKeyOrder(t *testing.T) {
	got, err := FormatExport(`{"z":1,"a":{"y":[true,null],"b":"s"}}`)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"z\": 1,\n  \"a\": {\n    \"y\": [\n      true,\n      null\n    ],\n    \"b\": \"s\"\n  }\n}", got)
}

func TestExportInvalidJSON(t *testing.T) {
	rec := &recorder{}
	b := New(rec)

	err := b.Export(5, "{not json")
	var formatErr *ExportFormatError
	require.True(t, errors.As(err, &formatErr))
	assert.Equal(t, 5, formatErr.Dimension)
	assert.Empty(t, rec.downloads)
}

func TestExportDeliveryFailure(t *testing.T) {
	b := New(FuncDownloader(func(Download) error { return errors.New("no space") }))

	err := b.Export(3, "{}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no space")
}

func TestDirDownloader(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	d := DirDownloader{Dir: dir}

	require.NoError(t, d.Deliver(Download{Name: "../3cube-1.data", Content: "{}"}))

	data, err := os.ReadFile(filepath.Join(dir, "3cube-1.data"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestFormatExportMatchesBrowserOutput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"surrounding whitespace", " {\"a\":1}\n", "{\n  \"a\": 1\n}"},
		{"number literals", `[1.50,1e2,-0,0.000001,1e-7,1e21,123456789012345678901]`,
			"[\n  1.5,\n  100,\n  0,\n  0.000001,\n  1e-7,\n  1e+21,\n  123456789012345680000\n]"},
		{"overflow", `[1e400]`, "[\n  null\n]"},
		{"duplicate keys", `{"a":1,"b":2,"a":3}`, "{\n  \"a\": 3,\n  \"b\": 2\n}"},
		{"index keys first", `{"b":1,"10":2,"2":3,"01":4}`,
			"{\n  \"2\": 3,\n  \"10\": 2,\n  \"b\": 1,\n  \"01\": 4\n}"},
		{"empty containers", `{"a":[],"b":{}}`, "{\n  \"a\": [],\n  \"b\": {}\n}"},
		{"strings", `["<&>","\u0001\t","é"]`, "[\n  \"<&>\",\n  \"\\u0001\\t\",\n  \"é\"\n]"},
		{"scalar", `"x"`, `"x"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatExport(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatExportRejects(t *testing.T) {
	for _, in := range []string{"", "{}{}", `{"a":1} x`, `{"a" 1}`, "[1,]"} {
		_, err := FormatExport(in)
		assert.Error(t, err, "%q", in)
	}
}
