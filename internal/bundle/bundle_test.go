package bundle

import (
	"errors"
	"testing"

	"github.com/GriffinCanCode/ncube-web/internal/shared/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	payload := testutil.NoopGuest()
	data := testutil.BuildBundle(t, "export default function init() {}", payload)

	assets, err := Extract(data)
	require.NoError(t, err)
	assert.Equal(t, "export default function init() {}", assets.Script)
	assert.Equal(t, payload, assets.Payload)
}

func TestExtractIgnoresExtraEntries(t *testing.T) {
	data := testutil.ZipBytes(t,
		testutil.Entry{Name: "README.md", Data: []byte("hi")},
		testutil.Entry{Name: ScriptEntry, Data: []byte("js")},
		testutil.Entry{Name: PayloadEntry, Data: []byte{0, 'a', 's', 'm'}},
	)

	assets, err := Extract(data)
	require.NoError(t, err)
	assert.Equal(t, "js", assets.Script)
}

func TestExtractMalformed(t *testing.T) {
	tests := []struct {
		name  string
		data  func(t *testing.T) []byte
		entry string
	}{
		{
			name:  "not a zip",
			data:  func(t *testing.T) []byte { return []byte("definitely not a zip") },
			entry: "",
		},
		{
			name: "missing script",
			data: func(t *testing.T) []byte {
				return testutil.ZipBytes(t, testutil.Entry{Name: PayloadEntry, Data: []byte{1}})
			},
			entry: ScriptEntry,
		},
		{
			name: "missing payload",
			data: func(t *testing.T) []byte {
				return testutil.ZipBytes(t, testutil.Entry{Name: ScriptEntry, Data: []byte("js")})
			},
			entry: PayloadEntry,
		},
		{
			name: "empty payload",
			data: func(t *testing.T) []byte {
				return testutil.BuildBundle(t, "js", nil)
			},
			entry: PayloadEntry,
		},
		{
			name: "nested entry names do not count",
			data: func(t *testing.T) []byte {
				return testutil.ZipBytes(t,
					testutil.Entry{Name: "pkg/" + ScriptEntry, Data: []byte("js")},
					testutil.Entry{Name: PayloadEntry, Data: []byte{1}},
				)
			},
			entry: ScriptEntry,
		},
		{
			name: "script not utf-8",
			data: func(t *testing.T) []byte {
				return testutil.BuildBundle(t, string([]byte{0xff, 0xfe}), []byte{1})
			},
			entry: ScriptEntry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.data(t))
			var malformed *MalformedBundleError
			require.True(t, errors.As(err, &malformed), "got %v", err)
			assert.Equal(t, tt.entry, malformed.Entry)
		})
	}
}

func TestPackRoundTrip(t *testing.T) {
	want := Assets{Script: "export default function init() {}", Payload: testutil.EchoGuest()}

	for _, method := range []Method{Store, Deflate, Zstd} {
		data, err := Pack(want, method)
		require.NoError(t, err)

		got, err := Extract(data)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
