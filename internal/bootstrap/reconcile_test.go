package bootstrap

import (
	"errors"
	"fmt"
	"testing"

	"github.com/GriffinCanCode/ncube-web/internal/guest"
	"github.com/GriffinCanCode/ncube-web/internal/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"resolved", nil, Resolved},
		{"exact sentinel", &loader.RejectionError{Message: Sentinel}, Benign},
		{"sentinel with suffix", &loader.RejectionError{Message: Sentinel + " (winit)"}, Benign},
		{"sentinel in plain error", errors.New(Sentinel), Benign},
		{"sentinel not at start", &loader.RejectionError{Message: "Error: " + Sentinel}, Failed},
		{"near miss", &loader.RejectionError{Message: "Using exceptions for control flow, dont mind me."}, Failed},
		{"case differs", &loader.RejectionError{Message: "using exceptions for control flow, don't mind me. This isn't actually an error!"}, Failed},
		{"other rejection", &loader.RejectionError{Message: "RuntimeError: unreachable"}, Failed},
		{"control signal", &guest.Signal{Version: 1, Code: guest.SignalControlFlow}, Benign},
		{"wrapped control signal", fmt.Errorf("start: %w", &guest.Signal{Version: 1, Code: 1}), Benign},
		{"unknown signal version", &guest.Signal{Version: 2, Code: 1}, Failed},
		{"unknown signal code", &guest.Signal{Version: 1, Code: 7}, Failed},
		{
			"rejection message wins over cause text",
			&loader.RejectionError{Message: "RuntimeError: unreachable", Cause: errors.New(Sentinel)},
			Failed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestReconcile(t *testing.T) {
	outcome, err := Reconcile(&loader.RejectionError{Message: Sentinel})
	assert.Equal(t, Benign, outcome)
	assert.NoError(t, err)

	cause := &loader.RejectionError{Message: "boom"}
	outcome, err = Reconcile(cause)
	assert.Equal(t, Failed, outcome)

	var bootErr *BootstrapError
	require.True(t, errors.As(err, &bootErr))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "boom")
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "FetchingBinary", FetchingBinary.String())
	assert.Equal(t, "LoadingApp", LoadingApp.String())
	assert.Equal(t, "Loaded", Loaded.String())
	assert.True(t, Loaded.Terminal())
	assert.False(t, LoadingApp.Terminal())
}
