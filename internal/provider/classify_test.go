package provider_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shadowlend/shadowlend/internal/provider"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want provider.Class
	}{
		{name: "nil", err: nil, want: provider.ClassNone},
		{name: "rejection code", err: &provider.RPCError{Code: 4001, Message: "denied"}, want: provider.ClassRejected},
		{name: "rejection message", err: errors.New("User rejected the request."), want: provider.ClassRejected},
		{name: "rejection sentinel wrapped", err: fmt.Errorf("connect: %w", provider.ErrRejected), want: provider.ClassRejected},
		{name: "port disconnected", err: errors.New("Attempting to use a disconnected port object"), want: provider.ClassTransient},
		{name: "port disconnected literal", err: errors.New("port disconnected"), want: provider.ClassTransient},
		{name: "worker not ready", err: errors.New("Service worker not ready"), want: provider.ClassTransient},
		{name: "receiving end", err: errors.New("Could not establish connection. Receiving end does not exist."), want: provider.ClassTransient},
		{name: "transient sentinel", err: fmt.Errorf("x: %w", provider.ErrTransient), want: provider.ClassTransient},
		{name: "not detected", err: provider.ErrNotDetected, want: provider.ClassAbsent},
		{name: "no wallet app", err: fmt.Errorf("authorize: %w", provider.ErrNoWalletApp), want: provider.ClassAbsent},
		{name: "other rpc code", err: &provider.RPCError{Code: -32603, Message: "internal error"}, want: provider.ClassHard},
		{name: "unknown", err: errors.New("boom"), want: provider.ClassHard},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, provider.Classify(tc.err))
		})
	}
}

func TestClassString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "none", provider.ClassNone.String())
	assert.Equal(t, "rejected", provider.ClassRejected.String())
	assert.Equal(t, "transient", provider.ClassTransient.String())
	assert.Equal(t, "absent", provider.ClassAbsent.String())
	assert.Equal(t, "hard", provider.ClassHard.String())
	assert.Equal(t, "unknown", provider.Class(99).String())
}

func TestRPCError(t *testing.T) {
	t.Parallel()

	err := &provider.RPCError{Code: provider.CodeUserRejected, Message: "User rejected the request."}
	assert.Equal(t, "provider error 4001: User rejected the request.", err.Error())
	assert.ErrorIs(t, err, provider.ErrRejected)

	other := &provider.RPCError{Code: 4100, Message: "unauthorized"}
	assert.NotErrorIs(t, other, provider.ErrRejected)
}
