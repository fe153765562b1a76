package iocontext

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIO(t *testing.T) {
	io := DefaultIO()
	require.NotNil(t, io.Out)
	require.NotNil(t, io.ErrOut)
	require.NotNil(t, io.In)
}

func TestWithIORoundTrip(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	ctx := WithIO(context.Background(), &IO{Out: out, ErrOut: errOut})

	got := GetIO(ctx)
	assert.Same(t, out, got.Out)
	assert.Same(t, errOut, got.ErrOut)
}

func TestGetIODefaultsWhenNotSet(t *testing.T) {
	io := GetIO(context.Background())
	require.NotNil(t, io)
	assert.NotNil(t, io.Out)
}
