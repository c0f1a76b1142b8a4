// ABOUTME: Tests for the tool registry
// ABOUTME: Covers registration, collision detection, listing order, and dispatch

package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string) *Tool {
	return &Tool{
		Name:        name,
		Description: "echoes its input",
		InputSchema: json.RawMessage(`{"type":"object"}`),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			return string(input), nil
		},
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry(nil)

	require.NoError(t, r.Register(echoTool("alpha")))
	require.NoError(t, r.Register(echoTool("beta")))

	assert.NotNil(t, r.Get("alpha"))
	assert.Nil(t, r.Get("gamma"))
}

func TestRegistry_Collision(t *testing.T) {
	r := NewRegistry(nil)

	require.NoError(t, r.Register(echoTool("alpha")))
	err := r.Register(echoTool("alpha"))
	assert.ErrorIs(t, err, ErrToolCollision)
}

func TestRegistry_RejectsInvalid(t *testing.T) {
	r := NewRegistry(nil)

	assert.Error(t, r.Register(&Tool{Name: ""}))
	assert.Error(t, r.Register(&Tool{Name: "no-handler"}))
}

func TestRegistry_ListOrder(t *testing.T) {
	r := NewRegistry(nil)

	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, r.Register(echoTool(name)))
	}

	listed := r.List()
	require.Len(t, listed, 3)
	assert.Equal(t, "c", listed[0].Name)
	assert.Equal(t, "a", listed[1].Name)
	assert.Equal(t, "b", listed[2].Name)
}

func TestRegistry_Dispatch(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(echoTool("alpha")))

	out, err := r.Dispatch(context.Background(), "alpha", json.RawMessage(`{"x":1}`))
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, out)

	_, err = r.Dispatch(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrToolNotFound)
}
