package errx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testRegistry = NewRegistry("TEST")
	codeMissing  = testRegistry.Register("MISSING", TypeNotFound, http.StatusNotFound, "Thing not found")
	codeBroken   = testRegistry.Register("BROKEN", TypeInternal, http.StatusInternalServerError, "Thing broken")
)

func TestRegistry_New(t *testing.T) {
	e := testRegistry.New(codeMissing)
	assert.Equal(t, Code("TEST.MISSING"), e.Code)
	assert.Equal(t, TypeNotFound, e.Type)
	assert.Equal(t, http.StatusNotFound, e.HTTPStatus)
	assert.Equal(t, "Thing not found", e.Message)
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry("DUP")
	r.Register("X", TypeInternal, 500, "x")
	assert.Panics(t, func() { r.Register("X", TypeInternal, 500, "x") })
}

func TestError_WithDetail(t *testing.T) {
	e := testRegistry.New(codeMissing).WithDetail("id", "42").WithDetails(map[string]any{"kind": "job"})
	resp := e.ToHTTPResponse()
	require.Contains(t, resp, "details")
	assert.Equal(t, map[string]any{"id": "42", "kind": "job"}, resp["details"])
}

func TestWrap_PassesThroughTypedErrors(t *testing.T) {
	orig := testRegistry.New(codeMissing)
	wrapped := Wrap(fmt.Errorf("layer: %w", orig), "failed", TypeInternal)
	assert.Equal(t, codeMissing, wrapped.Code)
	assert.Equal(t, http.StatusNotFound, wrapped.HTTPStatus)
}

func TestWrap_PlainError(t *testing.T) {
	cause := errors.New("connection reset")
	wrapped := Wrap(cause, "failed to load", TypeInternal)
	assert.Equal(t, TypeInternal, wrapped.Type)
	assert.ErrorIs(t, wrapped, cause)
	assert.Nil(t, Wrap(nil, "noop", TypeInternal))
}

func TestIs(t *testing.T) {
	inner := testRegistry.New(codeBroken)
	outer := testRegistry.NewWithCause(codeMissing, inner)

	assert.True(t, Is(outer, codeMissing))
	assert.True(t, Is(outer, codeBroken))
	assert.True(t, Is(fmt.Errorf("ctx: %w", outer), codeBroken))
	assert.False(t, Is(errors.New("plain"), codeMissing))
	assert.True(t, errors.Is(outer, testRegistry.New(codeMissing)))
}
