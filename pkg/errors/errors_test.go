package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsCodeAndMatchesSentinel(t *testing.T) {
	err := Clone(ErrNotFound, "note not found")
	assert.Equal(t, "note not found", err.Message)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, FromError(nil))
}

func TestFromErrorUnwrapsChain(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrConflict, "username already exists"))
	appErr := FromError(wrapped)
	assert.Equal(t, ErrConflict.Code, appErr.Code)
	assert.Equal(t, "username already exists", appErr.Message)
}
