package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsKind(t *testing.T) {
	err := Clone(ErrNotRegistered, "student Kim is not in the registry")
	assert.Equal(t, "student Kim is not in the registry", err.Message)
	assert.Equal(t, http.StatusForbidden, err.Status)
	assert.True(t, errors.Is(err, ErrNotRegistered))
	assert.False(t, errors.Is(err, ErrAlreadyExists))
	assert.Equal(t, "not registered", Clone(ErrNotRegistered, "not registered").Error())
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Nil(t, FromError(nil))
}

func TestHasCodeThroughWrapping(t *testing.T) {
	storageErr := Wrap(errors.New("dial tcp"), ErrStorageUnavailable.Code, ErrStorageUnavailable.Status, "put complaint")
	wrapped := fmt.Errorf("create: %w", storageErr)
	assert.True(t, HasCode(wrapped, ErrStorageUnavailable))
	assert.False(t, HasCode(wrapped, ErrValidation))
	assert.False(t, HasCode(errors.New("plain"), ErrValidation))
}
