package printing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderError(t *testing.T) {
	t.Run("with cause", func(t *testing.T) {
		err := NewRenderError(ErrCodeRenderTimeout, "invoice generation cancelled", context.DeadlineExceeded)
		assert.Equal(t, "invoice generation cancelled: context deadline exceeded", err.Error())
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})

	t.Run("without cause", func(t *testing.T) {
		err := NewRenderError(ErrCodeEncodingFailed, "generated PDF is empty", nil)
		assert.Equal(t, "generated PDF is empty", err.Error())
		assert.Nil(t, errors.Unwrap(err))
	})
}

func TestErrorCodes(t *testing.T) {
	assert.Equal(t, "RENDER_TIMEOUT", ErrCodeRenderTimeout)
	assert.Equal(t, "ENCODING_FAILED", ErrCodeEncodingFailed)
	assert.Equal(t, "INVALID_ORDER", ErrCodeInvalidOrder)
	assert.Equal(t, "STORAGE_FAILED", ErrCodeStorageFailed)
}
