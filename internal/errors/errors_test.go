package errors_test

import (
	stderrors "errors"
	"testing"

	"codeberg.org/mutker/rumcollect/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	errFactory := errors.New()

	err := errFactory.New(errors.ErrInvalidInterval)
	assert.Equal(t, "Invalid interval value", err.Error())
	assert.Equal(t, errors.ErrInvalidInterval, err.Code())

	wrapped := errFactory.Wrap(errors.ErrReadConfig, stderrors.New("boom"))
	assert.Equal(t, "Failed to read configuration: boom", wrapped.Error())

	custom := errFactory.WithMessage(errors.ErrorCode("custom_code"), "custom message")
	assert.Equal(t, "custom message", custom.Error())

	unknown := errFactory.New(errors.ErrorCode("unknown_code"))
	assert.Equal(t, "unknown_code", unknown.Error())
}

func TestWithDataKeepsCode(t *testing.T) {
	err := errors.New().WithData(errors.ErrInvalidURL, struct{ URL string }{URL: "::"})

	assert.Equal(t, errors.ErrInvalidURL, err.Code())
	assert.Contains(t, err.Error(), "::")
	assert.NotNil(t, err.GetData())
}

func TestHasCode(t *testing.T) {
	errFactory := errors.New()
	inner := errFactory.New(errors.ErrUnsupported)
	outer := errFactory.Wrap(errors.ErrInitFailed, inner)

	assert.True(t, errors.HasCode(outer, errors.ErrInitFailed))
	assert.True(t, errors.HasCode(outer, errors.ErrUnsupported))
	assert.False(t, errors.HasCode(outer, errors.ErrTimeout))
	assert.False(t, errors.HasCode(stderrors.New("plain"), errors.ErrInternal))
	assert.False(t, errors.HasCode(nil, errors.ErrInternal))
}
