package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

func TestTaxonomyMatchesSentinels(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		sentinel error
		errType  errors.ErrorType
	}{
		{"invalid argument", errors.InvalidArgument("nil instrument"), errors.ErrInvalidArgument, errors.ErrorTypeInvalidArgument},
		{"type mismatch", errors.TypeMismatch("not a cash deposit"), errors.ErrTypeMismatch, errors.ErrorTypeTypeMismatch},
		{"missing curve", errors.MissingCurve("no curve for EUR"), errors.ErrMissingCurve, errors.ErrorTypeMissingCurve},
		{"non convergence", errors.NonConvergence("100 steps", nil), errors.ErrNonConvergence, errors.ErrorTypeNonConvergence},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, errors.Is(tc.err, tc.sentinel))
			assert.True(t, errors.IsType(tc.err, tc.errType))
			assert.False(t, errors.Is(tc.err, errors.ErrNotFound))
		})
	}
}

func TestWrapKeepsType(t *testing.T) {
	base := errors.MissingCurve("no forward curve for EURIBOR6M")
	wrapped := errors.Wrapf(base, "pricing instrument %d", 3)

	require.Error(t, wrapped)
	assert.Equal(t, errors.ErrorTypeMissingCurve, errors.TypeOf(wrapped))
	assert.True(t, errors.Is(wrapped, errors.ErrMissingCurve))
	assert.Contains(t, wrapped.Error(), "pricing instrument 3")
	assert.Contains(t, wrapped.Error(), "EURIBOR6M")

	viaFmt := fmt.Errorf("outer: %w", wrapped)
	assert.True(t, stderrors.Is(viaFmt, errors.ErrMissingCurve))
}

func TestWithTypeAndNil(t *testing.T) {
	assert.Nil(t, errors.Wrap(nil, "nothing"))
	assert.Nil(t, errors.WithType(nil, errors.ErrorTypeInternal))

	err := errors.WithType(stderrors.New("singular matrix"), errors.ErrorTypeNonConvergence)
	assert.True(t, errors.Is(err, errors.ErrNonConvergence))
	assert.Equal(t, "non convergence: singular matrix", err.Error())
	assert.Equal(t, errors.ErrorTypeUnknown, errors.TypeOf(stderrors.New("plain")))
}
