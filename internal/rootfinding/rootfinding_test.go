package rootfinding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/logger"
)

func init() {
	logger.UseNop()
}

func TestCentralDifferenceJacobian(t *testing.T) {
	f := func(x []float64) ([]float64, error) {
		return []float64{x[0] * x[0] * x[1], math.Sin(x[0]) + 3*x[1]}, nil
	}
	x := []float64{1.5, -0.5}

	jac, err := CentralDifferenceJacobian(f, x, 0)
	require.NoError(t, err)

	assert.InDelta(t, 2*x[0]*x[1], jac.At(0, 0), 1e-6)
	assert.InDelta(t, x[0]*x[0], jac.At(0, 1), 1e-6)
	assert.InDelta(t, math.Cos(x[0]), jac.At(1, 0), 1e-6)
	assert.InDelta(t, 3.0, jac.At(1, 1), 1e-6)
	assert.Equal(t, []float64{1.5, -0.5}, x, "point must not be modified")
}

func TestBroydenSolves(t *testing.T) {
	tests := []struct {
		name string
		f    Function
		x0   []float64
		want []float64
	}{
		{
			name: "linear system",
			f: func(x []float64) ([]float64, error) {
				return []float64{2*x[0] + x[1] - 3, x[0] + 3*x[1] - 5}, nil
			},
			x0:   []float64{0, 0},
			want: []float64{0.8, 1.4},
		},
		{
			name: "circle and diagonal",
			f: func(x []float64) ([]float64, error) {
				return []float64{x[0]*x[0] + x[1]*x[1] - 4, x[0] - x[1]}, nil
			},
			x0:   []float64{1, 0.5},
			want: []float64{math.Sqrt2, math.Sqrt2},
		},
		{
			name: "exponential decay",
			f: func(x []float64) ([]float64, error) {
				return []float64{math.Exp(-x[0]) - 0.95, math.Exp(-2*x[1]) - 0.9}, nil
			},
			x0:   []float64{0.025, 0.025},
			want: []float64{-math.Log(0.95), -math.Log(0.9) / 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewBroyden(0, 0, 0).Solve(context.Background(), tt.f, tt.x0)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, res.X, 1e-7)
			assert.LessOrEqual(t, res.Steps, DefaultMaxSteps)
			assert.Len(t, res.Residual, len(tt.x0))
		})
	}
}

func TestBroydenStartingAtRoot(t *testing.T) {
	f := func(x []float64) ([]float64, error) {
		return []float64{x[0] - 1}, nil
	}
	res, err := NewBroyden(0, 0, 0).Solve(context.Background(), f, []float64{1})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Steps)
	assert.Equal(t, 1, res.FunctionCalls)
}

func TestBroydenFailures(t *testing.T) {
	t.Run("singular jacobian", func(t *testing.T) {
		// x[1] never enters the residual
		f := func(x []float64) ([]float64, error) {
			return []float64{x[0] - 1, 2*x[0] - 3}, nil
		}
		res, err := NewBroyden(0, 0, 0).Solve(context.Background(), f, []float64{0, 0})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeNonConvergence))
		require.NotNil(t, res)
		assert.Equal(t, 0, res.Steps)
		assert.Nil(t, res.X)
	})

	t.Run("step budget", func(t *testing.T) {
		f := func(x []float64) ([]float64, error) {
			return []float64{x[0]*x[0]*x[0] - 8}, nil
		}
		res, err := NewBroyden(0, 0, 1).Solve(context.Background(), f, []float64{100})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeNonConvergence))
		require.NotNil(t, res)
		assert.Equal(t, 1, res.Steps)
	})

	t.Run("non-finite residual", func(t *testing.T) {
		f := func(x []float64) ([]float64, error) {
			return []float64{math.Log(x[0])}, nil
		}
		_, err := NewBroyden(0, 0, 0).Solve(context.Background(), f, []float64{-1})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeNonConvergence))
	})

	t.Run("residual length", func(t *testing.T) {
		f := func(x []float64) ([]float64, error) {
			return []float64{x[0]}, nil
		}
		_, err := NewBroyden(0, 0, 0).Solve(context.Background(), f, []float64{1, 2})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
	})

	t.Run("empty start", func(t *testing.T) {
		f := func(x []float64) ([]float64, error) { return x, nil }
		_, err := NewBroyden(0, 0, 0).Solve(context.Background(), f, nil)
		assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
	})

	t.Run("function error", func(t *testing.T) {
		boom := errors.MissingCurve("no curve")
		f := func(x []float64) ([]float64, error) { return nil, boom }
		_, err := NewBroyden(0, 0, 0).Solve(context.Background(), f, []float64{1})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		f := func(x []float64) ([]float64, error) {
			return []float64{x[0] - 1}, nil
		}
		res, err := NewBroyden(0, 0, 0).Solve(ctx, f, []float64{0})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		require.NotNil(t, res)
		assert.Equal(t, 0, res.Steps)
	})
}

func TestBroydenFlagsStopOnSmallStep(t *testing.T) {
	f := func(x []float64) ([]float64, error) {
		return []float64{x[0]*x[0] - 2}, nil
	}

	// a loose relative tolerance accepts the first Newton step as final
	res, err := NewBroyden(1e-8, 0.5, 0).Solve(context.Background(), f, []float64{1.5})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Steps)
	assert.True(t, res.StoppedOnStep)
	assert.Greater(t, res.ResidualNorm, 1e-8)
	assert.Less(t, res.ResidualNorm, 0.25)

	res, err = NewBroyden(1e-8, 1e-12, 0).Solve(context.Background(), f, []float64{1.5})
	require.NoError(t, err)
	assert.False(t, res.StoppedOnStep)
	assert.LessOrEqual(t, res.ResidualNorm, 1e-8)
}
