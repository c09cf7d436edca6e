package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/quant-curve-engine/internal/curve"
	"github.com/rzzdr/quant-curve-engine/internal/market"
	"github.com/rzzdr/quant-curve-engine/internal/request"
	"github.com/rzzdr/quant-curve-engine/pkg/models"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/logger"
)

func init() {
	logger.UseNop()
}

func testBundle(t *testing.T, rate float64) *market.Bundle {
	t.Helper()
	b := market.NewBundle()
	require.NoError(t, b.SetDiscountCurve(models.EUR, curve.NewFlatYieldCurve("EUR-DSC", rate)))
	return b
}

func TestSaveAndGet(t *testing.T) {
	s := NewInMemorySnapshotStore(0)
	b := testBundle(t, 0.02)
	resp := &request.CalibrationResponse{Name: "eur", ResidualNorm: []float64{1e-9}}

	snap, err := s.Save("eur", b, resp)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Version)
	assert.False(t, snap.SavedAt.IsZero())

	got, err := s.Get("eur")
	require.NoError(t, err)
	assert.Same(t, b, got.Market)
	assert.Same(t, resp, got.Response)

	info := got.Info()
	assert.Equal(t, []string{"EUR-DSC"}, info.Curves)
	assert.Equal(t, []float64{1e-9}, info.ResidualNorm)
}

func TestSaveRejectsBadInput(t *testing.T) {
	s := NewInMemorySnapshotStore(0)
	_, err := s.Save("", testBundle(t, 0.02), nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))

	_, err = s.Save("eur", nil, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
	assert.Empty(t, s.List())
}

func TestVersionsAndHistory(t *testing.T) {
	s := NewInMemorySnapshotStore(2)
	bundles := make([]*market.Bundle, 4)
	for i := range bundles {
		bundles[i] = testBundle(t, 0.01*float64(i+1))
		snap, err := s.Save("eur", bundles[i], nil)
		require.NoError(t, err)
		assert.Equal(t, i+1, snap.Version)
	}

	latest, err := s.Get("eur")
	require.NoError(t, err)
	assert.Equal(t, 4, latest.Version)
	assert.Same(t, bundles[3], latest.Market)

	v3, err := s.GetVersion("eur", 3)
	require.NoError(t, err)
	assert.Same(t, bundles[2], v3.Market)

	// depth 2 keeps versions 2 and 3 behind the current one
	_, err = s.GetVersion("eur", 1)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	hist, err := s.History("eur")
	require.NoError(t, err)
	versions := make([]int, len(hist))
	for i, h := range hist {
		versions[i] = h.Version
	}
	assert.Equal(t, []int{4, 3, 2}, versions)
}

func TestListAndDelete(t *testing.T) {
	s := NewInMemorySnapshotStore(0)
	for _, name := range []string{"usd", "eur", "gbp"} {
		_, err := s.Save(name, testBundle(t, 0.02), nil)
		require.NoError(t, err)
	}
	_, err := s.Save("eur", testBundle(t, 0.03), nil)
	require.NoError(t, err)

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, "eur", list[0].Name)
	assert.Equal(t, 2, list[0].Version)
	assert.Equal(t, "gbp", list[1].Name)
	assert.Equal(t, "usd", list[2].Name)

	require.NoError(t, s.Delete("eur"))
	_, err = s.Get("eur")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	_, err = s.History("eur")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	assert.True(t, errors.IsType(s.Delete("eur"), errors.ErrorTypeNotFound))

	// a new save after delete starts over
	snap, err := s.Save("eur", testBundle(t, 0.02), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Version)
}

func TestConcurrentAccess(t *testing.T) {
	s := NewInMemorySnapshotStore(3)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("ccy-%d", i%2)
			for j := 0; j < 20; j++ {
				b := market.NewBundle()
				if err := b.SetDiscountCurve(models.USD, curve.NewFlatYieldCurve("USD-DSC", 0.01)); err != nil {
					t.Error(err)
					return
				}
				if _, err := s.Save(name, b, nil); err != nil {
					t.Error(err)
					return
				}
				_, _ = s.Get(name)
				_ = s.List()
			}
		}(i)
	}
	wg.Wait()

	for _, name := range []string{"ccy-0", "ccy-1"} {
		snap, err := s.Get(name)
		require.NoError(t, err)
		assert.Equal(t, 80, snap.Version)
	}
}
