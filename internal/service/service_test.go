package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/quant-curve-engine/internal/calibration"
	"github.com/rzzdr/quant-curve-engine/internal/request"
	"github.com/rzzdr/quant-curve-engine/internal/store"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/logger"
)

func init() {
	logger.UseNop()
}

const usdDoc = `
name: usd
stages:
  - name: usd-cash
    groups:
      - name: USD-DSC
        currencies: [USD]
    instruments:
      - {type: cash, currency: USD, start: 0, end: 1, notional: 1000000, rate: 0.04}
      - {type: cash, currency: USD, start: 0, end: 2, notional: 1000000, rate: 0.045}
`

type fakeNotifier struct {
	saved   []string
	deleted []string
}

func (f *fakeNotifier) PublishSnapshot(snap *store.Snapshot) { f.saved = append(f.saved, snap.Name) }
func (f *fakeNotifier) PublishDeleted(name string)           { f.deleted = append(f.deleted, name) }

func newService(t *testing.T) (*CurveService, *fakeNotifier) {
	t.Helper()
	n := &fakeNotifier{}
	engine := calibration.NewEngine(calibration.DefaultEngineConfig(), nil)
	return New(engine, store.NewInMemorySnapshotStore(0), n), n
}

func calibrationRequest(t *testing.T, doc string) *request.CalibrationRequest {
	t.Helper()
	req, err := request.ParseCalibrationRequest([]byte(doc))
	require.NoError(t, err)
	return req
}

func TestCalibrateStoresAndNotifies(t *testing.T) {
	svc, n := newService(t)

	snap, err := svc.Calibrate(context.Background(), calibrationRequest(t, usdDoc))
	require.NoError(t, err)
	assert.Equal(t, "usd", snap.Name)
	assert.Equal(t, 1, snap.Version)
	require.NotNil(t, snap.Response)
	require.Len(t, snap.Response.Market.Curves, 1)
	assert.Equal(t, "USD-DSC", snap.Response.Market.Curves[0].Name)
	assert.Equal(t, []string{"usd"}, n.saved)

	snap, err = svc.Calibrate(context.Background(), calibrationRequest(t, usdDoc))
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Version)

	hist, err := svc.History("usd")
	require.NoError(t, err)
	assert.Len(t, hist, 2)
	_, err = svc.SnapshotVersion("usd", 1)
	assert.NoError(t, err)
	assert.Len(t, svc.Snapshots(), 1)
}

func TestPriceAgainstSnapshot(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Calibrate(context.Background(), calibrationRequest(t, usdDoc))
	require.NoError(t, err)

	resp, err := svc.Price(context.Background(), &request.PriceRequest{
		Snapshot: "usd",
		Instruments: []request.InstrumentSpec{
			{Type: "cash", Currency: "USD", Start: 0, End: 2, Notional: 1e6, Rate: 0.045},
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Values, 1)
	require.NotNil(t, resp.Values[0].ParRate)
	assert.InDelta(t, 0.045, *resp.Values[0].ParRate, 1e-8)
	require.Len(t, resp.Values[0].PresentValue, 1)
	assert.InDelta(t, 0, resp.Values[0].PresentValue[0].Amount, 1e-4)
}

func TestPriceRequestErrors(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	insts := []request.InstrumentSpec{{Type: "cash", Currency: "USD", End: 1, Rate: 0.01}}

	_, err := svc.Price(ctx, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))

	_, err = svc.Price(ctx, &request.PriceRequest{Instruments: insts})
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))

	_, err = svc.Price(ctx, &request.PriceRequest{Snapshot: "usd", Market: &request.MarketSpec{}, Instruments: insts})
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))

	_, err = svc.Price(ctx, &request.PriceRequest{Snapshot: "usd", Instruments: insts})
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	// an empty inline market has no USD discount curve
	_, err = svc.Price(ctx, &request.PriceRequest{Market: &request.MarketSpec{}, Instruments: insts})
	assert.True(t, errors.IsType(err, errors.ErrorTypeMissingCurve))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = svc.Price(cancelled, &request.PriceRequest{Market: &request.MarketSpec{}, Instruments: insts})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalibrateErrors(t *testing.T) {
	svc, n := newService(t)
	ctx := context.Background()

	_, err := svc.Calibrate(ctx, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))

	req := calibrationRequest(t, usdDoc)
	req.Name = ""
	_, err = svc.Calibrate(ctx, req)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))

	// two deposits over the same period at different rates cannot both reprice
	bad := calibrationRequest(t, usdDoc)
	bad.Stages[0].Instruments[1].End = 1
	bad.Stages[0].Groups[0].NodeTimes = []float64{1, 2}
	_, err = svc.Calibrate(ctx, bad)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNonConvergence))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = svc.Calibrate(cancelled, calibrationRequest(t, usdDoc))
	assert.ErrorIs(t, err, context.Canceled)

	assert.Empty(t, svc.Snapshots())
	assert.Empty(t, n.saved)
}

func TestDelete(t *testing.T) {
	svc, n := newService(t)
	_, err := svc.Calibrate(context.Background(), calibrationRequest(t, usdDoc))
	require.NoError(t, err)

	require.NoError(t, svc.Delete("usd"))
	assert.Equal(t, []string{"usd"}, n.deleted)
	_, err = svc.Snapshot("usd")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	assert.True(t, errors.IsType(svc.Delete("usd"), errors.ErrorTypeNotFound))
	assert.Len(t, n.deleted, 1)
}
