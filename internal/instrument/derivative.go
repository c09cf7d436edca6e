// Package instrument defines the closed set of instrument derivatives the pricing
// layer understands. Derivatives carry valuation data only, with every date already
// resolved to a year fraction from the valuation date. All behavior lives in
// visitors routed through Dispatch.
package instrument

import (
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

// Derivative is one of the variants declared in this package. The unexported
// accept method seals the set.
type Derivative interface {
	accept(d dispatcher)
}

// dispatcher has one method per variant. Adding a variant here breaks every
// Visitor implementation until it handles the new case.
type dispatcher interface {
	visitCash(*Cash)
	visitDepositIbor(*DepositIbor)
	visitForwardRateAgreement(*ForwardRateAgreement)
	visitInterestRateFuture(*InterestRateFuture)
	visitPaymentFixed(*PaymentFixed)
	visitCouponFixed(*CouponFixed)
	visitCouponIbor(*CouponIbor)
	visitCouponIborGearing(*CouponIborGearing)
	visitCouponOIS(*CouponOIS)
	visitAnnuity(*Annuity)
	visitFixedAnnuity(*FixedAnnuity)
	visitSwap(*Swap)
	visitFixedCouponSwap(*FixedCouponSwap)
	visitForex(*Forex)
	visitForexSwap(*ForexSwap)
	visitBondFixed(*BondFixed)
	visitCapitalIndexedBond(*CapitalIndexedBond)
}

// Visitor computes an R for every variant given context data of type T. Variants a
// visitor cannot handle must return an error, typically errors.TypeMismatch.
type Visitor[T, R any] interface {
	VisitCash(c *Cash, data T) (R, error)
	VisitDepositIbor(d *DepositIbor, data T) (R, error)
	VisitForwardRateAgreement(f *ForwardRateAgreement, data T) (R, error)
	VisitInterestRateFuture(f *InterestRateFuture, data T) (R, error)
	VisitPaymentFixed(p *PaymentFixed, data T) (R, error)
	VisitCouponFixed(c *CouponFixed, data T) (R, error)
	VisitCouponIbor(c *CouponIbor, data T) (R, error)
	VisitCouponIborGearing(c *CouponIborGearing, data T) (R, error)
	VisitCouponOIS(c *CouponOIS, data T) (R, error)
	VisitAnnuity(a *Annuity, data T) (R, error)
	VisitFixedAnnuity(a *FixedAnnuity, data T) (R, error)
	VisitSwap(s *Swap, data T) (R, error)
	VisitFixedCouponSwap(s *FixedCouponSwap, data T) (R, error)
	VisitForex(f *Forex, data T) (R, error)
	VisitForexSwap(s *ForexSwap, data T) (R, error)
	VisitBondFixed(b *BondFixed, data T) (R, error)
	VisitCapitalIndexedBond(b *CapitalIndexedBond, data T) (R, error)
}

// Dispatch routes the derivative to the visitor method of its variant
func Dispatch[T, R any](d Derivative, data T, v Visitor[T, R]) (R, error) {
	var zero R
	if d == nil {
		return zero, errors.InvalidArgument("nil derivative")
	}
	if v == nil {
		return zero, errors.InvalidArgument("nil visitor")
	}
	a := &adapter[T, R]{v: v, data: data}
	d.accept(a)
	return a.result, a.err
}

// adapter bridges the generic Visitor to the non-generic dispatcher
type adapter[T, R any] struct {
	v      Visitor[T, R]
	data   T
	result R
	err    error
}

func call[T, R, D any](a *adapter[T, R], d *D, kind Kind, visit func(*D, T) (R, error)) {
	if d == nil {
		a.err = errors.InvalidArgumentf("nil %s", kind)
		return
	}
	a.result, a.err = visit(d, a.data)
}

func (a *adapter[T, R]) visitCash(c *Cash) { call(a, c, KindCash, a.v.VisitCash) }
func (a *adapter[T, R]) visitDepositIbor(d *DepositIbor) {
	call(a, d, KindDepositIbor, a.v.VisitDepositIbor)
}
func (a *adapter[T, R]) visitForwardRateAgreement(f *ForwardRateAgreement) {
	call(a, f, KindForwardRateAgreement, a.v.VisitForwardRateAgreement)
}
func (a *adapter[T, R]) visitInterestRateFuture(f *InterestRateFuture) {
	call(a, f, KindInterestRateFuture, a.v.VisitInterestRateFuture)
}
func (a *adapter[T, R]) visitPaymentFixed(p *PaymentFixed) {
	call(a, p, KindPaymentFixed, a.v.VisitPaymentFixed)
}
func (a *adapter[T, R]) visitCouponFixed(c *CouponFixed) {
	call(a, c, KindCouponFixed, a.v.VisitCouponFixed)
}
func (a *adapter[T, R]) visitCouponIbor(c *CouponIbor) {
	call(a, c, KindCouponIbor, a.v.VisitCouponIbor)
}
func (a *adapter[T, R]) visitCouponIborGearing(c *CouponIborGearing) {
	call(a, c, KindCouponIborGearing, a.v.VisitCouponIborGearing)
}
func (a *adapter[T, R]) visitCouponOIS(c *CouponOIS) {
	call(a, c, KindCouponOIS, a.v.VisitCouponOIS)
}
func (a *adapter[T, R]) visitAnnuity(an *Annuity) { call(a, an, KindAnnuity, a.v.VisitAnnuity) }
func (a *adapter[T, R]) visitFixedAnnuity(an *FixedAnnuity) {
	call(a, an, KindFixedAnnuity, a.v.VisitFixedAnnuity)
}
func (a *adapter[T, R]) visitSwap(s *Swap) { call(a, s, KindSwap, a.v.VisitSwap) }
func (a *adapter[T, R]) visitFixedCouponSwap(s *FixedCouponSwap) {
	call(a, s, KindFixedCouponSwap, a.v.VisitFixedCouponSwap)
}
func (a *adapter[T, R]) visitForex(f *Forex) { call(a, f, KindForex, a.v.VisitForex) }
func (a *adapter[T, R]) visitForexSwap(s *ForexSwap) {
	call(a, s, KindForexSwap, a.v.VisitForexSwap)
}
func (a *adapter[T, R]) visitBondFixed(b *BondFixed) {
	call(a, b, KindBondFixed, a.v.VisitBondFixed)
}
func (a *adapter[T, R]) visitCapitalIndexedBond(b *CapitalIndexedBond) {
	call(a, b, KindCapitalIndexedBond, a.v.VisitCapitalIndexedBond)
}

func (c *Cash) accept(d dispatcher)                 { d.visitCash(c) }
func (x *DepositIbor) accept(d dispatcher)          { d.visitDepositIbor(x) }
func (f *ForwardRateAgreement) accept(d dispatcher) { d.visitForwardRateAgreement(f) }
func (f *InterestRateFuture) accept(d dispatcher)   { d.visitInterestRateFuture(f) }
func (p *PaymentFixed) accept(d dispatcher)         { d.visitPaymentFixed(p) }
func (c *CouponFixed) accept(d dispatcher)          { d.visitCouponFixed(c) }
func (c *CouponIbor) accept(d dispatcher)           { d.visitCouponIbor(c) }
func (c *CouponIborGearing) accept(d dispatcher)    { d.visitCouponIborGearing(c) }
func (c *CouponOIS) accept(d dispatcher)            { d.visitCouponOIS(c) }
func (a *Annuity) accept(d dispatcher)              { d.visitAnnuity(a) }
func (a *FixedAnnuity) accept(d dispatcher)         { d.visitFixedAnnuity(a) }
func (s *Swap) accept(d dispatcher)                 { d.visitSwap(s) }
func (s *FixedCouponSwap) accept(d dispatcher)      { d.visitFixedCouponSwap(s) }
func (f *Forex) accept(d dispatcher)                { d.visitForex(f) }
func (s *ForexSwap) accept(d dispatcher)            { d.visitForexSwap(s) }
func (b *BondFixed) accept(d dispatcher)            { d.visitBondFixed(b) }
func (b *CapitalIndexedBond) accept(d dispatcher)   { d.visitCapitalIndexedBond(b) }
