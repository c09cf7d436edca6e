package instrument

// Kind names a variant in requests, logs and errors
type Kind string

// Variant kinds
const (
	KindCash                 Kind = "cash"
	KindDepositIbor          Kind = "deposit_ibor"
	KindForwardRateAgreement Kind = "fra"
	KindInterestRateFuture   Kind = "ir_future"
	KindPaymentFixed         Kind = "payment_fixed"
	KindCouponFixed          Kind = "coupon_fixed"
	KindCouponIbor           Kind = "coupon_ibor"
	KindCouponIborGearing    Kind = "coupon_ibor_gearing"
	KindCouponOIS            Kind = "coupon_ois"
	KindAnnuity              Kind = "annuity"
	KindFixedAnnuity         Kind = "fixed_annuity"
	KindSwap                 Kind = "swap"
	KindFixedCouponSwap      Kind = "fixed_coupon_swap"
	KindForex                Kind = "forex"
	KindForexSwap            Kind = "forex_swap"
	KindBondFixed            Kind = "bond_fixed"
	KindCapitalIndexedBond   Kind = "capital_indexed_bond"
)

// KindOf returns the variant kind of a derivative, or "" for nil
func KindOf(d Derivative) Kind {
	k, err := Dispatch[struct{}, Kind](d, struct{}{}, kindVisitor{})
	if err != nil {
		return ""
	}
	return k
}

type kindVisitor struct{}

var _ Visitor[struct{}, Kind] = kindVisitor{}

func (kindVisitor) VisitCash(*Cash, struct{}) (Kind, error) { return KindCash, nil }
func (kindVisitor) VisitDepositIbor(*DepositIbor, struct{}) (Kind, error) {
	return KindDepositIbor, nil
}
func (kindVisitor) VisitForwardRateAgreement(*ForwardRateAgreement, struct{}) (Kind, error) {
	return KindForwardRateAgreement, nil
}
func (kindVisitor) VisitInterestRateFuture(*InterestRateFuture, struct{}) (Kind, error) {
	return KindInterestRateFuture, nil
}
func (kindVisitor) VisitPaymentFixed(*PaymentFixed, struct{}) (Kind, error) {
	return KindPaymentFixed, nil
}
func (kindVisitor) VisitCouponFixed(*CouponFixed, struct{}) (Kind, error) {
	return KindCouponFixed, nil
}
func (kindVisitor) VisitCouponIbor(*CouponIbor, struct{}) (Kind, error) {
	return KindCouponIbor, nil
}
func (kindVisitor) VisitCouponIborGearing(*CouponIborGearing, struct{}) (Kind, error) {
	return KindCouponIborGearing, nil
}
func (kindVisitor) VisitCouponOIS(*CouponOIS, struct{}) (Kind, error) { return KindCouponOIS, nil }
func (kindVisitor) VisitAnnuity(*Annuity, struct{}) (Kind, error)     { return KindAnnuity, nil }
func (kindVisitor) VisitFixedAnnuity(*FixedAnnuity, struct{}) (Kind, error) {
	return KindFixedAnnuity, nil
}
func (kindVisitor) VisitSwap(*Swap, struct{}) (Kind, error) { return KindSwap, nil }
func (kindVisitor) VisitFixedCouponSwap(*FixedCouponSwap, struct{}) (Kind, error) {
	return KindFixedCouponSwap, nil
}
func (kindVisitor) VisitForex(*Forex, struct{}) (Kind, error)         { return KindForex, nil }
func (kindVisitor) VisitForexSwap(*ForexSwap, struct{}) (Kind, error) { return KindForexSwap, nil }
func (kindVisitor) VisitBondFixed(*BondFixed, struct{}) (Kind, error) { return KindBondFixed, nil }
func (kindVisitor) VisitCapitalIndexedBond(*CapitalIndexedBond, struct{}) (Kind, error) {
	return KindCapitalIndexedBond, nil
}
