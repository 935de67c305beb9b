package mirror

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LotPlaces is the broker lot-size granularity.
const LotPlaces = 2

// Sizer turns a master trade volume into the slave volume.
type Sizer interface {
	Size(masterVolume, masterBalance, slaveBalance decimal.Decimal) (decimal.Decimal, error)
}

// BalanceRatio scales by slaveBalance / masterBalance and rounds half away
// from zero to LotPlaces.
type BalanceRatio struct{}

func (BalanceRatio) Size(masterVolume, masterBalance, slaveBalance decimal.Decimal) (decimal.Decimal, error) {
	if !masterBalance.IsPositive() {
		return decimal.Zero, fmt.Errorf("master balance %s is not positive", masterBalance)
	}
	v := masterVolume.Mul(slaveBalance).Div(masterBalance).Round(LotPlaces)
	if !v.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s lots scaled by %s/%s: %w", masterVolume, slaveBalance, masterBalance, ErrZeroVolume)
	}
	return v, nil
}

// FixedRatio copies every trade at a constant multiple of the master volume.
type FixedRatio struct {
	Ratio decimal.Decimal
}

func (f FixedRatio) Size(masterVolume, _, _ decimal.Decimal) (decimal.Decimal, error) {
	v := masterVolume.Mul(f.Ratio).Round(LotPlaces)
	if !v.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s lots at ratio %s: %w", masterVolume, f.Ratio, ErrZeroVolume)
	}
	return v, nil
}
