package chain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// BaseUnitDecimals is the number of decimals of the ledger's base currency.
const BaseUnitDecimals = 18

// ToWei converts a base-currency amount into the smallest ledger unit, truncating
// anything beyond 18 decimals.
func ToWei(amount decimal.Decimal) *big.Int {
	return amount.Shift(BaseUnitDecimals).Truncate(0).BigInt()
}

// FromWei converts the smallest ledger unit back into a base-currency amount.
func FromWei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -BaseUnitDecimals)
}

// SplitShares returns the client and beneficiary percentages of a split settlement.
func SplitShares(clientPercent int) (client, beneficiary int, err error) {
	if clientPercent < 0 || clientPercent > 100 {
		return 0, 0, ErrInvalidPercent
	}
	return clientPercent, 100 - clientPercent, nil
}
