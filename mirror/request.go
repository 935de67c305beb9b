package mirror

import (
	"github.com/rustyeddy/copytrader/broker"
	"github.com/shopspring/decimal"
)

// NewMirrorRequest copies pos at volume. The order is priced at the master
// position's current price, not its entry price.
func NewMirrorRequest(pos broker.Position, volume decimal.Decimal) broker.MirrorRequest {
	return broker.MirrorRequest{
		Symbol:     pos.Symbol,
		Volume:     volume,
		Side:       pos.Side,
		Price:      pos.PriceCurrent,
		StopLoss:   pos.StopLoss,
		TakeProfit: pos.TakeProfit,
	}
}
