package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/quantrail/merchantiq/internal/config"
	"github.com/quantrail/merchantiq/internal/fees"
	"github.com/quantrail/merchantiq/internal/fx"
	"github.com/quantrail/merchantiq/internal/models"
)

// ProfitCalculator turns a buy quote and a sell quote into a ProfitResult
// in the settlement currency. Fees are computed on the sell price in the
// sell marketplace's native currency and converted afterwards; each leg is
// converted at its own observation time.
type ProfitCalculator struct {
	fx         *fx.Converter
	fees       *fees.Model
	settlement string
}

// NewProfitCalculator wires the converter and fee model for a settlement
// currency.
func NewProfitCalculator(fxc *fx.Converter, feeModel *fees.Model, settlementCurrency string) *ProfitCalculator {
	return &ProfitCalculator{fx: fxc, fees: feeModel, settlement: settlementCurrency}
}

// Compute evaluates buying at the buy quote and selling at the sell quote.
// Each quote uses its buy-box price, falling back to list price; a quote
// with neither fails with ErrNoPriceAvailable.
func (c *ProfitCalculator) Compute(buy, sell models.Quote, category string) (models.ProfitResult, error) {
	buyPrice, ok := buy.EffectivePrice()
	if !ok {
		return models.ProfitResult{}, fmt.Errorf("%w: buy quote on %s", ErrNoPriceAvailable, buy.Marketplace)
	}
	sellPrice, ok := sell.EffectivePrice()
	if !ok {
		return models.ProfitResult{}, fmt.Errorf("%w: sell quote on %s", ErrNoPriceAvailable, sell.Marketplace)
	}
	return c.compute(buyPrice, buy, sellPrice, sell, category)
}

// ComputeResale evaluates a resale-in-place on a single marketplace:
// acquire at list price, sell at the buy-box price. Used by the
// single-market evaluation where no cross-border leg exists.
func (c *ProfitCalculator) ComputeResale(quote models.Quote, category string) (models.ProfitResult, error) {
	sellPrice, ok := quote.EffectivePrice()
	if !ok {
		return models.ProfitResult{}, fmt.Errorf("%w: quote on %s", ErrNoPriceAvailable, quote.Marketplace)
	}
	buyPrice := quote.ListPrice
	if !buyPrice.IsPositive() {
		buyPrice = sellPrice
	}
	return c.compute(buyPrice, quote, sellPrice, quote, category)
}

func (c *ProfitCalculator) compute(buyPrice decimal.Decimal, buy models.Quote, sellPrice decimal.Decimal, sell models.Quote, category string) (models.ProfitResult, error) {
	buyConv, err := c.fx.Convert(buyPrice, buy.Currency, c.settlement, buy.ObservedAt)
	if err != nil {
		return models.ProfitResult{}, fmt.Errorf("converting buy leg: %w", err)
	}
	sellConv, err := c.fx.Convert(sellPrice, sell.Currency, c.settlement, sell.ObservedAt)
	if err != nil {
		return models.ProfitResult{}, fmt.Errorf("converting sell leg: %w", err)
	}

	// Fees are marketplace-native: estimated on the raw sell price, then
	// converted into the settlement currency.
	est, err := c.fees.EstimateFees(sell.Marketplace, category, sellPrice, sell.WeightGrams)
	if err != nil {
		if category == config.GenericCategory {
			return models.ProfitResult{}, err
		}
		est, err = c.fees.EstimateFees(sell.Marketplace, config.GenericCategory, sellPrice, sell.WeightGrams)
		if err != nil {
			return models.ProfitResult{}, err
		}
	}

	referral, err := c.fx.Convert(est.Referral, sell.Currency, c.settlement, sell.ObservedAt)
	if err != nil {
		return models.ProfitResult{}, fmt.Errorf("converting referral fee: %w", err)
	}
	fulfillment, err := c.fx.Convert(est.Fulfillment, est.FulfillmentCurrency, c.settlement, sell.ObservedAt)
	if err != nil {
		return models.ProfitResult{}, fmt.Errorf("converting fulfillment fee: %w", err)
	}
	totalFees := referral.Add(fulfillment)

	net := sellConv.Sub(buyConv).Sub(totalFees)

	result := models.ProfitResult{
		Currency:  c.settlement,
		BuyCost:   buyConv,
		SellPrice: sellConv,
		Fees:      totalFees,
		NetProfit: net,
		Oversize:  est.Oversize,
	}
	if buyConv.IsPositive() {
		roi := net.Div(buyConv)
		result.ROI = &roi
	}
	if sellConv.IsPositive() {
		margin := net.Div(sellConv)
		result.Margin = &margin
	}

	return result, nil
}
