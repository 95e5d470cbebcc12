package ico

import (
	"fmt"
	"math/big"
	"net/http"

	"github.com/p2eengineering/kalp-sdk-public/kalpsdk"
)

// BuyWithUSDT purchases sale tokens with USDT. The stable is the
// accounting currency, so the paid amount converts at par.
func (s *SmartContract) BuyWithUSDT(ctx kalpsdk.TransactionContextInterface, amount string) error {
	return buyWithStable(ctx, usdtTokenKey, "USDT token address", currencyUSDT, amount)
}

// BuyWithUSDC purchases sale tokens with USDC, counted at par with the
// accounting currency.
func (s *SmartContract) BuyWithUSDC(ctx kalpsdk.TransactionContextInterface, amount string) error {
	return buyWithStable(ctx, usdcTokenKey, "USDC token address", currencyUSDC, amount)
}

func buyWithStable(ctx kalpsdk.TransactionContextInterface, tokenKey, tokenLabel, currency, amount string) error {
	signer, err := GetUserId(ctx)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to get signer id", err)
	}

	purchaseAmount, err := parsePositiveAmount("purchase", amount)
	if err != nil {
		return err
	}

	now, err := GetTransactionTimestamp(ctx)
	if err != nil {
		return err
	}

	roundIndex, round, err := getActiveRound(ctx, now)
	if err != nil {
		return err
	}

	whitelisted, err := isWhitelisted(ctx, roundIndex, signer)
	if err != nil {
		return err
	}
	if !whitelisted {
		return NewCustomError(http.StatusForbidden, fmt.Sprintf("%s is not whitelisted for round %d", signer, roundIndex), ErrNotWhitelisted)
	}

	tokenAddress, err := getContractAddress(ctx, tokenKey, tokenLabel)
	if err != nil {
		return err
	}
	selfAddress, err := getContractAddress(ctx, selfAddressKey, "self address")
	if err != nil {
		return err
	}

	if err = transferTokensFrom(ctx, tokenAddress, signer, selfAddress, purchaseAmount); err != nil {
		return err
	}

	if err = recordPurchase(ctx, roundIndex, round, signer, purchaseAmount, currency, amount); err != nil {
		return err
	}

	return addTreasuryInflow(ctx, roundIndex, currency, purchaseAmount)
}

// BuyWithNative purchases sale tokens with the native coin. The inflow
// is swapped to USDT on receipt; the swap output is the converted
// amount all bounds are checked against.
func (s *SmartContract) BuyWithNative(ctx kalpsdk.TransactionContextInterface, amount string) error {
	signer, err := GetUserId(ctx)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to get signer id", err)
	}

	nativeAmount, err := parsePositiveAmount("purchase", amount)
	if err != nil {
		return err
	}

	now, err := GetTransactionTimestamp(ctx)
	if err != nil {
		return err
	}

	roundIndex, round, err := getActiveRound(ctx, now)
	if err != nil {
		return err
	}

	whitelisted, err := isWhitelisted(ctx, roundIndex, signer)
	if err != nil {
		return err
	}
	if !whitelisted {
		return NewCustomError(http.StatusForbidden, fmt.Sprintf("%s is not whitelisted for round %d", signer, roundIndex), ErrNotWhitelisted)
	}

	nativeAddress, err := getContractAddress(ctx, nativeTokenKey, "native token address")
	if err != nil {
		return err
	}
	usdtAddress, err := getContractAddress(ctx, usdtTokenKey, "USDT token address")
	if err != nil {
		return err
	}
	oracleAddress, err := getContractAddress(ctx, priceOracleKey, "price oracle address")
	if err != nil {
		return err
	}
	routerAddress, err := getContractAddress(ctx, swapRouterKey, "swap router address")
	if err != nil {
		return err
	}
	selfAddress, err := getContractAddress(ctx, selfAddressKey, "self address")
	if err != nil {
		return err
	}

	if err = transferTokensFrom(ctx, nativeAddress, signer, selfAddress, nativeAmount); err != nil {
		return err
	}

	price, err := fetchOraclePrice(ctx, oracleAddress, nativeSymbol, accountingSymbol)
	if err != nil {
		return err
	}

	quote := new(big.Int).Mul(nativeAmount, price)
	quote.Div(quote, oraclePriceScale())

	slippageBps, err := getSlippageBps(ctx)
	if err != nil {
		return err
	}
	minAmountOut := new(big.Int).Mul(quote, new(big.Int).SetUint64(bpsDenominator-slippageBps))
	minAmountOut.Div(minAmountOut, new(big.Int).SetUint64(bpsDenominator))

	if err = approveTokens(ctx, nativeAddress, routerAddress, nativeAmount); err != nil {
		return err
	}

	convertedAmount, err := swapExactTokensForTokens(ctx, routerAddress, nativeAmount, minAmountOut, []string{nativeAddress, usdtAddress})
	if err != nil {
		return err
	}
	if convertedAmount.Sign() == 0 {
		return NewCustomError(http.StatusBadGateway, fmt.Sprintf("swap router %s returned no output", routerAddress), nil)
	}

	if err = recordPurchase(ctx, roundIndex, round, signer, convertedAmount, nativeSymbol, amount); err != nil {
		return err
	}

	return addTreasuryInflow(ctx, roundIndex, currencyUSDT, convertedAmount)
}

// AddFiatPurchase records a purchase settled off-chain. It grants the
// allocation and counts toward the caps but moves no funds on-chain.
func (s *SmartContract) AddFiatPurchase(ctx kalpsdk.TransactionContextInterface, beneficiary, amount string) error {
	if _, err := RequireRole(ctx, RoleAdmin); err != nil {
		return err
	}

	isValid, err := IsUserAddressValid(beneficiary)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to validate beneficiary address", err)
	}
	if !isValid {
		return NewCustomError(http.StatusBadRequest, "invalid beneficiary address", ErrInvalidUserAddress(beneficiary))
	}

	purchaseAmount, err := parsePositiveAmount("purchase", amount)
	if err != nil {
		return err
	}

	now, err := GetTransactionTimestamp(ctx)
	if err != nil {
		return err
	}

	roundIndex, round, err := getActiveRound(ctx, now)
	if err != nil {
		return err
	}

	whitelisted, err := isWhitelisted(ctx, roundIndex, beneficiary)
	if err != nil {
		return err
	}
	if !whitelisted {
		return NewCustomError(http.StatusForbidden, fmt.Sprintf("%s is not whitelisted for round %d", beneficiary, roundIndex), ErrNotWhitelisted)
	}

	return recordPurchase(ctx, roundIndex, round, beneficiary, purchaseAmount, currencyFiat, amount)
}

// recordPurchase applies purchase accounting shared by every payment
// path: bounds, cap, token conversion, allocation bookkeeping and the
// purchase event. Treasury inflow is the caller's concern.
func recordPurchase(ctx kalpsdk.TransactionContextInterface, roundIndex uint64, round *SaleRound, beneficiary string, convertedAmount *big.Int, currency, paidAmount string) error {
	minPurchase, ok := new(big.Int).SetString(round.MinPurchase, 10)
	if !ok {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse min purchase of round %d", roundIndex), nil)
	}
	maxPurchase, ok := new(big.Int).SetString(round.MaxPurchase, 10)
	if !ok {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse max purchase of round %d", roundIndex), nil)
	}
	maxCap, ok := new(big.Int).SetString(round.MaxCap, 10)
	if !ok {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse max cap of round %d", roundIndex), nil)
	}
	totalRaised, ok := new(big.Int).SetString(round.TotalRaised, 10)
	if !ok {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse total raised of round %d", roundIndex), nil)
	}
	tokenPrice, ok := new(big.Int).SetString(round.TokenPrice, 10)
	if !ok || tokenPrice.Sign() == 0 {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse token price of round %d", roundIndex), nil)
	}

	if convertedAmount.Cmp(minPurchase) < 0 {
		return NewCustomError(http.StatusBadRequest, fmt.Sprintf("purchase %s is below the round minimum %s", convertedAmount, minPurchase), ErrBelowMinPurchase)
	}
	if convertedAmount.Cmp(maxPurchase) > 0 {
		return NewCustomError(http.StatusBadRequest, fmt.Sprintf("purchase %s is above the round maximum %s", convertedAmount, maxPurchase), ErrAboveMaxPurchase)
	}

	newRaised := new(big.Int).Add(totalRaised, convertedAmount)
	if newRaised.Cmp(maxCap) > 0 {
		return NewCustomError(http.StatusBadRequest, fmt.Sprintf("purchase %s would push round %d past its cap %s", convertedAmount, roundIndex, maxCap), ErrRoundCapExceeded)
	}

	tokenAmount := new(big.Int).Mul(convertedAmount, baseUnitFactor())
	tokenAmount.Div(tokenAmount, tokenPrice)

	vestingID := roundVestingID(roundIndex)
	allocation, err := GetAllocation(ctx, vestingID, beneficiary)
	if err != nil {
		return err
	}

	if allocation == nil {
		allocation = &Allocation{
			TotalAllocations: tokenAmount.String(),
			ClaimedAmount:    "0",
		}

		buyers, err := GetRoundBuyers(ctx, roundIndex)
		if err != nil {
			return err
		}
		if err = SetRoundBuyers(ctx, roundIndex, append(buyers, beneficiary)); err != nil {
			return err
		}

		userVestingList, err := GetUserVesting(ctx, beneficiary)
		if err != nil {
			return err
		}
		if err = SetUserVesting(ctx, beneficiary, append(userVestingList, vestingID)); err != nil {
			return err
		}
	} else {
		totalAllocations, ok := new(big.Int).SetString(allocation.TotalAllocations, 10)
		if !ok {
			return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse total allocations for %s", beneficiary), nil)
		}
		allocation.TotalAllocations = new(big.Int).Add(totalAllocations, tokenAmount).String()
	}

	if err = SetAllocation(ctx, vestingID, beneficiary, allocation); err != nil {
		return err
	}

	round.TotalRaised = newRaised.String()
	if err = SetSaleRound(ctx, roundIndex, round); err != nil {
		return err
	}

	return EmitTokensPurchased(ctx, TokensPurchasedEvent{
		RoundIndex:      roundIndex,
		Beneficiary:     beneficiary,
		Currency:        currency,
		PaidAmount:      paidAmount,
		ConvertedAmount: convertedAmount.String(),
		TokenAmount:     tokenAmount.String(),
	})
}
