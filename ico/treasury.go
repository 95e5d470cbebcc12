package ico

import (
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/p2eengineering/kalp-sdk-public/kalpsdk"
)

func addTreasuryInflow(ctx kalpsdk.TransactionContextInterface, roundIndex uint64, currency string, amount *big.Int) error {
	balance, err := GetTreasuryBalance(ctx, roundIndex, currency)
	if err != nil {
		return err
	}

	return SetTreasuryBalance(ctx, roundIndex, currency, new(big.Int).Add(balance, amount))
}

func currencyTokenKey(currency string) (string, string, error) {
	switch currency {
	case currencyUSDT:
		return usdtTokenKey, "USDT token address", nil
	case currencyUSDC:
		return usdcTokenKey, "USDC token address", nil
	default:
		return "", "", NewCustomError(http.StatusBadRequest, fmt.Sprintf("unsupported treasury currency %s", currency), nil)
	}
}

// WithdrawRoundFunds sweeps the stablecoin totals recorded for one round
// to the admin caller, one transfer per currency, and zeroes them.
func (s *SmartContract) WithdrawRoundFunds(ctx kalpsdk.TransactionContextInterface, roundIndex uint64) error {
	signer, err := RequireRole(ctx, RoleAdmin)
	if err != nil {
		return err
	}

	if err = requireSaleEnded(ctx); err != nil {
		return err
	}

	if _, err = GetSaleRound(ctx, roundIndex); err != nil {
		return err
	}

	withdrawn := false
	for _, currency := range []string{currencyUSDT, currencyUSDC} {
		balance, err := GetTreasuryBalance(ctx, roundIndex, currency)
		if err != nil {
			return err
		}
		if balance.Sign() == 0 {
			continue
		}

		tokenKey, tokenLabel, err := currencyTokenKey(currency)
		if err != nil {
			return err
		}
		tokenAddress, err := getContractAddress(ctx, tokenKey, tokenLabel)
		if err != nil {
			return err
		}

		if err = transferTokens(ctx, tokenAddress, signer, balance); err != nil {
			return err
		}
		if err = SetTreasuryBalance(ctx, roundIndex, currency, big.NewInt(0)); err != nil {
			return err
		}

		if err = EmitFundsWithdrawn(ctx, FundsWithdrawnEvent{
			RoundIndex: roundIndex,
			Currency:   currency,
			Recipient:  signer,
			Amount:     balance.String(),
		}); err != nil {
			return err
		}

		withdrawn = true
	}

	if !withdrawn {
		return NewCustomError(http.StatusBadRequest, fmt.Sprintf("round %d holds no funds", roundIndex), ErrNothingToWithdraw)
	}

	return nil
}

// WithdrawNative sweeps the contract's native coin balance to the admin
// caller. Purchases swap native inflow to USDT immediately, so this only
// collects direct sends and swap dust.
func (s *SmartContract) WithdrawNative(ctx kalpsdk.TransactionContextInterface) error {
	signer, err := RequireRole(ctx, RoleAdmin)
	if err != nil {
		return err
	}

	if err = requireSaleEnded(ctx); err != nil {
		return err
	}

	nativeAddress, err := getContractAddress(ctx, nativeTokenKey, "native token address")
	if err != nil {
		return err
	}
	selfAddress, err := getContractAddress(ctx, selfAddressKey, "self address")
	if err != nil {
		return err
	}

	balance, err := tokenBalanceOf(ctx, nativeAddress, selfAddress)
	if err != nil {
		return err
	}
	if balance.Sign() == 0 {
		return NewCustomError(http.StatusBadRequest, "no native balance to withdraw", ErrNothingToWithdraw)
	}

	if err = transferTokens(ctx, nativeAddress, signer, balance); err != nil {
		return err
	}

	return EmitNativeWithdrawn(ctx, NativeWithdrawnEvent{
		Recipient: signer,
		Amount:    balance.String(),
	})
}

// RecoverForeignAsset returns tokens sent to the contract by mistake.
// The sale token, the payment stables and the native token stay
// protected; native residue goes through WithdrawNative instead.
func (s *SmartContract) RecoverForeignAsset(ctx kalpsdk.TransactionContextInterface, tokenAddress, amount string) error {
	signer, err := RequireRole(ctx, RoleAdmin)
	if err != nil {
		return err
	}

	isValid, err := IsContractAddressValid(tokenAddress)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to validate token address", err)
	}
	if !isValid {
		return NewCustomError(http.StatusBadRequest, "invalid token address", ErrInvalidContractAddress(tokenAddress))
	}

	protected := []struct {
		key string
		err error
	}{
		{saleTokenKey, ErrCannotRecoverSaleToken},
		{usdtTokenKey, ErrCannotRecoverAccountingToken},
		{usdcTokenKey, ErrCannotRecoverAccountingToken},
		{nativeTokenKey, ErrCannotRecoverAccountingToken},
	}
	for _, candidate := range protected {
		installedAsBytes, err := ctx.GetState(candidate.key)
		if err != nil {
			return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get %s", candidate.key), err)
		}
		if installedAsBytes != nil && string(installedAsBytes) == tokenAddress {
			return NewCustomError(http.StatusBadRequest, fmt.Sprintf("%s is a protected asset", tokenAddress), candidate.err)
		}
	}

	recoverAmount, err := parsePositiveAmount("recovery", amount)
	if err != nil {
		return err
	}

	if err = transferTokens(ctx, tokenAddress, signer, recoverAmount); err != nil {
		return err
	}

	return EmitAssetRecovered(ctx, AssetRecoveredEvent{
		Token:     tokenAddress,
		Recipient: signer,
		Amount:    recoverAmount.String(),
	})
}

// UpdateSlippageTolerance sets the swap guard for native purchases, in
// basis points below the oracle quote.
func (s *SmartContract) UpdateSlippageTolerance(ctx kalpsdk.TransactionContextInterface, slippageBps uint64) error {
	if _, err := RequireRole(ctx, RoleAdmin); err != nil {
		return err
	}

	if slippageBps > bpsDenominator {
		return NewCustomError(http.StatusBadRequest, fmt.Sprintf("slippage tolerance %d exceeds the denominator", slippageBps), ErrSlippageTooHigh)
	}

	if err := ctx.PutStateWithoutKYC(slippageBpsKey, []byte(strconv.FormatUint(slippageBps, 10))); err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to set slippage tolerance", err)
	}

	return emitEvent(ctx, "SlippageUpdated", map[string]uint64{"slippageBps": slippageBps})
}

func (s *SmartContract) GetSlippageTolerance(ctx kalpsdk.TransactionContextInterface) (uint64, error) {
	return getSlippageBps(ctx)
}

func getSlippageBps(ctx kalpsdk.TransactionContextInterface) (uint64, error) {
	slippageAsBytes, err := ctx.GetState(slippageBpsKey)
	if err != nil {
		return 0, NewCustomError(http.StatusInternalServerError, "failed to get slippage tolerance", err)
	}
	if slippageAsBytes == nil {
		return defaultSlippageBps, nil
	}

	slippageBps, err := strconv.ParseUint(string(slippageAsBytes), 10, 64)
	if err != nil {
		return 0, NewCustomError(http.StatusInternalServerError, "failed to parse slippage tolerance", err)
	}

	return slippageBps, nil
}

func (s *SmartContract) GetTreasuryBalance(ctx kalpsdk.TransactionContextInterface, roundIndex uint64, currency string) (string, error) {
	balance, err := GetTreasuryBalance(ctx, roundIndex, currency)
	if err != nil {
		return "", err
	}

	return balance.String(), nil
}
