package ico

import (
	"fmt"
	"net/http"

	"github.com/p2eengineering/kalp-sdk-public/kalpsdk"
)

// Token addresses are immutable once installed; the oracle and router
// can be rotated.

func (s *SmartContract) SetSaleToken(ctx kalpsdk.TransactionContextInterface, address string) error {
	if _, err := RequireRole(ctx, RoleAdmin); err != nil {
		return err
	}

	if err := setContractAddressOnce(ctx, saleTokenKey, "sale token address", address); err != nil {
		return err
	}

	return emitEvent(ctx, "SaleTokenSet", map[string]string{"address": address})
}

func (s *SmartContract) SetUSDTToken(ctx kalpsdk.TransactionContextInterface, address string) error {
	if _, err := RequireRole(ctx, RoleAdmin); err != nil {
		return err
	}

	if err := setContractAddressOnce(ctx, usdtTokenKey, "USDT token address", address); err != nil {
		return err
	}

	return emitEvent(ctx, "USDTTokenSet", map[string]string{"address": address})
}

func (s *SmartContract) SetUSDCToken(ctx kalpsdk.TransactionContextInterface, address string) error {
	if _, err := RequireRole(ctx, RoleAdmin); err != nil {
		return err
	}

	if err := setContractAddressOnce(ctx, usdcTokenKey, "USDC token address", address); err != nil {
		return err
	}

	return emitEvent(ctx, "USDCTokenSet", map[string]string{"address": address})
}

func (s *SmartContract) SetNativeToken(ctx kalpsdk.TransactionContextInterface, address string) error {
	if _, err := RequireRole(ctx, RoleAdmin); err != nil {
		return err
	}

	if err := setContractAddressOnce(ctx, nativeTokenKey, "native token address", address); err != nil {
		return err
	}

	return emitEvent(ctx, "NativeTokenSet", map[string]string{"address": address})
}

func (s *SmartContract) SetPriceOracle(ctx kalpsdk.TransactionContextInterface, address string) error {
	if _, err := RequireRole(ctx, RoleAdmin); err != nil {
		return err
	}

	if err := setContractAddress(ctx, priceOracleKey, "price oracle address", address); err != nil {
		return err
	}

	return emitEvent(ctx, "PriceOracleSet", map[string]string{"address": address})
}

func (s *SmartContract) SetSwapRouter(ctx kalpsdk.TransactionContextInterface, address string) error {
	if _, err := RequireRole(ctx, RoleAdmin); err != nil {
		return err
	}

	if err := setContractAddress(ctx, swapRouterKey, "swap router address", address); err != nil {
		return err
	}

	return emitEvent(ctx, "SwapRouterSet", map[string]string{"address": address})
}

func (s *SmartContract) GetSaleToken(ctx kalpsdk.TransactionContextInterface) (string, error) {
	return getContractAddress(ctx, saleTokenKey, "sale token address")
}

func (s *SmartContract) GrantRole(ctx kalpsdk.TransactionContextInterface, role, address string) error {
	if _, err := RequireFoundation(ctx); err != nil {
		return err
	}

	isValid, err := IsUserAddressValid(address)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to validate role address", err)
	}
	if !isValid {
		return NewCustomError(http.StatusBadRequest, "invalid role address", ErrInvalidUserAddress(address))
	}

	if err = ctx.PutStateWithoutKYC(fmt.Sprintf("role_%s_%s", role, address), []byte("true")); err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to grant role %s to %s", role, address), err)
	}

	return emitEvent(ctx, "RoleGranted", map[string]string{"role": role, "address": address})
}

func (s *SmartContract) RevokeRole(ctx kalpsdk.TransactionContextInterface, role, address string) error {
	if _, err := RequireFoundation(ctx); err != nil {
		return err
	}

	if err := ctx.DelStateWithoutKYC(fmt.Sprintf("role_%s_%s", role, address)); err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to revoke role %s from %s", role, address), err)
	}

	return emitEvent(ctx, "RoleRevoked", map[string]string{"role": role, "address": address})
}
