package ico

import (
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/p2eengineering/kalp-sdk-public/kalpsdk"
)

type SmartContract struct {
	kalpsdk.Contract
}

// Initialize creates the fixed allocation pools and anchors every
// schedule to the TGE timestamp. Only the foundation account may call
// it, exactly once. selfAddress is this contract's own address, used as
// custody account on token contracts.
func (s *SmartContract) Initialize(ctx kalpsdk.TransactionContextInterface, tgeTimestamp uint64, selfAddress string) error {
	if _, err := RequireFoundation(ctx); err != nil {
		return err
	}

	existingAsBytes, err := ctx.GetState(tgeTimestampKey)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to get TGE timestamp", err)
	}
	if existingAsBytes != nil {
		return NewCustomError(http.StatusConflict, "contract is already initialized", nil)
	}

	if tgeTimestamp == 0 {
		return NewCustomError(http.StatusBadRequest, "TGE timestamp cannot be zero", ErrCannotBeZero)
	}

	now, err := GetTransactionTimestamp(ctx)
	if err != nil {
		return err
	}
	if tgeTimestamp < now {
		return NewCustomError(http.StatusBadRequest, fmt.Sprintf("start timestamp %d is less than the current time %d", tgeTimestamp, now), nil)
	}

	if err = setContractAddressOnce(ctx, selfAddressKey, "self address", selfAddress); err != nil {
		return err
	}

	if err = ctx.PutStateWithoutKYC(tgeTimestampKey, []byte(strconv.FormatUint(tgeTimestamp, 10))); err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to set TGE timestamp", err)
	}

	if err = SetSaleStatus(ctx, &SaleStatus{}); err != nil {
		return err
	}

	if err = ctx.PutStateWithoutKYC(slippageBpsKey, []byte(strconv.FormatUint(defaultSlippageBps, 10))); err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to set slippage tolerance", err)
	}

	if err = initializeStaking(ctx, tgeTimestamp); err != nil {
		return err
	}

	pools := []struct {
		id           TokenAllocation
		cliffPeriods uint64
		durPeriods   uint64
		supplyMel    uint64
		tgeBps       uint64
	}{
		{Team, 12, 48, 75000000, 0},
		{Advisors, 6, 24, 15000000, 0},
		{Marketing, 0, 24, 50000000, 1000},
		{Ecosystem, 0, 60, 70000000, 200},
		{Liquidity, 0, 6, 40000000, 2500},
		{StakingRewards, 3, 36, 75000000, 0},
		{Foundation, 0, 48, 50000000, 200},
		{Airdrop, 0, 12, 10000000, 1000},
	}

	for _, pool := range pools {
		err = validateNSetVestingPool(
			ctx,
			pool.id.String(),
			pool.cliffPeriods*claimInterval,
			tgeTimestamp,
			pool.durPeriods*claimInterval,
			ConvertMelToBase(pool.supplyMel),
			pool.tgeBps,
		)
		if err != nil {
			return err
		}
	}

	return seedFoundationAllocation(ctx)
}

// seedFoundationAllocation assigns the whole Foundation pool to the
// foundation wallet. Its TGE tranche was distributed off-ledger at
// launch, so it starts with a non-zero claimed amount.
func seedFoundationAllocation(ctx kalpsdk.TransactionContextInterface) error {
	vestingPeriod, err := GetVestingPeriod(ctx, Foundation.String())
	if err != nil {
		return err
	}
	if vestingPeriod == nil {
		return NewCustomError(http.StatusNotFound, fmt.Sprintf("vesting period with Key vestingperiod_%s does not exist", Foundation.String()), nil)
	}

	vestingPeriod.TotalSupply = "0"
	if err = SetVestingPeriod(ctx, Foundation.String(), vestingPeriod); err != nil {
		return err
	}

	allocation := &Allocation{
		TotalAllocations: foundationPoolAllocation,
		ClaimedAmount:    foundationPoolClaimedAmount,
	}
	if err = SetAllocation(ctx, Foundation.String(), meliesFoundation, allocation); err != nil {
		return err
	}

	userVestingList, err := GetUserVesting(ctx, meliesFoundation)
	if err != nil {
		return err
	}
	if err = SetUserVesting(ctx, meliesFoundation, append(userVestingList, Foundation.String())); err != nil {
		return err
	}

	claimed, ok := new(big.Int).SetString(foundationPoolClaimedAmount, 10)
	if !ok {
		return NewCustomError(http.StatusInternalServerError, "failed to parse foundation claimed amount", nil)
	}
	if err = SetTotalClaims(ctx, Foundation.String(), claimed); err != nil {
		return err
	}

	return SetTotalClaimsForAll(ctx, claimed)
}

// GetTGETimestamp returns zero before Initialize.
func (s *SmartContract) GetTGETimestamp(ctx kalpsdk.TransactionContextInterface) (uint64, error) {
	return getTGETimestamp(ctx)
}

func getTGETimestamp(ctx kalpsdk.TransactionContextInterface) (uint64, error) {
	timestampAsBytes, err := ctx.GetState(tgeTimestampKey)
	if err != nil {
		return 0, NewCustomError(http.StatusInternalServerError, "failed to get TGE timestamp", err)
	}
	if timestampAsBytes == nil {
		return 0, nil
	}

	timestamp, err := strconv.ParseUint(string(timestampAsBytes), 10, 64)
	if err != nil {
		return 0, NewCustomError(http.StatusInternalServerError, "failed to parse TGE timestamp", err)
	}

	return timestamp, nil
}

func requireTGETimestamp(ctx kalpsdk.TransactionContextInterface) (uint64, error) {
	timestamp, err := getTGETimestamp(ctx)
	if err != nil {
		return 0, err
	}
	if timestamp == 0 {
		return 0, NewCustomError(http.StatusNotFound, fmt.Sprintf("TGE timestamp with Key %s does not exist", tgeTimestampKey), nil)
	}

	return timestamp, nil
}
