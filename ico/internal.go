package ico

import (
	"fmt"
	"math/big"
	"net/http"

	"github.com/p2eengineering/kalp-sdk-public/kalpsdk"
)

// validateNSetVestingPool writes one allocation pool template. The
// linear schedule starts at TGE plus the cliff.
func validateNSetVestingPool(ctx kalpsdk.TransactionContextInterface, vestingID string, cliffDuration, tgeTimestamp, duration uint64, totalSupply string, tgeReleaseBps uint64) error {
	if err := validateVestingDuration(vestingID, duration); err != nil {
		return err
	}

	if tgeReleaseBps > bpsDenominator {
		return NewCustomError(http.StatusBadRequest, fmt.Sprintf("TGE release for %s exceeds the denominator", vestingID), ErrInvalidBps("tgeReleaseBps", tgeReleaseBps))
	}

	if _, err := parsePositiveAmount(fmt.Sprintf("total supply of %s", vestingID), totalSupply); err != nil {
		return err
	}

	startTimestamp := tgeTimestamp + cliffDuration
	vestingPeriod := &VestingPeriod{
		TotalSupply:    totalSupply,
		CliffDuration:  cliffDuration,
		StartTimestamp: startTimestamp,
		EndTimestamp:   startTimestamp + duration,
		Duration:       duration,
		TGEReleaseBps:  tgeReleaseBps,
	}
	if err := SetVestingPeriod(ctx, vestingID, vestingPeriod); err != nil {
		return err
	}

	return EmitVestingInitialized(ctx, VestingInitializedEvent{
		VestingID:      vestingID,
		TotalSupply:    totalSupply,
		StartTimestamp: startTimestamp,
	})
}

// addFixedAllocation assigns part of a pool's remaining supply to a
// beneficiary. Re-adding an existing beneficiary is rejected.
func addFixedAllocation(ctx kalpsdk.TransactionContextInterface, vestingID, beneficiary, amount string) (*big.Int, error) {
	isValid, err := IsUserAddressValid(beneficiary)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, "failed to validate beneficiary address", err)
	}
	if !isValid {
		return nil, NewCustomError(http.StatusBadRequest, "invalid beneficiary address", ErrInvalidUserAddress(beneficiary))
	}

	allocationAmount, err := parsePositiveAmount(fmt.Sprintf("allocation of %s", beneficiary), amount)
	if err != nil {
		return nil, err
	}

	existing, err := GetAllocation(ctx, vestingID, beneficiary)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewCustomError(http.StatusConflict, fmt.Sprintf("beneficiary %s already exists in %s", beneficiary, vestingID), ErrBeneficiaryAlreadyExists(beneficiary))
	}

	vestingPeriod, err := GetVestingPeriod(ctx, vestingID)
	if err != nil {
		return nil, err
	}
	if vestingPeriod == nil {
		return nil, NewCustomError(http.StatusNotFound, fmt.Sprintf("vesting period with Key vestingperiod_%s does not exist", vestingID), ErrInvalidVestingID(vestingID))
	}

	remainingSupply, ok := new(big.Int).SetString(vestingPeriod.TotalSupply, 10)
	if !ok {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse remaining supply of %s", vestingID), nil)
	}
	if remainingSupply.Cmp(allocationAmount) < 0 {
		return nil, NewCustomError(http.StatusBadRequest, fmt.Sprintf("allocation %s exceeds the remaining supply %s of %s", allocationAmount, remainingSupply, vestingID), ErrTotalSupplyReached(vestingID))
	}

	vestingPeriod.TotalSupply = new(big.Int).Sub(remainingSupply, allocationAmount).String()
	if err = SetVestingPeriod(ctx, vestingID, vestingPeriod); err != nil {
		return nil, err
	}

	allocation := &Allocation{
		TotalAllocations: allocationAmount.String(),
		ClaimedAmount:    "0",
	}
	if err = SetAllocation(ctx, vestingID, beneficiary, allocation); err != nil {
		return nil, err
	}

	userVestingList, err := GetUserVesting(ctx, beneficiary)
	if err != nil {
		return nil, err
	}
	if err = SetUserVesting(ctx, beneficiary, append(userVestingList, vestingID)); err != nil {
		return nil, err
	}

	return allocationAmount, nil
}
