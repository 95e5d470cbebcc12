package ico

import (
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/p2eengineering/kalp-sdk-public/kalpsdk"
)

func roundVestingID(roundIndex uint64) string {
	return fmt.Sprintf("%s%d", roundVestingPrefix, roundIndex)
}

func parseRoundVestingID(vestingID string) (uint64, bool) {
	if !strings.HasPrefix(vestingID, roundVestingPrefix) {
		return 0, false
	}

	roundIndex, err := strconv.ParseUint(strings.TrimPrefix(vestingID, roundVestingPrefix), 10, 64)
	if err != nil {
		return 0, false
	}

	return roundIndex, true
}

// AddSaleRound appends a pricing round and returns its index. Rounds
// are immutable apart from AdjustCliffAndVesting and may overlap; the
// lowest matching index wins during purchases.
func (s *SmartContract) AddSaleRound(
	ctx kalpsdk.TransactionContextInterface,
	startTimestamp, endTimestamp uint64,
	tokenPrice, maxCap, softCap, minPurchase, maxPurchase string,
	cliffDuration, vestingDuration, tgeReleaseBps uint64,
) (uint64, error) {
	if _, err := RequireRole(ctx, RoleAdmin); err != nil {
		return 0, err
	}

	status, err := GetSaleStatus(ctx)
	if err != nil {
		return 0, err
	}
	if status.IcoEnded {
		return 0, NewCustomError(http.StatusBadRequest, "cannot add a round after the sale has ended", ErrIcoAlreadyEnded)
	}

	if startTimestamp >= endTimestamp {
		return 0, NewCustomError(http.StatusBadRequest, "round start must precede round end", ErrInvalidTimeRange(startTimestamp, endTimestamp))
	}

	priceAmount, err := parseAmount("token price", tokenPrice)
	if err != nil {
		return 0, err
	}
	if priceAmount.Sign() == 0 {
		return 0, NewCustomError(http.StatusBadRequest, "token price cannot be zero", ErrInvalidTokenPrice(tokenPrice))
	}

	maxCapAmount, err := parsePositiveAmount("max cap", maxCap)
	if err != nil {
		return 0, err
	}
	softCapAmount, err := parseAmount("soft cap", softCap)
	if err != nil {
		return 0, err
	}
	if softCapAmount.Cmp(maxCapAmount) > 0 {
		return 0, NewCustomError(http.StatusBadRequest, "soft cap exceeds max cap", ErrInvalidCap(softCap, maxCap))
	}

	minPurchaseAmount, err := parseAmount("min purchase", minPurchase)
	if err != nil {
		return 0, err
	}
	maxPurchaseAmount, err := parsePositiveAmount("max purchase", maxPurchase)
	if err != nil {
		return 0, err
	}
	if minPurchaseAmount.Cmp(maxPurchaseAmount) > 0 {
		return 0, NewCustomError(http.StatusBadRequest, "min purchase exceeds max purchase", ErrInvalidPurchaseBounds(minPurchase, maxPurchase))
	}

	roundIndex, err := GetSaleRoundCount(ctx)
	if err != nil {
		return 0, err
	}

	if err = validateVestingDuration(roundVestingID(roundIndex), vestingDuration); err != nil {
		return 0, err
	}
	if tgeReleaseBps > bpsDenominator {
		return 0, NewCustomError(http.StatusBadRequest, fmt.Sprintf("TGE release for round %d exceeds the denominator", roundIndex), ErrInvalidBps("tgeReleaseBps", tgeReleaseBps))
	}

	round := &SaleRound{
		StartTimestamp:  startTimestamp,
		EndTimestamp:    endTimestamp,
		TokenPrice:      tokenPrice,
		MaxCap:          maxCap,
		SoftCap:         softCap,
		MinPurchase:     minPurchase,
		MaxPurchase:     maxPurchase,
		CliffDuration:   cliffDuration,
		VestingDuration: vestingDuration,
		TGEReleaseBps:   tgeReleaseBps,
		TotalRaised:     "0",
	}
	if err = SetSaleRound(ctx, roundIndex, round); err != nil {
		return 0, err
	}
	if err = SetSaleRoundCount(ctx, roundIndex+1); err != nil {
		return 0, err
	}

	err = EmitSaleRoundAdded(ctx, SaleRoundAddedEvent{
		RoundIndex:     roundIndex,
		StartTimestamp: startTimestamp,
		EndTimestamp:   endTimestamp,
		TokenPrice:     tokenPrice,
		MaxCap:         maxCap,
	})
	if err != nil {
		return 0, err
	}

	return roundIndex, nil
}

func (s *SmartContract) AddToWhitelist(ctx kalpsdk.TransactionContextInterface, roundIndex uint64, addresses []string) error {
	if _, err := RequireRole(ctx, RoleAdmin); err != nil {
		return err
	}

	if _, err := GetSaleRound(ctx, roundIndex); err != nil {
		return err
	}

	if len(addresses) == 0 {
		return NewCustomError(http.StatusBadRequest, "no addresses to whitelist", ErrNoBeneficiaries)
	}

	for _, address := range addresses {
		isValid, err := IsUserAddressValid(address)
		if err != nil {
			return NewCustomError(http.StatusInternalServerError, "failed to validate whitelist address", err)
		}
		if !isValid {
			return NewCustomError(http.StatusBadRequest, "invalid whitelist address", ErrInvalidUserAddress(address))
		}

		if err = ctx.PutStateWithoutKYC(fmt.Sprintf("whitelist_%d_%s", roundIndex, address), []byte("true")); err != nil {
			return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to whitelist %s for round %d", address, roundIndex), err)
		}
	}

	return EmitWhitelistAdded(ctx, WhitelistAddedEvent{
		RoundIndex: roundIndex,
		Addresses:  addresses,
	})
}

func (s *SmartContract) IsWhitelisted(ctx kalpsdk.TransactionContextInterface, roundIndex uint64, address string) (bool, error) {
	return isWhitelisted(ctx, roundIndex, address)
}

func isWhitelisted(ctx kalpsdk.TransactionContextInterface, roundIndex uint64, address string) (bool, error) {
	markerAsBytes, err := ctx.GetState(fmt.Sprintf("whitelist_%d_%s", roundIndex, address))
	if err != nil {
		return false, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get whitelist entry for %s in round %d", address, roundIndex), err)
	}

	return markerAsBytes != nil, nil
}

// getActiveRound returns the lowest-index round whose half-open window
// [start, end) contains `now`.
func getActiveRound(ctx kalpsdk.TransactionContextInterface, now uint64) (uint64, *SaleRound, error) {
	roundCount, err := GetSaleRoundCount(ctx)
	if err != nil {
		return 0, nil, err
	}

	for roundIndex := uint64(0); roundIndex < roundCount; roundIndex++ {
		round, err := GetSaleRound(ctx, roundIndex)
		if err != nil {
			return 0, nil, err
		}
		if round.StartTimestamp <= now && now < round.EndTimestamp {
			return roundIndex, round, nil
		}
	}

	return 0, nil, NewCustomError(http.StatusNotFound, fmt.Sprintf("no sale round is active at %d", now), ErrNoActiveRound)
}

// AdjustCliffAndVesting rewrites a round's schedule. The new schedule
// applies to every allocation already bought in the round, so it is
// rejected if it would leave any buyer with less unlocked than already
// claimed.
func (s *SmartContract) AdjustCliffAndVesting(ctx kalpsdk.TransactionContextInterface, roundIndex, cliffDuration, vestingDuration uint64) error {
	if _, err := RequireRole(ctx, RoleAdmin); err != nil {
		return err
	}

	round, err := GetSaleRound(ctx, roundIndex)
	if err != nil {
		return err
	}

	if err = validateVestingDuration(roundVestingID(roundIndex), vestingDuration); err != nil {
		return err
	}

	tgeTimestamp, err := requireTGETimestamp(ctx)
	if err != nil {
		return err
	}

	now, err := GetTransactionTimestamp(ctx)
	if err != nil {
		return err
	}

	buyers, err := GetRoundBuyers(ctx, roundIndex)
	if err != nil {
		return err
	}

	newStart := tgeTimestamp + cliffDuration
	for _, buyer := range buyers {
		allocation, err := GetAllocation(ctx, roundVestingID(roundIndex), buyer)
		if err != nil {
			return err
		}
		if allocation == nil {
			continue
		}

		totalAllocations, ok := new(big.Int).SetString(allocation.TotalAllocations, 10)
		if !ok {
			return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse total allocations for %s", buyer), nil)
		}
		claimedAmount, ok := new(big.Int).SetString(allocation.ClaimedAmount, 10)
		if !ok {
			return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse claimed amount for %s", buyer), nil)
		}

		unlocked := CalculateUnlockedAmount(now, totalAllocations, round.TGEReleaseBps, tgeTimestamp, newStart, vestingDuration)
		if unlocked.Cmp(claimedAmount) < 0 {
			return NewCustomError(http.StatusBadRequest, fmt.Sprintf("new schedule unlocks less than %s already claimed", buyer), ErrAdjustmentBelowClaimed(roundIndex, buyer))
		}
	}

	round.CliffDuration = cliffDuration
	round.VestingDuration = vestingDuration
	if err = SetSaleRound(ctx, roundIndex, round); err != nil {
		return err
	}

	return EmitScheduleAdjusted(ctx, ScheduleAdjustedEvent{
		RoundIndex:      roundIndex,
		CliffDuration:   cliffDuration,
		VestingDuration: vestingDuration,
	})
}

func (s *SmartContract) GetSaleRound(ctx kalpsdk.TransactionContextInterface, roundIndex uint64) (*SaleRound, error) {
	return GetSaleRound(ctx, roundIndex)
}

func (s *SmartContract) GetSaleRoundCount(ctx kalpsdk.TransactionContextInterface) (uint64, error) {
	return GetSaleRoundCount(ctx)
}
