package ico

import (
	"math/big"
	"net/http"
)

// CalculateInitialUnlock returns the TGE tranche of an allocation,
// truncating the division.
func CalculateInitialUnlock(totalAllocations *big.Int, tgeReleaseBps uint64) *big.Int {
	if totalAllocations.Sign() == 0 {
		return big.NewInt(0)
	}

	initialUnlock := new(big.Int).Mul(totalAllocations, new(big.Int).SetUint64(tgeReleaseBps))
	return initialUnlock.Div(initialUnlock, new(big.Int).SetUint64(bpsDenominator))
}

// CalculateClaimableAmount returns the linear tranche unlocked at `now`.
// The schedule releases in 30-day periods and the first period unlocks
// at startTimestamp, so elapsedPeriods is one-based.
func CalculateClaimableAmount(now uint64, totalAllocations *big.Int, startTimestamp, duration uint64, initialUnlock *big.Int) *big.Int {
	if now < startTimestamp {
		return big.NewInt(0)
	}

	linearTotal := new(big.Int).Sub(totalAllocations, initialUnlock)
	if linearTotal.Sign() <= 0 {
		return big.NewInt(0)
	}

	totalPeriods := duration / claimInterval
	if totalPeriods == 0 {
		return linearTotal
	}

	elapsedPeriods := (now-startTimestamp)/claimInterval + 1
	if elapsedPeriods > totalPeriods {
		elapsedPeriods = totalPeriods
	}

	claimable := new(big.Int).Mul(linearTotal, new(big.Int).SetUint64(elapsedPeriods))
	return claimable.Div(claimable, new(big.Int).SetUint64(totalPeriods))
}

// CalculateUnlockedAmount returns the cumulative unlocked amount at
// `now`, capped at the total allocation. The TGE tranche is gated on the
// global TGE timestamp, the linear tranche on the schedule start.
func CalculateUnlockedAmount(now uint64, totalAllocations *big.Int, tgeReleaseBps, tgeTimestamp, startTimestamp, duration uint64) *big.Int {
	initialUnlock := CalculateInitialUnlock(totalAllocations, tgeReleaseBps)

	unlocked := big.NewInt(0)
	if now >= tgeTimestamp {
		unlocked.Add(unlocked, initialUnlock)
	}
	unlocked.Add(unlocked, CalculateClaimableAmount(now, totalAllocations, startTimestamp, duration, initialUnlock))

	if unlocked.Cmp(totalAllocations) > 0 {
		return new(big.Int).Set(totalAllocations)
	}

	return unlocked
}

// NetClaimable is the unlocked amount not yet claimed, floored at zero
// so schedule adjustments can never produce a negative claim.
func NetClaimable(unlocked, claimed *big.Int) *big.Int {
	if unlocked.Cmp(claimed) <= 0 {
		return big.NewInt(0)
	}

	return new(big.Int).Sub(unlocked, claimed)
}

// validateVestingDuration rejects durations that are zero or not whole
// 30-day periods, which would leave the linear schedule without a last
// period boundary.
func validateVestingDuration(vestingID string, duration uint64) error {
	if duration == 0 || duration%claimInterval != 0 {
		return NewCustomError(http.StatusBadRequest, "vesting duration must be a positive multiple of the claim interval", ErrInvalidVestingDuration(vestingID, duration))
	}

	return nil
}
