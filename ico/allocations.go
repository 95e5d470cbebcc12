package ico

import (
	"fmt"
	"math/big"
	"net/http"

	"github.com/p2eengineering/kalp-sdk-public/kalpsdk"
)

// VestingData bundles a pool template with its aggregate claims.
type VestingData struct {
	VestingPeriod *VestingPeriod `json:"vestingPeriod"`
	ClaimedAmount string         `json:"claimedAmount"`
}

type ClaimsWithAllVestings struct {
	TotalAmount  string   `json:"totalAmount"`
	UserVestings []string `json:"userVestings"`
	Amounts      []string `json:"amounts"`
}

type AllocationsWithAllVestings struct {
	UserVestings     []string `json:"userVestings"`
	TotalAllocations []string `json:"totalAllocations"`
}

type TotalClaimsWithAllVestings struct {
	TotalAmount  string   `json:"totalAmount"`
	UserVestings []string `json:"userVestings"`
	Amounts      []string `json:"amounts"`
}

// resolveSchedule returns the schedule parameters of a vesting bucket.
// Round schedules are read from the round record at call time, so a
// cliff or duration adjustment reshapes every allocation in the round.
func resolveSchedule(ctx kalpsdk.TransactionContextInterface, vestingID string) (uint64, uint64, uint64, error) {
	if roundIndex, ok := parseRoundVestingID(vestingID); ok {
		round, err := GetSaleRound(ctx, roundIndex)
		if err != nil {
			return 0, 0, 0, err
		}

		tgeTimestamp, err := requireTGETimestamp(ctx)
		if err != nil {
			return 0, 0, 0, err
		}

		return tgeTimestamp + round.CliffDuration, round.VestingDuration, round.TGEReleaseBps, nil
	}

	vestingPeriod, err := GetVestingPeriod(ctx, vestingID)
	if err != nil {
		return 0, 0, 0, err
	}
	if vestingPeriod == nil {
		return 0, 0, 0, NewCustomError(http.StatusNotFound, fmt.Sprintf("vesting period with Key vestingperiod_%s does not exist", vestingID), ErrInvalidVestingID(vestingID))
	}

	return vestingPeriod.StartTimestamp, vestingPeriod.Duration, vestingPeriod.TGEReleaseBps, nil
}

// claimableNow computes the net claimable amount of one allocation.
func claimableNow(ctx kalpsdk.TransactionContextInterface, vestingID, beneficiary string, now uint64) (*big.Int, *Allocation, error) {
	allocation, err := GetAllocation(ctx, vestingID, beneficiary)
	if err != nil {
		return nil, nil, err
	}
	if allocation == nil {
		return big.NewInt(0), nil, nil
	}

	startTimestamp, duration, tgeReleaseBps, err := resolveSchedule(ctx, vestingID)
	if err != nil {
		return nil, nil, err
	}

	tgeTimestamp, err := requireTGETimestamp(ctx)
	if err != nil {
		return nil, nil, err
	}

	totalAllocations, ok := new(big.Int).SetString(allocation.TotalAllocations, 10)
	if !ok {
		return nil, nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse total allocations for %s in %s", beneficiary, vestingID), nil)
	}
	claimedAmount, ok := new(big.Int).SetString(allocation.ClaimedAmount, 10)
	if !ok {
		return nil, nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse claimed amount for %s in %s", beneficiary, vestingID), nil)
	}

	unlocked := CalculateUnlockedAmount(now, totalAllocations, tgeReleaseBps, tgeTimestamp, startTimestamp, duration)

	return NetClaimable(unlocked, claimedAmount), allocation, nil
}

// applyClaim books a claim against an allocation and the aggregates.
// The token transfer stays with the caller.
func applyClaim(ctx kalpsdk.TransactionContextInterface, vestingID, beneficiary string, allocation *Allocation, amountToClaim *big.Int, now uint64) error {
	claimedAmount, ok := new(big.Int).SetString(allocation.ClaimedAmount, 10)
	if !ok {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse claimed amount for %s in %s", beneficiary, vestingID), nil)
	}

	allocation.ClaimedAmount = new(big.Int).Add(claimedAmount, amountToClaim).String()
	allocation.LastClaimTimestamp = now
	if err := SetAllocation(ctx, vestingID, beneficiary, allocation); err != nil {
		return err
	}

	totalClaims, err := GetTotalClaims(ctx, vestingID)
	if err != nil {
		return err
	}
	if err = SetTotalClaims(ctx, vestingID, new(big.Int).Add(totalClaims, amountToClaim)); err != nil {
		return err
	}

	totalClaimsForAll, err := GetTotalClaimsForAll(ctx)
	if err != nil {
		return err
	}
	if err = SetTotalClaimsForAll(ctx, new(big.Int).Add(totalClaimsForAll, amountToClaim)); err != nil {
		return err
	}

	return EmitClaim(ctx, ClaimEvent{
		SignerAddress: beneficiary,
		VestingID:     vestingID,
		AmountToClaim: amountToClaim.String(),
	})
}

// Claim releases the signer's claimable amount in one vesting bucket
// and transfers it from contract custody. Sale round buckets wait for
// the closed sale to enable claims; fixed pools follow their own
// schedule regardless of the sale outcome.
func (s *SmartContract) Claim(ctx kalpsdk.TransactionContextInterface, vestingID string) error {
	signer, err := GetUserId(ctx)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to get signer id", err)
	}

	if _, isRound := parseRoundVestingID(vestingID); isRound {
		if err = requireClaimsOpen(ctx); err != nil {
			return err
		}
	}

	now, err := GetTransactionTimestamp(ctx)
	if err != nil {
		return err
	}

	tgeTimestamp, err := requireTGETimestamp(ctx)
	if err != nil {
		return err
	}
	if now < tgeTimestamp {
		return NewCustomError(http.StatusBadRequest, fmt.Sprintf("vesting for %s has not started yet", vestingID), ErrOnlyAfterVestingStart(vestingID))
	}

	amountToClaim, allocation, err := claimableNow(ctx, vestingID, signer, now)
	if err != nil {
		return err
	}
	if allocation == nil {
		return NewCustomError(http.StatusNotFound, fmt.Sprintf("allocation with Key allocations_%s_%s does not exist", vestingID, signer), ErrNothingToClaim)
	}
	if amountToClaim.Sign() == 0 {
		return NewCustomError(http.StatusBadRequest, fmt.Sprintf("nothing to claim for %s in %s", signer, vestingID), ErrNothingToClaim)
	}

	if err = applyClaim(ctx, vestingID, signer, allocation, amountToClaim, now); err != nil {
		return err
	}

	saleToken, err := getContractAddress(ctx, saleTokenKey, "sale token address")
	if err != nil {
		return err
	}

	return transferTokens(ctx, saleToken, signer, amountToClaim)
}

// ClaimAll releases the signer's claimable amount across every vesting
// bucket with a single token transfer. Sale round buckets are skipped
// while their claims are locked.
func (s *SmartContract) ClaimAll(ctx kalpsdk.TransactionContextInterface) error {
	signer, err := GetUserId(ctx)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to get signer id", err)
	}

	status, err := GetSaleStatus(ctx)
	if err != nil {
		return err
	}
	roundClaimsOpen := status.IcoEnded && status.ClaimEnabled

	now, err := GetTransactionTimestamp(ctx)
	if err != nil {
		return err
	}

	userVestingList, err := GetUserVesting(ctx, signer)
	if err != nil {
		return err
	}

	totalAmountToClaim := big.NewInt(0)
	for _, vestingID := range userVestingList {
		if _, isRound := parseRoundVestingID(vestingID); isRound && !roundClaimsOpen {
			continue
		}

		amountToClaim, allocation, err := claimableNow(ctx, vestingID, signer, now)
		if err != nil {
			return err
		}
		if allocation == nil || amountToClaim.Sign() == 0 {
			continue
		}

		if err = applyClaim(ctx, vestingID, signer, allocation, amountToClaim, now); err != nil {
			return err
		}
		totalAmountToClaim.Add(totalAmountToClaim, amountToClaim)
	}

	if totalAmountToClaim.Sign() == 0 {
		return NewCustomError(http.StatusBadRequest, fmt.Sprintf("nothing to claim for %s", signer), ErrNothingToClaim)
	}

	saleToken, err := getContractAddress(ctx, saleTokenKey, "sale token address")
	if err != nil {
		return err
	}

	return transferTokens(ctx, saleToken, signer, totalAmountToClaim)
}

// CalculateClaimAmount is the read-only preview of Claim. It returns
// "0" for addresses without an allocation.
func (s *SmartContract) CalculateClaimAmount(ctx kalpsdk.TransactionContextInterface, beneficiary, vestingID string) (string, error) {
	isValid, err := IsUserAddressValid(beneficiary)
	if err != nil {
		return "", NewCustomError(http.StatusInternalServerError, "failed to validate beneficiary address", err)
	}
	if !isValid {
		return "", NewCustomError(http.StatusBadRequest, "invalid beneficiary address", ErrInvalidUserAddress(beneficiary))
	}

	if _, _, _, err = resolveSchedule(ctx, vestingID); err != nil {
		return "", err
	}

	now, err := GetTransactionTimestamp(ctx)
	if err != nil {
		return "", err
	}

	amountToClaim, _, err := claimableNow(ctx, vestingID, beneficiary, now)
	if err != nil {
		return "", err
	}

	return amountToClaim.String(), nil
}

// AddBeneficiaries assigns fixed-pool allocations. Sale round buckets
// are fed by purchases only.
func (s *SmartContract) AddBeneficiaries(ctx kalpsdk.TransactionContextInterface, vestingID string, beneficiaries, amounts []string) error {
	if _, err := RequireRole(ctx, RoleAdmin); err != nil {
		return err
	}

	if _, isRound := parseRoundVestingID(vestingID); isRound {
		return NewCustomError(http.StatusBadRequest, "cannot add fixed allocations to a sale round", ErrInvalidVestingID(vestingID))
	}

	if len(beneficiaries) == 0 {
		return NewCustomError(http.StatusBadRequest, "no beneficiaries to add", ErrNoBeneficiaries)
	}
	if len(beneficiaries) != len(amounts) {
		return NewCustomError(http.StatusBadRequest, "beneficiaries and amounts differ in length", ErrArraysLengthMismatch(len(beneficiaries), len(amounts)))
	}

	totalAllocations := big.NewInt(0)
	for i, beneficiary := range beneficiaries {
		allocationAmount, err := addFixedAllocation(ctx, vestingID, beneficiary, amounts[i])
		if err != nil {
			return err
		}
		totalAllocations.Add(totalAllocations, allocationAmount)
	}

	return EmitBeneficiariesAdded(ctx, BeneficiariesAddedEvent{
		VestingID:        vestingID,
		TotalAllocations: totalAllocations.String(),
	})
}

func (s *SmartContract) GetUserVestings(ctx kalpsdk.TransactionContextInterface, beneficiary string) ([]string, error) {
	isValid, err := IsUserAddressValid(beneficiary)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, "failed to validate beneficiary address", err)
	}
	if !isValid {
		return nil, NewCustomError(http.StatusBadRequest, "invalid beneficiary address", ErrInvalidUserAddress(beneficiary))
	}

	return GetUserVesting(ctx, beneficiary)
}

// GetClaimsAmountForAllVestings previews the claimable amount in each
// of the beneficiary's vesting buckets at the current time.
func (s *SmartContract) GetClaimsAmountForAllVestings(ctx kalpsdk.TransactionContextInterface, beneficiary string) (*ClaimsWithAllVestings, error) {
	isValid, err := IsUserAddressValid(beneficiary)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, "failed to validate beneficiary address", err)
	}
	if !isValid {
		return nil, NewCustomError(http.StatusBadRequest, "invalid beneficiary address", ErrInvalidUserAddress(beneficiary))
	}

	now, err := GetTransactionTimestamp(ctx)
	if err != nil {
		return nil, err
	}

	userVestingList, err := GetUserVesting(ctx, beneficiary)
	if err != nil {
		return nil, err
	}

	totalAmount := big.NewInt(0)
	amounts := make([]string, 0, len(userVestingList))
	for _, vestingID := range userVestingList {
		amountToClaim, _, err := claimableNow(ctx, vestingID, beneficiary, now)
		if err != nil {
			return nil, err
		}

		totalAmount.Add(totalAmount, amountToClaim)
		amounts = append(amounts, amountToClaim.String())
	}

	return &ClaimsWithAllVestings{
		TotalAmount:  totalAmount.String(),
		UserVestings: userVestingList,
		Amounts:      amounts,
	}, nil
}

func (s *SmartContract) GetAllocationsForAllVestings(ctx kalpsdk.TransactionContextInterface, beneficiary string) (*AllocationsWithAllVestings, error) {
	isValid, err := IsUserAddressValid(beneficiary)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, "failed to validate beneficiary address", err)
	}
	if !isValid {
		return nil, NewCustomError(http.StatusBadRequest, "invalid beneficiary address", ErrInvalidUserAddress(beneficiary))
	}

	userVestingList, err := GetUserVesting(ctx, beneficiary)
	if err != nil {
		return nil, err
	}

	totalAllocations := make([]string, 0, len(userVestingList))
	for _, vestingID := range userVestingList {
		allocation, err := GetAllocation(ctx, vestingID, beneficiary)
		if err != nil {
			return nil, err
		}
		if allocation == nil {
			totalAllocations = append(totalAllocations, "0")
			continue
		}

		totalAllocations = append(totalAllocations, allocation.TotalAllocations)
	}

	return &AllocationsWithAllVestings{
		UserVestings:     userVestingList,
		TotalAllocations: totalAllocations,
	}, nil
}

// GetTotalClaimsForAllVestings reports the booked claims in each of the
// beneficiary's vesting buckets.
func (s *SmartContract) GetTotalClaimsForAllVestings(ctx kalpsdk.TransactionContextInterface, beneficiary string) (*TotalClaimsWithAllVestings, error) {
	isValid, err := IsUserAddressValid(beneficiary)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, "failed to validate beneficiary address", err)
	}
	if !isValid {
		return nil, NewCustomError(http.StatusBadRequest, "invalid beneficiary address", ErrInvalidUserAddress(beneficiary))
	}

	userVestingList, err := GetUserVesting(ctx, beneficiary)
	if err != nil {
		return nil, err
	}

	totalAmount := big.NewInt(0)
	amounts := make([]string, 0, len(userVestingList))
	for _, vestingID := range userVestingList {
		allocation, err := GetAllocation(ctx, vestingID, beneficiary)
		if err != nil {
			return nil, err
		}
		if allocation == nil {
			amounts = append(amounts, "0")
			continue
		}

		claimedAmount, ok := new(big.Int).SetString(allocation.ClaimedAmount, 10)
		if !ok {
			return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse claimed amount for %s in %s", beneficiary, vestingID), nil)
		}

		totalAmount.Add(totalAmount, claimedAmount)
		amounts = append(amounts, allocation.ClaimedAmount)
	}

	return &TotalClaimsWithAllVestings{
		TotalAmount:  totalAmount.String(),
		UserVestings: userVestingList,
		Amounts:      amounts,
	}, nil
}

// GetVestingData returns a pool template with its aggregate claims.
// Sale rounds are inspected through GetSaleRound instead.
func (s *SmartContract) GetVestingData(ctx kalpsdk.TransactionContextInterface, vestingID string) (*VestingData, error) {
	if _, isRound := parseRoundVestingID(vestingID); isRound {
		return nil, NewCustomError(http.StatusBadRequest, "sale rounds are not vesting pools", ErrInvalidVestingID(vestingID))
	}

	vestingPeriod, err := GetVestingPeriod(ctx, vestingID)
	if err != nil {
		return nil, err
	}
	if vestingPeriod == nil {
		return nil, NewCustomError(http.StatusNotFound, fmt.Sprintf("vesting period with Key vestingperiod_%s does not exist", vestingID), ErrInvalidVestingID(vestingID))
	}

	totalClaims, err := GetTotalClaims(ctx, vestingID)
	if err != nil {
		return nil, err
	}

	return &VestingData{
		VestingPeriod: vestingPeriod,
		ClaimedAmount: totalClaims.String(),
	}, nil
}

func (s *SmartContract) GetTotalClaims(ctx kalpsdk.TransactionContextInterface, vestingID string) (string, error) {
	totalClaims, err := GetTotalClaims(ctx, vestingID)
	if err != nil {
		return "", err
	}

	return totalClaims.String(), nil
}

func (s *SmartContract) GetTotalClaimsForAll(ctx kalpsdk.TransactionContextInterface) (string, error) {
	totalClaims, err := GetTotalClaimsForAll(ctx)
	if err != nil {
		return "", err
	}

	return totalClaims.String(), nil
}
