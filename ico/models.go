package ico

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/p2eengineering/kalp-sdk-public/kalpsdk"
)

// SaleRound is one pricing window of the sale. Monetary fields are
// accounting-token base units; TokenPrice is the cost of one whole sale
// token. TotalRaised tracks converted inflow and never exceeds MaxCap.
type SaleRound struct {
	StartTimestamp  uint64 `json:"startTimestamp"`
	EndTimestamp    uint64 `json:"endTimestamp"`
	TokenPrice      string `json:"tokenPrice"`
	MaxCap          string `json:"maxCap"`
	SoftCap         string `json:"softCap"`
	MinPurchase     string `json:"minPurchase"`
	MaxPurchase     string `json:"maxPurchase"`
	CliffDuration   uint64 `json:"cliffDuration"`
	VestingDuration uint64 `json:"vestingDuration"`
	TGEReleaseBps   uint64 `json:"tgeReleaseBps"`
	TotalRaised     string `json:"totalRaised"`
}

// VestingPeriod is the schedule template of a fixed allocation pool.
// TotalSupply is the remaining unassigned supply of the pool.
type VestingPeriod struct {
	TotalSupply    string `json:"totalSupply"`
	CliffDuration  uint64 `json:"cliffDuration"`
	StartTimestamp uint64 `json:"startTimestamp"`
	EndTimestamp   uint64 `json:"endTimestamp"`
	Duration       uint64 `json:"duration"`
	TGEReleaseBps  uint64 `json:"tgeReleaseBps"`
}

// Allocation is one beneficiary's position inside a vesting bucket.
type Allocation struct {
	TotalAllocations   string `json:"totalAllocations"`
	ClaimedAmount      string `json:"claimedAmount"`
	LastClaimTimestamp uint64 `json:"lastClaimTimestamp"`
}

type SaleStatus struct {
	IcoEnded     bool `json:"icoEnded"`
	ClaimEnabled bool `json:"claimEnabled"`
}

// Stake amounts are decimal strings because compounding produces
// fractional base units between accruals.
type Stake struct {
	Amount         string `json:"amount"`
	Rewards        string `json:"rewards"`
	Multiplier     string `json:"multiplier"`
	Tier           uint64 `json:"tier"`
	LockDays       uint64 `json:"lockDays"`
	StartTimestamp uint64 `json:"startTimestamp"`
}

func GetAllocation(ctx kalpsdk.TransactionContextInterface, vestingID, beneficiary string) (*Allocation, error) {
	allocationAsBytes, err := ctx.GetState(fmt.Sprintf("allocations_%s_%s", vestingID, beneficiary))
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get allocation for %s in %s", beneficiary, vestingID), err)
	}
	if allocationAsBytes == nil {
		return nil, nil
	}

	var allocation Allocation
	if err = json.Unmarshal(allocationAsBytes, &allocation); err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to unmarshal allocation for %s in %s", beneficiary, vestingID), err)
	}

	return &allocation, nil
}

func SetAllocation(ctx kalpsdk.TransactionContextInterface, vestingID, beneficiary string, allocation *Allocation) error {
	allocationAsBytes, err := json.Marshal(allocation)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to marshal allocation for %s in %s", beneficiary, vestingID), err)
	}

	if err = ctx.PutStateWithoutKYC(fmt.Sprintf("allocations_%s_%s", vestingID, beneficiary), allocationAsBytes); err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to set allocation for %s in %s", beneficiary, vestingID), err)
	}

	return nil
}

func GetVestingPeriod(ctx kalpsdk.TransactionContextInterface, vestingID string) (*VestingPeriod, error) {
	vestingPeriodAsBytes, err := ctx.GetState(fmt.Sprintf("vestingperiod_%s", vestingID))
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get vesting period for %s", vestingID), err)
	}
	if vestingPeriodAsBytes == nil {
		return nil, nil
	}

	var vestingPeriod VestingPeriod
	if err = json.Unmarshal(vestingPeriodAsBytes, &vestingPeriod); err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to unmarshal vesting period for %s", vestingID), err)
	}

	return &vestingPeriod, nil
}

func SetVestingPeriod(ctx kalpsdk.TransactionContextInterface, vestingID string, vestingPeriod *VestingPeriod) error {
	vestingPeriodAsBytes, err := json.Marshal(vestingPeriod)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to marshal vesting period for %s", vestingID), err)
	}

	if err = ctx.PutStateWithoutKYC(fmt.Sprintf("vestingperiod_%s", vestingID), vestingPeriodAsBytes); err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to set vesting period for %s", vestingID), err)
	}

	return nil
}

func GetSaleRound(ctx kalpsdk.TransactionContextInterface, roundIndex uint64) (*SaleRound, error) {
	roundAsBytes, err := ctx.GetState(fmt.Sprintf("saleround_%d", roundIndex))
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get sale round %d", roundIndex), err)
	}
	if roundAsBytes == nil {
		return nil, NewCustomError(http.StatusNotFound, fmt.Sprintf("sale round with Key saleround_%d does not exist", roundIndex), ErrRoundNotFound(roundIndex))
	}

	var round SaleRound
	if err = json.Unmarshal(roundAsBytes, &round); err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to unmarshal sale round %d", roundIndex), err)
	}

	return &round, nil
}

func SetSaleRound(ctx kalpsdk.TransactionContextInterface, roundIndex uint64, round *SaleRound) error {
	roundAsBytes, err := json.Marshal(round)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to marshal sale round %d", roundIndex), err)
	}

	if err = ctx.PutStateWithoutKYC(fmt.Sprintf("saleround_%d", roundIndex), roundAsBytes); err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to set sale round %d", roundIndex), err)
	}

	return nil
}

func GetSaleRoundCount(ctx kalpsdk.TransactionContextInterface) (uint64, error) {
	countAsBytes, err := ctx.GetState(saleRoundCountKey)
	if err != nil {
		return 0, NewCustomError(http.StatusInternalServerError, "failed to get sale round count", err)
	}
	if countAsBytes == nil {
		return 0, nil
	}

	count, err := strconv.ParseUint(string(countAsBytes), 10, 64)
	if err != nil {
		return 0, NewCustomError(http.StatusInternalServerError, "failed to parse sale round count", err)
	}

	return count, nil
}

func SetSaleRoundCount(ctx kalpsdk.TransactionContextInterface, count uint64) error {
	if err := ctx.PutStateWithoutKYC(saleRoundCountKey, []byte(strconv.FormatUint(count, 10))); err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to set sale round count", err)
	}

	return nil
}

func GetSaleStatus(ctx kalpsdk.TransactionContextInterface) (*SaleStatus, error) {
	statusAsBytes, err := ctx.GetState(saleStatusKey)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, "failed to get sale status", err)
	}
	if statusAsBytes == nil {
		return &SaleStatus{}, nil
	}

	var status SaleStatus
	if err = json.Unmarshal(statusAsBytes, &status); err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, "failed to unmarshal sale status", err)
	}

	return &status, nil
}

func SetSaleStatus(ctx kalpsdk.TransactionContextInterface, status *SaleStatus) error {
	statusAsBytes, err := json.Marshal(status)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to marshal sale status", err)
	}

	if err = ctx.PutStateWithoutKYC(saleStatusKey, statusAsBytes); err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to set sale status", err)
	}

	return nil
}

func GetUserVesting(ctx kalpsdk.TransactionContextInterface, beneficiary string) ([]string, error) {
	userVestingAsBytes, err := ctx.GetState(fmt.Sprintf("uservestings_%s", beneficiary))
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get vesting list for %s", beneficiary), err)
	}
	if userVestingAsBytes == nil {
		return []string{}, nil
	}

	var userVestingList []string
	if err = json.Unmarshal(userVestingAsBytes, &userVestingList); err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to unmarshal vesting list for %s", beneficiary), err)
	}

	return userVestingList, nil
}

func SetUserVesting(ctx kalpsdk.TransactionContextInterface, beneficiary string, userVestingList []string) error {
	userVestingAsBytes, err := json.Marshal(userVestingList)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to marshal vesting list for %s", beneficiary), err)
	}

	if err = ctx.PutStateWithoutKYC(fmt.Sprintf("uservestings_%s", beneficiary), userVestingAsBytes); err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to set vesting list for %s", beneficiary), err)
	}

	return nil
}

func GetRoundBuyers(ctx kalpsdk.TransactionContextInterface, roundIndex uint64) ([]string, error) {
	buyersAsBytes, err := ctx.GetState(fmt.Sprintf("roundbuyers_%d", roundIndex))
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get buyers for round %d", roundIndex), err)
	}
	if buyersAsBytes == nil {
		return []string{}, nil
	}

	var buyers []string
	if err = json.Unmarshal(buyersAsBytes, &buyers); err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to unmarshal buyers for round %d", roundIndex), err)
	}

	return buyers, nil
}

func SetRoundBuyers(ctx kalpsdk.TransactionContextInterface, roundIndex uint64, buyers []string) error {
	buyersAsBytes, err := json.Marshal(buyers)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to marshal buyers for round %d", roundIndex), err)
	}

	if err = ctx.PutStateWithoutKYC(fmt.Sprintf("roundbuyers_%d", roundIndex), buyersAsBytes); err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to set buyers for round %d", roundIndex), err)
	}

	return nil
}

func GetTotalClaims(ctx kalpsdk.TransactionContextInterface, vestingID string) (*big.Int, error) {
	totalClaimsAsBytes, err := ctx.GetState(fmt.Sprintf("total_claims_%s", vestingID))
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get total claims for %s", vestingID), err)
	}
	if totalClaimsAsBytes == nil {
		return big.NewInt(0), nil
	}

	totalClaims, ok := new(big.Int).SetString(string(totalClaimsAsBytes), 10)
	if !ok {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse total claims for %s", vestingID), nil)
	}

	return totalClaims, nil
}

func SetTotalClaims(ctx kalpsdk.TransactionContextInterface, vestingID string, totalClaims *big.Int) error {
	if err := ctx.PutStateWithoutKYC(fmt.Sprintf("total_claims_%s", vestingID), []byte(totalClaims.String())); err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to set total claims for %s", vestingID), err)
	}

	return nil
}

func GetTotalClaimsForAll(ctx kalpsdk.TransactionContextInterface) (*big.Int, error) {
	totalClaimsAsBytes, err := ctx.GetState("total_claims_for_all")
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, "failed to get total claims for all", err)
	}
	if totalClaimsAsBytes == nil {
		return big.NewInt(0), nil
	}

	totalClaims, ok := new(big.Int).SetString(string(totalClaimsAsBytes), 10)
	if !ok {
		return nil, NewCustomError(http.StatusInternalServerError, "failed to parse total claims for all", nil)
	}

	return totalClaims, nil
}

func SetTotalClaimsForAll(ctx kalpsdk.TransactionContextInterface, totalClaims *big.Int) error {
	if err := ctx.PutStateWithoutKYC("total_claims_for_all", []byte(totalClaims.String())); err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to set total claims for all", err)
	}

	return nil
}

func GetTreasuryBalance(ctx kalpsdk.TransactionContextInterface, roundIndex uint64, currency string) (*big.Int, error) {
	balanceAsBytes, err := ctx.GetState(fmt.Sprintf("treasury_%d_%s", roundIndex, currency))
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get treasury balance for round %d in %s", roundIndex, currency), err)
	}
	if balanceAsBytes == nil {
		return big.NewInt(0), nil
	}

	balance, ok := new(big.Int).SetString(string(balanceAsBytes), 10)
	if !ok {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse treasury balance for round %d in %s", roundIndex, currency), nil)
	}

	return balance, nil
}

func SetTreasuryBalance(ctx kalpsdk.TransactionContextInterface, roundIndex uint64, currency string, balance *big.Int) error {
	if err := ctx.PutStateWithoutKYC(fmt.Sprintf("treasury_%d_%s", roundIndex, currency), []byte(balance.String())); err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to set treasury balance for round %d in %s", roundIndex, currency), err)
	}

	return nil
}

func GetStakes(ctx kalpsdk.TransactionContextInterface, owner string) ([]*Stake, error) {
	stakesAsBytes, err := ctx.GetState(fmt.Sprintf("stakes_%s", owner))
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get stakes for %s", owner), err)
	}
	if stakesAsBytes == nil {
		return []*Stake{}, nil
	}

	var stakes []*Stake
	if err = json.Unmarshal(stakesAsBytes, &stakes); err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to unmarshal stakes for %s", owner), err)
	}

	return stakes, nil
}

func SetStakes(ctx kalpsdk.TransactionContextInterface, owner string, stakes []*Stake) error {
	stakesAsBytes, err := json.Marshal(stakes)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to marshal stakes for %s", owner), err)
	}

	if err = ctx.PutStateWithoutKYC(fmt.Sprintf("stakes_%s", owner), stakesAsBytes); err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to set stakes for %s", owner), err)
	}

	return nil
}
