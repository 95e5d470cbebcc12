package ico

import (
	"errors"
	"fmt"
)

var (
	ErrNoBeneficiaries              = errors.New("NoBeneficiaries")
	ErrCannotBeZero                 = errors.New("CannotBeZero")
	ErrNothingToClaim               = errors.New("NothingToClaim")
	ErrNothingToWithdraw            = errors.New("NothingToWithdraw")
	ErrNoActiveRound                = errors.New("NoActiveRound")
	ErrNotWhitelisted               = errors.New("NotWhitelisted")
	ErrBelowMinPurchase             = errors.New("BelowMinPurchase")
	ErrAboveMaxPurchase             = errors.New("AboveMaxPurchase")
	ErrRoundCapExceeded             = errors.New("RoundCapExceeded")
	ErrIcoAlreadyEnded              = errors.New("IcoAlreadyEnded")
	ErrIcoNotEnded                  = errors.New("IcoNotEnded")
	ErrClaimNotEnabled              = errors.New("ClaimNotEnabled")
	ErrCannotRecoverSaleToken       = errors.New("CannotRecoverSaleToken")
	ErrCannotRecoverAccountingToken = errors.New("CannotRecoverAccountingToken")
	ErrSlippageTooHigh              = errors.New("SlippageTooHigh")
	ErrStakeLocked                  = errors.New("StakeLocked")
	ErrAccrualNotDue                = errors.New("AccrualNotDue")
	ErrUnauthorized                 = errors.New("Unauthorized")
	ErrContractAddressAlreadySet    = errors.New("ContractAddressAlreadySet")
)

func ErrInvalidAmount(entity string, value string) error {
	return fmt.Errorf("InvalidAmount for %s with value %s", entity, value)
}

func ErrInvalidUserAddress(address string) error {
	return fmt.Errorf("InvalidUserAddress with address %s", address)
}

func ErrInvalidContractAddress(address string) error {
	return fmt.Errorf("InvalidContractAddress with address %s", address)
}

func ErrInvalidVestingID(vestingID string) error {
	return fmt.Errorf("InvalidVestingID with ID %s", vestingID)
}

func ErrBeneficiaryAlreadyExists(beneficiary string) error {
	return fmt.Errorf("BeneficiaryAlreadyExists for %s", beneficiary)
}

func ErrTotalSupplyReached(vestingID string) error {
	return fmt.Errorf("TotalSupplyReached for vesting ID %s", vestingID)
}

func ErrArraysLengthMismatch(length1, length2 int) error {
	return fmt.Errorf("ArraysLengthMismatch with lengths %d and %d", length1, length2)
}

func ErrInvalidTimeRange(startTimestamp, endTimestamp uint64) error {
	return fmt.Errorf("InvalidTimeRange with start %d and end %d", startTimestamp, endTimestamp)
}

func ErrInvalidVestingDuration(vestingID string, duration uint64) error {
	return fmt.Errorf("InvalidVestingDuration for %s with duration %d", vestingID, duration)
}

func ErrInvalidTokenPrice(price string) error {
	return fmt.Errorf("InvalidTokenPrice with price %s", price)
}

func ErrInvalidCap(softCap, maxCap string) error {
	return fmt.Errorf("InvalidCap with soft cap %s and max cap %s", softCap, maxCap)
}

func ErrInvalidPurchaseBounds(minPurchase, maxPurchase string) error {
	return fmt.Errorf("InvalidPurchaseBounds with min %s and max %s", minPurchase, maxPurchase)
}

func ErrInvalidBps(entity string, value uint64) error {
	return fmt.Errorf("InvalidBps for %s with value %d", entity, value)
}

func ErrRoundNotFound(roundIndex uint64) error {
	return fmt.Errorf("RoundNotFound with index %d", roundIndex)
}

func ErrAdjustmentBelowClaimed(roundIndex uint64, beneficiary string) error {
	return fmt.Errorf("AdjustmentBelowClaimed for round %d and beneficiary %s", roundIndex, beneficiary)
}

func ErrInvalidStakingTier(tier uint64) error {
	return fmt.Errorf("InvalidStakingTier with tier %d", tier)
}

func ErrStakeNotFound(owner string, index uint64) error {
	return fmt.Errorf("StakeNotFound for %s at index %d", owner, index)
}

func ErrOnlyAfterVestingStart(vestingID string) error {
	return fmt.Errorf("OnlyAfterVestingStart for vesting ID %s", vestingID)
}

type CustomError struct {
	Code    int
	Message string
	Err     error
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

func NewCustomError(code int, message string, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
