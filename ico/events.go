package ico

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/p2eengineering/kalp-sdk-public/kalpsdk"
)

type VestingInitializedEvent struct {
	VestingID      string `json:"vestingId"`
	TotalSupply    string `json:"totalSupply"`
	StartTimestamp uint64 `json:"startTimestamp"`
}

type SaleRoundAddedEvent struct {
	RoundIndex     uint64 `json:"roundIndex"`
	StartTimestamp uint64 `json:"startTimestamp"`
	EndTimestamp   uint64 `json:"endTimestamp"`
	TokenPrice     string `json:"tokenPrice"`
	MaxCap         string `json:"maxCap"`
}

type WhitelistAddedEvent struct {
	RoundIndex uint64   `json:"roundIndex"`
	Addresses  []string `json:"addresses"`
}

type TokensPurchasedEvent struct {
	RoundIndex      uint64 `json:"roundIndex"`
	Beneficiary     string `json:"beneficiary"`
	Currency        string `json:"currency"`
	PaidAmount      string `json:"paidAmount"`
	ConvertedAmount string `json:"convertedAmount"`
	TokenAmount     string `json:"tokenAmount"`
}

type BeneficiariesAddedEvent struct {
	VestingID        string `json:"vestingId"`
	TotalAllocations string `json:"totalAllocations"`
}

type ClaimEvent struct {
	SignerAddress string `json:"signerAddress"`
	VestingID     string `json:"vestingId"`
	AmountToClaim string `json:"amountToClaim"`
}

type IcoEndedEvent struct {
	Timestamp    uint64 `json:"timestamp"`
	ClaimEnabled bool   `json:"claimEnabled"`
}

type ScheduleAdjustedEvent struct {
	RoundIndex      uint64 `json:"roundIndex"`
	CliffDuration   uint64 `json:"cliffDuration"`
	VestingDuration uint64 `json:"vestingDuration"`
}

type FundsWithdrawnEvent struct {
	RoundIndex uint64 `json:"roundIndex"`
	Currency   string `json:"currency"`
	Recipient  string `json:"recipient"`
	Amount     string `json:"amount"`
}

type NativeWithdrawnEvent struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

type AssetRecoveredEvent struct {
	Token     string `json:"token"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

type StakedEvent struct {
	Owner          string `json:"owner"`
	StakeIndex     uint64 `json:"stakeIndex"`
	Amount         string `json:"amount"`
	Tier           uint64 `json:"tier"`
	StartTimestamp uint64 `json:"startTimestamp"`
}

type UnstakedEvent struct {
	Owner      string `json:"owner"`
	StakeIndex uint64 `json:"stakeIndex"`
	Payout     string `json:"payout"`
}

type RewardsAccruedEvent struct {
	AccruedDay      uint64 `json:"accruedDay"`
	TotalPonderated string `json:"totalPonderated"`
}

func emitEvent(ctx kalpsdk.TransactionContextInterface, name string, payload interface{}) error {
	payloadAsBytes, err := json.Marshal(payload)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to marshal event %s", name), err)
	}

	if err = ctx.SetEvent(name, payloadAsBytes); err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to set event %s", name), err)
	}

	return nil
}

func EmitVestingInitialized(ctx kalpsdk.TransactionContextInterface, event VestingInitializedEvent) error {
	return emitEvent(ctx, "VestingInitialized", event)
}

func EmitSaleRoundAdded(ctx kalpsdk.TransactionContextInterface, event SaleRoundAddedEvent) error {
	return emitEvent(ctx, "SaleRoundAdded", event)
}

func EmitWhitelistAdded(ctx kalpsdk.TransactionContextInterface, event WhitelistAddedEvent) error {
	return emitEvent(ctx, "WhitelistAdded", event)
}

func EmitTokensPurchased(ctx kalpsdk.TransactionContextInterface, event TokensPurchasedEvent) error {
	return emitEvent(ctx, "TokensPurchased", event)
}

func EmitBeneficiariesAdded(ctx kalpsdk.TransactionContextInterface, event BeneficiariesAddedEvent) error {
	return emitEvent(ctx, "BeneficiariesAdded", event)
}

func EmitClaim(ctx kalpsdk.TransactionContextInterface, event ClaimEvent) error {
	return emitEvent(ctx, "Claim", event)
}

func EmitIcoEnded(ctx kalpsdk.TransactionContextInterface, event IcoEndedEvent) error {
	return emitEvent(ctx, "IcoEnded", event)
}

func EmitScheduleAdjusted(ctx kalpsdk.TransactionContextInterface, event ScheduleAdjustedEvent) error {
	return emitEvent(ctx, "ScheduleAdjusted", event)
}

func EmitFundsWithdrawn(ctx kalpsdk.TransactionContextInterface, event FundsWithdrawnEvent) error {
	return emitEvent(ctx, "FundsWithdrawn", event)
}

func EmitNativeWithdrawn(ctx kalpsdk.TransactionContextInterface, event NativeWithdrawnEvent) error {
	return emitEvent(ctx, "NativeWithdrawn", event)
}

func EmitAssetRecovered(ctx kalpsdk.TransactionContextInterface, event AssetRecoveredEvent) error {
	return emitEvent(ctx, "AssetRecovered", event)
}

func EmitStaked(ctx kalpsdk.TransactionContextInterface, event StakedEvent) error {
	return emitEvent(ctx, "Staked", event)
}

func EmitUnstaked(ctx kalpsdk.TransactionContextInterface, event UnstakedEvent) error {
	return emitEvent(ctx, "Unstaked", event)
}

func EmitRewardsAccrued(ctx kalpsdk.TransactionContextInterface, event RewardsAccruedEvent) error {
	return emitEvent(ctx, "RewardsAccrued", event)
}
