package ico_test

import (
	"encoding/json"
	"testing"

	"github.com/Melies-Ai/Melies-SC-sub001/ico"
	"github.com/Melies-Ai/Melies-SC-sub001/ico/mocks"
	"github.com/stretchr/testify/require"
)

// setupClaimScenario runs a full sale: one round at 0.5 USDT per token
// with a 50% TGE release over two periods, a 1000 USDT purchase by
// Buyer1 (2000 tokens) and a successful close.
func setupClaimScenario(t *testing.T, transactionContext *mocks.TransactionContext, contract *ico.SmartContract) {
	t.Helper()

	setupSale(t, transactionContext, contract)
	addDefaultRound(t, transactionContext, contract)

	setTxTime(transactionContext, 2000)
	SetUserID(transactionContext, Buyer1)
	require.NoError(t, contract.BuyWithUSDT(transactionContext, "100000000000"))

	setTxTime(transactionContext, 3000)
	SetUserID(transactionContext, MeliesFoundation)
	require.NoError(t, contract.EndIco(transactionContext))
}

func TestClaim(t *testing.T) {
	t.Parallel()

	transactionContext, worldState := newTestContext()
	icoContract := ico.SmartContract{}
	setupClaimScenario(t, transactionContext, &icoContract)

	SetUserID(transactionContext, Buyer1)

	// The sale is closed but the schedule has not started.
	err := icoContract.Claim(transactionContext, "round_0")
	require.Error(t, err)
	require.Contains(t, err.Error(), "OnlyAfterVestingStart")

	setTxTime(transactionContext, TgeTimestamp)

	// 50% TGE tranche plus the first of two linear periods.
	preview, err := icoContract.CalculateClaimAmount(transactionContext, Buyer1, "round_0")
	require.NoError(t, err)
	require.Equal(t, "150000000000", preview)

	invokesBefore := transactionContext.InvokeChaincodeCallCount()
	require.NoError(t, icoContract.Claim(transactionContext, "round_0"))

	payout := transactionContext.InvokeChaincodeArgsForCall(invokesBefore)
	require.Equal(t, SaleTokenAddress, payout.ChaincodeName)
	require.Equal(t, "Transfer", string(payout.Args[0]))
	require.Equal(t, Buyer1, string(payout.Args[1]))
	require.Equal(t, "150000000000", string(payout.Args[2]))

	var allocation ico.Allocation
	require.NoError(t, json.Unmarshal(worldState["allocations_round_0_"+Buyer1], &allocation))
	require.Equal(t, "150000000000", allocation.ClaimedAmount)
	require.Equal(t, TgeTimestamp, allocation.LastClaimTimestamp)

	require.Equal(t, []byte("150000000000"), worldState["total_claims_round_0"])
	require.Equal(t, []byte("100150000000000"), worldState["total_claims_for_all"])

	// Claiming twice at the same timestamp releases nothing.
	err = icoContract.Claim(transactionContext, "round_0")
	require.Error(t, err)
	require.Contains(t, err.Error(), "NothingToClaim")

	setTxTime(transactionContext, TgeTimestamp+ClaimInterval)
	require.NoError(t, icoContract.Claim(transactionContext, "round_0"))

	require.NoError(t, json.Unmarshal(worldState["allocations_round_0_"+Buyer1], &allocation))
	require.Equal(t, "200000000000", allocation.ClaimedAmount)
	require.Equal(t, []byte("100200000000000"), worldState["total_claims_for_all"])

	// The allocation is exhausted even far past the schedule end.
	setTxTime(transactionContext, TgeTimestamp+10*ClaimInterval)
	err = icoContract.Claim(transactionContext, "round_0")
	require.Error(t, err)
	require.Contains(t, err.Error(), "NothingToClaim")

	SetUserID(transactionContext, Outsider)
	err = icoContract.Claim(transactionContext, "round_0")
	require.Error(t, err)
	require.Contains(t, err.Error(), "NothingToClaim")
}

func TestClaimBeforeIcoEnds(t *testing.T) {
	t.Parallel()

	transactionContext, _ := newTestContext()
	icoContract := ico.SmartContract{}
	setupSale(t, transactionContext, &icoContract)
	addDefaultRound(t, transactionContext, &icoContract)

	setTxTime(transactionContext, 2000)
	SetUserID(transactionContext, Buyer1)
	require.NoError(t, icoContract.BuyWithUSDT(transactionContext, "100000000000"))

	setTxTime(transactionContext, TgeTimestamp)
	err := icoContract.Claim(transactionContext, "round_0")
	require.Error(t, err)
	require.Contains(t, err.Error(), "IcoNotEnded")
}

func TestClaimFixedPoolWhileSaleOpen(t *testing.T) {
	t.Parallel()

	transactionContext, worldState := newTestContext()
	icoContract := ico.SmartContract{}
	setupSale(t, transactionContext, &icoContract)
	addDefaultRound(t, transactionContext, &icoContract)

	err := icoContract.AddBeneficiaries(transactionContext, "Marketing", []string{Buyer1}, []string{"240000000000"})
	require.NoError(t, err)

	// Pool schedules run independently of the sale: the 10% TGE tranche
	// plus the first of 24 periods unlocks while the round is still
	// selling.
	setTxTime(transactionContext, TgeTimestamp)
	SetUserID(transactionContext, Buyer1)

	invokesBefore := transactionContext.InvokeChaincodeCallCount()
	require.NoError(t, icoContract.Claim(transactionContext, "Marketing"))

	payout := transactionContext.InvokeChaincodeArgsForCall(invokesBefore)
	require.Equal(t, SaleTokenAddress, payout.ChaincodeName)
	require.Equal(t, "Transfer", string(payout.Args[0]))
	require.Equal(t, Buyer1, string(payout.Args[1]))
	require.Equal(t, "33000000000", string(payout.Args[2]))

	var allocation ico.Allocation
	require.NoError(t, json.Unmarshal(worldState["allocations_Marketing_"+Buyer1], &allocation))
	require.Equal(t, "33000000000", allocation.ClaimedAmount)

	// Closing the sale below the soft cap locks the round for good but
	// leaves the pool schedule running.
	SetUserID(transactionContext, MeliesFoundation)
	require.NoError(t, icoContract.EndIco(transactionContext))

	status, err := icoContract.GetSaleStatus(transactionContext)
	require.NoError(t, err)
	require.True(t, status.IcoEnded)
	require.False(t, status.ClaimEnabled)

	setTxTime(transactionContext, TgeTimestamp+ClaimInterval)
	SetUserID(transactionContext, Buyer1)
	require.NoError(t, icoContract.Claim(transactionContext, "Marketing"))

	require.NoError(t, json.Unmarshal(worldState["allocations_Marketing_"+Buyer1], &allocation))
	require.Equal(t, "42000000000", allocation.ClaimedAmount)

	// The round bucket stays gated in the same state.
	err = icoContract.Claim(transactionContext, "round_0")
	require.Error(t, err)
	require.Contains(t, err.Error(), "ClaimNotEnabled")
}

func TestClaimOrderIndependence(t *testing.T) {
	t.Parallel()

	transactionContext, worldState := newTestContext()
	icoContract := ico.SmartContract{}
	setupSale(t, transactionContext, &icoContract)
	addDefaultRound(t, transactionContext, &icoContract)

	setTxTime(transactionContext, 2000)
	SetUserID(transactionContext, Buyer1)
	require.NoError(t, icoContract.BuyWithUSDT(transactionContext, "100000000000"))
	SetUserID(transactionContext, Buyer2)
	require.NoError(t, icoContract.BuyWithUSDT(transactionContext, "100000000000"))

	SetUserID(transactionContext, MeliesFoundation)
	require.NoError(t, icoContract.EndIco(transactionContext))

	// Buyer1 claims each period as it opens; Buyer2 waits and claims
	// once. Both end with the same total.
	setTxTime(transactionContext, TgeTimestamp)
	SetUserID(transactionContext, Buyer1)
	require.NoError(t, icoContract.Claim(transactionContext, "round_0"))

	setTxTime(transactionContext, TgeTimestamp+ClaimInterval)
	require.NoError(t, icoContract.Claim(transactionContext, "round_0"))

	SetUserID(transactionContext, Buyer2)
	require.NoError(t, icoContract.Claim(transactionContext, "round_0"))

	var first, second ico.Allocation
	require.NoError(t, json.Unmarshal(worldState["allocations_round_0_"+Buyer1], &first))
	require.NoError(t, json.Unmarshal(worldState["allocations_round_0_"+Buyer2], &second))
	require.Equal(t, "200000000000", first.ClaimedAmount)
	require.Equal(t, first.ClaimedAmount, second.ClaimedAmount)
}

func TestClaimAll(t *testing.T) {
	t.Parallel()

	transactionContext, worldState := newTestContext()
	icoContract := ico.SmartContract{}
	setupSale(t, transactionContext, &icoContract)
	addDefaultRound(t, transactionContext, &icoContract)

	// Buyer1 holds a Marketing grant on top of the round purchase.
	err := icoContract.AddBeneficiaries(transactionContext, "Marketing", []string{Buyer1}, []string{"240000000000"})
	require.NoError(t, err)

	setTxTime(transactionContext, 2000)
	SetUserID(transactionContext, Buyer1)
	require.NoError(t, icoContract.BuyWithUSDT(transactionContext, "100000000000"))

	setTxTime(transactionContext, 3000)
	SetUserID(transactionContext, MeliesFoundation)
	require.NoError(t, icoContract.EndIco(transactionContext))

	vestings, err := icoContract.GetUserVestings(transactionContext, Buyer1)
	require.NoError(t, err)
	require.Equal(t, []string{"Marketing", "round_0"}, vestings)

	setTxTime(transactionContext, TgeTimestamp)
	SetUserID(transactionContext, Buyer1)

	claims, err := icoContract.GetClaimsAmountForAllVestings(transactionContext, Buyer1)
	require.NoError(t, err)
	require.Equal(t, "183000000000", claims.TotalAmount)
	require.Equal(t, []string{"33000000000", "150000000000"}, claims.Amounts)

	invokesBefore := transactionContext.InvokeChaincodeCallCount()
	require.NoError(t, icoContract.ClaimAll(transactionContext))

	// One transfer covers both buckets.
	require.Equal(t, invokesBefore+1, transactionContext.InvokeChaincodeCallCount())
	payout := transactionContext.InvokeChaincodeArgsForCall(invokesBefore)
	require.Equal(t, SaleTokenAddress, payout.ChaincodeName)
	require.Equal(t, "Transfer", string(payout.Args[0]))
	require.Equal(t, "183000000000", string(payout.Args[2]))

	var marketing, round ico.Allocation
	require.NoError(t, json.Unmarshal(worldState["allocations_Marketing_"+Buyer1], &marketing))
	require.NoError(t, json.Unmarshal(worldState["allocations_round_0_"+Buyer1], &round))
	require.Equal(t, "33000000000", marketing.ClaimedAmount)
	require.Equal(t, "150000000000", round.ClaimedAmount)

	require.Equal(t, []byte("33000000000"), worldState["total_claims_Marketing"])
	require.Equal(t, []byte("150000000000"), worldState["total_claims_round_0"])

	claimEvents := 0
	for i := 0; i < transactionContext.SetEventCallCount(); i++ {
		if transactionContext.SetEventArgsForCall(i).Name == "Claim" {
			claimEvents++
		}
	}
	require.Equal(t, 2, claimEvents)

	err = icoContract.ClaimAll(transactionContext)
	require.Error(t, err)
	require.Contains(t, err.Error(), "NothingToClaim")

	claims, err = icoContract.GetClaimsAmountForAllVestings(transactionContext, Buyer1)
	require.NoError(t, err)
	require.Equal(t, "0", claims.TotalAmount)
	require.Equal(t, []string{"0", "0"}, claims.Amounts)
}

func TestClaimAllSoftCapMissed(t *testing.T) {
	t.Parallel()

	transactionContext, worldState := newTestContext()
	icoContract := ico.SmartContract{}
	setupSale(t, transactionContext, &icoContract)
	addDefaultRound(t, transactionContext, &icoContract)

	err := icoContract.AddBeneficiaries(transactionContext, "Marketing", []string{Buyer1}, []string{"240000000000"})
	require.NoError(t, err)

	// 600 USDT raised against the 1,000 USDT soft cap.
	setTxTime(transactionContext, 2000)
	SetUserID(transactionContext, Buyer1)
	require.NoError(t, icoContract.BuyWithUSDT(transactionContext, "30000000000"))
	SetUserID(transactionContext, Buyer2)
	require.NoError(t, icoContract.BuyWithUSDT(transactionContext, "30000000000"))

	setTxTime(transactionContext, 3000)
	SetUserID(transactionContext, MeliesFoundation)
	require.NoError(t, icoContract.EndIco(transactionContext))

	// ClaimAll pays the Marketing schedule and walks past the locked
	// round bucket.
	setTxTime(transactionContext, TgeTimestamp)
	SetUserID(transactionContext, Buyer1)

	invokesBefore := transactionContext.InvokeChaincodeCallCount()
	require.NoError(t, icoContract.ClaimAll(transactionContext))

	require.Equal(t, invokesBefore+1, transactionContext.InvokeChaincodeCallCount())
	payout := transactionContext.InvokeChaincodeArgsForCall(invokesBefore)
	require.Equal(t, SaleTokenAddress, payout.ChaincodeName)
	require.Equal(t, "Transfer", string(payout.Args[0]))
	require.Equal(t, "33000000000", string(payout.Args[2]))

	var marketing, round ico.Allocation
	require.NoError(t, json.Unmarshal(worldState["allocations_Marketing_"+Buyer1], &marketing))
	require.NoError(t, json.Unmarshal(worldState["allocations_round_0_"+Buyer1], &round))
	require.Equal(t, "33000000000", marketing.ClaimedAmount)
	require.Equal(t, "0", round.ClaimedAmount)

	require.Equal(t, []byte("33000000000"), worldState["total_claims_Marketing"])
	require.Nil(t, worldState["total_claims_round_0"])

	claimEvents := 0
	for i := 0; i < transactionContext.SetEventCallCount(); i++ {
		if transactionContext.SetEventArgsForCall(i).Name == "Claim" {
			claimEvents++
		}
	}
	require.Equal(t, 1, claimEvents)

	// Buyer2 holds only the locked round bucket.
	SetUserID(transactionContext, Buyer2)
	err = icoContract.ClaimAll(transactionContext)
	require.Error(t, err)
	require.Contains(t, err.Error(), "NothingToClaim")
}

func TestCalculateClaimAmount(t *testing.T) {
	t.Parallel()

	transactionContext, _ := newTestContext()
	icoContract := ico.SmartContract{}
	setupClaimScenario(t, transactionContext, &icoContract)

	// Before TGE everything is locked.
	preview, err := icoContract.CalculateClaimAmount(transactionContext, Buyer1, "round_0")
	require.NoError(t, err)
	require.Equal(t, "0", preview)

	// Addresses without an allocation preview as zero.
	setTxTime(transactionContext, TgeTimestamp)
	preview, err = icoContract.CalculateClaimAmount(transactionContext, Outsider, "round_0")
	require.NoError(t, err)
	require.Equal(t, "0", preview)

	_, err = icoContract.CalculateClaimAmount(transactionContext, "xyz", "round_0")
	require.Error(t, err)
	require.Contains(t, err.Error(), "InvalidUserAddress")

	_, err = icoContract.CalculateClaimAmount(transactionContext, Buyer1, "Bogus")
	require.Error(t, err)
	require.Contains(t, err.Error(), "InvalidVestingID")
}

func TestAdjustCliffAndVesting(t *testing.T) {
	t.Parallel()

	transactionContext, worldState := newTestContext()
	icoContract := ico.SmartContract{}
	setupClaimScenario(t, transactionContext, &icoContract)

	setTxTime(transactionContext, TgeTimestamp)
	SetUserID(transactionContext, MeliesFoundation)

	// Pushing the schedule behind a six period cliff reshapes the
	// existing allocation: only the TGE tranche stays unlocked.
	require.NoError(t, icoContract.AdjustCliffAndVesting(transactionContext, 0, 6*ClaimInterval, 2*ClaimInterval))

	var round ico.SaleRound
	require.NoError(t, json.Unmarshal(worldState["saleround_0"], &round))
	require.Equal(t, 6*ClaimInterval, round.CliffDuration)
	require.Equal(t, 2*ClaimInterval, round.VestingDuration)

	preview, err := icoContract.CalculateClaimAmount(transactionContext, Buyer1, "round_0")
	require.NoError(t, err)
	require.Equal(t, "100000000000", preview)

	SetUserID(transactionContext, Buyer1)
	require.NoError(t, icoContract.Claim(transactionContext, "round_0"))

	// Restoring the original schedule is fine: it unlocks more than the
	// claimed tranche.
	SetUserID(transactionContext, MeliesFoundation)
	require.NoError(t, icoContract.AdjustCliffAndVesting(transactionContext, 0, 0, 2*ClaimInterval))

	preview, err = icoContract.CalculateClaimAmount(transactionContext, Buyer1, "round_0")
	require.NoError(t, err)
	require.Equal(t, "50000000000", preview)

	SetUserID(transactionContext, Buyer1)
	require.NoError(t, icoContract.Claim(transactionContext, "round_0"))

	// Stretching vesting to 48 periods would now unlock less than the
	// 150000000000 already claimed.
	SetUserID(transactionContext, MeliesFoundation)
	err = icoContract.AdjustCliffAndVesting(transactionContext, 0, 0, 48*ClaimInterval)
	require.Error(t, err)
	require.Contains(t, err.Error(), "AdjustmentBelowClaimed")

	// The rejected schedule left the round untouched.
	require.NoError(t, json.Unmarshal(worldState["saleround_0"], &round))
	require.Equal(t, uint64(0), round.CliffDuration)
	require.Equal(t, 2*ClaimInterval, round.VestingDuration)
}

func TestAdjustCliffAndVestingValidations(t *testing.T) {
	t.Parallel()

	transactionContext, _ := newTestContext()
	icoContract := ico.SmartContract{}
	setupSale(t, transactionContext, &icoContract)
	addDefaultRound(t, transactionContext, &icoContract)

	SetUserID(transactionContext, Outsider)
	err := icoContract.AdjustCliffAndVesting(transactionContext, 0, 0, 2*ClaimInterval)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Unauthorized")

	SetUserID(transactionContext, MeliesFoundation)

	err = icoContract.AdjustCliffAndVesting(transactionContext, 7, 0, 2*ClaimInterval)
	require.Error(t, err)
	require.Contains(t, err.Error(), "RoundNotFound")

	err = icoContract.AdjustCliffAndVesting(transactionContext, 0, 0, ClaimInterval/2)
	require.Error(t, err)
	require.Contains(t, err.Error(), "InvalidVestingDuration")
}

func TestAddBeneficiaries(t *testing.T) {
	t.Parallel()

	transactionContext, worldState := newTestContext()
	icoContract := ico.SmartContract{}
	setupSale(t, transactionContext, &icoContract)

	err := icoContract.AddBeneficiaries(transactionContext, "Advisors",
		[]string{Buyer1, Buyer2}, []string{"100000000000", "200000000000"})
	require.NoError(t, err)

	var advisorsPeriod ico.VestingPeriod
	require.NoError(t, json.Unmarshal(worldState["vestingperiod_Advisors"], &advisorsPeriod))
	require.Equal(t, "1499700000000000", advisorsPeriod.TotalSupply)

	var allocation ico.Allocation
	require.NoError(t, json.Unmarshal(worldState["allocations_Advisors_"+Buyer2], &allocation))
	require.Equal(t, "200000000000", allocation.TotalAllocations)
	require.Equal(t, "0", allocation.ClaimedAmount)

	vestings, err := icoContract.GetUserVestings(transactionContext, Buyer1)
	require.NoError(t, err)
	require.Equal(t, []string{"Advisors"}, vestings)

	err = icoContract.AddBeneficiaries(transactionContext, "Advisors", []string{Buyer1}, []string{"1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "BeneficiaryAlreadyExists")
}

func TestAddBeneficiariesValidations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		vestingID     string
		beneficiaries []string
		amounts       []string
		expectedErr   string
	}{
		{
			name:      "empty beneficiaries",
			vestingID: "Advisors", beneficiaries: []string{}, amounts: []string{},
			expectedErr: "NoBeneficiaries",
		},
		{
			name:      "length mismatch",
			vestingID: "Advisors", beneficiaries: []string{Buyer1, Buyer2}, amounts: []string{"10"},
			expectedErr: "ArraysLengthMismatch",
		},
		{
			name:      "sale round bucket",
			vestingID: "round_0", beneficiaries: []string{Buyer1}, amounts: []string{"10"},
			expectedErr: "InvalidVestingID",
		},
		{
			name:      "unknown pool",
			vestingID: "Bogus", beneficiaries: []string{Buyer1}, amounts: []string{"10"},
			expectedErr: "InvalidVestingID",
		},
		{
			name:      "zero amount",
			vestingID: "Advisors", beneficiaries: []string{Buyer1}, amounts: []string{"0"},
			expectedErr: "CannotBeZero",
		},
		{
			name:      "invalid beneficiary",
			vestingID: "Advisors", beneficiaries: []string{"xyz"}, amounts: []string{"10"},
			expectedErr: "InvalidUserAddress",
		},
		{
			name:      "supply exceeded",
			vestingID: "Airdrop", beneficiaries: []string{Buyer1}, amounts: []string{"1000000000000001"},
			expectedErr: "TotalSupplyReached",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			transactionContext, _ := newTestContext()
			icoContract := ico.SmartContract{}
			setupSale(t, transactionContext, &icoContract)

			err := icoContract.AddBeneficiaries(transactionContext, tt.vestingID, tt.beneficiaries, tt.amounts)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestVestingGetters(t *testing.T) {
	t.Parallel()

	transactionContext, _ := newTestContext()
	icoContract := ico.SmartContract{}
	setupSale(t, transactionContext, &icoContract)

	tgeTimestamp, err := icoContract.GetTGETimestamp(transactionContext)
	require.NoError(t, err)
	require.Equal(t, TgeTimestamp, tgeTimestamp)

	vestingData, err := icoContract.GetVestingData(transactionContext, "StakingRewards")
	require.NoError(t, err)
	require.Equal(t, "7500000000000000", vestingData.VestingPeriod.TotalSupply)
	require.Equal(t, TgeTimestamp+3*ClaimInterval, vestingData.VestingPeriod.StartTimestamp)
	require.Equal(t, "0", vestingData.ClaimedAmount)

	_, err = icoContract.GetVestingData(transactionContext, "round_0")
	require.Error(t, err)
	require.Contains(t, err.Error(), "InvalidVestingID")

	_, err = icoContract.GetVestingData(transactionContext, "Bogus")
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")

	totalClaims, err := icoContract.GetTotalClaims(transactionContext, "Foundation")
	require.NoError(t, err)
	require.Equal(t, "100000000000000", totalClaims)

	totalClaimsForAll, err := icoContract.GetTotalClaimsForAll(transactionContext)
	require.NoError(t, err)
	require.Equal(t, "100000000000000", totalClaimsForAll)

	vestings, err := icoContract.GetUserVestings(transactionContext, MeliesFoundation)
	require.NoError(t, err)
	require.Equal(t, []string{"Foundation"}, vestings)

	allocations, err := icoContract.GetAllocationsForAllVestings(transactionContext, MeliesFoundation)
	require.NoError(t, err)
	require.Equal(t, []string{"Foundation"}, allocations.UserVestings)
	require.Equal(t, []string{"5000000000000000"}, allocations.TotalAllocations)

	claimed, err := icoContract.GetTotalClaimsForAllVestings(transactionContext, MeliesFoundation)
	require.NoError(t, err)
	require.Equal(t, "100000000000000", claimed.TotalAmount)
	require.Equal(t, []string{"100000000000000"}, claimed.Amounts)

	_, err = icoContract.GetUserVestings(transactionContext, "bad")
	require.Error(t, err)
	require.Contains(t, err.Error(), "InvalidUserAddress")
}
