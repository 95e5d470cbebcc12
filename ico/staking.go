package ico

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/p2eengineering/kalp-sdk-public/kalpsdk"
	"github.com/shopspring/decimal"
)

// Reward arithmetic runs on decimals with 30-digit division so that
// daily compounding does not lose sub-unit remainders; payouts truncate
// to whole base units on exit.
const stakingDivisionPrecision = int32(30)

func initializeStaking(ctx kalpsdk.TransactionContextInterface, tgeTimestamp uint64) error {
	if err := ctx.PutStateWithoutKYC("staking_reward_budget", []byte(defaultStakingDailyBudget)); err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to set staking reward budget", err)
	}
	if err := ctx.PutStateWithoutKYC("staking_total_ponderated", []byte("0")); err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to set total ponderated stake", err)
	}
	if err := ctx.PutStateWithoutKYC("staking_last_accrual", []byte(strconv.FormatUint(tgeTimestamp, 10))); err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to set last accrual timestamp", err)
	}

	return nil
}

func parseStakeDecimal(entity, value string) (decimal.Decimal, error) {
	parsed, err := decimal.NewFromString(value)
	if err != nil || parsed.Sign() < 0 {
		return decimal.Zero, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse %s", entity), err)
	}

	return parsed, nil
}

func stakePonderated(stake *Stake) (decimal.Decimal, error) {
	amount, err := parseStakeDecimal("stake amount", stake.Amount)
	if err != nil {
		return decimal.Zero, err
	}
	multiplier, err := parseStakeDecimal("stake multiplier", stake.Multiplier)
	if err != nil {
		return decimal.Zero, err
	}

	return amount.Mul(multiplier), nil
}

func getStakers(ctx kalpsdk.TransactionContextInterface) ([]string, error) {
	stakersAsBytes, err := ctx.GetState("stakers")
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, "failed to get stakers", err)
	}
	if stakersAsBytes == nil {
		return []string{}, nil
	}

	var stakers []string
	if err = json.Unmarshal(stakersAsBytes, &stakers); err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, "failed to unmarshal stakers", err)
	}

	return stakers, nil
}

func setStakers(ctx kalpsdk.TransactionContextInterface, stakers []string) error {
	stakersAsBytes, err := json.Marshal(stakers)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to marshal stakers", err)
	}

	if err = ctx.PutStateWithoutKYC("stakers", stakersAsBytes); err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to set stakers", err)
	}

	return nil
}

func getTotalPonderated(ctx kalpsdk.TransactionContextInterface) (decimal.Decimal, error) {
	ponderatedAsBytes, err := ctx.GetState("staking_total_ponderated")
	if err != nil {
		return decimal.Zero, NewCustomError(http.StatusInternalServerError, "failed to get total ponderated stake", err)
	}
	if ponderatedAsBytes == nil {
		return decimal.Zero, nil
	}

	return parseStakeDecimal("total ponderated stake", string(ponderatedAsBytes))
}

func setTotalPonderated(ctx kalpsdk.TransactionContextInterface, totalPonderated decimal.Decimal) error {
	if err := ctx.PutStateWithoutKYC("staking_total_ponderated", []byte(totalPonderated.String())); err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to set total ponderated stake", err)
	}

	return nil
}

func getRewardBudget(ctx kalpsdk.TransactionContextInterface) (decimal.Decimal, error) {
	budgetAsBytes, err := ctx.GetState("staking_reward_budget")
	if err != nil {
		return decimal.Zero, NewCustomError(http.StatusInternalServerError, "failed to get staking reward budget", err)
	}
	if budgetAsBytes == nil {
		return parseStakeDecimal("staking reward budget", defaultStakingDailyBudget)
	}

	return parseStakeDecimal("staking reward budget", string(budgetAsBytes))
}

func getLastAccrual(ctx kalpsdk.TransactionContextInterface) (uint64, error) {
	lastAccrualAsBytes, err := ctx.GetState("staking_last_accrual")
	if err != nil {
		return 0, NewCustomError(http.StatusInternalServerError, "failed to get last accrual timestamp", err)
	}
	if lastAccrualAsBytes == nil {
		return 0, NewCustomError(http.StatusNotFound, "last accrual timestamp with Key staking_last_accrual does not exist", nil)
	}

	lastAccrual, err := strconv.ParseUint(string(lastAccrualAsBytes), 10, 64)
	if err != nil {
		return 0, NewCustomError(http.StatusInternalServerError, "failed to parse last accrual timestamp", err)
	}

	return lastAccrual, nil
}

func setLastAccrual(ctx kalpsdk.TransactionContextInterface, lastAccrual uint64) error {
	if err := ctx.PutStateWithoutKYC("staking_last_accrual", []byte(strconv.FormatUint(lastAccrual, 10))); err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to set last accrual timestamp", err)
	}

	return nil
}

// Stake locks sale tokens under one of the reward tiers. Tier 0 is
// unlocked and pays simple rewards; tiers 1-4 lock the position and
// compound rewards into the staked amount.
func (s *SmartContract) Stake(ctx kalpsdk.TransactionContextInterface, amount string, tier uint64) error {
	signer, err := GetUserId(ctx)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to get signer id", err)
	}

	stakeAmount, err := parsePositiveAmount("stake", amount)
	if err != nil {
		return err
	}

	if tier >= uint64(len(stakingLockDays)) {
		return NewCustomError(http.StatusBadRequest, fmt.Sprintf("tier %d is not defined", tier), ErrInvalidStakingTier(tier))
	}

	saleToken, err := getContractAddress(ctx, saleTokenKey, "sale token address")
	if err != nil {
		return err
	}
	selfAddress, err := getContractAddress(ctx, selfAddressKey, "self address")
	if err != nil {
		return err
	}

	if err = transferTokensFrom(ctx, saleToken, signer, selfAddress, stakeAmount); err != nil {
		return err
	}

	now, err := GetTransactionTimestamp(ctx)
	if err != nil {
		return err
	}

	stakes, err := GetStakes(ctx, signer)
	if err != nil {
		return err
	}

	stake := &Stake{
		Amount:         stakeAmount.String(),
		Rewards:        "0",
		Multiplier:     stakingMultipliers[tier],
		Tier:           tier,
		LockDays:       stakingLockDays[tier],
		StartTimestamp: now,
	}
	stakes = append(stakes, stake)
	if err = SetStakes(ctx, signer, stakes); err != nil {
		return err
	}

	if len(stakes) == 1 {
		stakers, err := getStakers(ctx)
		if err != nil {
			return err
		}
		if err = setStakers(ctx, append(stakers, signer)); err != nil {
			return err
		}
	}

	totalPonderated, err := getTotalPonderated(ctx)
	if err != nil {
		return err
	}
	ponderated, err := stakePonderated(stake)
	if err != nil {
		return err
	}
	if err = setTotalPonderated(ctx, totalPonderated.Add(ponderated)); err != nil {
		return err
	}

	return EmitStaked(ctx, StakedEvent{
		Owner:          signer,
		StakeIndex:     uint64(len(stakes) - 1),
		Amount:         stake.Amount,
		Tier:           tier,
		StartTimestamp: now,
	})
}

// AccrueStakingRewards advances the reward clock by exactly one day.
// Anyone may call it; a call before the next day boundary fails. Each
// stake earns amount * budget * multiplier / totalPonderated for the
// day.
func (s *SmartContract) AccrueStakingRewards(ctx kalpsdk.TransactionContextInterface) error {
	lastAccrual, err := getLastAccrual(ctx)
	if err != nil {
		return err
	}

	now, err := GetTransactionTimestamp(ctx)
	if err != nil {
		return err
	}

	accrualDay := lastAccrual + secondsPerDay
	if now < accrualDay {
		return NewCustomError(http.StatusBadRequest, fmt.Sprintf("next accrual is due at %d", accrualDay), ErrAccrualNotDue)
	}

	totalPonderated, err := getTotalPonderated(ctx)
	if err != nil {
		return err
	}

	if totalPonderated.IsZero() {
		if err = setLastAccrual(ctx, accrualDay); err != nil {
			return err
		}

		return EmitRewardsAccrued(ctx, RewardsAccruedEvent{
			AccruedDay:      accrualDay,
			TotalPonderated: totalPonderated.String(),
		})
	}

	budget, err := getRewardBudget(ctx)
	if err != nil {
		return err
	}

	stakers, err := getStakers(ctx)
	if err != nil {
		return err
	}

	newTotalPonderated := decimal.Zero
	for _, owner := range stakers {
		stakes, err := GetStakes(ctx, owner)
		if err != nil {
			return err
		}

		for _, stake := range stakes {
			amount, err := parseStakeDecimal("stake amount", stake.Amount)
			if err != nil {
				return err
			}
			multiplier, err := parseStakeDecimal("stake multiplier", stake.Multiplier)
			if err != nil {
				return err
			}

			reward := amount.Mul(budget).Mul(multiplier).DivRound(totalPonderated, stakingDivisionPrecision)

			if stake.Tier == 0 {
				rewards, err := parseStakeDecimal("stake rewards", stake.Rewards)
				if err != nil {
					return err
				}
				stake.Rewards = rewards.Add(reward).String()
			} else {
				amount = amount.Add(reward)
				stake.Amount = amount.String()
			}

			newTotalPonderated = newTotalPonderated.Add(amount.Mul(multiplier))
		}

		if err = SetStakes(ctx, owner, stakes); err != nil {
			return err
		}
	}

	if err = setTotalPonderated(ctx, newTotalPonderated); err != nil {
		return err
	}
	if err = setLastAccrual(ctx, accrualDay); err != nil {
		return err
	}

	return EmitRewardsAccrued(ctx, RewardsAccruedEvent{
		AccruedDay:      accrualDay,
		TotalPonderated: newTotalPonderated.String(),
	})
}

// Unstake closes one stake after its lock expires and pays out the
// staked amount plus rewards, truncated to whole base units.
func (s *SmartContract) Unstake(ctx kalpsdk.TransactionContextInterface, stakeIndex uint64) error {
	signer, err := GetUserId(ctx)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to get signer id", err)
	}

	stakes, err := GetStakes(ctx, signer)
	if err != nil {
		return err
	}
	if stakeIndex >= uint64(len(stakes)) {
		return NewCustomError(http.StatusNotFound, fmt.Sprintf("stake %d does not exist for %s", stakeIndex, signer), ErrStakeNotFound(signer, stakeIndex))
	}

	stake := stakes[stakeIndex]

	now, err := GetTransactionTimestamp(ctx)
	if err != nil {
		return err
	}
	if now < stake.StartTimestamp+stake.LockDays*secondsPerDay {
		return NewCustomError(http.StatusBadRequest, fmt.Sprintf("stake %d is locked until %d", stakeIndex, stake.StartTimestamp+stake.LockDays*secondsPerDay), ErrStakeLocked)
	}

	amount, err := parseStakeDecimal("stake amount", stake.Amount)
	if err != nil {
		return err
	}
	rewards, err := parseStakeDecimal("stake rewards", stake.Rewards)
	if err != nil {
		return err
	}
	payout := amount.Add(rewards).Floor().BigInt()

	totalPonderated, err := getTotalPonderated(ctx)
	if err != nil {
		return err
	}
	ponderated, err := stakePonderated(stake)
	if err != nil {
		return err
	}
	totalPonderated = totalPonderated.Sub(ponderated)
	if totalPonderated.Sign() < 0 {
		totalPonderated = decimal.Zero
	}
	if err = setTotalPonderated(ctx, totalPonderated); err != nil {
		return err
	}

	stakes[stakeIndex] = stakes[len(stakes)-1]
	stakes = stakes[:len(stakes)-1]
	if err = SetStakes(ctx, signer, stakes); err != nil {
		return err
	}

	if len(stakes) == 0 {
		stakers, err := getStakers(ctx)
		if err != nil {
			return err
		}
		for i, owner := range stakers {
			if owner == signer {
				stakers[i] = stakers[len(stakers)-1]
				stakers = stakers[:len(stakers)-1]
				break
			}
		}
		if err = setStakers(ctx, stakers); err != nil {
			return err
		}
	}

	saleToken, err := getContractAddress(ctx, saleTokenKey, "sale token address")
	if err != nil {
		return err
	}
	if err = transferTokens(ctx, saleToken, signer, payout); err != nil {
		return err
	}

	return EmitUnstaked(ctx, UnstakedEvent{
		Owner:      signer,
		StakeIndex: stakeIndex,
		Payout:     payout.String(),
	})
}

func (s *SmartContract) SetStakingRewardBudget(ctx kalpsdk.TransactionContextInterface, budget string) error {
	if _, err := RequireRole(ctx, RoleAdmin); err != nil {
		return err
	}

	parsed, err := decimal.NewFromString(budget)
	if err != nil || parsed.Sign() < 0 {
		return NewCustomError(http.StatusBadRequest, "invalid staking reward budget", ErrInvalidAmount("staking reward budget", budget))
	}

	if err = ctx.PutStateWithoutKYC("staking_reward_budget", []byte(parsed.String())); err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to set staking reward budget", err)
	}

	return emitEvent(ctx, "StakingRewardBudgetSet", map[string]string{"budget": parsed.String()})
}

func (s *SmartContract) GetStakes(ctx kalpsdk.TransactionContextInterface, owner string) ([]*Stake, error) {
	isValid, err := IsUserAddressValid(owner)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, "failed to validate owner address", err)
	}
	if !isValid {
		return nil, NewCustomError(http.StatusBadRequest, "invalid owner address", ErrInvalidUserAddress(owner))
	}

	return GetStakes(ctx, owner)
}

func (s *SmartContract) GetTotalPonderatedStake(ctx kalpsdk.TransactionContextInterface) (string, error) {
	totalPonderated, err := getTotalPonderated(ctx)
	if err != nil {
		return "", err
	}

	return totalPonderated.String(), nil
}

func (s *SmartContract) GetStakingRewardBudget(ctx kalpsdk.TransactionContextInterface) (string, error) {
	budget, err := getRewardBudget(ctx)
	if err != nil {
		return "", err
	}

	return budget.String(), nil
}
