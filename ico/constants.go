package ico

type TokenAllocation int

const (
	meliesFoundation = "a4c8e799bd4ce9de64f31c7817ba1a2f4dc2c901"

	// The Foundation pool is fully assigned to the foundation wallet at
	// initialization; its TGE tranche (2%) is distributed at launch and
	// therefore recorded as already claimed.
	foundationPoolAllocation    = "5000000000000000"
	foundationPoolClaimedAmount = "100000000000000"

	claimInterval  = uint64(30 * 24 * 60 * 60)
	bpsDenominator = uint64(10000)
	secondsPerDay  = uint64(24 * 60 * 60)

	defaultSlippageBps = uint64(500)

	contractAddressRegex = `^klp-[a-fA-F0-9]+-cc$`
	hexAddressRegex      = `^[0-9a-fA-F]{40}$`

	// Currency symbols used for per-round treasury bookkeeping. Native
	// inflow is swapped to USDT on receipt, so only stables appear here.
	currencyUSDT = "USDT"
	currencyUSDC = "USDC"
	currencyFiat = "FIAT"

	// vestingID namespace for purchase-derived allocations.
	roundVestingPrefix = "round_"

	saleTokenKey      = "saletoken"
	usdtTokenKey      = "usdt_token"
	usdcTokenKey      = "usdc_token"
	nativeTokenKey    = "native_token"
	priceOracleKey    = "price_oracle"
	swapRouterKey     = "swap_router"
	selfAddressKey    = "self_address"
	tgeTimestampKey   = "tge_timestamp"
	slippageBpsKey    = "slippage_bps"
	saleStatusKey     = "sale_status"
	saleRoundCountKey = "saleround_count"

	nativeSymbol     = "KALP"
	accountingSymbol = currencyUSDT

	RoleAdmin = "admin"
)

const (
	Team TokenAllocation = iota
	Advisors
	Marketing
	Ecosystem
	Liquidity
	StakingRewards
	Foundation
	Airdrop
)

func (t TokenAllocation) String() string {
	return [...]string{
		"Team",
		"Advisors",
		"Marketing",
		"Ecosystem",
		"Liquidity",
		"StakingRewards",
		"Foundation",
		"Airdrop",
	}[t]
}

// Staking tiers, index 0-4. Tier 0 pays rewards into a separate bucket;
// higher tiers compound rewards into the staked amount.
var (
	stakingLockDays    = [...]uint64{0, 90, 180, 365, 365}
	stakingMultipliers = [...]string{"1", "1.3", "1.6", "2.2", "3"}
)

const defaultStakingDailyBudget = "624657534246"
