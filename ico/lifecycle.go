package ico

import (
	"fmt"
	"math/big"
	"net/http"

	"github.com/p2eengineering/kalp-sdk-public/kalpsdk"
)

// EndIco closes the sale permanently. Claims unlock only if every round
// reached its soft cap; the decision is made once and never revisited.
func (s *SmartContract) EndIco(ctx kalpsdk.TransactionContextInterface) error {
	if _, err := RequireRole(ctx, RoleAdmin); err != nil {
		return err
	}

	status, err := GetSaleStatus(ctx)
	if err != nil {
		return err
	}
	if status.IcoEnded {
		return NewCustomError(http.StatusBadRequest, "sale has already ended", ErrIcoAlreadyEnded)
	}

	roundCount, err := GetSaleRoundCount(ctx)
	if err != nil {
		return err
	}

	allSoftCapsMet := true
	for roundIndex := uint64(0); roundIndex < roundCount; roundIndex++ {
		round, err := GetSaleRound(ctx, roundIndex)
		if err != nil {
			return err
		}

		softCap, ok := new(big.Int).SetString(round.SoftCap, 10)
		if !ok {
			return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse soft cap of round %d", roundIndex), nil)
		}
		totalRaised, ok := new(big.Int).SetString(round.TotalRaised, 10)
		if !ok {
			return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse total raised of round %d", roundIndex), nil)
		}

		if totalRaised.Cmp(softCap) < 0 {
			allSoftCapsMet = false
			break
		}
	}

	status.IcoEnded = true
	status.ClaimEnabled = allSoftCapsMet
	if err = SetSaleStatus(ctx, status); err != nil {
		return err
	}

	now, err := GetTransactionTimestamp(ctx)
	if err != nil {
		return err
	}

	return EmitIcoEnded(ctx, IcoEndedEvent{
		Timestamp:    now,
		ClaimEnabled: allSoftCapsMet,
	})
}

func (s *SmartContract) GetSaleStatus(ctx kalpsdk.TransactionContextInterface) (*SaleStatus, error) {
	return GetSaleStatus(ctx)
}

// requireSaleEnded gates treasury withdrawals on the closed sale.
func requireSaleEnded(ctx kalpsdk.TransactionContextInterface) error {
	status, err := GetSaleStatus(ctx)
	if err != nil {
		return err
	}
	if !status.IcoEnded {
		return NewCustomError(http.StatusBadRequest, "sale has not ended yet", ErrIcoNotEnded)
	}

	return nil
}

// requireClaimsOpen gates sale round claims on the sale outcome.
func requireClaimsOpen(ctx kalpsdk.TransactionContextInterface) error {
	if err := requireSaleEnded(ctx); err != nil {
		return err
	}

	status, err := GetSaleStatus(ctx)
	if err != nil {
		return err
	}
	if !status.ClaimEnabled {
		return NewCustomError(http.StatusBadRequest, "claims are not enabled", ErrClaimNotEnabled)
	}

	return nil
}
