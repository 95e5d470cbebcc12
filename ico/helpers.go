package ico

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"net/http"
	"regexp"
	"strings"

	"github.com/p2eengineering/kalp-sdk-public/kalpsdk"
)

func Decimals() uint64 {
	return 8
}

// ConvertMelToBase scales a whole-token amount to 8-decimal base units.
func ConvertMelToBase(amount uint64) string {
	base := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(Decimals())), nil)
	return new(big.Int).Mul(new(big.Int).SetUint64(amount), base).String()
}

func baseUnitFactor() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(Decimals())), nil)
}

// GetUserId extracts the 40-hex account of the signer from the x509
// client identity CN field.
func GetUserId(ctx kalpsdk.TransactionContextInterface) (string, error) {
	b64ID, err := ctx.GetClientIdentity().GetID()
	if err != nil {
		return "", fmt.Errorf("failed to read client id: %v", err)
	}

	decodeID, err := base64.StdEncoding.DecodeString(b64ID)
	if err != nil {
		return "", fmt.Errorf("failed to base64 decode client id: %v", err)
	}

	completeID := string(decodeID)
	userID := completeID[(strings.Index(completeID, "x509::CN=") + 9):strings.Index(completeID, ",")]

	return userID, nil
}

func IsUserAddressValid(address string) (bool, error) {
	matched, err := regexp.MatchString(hexAddressRegex, address)
	if err != nil {
		return false, fmt.Errorf("failed to validate user address %s: %v", address, err)
	}

	return matched, nil
}

func IsContractAddressValid(address string) (bool, error) {
	matched, err := regexp.MatchString(contractAddressRegex, address)
	if err != nil {
		return false, fmt.Errorf("failed to validate contract address %s: %v", address, err)
	}

	return matched, nil
}

func IsSignerFoundation(ctx kalpsdk.TransactionContextInterface) (bool, error) {
	signer, err := GetUserId(ctx)
	if err != nil {
		return false, NewCustomError(http.StatusInternalServerError, "failed to get signer id", err)
	}

	return signer == meliesFoundation, nil
}

// HasRole reports whether the address carries the role. The foundation
// account implicitly holds every role.
func HasRole(ctx kalpsdk.TransactionContextInterface, role, address string) (bool, error) {
	if address == meliesFoundation {
		return true, nil
	}

	roleAsBytes, err := ctx.GetState(fmt.Sprintf("role_%s_%s", role, address))
	if err != nil {
		return false, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get role %s for %s", role, address), err)
	}

	return roleAsBytes != nil, nil
}

// RequireRole resolves the signer and fails unless it holds the role.
func RequireRole(ctx kalpsdk.TransactionContextInterface, role string) (string, error) {
	signer, err := GetUserId(ctx)
	if err != nil {
		return "", NewCustomError(http.StatusInternalServerError, "failed to get signer id", err)
	}

	hasRole, err := HasRole(ctx, role, signer)
	if err != nil {
		return "", err
	}
	if !hasRole {
		return "", NewCustomError(http.StatusForbidden, fmt.Sprintf("signer %s is not authorized for role %s", signer, role), ErrUnauthorized)
	}

	return signer, nil
}

func RequireFoundation(ctx kalpsdk.TransactionContextInterface) (string, error) {
	signer, err := GetUserId(ctx)
	if err != nil {
		return "", NewCustomError(http.StatusInternalServerError, "failed to get signer id", err)
	}
	if signer != meliesFoundation {
		return "", NewCustomError(http.StatusForbidden, fmt.Sprintf("signer %s is not the foundation account", signer), ErrUnauthorized)
	}

	return signer, nil
}

func GetTransactionTimestamp(ctx kalpsdk.TransactionContextInterface) (uint64, error) {
	timestamp, err := ctx.GetTxTimestamp()
	if err != nil {
		return 0, NewCustomError(http.StatusInternalServerError, "failed to get transaction timestamp", err)
	}

	return uint64(timestamp.Seconds), nil
}

// parseAmount parses a base-unit amount string, rejecting malformed and
// negative values.
func parseAmount(entity, value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok || amount.Sign() < 0 {
		return nil, NewCustomError(http.StatusBadRequest, fmt.Sprintf("invalid amount for %s", entity), ErrInvalidAmount(entity, value))
	}

	return amount, nil
}

// parsePositiveAmount additionally rejects zero.
func parsePositiveAmount(entity, value string) (*big.Int, error) {
	amount, err := parseAmount(entity, value)
	if err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return nil, NewCustomError(http.StatusBadRequest, fmt.Sprintf("amount for %s cannot be zero", entity), ErrCannotBeZero)
	}

	return amount, nil
}

func getContractAddress(ctx kalpsdk.TransactionContextInterface, key, label string) (string, error) {
	addressAsBytes, err := ctx.GetState(key)
	if err != nil {
		return "", NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get %s", label), err)
	}
	if addressAsBytes == nil {
		return "", NewCustomError(http.StatusNotFound, fmt.Sprintf("%s with Key %s does not exist", label, key), nil)
	}

	return string(addressAsBytes), nil
}

func setContractAddress(ctx kalpsdk.TransactionContextInterface, key, label, address string) error {
	isValid, err := IsContractAddressValid(address)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to validate %s", label), err)
	}
	if !isValid {
		return NewCustomError(http.StatusBadRequest, fmt.Sprintf("invalid %s", label), ErrInvalidContractAddress(address))
	}

	if err = ctx.PutStateWithoutKYC(key, []byte(address)); err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to set %s", label), err)
	}

	return nil
}

// setContractAddressOnce rejects overwriting an installed address.
func setContractAddressOnce(ctx kalpsdk.TransactionContextInterface, key, label, address string) error {
	existingAsBytes, err := ctx.GetState(key)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get %s", label), err)
	}
	if existingAsBytes != nil {
		return NewCustomError(http.StatusConflict, fmt.Sprintf("%s is already set to %s", label, string(existingAsBytes)), ErrContractAddressAlreadySet)
	}

	return setContractAddress(ctx, key, label, address)
}
