package ico

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/p2eengineering/kalp-sdk-public/kalpsdk"
)

// invokeContract calls another chaincode on the contract's channel and
// returns its payload. A non-OK status aborts the transaction.
func invokeContract(ctx kalpsdk.TransactionContextInterface, contractAddress string, args [][]byte) ([]byte, error) {
	output := ctx.InvokeChaincode(contractAddress, args, ctx.GetChannelID())
	if output.Status != http.StatusOK {
		return nil, NewCustomError(http.StatusBadGateway, fmt.Sprintf("contract %s rejected %s: %s", contractAddress, string(args[0]), output.Message), nil)
	}

	return output.Payload, nil
}

func invokeBoolOp(ctx kalpsdk.TransactionContextInterface, contractAddress, operation string, args [][]byte) error {
	callArgs := append([][]byte{[]byte(operation)}, args...)
	payload, err := invokeContract(ctx, contractAddress, callArgs)
	if err != nil {
		return err
	}

	confirmed, err := strconv.ParseBool(string(payload))
	if err != nil || !confirmed {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("contract %s did not confirm %s", contractAddress, operation), err)
	}

	return nil
}

func invokeAmountOp(ctx kalpsdk.TransactionContextInterface, contractAddress, operation string, args [][]byte) (*big.Int, error) {
	callArgs := append([][]byte{[]byte(operation)}, args...)
	payload, err := invokeContract(ctx, contractAddress, callArgs)
	if err != nil {
		return nil, err
	}

	amount, ok := new(big.Int).SetString(string(payload), 10)
	if !ok || amount.Sign() < 0 {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("contract %s returned malformed amount for %s", contractAddress, operation), nil)
	}

	return amount, nil
}

func transferTokens(ctx kalpsdk.TransactionContextInterface, tokenAddress, recipient string, amount *big.Int) error {
	return invokeBoolOp(ctx, tokenAddress, "Transfer", [][]byte{[]byte(recipient), []byte(amount.String())})
}

func transferTokensFrom(ctx kalpsdk.TransactionContextInterface, tokenAddress, sender, recipient string, amount *big.Int) error {
	return invokeBoolOp(ctx, tokenAddress, "TransferFrom", [][]byte{[]byte(sender), []byte(recipient), []byte(amount.String())})
}

func approveTokens(ctx kalpsdk.TransactionContextInterface, tokenAddress, spender string, amount *big.Int) error {
	return invokeBoolOp(ctx, tokenAddress, "Approve", [][]byte{[]byte(spender), []byte(amount.String())})
}

func tokenBalanceOf(ctx kalpsdk.TransactionContextInterface, tokenAddress, account string) (*big.Int, error) {
	return invokeAmountOp(ctx, tokenAddress, "BalanceOf", [][]byte{[]byte(account)})
}

// oraclePriceScale is the fixed-point scale oracle quotes are
// expressed in.
func oraclePriceScale() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(8), nil)
}

// fetchOraclePrice returns how many accounting base units one whole unit
// of baseSymbol is worth, scaled by 10^8.
func fetchOraclePrice(ctx kalpsdk.TransactionContextInterface, oracleAddress, baseSymbol, quoteSymbol string) (*big.Int, error) {
	price, err := invokeAmountOp(ctx, oracleAddress, "GetPrice", [][]byte{[]byte(baseSymbol), []byte(quoteSymbol)})
	if err != nil {
		return nil, err
	}
	if price.Sign() == 0 {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("oracle %s returned a zero price for %s/%s", oracleAddress, baseSymbol, quoteSymbol), nil)
	}

	return price, nil
}

func swapExactTokensForTokens(ctx kalpsdk.TransactionContextInterface, routerAddress string, amountIn, minAmountOut *big.Int, path []string) (*big.Int, error) {
	pathAsBytes, err := json.Marshal(path)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, "failed to marshal swap path", err)
	}

	return invokeAmountOp(ctx, routerAddress, "SwapExactTokensForTokens", [][]byte{
		[]byte(amountIn.String()),
		[]byte(minAmountOut.String()),
		pathAsBytes,
	})
}
