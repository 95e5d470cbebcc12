/*
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"log"

	"github.com/Melies-Ai/Melies-SC-sub001/ico"
	"github.com/p2eengineering/kalp-sdk-public/kalpsdk"
)

func main() {
	contract := kalpsdk.Contract{IsPayableContract: false}
	contract.Logger = kalpsdk.NewLogger()
	icoChaincode, err := kalpsdk.NewChaincode(&ico.SmartContract{Contract: contract})
	if err != nil {
		log.Panicf("Error creating ico chaincode: %v", err)
	}

	if err := icoChaincode.Start(); err != nil {
		log.Panicf("Error starting ico chaincode: %v", err)
	}
}
