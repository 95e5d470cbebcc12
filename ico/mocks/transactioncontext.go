// Package mocks provides hand-rolled fakes for the kalpsdk interfaces.
// Tests assign the stub fields they need; an unstubbed method falls
// through to the embedded nil interface and panics, which keeps
// accidental dependencies visible.
package mocks

import (
	"sync"

	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/p2eengineering/kalp-sdk-public/kalpsdk"
	"github.com/p2eengineering/kalp-sdk-public/response"
	"google.golang.org/protobuf/types/known/timestamppb"
)

type TransactionContext struct {
	kalpsdk.TransactionContextInterface

	mutex sync.Mutex

	GetStateStub            func(string) ([]byte, error)
	PutStateWithoutKYCStub  func(string, []byte) error
	DelStateWithoutKYCStub  func(string) error
	GetTxTimestampStub      func() (*timestamppb.Timestamp, error)
	GetChannelIDStub        func() string
	InvokeChaincodeStub     func(string, [][]byte, string) response.Response
	SetEventStub            func(string, []byte) error
	GetClientIdentityStub   func() cid.ClientIdentity
	invokeChaincodeArgs     []InvokeChaincodeArgs
	setEventArgs            []SetEventArgs
	getClientIdentityReturn cid.ClientIdentity
}

type InvokeChaincodeArgs struct {
	ChaincodeName string
	Args          [][]byte
	Channel       string
}

type SetEventArgs struct {
	Name    string
	Payload []byte
}

func (fake *TransactionContext) GetState(key string) ([]byte, error) {
	return fake.GetStateStub(key)
}

func (fake *TransactionContext) PutStateWithoutKYC(key string, value []byte) error {
	return fake.PutStateWithoutKYCStub(key, value)
}

func (fake *TransactionContext) DelStateWithoutKYC(key string) error {
	return fake.DelStateWithoutKYCStub(key)
}

func (fake *TransactionContext) GetTxTimestamp() (*timestamppb.Timestamp, error) {
	return fake.GetTxTimestampStub()
}

func (fake *TransactionContext) GetChannelID() string {
	return fake.GetChannelIDStub()
}

func (fake *TransactionContext) InvokeChaincode(chaincodeName string, args [][]byte, channel string) response.Response {
	fake.mutex.Lock()
	fake.invokeChaincodeArgs = append(fake.invokeChaincodeArgs, InvokeChaincodeArgs{
		ChaincodeName: chaincodeName,
		Args:          args,
		Channel:       channel,
	})
	fake.mutex.Unlock()

	return fake.InvokeChaincodeStub(chaincodeName, args, channel)
}

func (fake *TransactionContext) InvokeChaincodeCallCount() int {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()

	return len(fake.invokeChaincodeArgs)
}

func (fake *TransactionContext) InvokeChaincodeArgsForCall(i int) InvokeChaincodeArgs {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()

	return fake.invokeChaincodeArgs[i]
}

func (fake *TransactionContext) SetEvent(name string, payload []byte) error {
	fake.mutex.Lock()
	fake.setEventArgs = append(fake.setEventArgs, SetEventArgs{Name: name, Payload: payload})
	fake.mutex.Unlock()

	if fake.SetEventStub != nil {
		return fake.SetEventStub(name, payload)
	}

	return nil
}

func (fake *TransactionContext) SetEventCallCount() int {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()

	return len(fake.setEventArgs)
}

func (fake *TransactionContext) SetEventArgsForCall(i int) SetEventArgs {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()

	return fake.setEventArgs[i]
}

func (fake *TransactionContext) GetClientIdentity() cid.ClientIdentity {
	if fake.GetClientIdentityStub != nil {
		return fake.GetClientIdentityStub()
	}

	return fake.getClientIdentityReturn
}

func (fake *TransactionContext) GetClientIdentityReturns(clientIdentity cid.ClientIdentity) {
	fake.getClientIdentityReturn = clientIdentity
}
