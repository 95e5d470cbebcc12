package mocks

import (
	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
)

type ClientIdentity struct {
	cid.ClientIdentity

	GetIDStub    func() (string, error)
	getIDReturn  string
	getIDReturnE error
}

func (fake *ClientIdentity) GetID() (string, error) {
	if fake.GetIDStub != nil {
		return fake.GetIDStub()
	}

	return fake.getIDReturn, fake.getIDReturnE
}

func (fake *ClientIdentity) GetIDReturns(id string, err error) {
	fake.getIDReturn = id
	fake.getIDReturnE = err
}
