package tx

import (
	amino "github.com/tendermint/go-amino"
)

// cdc is the codec shared by every envelope and intended action payload.
// Payload types register themselves during init, the same way handlers
// declare their routes.
var cdc = amino.NewCodec()

func init() {
	cdc.RegisterInterface((*Msg)(nil), nil)
}

// RegisterMsg declares a concrete payload type under its operation name.
// Registration must happen during a program startup phase, before any
// marshaling is done. The operation name is part of the ledger contract and
// must never change for a deployed network.
func RegisterMsg(msg Msg, name string) {
	cdc.RegisterConcrete(msg, name, nil)
}

// MarshalJSON encodes any registered value in the tagged JSON form the
// ledger speaks.
func MarshalJSON(o interface{}) ([]byte, error) {
	return cdc.MarshalJSON(o)
}

// UnmarshalJSON decodes a tagged JSON document into a registered value.
func UnmarshalJSON(raw []byte, ptr interface{}) error {
	return cdc.UnmarshalJSON(raw, ptr)
}
