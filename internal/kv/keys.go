package kv

import (
	"bytes"
	"encoding/binary"

	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// Key kinds.
const (
	kindObject    byte = 'o'
	kindContainer byte = 'c'
	kindMetaclass byte = 'm'
	kindClass     byte = 'k'
	kindInstance  byte = 'i'
	kindSlot      byte = 'f'
	kindElement   byte = 'p'
)

const sep = 0x00

func idKey(kind byte, id types.ID) []byte {
	k := make([]byte, 0, 1+len(id))
	k = append(k, kind)
	return append(k, id...)
}

func classKey(class types.ClassDescriptor) []byte {
	return append([]byte{kindClass}, class.Key()...)
}

func instancePrefix(class types.ClassDescriptor) []byte {
	k := append([]byte{kindInstance}, class.Key()...)
	return append(k, sep)
}

func instanceKey(class types.ClassDescriptor, id types.ID) []byte {
	return append(instancePrefix(class), id...)
}

// instanceID extracts the object ID from an instance index key.
func instanceID(key []byte) types.ID {
	i := bytes.LastIndexByte(key, sep)
	return types.ID(key[i+1:])
}

func slotKey(key types.FeatureKey) []byte {
	k := make([]byte, 0, 2+len(key.ID)+len(key.Name))
	k = append(k, kindSlot)
	k = append(k, key.ID...)
	k = append(k, sep)
	return append(k, key.Name...)
}

func elementKey(key types.ManyFeatureKey) []byte {
	k := make([]byte, 0, 7+len(key.ID)+len(key.Name))
	k = append(k, kindElement)
	k = append(k, key.ID...)
	k = append(k, sep)
	k = append(k, key.Name...)
	k = append(k, sep)
	return binary.BigEndian.AppendUint32(k, uint32(key.Position))
}
