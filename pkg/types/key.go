package types

import (
	"cmp"
	"fmt"
	"math"
)

// MaxPosition is the largest element position a multi-valued slot accepts.
// Every family stores positions in 32 bits.
const MaxPosition = math.MaxInt32

// FeatureKey addresses a single- or multi-valued slot: the feature Name on
// the object ID. Keys order lexicographically on (ID, Name) so sorted
// substrates can range-scan every slot of one object.
type FeatureKey struct {
	ID   ID
	Name string
}

// KeyOf builds a FeatureKey.
func KeyOf(id ID, name string) FeatureKey {
	return FeatureKey{ID: id, Name: name}
}

// WithPosition returns the ManyFeatureKey for element position of this slot.
// Returns ErrIndexOutOfRange for a position outside [0, MaxPosition].
func (k FeatureKey) WithPosition(position int) (ManyFeatureKey, error) {
	mk := ManyFeatureKey{FeatureKey: k, Position: position}
	if err := mk.CheckPosition(); err != nil {
		return ManyFeatureKey{}, err
	}
	return mk, nil
}

// At is WithPosition for positions known to be valid. It panics on a
// position outside [0, MaxPosition].
func (k FeatureKey) At(position int) ManyFeatureKey {
	mk, err := k.WithPosition(position)
	if err != nil {
		panic(err)
	}
	return mk
}

// Compare orders keys by ID, then by feature name.
func (k FeatureKey) Compare(o FeatureKey) int {
	if c := cmp.Compare(k.ID, o.ID); c != 0 {
		return c
	}
	return cmp.Compare(k.Name, o.Name)
}

func (k FeatureKey) String() string {
	return string(k.ID) + "#" + k.Name
}

// ManyFeatureKey addresses one element of an ordered multi-valued slot.
type ManyFeatureKey struct {
	FeatureKey
	Position int
}

// CheckPosition returns ErrIndexOutOfRange unless Position lies in
// [0, MaxPosition]. Keys built as struct literals skip WithPosition, so
// every family calls this before touching a slot.
func (k ManyFeatureKey) CheckPosition() error {
	if k.Position < 0 || k.Position > MaxPosition {
		return fmt.Errorf("%s: %w", k, ErrIndexOutOfRange)
	}
	return nil
}

// WithoutPosition projects the key back onto its slot.
func (k ManyFeatureKey) WithoutPosition() FeatureKey {
	return k.FeatureKey
}

// Compare extends the FeatureKey ordering by position.
func (k ManyFeatureKey) Compare(o ManyFeatureKey) int {
	if c := k.FeatureKey.Compare(o.FeatureKey); c != 0 {
		return c
	}
	return cmp.Compare(k.Position, o.Position)
}

func (k ManyFeatureKey) String() string {
	return fmt.Sprintf("%s[%d]", k.FeatureKey, k.Position)
}
