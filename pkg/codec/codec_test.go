package codec

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/featurestore/pkg/types"
)

func TestTypedPreservesKinds(t *testing.T) {
	when := time.Date(2026, 3, 1, 12, 30, 0, 500, time.UTC)
	values := []any{
		"hello", true, 30, int8(-3), int16(300), int32(-70000), int64(1 << 40),
		uint(7), uint8(255), uint16(65535), uint32(1 << 31), uint64(1 << 63),
		float32(1.5), 3.141592653589793, []byte{0, 1, 2}, types.ID("obj-1"), when,
	}

	for _, v := range values {
		data, err := Default.Marshal(v)
		require.NoError(t, err, "marshal %T", v)
		got, err := Default.Unmarshal(data)
		require.NoError(t, err, "unmarshal %T", v)
		assert.IsType(t, v, got)
		if tm, ok := v.(time.Time); ok {
			assert.True(t, tm.Equal(got.(time.Time)))
			continue
		}
		assert.Equal(t, v, got)
	}
}

func TestTypedEnvelopeFormat(t *testing.T) {
	data, err := Default.Marshal(30)
	require.NoError(t, err)
	assert.JSONEq(t, `{"t":"int","v":"30"}`, string(data))
}

func TestTypedRejectsUnsupported(t *testing.T) {
	_, err := Default.Marshal(nil)
	assert.True(t, errors.Is(err, types.ErrInvalidData))

	_, err = Default.Marshal(struct{}{})
	assert.True(t, errors.Is(err, types.ErrInvalidData))

	_, err = Default.Unmarshal([]byte(`{"t":"complex","v":"1"}`))
	assert.True(t, errors.Is(err, types.ErrInvalidData))

	_, err = Default.Unmarshal([]byte(`not json`))
	assert.True(t, errors.Is(err, types.ErrInvalidData))
}

func TestOr(t *testing.T) {
	assert.Equal(t, Default, Or(nil))
	custom := Typed{}
	assert.Equal(t, custom, Or(custom))
}
