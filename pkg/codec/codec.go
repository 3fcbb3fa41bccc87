// Package codec provides the default value codec for persistent backends.
//
// Values are written as a small typed JSON envelope, {"t":"int","v":30}, so
// that every Go primitive kind reads back as exactly the kind that was
// written. Callers with richer payloads supply their own types.Codec.
package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// Type tags written in the envelope.
const (
	tagString  = "string"
	tagBool    = "bool"
	tagInt     = "int"
	tagInt8    = "int8"
	tagInt16   = "int16"
	tagInt32   = "int32"
	tagInt64   = "int64"
	tagUint    = "uint"
	tagUint8   = "uint8"
	tagUint16  = "uint16"
	tagUint32  = "uint32"
	tagUint64  = "uint64"
	tagFloat32 = "float32"
	tagFloat64 = "float64"
	tagBytes   = "bytes"
	tagID      = "id"
	tagTime    = "time"
)

type envelope struct {
	Type  string `json:"t"`
	Value string `json:"v"`
}

// Typed is the default types.Codec.
type Typed struct{}

// Default is the codec used when a Config carries none.
var Default types.Codec = Typed{}

// Or returns c, or Default when c is nil.
func Or(c types.Codec) types.Codec {
	if c == nil {
		return Default
	}
	return c
}

// Marshal encodes a primitive value. Nil and unsupported kinds fail with
// ErrInvalidData.
func (Typed) Marshal(value any) ([]byte, error) {
	var env envelope
	switch v := value.(type) {
	case nil:
		return nil, fmt.Errorf("marshal nil: %w", types.ErrInvalidData)
	case string:
		env = envelope{tagString, v}
	case bool:
		env = envelope{tagBool, strconv.FormatBool(v)}
	case int:
		env = envelope{tagInt, strconv.FormatInt(int64(v), 10)}
	case int8:
		env = envelope{tagInt8, strconv.FormatInt(int64(v), 10)}
	case int16:
		env = envelope{tagInt16, strconv.FormatInt(int64(v), 10)}
	case int32:
		env = envelope{tagInt32, strconv.FormatInt(int64(v), 10)}
	case int64:
		env = envelope{tagInt64, strconv.FormatInt(v, 10)}
	case uint:
		env = envelope{tagUint, strconv.FormatUint(uint64(v), 10)}
	case uint8:
		env = envelope{tagUint8, strconv.FormatUint(uint64(v), 10)}
	case uint16:
		env = envelope{tagUint16, strconv.FormatUint(uint64(v), 10)}
	case uint32:
		env = envelope{tagUint32, strconv.FormatUint(uint64(v), 10)}
	case uint64:
		env = envelope{tagUint64, strconv.FormatUint(v, 10)}
	case float32:
		env = envelope{tagFloat32, strconv.FormatUint(uint64(math.Float32bits(v)), 10)}
	case float64:
		env = envelope{tagFloat64, strconv.FormatUint(math.Float64bits(v), 10)}
	case []byte:
		env = envelope{tagBytes, base64.StdEncoding.EncodeToString(v)}
	case types.ID:
		env = envelope{tagID, string(v)}
	case time.Time:
		env = envelope{tagTime, v.Format(time.RFC3339Nano)}
	default:
		return nil, fmt.Errorf("marshal %T: %w", value, types.ErrInvalidData)
	}
	return json.Marshal(env)
}

// Unmarshal decodes a value written by Marshal.
func (Typed) Unmarshal(data []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w: %v", types.ErrInvalidData, err)
	}
	v, err := decode(env)
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w: %v", env.Type, types.ErrInvalidData, err)
	}
	return v, nil
}

func decode(env envelope) (any, error) {
	switch env.Type {
	case tagString:
		return env.Value, nil
	case tagBool:
		return strconv.ParseBool(env.Value)
	case tagInt:
		n, err := strconv.ParseInt(env.Value, 10, 0)
		return int(n), err
	case tagInt8:
		n, err := strconv.ParseInt(env.Value, 10, 8)
		return int8(n), err
	case tagInt16:
		n, err := strconv.ParseInt(env.Value, 10, 16)
		return int16(n), err
	case tagInt32:
		n, err := strconv.ParseInt(env.Value, 10, 32)
		return int32(n), err
	case tagInt64:
		return strconv.ParseInt(env.Value, 10, 64)
	case tagUint:
		n, err := strconv.ParseUint(env.Value, 10, 0)
		return uint(n), err
	case tagUint8:
		n, err := strconv.ParseUint(env.Value, 10, 8)
		return uint8(n), err
	case tagUint16:
		n, err := strconv.ParseUint(env.Value, 10, 16)
		return uint16(n), err
	case tagUint32:
		n, err := strconv.ParseUint(env.Value, 10, 32)
		return uint32(n), err
	case tagUint64:
		return strconv.ParseUint(env.Value, 10, 64)
	case tagFloat32:
		bits, err := strconv.ParseUint(env.Value, 10, 32)
		return math.Float32frombits(uint32(bits)), err
	case tagFloat64:
		bits, err := strconv.ParseUint(env.Value, 10, 64)
		return math.Float64frombits(bits), err
	case tagBytes:
		return base64.StdEncoding.DecodeString(env.Value)
	case tagID:
		return types.ID(env.Value), nil
	case tagTime:
		return time.Parse(time.RFC3339Nano, env.Value)
	default:
		return nil, fmt.Errorf("unknown type tag %q", env.Type)
	}
}
