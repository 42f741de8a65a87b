package db

import "fmt"

// asBytes converts a caller-supplied key or value into engine-ready bytes.
// Strings are copied by the conversion, so the resulting slice is owned by
// the operation and survives the hop to the worker lane. Byte slices are
// borrowed as-is; the caller must keep the backing array stable until the
// operation completes.
func asBytes(v any) ([]byte, bool) {
	switch x := v.(type) {
	case string:
		return []byte(x), true
	case []byte:
		return x, true
	default:
		return nil, false
	}
}

func argError(op, want string) error {
	return fmt.Errorf("%w: %s expects %s", ErrInvalidArgument, op, want)
}
