package codec

import "fmt"

// EncodeError reports a stroke that cannot be put on the wire.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode stroke: %v", e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// DecodeError reports a blob that is not a valid encoded stroke.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode stroke: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
