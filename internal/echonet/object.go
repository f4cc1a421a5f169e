package echonet

import (
	"fmt"
	"strconv"
	"strings"
)

// ObjectCode is a 24-bit ECHONET object identifier (EOJ):
// class group code, class code and instance code, one byte each.
type ObjectCode uint32

// Well-known object codes.
const (
	// NodeProfileObject is the general node profile, instance 1.
	NodeProfileObject ObjectCode = 0x0EF001

	// NodeProfileClass is the class code shared by all node profile instances.
	NodeProfileClass uint16 = 0x0EF0

	// objectCodeMask keeps the low 24 bits.
	objectCodeMask = 0xFFFFFF
)

// NewObjectCode builds an ObjectCode from its three components.
func NewObjectCode(group, class, instance byte) ObjectCode {
	return ObjectCode(uint32(group)<<16 | uint32(class)<<8 | uint32(instance))
}

// ObjectCodeFromBytes decodes a 3-byte big-endian EOJ.
func ObjectCodeFromBytes(b []byte) (ObjectCode, error) {
	if len(b) != 3 { //nolint:mnd // EOJ is always 3 bytes
		return 0, fmt.Errorf("%w: EOJ requires 3 bytes, got %d", ErrInvalidFrame, len(b))
	}
	return NewObjectCode(b[0], b[1], b[2]), nil
}

// ParseObjectCode parses "0x001101" or "001101" into an ObjectCode.
func ParseObjectCode(s string) (ObjectCode, error) {
	trimmed := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if len(trimmed) != 6 { //nolint:mnd // six hex digits
		return 0, fmt.Errorf("%w: %q", ErrInvalidObject, s)
	}
	v, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidObject, s, err)
	}
	return ObjectCode(v), nil
}

// ClassGroup returns the class group code (first byte).
func (o ObjectCode) ClassGroup() byte { return byte(o >> 16) }

// Class returns the class code (second byte).
func (o ObjectCode) Class() byte { return byte(o >> 8) }

// ClassCode returns the combined class group and class code.
func (o ObjectCode) ClassCode() uint16 { return uint16(o >> 8) }

// Instance returns the instance code (third byte). Zero addresses all instances.
func (o ObjectCode) Instance() byte { return byte(o) }

// WithInstance returns the same class with a different instance code.
func (o ObjectCode) WithInstance(instance byte) ObjectCode {
	return NewObjectCode(o.ClassGroup(), o.Class(), instance)
}

// Bytes returns the 3-byte wire form.
func (o ObjectCode) Bytes() []byte {
	return []byte{o.ClassGroup(), o.Class(), o.Instance()}
}

// Valid reports whether the code fits in 24 bits.
func (o ObjectCode) Valid() bool {
	return o&^objectCodeMask == 0
}

// String returns the code as "0x001101".
func (o ObjectCode) String() string {
	return fmt.Sprintf("0x%06x", uint32(o))
}
