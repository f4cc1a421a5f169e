package echonet

import (
	"bytes"
	"errors"
	"testing"
)

func TestObjectCodeComponents(t *testing.T) {
	code := NewObjectCode(0x00, 0x11, 0x01)
	if code != 0x001101 {
		t.Fatalf("NewObjectCode() = %s, want 0x001101", code)
	}
	if code.ClassGroup() != 0x00 || code.Class() != 0x11 || code.Instance() != 0x01 {
		t.Errorf("components = %02X %02X %02X", code.ClassGroup(), code.Class(), code.Instance())
	}
	if code.ClassCode() != 0x0011 {
		t.Errorf("ClassCode() = 0x%04X, want 0x0011", code.ClassCode())
	}
	if got := code.WithInstance(0); got != 0x001100 {
		t.Errorf("WithInstance(0) = %s, want 0x001100", got)
	}
	if !bytes.Equal(code.Bytes(), []byte{0x00, 0x11, 0x01}) {
		t.Errorf("Bytes() = % X", code.Bytes())
	}
	if code.String() != "0x001101" {
		t.Errorf("String() = %q", code.String())
	}
}

func TestObjectCodeValid(t *testing.T) {
	if !NodeProfileObject.Valid() {
		t.Error("NodeProfileObject should be valid")
	}
	if ObjectCode(0x1000000).Valid() {
		t.Error("25-bit code should be invalid")
	}
}

func TestObjectCodeFromBytes(t *testing.T) {
	code, err := ObjectCodeFromBytes([]byte{0x02, 0x91, 0x01})
	if err != nil {
		t.Fatalf("ObjectCodeFromBytes() error = %v", err)
	}
	if code != 0x029101 {
		t.Errorf("ObjectCodeFromBytes() = %s", code)
	}

	if _, err := ObjectCodeFromBytes([]byte{0x02, 0x91}); !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("short input error = %v, want ErrInvalidFrame", err)
	}
}

func TestParseObjectCode(t *testing.T) {
	tests := []struct {
		in      string
		want    ObjectCode
		wantErr bool
	}{
		{in: "0x002D01", want: 0x002D01},
		{in: "002d01", want: 0x002D01},
		{in: " 0x0EF001 ", want: NodeProfileObject},
		{in: "0x2D01", wantErr: true},
		{in: "0xZZZZZZ", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseObjectCode(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidObject) {
					t.Errorf("ParseObjectCode(%q) error = %v, want ErrInvalidObject", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseObjectCode(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseObjectCode(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}
