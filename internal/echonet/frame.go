package echonet

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// ECHONET Lite header bytes.
const (
	// EHD1 identifies an ECHONET Lite frame.
	EHD1 byte = 0x10

	// EHD2 selects format 1 (specified message format).
	EHD2 byte = 0x81

	// frameHeaderSize covers EHD(2) + TID(2) + SEOJ(3) + DEOJ(3) + ESV(1).
	frameHeaderSize = 11

	// maxProperties is the largest OPC value.
	maxProperties = 255

	// maxEDTSize is the largest PDC value.
	maxEDTSize = 255
)

// Property is a single (EPC, EDT) pair. PDC is len(Data).
type Property struct {
	// Code is the property code (EPC).
	Code byte

	// Data is the property payload (EDT). Empty for read requests.
	Data []byte
}

// String renders the property as "0x80=30" for logs.
func (p Property) String() string {
	return fmt.Sprintf("0x%02X=%X", p.Code, p.Data)
}

// Frame is a decoded ECHONET Lite format 1 message.
type Frame struct {
	// TID correlates a response with its request.
	TID uint16

	// SEOJ is the source object.
	SEOJ ObjectCode

	// DEOJ is the destination object.
	DEOJ ObjectCode

	// ESV is the service code.
	ESV ESV

	// Properties is the OPC list, or the OPCSet list for SetGet codes.
	Properties []Property

	// GetProperties is the OPCGet list. Only used for SetGet codes.
	GetProperties []Property
}

// String renders a compact one-line description for logs.
func (f Frame) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tid=%d %s->%s %s", f.TID, f.SEOJ, f.DEOJ, f.ESV)
	for _, p := range f.Properties {
		b.WriteString(" ")
		b.WriteString(p.String())
	}
	if f.ESV.HasSetGetLists() {
		b.WriteString(" |")
		for _, p := range f.GetProperties {
			b.WriteString(" ")
			b.WriteString(p.String())
		}
	}
	return b.String()
}

// ParseFrame decodes a raw UDP payload into a Frame.
//
// The layout is:
//
//	Byte 0-1:  EHD (0x10 0x81)
//	Byte 2-3:  TID (big-endian)
//	Byte 4-6:  SEOJ
//	Byte 7-9:  DEOJ
//	Byte 10:   ESV
//	Byte 11:   OPC, followed by OPC x {EPC, PDC, EDT[PDC]}
//
// SetGet codes carry a second OPC block for the get list.
func ParseFrame(data []byte) (Frame, error) {
	if len(data) < frameHeaderSize+1 {
		return Frame{}, fmt.Errorf("%w: too short (%d bytes, need at least %d)",
			ErrInvalidFrame, len(data), frameHeaderSize+1)
	}
	if data[0] != EHD1 || data[1] != EHD2 {
		return Frame{}, fmt.Errorf("%w: unsupported header 0x%02X%02X", ErrInvalidFrame, data[0], data[1])
	}

	f := Frame{
		TID:  binary.BigEndian.Uint16(data[2:4]),
		SEOJ: NewObjectCode(data[4], data[5], data[6]),
		DEOJ: NewObjectCode(data[7], data[8], data[9]),
		ESV:  ESV(data[10]),
	}

	props, n, err := parseProperties(data[frameHeaderSize:])
	if err != nil {
		return Frame{}, err
	}
	f.Properties = props
	offset := frameHeaderSize + n

	if f.ESV.HasSetGetLists() {
		if offset >= len(data) {
			return Frame{}, fmt.Errorf("%w: missing OPCGet block", ErrInvalidFrame)
		}
		getProps, m, err := parseProperties(data[offset:])
		if err != nil {
			return Frame{}, err
		}
		f.GetProperties = getProps
		offset += m
	}

	if offset != len(data) {
		return Frame{}, fmt.Errorf("%w: %d trailing bytes", ErrInvalidFrame, len(data)-offset)
	}

	return f, nil
}

// parseProperties decodes one OPC block and returns the bytes consumed.
func parseProperties(data []byte) ([]Property, int, error) {
	if len(data) < 1 {
		return nil, 0, fmt.Errorf("%w: missing OPC", ErrInvalidFrame)
	}
	opc := int(data[0])
	props := make([]Property, 0, opc)
	i := 1
	for k := range opc {
		if i+2 > len(data) {
			return nil, 0, fmt.Errorf("%w: property %d truncated", ErrInvalidFrame, k)
		}
		epc := data[i]
		pdc := int(data[i+1])
		i += 2
		if i+pdc > len(data) {
			return nil, 0, fmt.Errorf("%w: property 0x%02X declares %d bytes, %d left",
				ErrInvalidFrame, epc, pdc, len(data)-i)
		}
		var edt []byte
		if pdc > 0 {
			edt = make([]byte, pdc)
			copy(edt, data[i:i+pdc])
		}
		props = append(props, Property{Code: epc, Data: edt})
		i += pdc
	}
	return props, i, nil
}

// Encode serialises the frame to its wire form.
func (f Frame) Encode() ([]byte, error) {
	size := frameHeaderSize + propertiesSize(f.Properties)
	if f.ESV.HasSetGetLists() {
		size += propertiesSize(f.GetProperties)
	}

	buf := make([]byte, frameHeaderSize, size)
	buf[0] = EHD1
	buf[1] = EHD2
	binary.BigEndian.PutUint16(buf[2:4], f.TID)
	copy(buf[4:7], f.SEOJ.Bytes())
	copy(buf[7:10], f.DEOJ.Bytes())
	buf[10] = byte(f.ESV)

	buf, err := appendProperties(buf, f.Properties)
	if err != nil {
		return nil, err
	}
	if f.ESV.HasSetGetLists() {
		buf, err = appendProperties(buf, f.GetProperties)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func propertiesSize(props []Property) int {
	n := 1
	for _, p := range props {
		n += 2 + len(p.Data)
	}
	return n
}

func appendProperties(buf []byte, props []Property) ([]byte, error) {
	if len(props) > maxProperties {
		return nil, fmt.Errorf("%w: %d properties exceeds %d", ErrEncodingFailed, len(props), maxProperties)
	}
	buf = append(buf, byte(len(props)))
	for _, p := range props {
		if len(p.Data) > maxEDTSize {
			return nil, fmt.Errorf("%w: property 0x%02X has %d bytes, max %d",
				ErrEncodingFailed, p.Code, len(p.Data), maxEDTSize)
		}
		buf = append(buf, p.Code, byte(len(p.Data)))
		buf = append(buf, p.Data...)
	}
	return buf, nil
}
