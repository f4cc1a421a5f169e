package echonet

import (
	"slices"

	"github.com/google/uuid"
)

// Property codes shared by all device objects and the node profile.
const (
	EPCOperatingStatus          byte = 0x80
	EPCVersion                  byte = 0x82
	EPCIdentificationNumber     byte = 0x83
	EPCManufacturerCode         byte = 0x8A
	EPCStatusAnnouncementMap    byte = 0x9D
	EPCSetPropertyMap           byte = 0x9E
	EPCGetPropertyMap           byte = 0x9F
	EPCInstanceCount            byte = 0xD3
	EPCClassCount               byte = 0xD4
	EPCInstanceListNotification byte = 0xD5
	EPCInstanceList             byte = 0xD6
	EPCClassList                byte = 0xD7
)

// Operating status values (EPC 0x80).
const (
	StatusOn  byte = 0x30
	StatusOff byte = 0x31
)

const (
	// experimentalManufacturer is used when no manufacturer code is configured.
	experimentalManufacturer uint32 = 0xFFFFFF

	// maxListedInstances is the most instances one 0xD5/0xD6 payload can carry.
	maxListedInstances = 84

	// maxListedClasses is the most classes one 0xD7 payload can carry.
	maxListedClasses = 8

	// idNumberPrefix marks a manufacturer-specific identification number.
	idNumberPrefix byte = 0xFE

	idUniqueSize = 13
)

// Appendix version 1.13, message format 1.
var profileVersion = []byte{0x01, 0x0D, 0x01, 0x00}

var profileGetMap = []byte{
	EPCOperatingStatus, EPCVersion, EPCIdentificationNumber, EPCManufacturerCode,
	EPCStatusAnnouncementMap, EPCSetPropertyMap, EPCGetPropertyMap,
	EPCInstanceCount, EPCClassCount, EPCInstanceListNotification,
	EPCInstanceList, EPCClassList,
}

// nodeProfile answers reads on the node profile object 0x0EF001.
// It is read-only; every write is rejected.
type nodeProfile struct {
	manufacturer [3]byte
	unique       [idUniqueSize]byte
	devices      func() []ObjectCode
}

func newNodeProfile(cfg NodeConfig, devices func() []ObjectCode) *nodeProfile {
	code := cfg.ManufacturerCode
	if code == 0 {
		code = experimentalManufacturer
	}

	id := uuid.New()
	if cfg.NodeID != "" {
		id = uuid.NewSHA1(uuid.NameSpaceOID, []byte("echonet-lite:"+cfg.NodeID))
	}

	p := &nodeProfile{
		manufacturer: [3]byte{byte(code >> 16), byte(code >> 8), byte(code)},
		devices:      devices,
	}
	copy(p.unique[:], id[:idUniqueSize])
	return p
}

// HandleProperty implements RequestHandler.
func (p *nodeProfile) HandleProperty(deoj ObjectCode, esv ESV, prop Property) (Property, bool) {
	if deoj != NodeProfileObject || !esv.IsRead() {
		return prop, false
	}

	var data []byte
	switch prop.Code {
	case EPCOperatingStatus:
		data = []byte{StatusOn}
	case EPCVersion:
		data = slices.Clone(profileVersion)
	case EPCIdentificationNumber:
		data = p.identificationNumber()
	case EPCManufacturerCode:
		data = slices.Clone(p.manufacturer[:])
	case EPCStatusAnnouncementMap:
		data = EncodePropertyMap([]byte{EPCInstanceListNotification})
	case EPCSetPropertyMap:
		data = EncodePropertyMap(nil)
	case EPCGetPropertyMap:
		data = EncodePropertyMap(profileGetMap)
	case EPCInstanceCount:
		n := len(p.devices())
		data = []byte{byte(n >> 16), byte(n >> 8), byte(n)}
	case EPCClassCount:
		n := len(p.classes()) + 1 // the node profile counts itself
		data = []byte{byte(n >> 8), byte(n)}
	case EPCInstanceListNotification, EPCInstanceList:
		data = p.instanceList()
	case EPCClassList:
		data = p.classList()
	default:
		return prop, false
	}
	return Property{Code: prop.Code, Data: data}, true
}

func (p *nodeProfile) identificationNumber() []byte {
	data := make([]byte, 0, 1+len(p.manufacturer)+idUniqueSize)
	data = append(data, idNumberPrefix)
	data = append(data, p.manufacturer[:]...)
	return append(data, p.unique[:]...)
}

func (p *nodeProfile) instanceList() []byte {
	devices := p.devices()
	if len(devices) > maxListedInstances {
		devices = devices[:maxListedInstances]
	}
	data := make([]byte, 0, 1+3*len(devices))
	data = append(data, byte(len(devices)))
	for _, code := range devices {
		data = append(data, code.Bytes()...)
	}
	return data
}

func (p *nodeProfile) classList() []byte {
	classes := p.classes()
	if len(classes) > maxListedClasses {
		classes = classes[:maxListedClasses]
	}
	data := make([]byte, 0, 1+2*len(classes))
	data = append(data, byte(len(classes)))
	for _, class := range classes {
		data = append(data, byte(class>>8), byte(class))
	}
	return data
}

// classes returns the distinct device classes, in ascending order.
func (p *nodeProfile) classes() []uint16 {
	var classes []uint16
	for _, code := range p.devices() {
		class := code.ClassCode()
		if !slices.Contains(classes, class) {
			classes = append(classes, class)
		}
	}
	slices.Sort(classes)
	return classes
}

// propertyMapListLimit is the count at which a property map switches from
// a code list to the 16-byte bitmap form.
const propertyMapListLimit = 16

// EncodePropertyMap encodes a property map (EPC 0x9D-0x9F).
//
// Fewer than 16 codes are listed after the count byte. Larger sets use a
// bitmap where byte 1+(code&0x0F) has bit (code>>4)-8 set.
func EncodePropertyMap(codes []byte) []byte {
	codes = slices.Clone(codes)
	slices.Sort(codes)
	codes = slices.Compact(codes)

	if len(codes) < propertyMapListLimit {
		return append([]byte{byte(len(codes))}, codes...)
	}

	data := make([]byte, 1+propertyMapListLimit)
	data[0] = byte(len(codes))
	for _, c := range codes {
		if c < 0x80 {
			continue
		}
		data[1+int(c&0x0F)] |= 1 << ((c >> 4) - 8)
	}
	return data
}
