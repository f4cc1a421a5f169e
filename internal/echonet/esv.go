package echonet

import "fmt"

// ESV is the ECHONET service code that selects the operation of a frame.
type ESV byte

// Request service codes.
const (
	ESVWriteRequestNoResponse ESV = 0x60 // SetI
	ESVWriteRequest           ESV = 0x61 // SetC
	ESVReadRequest            ESV = 0x62 // Get
	ESVNotificationRequest    ESV = 0x63 // INF_REQ
	ESVWriteReadRequest       ESV = 0x6E // SetGet
)

// Response and notification service codes.
const (
	ESVWriteResponse                ESV = 0x71 // Set_Res
	ESVReadResponse                 ESV = 0x72 // Get_Res
	ESVNotification                 ESV = 0x73 // INF
	ESVNotificationResponseRequired ESV = 0x74 // INFC
	ESVNotificationResponse         ESV = 0x7A // INFC_Res
	ESVWriteReadResponse            ESV = 0x7E // SetGet_Res
)

// Failure ("service not available") codes.
const (
	ESVWriteNoResponseSNA ESV = 0x50 // SetI_SNA
	ESVWriteSNA           ESV = 0x51 // SetC_SNA
	ESVReadSNA            ESV = 0x52 // Get_SNA
	ESVNotificationSNA    ESV = 0x53 // INF_SNA
	ESVWriteReadSNA       ESV = 0x5E // SetGet_SNA
)

var esvNames = map[ESV]string{
	ESVWriteRequestNoResponse:       "SetI",
	ESVWriteRequest:                 "SetC",
	ESVReadRequest:                  "Get",
	ESVNotificationRequest:          "INF_REQ",
	ESVWriteReadRequest:             "SetGet",
	ESVWriteResponse:                "Set_Res",
	ESVReadResponse:                 "Get_Res",
	ESVNotification:                 "INF",
	ESVNotificationResponseRequired: "INFC",
	ESVNotificationResponse:         "INFC_Res",
	ESVWriteReadResponse:            "SetGet_Res",
	ESVWriteNoResponseSNA:           "SetI_SNA",
	ESVWriteSNA:                     "SetC_SNA",
	ESVReadSNA:                      "Get_SNA",
	ESVNotificationSNA:              "INF_SNA",
	ESVWriteReadSNA:                 "SetGet_SNA",
}

// String returns the conventional ECHONET mnemonic.
func (e ESV) String() string {
	if name, ok := esvNames[e]; ok {
		return name
	}
	return fmt.Sprintf("ESV(0x%02X)", byte(e))
}

// IsRequest reports whether the code is one a node must answer.
func (e ESV) IsRequest() bool {
	switch e {
	case ESVWriteRequestNoResponse, ESVWriteRequest, ESVReadRequest,
		ESVNotificationRequest, ESVWriteReadRequest:
		return true
	}
	return false
}

// IsRead reports whether the code asks for property values.
func (e ESV) IsRead() bool {
	return e == ESVReadRequest || e == ESVNotificationRequest
}

// IsWrite reports whether the code carries property values to store.
func (e ESV) IsWrite() bool {
	return e == ESVWriteRequest || e == ESVWriteRequestNoResponse || e == ESVWriteReadRequest
}

// HasSetGetLists reports whether frames with this code carry separate
// set and get property lists.
func (e ESV) HasSetGetLists() bool {
	return e == ESVWriteReadRequest || e == ESVWriteReadResponse || e == ESVWriteReadSNA
}

// Response returns the code a node answers with for this request.
// Non-request codes return zero.
func (e ESV) Response(accepted bool) ESV {
	switch e {
	case ESVWriteRequestNoResponse:
		if accepted {
			return 0
		}
		return ESVWriteNoResponseSNA
	case ESVWriteRequest:
		if accepted {
			return ESVWriteResponse
		}
		return ESVWriteSNA
	case ESVReadRequest:
		if accepted {
			return ESVReadResponse
		}
		return ESVReadSNA
	case ESVNotificationRequest:
		if accepted {
			return ESVNotification
		}
		return ESVNotificationSNA
	case ESVWriteReadRequest:
		if accepted {
			return ESVWriteReadResponse
		}
		return ESVWriteReadSNA
	}
	return 0
}
