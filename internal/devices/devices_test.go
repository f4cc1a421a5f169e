package devices

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/nerrad567/echonet-sensehat/internal/echonet"
)

var allESVs = []echonet.ESV{
	echonet.ESVWriteRequestNoResponse,
	echonet.ESVWriteRequest,
	echonet.ESVReadRequest,
	echonet.ESVNotificationRequest,
	echonet.ESVWriteReadRequest,
	echonet.ESVReadResponse,
	echonet.ESVNotification,
}

type sensorCase struct {
	name    string
	handler echonet.RequestHandler
	code    echonet.ObjectCode
	want    []byte
}

func sensorCases(backend *mockBackend) []sensorCase {
	return []sensorCase{
		{"air pressure", NewAirPressure(backend, nil), AirPressureObject, EncodePressure(1013.25)},
		{"humidity", NewHumidity(backend, nil), HumidityObject, []byte{0x2D}},
		{"temperature", NewTemperature(backend, nil), TemperatureObject, []byte{0x00, 0xD7}},
	}
}

func TestSensorRejectsOtherObjects(t *testing.T) {
	backend := newMockBackend()
	others := []echonet.ObjectCode{
		AirPressureObject, HumidityObject, TemperatureObject, MonoLightObject,
		echonet.NodeProfileObject, 0x001102, 0x001100,
	}

	for _, tc := range sensorCases(backend) {
		t.Run(tc.name, func(t *testing.T) {
			for _, deoj := range others {
				if deoj == tc.code {
					continue
				}
				for _, esv := range allESVs {
					for _, epc := range []byte{EPCOperatingStatus, EPCMeasuredValue} {
						if _, ok := tc.handler.HandleProperty(deoj, esv, echonet.Property{Code: epc}); ok {
							t.Errorf("HandleProperty(%s, %s, 0x%02X) accepted", deoj, esv, epc)
						}
					}
				}
			}
		})
	}
	if backend.Reads() != 0 {
		t.Errorf("backend reads = %d, want 0", backend.Reads())
	}
}

func TestSensorOperatingStatus(t *testing.T) {
	backend := newMockBackend()

	for _, tc := range sensorCases(backend) {
		t.Run(tc.name, func(t *testing.T) {
			for _, esv := range []echonet.ESV{echonet.ESVReadRequest, echonet.ESVNotificationRequest} {
				got, ok := tc.handler.HandleProperty(tc.code, esv, echonet.Property{Code: EPCOperatingStatus})
				if !ok {
					t.Fatalf("%s of operating status rejected", esv)
				}
				if !bytes.Equal(got.Data, []byte{StatusOn}) {
					t.Errorf("%s operating status = % X, want 30", esv, got.Data)
				}
			}
		})
	}
	if backend.Reads() != 0 {
		t.Errorf("operating status read the backend %d times", backend.Reads())
	}
}

func TestSensorMeasuredValue(t *testing.T) {
	backend := newMockBackend()

	for _, tc := range sensorCases(backend) {
		t.Run(tc.name, func(t *testing.T) {
			before := backend.Reads()
			got, ok := tc.handler.HandleProperty(tc.code, echonet.ESVReadRequest, echonet.Property{Code: EPCMeasuredValue})
			if !ok {
				t.Fatal("measured value read rejected")
			}
			if got.Code != EPCMeasuredValue || !bytes.Equal(got.Data, tc.want) {
				t.Errorf("measured value = %v, want E0=% X", got, tc.want)
			}
			if backend.Reads() != before+1 {
				t.Errorf("backend reads = %d, want %d", backend.Reads(), before+1)
			}
		})
	}
}

func TestSensorReadFailureLeavesPropertyUnchanged(t *testing.T) {
	backend := newMockBackend()
	backend.readErr = errors.New("i2c: remote I/O error")

	for _, tc := range sensorCases(backend) {
		t.Run(tc.name, func(t *testing.T) {
			req := echonet.Property{Code: EPCMeasuredValue, Data: []byte{0xAA}}
			got, ok := tc.handler.HandleProperty(tc.code, echonet.ESVReadRequest, req)
			if ok {
				t.Fatal("read with failing backend accepted")
			}
			if !reflect.DeepEqual(got, req) {
				t.Errorf("returned property = %v, want unchanged %v", got, req)
			}
		})
	}
}

func TestSensorRejectsWrites(t *testing.T) {
	backend := newMockBackend()
	writes := []echonet.ESV{
		echonet.ESVWriteRequestNoResponse, echonet.ESVWriteRequest, echonet.ESVWriteReadRequest,
	}

	for _, tc := range sensorCases(backend) {
		t.Run(tc.name, func(t *testing.T) {
			for epc := 0x80; epc <= 0xFF; epc++ {
				for _, esv := range writes {
					prop := echonet.Property{Code: byte(epc), Data: []byte{StatusOn}}
					if _, ok := tc.handler.HandleProperty(tc.code, esv, prop); ok {
						t.Errorf("%s of 0x%02X accepted", esv, epc)
					}
				}
			}
		})
	}
}

func TestSensorUnknownProperty(t *testing.T) {
	backend := newMockBackend()
	for _, tc := range sensorCases(backend) {
		if _, ok := tc.handler.HandleProperty(tc.code, echonet.ESVReadRequest, echonet.Property{Code: 0x9F}); ok {
			t.Errorf("%s: read of 0x9F accepted", tc.name)
		}
	}
}

func TestMonoLightClearsOnConstructAndClose(t *testing.T) {
	backend := newMockBackend()
	light := NewMonoLight(backend, LightConfig{}, nil)
	if backend.Clears() != 1 {
		t.Fatalf("clears after construction = %d, want 1", backend.Clears())
	}
	if err := light.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if backend.Clears() != 2 {
		t.Errorf("clears after Close = %d, want 2", backend.Clears())
	}
}

func TestMonoLightClearsOnCloseWhileOn(t *testing.T) {
	backend := newMockBackend()
	light := NewMonoLight(backend, LightConfig{}, nil)

	if _, ok := light.HandleProperty(MonoLightObject, echonet.ESVWriteRequest,
		echonet.Property{Code: EPCOperatingStatus, Data: []byte{StatusOn}}); !ok {
		t.Fatal("ON write rejected")
	}
	if err := light.Close(); err != nil {
		t.Fatal(err)
	}
	if backend.Clears() != 2 {
		t.Errorf("clears = %d, want 2", backend.Clears())
	}
	if light.Status() != StatusOff {
		t.Error("status should be OFF after Close")
	}
}

func TestMonoLightWrites(t *testing.T) {
	tests := []struct {
		name       string
		esv        echonet.ESV
		data       []byte
		wantOK     bool
		wantTexts  int
		wantClears int // excluding the construction clear
		wantStatus byte
	}{
		{"SetC on", echonet.ESVWriteRequest, []byte{0x30}, true, 1, 0, StatusOn},
		{"SetC off", echonet.ESVWriteRequest, []byte{0x31}, true, 0, 1, StatusOff},
		{"SetGet on", echonet.ESVWriteReadRequest, []byte{0x30}, true, 1, 0, StatusOn},
		{"SetI on", echonet.ESVWriteRequestNoResponse, []byte{0x30}, true, 1, 0, StatusOn},
		{"two-byte on", echonet.ESVWriteRequest, []byte{0x00, 0x30}, true, 1, 0, StatusOn},
		{"invalid value", echonet.ESVWriteRequest, []byte{0x32}, false, 0, 0, StatusOff},
		{"wide invalid value", echonet.ESVWriteRequest, []byte{0x01, 0x30}, false, 0, 0, StatusOff},
		{"empty payload", echonet.ESVWriteRequest, nil, false, 0, 0, StatusOff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newMockBackend()
			light := NewMonoLight(backend, LightConfig{Text: "LIGHT"}, nil)

			req := echonet.Property{Code: EPCOperatingStatus, Data: tt.data}
			got, ok := light.HandleProperty(MonoLightObject, tt.esv, req)
			if ok != tt.wantOK {
				t.Fatalf("HandleProperty() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && len(got.Data) != 0 {
				t.Errorf("accepted write returned data % X", got.Data)
			}
			if !ok && !reflect.DeepEqual(got, req) {
				t.Errorf("rejected write returned %v, want %v", got, req)
			}
			if n := len(backend.Texts()); n != tt.wantTexts {
				t.Errorf("DisplayText calls = %d, want %d", n, tt.wantTexts)
			}
			if n := backend.Clears() - 1; n != tt.wantClears {
				t.Errorf("DisplayClear calls = %d, want %d", n, tt.wantClears)
			}
			if light.Status() != tt.wantStatus {
				t.Errorf("Status() = 0x%02X, want 0x%02X", light.Status(), tt.wantStatus)
			}
			if tt.wantTexts > 0 && backend.Texts()[0] != "LIGHT" {
				t.Errorf("displayed %q, want LIGHT", backend.Texts()[0])
			}
		})
	}
}

func TestMonoLightBackendFailure(t *testing.T) {
	backend := newMockBackend()
	light := NewMonoLight(backend, LightConfig{}, nil)
	backend.displayErr = errors.New("framebuffer gone")

	if _, ok := light.HandleProperty(MonoLightObject, echonet.ESVWriteRequest,
		echonet.Property{Code: EPCOperatingStatus, Data: []byte{StatusOn}}); ok {
		t.Error("write with failing display accepted")
	}
	if light.Status() != StatusOff {
		t.Error("failed write changed status")
	}
}

func TestMonoLightReadStatus(t *testing.T) {
	backend := newMockBackend()
	light := NewMonoLight(backend, LightConfig{}, nil)

	got, ok := light.HandleProperty(MonoLightObject, echonet.ESVReadRequest, echonet.Property{Code: EPCOperatingStatus})
	if !ok || !bytes.Equal(got.Data, []byte{StatusOff}) {
		t.Errorf("initial status read = %v, %v; want 31", got, ok)
	}

	light.HandleProperty(MonoLightObject, echonet.ESVWriteRequest, echonet.Property{Code: EPCOperatingStatus, Data: []byte{StatusOn}})
	got, ok = light.HandleProperty(MonoLightObject, echonet.ESVNotificationRequest, echonet.Property{Code: EPCOperatingStatus})
	if !ok || !bytes.Equal(got.Data, []byte{StatusOn}) {
		t.Errorf("status after ON = %v, %v; want 30", got, ok)
	}
}

func TestMonoLightRejects(t *testing.T) {
	backend := newMockBackend()
	light := NewMonoLight(backend, LightConfig{}, nil)
	on := echonet.Property{Code: EPCOperatingStatus, Data: []byte{StatusOn}}

	if _, ok := light.HandleProperty(TemperatureObject, echonet.ESVWriteRequest, on); ok {
		t.Error("write to another object accepted")
	}
	if _, ok := light.HandleProperty(MonoLightObject, echonet.ESVWriteRequest,
		echonet.Property{Code: EPCMeasuredValue, Data: []byte{0x01}}); ok {
		t.Error("write of unknown EPC accepted")
	}
	if _, ok := light.HandleProperty(MonoLightObject, echonet.ESVReadResponse, on); ok {
		t.Error("response ESV accepted")
	}
	if len(backend.Texts()) != 0 {
		t.Error("rejected requests reached the display")
	}
}

func TestMonoLightDefaults(t *testing.T) {
	light := NewMonoLight(newMockBackend(), LightConfig{}, nil)
	if light.cfg.Text != DefaultLightText {
		t.Errorf("default text = %q", light.cfg.Text)
	}
	if light.Code() != MonoLightObject {
		t.Errorf("Code() = %s", light.Code())
	}
}
