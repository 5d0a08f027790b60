package mbclient

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgeflow/modgate/internal/mbmap"
)

func TestCRC16KnownVector(t *testing.T) {
	// Read Holding Registers request: unit=1, fc=3, addr=0, count=10
	frame := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A}
	crc := crc16(frame)
	assert.Equal(t, uint16(0xCDC5), crc)
}

func TestTCPFramerRoundTrip(t *testing.T) {
	f := tcpFramer{}
	pdu := buildReadPDU(0x03, 0, 10)
	adu := f.BuildRequest(7, 1, pdu)

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go server.Write(adu)

	resp, err := f.ReadResponse(client, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, pdu, resp)
}

func TestRTUFramerRoundTrip(t *testing.T) {
	f := rtuFramer{}
	pdu := buildReadPDU(0x03, 0, 2)
	adu := f.BuildRequest(0, 1, pdu)

	// Simulate the device echoing a read response: fc=3, byteCount=4, 2 regs, crc
	respPDU := []byte{0x03, 0x04, 0x00, 0x01, 0x00, 0x02}
	respADU := append([]byte{0x01}, respPDU...)
	crc := crc16(respADU)
	respADU = append(respADU, byte(crc), byte(crc>>8))

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go server.Write(respADU)

	got, err := f.ReadResponse(client, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, respPDU, got)
	_ = adu
}

func TestRTUFramerDetectsCRCMismatch(t *testing.T) {
	f := rtuFramer{}
	respADU := []byte{0x01, 0x03, 0x02, 0x00, 0x01, 0xDE, 0xAD}

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go server.Write(respADU)

	_, err := f.ReadResponse(client, 0, 1)
	assert.Error(t, err)
}

func TestNewFramerSelectsByMode(t *testing.T) {
	tcpClient := New(Config{Mode: ModeTCP}, "t", nil)
	_, isTCP := tcpClient.newFramer().(tcpFramer)
	assert.True(t, isTCP)

	rtuClient := New(Config{Mode: ModeRTUSerial}, "t", nil)
	_, isRTU := rtuClient.newFramer().(rtuFramer)
	assert.True(t, isRTU)

	rtuTCPClient := New(Config{Mode: ModeRTUOverTCP}, "t", nil)
	_, isRTU2 := rtuTCPClient.newFramer().(rtuFramer)
	assert.True(t, isRTU2)
}

func TestReadRawRoundTripOverTCPFramer(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	c := New(Config{Mode: ModeTCP, UnitID: 1, RequestTimeout: time.Second}, "Channel1_Device1", nil)
	c.conn = client
	c.framer = tcpFramer{}
	c.connected = true

	go func() {
		buf := make([]byte, 12)
		server.Read(buf) // drain the request

		pdu := []byte{0x03, 0x04, 0x00, 0x2A, 0x00, 0x00}
		f := tcpFramer{}
		resp := f.BuildRequest(1, 1, pdu)
		server.Write(resp)
	}()

	data, err := c.ReadRaw(mbmap.HoldingRegister, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x2A, 0x00, 0x00}, data)
}

func TestWriteSingleReturnsExceptionError(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	c := New(Config{Mode: ModeTCP, UnitID: 1, RequestTimeout: time.Second}, "Channel1_Device1", nil)
	c.conn = client
	c.framer = tcpFramer{}
	c.connected = true

	go func() {
		buf := make([]byte, 12)
		server.Read(buf)

		f := tcpFramer{}
		resp := f.BuildRequest(1, 1, []byte{0x86, 0x02})
		server.Write(resp)
	}()

	err := c.WriteSingle(0x06, 0, 1)
	assert.Error(t, err)
}

func TestEndpointForSerialMode(t *testing.T) {
	c := New(Config{Mode: ModeRTUSerial, SerialPort: "/dev/ttyUSB0"}, "t", nil)
	assert.Equal(t, "/dev/ttyUSB0", c.endpoint())
}

func TestConnectedReflectsState(t *testing.T) {
	c := New(Config{Mode: ModeTCP}, "t", nil)
	assert.False(t, c.Connected())
}
