package mbclient

import (
	"io"

	"github.com/edgeflow/modgate/internal/gatewayerr"
)

// tcpFramer implements Modbus TCP's MBAP framing: a 7-byte header
// (transaction id, protocol id=0, length, unit id) followed by the PDU.
type tcpFramer struct{}

func (tcpFramer) BuildRequest(txnID uint16, unitID byte, pdu []byte) []byte {
	length := len(pdu) + 1 // + unit id
	header := []byte{
		byte(txnID >> 8), byte(txnID),
		0x00, 0x00, // protocol id
		byte(length >> 8), byte(length),
		unitID,
	}
	return append(header, pdu...)
}

func (tcpFramer) ReadResponse(conn io.Reader, txnID uint16, unitID byte) ([]byte, error) {
	header := make([]byte, 7)
	if _, err := io.ReadFull(conn, header); err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.ErrReadFailed, "read MBAP header: %v", err)
	}

	length := int(header[4])<<8 | int(header[5])
	if length < 1 {
		return nil, gatewayerr.Wrap(gatewayerr.ErrReadFailed, "invalid MBAP length %d", length)
	}

	pdu := make([]byte, length-1) // length includes the unit id byte already read
	if _, err := io.ReadFull(conn, pdu); err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.ErrReadFailed, "read MBAP payload: %v", err)
	}

	return pdu, nil
}
