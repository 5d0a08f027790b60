package mbclient

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/edgeflow/modgate/internal/gatewayerr"
	"github.com/edgeflow/modgate/internal/mbmap"
)

// deadliner is implemented by net.Conn and go.bug.st/serial.Port; used to
// bound each individual request attempt by RequestTimeout.
type deadliner interface {
	SetDeadline(t time.Time) error
}

// ReadRaw performs one batch read (function codes 1/2/3/4) for the given
// address type, start offset, and count, retrying up to
// AttemptsBeforeTimeout times before giving up. Returns the data bytes
// that follow the byte count in the response PDU.
func (c *Client) ReadRaw(addrType mbmap.AddressType, start, count int) ([]byte, error) {
	fc := readFuncCode(addrType)
	pdu := buildReadPDU(fc, start, count)

	resp, err := c.roundTrip(pdu)
	if err != nil {
		return nil, err
	}
	return parseReadResponse(resp)
}

// WriteSingle performs a single-point write (fc=5 coil or fc=6 register).
func (c *Client) WriteSingle(fc byte, address int, valueWord uint16) error {
	pdu := buildWriteSinglePDU(fc, address, valueWord)
	resp, err := c.roundTrip(pdu)
	if err != nil {
		return err
	}
	return parseWriteResponse(resp)
}

// WriteMultiple performs a multi-point write (fc=15 coils or fc=16
// registers). quantity is in bits for fc15, registers for fc16.
func (c *Client) WriteMultiple(fc byte, address, quantity int, data []byte) error {
	pdu := buildWriteMultiplePDU(fc, address, quantity, data)
	resp, err := c.roundTrip(pdu)
	if err != nil {
		return err
	}
	return parseWriteResponse(resp)
}

// roundTrip sends one request PDU and returns the response PDU, retrying
// the whole connect-send-receive cycle up to AttemptsBeforeTimeout times.
func (c *Client) roundTrip(pdu []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	attempts := c.cfg.AttemptsBeforeTimeout
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if !c.connected {
			if conn, err := c.dial(); err == nil {
				c.conn = conn
				c.framer = c.newFramer()
				c.connected = true
			}
		}
		resp, err := c.sendOnce(pdu)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		// a transport-level failure invalidates the connection; drop it so
		// the next attempt (or the next worker poll cycle) reconnects.
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
			c.connected = false
		}
	}
	// sendOnce already classifies lastErr (connect/write/read); preserve that
	// class with %w instead of flattening every exhausted-retries failure
	// into ErrReadFailed.
	return nil, fmt.Errorf("%s: %w", c.endpoint(), lastErr)
}

func (c *Client) sendOnce(pdu []byte) ([]byte, error) {
	if c.conn == nil || !c.connected {
		return nil, gatewayerr.Wrap(gatewayerr.ErrConnectFailed, "%s: not connected", c.endpoint())
	}

	timeout := c.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if d, ok := c.conn.(deadliner); ok {
		d.SetDeadline(time.Now().Add(timeout))
	}

	c.nextTxnID++
	txnID := c.nextTxnID

	req := c.framer.BuildRequest(txnID, c.cfg.UnitID, pdu)
	c.traceOut(req, pdu)

	if _, err := c.conn.Write(req); err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.ErrWriteFailed, "write request: %v", err)
	}

	resp, err := c.framer.ReadResponse(c.conn, txnID, c.cfg.UnitID)
	if err != nil {
		return nil, err
	}
	c.traceIn(resp)

	return resp, nil
}

func (c *Client) traceOut(adu, pdu []byte) {
	if c.trace == nil || len(pdu) == 0 {
		return
	}
	c.trace("TX", hex.EncodeToString(adu), len(adu), int(pdu[0]), int(c.cfg.UnitID), c.transportID)
}

func (c *Client) traceIn(pdu []byte) {
	if c.trace == nil || len(pdu) == 0 {
		return
	}
	c.trace("RX", hex.EncodeToString(pdu), len(pdu), int(pdu[0]), int(c.cfg.UnitID), c.transportID)
}
