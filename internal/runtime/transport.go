package runtime

import (
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/edgeflow/modgate/internal/codec"
	"github.com/edgeflow/modgate/internal/gatewayerr"
	"github.com/edgeflow/modgate/internal/mbclient"
	"github.com/edgeflow/modgate/internal/project"
)

// transportConfig builds an mbclient.Config from a channel's driver
// settings and a device's timing/unit-id settings.
func transportConfig(ch *project.Channel, dev *project.Device) (mbclient.Config, error) {
	cfg := mbclient.Config{
		UnitID:                byte(dev.UnitID),
		ConnectTimeout:        time.Duration(dev.Timing.ConnectTimeoutSec) * time.Second,
		ConnectAttempts:       dev.Timing.ConnectAttempts,
		RequestTimeout:        time.Duration(dev.Timing.RequestTimeoutMS) * time.Millisecond,
		AttemptsBeforeTimeout: dev.Timing.AttemptsBeforeTimeout,
	}

	switch ch.Driver.Type {
	case project.DriverTCP:
		cfg.Mode = mbclient.ModeTCP
		cfg.Host = ch.Driver.Host
		cfg.Port = ch.Driver.Port_
	case project.DriverRTUOverTCP:
		cfg.Mode = mbclient.ModeRTUOverTCP
		cfg.Host = ch.Driver.Host
		cfg.Port = ch.Driver.Port_
	case project.DriverRTUSerial:
		cfg.Mode = mbclient.ModeRTUSerial
		cfg.SerialPort = ch.Driver.Port
		cfg.Baud = ch.Driver.Baud
		cfg.DataBits = ch.Driver.DataBits
		cfg.Parity = parityFromString(ch.Driver.Parity)
		cfg.StopBits = stopBitsFromInt(ch.Driver.StopBits)
	default:
		return mbclient.Config{}, gatewayerr.Wrap(gatewayerr.ErrConfiguration, "channel %q: unknown driver type %q", ch.Name, ch.Driver.Type)
	}

	return cfg, nil
}

func parityFromString(p string) serial.Parity {
	switch strings.ToUpper(p) {
	case "E":
		return serial.EvenParity
	case "O":
		return serial.OddParity
	case "M":
		return serial.MarkParity
	case "S":
		return serial.SpaceParity
	default:
		return serial.NoParity
	}
}

func stopBitsFromInt(sb int) serial.StopBits {
	switch sb {
	case 2:
		return serial.TwoStopBits
	case 15:
		return serial.OnePointFiveStopBits
	default:
		return serial.OneStopBit
	}
}

// encodingFromSettings converts a device's project-document encoding
// settings into the codec package's wire representation.
func encodingFromSettings(s project.EncodingSettings) codec.Encoding {
	return codec.Encoding{
		ByteOrderBig:         !strings.EqualFold(s.ByteOrder, "little"),
		WordOrderLowHigh:     s.WordOrder == 1,
		DwordOrderLowHigh:    s.DwordOrder == 1,
		BitOrderMSB:          strings.EqualFold(s.BitOrder, "msb"),
		TreatLongsAsDecimals: s.TreatLongsAsDecimals,
	}
}
