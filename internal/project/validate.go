package project

import (
	"regexp"
	"strconv"

	"github.com/edgeflow/modgate/internal/gatewayerr"
)

var arraySuffixRe = regexp.MustCompile(`\[(\d+)\]\s*$`)

// Validate rejects a project at configuration time rather than at runtime,
// matching the rule that a malformed project is rejected before runtime starts.
func (p *Project) Validate() error {
	for _, ch := range p.Channels {
		if err := ch.validate(); err != nil {
			return err
		}
	}
	for _, ref := range p.WalkTags() {
		if err := validateTag(ref.Tag); err != nil {
			return err
		}
	}
	return nil
}

func (ch *Channel) validate() error {
	switch ch.Driver.Type {
	case DriverRTUSerial, DriverRTUOverTCP, DriverTCP:
	default:
		return gatewayerr.Wrap(gatewayerr.ErrConfiguration, "channel %q: unknown driver type %q", ch.Name, ch.Driver.Type)
	}
	for i := range ch.Devices {
		if err := ch.Devices[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) validate() error {
	if d.UnitID < 1 || d.UnitID > 65535 {
		return gatewayerr.Wrap(gatewayerr.ErrConfiguration, "device %q: unit-id %d out of range 1-65535", d.Name, d.UnitID)
	}
	return nil
}

func validateTag(t *Tag) error {
	if m := arraySuffixRe.FindStringSubmatch(t.Address); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n == 0 {
			return gatewayerr.Wrap(gatewayerr.ErrConfiguration, "tag %q: array length 0 is not allowed", t.Name)
		}
	}
	if t.Scaling != nil && t.Scaling.Kind != ScalingNone {
		if t.Scaling.RawHigh-t.Scaling.RawLow == 0 {
			return gatewayerr.Wrap(gatewayerr.ErrConfiguration, "tag %q: scaling raw range is zero", t.Name)
		}
		if t.Scaling.ScaledHigh-t.Scaling.ScaledLow == 0 {
			return gatewayerr.Wrap(gatewayerr.ErrConfiguration, "tag %q: scaling scaled range is zero", t.Name)
		}
	}
	return nil
}
