package project

import "strings"

// TagRef is one Tag together with its owning Channel/Device and the
// dotted tree-path the runtime uses as its canonical key everywhere.
type TagRef struct {
	Channel   *Channel
	Device    *Device
	GroupPath []string
	Tag       *Tag
	TreePath  string
}

// DeviceKey returns the "ChannelName_DeviceName" key the runtime monitor
// uses to group tags into one worker per device.
func (r TagRef) DeviceKey() string {
	return r.Channel.Name + "_" + r.Device.Name
}

// WalkTags walks every Channel -> Device -> (Group...) -> Tag in the
// project and returns one TagRef per tag, in document order. Groups
// contribute to the tree-path but are not part of the device grouping key.
func (p *Project) WalkTags() []TagRef {
	var out []TagRef
	for ci := range p.Channels {
		ch := &p.Channels[ci]
		for di := range ch.Devices {
			dev := &ch.Devices[di]
			for ti := range dev.Tags {
				out = append(out, newTagRef(ch, dev, nil, &dev.Tags[ti]))
			}
			for gi := range dev.Groups {
				out = append(out, walkGroup(ch, dev, nil, &dev.Groups[gi])...)
			}
		}
	}
	return out
}

func walkGroup(ch *Channel, dev *Device, parents []string, g *Group) []TagRef {
	path := append(append([]string{}, parents...), g.Name)
	var out []TagRef
	for ti := range g.Tags {
		out = append(out, newTagRef(ch, dev, path, &g.Tags[ti]))
	}
	for gi := range g.Groups {
		out = append(out, walkGroup(ch, dev, path, &g.Groups[gi])...)
	}
	return out
}

func newTagRef(ch *Channel, dev *Device, groupPath []string, tag *Tag) TagRef {
	segments := append([]string{ch.Name, dev.Name}, groupPath...)
	segments = append(segments, tag.Name)
	return TagRef{
		Channel:   ch,
		Device:    dev,
		GroupPath: groupPath,
		Tag:       tag,
		TreePath:  strings.Join(segments, "."),
	}
}
