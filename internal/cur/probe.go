package cur

import "github.com/mesh-intelligence/cursorbox/pkg/types"

// ProbeStatus says whether a hotspot probe produced information.
type ProbeStatus int

const (
	// ProbeNotAttempted means no bytes were inspected.
	ProbeNotAttempted ProbeStatus = iota
	// ProbeUnavailable means bytes were inspected but carry no valid hotspot.
	ProbeUnavailable
	// ProbeFound means Hotspot was read from the container.
	ProbeFound
)

func (s ProbeStatus) String() string {
	switch s {
	case ProbeFound:
		return "found"
	case ProbeUnavailable:
		return "unavailable"
	default:
		return "not attempted"
	}
}

// HotspotProbe is the outcome of opportunistically reading a hotspot.
// Hotspot is the zero value unless Status is ProbeFound.
type HotspotProbe struct {
	Hotspot types.Hotspot
	Status  ProbeStatus
}

// Found reports whether the probe read a hotspot.
func (p HotspotProbe) Found() bool { return p.Status == ProbeFound }

// ProbeHotspot reads the first entry's hotspot without failing.
func ProbeHotspot(data []byte) HotspotProbe {
	if !validHeader(data) {
		return HotspotProbe{Status: ProbeUnavailable}
	}
	return HotspotProbe{
		Hotspot: types.Hotspot{
			X: uint16(data[hotspotXOffset]) | uint16(data[hotspotXOffset+1])<<8,
			Y: uint16(data[hotspotYOffset]) | uint16(data[hotspotYOffset+1])<<8,
		},
		Status: ProbeFound,
	}
}
