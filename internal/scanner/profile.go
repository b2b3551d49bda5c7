// Package scanner provides the concrete profile model and a simulated laser
// profile scanner used by the CLI and the tests.
package scanner

import (
	"fmt"
	"time"
)

// Point is one sample of a profile: lateral position X and distance Z.
// A point with Z == 0 carries no measurement.
type Point struct {
	X float32 `json:"x" yaml:"x"`
	Z float32 `json:"z" yaml:"z"`
}

// IsZero reports whether the point carries no measurement.
func (p Point) IsZero() bool {
	return p.Z == 0
}

// Header is the per-profile metadata sent by the device.
type Header struct {
	MeasureCount uint32    `json:"measure_count" yaml:"measure_count"`
	SerialNumber uint32    `json:"serial_number" yaml:"serial_number"`
	Timestamp    time.Time `json:"timestamp" yaml:"timestamp"`
	PointCount   int       `json:"point_count" yaml:"point_count"`
}

// Profile is a single scan line.
type Profile struct {
	Header Header  `json:"header" yaml:"header"`
	Points []Point `json:"points" yaml:"points"`
}

// MeasureCount returns the device sequence number of the profile.
func (p *Profile) MeasureCount() uint32 {
	return p.Header.MeasureCount
}

// ValidPoints returns the number of points with a measurement.
func (p *Profile) ValidPoints() int {
	n := 0
	for _, pt := range p.Points {
		if !pt.IsZero() {
			n++
		}
	}
	return n
}

// Info identifies a scanner.
type Info struct {
	Name         string `json:"name" yaml:"name"`
	SerialNumber uint32 `json:"serial_number" yaml:"serial_number"`
	Address      string `json:"address" yaml:"address"`
	Firmware     string `json:"firmware" yaml:"firmware"`
}

// String returns a one-line description of the scanner.
func (i Info) String() string {
	return fmt.Sprintf("%s (serial %d) at %s", i.Name, i.SerialNumber, i.Address)
}
