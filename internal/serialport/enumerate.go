package serialport

import (
	"errors"
	"strings"

	"go.bug.st/serial/enumerator"
)

// SPORTident USB-serial bridge identifiers (Silicon Labs CP210x with the
// SPORTident product ID).
const (
	sportIdentVID = "10C4"
	sportIdentPID = "800A"
)

// PortInfo describes one serial port found on the host.
type PortInfo struct {
	Name       string
	VID        string
	PID        string
	SportIdent bool
}

// ErrNoStation is returned by Detect when no SPORTident station is
// plugged in.
var ErrNoStation = errors.New("no SPORTident station found")

// List returns every serial port with its USB identifiers, marking ports
// that look like a SPORTident station.
func List() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		info := PortInfo{Name: d.Name}
		if d.IsUSB {
			info.VID = strings.ToUpper(d.VID)
			info.PID = strings.ToUpper(d.PID)
			info.SportIdent = info.VID == sportIdentVID && info.PID == sportIdentPID
		}
		ports = append(ports, info)
	}
	return ports, nil
}

// Detect returns the first port that carries the SPORTident USB marker.
func Detect() (string, error) {
	ports, err := List()
	if err != nil {
		return "", err
	}
	for _, p := range ports {
		if p.SportIdent {
			return p.Name, nil
		}
	}
	return "", ErrNoStation
}
