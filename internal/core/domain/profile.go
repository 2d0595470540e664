package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Travel speeds in metres per minute used to size the sampling grid.
// They are upper bounds for each mode so the grid always covers tmax.
var profileSpeeds = map[string]float64{
	"foot":    10 * 1000 / 60.0,
	"walk":    10 * 1000 / 60.0,
	"bike":    20 * 1000 / 60.0,
	"car":     120 * 1000 / 60.0,
	"driving": 120 * 1000 / 60.0,
}

// ProfileSpeed returns the sizing speed for a routing profile in metres per minute.
func ProfileSpeed(profile string) (float64, error) {
	speed, ok := profileSpeeds[strings.ToLower(profile)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedProfile, profile)
	}
	return speed, nil
}

// ValidateProfile reports ErrUnsupportedProfile for unknown profiles.
func ValidateProfile(profile string) error {
	_, err := ProfileSpeed(profile)
	return err
}

// ServerClass bounds how many destinations one table request may carry
// and how long to wait between consecutive requests.
type ServerClass struct {
	Name   string        `json:"name"`
	Budget int           `json:"budget"`
	Pace   time.Duration `json:"pace"`
}

// DemoServerHost is the public OSRM demo server, which enforces tight limits.
const DemoServerHost = "router.project-osrm.org"

var (
	DefaultServer = ServerClass{Name: "default", Budget: 450}
	DemoServer    = ServerClass{Name: "demo", Budget: 75, Pace: time.Second}
)

var serverClasses = map[string]ServerClass{
	DefaultServer.Name: DefaultServer,
	DemoServer.Name:    DemoServer,
}

// LookupServerClass returns a named server class.
func LookupServerClass(name string) (ServerClass, error) {
	sc, ok := serverClasses[strings.ToLower(name)]
	if !ok {
		return ServerClass{}, fmt.Errorf("%w: %q", ErrInvalidServerClass, name)
	}
	return sc, nil
}

// ClassifyServer picks the server class for a routing service base URL.
func ClassifyServer(baseURL string) ServerClass {
	u, err := url.Parse(baseURL)
	if err == nil && strings.EqualFold(u.Hostname(), DemoServerHost) {
		return DemoServer
	}
	return DefaultServer
}

// Validate checks that the class can actually plan chunks.
func (s ServerClass) Validate() error {
	if s.Budget <= 0 {
		return fmt.Errorf("%w: budget must be positive, got %d", ErrInvalidServerClass, s.Budget)
	}
	if s.Pace < 0 {
		return fmt.Errorf("%w: pace must not be negative, got %s", ErrInvalidServerClass, s.Pace)
	}
	return nil
}
