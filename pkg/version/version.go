// Package version provides protocol version parsing, comparison, and ALPN helpers.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Current is the signal distribution protocol version spoken by this module.
const Current = "1.0"

const alpnPrefix = "vsd/"

// ErrIncompatible is returned for a peer speaking another major version.
var ErrIncompatible = errors.New("incompatible protocol version")

// ProtocolVersion represents a parsed "major.minor" protocol version.
type ProtocolVersion struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string.
func Parse(s string) (ProtocolVersion, error) {
	majStr, minStr, ok := strings.Cut(s, ".")
	if !ok || strings.Contains(minStr, ".") {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	major, err := strconv.ParseUint(majStr, 10, 16)
	if err != nil {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}
	minor, err := strconv.ParseUint(minStr, 10, 16)
	if err != nil {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return ProtocolVersion{Major: uint16(major), Minor: uint16(minor)}, nil
}

// MustCurrent returns Current parsed.
func MustCurrent() ProtocolVersion {
	v, err := Parse(Current)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as "major.minor".
func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible returns true if the other version has the same major version.
func (v ProtocolVersion) Compatible(other ProtocolVersion) bool {
	return v.Major == other.Major
}

// Check parses a version announced by a peer and verifies it against Current.
func Check(s string) error {
	remote, err := Parse(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIncompatible, err)
	}
	if !MustCurrent().Compatible(remote) {
		return fmt.Errorf("%w: peer speaks %s, we speak %s", ErrIncompatible, remote, Current)
	}
	return nil
}

// ALPNProtocol returns the ALPN protocol string for a major version: "vsd/N".
func ALPNProtocol(major uint16) string {
	return fmt.Sprintf("%s%d", alpnPrefix, major)
}

// MajorFromALPN extracts the major version from an ALPN protocol string.
func MajorFromALPN(alpn string) (uint16, error) {
	suffix, ok := strings.CutPrefix(alpn, alpnPrefix)
	if !ok {
		return 0, fmt.Errorf("not a signal distribution ALPN protocol: %q", alpn)
	}
	if suffix == "" {
		return 0, fmt.Errorf("empty major version in ALPN: %q", alpn)
	}

	major, err := strconv.ParseUint(suffix, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid major version in ALPN %q: %w", alpn, err)
	}
	return uint16(major), nil
}

// SupportedALPNProtocols returns the ALPN protocol strings for all supported
// major versions. Currently only major version 1.
func SupportedALPNProtocols() []string {
	return []string{ALPNProtocol(MustCurrent().Major)}
}
