package device

import (
	"fmt"
	"regexp"
	"strings"
)

// addressPattern matches a canonical (lower-case) MAC address.
var addressPattern = regexp.MustCompile(`^[0-9a-f]{2}(:[0-9a-f]{2}){5}$`)

// CanonicalAddress lower-cases address and checks it is a MAC address.
//
// Example: "AA:BB:CC:DD:EE:FF" -> "aa:bb:cc:dd:ee:ff"
func CanonicalAddress(address string) (string, error) {
	canonical := strings.ToLower(address)
	if !addressPattern.MatchString(canonical) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return canonical, nil
}

// IsValidAddress reports whether address is a MAC address in any case.
func IsValidAddress(address string) bool {
	_, err := CanonicalAddress(address)
	return err == nil
}
