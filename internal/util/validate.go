package util

import (
	"fmt"
	"net"
	"regexp"
	"strings"
)

// validBucketChars matches lowercase letters, digits, hyphens and periods.
var validBucketChars = regexp.MustCompile(`^[a-z0-9.\-]+$`)

// ValidateBucketName checks an S3-compatible bucket name:
//   - 3 to 63 characters
//   - Only lowercase letters, digits, hyphens (-) and periods (.)
//   - Starts and ends with a letter or digit
//   - No adjacent periods and not formatted as an IPv4 address
func ValidateBucketName(name string) error {
	if len(name) < 3 || len(name) > 63 {
		return fmt.Errorf("bucket name must be 3 to 63 characters, got %d", len(name))
	}

	if !validBucketChars.MatchString(name) {
		return fmt.Errorf("bucket name %q contains invalid characters (only a-z, 0-9, hyphens, and periods are allowed)", name)
	}

	if !isAlphanumeric(name[0]) || !isAlphanumeric(name[len(name)-1]) {
		return fmt.Errorf("bucket name %q must start and end with a letter or digit", name)
	}

	if strings.Contains(name, "..") {
		return fmt.Errorf("bucket name %q must not contain adjacent periods", name)
	}

	if ip := net.ParseIP(name); ip != nil && ip.To4() != nil {
		return fmt.Errorf("bucket name %q must not be an IP address", name)
	}

	return nil
}

func isAlphanumeric(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
