// Package netutil validates network locations supplied by users.
package netutil

import (
	"net/url"

	"github.com/pkg/errors"
	"golang.org/x/net/idna"
)

const (
	maxDomainNameSize = 253
)

// ValidateHTTPURL checks that value is an absolute http or https URL with a
// valid host. Nothing is resolved or fetched.
func ValidateHTTPURL(value string, requireSecureConnection bool) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return errors.Wrap(err, "url is malformed")
	}

	switch parsed.Scheme {
	case "https":
	case "http":
		if requireSecureConnection {
			return errors.New("url scheme must be https")
		}
	case "":
		return errors.New("url scheme is missing")
	default:
		return errors.Errorf("unsupported url scheme %q", parsed.Scheme)
	}

	if err := ValidateDomainName(parsed.Hostname()); err != nil {
		return errors.Wrap(err, "host is not a valid domain name")
	}
	return nil
}

// ValidateDomainName validates the string value as a domain name
func ValidateDomainName(value string) error {
	if len(value) == 0 {
		return errors.New("domain name is empty")
	}
	if len(value) > maxDomainNameSize {
		return errors.New("domain name length exceeds limit")
	}
	if _, err := idna.Registration.ToASCII(value); err != nil {
		return errors.Wrap(err, "domain name is invalid")
	}
	return nil
}
