package validator

import (
	"net/netip"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsBlank reports whether value is empty after trimming.
func IsBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}

// IsEmail performs the same shape check the onboarding form uses.
func IsEmail(value string) bool {
	return emailPattern.MatchString(strings.TrimSpace(value))
}

// IsIPv4 accepts dotted-quad IPv4 addresses only.
func IsIPv4(value string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(value))
	if err != nil {
		return false
	}
	return addr.Is4()
}

// IsURL accepts absolute http and https URLs with a host.
func IsURL(value string) bool {
	parsed, err := url.ParseRequestURI(strings.TrimSpace(value))
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}

// Required adds an error when value is blank and reports whether it passed.
func (r *ValidationResult) Required(field, value string) bool {
	if IsBlank(value) {
		r.Add(field, field+" is required")
		return false
	}
	return true
}

// MaxLength adds an error when value exceeds max characters.
func (r *ValidationResult) MaxLength(field, value string, max int) bool {
	if utf8.RuneCountInString(strings.TrimSpace(value)) > max {
		r.AddValue(field, field+" must be at most "+strconv.Itoa(max)+" characters", value)
		return false
	}
	return true
}

// Email adds an error when value is not a valid email address.
func (r *ValidationResult) Email(field, value string) bool {
	if !IsEmail(value) {
		r.AddValue(field, field+" must be a valid email address", value)
		return false
	}
	return true
}

// IPv4 adds an error when value is not a valid IPv4 address.
func (r *ValidationResult) IPv4(field, value string) bool {
	if !IsIPv4(value) {
		r.AddValue(field, field+" must be a valid IPv4 address", value)
		return false
	}
	return true
}

// URL adds an error when value is not a valid http(s) URL.
func (r *ValidationResult) URL(field, value string) bool {
	if !IsURL(value) {
		r.AddValue(field, field+" must be a valid URL", value)
		return false
	}
	return true
}
