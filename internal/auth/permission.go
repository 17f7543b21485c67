package auth

import (
	"fmt"
	"net/http"
	"strings"
)

// Permission is the default access policy applied to API resources.
type Permission string

const (
	// AllowAny lets every request through, authenticated or not.
	AllowAny Permission = "allow_any"
	// IsAuthenticated requires a valid bearer token for every request.
	IsAuthenticated Permission = "is_authenticated"
	// IsAuthenticatedOrReadOnly lets safe methods through and requires a token otherwise.
	IsAuthenticatedOrReadOnly Permission = "is_authenticated_or_read_only"
)

// ParsePermission converts a configuration value into a Permission.
func ParsePermission(raw string) (Permission, error) {
	switch p := Permission(strings.ToLower(strings.TrimSpace(raw))); p {
	case AllowAny, IsAuthenticated, IsAuthenticatedOrReadOnly:
		return p, nil
	default:
		return "", fmt.Errorf("unknown permission %q (expected %s, %s or %s)", raw, AllowAny, IsAuthenticated, IsAuthenticatedOrReadOnly)
	}
}

// Allows reports whether a request with the given method may proceed.
func (p Permission) Allows(method string, authenticated bool) bool {
	switch p {
	case AllowAny:
		return true
	case IsAuthenticated:
		return authenticated
	case IsAuthenticatedOrReadOnly:
		return authenticated || isSafeMethod(method)
	default:
		return false
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
