package config

import (
	"errors"
	"fmt"
)

// ErrImproperlyConfigured is matched by every configuration error returned from Load.
var ErrImproperlyConfigured = errors.New("improperly configured")

// MissingSettingError reports a required environment variable that is not set.
type MissingSettingError struct {
	Name string
}

func (e *MissingSettingError) Error() string {
	return fmt.Sprintf("set the %s environment variable", e.Name)
}

// Is makes MissingSettingError match ErrImproperlyConfigured.
func (e *MissingSettingError) Is(target error) bool {
	return target == ErrImproperlyConfigured
}

// InvalidSettingError reports a setting whose value cannot be used.
type InvalidSettingError struct {
	Name   string
	Reason string
}

func (e *InvalidSettingError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Name, e.Reason)
}

// Is makes InvalidSettingError match ErrImproperlyConfigured.
func (e *InvalidSettingError) Is(target error) bool {
	return target == ErrImproperlyConfigured
}
