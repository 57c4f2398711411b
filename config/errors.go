package config

import "errors"

var (
	ErrMissingValue = errors.New("required config value is missing")
	ErrInvalidValue = errors.New("invalid config value")
)
