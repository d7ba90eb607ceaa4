package config

import "errors"

// ErrInvalidKey indicates a key that cannot be stored in the key=value file.
var ErrInvalidKey = errors.New("invalid config key")
