package config

import "errors"

var (
	// ErrParsingConfig indicates environment variables could not be parsed
	// into the config struct.
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrConfigNotLoaded indicates a config was requested before any load
	// succeeded for its type.
	ErrConfigNotLoaded = errors.New("configuration has not been loaded")

	// ErrNilPointer indicates a nil pointer was passed to Load.
	ErrNilPointer = errors.New("nil pointer provided to config loader")
)
