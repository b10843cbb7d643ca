package manifest

import "fmt"

// Validate checks a parsed manifest for structural correctness.
func Validate(c *Config) []error {
	var errs []error

	if c.Version != 1 {
		errs = append(errs, fmt.Errorf("version must be 1, got %d", c.Version))
	}
	if c.Device == "" {
		errs = append(errs, fmt.Errorf("device is required"))
	}
	if c.Baud <= 0 {
		errs = append(errs, fmt.Errorf("baud must be positive, got %d", c.Baud))
	}
	if c.Marker == "" {
		errs = append(errs, fmt.Errorf("marker is required"))
	}
	if c.Output == "" {
		errs = append(errs, fmt.Errorf("output is required"))
	}
	if c.Socket == "" {
		errs = append(errs, fmt.Errorf("socket is required"))
	}

	return errs
}
