package batch

import "fmt"

// Config holds flush thresholds for the two buffers.
//
// Nodes carry many properties, relations few, so relations tolerate larger
// batches:
// - Small batches (100-200): low memory, many round trips
// - Medium batches (1000): default
// - Large batches (2000-10000): maximum throughput for big releases
type Config struct {
	NodeThreshold     int
	RelationThreshold int
}

// DefaultConfig returns the default thresholds
func DefaultConfig() Config {
	return Config{
		NodeThreshold:     1000,
		RelationThreshold: 1000,
	}
}

// SmallConfig for small source models or constrained stores
func SmallConfig() Config {
	return Config{
		NodeThreshold:     200,
		RelationThreshold: 500,
	}
}

// LargeConfig for full database releases
func LargeConfig() Config {
	return Config{
		NodeThreshold:     2000,
		RelationThreshold: 10000,
	}
}

// Uniform uses the same threshold for both buffers. A threshold of 1 writes
// every element synchronously.
func Uniform(threshold int) Config {
	return Config{NodeThreshold: threshold, RelationThreshold: threshold}
}

// ConfigForProfile maps a profile name to its preset
func ConfigForProfile(profile string) (Config, error) {
	switch profile {
	case "", "default":
		return DefaultConfig(), nil
	case "small":
		return SmallConfig(), nil
	case "large":
		return LargeConfig(), nil
	default:
		return Config{}, fmt.Errorf("unknown batch profile %q (want default, small or large)", profile)
	}
}

// Validate checks both thresholds are positive
func (c Config) Validate() error {
	if c.NodeThreshold < 1 || c.RelationThreshold < 1 {
		return fmt.Errorf("batch thresholds must be at least 1 (nodes=%d, relations=%d)", c.NodeThreshold, c.RelationThreshold)
	}
	return nil
}
