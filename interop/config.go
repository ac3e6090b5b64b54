package interop

import (
	"errors"
	"fmt"

	"github.com/simnet-io/interop/interop/trace"
)

// Defaults for unset configuration values.
const (
	DefaultMaxTimeDR           = 5.0    // seconds
	DefaultMaxPositionError    = 3.0    // meters
	DefaultMaxOrientationError = 0.0524 // radians, about 3 degrees
	DefaultMaxAge              = 12.5   // seconds
	DefaultMaxEntityRange      = 0.0    // meters, 0 = unlimited
	DefaultMaxEntities         = 4000
	DefaultMaxEntityTypes      = 1000
	DefaultMaxNewOutgoing      = 150
)

// Timeline source names.
const (
	TimelineUTC  = "UTC"
	TimelineEXEC = "EXEC"
)

// ValidTimelines is the set of recognized timeline names.
var ValidTimelines = map[string]bool{"": true, TimelineUTC: true, TimelineEXEC: true}

// Config is the configuration of one NetIO, loadable from YAML or Lua.
// Nil pointer fields mean "not set" and take the package defaults; zero is a
// legal explicit value for most of them (e.g. max_entity_range: 0).
type Config struct {
	NetworkID      uint16 `yaml:"network_id"`
	FederationName string `yaml:"federation_name"`
	FederateName   string `yaml:"federate_name"`

	EnableInput  *bool  `yaml:"enable_input"`
	EnableOutput *bool  `yaml:"enable_output"`
	EnableRelay  *bool  `yaml:"enable_relay"`
	Timeline     string `yaml:"timeline"`

	MaxTimeDR           *float64 `yaml:"max_time_dr"`
	MaxPositionError    *float64 `yaml:"max_position_error"`
	MaxOrientationError *float64 `yaml:"max_orientation_error"`
	MaxAge              *float64 `yaml:"max_age"`
	MaxEntityRange      *float64 `yaml:"max_entity_range"`
	DRModel             string   `yaml:"dr_model"`

	MaxEntities    int      `yaml:"max_entities"`
	MaxEntityTypes int      `yaml:"max_entity_types"`
	MaxNewOutgoing int      `yaml:"max_new_outgoing"`
	DiscoveryRate  *float64 `yaml:"discovery_rate"`
	DiscoveryBurst *float64 `yaml:"discovery_burst"`
	Trace          string   `yaml:"trace"`

	Protocol          ProtocolConfig `yaml:"protocol"`
	InputEntityTypes  []NtmConfig    `yaml:"input_entity_types"`
	OutputEntityTypes []NtmConfig    `yaml:"output_entity_types"`
	Filters           []FilterConfig `yaml:"filters"`
}

// NtmConfig is one entity type mapper entry.
type NtmConfig struct {
	EntityType string `yaml:"entity_type"`
	Class      string `yaml:"class"`
	Type       string `yaml:"type"`
	Side       string `yaml:"side"`
}

// FilterConfig overrides the dead-reckoning and range parameters for
// entities of one kind and domain (domain 0 matches every domain of the kind).
type FilterConfig struct {
	Kind                uint8    `yaml:"kind"`
	Domain              uint8    `yaml:"domain"`
	MaxEntityRange      *float64 `yaml:"max_entity_range"`
	MaxTimeDR           *float64 `yaml:"max_time_dr"`
	MaxPositionError    *float64 `yaml:"max_position_error"`
	MaxOrientationError *float64 `yaml:"max_orientation_error"`
	MaxAge              *float64 `yaml:"max_age"`
}

// Build converts the entry into an Ntm.
func (c NtmConfig) Build() (*Ntm, error) {
	et, err := ParseEntityType(c.EntityType)
	if err != nil {
		return nil, err
	}
	return NewNtm(et, PlayerTemplate{
		PlayerDescriptor: PlayerDescriptor{Class: c.Class, Type: c.Type},
		Side:             c.Side,
	}), nil
}

// Thresholds converts the filter into per-NIB overrides.
func (f FilterConfig) Thresholds() Thresholds {
	return Thresholds{
		MaxEntityRange:      f.MaxEntityRange,
		MaxTimeDR:           f.MaxTimeDR,
		MaxPositionError:    f.MaxPositionError,
		MaxOrientationError: f.MaxOrientationError,
		MaxAge:              f.MaxAge,
	}
}

// Validate checks the scalar settings. Entity type mapper entries are not
// checked here: a bad mapper is rejected at load time without failing the rest.
func (c *Config) Validate() error {
	var errs []error
	if c.NetworkID == 0 {
		errs = append(errs, fmt.Errorf("network_id must be >= 1"))
	}
	if !ValidTimelines[c.Timeline] {
		errs = append(errs, fmt.Errorf("unknown timeline %q (want UTC or EXEC)", c.Timeline))
	}
	if _, ok := ValidDeadReckoningModels[c.DRModel]; !ok {
		errs = append(errs, fmt.Errorf("unknown dr_model %q", c.DRModel))
	}
	if !trace.IsValidTraceLevel(c.Trace) {
		errs = append(errs, fmt.Errorf("unknown trace level %q", c.Trace))
	}
	for name, v := range map[string]*float64{
		"max_time_dr":           c.MaxTimeDR,
		"max_position_error":    c.MaxPositionError,
		"max_orientation_error": c.MaxOrientationError,
		"max_age":               c.MaxAge,
		"max_entity_range":      c.MaxEntityRange,
		"discovery_rate":        c.DiscoveryRate,
		"discovery_burst":       c.DiscoveryBurst,
	} {
		if v != nil && *v < 0 {
			errs = append(errs, fmt.Errorf("%s must be non-negative, got %f", name, *v))
		}
	}
	if c.MaxEntities < 0 || c.MaxEntityTypes < 0 || c.MaxNewOutgoing < 0 {
		errs = append(errs, fmt.Errorf("table sizes must be non-negative"))
	}
	if c.DiscoveryRate != nil && *c.DiscoveryRate > 0 && (c.DiscoveryBurst == nil || *c.DiscoveryBurst <= 0) {
		errs = append(errs, fmt.Errorf("discovery_burst must be > 0 when discovery_rate is set"))
	}
	for i, f := range c.Filters {
		if f.Kind == 0 {
			errs = append(errs, fmt.Errorf("filters[%d]: kind must be >= 1", i))
		}
	}
	if c.Protocol.Name == "" {
		errs = append(errs, fmt.Errorf("protocol.name is required"))
	} else if !IsValidProtocol(c.Protocol.Name) {
		errs = append(errs, fmt.Errorf("unknown protocol %q (registered: %v)", c.Protocol.Name, ProtocolNames()))
	}
	return errors.Join(errs...)
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
