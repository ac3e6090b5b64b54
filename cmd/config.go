package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/simnet-io/interop/interop"
	"github.com/simnet-io/interop/interop/localsim"

	// protocol registrations
	_ "github.com/simnet-io/interop/interop/loopback"
	_ "github.com/simnet-io/interop/interop/udp"
	_ "github.com/simnet-io/interop/interop/wsnet"
)

// DefaultFrameRate is the station frame rate in Hz when frame_rate is unset.
const DefaultFrameRate = 20.0

// StationConfig is the full station file: the local players and every
// network the station joins. All top-level sections must be listed to
// satisfy KnownFields(true) strict parsing.
type StationConfig struct {
	FrameRate float64               `yaml:"frame_rate"`
	DRModel   string                `yaml:"dr_model"`
	Players   []PlayerConfig        `yaml:"players"`
	Spawn     *localsim.SpawnConfig `yaml:"spawn"`
	Networks  []interop.Config      `yaml:"networks"`
}

// PlayerConfig places one local player.
type PlayerConfig struct {
	Class       string    `yaml:"class"`
	Type        string    `yaml:"type"`
	Side        string    `yaml:"side"`
	Ownship     bool      `yaml:"ownship"`
	Position    []float64 `yaml:"position"`    // x, y, z meters
	Velocity    []float64 `yaml:"velocity"`    // m/s
	Orientation []float64 `yaml:"orientation"` // psi, theta, phi radians
}

// LoadStationConfig reads a station file. Files ending in .lua are executed
// and must return a table; anything else is parsed as YAML.
func LoadStationConfig(path string) (*StationConfig, error) {
	var (
		cfg *StationConfig
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".lua") {
		cfg, err = readLuaStation(path)
	} else {
		cfg, err = readYAMLStation(path)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid station config %s: %w", path, err)
	}
	return cfg, nil
}

func readYAMLStation(path string) (*StationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseYAMLStation(data)
}

func parseYAMLStation(data []byte) (*StationConfig, error) {
	var cfg StationConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	return &cfg, nil
}

func readLuaStation(path string) (*StationConfig, error) {
	L := lua.NewState()
	defer L.Close()
	if err := L.DoFile(path); err != nil {
		return nil, err
	}
	return mapLuaStation(L.Get(-1))
}

func parseLuaStation(src string) (*StationConfig, error) {
	L := lua.NewState()
	defer L.Close()
	if err := L.DoString(src); err != nil {
		return nil, err
	}
	return mapLuaStation(L.Get(-1))
}

// mapLuaStation maps the returned table onto the same fields the YAML form
// uses, so both formats share key names.
func mapLuaStation(lv lua.LValue) (*StationConfig, error) {
	table, ok := lv.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("lua file did not return a table")
	}
	var cfg StationConfig
	mapper := gluamapper.NewMapper(gluamapper.Option{
		NameFunc: func(s string) string { return s },
		TagName:  "yaml",
	})
	if err := mapper.Map(table, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem with the station and its networks.
func (c *StationConfig) Validate() error {
	var errs []error
	if c.FrameRate < 0 {
		errs = append(errs, fmt.Errorf("frame_rate must be non-negative, got %f", c.FrameRate))
	}
	if _, ok := interop.ValidDeadReckoningModels[c.DRModel]; !ok {
		errs = append(errs, fmt.Errorf("unknown dr_model %q", c.DRModel))
	}
	if len(c.Networks) == 0 {
		errs = append(errs, fmt.Errorf("at least one network is required"))
	}
	ids := make(map[uint16]bool)
	for i := range c.Networks {
		n := &c.Networks[i]
		if err := n.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("networks[%d]: %w", i, err))
		}
		if ids[n.NetworkID] {
			errs = append(errs, fmt.Errorf("networks[%d]: duplicate network_id %d", i, n.NetworkID))
		}
		ids[n.NetworkID] = true
	}
	ownships := 0
	for i, p := range c.Players {
		if p.Class == "" {
			errs = append(errs, fmt.Errorf("players[%d]: class is required", i))
		}
		for name, v := range map[string][]float64{"position": p.Position, "velocity": p.Velocity, "orientation": p.Orientation} {
			if len(v) != 0 && len(v) != 3 {
				errs = append(errs, fmt.Errorf("players[%d]: %s needs 3 components, got %d", i, name, len(v)))
			}
		}
		if p.Ownship {
			ownships++
		}
	}
	if ownships > 1 {
		errs = append(errs, fmt.Errorf("at most one player may be ownship, got %d", ownships))
	}
	if c.Spawn != nil {
		if err := c.Spawn.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *StationConfig) frameRate() float64 {
	if c.FrameRate <= 0 {
		return DefaultFrameRate
	}
	return c.FrameRate
}

func (p PlayerConfig) state() interop.EntityState {
	return interop.EntityState{
		Position:    vec3(p.Position),
		Velocity:    vec3(p.Velocity),
		Orientation: vec3(p.Orientation),
	}
}

func vec3(v []float64) r3.Vec {
	if len(v) != 3 {
		return r3.Vec{}
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}
