package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/simnet-io/interop/interop"
	"github.com/simnet-io/interop/interop/localsim"
)

// station is a running set of networks sharing one local world.
type station struct {
	cfg   *StationConfig
	world *localsim.World
	nets  *interop.Station
}

// buildStation creates the local world and one NetIO per configured network.
// Networks are not initialized yet.
func buildStation(cfg *StationConfig) (*station, error) {
	world := localsim.NewWorld(interop.ValidDeadReckoningModels[cfg.DRModel])
	for _, p := range cfg.Players {
		player := world.AddPlayer(interop.PlayerDescriptor{Class: p.Class, Type: p.Type}, p.Side, p.state())
		if p.Ownship {
			world.SetOwnship(player)
		}
	}
	if cfg.Spawn != nil {
		spawned := localsim.Spawn(world, *cfg.Spawn)
		logrus.Infof("spawned %d players", len(spawned))
	}

	nets := interop.NewStation()
	for i := range cfg.Networks {
		netCfg := cfg.Networks[i]
		proto, err := interop.NewProtocol(&netCfg)
		if err != nil {
			nets.Shutdown()
			return nil, fmt.Errorf("network %d: %w", netCfg.NetworkID, err)
		}
		n, err := interop.NewNetIO(netCfg, proto, world)
		if err != nil {
			nets.Shutdown()
			return nil, fmt.Errorf("network %d: %w", netCfg.NetworkID, err)
		}
		if err := nets.AddNetwork(n); err != nil {
			nets.Shutdown()
			return nil, err
		}
	}
	return &station{cfg: cfg, world: world, nets: nets}, nil
}

// start initializes every network and fails if none came up.
func (s *station) start() error {
	total := len(s.nets.Networks())
	ready := s.nets.NetworkInitialization()
	if ready == 0 {
		return fmt.Errorf("no network initialized (0 of %d)", total)
	}
	logrus.Infof("%d of %d networks ready", ready, total)
	return nil
}

// frame runs one station frame: input, local motion, output.
func (s *station) frame(dt float64) {
	s.nets.InputFrames(dt)
	s.world.Step(dt)
	s.nets.OutputFrames(dt)
}

// run steps the station at the configured frame rate until ctx is done or
// maxFrames frames have run (0 means no limit). onFrame, if set, is called
// after every frame.
func (s *station) run(ctx context.Context, maxFrames int, onFrame func(frame int)) {
	period := time.Duration(float64(time.Second) / s.cfg.frameRate())
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	dt := period.Seconds()
	for frame := 1; maxFrames == 0 || frame <= maxFrames; frame++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		s.frame(dt)
		if onFrame != nil {
			onFrame(frame)
		}
	}
}

// watch starts the station, hands it to view and shuts it down on every path.
func (s *station) watch(view func(*station) error) error {
	defer s.shutdown()
	if err := s.start(); err != nil {
		return err
	}
	return view(s)
}

func (s *station) shutdown() {
	if !s.nets.Shutdown() {
		logrus.Error("station shutdown left resources behind")
	}
}
