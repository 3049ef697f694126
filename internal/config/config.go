// Package config loads and persists the farmbot configuration file.
//
// The file carries both operator settings and the overall counters that
// survive restarts. Settings may be edited on disk while running; counters
// are owned by the running process.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type FarmMode string

const (
	// FarmExhaustive searches the floor when the reward is not in view.
	FarmExhaustive FarmMode = "exhaustive"
	// FarmSafe leaves as soon as the reward is not in view.
	FarmSafe FarmMode = "safe"
)

type StopMode string

const (
	StopByRuns    StopMode = "runs"
	StopByRewards StopMode = "rewards"
	StopByMinutes StopMode = "minutes"
)

type RetainerMode string

const (
	RetainersAnyDone RetainerMode = "any"
	RetainersAllDone RetainerMode = "all"
)

type Config struct {
	Farm      Farm      `yaml:"farm"`
	Retainers Retainers `yaml:"retainers"`
	Telemetry Telemetry `yaml:"telemetry"`
	World     World     `yaml:"world"`
	Host      Host      `yaml:"host"`
	DataDir   string    `yaml:"data_dir"`
	Counters  Counters  `yaml:"counters"`
}

type Farm struct {
	Mode           FarmMode `yaml:"mode"`
	StopAfter      int      `yaml:"stop_after"`
	StopAfterMode  StopMode `yaml:"stop_after_mode"`
	Paranoid       bool     `yaml:"paranoid"`
	MinWaitSeconds int      `yaml:"min_wait_seconds"`
	MaxWaitSeconds int      `yaml:"max_wait_seconds"`
	SaveSlot       int      `yaml:"save_slot"`
}

type Retainers struct {
	Enabled bool         `yaml:"enabled"`
	Mode    RetainerMode `yaml:"mode"`
}

type Telemetry struct {
	Disabled bool   `yaml:"disabled"`
	Endpoint string `yaml:"endpoint"`
	SenderID string `yaml:"sender_id"`
}

type World struct {
	HubTerritory        uint16   `yaml:"hub_territory"`
	FirstFloorTerritory uint16   `yaml:"first_floor_territory"`
	InstanceTerritories []uint16 `yaml:"instance_territories"`
	RewardDataID        uint32   `yaml:"reward_data_id"`
	ContainerDataIDs    []uint32 `yaml:"container_data_ids"`
	Messages            Messages `yaml:"messages"`
}

type Messages struct {
	SensedPresent string `yaml:"sensed_present"`
	SensedAbsent  string `yaml:"sensed_absent"`
	Collected     string `yaml:"collected"`
}

type Host struct {
	URL    string `yaml:"url"`
	TickMS int    `yaml:"tick_ms"`
}

type Counters struct {
	Runs                int `yaml:"runs"`
	Rewards             int `yaml:"rewards"`
	Seconds             int `yaml:"seconds"`
	AchievementProgress int `yaml:"achievement_progress"`
}

func (c Counters) Add(d Counters) Counters {
	return Counters{
		Runs:                c.Runs + d.Runs,
		Rewards:             c.Rewards + d.Rewards,
		Seconds:             c.Seconds + d.Seconds,
		AchievementProgress: c.AchievementProgress + d.AchievementProgress,
	}
}

func Defaults() Config {
	return Config{
		Farm: Farm{
			Mode:           FarmExhaustive,
			StopAfter:      50,
			StopAfterMode:  StopByRewards,
			MinWaitSeconds: 3,
			MaxWaitSeconds: 6,
		},
		Retainers: Retainers{Mode: RetainersAllDone},
		World: World{
			HubTerritory:        613,
			FirstFloorTerritory: 770,
			InstanceTerritories: []uint16{771, 772},
			RewardDataID:        2007542,
			ContainerDataIDs:    []uint32{2007357, 2007358},
			Messages: Messages{
				SensedPresent: "You sense the Accursed Hoard calling you...",
				SensedAbsent:  "You do not sense the call of the Accursed Hoard on this floor.",
				Collected:     "You discover a piece of the Accursed Hoard!",
			},
		},
		Host: Host{
			URL:    "ws://127.0.0.1:8765/v1/farm",
			TickMS: 100,
		},
		DataDir: "./data",
	}
}

// Load reads path on top of Defaults. A missing file is returned as an
// error satisfying os.IsNotExist.
func Load(path string) (Config, error) {
	cfg := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.Farm.Mode {
	case FarmExhaustive, FarmSafe:
	default:
		errs = append(errs, fmt.Errorf("farm.mode: unknown %q", c.Farm.Mode))
	}
	switch c.Farm.StopAfterMode {
	case StopByRuns, StopByRewards, StopByMinutes:
	default:
		errs = append(errs, fmt.Errorf("farm.stop_after_mode: unknown %q", c.Farm.StopAfterMode))
	}
	if c.Farm.StopAfter < 0 {
		errs = append(errs, errors.New("farm.stop_after: must not be negative"))
	}
	if c.Farm.MinWaitSeconds < 0 || c.Farm.MaxWaitSeconds < c.Farm.MinWaitSeconds {
		errs = append(errs, fmt.Errorf("farm: wait window [%d,%d] is invalid", c.Farm.MinWaitSeconds, c.Farm.MaxWaitSeconds))
	}
	if c.Farm.SaveSlot != 0 && c.Farm.SaveSlot != 1 {
		errs = append(errs, fmt.Errorf("farm.save_slot: must be 0 or 1, got %d", c.Farm.SaveSlot))
	}
	switch c.Retainers.Mode {
	case RetainersAnyDone, RetainersAllDone:
	default:
		errs = append(errs, fmt.Errorf("retainers.mode: unknown %q", c.Retainers.Mode))
	}
	if len(c.World.InstanceTerritories) == 0 {
		errs = append(errs, errors.New("world.instance_territories: empty"))
	}
	if c.Host.TickMS < 0 {
		errs = append(errs, errors.New("host.tick_ms: must not be negative"))
	}
	return errors.Join(errs...)
}

func (c Config) Clone() Config {
	out := c
	out.World.InstanceTerritories = append([]uint16(nil), c.World.InstanceTerritories...)
	out.World.ContainerDataIDs = append([]uint32(nil), c.World.ContainerDataIDs...)
	return out
}

func Marshal(c Config) ([]byte, error) {
	return yaml.Marshal(c)
}
