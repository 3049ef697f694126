package config

import (
	"fmt"
	"os"
)

// DefaultYAML is written by `farmbot init`. %s is the sender id.
const DefaultYAML = `# farmbot configuration
farm:
  # exhaustive: search the floor when the hoard is not in view
  # safe: leave immediately instead
  mode: exhaustive
  stop_after: 50
  # runs | rewards | minutes
  stop_after_mode: rewards
  # wait a random few seconds before entering
  paranoid: false
  min_wait_seconds: 3
  max_wait_seconds: 6
  # save file loaded on entry (0 or 1)
  save_slot: 0

retainers:
  enabled: false
  # any | all
  mode: all

telemetry:
  disabled: false
  # collection endpoint; leave empty to keep records local
  endpoint: ""
  sender_id: "%s"

world:
  hub_territory: 613
  first_floor_territory: 770
  instance_territories: [771, 772]
  reward_data_id: 2007542
  container_data_ids: [2007357, 2007358]
  messages:
    sensed_present: "You sense the Accursed Hoard calling you..."
    sensed_absent: "You do not sense the call of the Accursed Hoard on this floor."
    collected: "You discover a piece of the Accursed Hoard!"

host:
  url: ws://127.0.0.1:8765/v1/farm
  tick_ms: 100

data_dir: ./data

counters:
  runs: 0
  rewards: 0
  seconds: 0
  achievement_progress: 0
`

// WriteDefault creates path from the template. It refuses to overwrite.
func WriteDefault(path, senderID string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	return writeFileAtomic(path, []byte(fmt.Sprintf(DefaultYAML, senderID)))
}
