package nlmsg

import (
	"github.com/goccy/go-yaml"
)

// Config tunes a Conn. Buffer sizes of 0 keep the kernel defaults.
type Config struct {
	Groups         []uint32 `yaml:"groups"`
	ReadBuffer     int      `yaml:"readBuffer"`
	WriteBuffer    int      `yaml:"writeBuffer"`
	BroadcastError bool     `yaml:"broadcastError"`
	NoENOBUFS      bool     `yaml:"noENOBUFS"`
	ExtendedAck    bool     `yaml:"extendedAck"`
	Strict         bool     `yaml:"strict"`
	NoAutoAck      bool     `yaml:"noAutoAck"`
}

var DefaultConfig = Config{
	ReadBuffer: DumpBufferSize,
}

func (c *Config) UnmarshalYAML(b []byte) error {
	// Needed to break recursive calls into UnmarshalYAML
	type config Config

	def := config(DefaultConfig)

	if err := yaml.Unmarshal(b, &def); err != nil {
		return err
	}

	*c = Config(def)

	return nil
}
