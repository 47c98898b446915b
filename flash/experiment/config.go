// Package experiment runs the write amplification and wear experiments
// described by a configuration file.
package experiment

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/sarchlab/ftlsim/flash/ftl"
	"github.com/sarchlab/ftlsim/flash/nand"
	"github.com/sarchlab/ftlsim/flash/workload"
)

// Names of the device policies a case can use.
const (
	PolicyBaseline     = "baseline"
	PolicyWearLeveling = "wear-leveling"
)

// A Case is one device configuration to run.
type Case struct {
	Name          string  `mapstructure:"name"`
	NumBlocks     int     `mapstructure:"num_blocks"`
	NumLBAs       int     `mapstructure:"num_lbas"`
	PagesPerBlock int     `mapstructure:"pages_per_block"`
	Iterations    int     `mapstructure:"iterations"`
	Policy        string  `mapstructure:"policy"`
	Workload      string  `mapstructure:"workload"`
	Period        int     `mapstructure:"period"`
	HotLBAs       int     `mapstructure:"hot_lbas"`
	HotRatio      float64 `mapstructure:"hot_ratio"`
	Seed          int64   `mapstructure:"seed"`
}

// Config is the content of an experiment file.
type Config struct {
	// Policy, Workload and Seed apply to the cases that do not set their own.
	Policy   string `mapstructure:"policy"`
	Workload string `mapstructure:"workload"`
	Seed     int64  `mapstructure:"seed"`

	// WearThreshold is the erase count gap at which wear-leveling devices
	// start to move cold data.
	WearThreshold int `mapstructure:"wear_threshold"`

	Cases []Case `mapstructure:"cases"`
}

// LoadConfig reads an experiment file. JSON and YAML files are accepted,
// either as an object with a cases list or, for JSON, as a bare list of
// cases. The top level settings can be overridden with FTLSIM_POLICY,
// FTLSIM_WORKLOAD, FTLSIM_SEED and FTLSIM_WEAR_THRESHOLD.
func LoadConfig(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading experiment file: %w", err)
	}

	configType := strings.TrimPrefix(filepath.Ext(path), ".")
	if configType == "yml" {
		configType = "yaml"
	}

	return ParseConfig(content, configType)
}

// ParseConfig parses an experiment description of the given type, "json" or
// "yaml".
func ParseConfig(content []byte, configType string) (Config, error) {
	v := viper.New()
	v.SetConfigType(configType)

	v.SetDefault("policy", PolicyBaseline)
	v.SetDefault("workload", workload.Uniform)
	v.SetDefault("seed", 1)
	v.SetDefault("wear_threshold", 16)

	v.SetEnvPrefix("FTLSIM")
	v.AutomaticEnv()

	trimmed := bytes.TrimSpace(content)
	if configType == "json" && bytes.HasPrefix(trimmed, []byte("[")) {
		trimmed = []byte(`{"cases": ` + string(trimmed) + `}`)
	}

	if err := v.ReadConfig(bytes.NewReader(trimmed)); err != nil {
		return Config{}, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c *Config) applyDefaults() {
	for i := range c.Cases {
		tc := &c.Cases[i]

		if tc.Name == "" {
			tc.Name = fmt.Sprintf("case-%d", i+1)
		}

		if tc.PagesPerBlock == 0 {
			tc.PagesPerBlock = nand.DefaultPagesPerBlock
		}

		if tc.Policy == "" {
			tc.Policy = c.Policy
		}

		if tc.Workload == "" {
			tc.Workload = c.Workload
		}

		if tc.Seed == 0 {
			tc.Seed = c.Seed
		}
	}
}

// Validate checks that every case can be built and run.
func (c Config) Validate() error {
	if len(c.Cases) == 0 {
		return fmt.Errorf("experiment has no cases")
	}

	names := make(map[string]bool)

	for _, tc := range c.Cases {
		if names[tc.Name] {
			return fmt.Errorf("case %s is defined twice", tc.Name)
		}

		names[tc.Name] = true

		if err := tc.validate(); err != nil {
			return fmt.Errorf("case %s: %w", tc.Name, err)
		}
	}

	if c.WearThreshold < 0 {
		return fmt.Errorf("wear threshold cannot be negative")
	}

	return nil
}

func (tc Case) validate() error {
	switch {
	case tc.NumBlocks <= 0:
		return fmt.Errorf("num_blocks must be positive")
	case tc.NumLBAs <= 0:
		return fmt.Errorf("num_lbas must be positive")
	case tc.PagesPerBlock <= 0:
		return fmt.Errorf("pages_per_block must be positive")
	case tc.Iterations < 0:
		return fmt.Errorf("iterations cannot be negative")
	}

	if tc.Policy != PolicyBaseline && tc.Policy != PolicyWearLeveling {
		return fmt.Errorf("unknown policy %q", tc.Policy)
	}

	_, err := tc.newWorkload()

	return err
}

func (tc Case) newWorkload() (workload.Workload, error) {
	return workload.New(tc.Workload, workload.Options{
		NumLBAs:  tc.NumLBAs,
		Seed:     tc.Seed,
		Period:   tc.Period,
		HotLBAs:  tc.HotLBAs,
		HotRatio: tc.HotRatio,
	})
}

// PhysicalPages returns the raw capacity of the case's device in pages.
func (tc Case) PhysicalPages() int {
	return tc.NumBlocks * tc.PagesPerBlock
}

// OverProvisioning returns the spare capacity relative to the logical
// capacity.
func (tc Case) OverProvisioning() float64 {
	return float64(tc.PhysicalPages()-tc.NumLBAs) / float64(tc.NumLBAs)
}

func (tc Case) newDevice(policy string, wearThreshold int) *ftl.Comp {
	b := ftl.MakeBuilder().
		WithNumBlocks(tc.NumBlocks).
		WithNumLBAs(tc.NumLBAs).
		WithPagesPerBlock(tc.PagesPerBlock)

	if policy == PolicyWearLeveling {
		b = b.WithWearLeveling().WithWearThreshold(wearThreshold)
	}

	return b.Build(tc.Name + "-" + policy)
}
