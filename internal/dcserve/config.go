// Public domain.

package dcserve

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config is the service configuration.
type Config struct {
	Addr      string        // listen address
	Ephem     string        // vsop87, approx, or table
	VSOP87    string        // VSOP87 directory, empty for the VSOP87 variable
	EphemFile string        // table for Ephem table
	Timeout   time.Duration // limit on one refinement
	MaxObs    int           // largest request accepted
	MaxIter   int           // default iteration limit
}

// LoadConfig reads dcserve.toml from dir, if present, then applies
// DCSERVE_* environment variables, e.g. DCSERVE_ADDR.
func LoadConfig(dir string) (*Config, error) {
	v := viper.New()
	v.SetDefault("addr", ":8080")
	v.SetDefault("ephem", "vsop87")
	v.SetDefault("vsop87", "")
	v.SetDefault("ephemfile", "")
	v.SetDefault("timeout", "30s")
	v.SetDefault("maxobs", 2000)
	v.SetDefault("maxiter", 200)

	v.SetConfigName("dcserve")
	v.SetConfigType("toml")
	if dir == "" {
		dir = "."
	}
	v.AddConfigPath(dir)
	v.SetEnvPrefix("DCSERVE")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
	}
	c := &Config{
		Addr:      v.GetString("addr"),
		Ephem:     v.GetString("ephem"),
		VSOP87:    v.GetString("vsop87"),
		EphemFile: v.GetString("ephemfile"),
		Timeout:   v.GetDuration("timeout"),
		MaxObs:    v.GetInt("maxobs"),
		MaxIter:   v.GetInt("maxiter"),
	}
	if c.Timeout <= 0 {
		return nil, errors.New("timeout must be positive")
	}
	if c.MaxObs < 2 || c.MaxIter < 1 {
		return nil, errors.New("maxobs must be at least 2 and maxiter at least 1")
	}
	return c, nil
}

// EphemArg is the argument for ephem.New.
func (c *Config) EphemArg() string {
	if c.Ephem == "table" {
		return c.EphemFile
	}
	return c.VSOP87
}
