package solver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every configuration error.
var ErrInvalidConfig = errors.New("invalid solver config")

var validate = validator.New()

// Config controls the iteration budget, convergence threshold and damping
// schedule of the solver.
type Config struct {
	// MaxIterations is the outer iteration budget.
	MaxIterations int `toml:"max_iterations" yaml:"max_iterations" validate:"gte=1"`
	// Tolerance is the RMS weighted residual at which the solve has converged.
	Tolerance float64 `toml:"tolerance" yaml:"tolerance" validate:"gt=0"`

	// Levenberg-Marquardt damping schedule.
	InitialDamping  float64 `toml:"initial_damping" yaml:"initial_damping" validate:"gt=0"`
	DampingIncrease float64 `toml:"damping_increase" yaml:"damping_increase" validate:"gt=1"`
	DampingDecrease float64 `toml:"damping_decrease" yaml:"damping_decrease" validate:"gt=0,lt=1"`
	MinDamping      float64 `toml:"min_damping" yaml:"min_damping" validate:"gt=0"`
	MaxDamping      float64 `toml:"max_damping" yaml:"max_damping" validate:"gtfield=MinDamping"`

	// MaxStepAttempts bounds the rejected steps tried within one iteration.
	MaxStepAttempts int `toml:"max_step_attempts" yaml:"max_step_attempts" validate:"gte=1"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		MaxIterations:   100,
		Tolerance:       1e-3,
		InitialDamping:  1e-3,
		DampingIncrease: 10,
		DampingDecrease: 0.1,
		MinDamping:      1e-12,
		MaxDamping:      1e12,
		MaxStepAttempts: 10,
	}
}

// Validate reports whether the configuration is usable. The returned error
// wraps ErrInvalidConfig.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// LoadConfig reads a TOML (.toml) or YAML (.yaml, .yml) file over
// DefaultConfig, applies LIGNIN_SOLVER_* environment overrides and
// validates the result. An empty path yields the defaults plus overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read solver config: %w", err)
		}
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".toml":
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
			}
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
			}
		default:
			return cfg, fmt.Errorf("%w: unsupported config format %q", ErrInvalidConfig, ext)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("LIGNIN_SOLVER_MAX_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: LIGNIN_SOLVER_MAX_ITERATIONS: %v", ErrInvalidConfig, err)
		}
		cfg.MaxIterations = n
	}
	if v := os.Getenv("LIGNIN_SOLVER_TOLERANCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: LIGNIN_SOLVER_TOLERANCE: %v", ErrInvalidConfig, err)
		}
		cfg.Tolerance = f
	}
	return nil
}
