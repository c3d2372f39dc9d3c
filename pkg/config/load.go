package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable that overrides a setting.
const EnvPrefix = "LONGUEUIL_"

// Loader reads Settings from a YAML file, a .env file and the environment.
// Precedence, highest first: process environment, .env file, YAML file,
// defaults.
type Loader struct {
	// DotEnvPath is read if it exists. Empty disables .env loading.
	DotEnvPath string

	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(key string) (string, bool)
}

// Load reads settings from path using ./.env and the process environment.
func Load(path string) (*Settings, error) {
	return (&Loader{DotEnvPath: ".env"}).Load(path)
}

// Load reads, overlays and validates settings.
func (l *Loader) Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(err, "config file not found", goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", path))
	}

	settings := Default()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, goerr.Wrap(err, "failed to parse config file", goerr.V("path", path))
	}
	if len(settings.Participants) == 0 && len(settings.FamilyMembers) > 0 {
		settings.Participants = settings.FamilyMembers
	}
	settings.FamilyMembers = nil

	lookup, err := l.lookup()
	if err != nil {
		return nil, err
	}
	if err := applyEnv(settings, lookup); err != nil {
		return nil, err
	}

	if err := settings.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid configuration", goerr.V("path", path))
	}

	return settings, nil
}

func (l *Loader) lookup() (func(string) (string, bool), error) {
	processEnv := l.LookupEnv
	if processEnv == nil {
		processEnv = os.LookupEnv
	}

	if l.DotEnvPath == "" {
		return processEnv, nil
	}

	dotEnv, err := godotenv.Read(l.DotEnvPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return processEnv, nil
		}
		return nil, goerr.Wrap(err, "failed to read .env file", goerr.V("path", l.DotEnvPath))
	}

	return func(key string) (string, bool) {
		if v, ok := processEnv(key); ok {
			return v, true
		}
		v, ok := dotEnv[key]
		return v, ok
	}, nil
}

type envBinding struct {
	key   string
	apply func(s *Settings, value string) error
}

var envBindings = []envBinding{
	{"REGISTRATION_URL", func(s *Settings, v string) error {
		s.RegistrationURL = v
		return nil
	}},
	{"HEADLESS", func(s *Settings, v string) error {
		b, err := strconv.ParseBool(v)
		s.Headless = b
		return err
	}},
	{"TIMEOUT", func(s *Settings, v string) error {
		n, err := strconv.Atoi(v)
		s.Timeout = n
		return err
	}},
	{"REFRESH_INTERVAL", func(s *Settings, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		s.RefreshInterval = f
		return err
	}},
	{"DOMAIN", func(s *Settings, v string) error {
		s.Domain = v
		return nil
	}},
	{"ACTIVITY_NAME", func(s *Settings, v string) error {
		s.ActivityName = v
		return nil
	}},
	{"STRICT_CONFIRMATION", func(s *Settings, v string) error {
		b, err := strconv.ParseBool(v)
		s.StrictConfirmation = b
		return err
	}},
	{"INSTALL_BROWSERS", func(s *Settings, v string) error {
		b, err := strconv.ParseBool(v)
		s.InstallBrowsers = b
		return err
	}},
	{"ARTIFACTS_DIR", func(s *Settings, v string) error {
		s.ArtifactsDir = v
		return nil
	}},
	{"LOG_LEVEL", func(s *Settings, v string) error {
		s.LogLevel = v
		return nil
	}},
	{"PARTICIPANTS", func(s *Settings, v string) error {
		// YAML is a superset of JSON, so both list syntaxes are accepted.
		var participants []Participant
		if err := yaml.Unmarshal([]byte(v), &participants); err != nil {
			return err
		}
		s.Participants = participants
		return nil
	}},
}

func applyEnv(s *Settings, lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		key := EnvPrefix + b.key
		v, ok := lookup(key)
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if err := b.apply(s, v); err != nil {
			return goerr.Wrap(err, "invalid environment variable", goerr.V("key", key))
		}
	}
	return nil
}
