package config

import (
	"errors"
	"fmt"
	"strings"

	"keymapd/internal/keycode"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// IsValidationError reports whether err carries configuration errors.
func IsValidationError(err error) bool {
	var errs ValidationErrors
	var single *ValidationError
	return errors.As(err, &errs) || errors.As(err, &single)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ValidateConfig performs semantic validation of a decoded configuration.
// Key combos are already parsed by the decoder, so what remains is the
// structure the type system cannot express.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors

	if len(c.Groups) == 0 {
		errs = append(errs, ValidationError{
			Field:   "groups",
			Message: "at least one group is required",
		})
	}

	errs = append(errs, validateGroups(c.Groups)...)
	errs = append(errs, validateModes(c)...)
	errs = append(errs, validateModmap(c.Modmap)...)
	errs = append(errs, validateDaemon(&c.Daemon)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateGroups(groups GroupList) ValidationErrors {
	var errs ValidationErrors

	seen := make(map[string]bool)
	for _, g := range groups {
		if seen[g.Name] {
			errs = append(errs, ValidationError{
				Field:   "groups." + g.Name,
				Message: "group defined more than once",
			})
		}
		seen[g.Name] = true

		for i, kb := range g.KeyBindings {
			field := fmt.Sprintf("groups.%s.key_bindings[%d]", g.Name, i)
			if kb.Key.Key == 0 {
				errs = append(errs, ValidationError{Field: field + ".key", Message: "key is required"})
			}
			if _, err := kb.Action(); err != nil {
				errs = append(errs, ValidationError{Field: field, Message: err.Error()})
				continue
			}
			if kb.Shell != nil && strings.TrimSpace(*kb.Shell) == "" {
				errs = append(errs, ValidationError{Field: field + ".shell", Message: "shell command cannot be empty"})
			}
		}
	}

	return errs
}

func validateModes(c *Config) ValidationErrors {
	var errs ValidationErrors

	seen := make(map[string]bool)
	for _, m := range c.Modes {
		if m.Name == "" {
			errs = append(errs, ValidationError{Field: "modes", Message: "mode name cannot be empty"})
		}
		if seen[m.Name] {
			errs = append(errs, ValidationError{Field: "modes." + m.Name, Message: "mode defined more than once"})
		}
		seen[m.Name] = true
	}

	if dm := c.DefaultMode(); dm != "" {
		if len(c.Modes) == 0 {
			errs = append(errs, ValidationError{
				Field:   "options.default_mode",
				Message: fmt.Sprintf("default mode %q set but no modes are configured", dm),
			})
		} else if !seen[dm] {
			errs = append(errs, ValidationError{
				Field:   "options.default_mode",
				Message: fmt.Sprintf("unknown mode %q", dm),
			})
		}
	}

	return errs
}

func validateModmap(modmap map[string]string) ValidationErrors {
	var errs ValidationErrors
	for from, to := range modmap {
		if _, err := keycode.Parse(from); err != nil {
			errs = append(errs, ValidationError{Field: "modmap." + from, Message: err.Error()})
		}
		if _, err := keycode.Parse(to); err != nil {
			errs = append(errs, ValidationError{Field: "modmap." + from, Message: err.Error()})
		}
	}
	return errs
}

func validateDaemon(d *DaemonConfig) ValidationErrors {
	var errs ValidationErrors

	for i, dev := range d.Devices {
		if strings.TrimSpace(dev) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("daemon.devices[%d]", i),
				Message: "device path cannot be empty",
			})
		}
	}

	switch strings.ToLower(d.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "daemon.log_level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", d.LogLevel),
		})
	}

	switch strings.ToLower(d.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "daemon.log_format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", d.LogFormat),
		})
	}

	switch strings.ToLower(d.LogOutput) {
	case "stderr", "stdout":
	case "file", "both":
		if d.LogFile == "" {
			errs = append(errs, ValidationError{
				Field:   "daemon.log_file",
				Message: "log file path is required when logging to a file",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "daemon.log_output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stderr, stdout, file, both)", d.LogOutput),
		})
	}

	return errs
}
