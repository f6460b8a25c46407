package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/streamgate/streamgate/pkg/stream"
)

// Validate checks the configuration for invalid values.
//
// Validate expects defaults to be applied already (Load does both), so a
// zero value that has a default never fails here. Values are checked, not
// normalized; normalization happens in ApplyDefaults.
//
// Returns an error naming every offending field and the rule it broke.
func Validate(cfg *Config) error {
	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			msgs := make([]string, 0, len(validationErrors))
			for _, fieldErr := range validationErrors {
				msgs = append(msgs, fmt.Sprintf("field %q failed on the %q rule", fieldErr.Namespace(), fieldErr.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Rules the struct tags cannot express.
	if err := validateChunkSize(&cfg.Stream); err != nil {
		return err
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return errors.New("telemetry.endpoint is required when telemetry is enabled")
	}
	if cfg.Profiling.Enabled && cfg.Profiling.Endpoint == "" {
		return errors.New("profiling.endpoint is required when profiling is enabled")
	}

	return nil
}

// validateChunkSize enforces the backend's block constraints: fetches must
// be 4096-aligned and no larger than 1MiB.
func validateChunkSize(cfg *StreamConfig) error {
	chunk := cfg.ChunkSize.Int64()
	if chunk <= 0 || chunk%stream.BlockAlign != 0 || chunk > stream.MaxChunkSize {
		return fmt.Errorf("stream.chunk_size must be a positive multiple of %d no larger than %d, got %d",
			stream.BlockAlign, stream.MaxChunkSize, chunk)
	}
	return nil
}
