package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation via
// struct tags, with additional custom validation for rules that cannot be
// expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if len(cfg.Users) == 0 {
		return fmt.Errorf("users: at least one user must be configured")
	}

	logins := make(map[string]bool)
	for i, usr := range cfg.Users {
		if logins[usr.Login] {
			return fmt.Errorf("users[%d]: duplicate login %q", i, usr.Login)
		}
		logins[usr.Login] = true

		if !filepath.IsAbs(usr.Path) {
			return fmt.Errorf("users[%d]: path %q must be absolute", i, usr.Path)
		}
	}

	// User roots must not nest: a nested root would double-count quota
	// usage and let one tenant's URIs reach another's files.
	for i, outer := range cfg.Users {
		for j, inner := range cfg.Users {
			if i == j {
				continue
			}
			if isSubPath(outer.Path, inner.Path) {
				return fmt.Errorf("users[%d]: path %q nests inside users[%d] path %q", j, inner.Path, i, outer.Path)
			}
		}
	}

	if cfg.Metadata.Type == "badger" {
		if path, _ := cfg.Metadata.Badger["db_path"].(string); path == "" {
			return fmt.Errorf("metadata.badger: db_path is required when metadata.type is badger")
		}
	}

	return nil
}

// isSubPath reports whether child lies strictly below parent.
func isSubPath(parent, child string) bool {
	rel, err := filepath.Rel(filepath.Clean(parent), filepath.Clean(child))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
