package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks struct tags first and then the rules that depend on the
// Type of each tagged union.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if cfg.Database.Type == "sqlite" && cfg.Database.DataDir == "" {
		return fmt.Errorf("database: data_dir is required for type sqlite")
	}

	switch cfg.Storage.Type {
	case "filesystem":
		if cfg.Storage.FSRoot == "" {
			return fmt.Errorf("storage: fs_root is required for type filesystem")
		}
	case "s3":
		if cfg.Storage.S3Bucket == "" {
			return fmt.Errorf("storage: s3_bucket is required for type s3")
		}
		if cfg.Storage.S3Region == "" {
			return fmt.Errorf("storage: s3_region is required for type s3")
		}
		if (cfg.Storage.S3AccessKeyID == "") != (cfg.Storage.S3SecretAccessKey == "") {
			return fmt.Errorf("storage: s3_access_key_id and s3_secret_access_key must be set together")
		}
	}

	if cfg.Mail.Type == "smtp" {
		if cfg.Mail.Host == "" {
			return fmt.Errorf("mail: host is required for type smtp")
		}
		if cfg.Mail.From == "" {
			return fmt.Errorf("mail: from is required for type smtp")
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		// Return the first validation error with context
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
