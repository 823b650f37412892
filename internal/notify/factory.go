package notify

import (
	"fmt"

	"drive-go/internal/config"
	"drive-go/internal/drive"
)

// NewNotifierFromConfig creates a Notifier implementation based on the mail config type.
func NewNotifierFromConfig(cfg config.MailConfig, logger drive.Logger) (drive.Notifier, error) {
	switch cfg.Type {
	case "log", "":
		return NewLogNotifier(logger), nil
	case "smtp":
		if cfg.Host == "" || cfg.From == "" {
			return nil, fmt.Errorf("smtp mail requires host and from to be set")
		}
		return NewSMTPNotifier(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.From), nil
	default:
		return nil, fmt.Errorf("unknown mail type: %s", cfg.Type)
	}
}
