package notify

import (
	"context"

	"drive-go/internal/drive"
)

// LogNotifier writes share notifications to the log instead of mailing
// them. It is the default for local setups.
type LogNotifier struct {
	logger drive.Logger
}

func NewLogNotifier(logger drive.Logger) *LogNotifier {
	if logger == nil {
		logger = drive.NewNopLogger()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, email, link string) error {
	n.logger.Info("share notification", "to", email, "link", link)
	return nil
}

var _ drive.Notifier = (*LogNotifier)(nil)
