package postgres

import (
	"campus-chat/repositories"
	"context"
	"fmt"
	"log/slog"
)

// publish pushes committed changes. A lost notification only delays
// listeners until their next reload, so failures are logged and swallowed.
func publish(ctx context.Context, log *slog.Logger, publisher repositories.ChangePublisher, changes ...repositories.Change) {
	if publisher == nil {
		return
	}
	for _, change := range changes {
		if err := publisher.Publish(ctx, change); err != nil {
			log.Warn(fmt.Sprintf("Change on %s not published: %v", change.Table, err))
		}
	}
}
