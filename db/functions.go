package db

import (
	"context"
	"fmt"

	"github.com/supabase-community/functions-go"
	"go.uber.org/zap"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
)

// CompletionNotifier calls a Supabase edge function whenever a list item
// becomes completed. With no function configured it does nothing.
type CompletionNotifier struct {
	functions *functions.Client
	name      string
	logger    *zap.Logger
}

func NewCompletionNotifier(fc *functions.Client, name string, logger *zap.Logger) *CompletionNotifier {
	return &CompletionNotifier{functions: fc, name: name, logger: logger}
}

func (n *CompletionNotifier) NotifyCompleted(ctx context.Context, item *types.ListItem) error {
	if n == nil || n.name == "" || n.functions == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	resp, err := n.functions.Invoke(n.name, map[string]any{
		"user_id":  item.UserID,
		"anime_id": item.AnimeID,
		"title":    item.Title,
	})
	if err != nil {
		return fmt.Errorf("invoke %s: %w", n.name, err)
	}
	n.logger.Debug("completion hook invoked",
		zap.String("function", n.name),
		zap.Int("anime_id", item.AnimeID),
		zap.Int("response_bytes", len(resp)))
	return nil
}
