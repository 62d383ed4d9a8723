package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runSync(ctx context.Context) error {
	if c.wsService.GetCurrentWorkspaceID() == "" {
		return fmt.Errorf("no workspace selected, run 'use <id>' first")
	}
	if err := c.syncService.ForceSync(ctx); err != nil {
		return c.handleAccessDenied(ctx, fmt.Errorf("sync failed: %w", err))
	}
	c.io.Println("Sync complete")
	return nil
}

func (c *Cli) runClean(ctx context.Context) error {
	removed := c.store.CleanExpired(ctx)
	c.io.Printf("Removed %d expired entries\n", removed)
	return nil
}
