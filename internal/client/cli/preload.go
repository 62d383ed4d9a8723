package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runPreload(ctx context.Context) error {
	workspaceID := c.wsService.GetCurrentWorkspaceID()
	if workspaceID == "" {
		return fmt.Errorf("no workspace selected, run 'use <id>' first")
	}

	for progress := range c.preloadService.SmartPreload(ctx, workspaceID) {
		if progress.Completed {
			c.io.Printf("Preload complete (%d tasks)\n", progress.Total)
			continue
		}
		c.io.Printf("[%3d%%] %s\n", progress.Percentage, progress.CurrentTask)
	}
	return nil
}
