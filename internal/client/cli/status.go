package cli

import (
	"context"
	"time"
)

func (c *Cli) runStatus(ctx context.Context) error {
	if c.cfg != nil {
		c.io.Printf("Server:    %s\n", c.cfg.ServerURL)
	}

	if c.authService.IsAuthenticated(ctx) {
		session, err := c.authService.GetSession(ctx)
		if err == nil && session.Email != "" {
			c.io.Printf("Session:   %s\n", session.Email)
		} else {
			c.io.Println("Session:   authenticated")
		}
	} else {
		c.io.Println("Session:   not authenticated")
	}

	ws := c.wsService.GetCurrentWorkspace()
	if ws != nil {
		c.io.Printf("Workspace: %s (%s)\n", ws.Name, ws.ID)
	} else {
		c.io.Println("Workspace: none selected")
	}

	if c.store.Enabled() {
		c.io.Println("Storage:   enabled")
	} else {
		c.io.Println("Storage:   disabled (in-memory only)")
	}

	if ws != nil {
		statusCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		completeness := c.preloadService.GetCacheCompleteness(statusCtx, ws.ID)
		c.io.Printf("Cache:     %.0f%% preloaded\n", completeness*100)
	}
	return nil
}
