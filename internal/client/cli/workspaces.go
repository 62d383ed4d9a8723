package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runWorkspaces(ctx context.Context) error {
	workspaces, err := c.apiClient.GetMyWorkspaces(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workspaces: %w", err)
	}
	if len(workspaces) == 0 {
		c.io.Println("No workspaces available")
		return nil
	}

	currentID := c.wsService.GetCurrentWorkspaceID()
	for _, ws := range workspaces {
		marker := " "
		if ws.ID == currentID {
			marker = "*"
		}
		c.io.Printf("%s %s  %s (%s)\n", marker, ws.ID, ws.Name, ws.Role)
	}
	return nil
}

func (c *Cli) runUse(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: use <workspace-id>")
	}
	id := args[0]

	workspaces, err := c.apiClient.GetMyWorkspaces(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workspaces: %w", err)
	}
	for _, ws := range workspaces {
		if ws.ID == id {
			if err := c.wsService.SetCurrentWorkspace(ctx, &ws, false); err != nil {
				return fmt.Errorf("failed to switch workspace: %w", err)
			}
			c.io.Printf("Active workspace: %s (%s)\n", ws.Name, ws.ID)
			return nil
		}
	}
	return fmt.Errorf("workspace %q not found", id)
}
