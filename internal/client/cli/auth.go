package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/nvoropaev/traincache/internal/client/storage"
)

func (c *Cli) runLogin(ctx context.Context, args []string) error {
	var token string
	if len(args) > 0 {
		token = strings.TrimSpace(args[0])
	} else {
		input, err := c.io.ReadInput("API token: ")
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		token = strings.TrimSpace(input)
	}
	if token == "" {
		return fmt.Errorf("token is empty")
	}

	if err := c.authService.SaveSession(ctx, &storage.Session{
		AccessToken: token,
	}); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	c.io.Println("Logged in")
	return nil
}

func (c *Cli) runLogout(ctx context.Context) error {
	if err := c.authService.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	c.wsService.Clear(ctx)
	c.io.Println("Logged out, local caches cleared")
	return nil
}
