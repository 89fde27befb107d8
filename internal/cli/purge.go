package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/runnerr0/streamtally/internal/storage"
)

// Execute implements the go-flags Commander interface for PurgeCommand.
func (c *PurgeCommand) Execute(args []string) error {
	if !c.All {
		return fmt.Errorf("purge requires --all flag for safety")
	}

	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	// Confirmation prompt unless --force
	if !c.Force {
		fmt.Printf("⚠ WARNING: This will permanently delete ALL stored posts from the %s backend.\n", cfg.Storage.Backend)
		fmt.Println()
		fmt.Println("This action cannot be undone.")
		fmt.Println()
		fmt.Print(`Type "PURGE" to confirm: `)

		var in io.Reader = os.Stdin
		if c.in != nil {
			in = c.in
		}
		scanner := bufio.NewScanner(in)
		if !scanner.Scan() {
			return fmt.Errorf("aborted: no input received")
		}
		input := strings.TrimSpace(scanner.Text())
		if input != "PURGE" {
			return fmt.Errorf("aborted: confirmation text did not match")
		}
	}

	ctx := context.Background()
	store := c.store
	if store == nil {
		store, err = storage.Open(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()
	}

	return c.executeWithStore(ctx, store)
}

func (c *PurgeCommand) executeWithStore(ctx context.Context, store storage.Store) error {
	before, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count events: %w", err)
	}
	if err := store.Purge(ctx); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}

	// Output
	if c.globals != nil && c.globals.JSON {
		out := map[string]interface{}{
			"purged":  true,
			"deleted": before,
			"message": "all events deleted",
		}
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(out)
	}

	fmt.Printf("Purged %s events. The store is empty.\n", formatNumber(before))
	return nil
}
