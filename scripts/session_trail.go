// Command session_trail prints the hold audit trail for one checkout
// session, oldest event first. Useful when investigating holds that
// may have been left behind by a failed release.
//
// Usage: go run scripts/session_trail.go -db data/stayhold.db -session <uuid>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"stayhold/internal/database"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dbPath := flag.String("db", "data/stayhold.db", "path to the audit database")
	sessionID := flag.String("session", "", "session id to inspect")
	flag.Parse()

	if *sessionID == "" {
		return fmt.Errorf("-session is required")
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entries, err := db.SessionTrail(ctx, *sessionID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Printf("no audit rows for session %s\n", *sessionID)
		return nil
	}

	for _, e := range entries {
		line := fmt.Sprintf("%s  %-18s", e.CreatedAt.Format(time.RFC3339), e.Action)
		if e.LockID != "" {
			line += fmt.Sprintf("  lock=%s", e.LockID)
		}
		if e.RoomNo != "" {
			line += fmt.Sprintf("  room=%s", e.RoomNo)
		}
		if e.Reason != "" {
			line += fmt.Sprintf("  reason=%q", e.Reason)
		}
		fmt.Println(line)
	}
	return nil
}
