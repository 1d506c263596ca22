package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/warren/internal/channel"
	"github.com/dyluth/warren/internal/printer"
	"github.com/dyluth/warren/internal/session"
	"github.com/spf13/cobra"
)

var statusUser string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a user's session",
	Long: `Show the active strategy and interaction count stored for a user.

Only meaningful with the redis session backend; the memory backend starts
empty on every run.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusUser, "user", "u", defaultUser(), "User id to look up")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	a, err := newApp(ctx, cfg, configDir(configPath), logger)
	if err != nil {
		return printer.Error("failed to start", err.Error(), nil)
	}
	defer a.close()

	st, err := a.orch.Status(ctx, statusUser)
	if err != nil {
		return printer.ErrorWithContext("failed to read session", err.Error(),
			map[string]string{"user": statusUser, "backend": cfg.Sessions.Backend}, nil)
	}

	out := printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
	out.Info("%s\n", channel.StatusText(st))
	if !st.LastUpdated.IsZero() {
		out.Note("Last updated: %s\n", st.LastUpdated.Format(time.RFC3339))
	}

	if total, err := countSessions(ctx, a.store); err == nil {
		out.Note("Sessions stored: %d\n", total)
	}
	return nil
}

func countSessions(ctx context.Context, store session.Store) (int, error) {
	switch s := store.(type) {
	case *session.MemoryStore:
		return s.Len(), nil
	case *session.RedisStore:
		return s.Count(ctx)
	default:
		return 0, fmt.Errorf("unsupported store %T", store)
	}
}
