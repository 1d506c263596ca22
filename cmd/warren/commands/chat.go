package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/dyluth/warren/internal/channel"
	"github.com/dyluth/warren/internal/printer"
	"github.com/spf13/cobra"
)

var chatUser string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the specialists from the terminal",
	Long: `Start an interactive session on stdin/stdout.

Type a question to consult the specialists, or use the commands:
  /switch <route|coordinate|collaborate>, /status, /help, /quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatUser, "user", "u", defaultUser(), "User id the session is stored under")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, configDir(configPath), logger)
	if err != nil {
		return printer.Error("failed to start", err.Error(), nil)
	}
	defer a.close()

	out := printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
	console := channel.NewConsole(channel.NewDispatcher(a.orch, logger), cmd.InOrStdin(), out, chatUser)
	if err := console.Run(ctx); err != nil && ctx.Err() == nil {
		return printer.Error("chat ended unexpectedly", err.Error(), nil)
	}
	return nil
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}
