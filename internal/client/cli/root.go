package cli

import (
	"bufio"
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/memorylane/internal/client/client"
	"github.com/dmitrijs2005/memorylane/internal/client/config"
)

// AdminAPI is the part of the admin client the commands use.
type AdminAPI interface {
	Ping(ctx context.Context) (string, error)
	TriggerUnlocks(ctx context.Context) (*client.SweepSummary, error)
	Close() error
}

// App carries the configuration and I/O shared by every command.
type App struct {
	cfg    *config.Config
	in     *bufio.Reader
	out    io.Writer
	dialer func(cfg *config.Config) (AdminAPI, error)
	upload func(ctx context.Context, url, contentType string, body []byte) error
}

func NewApp(cfg *config.Config, in io.Reader, out io.Writer) *App {
	return &App{
		cfg: cfg,
		in:  bufio.NewReader(in),
		out: out,
		dialer: func(cfg *config.Config) (AdminAPI, error) {
			return client.NewAdminClient(cfg.AdminAddr, cfg.AdminKey)
		},
		upload: uploadToPresignedURL,
	}
}

// NewRootCmd builds the capsulectl command tree.
func NewRootCmd(a *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "capsulectl",
		Short:         "Operate a memorylane time-capsule server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.BindFlags(root.PersistentFlags(), a.cfg)

	root.AddGroup(
		&cobra.Group{ID: "admin", Title: "Admin Commands:"},
		&cobra.Group{ID: "user", Title: "User Commands:"},
	)

	ping := pingCmd(a)
	ping.GroupID = "admin"
	trigger := triggerCmd(a)
	trigger.GroupID = "admin"
	login := loginCmd(a)
	login.GroupID = "user"
	upload := uploadCmd(a)
	upload.GroupID = "user"

	root.AddCommand(ping, trigger, login, upload)
	return root
}

func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.cfg.Timeout)
}

func (a *App) httpClient() *client.HTTPClient {
	return client.NewHTTPClient(a.cfg.ServerURL, a.cfg.Timeout)
}
