package app

import (
	"context"
	"log/slog"

	"github.com/comptoir/woocompta/config"
	"github.com/comptoir/woocompta/internal/accounting"
	httpapi "github.com/comptoir/woocompta/internal/api/http"
	"github.com/comptoir/woocompta/internal/apisrv/auth"
	"github.com/comptoir/woocompta/internal/apisrv/reports"
	"github.com/comptoir/woocompta/internal/woo"
)

// App is the main application
type App struct {
	hs   *httpapi.Server
	c    *config.Config
	done chan struct{}
}

// New returns a new instance of App
func New(c *config.Config) *App {
	return &App{
		c:    c,
		done: make(chan struct{}),
	}
}

// Start starts the app
func (a *App) Start(ctx context.Context) error {
	slog.Default().InfoContext(ctx, "starting woocompta")

	source := woo.New(&a.c.Woo)
	if a.c.Woo.BaseURL == "" || a.c.Woo.ConsumerKey == "" || a.c.Woo.ConsumerSecret == "" {
		slog.Default().WarnContext(ctx, "woo credentials not configured, upstream requests will fail")
	}
	if a.c.Auth.Token == "" {
		slog.Default().WarnContext(ctx, "auth token not configured, the API is open")
	}

	acctS := accounting.New(&a.c.Accounting, source)
	authS := auth.New(&a.c.Auth)
	reportsS := reports.New(acctS, a.c.Accounting.DashboardStatuses)

	a.hs = httpapi.New(&a.c.HTTP)
	if err := a.hs.Start(ctx, authS, reportsS); err != nil {
		slog.Default().ErrorContext(ctx, "cannot start http server", "error", err.Error())
		return err
	}

	return nil
}

// Stop stops the application and waits for all services to exit
func (a *App) Stop(ctx context.Context) {
	a.hs.Stop(ctx)
	close(a.done)
}

// Done returns a channel that is closed after the application has exited
func (a *App) Done() chan struct{} {
	return a.done
}
