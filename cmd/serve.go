package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/sessions"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/giovannicarmo/ecoleta-ui/internal/config"
	"github.com/giovannicarmo/ecoleta-ui/internal/createpoint"
	"github.com/giovannicarmo/ecoleta-ui/internal/model"
	"github.com/giovannicarmo/ecoleta-ui/internal/session"
	"github.com/giovannicarmo/ecoleta-ui/pkg/ecoleta"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the collection point web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		if cfg.Session.Secret == config.DefaultSessionSecret {
			zap.L().Warn("using the default session secret; set ECOLETA_SESSION_SECRET")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		handler, err := buildRouter(cfg, initBackend(), initRegions(st), st)
		if err != nil {
			return err
		}

		go sweepLookups(ctx, st, time.Hour)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildRouter assembles the create-point service and its HTTP routes.
// journal may be nil.
func buildRouter(c *config.Config, backend ecoleta.Client, regions createpoint.Regions, journal createpoint.Journal) (http.Handler, error) {
	center := model.Coordinate{Lat: c.Map.CenterLat, Lng: c.Map.CenterLng}
	forms := session.NewRegistry(c.Session.MaxEntries, time.Duration(c.Session.TTLMinutes)*time.Minute)

	svc := createpoint.NewService(backend, regions, journal, forms, center)
	h, err := createpoint.NewHandler(svc, createpoint.MapView{
		Center:      center,
		Zoom:        c.Map.Zoom,
		TileURL:     c.Map.TileURL,
		Attribution: c.Map.Attribution,
	}, newCookieStore(c.Session))
	if err != nil {
		return nil, err
	}
	return createpoint.NewRouter(h, c.Server.CORSOrigins), nil
}

// newCookieStore creates the signed cookie store that carries the last
// mounted form id and the confirmation flash.
func newCookieStore(c config.SessionConfig) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(c.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   c.TTLMinutes * 60,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

type lookupSweeper interface {
	DeleteExpiredLookups(ctx context.Context) (int, error)
}

// sweepLookups deletes expired lookup cache rows every interval until ctx
// is done.
func sweepLookups(ctx context.Context, st lookupSweeper, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := st.DeleteExpiredLookups(ctx)
			if err != nil {
				zap.L().Warn("lookup cache sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				zap.L().Debug("lookup cache swept", zap.Int("deleted", n))
			}
		}
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
