package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/anilist"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/api"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/auth"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/carousel"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/config"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/db"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/handler"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/home"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/jobs"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/logging"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/profile"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/tracker"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
)

// positionTTL is how long a carousel remembers the page a user left it on.
const positionTTL = 24 * time.Hour

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "animeit",
		Short:        "Anime and manga tracker backed by AniList and Supabase",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	})
	root.AddCommand(newSearchCmd(&configPath), newExportCmd(&configPath))
	return root
}

// app holds the wired services shared by the commands.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	clock     clockwork.Clock
	catalog   *anilist.Client
	clients   *db.Clients
	auth      *auth.Service
	tracker   *tracker.Tracker
	profiles  *profile.Service
	home      *home.Service
	positions *carousel.Positions
}

func setup(configPath string, withDB bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, clock: clockwork.NewRealClock()}
	a.catalog = anilist.New(cfg.AniList.URL,
		anilist.WithHTTPClient(&http.Client{Timeout: cfg.AniList.Timeout}),
		anilist.WithClock(a.clock),
		anilist.WithLogger(logger.Named("anilist")),
		anilist.WithCacheTTL(cfg.AniList.CacheTTL),
	)
	if !withDB {
		return a, nil
	}

	a.clients, err = db.InitDB(cfg.Supabase)
	if err != nil {
		return nil, err
	}

	profileStore := db.NewProfileStore(a.clients.Supabase)
	notifier := db.NewCompletionNotifier(a.clients.Functions, cfg.Supabase.CompletionFunction, logger.Named("functions"))

	a.auth = auth.NewService(auth.NewGoTrue(a.clients.Auth), profileStore, cfg.Supabase.JWTSecret, a.clock, logger.Named("auth"))
	a.tracker = tracker.New(db.NewListStore(a.clients.Supabase), a.catalog, notifier, a.clock, logger.Named("tracker"))
	a.profiles = profile.NewService(profileStore,
		db.NewAvatarStore(a.clients.Supabase.Storage, cfg.Supabase.AvatarBucket), a.clock, logger.Named("profile"))
	a.positions = carousel.NewPositions(positionTTL, a.clock)
	a.home = home.NewService(a.catalog, a.tracker, a.positions, logger.Named("home"))
	return a, nil
}

func serve(ctx context.Context, configPath string) error {
	a, err := setup(configPath, true)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cron, err := jobs.InitCronJobs(a.cfg.RefreshSchedule, a.home, a.home, a.catalog, a.clock, a.logger.Named("jobs"))
	if err != nil {
		return err
	}
	cron.Start()
	defer func() {
		if err := cron.Shutdown(); err != nil {
			a.logger.Warn("scheduler shutdown failed", zap.Error(err))
		}
	}()
	if err := cron.WarmNow(); err != nil {
		a.logger.Warn("initial warm-up not scheduled", zap.Error(err))
	}

	server := api.NewServer(a.cfg.HTTPAddr, a.logger, a.auth.RequireUser, api.Handlers{
		Auth:    handler.NewAuthHandler(a.auth, a.logger),
		Catalog: handler.NewCatalogHandler(a.catalog, a.logger),
		List:    handler.NewListHandler(a.tracker, a.logger),
		Profile: handler.NewProfileHandler(a.profiles, a.logger),
		Home:    handler.NewHomeHandler(a.home, a.logger),
	})
	return server.RunServer(ctx)
}

func newSearchCmd(configPath *string) *cobra.Command {
	var (
		mediaType string
		page      int
		perPage   int
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the AniList catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configPath, false)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			mt, err := types.ParseMediaType(mediaType)
			if err != nil {
				return err
			}
			result, err := a.catalog.Search(cmd.Context(), anilist.SearchParams{
				Query:   strings.Join(args, " "),
				Type:    mt,
				Page:    page,
				PerPage: perPage,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, m := range result.Media {
				fmt.Fprintf(out, "%8d  %-50s %4d %s\n", m.ID, m.Title.Preferred(), m.Units(), m.Format)
			}
			fmt.Fprintf(out, "page %d of %d (%d results)\n",
				result.PageInfo.CurrentPage, result.PageInfo.LastPage, result.PageInfo.Total)
			return nil
		},
	}
	cmd.Flags().StringVarP(&mediaType, "type", "t", "anime", "anime or manga")
	cmd.Flags().IntVar(&page, "page", 1, "result page")
	cmd.Flags().IntVar(&perPage, "per-page", 10, "results per page (max 50)")
	return cmd
}

func newExportCmd(configPath *string) *cobra.Command {
	var (
		userID string
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a user's list as json, csv or pdf",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configPath, true)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			data, err := a.tracker.Export(cmd.Context(), userID, format)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			a.logger.Info("list exported", zap.String("user_id", userID), zap.String("file", out), zap.Int("bytes", len(data)))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (uuid)")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json, csv or pdf")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, stdout when empty")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
