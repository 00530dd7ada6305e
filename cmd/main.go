package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/inconshreveable/log15/v3"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.ngrok.com/ngrok"
	ngrokcfg "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"TodayBrief/api"
	"TodayBrief/config"
	"TodayBrief/db"
	"TodayBrief/internal/asana"
	"TodayBrief/internal/bot"
	"TodayBrief/internal/brief"
	"TodayBrief/internal/profile"
	"TodayBrief/internal/session"
	"TodayBrief/scheduler"
	"TodayBrief/utils"
)

const (
	shutdownTimeout = 10 * time.Second
	pollTimeout     = 60
)

type environment struct {
	cfg config.Config
	log log15.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	env := &environment{}
	root := &cobra.Command{
		Use:           "todaybrief",
		Short:         "Telegram bot with daily Asana briefs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnv()
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			logger, err := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			env.cfg, env.log = cfg, logger
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), env)
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the bot, the OAuth callback server and the scheduled report",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(cmd.Context(), env)
			},
		},
		reportCmd(env),
		usersCmd(env),
		checkCmd(env),
	)
	return root
}

// app holds the shared connections every subcommand needs.
type app struct {
	store  *db.Store
	rdb    *redis.Client
	asana  *asana.Client
	oauth  *asana.OAuth
	sealer *utils.Sealer
}

func openApp(ctx context.Context, env *environment) (*app, error) {
	cfg := env.cfg
	sealer, err := utils.NewSealer(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	if cfg.EncryptionKey == "" {
		env.log.Warn("ENCRYPTION_KEY not set, tokens are stored in plain text")
	}

	client, err := newAsanaClient(env)
	if err != nil {
		return nil, err
	}

	store, err := db.Open(cfg.DatabaseURL, cfg.Location, env.log.New("component", "db"))
	if err != nil {
		return nil, err
	}
	rdb, err := utils.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, multierr.Append(err, store.Close())
	}
	env.log.Info("connected to redis")

	return &app{
		store:  store,
		rdb:    rdb,
		asana:  client,
		oauth:  asana.NewOAuth(cfg.ClientID, cfg.ClientSecret, cfg.RedirectURL, cfg.AuthURL, cfg.TokenURL, &http.Client{Timeout: cfg.HTTPTimeout}),
		sealer: sealer,
	}, nil
}

func newAsanaClient(env *environment) (*asana.Client, error) {
	return asana.NewClient(env.cfg.APIURL,
		asana.WithHTTPClient(&http.Client{Timeout: env.cfg.HTTPTimeout}),
		asana.WithRetries(env.cfg.APIRetries),
		asana.WithLogger(env.log.New("component", "asana")),
	)
}

func (a *app) Close() error {
	return multierr.Combine(a.rdb.Close(), a.store.Close())
}

func newTelegram(cfg config.Config) (*tgbotapi.BotAPI, error) {
	// Long polling holds the request open for pollTimeout seconds.
	hc := &http.Client{Timeout: cfg.HTTPTimeout + pollTimeout*time.Second}
	tg, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, tgbotapi.APIEndpoint, hc)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return tg, nil
}

// services are the domain components built on top of the shared connections.
type services struct {
	sessions *session.Manager
	profiles *profile.Resolver
	reporter *brief.Reporter
}

func newServices(a *app, env *environment) services {
	cfg, log := env.cfg, env.log
	return services{
		sessions: session.NewManager(a.rdb, a.oauth, cfg.StateTTL),
		profiles: profile.NewResolver(a.rdb, a.store, a.sealer, cfg.TokenTTL, log.New("component", "profile")),
		reporter: brief.NewReporter(a.store, cfg.Location, log.New("component", "report")),
	}
}

func newBot(tg bot.API, a *app, svc services, env *environment) *bot.Bot {
	cfg, log := env.cfg, env.log
	return bot.New(tg, bot.Deps{
		Sessions:        svc.sessions,
		Conversations:   session.NewNotes(a.rdb, cfg.NoteTTL),
		Daily:           brief.NewAggregator(svc.profiles, a.asana, a.store, cfg.WorkspaceGID, cfg.TodaySections, cfg.Location, log.New("component", "daily")),
		Reports:         svc.reporter,
		Profiles:        svc.profiles,
		Notes:           a.store,
		Groups:          cfg.Groups,
		ProvisioningURL: cfg.ProvisioningURL,
	}, log.New("component", "bot"))
}

func serve(ctx context.Context, env *environment) (err error) {
	cfg, log := env.cfg, env.log

	a, err := openApp(ctx, env)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, a.Close()) }()

	tg, err := newTelegram(cfg)
	if err != nil {
		return err
	}
	log.Info("authorized on telegram", "bot", tg.Self.UserName)

	svc := newServices(a, env)
	b := newBot(tg, a, svc, env)
	if err := b.PublishCommands(); err != nil {
		log.Warn("failed to publish command menu", "err", err)
	}

	sched, err := scheduler.New(scheduler.Config{
		Time:     cfg.ReportTime,
		Days:     cfg.ReportDays,
		Group:    cfg.ReportGroup,
		ChatIDs:  cfg.ReportChatIDs,
		Location: cfg.Location,
	}, b, log.New("component", "scheduler"))
	if err != nil {
		return err
	}

	callback := &api.Handler{
		Sessions:        svc.sessions,
		OAuth:           a.oauth,
		Asana:           a.asana,
		Profiles:        svc.profiles,
		Notifier:        b,
		ProvisioningURL: cfg.ProvisioningURL,
		Log:             log.New("component", "callback"),
	}
	checks := map[string]api.Pinger{
		"db":    a.store.Ping,
		"redis": func(ctx context.Context) error { return a.rdb.Ping(ctx).Err() },
	}

	ln, err := listen(ctx, cfg, log)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           SetupRouter(callback, checks, log.New("component", "http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := tg.GetUpdatesChan(u)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b.Run(gctx, updates)
		return nil
	})
	g.Go(func() error {
		log.Info("http server running", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		tg.StopReceivingUpdates()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		sched.Stop(sctx)
		return srv.Shutdown(sctx)
	})
	sched.Start()

	return g.Wait()
}

// listen opens the local port, or an ngrok tunnel when an authtoken is configured.
func listen(ctx context.Context, cfg config.Config, log log15.Logger) (net.Listener, error) {
	if cfg.NgrokToken == "" {
		ln, err := net.Listen("tcp", ":"+cfg.Port)
		if err != nil {
			return nil, fmt.Errorf("listen: %w", err)
		}
		return ln, nil
	}

	var opts []ngrokcfg.HTTPEndpointOption
	if cfg.NgrokDomain != "" {
		opts = append(opts, ngrokcfg.WithDomain(cfg.NgrokDomain))
	}
	tun, err := ngrok.Listen(ctx, ngrokcfg.HTTPEndpoint(opts...), ngrok.WithAuthtoken(cfg.NgrokToken))
	if err != nil {
		return nil, fmt.Errorf("listen: ngrok: %w", err)
	}
	log.Info("ngrok tunnel established", "url", tun.URL())
	return tun, nil
}
