package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DavidGamba/go-getoptions"
	"github.com/cyverse-de/notification-gateway/alert"
	"github.com/cyverse-de/notification-gateway/backend"
	"github.com/cyverse-de/notification-gateway/config"
	"github.com/cyverse-de/notification-gateway/credential"
	"github.com/cyverse-de/notification-gateway/db"
	"github.com/cyverse-de/notification-gateway/gateway"
	"github.com/cyverse-de/notification-gateway/handlers"
	"github.com/cyverse-de/notification-gateway/handlerset"
	"github.com/cyverse-de/notification-gateway/logging"
	"github.com/cyverse-de/notification-gateway/metrics"
	"github.com/cyverse-de/notification-gateway/push"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var log = logging.Log.WithField("package", "main")

// commandLineOptionValues represents the values of the command-line options that were passed on the command line when
// this service was invoked.
type commandLineOptionValues struct {
	Config string
	Debug  bool
}

func parseCommandLine() *commandLineOptionValues {
	optionValues := &commandLineOptionValues{}
	opt := getoptions.New()

	// Default option values.
	defaultConfigPath := "/etc/notification-gateway/config.yml"

	// Define the command-line options.
	opt.Bool("help", false, opt.Alias("h", "?"))
	opt.StringVar(&optionValues.Config, "config", defaultConfigPath,
		opt.Alias("c"),
		opt.Description("the path to the configuration file"))
	opt.BoolVar(&optionValues.Debug, "debug", false,
		opt.Alias("d"),
		opt.Description("enable debug logging"))

	// Parse the command line, handling requests for help and usage errors.
	_, err := opt.Parse(os.Args[1:])
	if opt.Called("help") {
		fmt.Fprint(os.Stderr, opt.Help())
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n\n", err)
		fmt.Fprint(os.Stderr, opt.Help(getoptions.HelpSynopsis))
		os.Exit(1)
	}

	return optionValues
}

// tokenSource returns the source of the backend authentication token selected in the configuration.
func tokenSource(cfg *config.Config, store db.KeyValueStore) (backend.TokenSource, error) {
	if cfg.AuthSource == config.AuthSourceKeyring {
		return credential.NewKeyringTokenSource(cfg.KeyringDir, cfg.KeyringPassword)
	}
	return db.NewKVTokenSource(store), nil
}

// presenter returns the alert presenter selected in the configuration.
func presenter(cfg *config.Config) alert.Presenter {
	if cfg.AlertPresenter == config.PresenterLog {
		return alert.NewLogPresenter()
	}
	return alert.NewTerminalPresenter(os.Stdout)
}

// listen consumes broker messages until the context is canceled. The messaging client takes care of reconnecting.
func listen(ctx context.Context, cfg *config.Config, messaging push.Messaging, handlerFor map[string]handlers.MessageHandler) error {
	// The device token names this device's durable queue. Without one the queue is temporary.
	token, err := messaging.Token(ctx)
	if err != nil {
		log.WithError(err).Info("no push token is available; listening for real-time events only")
		token = ""
	}

	hs, err := handlerset.New(&cfg.AMQP, handlerFor)
	if err != nil {
		return err
	}
	defer hs.Close()

	hs.Listen(ctx, token)
	return nil
}

// serveMetrics exposes the metrics endpoint until the context is canceled.
func serveMetrics(ctx context.Context, addr string) error {
	server := &http.Server{Addr: addr, Handler: metrics.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Infof("serving metrics on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "the metrics server failed")
	}
	return nil
}

func main() {
	// Parse the command-line.
	optionValues := parseCommandLine()

	// Initialize logging.
	logging.SetupLogging(optionValues.Debug)

	// Read in the configuration file.
	cfg, err := config.Load(optionValues.Config)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the local key-value store.
	store, err := db.OpenStore(ctx, cfg.CacheDriver, cfg.CacheURI)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	// Create the backend client.
	tokens, err := tokenSource(cfg, store)
	if err != nil {
		log.Fatal(err)
	}
	client := backend.NewClient(cfg.BackendURL, tokens, cfg.BackendTimeout)

	// Create and initialize the gateway.
	messaging := push.Select(cfg.PushEnabled, store)
	gw := gateway.New(cfg.Gateway, client, db.NewNotificationCache(store), messaging, presenter(cfg))
	gw.Initialize(ctx)

	// Prime the offline cache.
	log.Infof("%d unread notifications", gw.GetUnreadCount(ctx))
	gw.GetNotifications(ctx)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return listen(ctx, cfg, messaging, handlers.InitMessageHandlers(gw))
	})
	if cfg.MetricsListenAddr != "" {
		group.Go(func() error {
			return serveMetrics(ctx, cfg.MetricsListenAddr)
		})
	}

	if err = group.Wait(); err != nil {
		log.Error(err)
	}
	log.Info("shutting down")
}
