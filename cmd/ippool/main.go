package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	kingpin "github.com/alecthomas/kingpin/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/spluca/ippool"
	"github.com/spluca/ippool/config"
	"github.com/spluca/ippool/httpapi"
)

var (
	mainLog = logrus.WithField("prefix", "main")

	version = "dev"
)

type cliFlags struct {
	conf       *string
	port       *int
	network    *string
	gateway    *string
	rangeStart *uint8
	rangeEnd   *uint8
	basePath   *string
	logLevel   *string
	debug      *bool

	portSet       bool
	networkSet    bool
	gatewaySet    bool
	rangeStartSet bool
	rangeEndSet   bool
	basePathSet   bool
	logLevelSet   bool
	debugSet      bool
}

func addFlags(app *kingpin.Application) *cliFlags {
	f := &cliFlags{}
	f.conf = app.Flag("conf", "Path to a YAML configuration file").Short('c').Envar("IPPOOL_CONF").String()
	f.port = app.Flag("port", "Port to listen on").Short('p').IsSetByUser(&f.portSet).Int()
	f.network = app.Flag("network", "Network prefix (e.g., 172.16.0 for 172.16.0.0/24)").Short('n').IsSetByUser(&f.networkSet).String()
	f.gateway = app.Flag("gateway", "Gateway IP address").Short('g').IsSetByUser(&f.gatewaySet).String()
	f.rangeStart = app.Flag("range-start", "First allocatable host number").IsSetByUser(&f.rangeStartSet).Uint8()
	f.rangeEnd = app.Flag("range-end", "Last allocatable host number").IsSetByUser(&f.rangeEndSet).Uint8()
	f.basePath = app.Flag("base-path", "Path prefix for the API routes").IsSetByUser(&f.basePathSet).String()
	f.logLevel = app.Flag("log-level", "Log level (debug, info, warn, error)").IsSetByUser(&f.logLevelSet).String()
	f.debug = app.Flag("debug", "Enable debug mode").Short('d').IsSetByUser(&f.debugSet).Bool()
	return f
}

// apply overrides conf with the flags given on the command line.
func (f *cliFlags) apply(conf *config.Config) {
	if f.portSet {
		conf.ListenPort = *f.port
	}
	if f.networkSet {
		conf.Network = *f.network
	}
	if f.gatewaySet {
		conf.Gateway = *f.gateway
	}
	if f.rangeStartSet {
		conf.RangeStart = *f.rangeStart
	}
	if f.rangeEndSet {
		conf.RangeEnd = *f.rangeEnd
	}
	if f.basePathSet {
		conf.BasePath = *f.basePath
	}
	if f.logLevelSet {
		conf.LogLevel = *f.logLevel
	}
	if f.debugSet {
		conf.Debug = *f.debug
	}
}

func main() {
	app := kingpin.New("ippool", "IP Pool API server")
	app.Version(version)
	app.HelpFlag.Short('h')
	flags := addFlags(app)
	kingpin.MustParse(app.Parse(os.Args[1:]))

	var conf config.Config
	if err := config.Load(*flags.conf, &conf); err != nil {
		mainLog.WithError(err).Fatal("Error loading configuration")
	}
	flags.apply(&conf)
	if err := conf.Validate(); err != nil {
		mainLog.WithError(err).Fatal("Invalid configuration")
	}

	setupLogging(&conf)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &conf); err != nil {
		mainLog.WithError(err).Fatal("Server stopped")
	}
	mainLog.Info("Server stopped")
}

func setupLogging(conf *config.Config) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(conf.Level())
}

func run(ctx context.Context, conf *config.Config) error {
	pool, err := ippool.New(conf.Pool())
	if err != nil {
		return err
	}
	mainLog.Infof("IP Pool initialized: %s (Gateway: %s)", pool.Network(), pool.Gateway())

	api := httpapi.New(pool, httpapi.Options{
		BasePath:           conf.BasePath,
		CORSEnabled:        conf.CORS.Enable,
		CORSAllowedOrigins: conf.CORS.AllowedOrigins,
	})

	ln, err := net.Listen("tcp", conf.Addr())
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
	}

	mainLog.Infof("Starting IP Pool API server on %s", ln.Addr())
	for _, route := range api.Routes() {
		mainLog.Infof("   %s", route)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		mainLog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
