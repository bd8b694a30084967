// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/sleepmix/internal/api/connect"
	"github.com/osa030/sleepmix/internal/app/filter"
	"github.com/osa030/sleepmix/internal/app/session"
	"github.com/osa030/sleepmix/internal/infra/audio"
	"github.com/osa030/sleepmix/internal/infra/config"
	"github.com/osa030/sleepmix/internal/infra/logger"
	"github.com/osa030/sleepmix/internal/infra/metrics"
	"github.com/osa030/sleepmix/internal/infra/store"
)

var (
	app        = kingpin.New("sleepmix-server", "sleepmix ambient mix server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available filters and exit")

	// import-sounds command
	importCmd = app.Command("import-sounds", "Add the audio files of a directory to the sound catalog")
	importDir = importCmd.Flag("dir", "Directory to scan (default: audio.sound_dir)").String()
)

func init() {
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	logCloser, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logCloser.Close()

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if command == importCmd.FullCommand() {
		err = runImport(cfg)
	} else {
		err = run(cfg)
	}
	if err != nil {
		zlog.Error().Msgf("Server error: %+v", err)
		logCloser.Close()
		os.Exit(1)
	}
}

// runImport scans a directory into the sound catalog.
func runImport(cfg *config.Config) error {
	dir := *importDir
	if dir == "" {
		dir = cfg.Audio.SoundDir
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.ImportSounds(context.Background(), dir)
	if err != nil {
		return err
	}
	zlog.Info().Msgf("Imported sounds: dir=%s count=%d", dir, n)
	return nil
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	if err := validateFilterConfig(cfg); err != nil {
		return errors.Wrap(err, "invalid filter config")
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	out, stopOutput, err := openOutput(cfg)
	if err != nil {
		return err
	}
	defer stopOutput()

	engine := audio.NewEngine(audio.Config{
		SoundDir:        cfg.Audio.SoundDir,
		ResampleQuality: cfg.Audio.ResampleQuality,
	}, out)
	defer engine.Close()

	recorder := metrics.NewPlayback()

	sessionMgr, err := session.NewManager(cfg, engine, st,
		session.WithVolumeStore(st),
		session.WithRecorder(recorder),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create session manager")
	}

	mux := http.NewServeMux()
	interceptors := connect.WithInterceptors(apiconnect.NewTokenInterceptor(cfg.API.Token))
	mux.Handle(apiconnect.NewMixServiceHandler(apiconnect.NewMixService(sessionMgr, cfg), interceptors))
	mux.Handle(apiconnect.NewCatalogServiceHandler(apiconnect.NewCatalogService(st, cfg), interceptors))
	mux.Handle("/metrics", recorder.Handler())

	serverAddr := cfg.Server.Addr
	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", serverAddr)
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for server to start listening
	<-serverStartedCh
	time.Sleep(100 * time.Millisecond)

	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		zlog.Info().Msgf("Received shutdown signal: signal=%v", sig)
	case <-sessionMgr.Done():
		zlog.Info().Msg("Session ended, shutting down...")
	case err := <-serverErrCh:
		runErr = errors.Wrap(err, "server error")
	}

	// Close the session first: fades out every track and ends notification streams
	closeCtx, cancelClose := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancelClose()
	if err := sessionMgr.Close(closeCtx); err != nil {
		zlog.Warn().Msgf("Session closed with forced release: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return runErr
}

// openOutput opens the configured audio output. The returned func stops it.
func openOutput(cfg *config.Config) (audio.Output, func(), error) {
	rate := beep.SampleRate(cfg.Audio.SampleRate)

	switch cfg.Audio.Output {
	case "null":
		out := audio.NewNullOutput(rate)
		ctx, cancel := context.WithCancel(context.Background())
		go out.Run(ctx, cfg.AudioBuffer())
		zlog.Info().Msgf("Audio output: null rate=%d", rate)
		return out, cancel, nil
	default:
		out, err := audio.NewSpeakerOutput(rate, cfg.AudioBuffer())
		if err != nil {
			return nil, nil, err
		}
		zlog.Info().Msgf("Audio output: speaker rate=%d buffer=%v", rate, cfg.AudioBuffer())
		return out, func() {}, nil
	}
}

// printFilters prints available filters.
func printFilters() {
	fmt.Println("Available Filters:")
	registry := filter.GetRegistered()
	for _, name := range filter.RegisteredNames() {
		f := registry[name]()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}

// validateFilterConfig validates filter configurations.
func validateFilterConfig(cfg *config.Config) error {
	registry := filter.GetRegistered()

	for filterName, filterCfg := range cfg.Filters {
		if !filterCfg.Enabled {
			continue
		}

		factory, exists := registry[filterName]
		if !exists {
			return errors.Newf("unknown filter: %s", filterName)
		}

		f := factory()
		if err := f.ValidateConfig(filterCfg.Settings); err != nil {
			return errors.Wrapf(err, "filter %s", filterName)
		}
	}

	return nil
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
