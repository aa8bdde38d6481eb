package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"videorecord/config"
	"videorecord/notify"
	"videorecord/serve"
	"videorecord/video"
	"videorecord/video/cv"
	"videorecord/video/sink"
	"videorecord/video/source"
)

// flags override values read from the config file.
type flags struct {
	config string
	port   int
	device string
	format string
	window bool
	halt   bool
	debug  bool
}

func (f *flags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.config, "config", "c", "", "Config file (.json, .toml or .yaml), watched for changes.")
	fs.IntVarP(&f.port, "port", "p", 0, "Port to host web frontend.")
	fs.StringVarP(&f.device, "device", "d", "", "Camera index, video URI, or \"synthetic\".")
	fs.StringVarP(&f.format, "format", "f", "", "Recording format.")
	fs.BoolVar(&f.window, "window", false, "Show the preview in a desktop window.")
	fs.BoolVar(&f.halt, "stop-halts-capture", false, "Stop capture when recording stops.")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging.")
}

func (f *flags) apply(fs *pflag.FlagSet, c *config.Config) {
	if fs.Changed("port") {
		c.Port = f.port
	}
	if fs.Changed("device") {
		c.Device = f.device
	}
	if fs.Changed("format") {
		c.Format = f.format
	}
	if fs.Changed("window") {
		c.Window = f.window
	}
	if fs.Changed("stop-halts-capture") {
		c.StopHaltsCapture = f.halt
	}
	if f.debug {
		c.LogLevel = "debug"
	}
}

func setLogLevel(name string) {
	lvl, err := log.ParseLevel(name)
	if err != nil {
		log.Warnf("Ignoring log level %q: %v", name, err)
		return
	}
	log.SetLevel(lvl)
}

// loadConfig resolves the effective config. The file, if any, is watched
// until ctx is done.
func loadConfig(ctx context.Context, f *flags, fs *pflag.FlagSet) (config.Config, error) {
	cfg := config.DefaultConfig()
	if f.config != "" {
		var err error
		cfg, err = config.Load(ctx, f.config, cfg, func(c config.Config) {
			f.apply(fs, &c)
			log.Infof("Config %v changed, applying log level %q", f.config, c.LogLevel)
			setLogLevel(c.LogLevel)
		})
		if err != nil {
			return cfg, err
		}
	}
	f.apply(fs, &cfg)
	setLogLevel(cfg.LogLevel)
	if !sink.Registered(cfg.Format) {
		return cfg, fmt.Errorf("unknown format %q, have %v", cfg.Format, sink.Formats())
	}
	return cfg, cfg.Validate()
}

func newSource(cfg config.Config) source.Source {
	if cfg.Device == config.DeviceSynthetic {
		return source.NewSynthetic(source.SyntheticOptions{
			Width:  640,
			Height: 480,
			FPS:    cfg.FPS,
		})
	}
	return cv.NewCapture(cfg.Device, cfg.ReadTimeout)
}

func run(ctx context.Context, cfg config.Config) error {
	sink.SetJPEGEncoder(cv.EncodeJPEG)

	mjpegServer := sink.NewMJPEGServer()
	preview := mjpegServer.NewStream(sink.MJPEGID{Name: "preview"})
	defer preview.Close()

	latest := &sink.Latest{}
	displays := sink.Displays{preview, latest}
	if cfg.Window {
		window := cv.NewWindow("videorecord")
		defer window.Close()
		displays = append(displays, window)
	}

	updater := serve.NewStatusUpdater()
	notifier := &notify.Notifier{}
	notifier.Add(updater)

	rec, err := video.NewRecorder(video.RecorderOptions{
		Config:   cfg,
		Source:   newSource(cfg),
		Display:  displays,
		Notifier: notifier,
		Listener: updater,
		Resize:   cv.Resize,
	})
	if err != nil {
		return err
	}
	defer rec.Close()

	mux := http.NewServeMux()
	control := &serve.ControlServer{Controls: rec}
	control.RegisterHandlers(mux)
	mux.Handle("/events", updater)
	mux.Handle("/mjpeg", mjpegServer)
	mux.Handle("/snapshot", &serve.SnapshotServer{Latest: latest})
	mux.Handle("/video", serve.NewVideoServer(cfg.OutputPath, cfg.Format))
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(
			handlers.CombinedLoggingHandler(log.StandardLogger().WriterLevel(log.DebugLevel), mux)),
	}
	errc := make(chan error, 1)
	go func() {
		log.Infof("Hosting web frontend on port %d", cfg.Port)
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-errc:
		return err
	}
	// The recorder is closed first so the output file is finalized even if a
	// client holds the mjpeg stream open.
	rec.Close()
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

func newRootCommand() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:           "videorecord",
		Short:         "Record a camera to a video file, controlled over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			cfg, err := loadConfig(ctx, f, cmd.Flags())
			if err != nil {
				return err
			}
			return run(ctx, cfg)
		},
	}
	f.register(root.PersistentFlags())
	root.AddCommand(newProbeCommand(f))
	return root
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
