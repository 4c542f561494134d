package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"voxchat/internal/audio"
	"voxchat/internal/bus"
	"voxchat/internal/chat"
	"voxchat/internal/config"
	"voxchat/internal/ipc"
	"voxchat/internal/proxy"
	"voxchat/internal/record"
	"voxchat/internal/view"
	"voxchat/internal/visual"
	"voxchat/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	cfgFile := cli.StringP("config", "c", "", "Config file (yaml)")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	flags := config.RegisterFlags(cli.CommandLine)
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logLevelMap[*logLevel],
		TimeFormat: time.Kitchen,
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)
	if *cfgFile == "" {
		*cfgFile = os.Getenv("VOXCHAT_CONFIG")
	}

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	flags.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		log.Error("Invalid config", "err", err)
		os.Exit(1)
	}
	if cfg.Socket == "" {
		cfg.Socket = ipc.DefaultSocketPath()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handles, err := chat.NewHandleStore(cfg.HandleDir)
	if err != nil {
		log.Error("Failed to create handle store", "err", err)
		os.Exit(1)
	}
	c := chat.New(handles)
	defer c.Close()

	console := view.NewConsole(os.Stdout)
	printer := view.NewPrinter(console, cfg.DarkMode, cfg.UserName, 0)
	c.Conversation().Subscribe(func(batch []chat.Message) {
		if err := printer.Print(batch); err != nil {
			log.Warn("Failed to print", "err", err)
		}
	})

	mic := audio.NewMic(cfg.SampleRate, cfg.FrameSize)
	if err := mic.Init(); err != nil {
		// recording reports the device as unavailable on each attempt
		log.Error("Failed to init audio", "err", err)
	} else {
		defer mic.Close()
	}

	log.Debug("Loaded recorder")

	a := &app{ctx: ctx, cfg: cfg, chat: c}
	if cfg.Duck {
		a.ducker = audio.NewDucker([]string{"voxchat"}, cfg.DuckFactor, 10, 150*time.Millisecond)
	}

	a.recorder = record.NewRecorder(mic, record.Options{
		Transcriber:       stt.NewSimulator(cfg.TranscribeDelay),
		Store:             handles,
		TranscribeTimeout: cfg.TranscribeTimeout,
		MaxDuration:       cfg.MaxRecording,
		OnState:           a.onRecordState,
		OnTick:            func(d time.Duration) { a.onRecordTick(d.Seconds()) },
		OnComplete:        a.onRecordComplete,
	})
	defer a.recorder.Close()

	a.visuals = visual.NewRegistry(audio.NewPlayer(handles), func() visual.Surface {
		return visual.NewTermSurface(console.Region(), cfg.SurfaceWidth, cfg.SurfaceHeight, cfg.SurfaceCols, cfg.SurfaceRows)
	}, visual.Options{
		DarkMode:      cfg.DarkMode,
		FrameInterval: cfg.FrameInterval,
	})
	defer a.visuals.Close()

	if cfg.BusURL != "" {
		connectBus(ctx, a, c)
	}

	srv, err := ipc.StartServer(cfg.Socket, func(msg ipc.ControlMessage) ipc.Reply {
		out, err := a.command(msg.Cmd, msg.Args)
		if err != nil {
			log.Warn("Command failed", "cmd", msg.Cmd, "err", err)
			return ipc.Fail(err)
		}
		return ipc.Ok(out)
	})
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}
	defer srv.Close()

	log.Info("Boot up - successful", "socket", cfg.Socket)

	<-ctx.Done()
	log.Info("Shutting down")
}

func connectBus(ctx context.Context, a *app, c *chat.Chat) {
	dialer, err := proxy.NewDialer(a.cfg.Proxy)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", a.cfg.Proxy, "err", err)
		return
	}

	b, err := bus.Dial(ctx, bus.Config{URL: a.cfg.BusURL, Dialer: dialer, Reconn: 2 * time.Second})
	if err != nil {
		// the conversation still works locally without a hub
		log.Error("Failed to connect to bus", "err", err)
		return
	}
	a.bus = b

	b.Mirror(c.Conversation())
	c.OnInput(func(input string) {
		a.publish(bus.Event{Kind: bus.EventInput, Input: input})
	})
	a.visuals.OnChange(func(id string, active bool) {
		a.publish(bus.Event{Kind: bus.EventVisual, ID: id, Active: active})
	})

	go b.Run(ctx, a.handleBus)
}
