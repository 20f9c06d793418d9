package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/svara-ai/svara/pkg/svara"
)

func main() {
	configPath := flag.String("config", "configs/svara.yaml", "path to the worker config")
	room := flag.String("room", "", "override livekit.room from config")
	doctor := flag.Bool("doctor", false, "run the connectivity preflight and exit")
	flag.Parse()

	cfg, err := svara.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	if *room != "" {
		cfg.LiveKit.Room = *room
	}

	engine, err := svara.NewEngine(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "engine error:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *doctor {
		runDoctor(ctx, engine)
		return
	}

	if cfg.LiveKit.Room == "" {
		fmt.Fprintln(os.Stderr, "config error: livekit.room is required (or pass -room)")
		os.Exit(1)
	}
	if err := engine.Run(ctx); err != nil {
		slog.Error("worker exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func runDoctor(ctx context.Context, engine *svara.Engine) {
	report, err := engine.Doctor(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "doctor: FAIL:", err)
		os.Exit(1)
	}
	fmt.Println("doctor: config OK")
	fmt.Printf("doctor: livekit reachable, %d active room(s)\n", report.ActiveRooms)
}
