package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/mogaika/gamestop/app"
	"github.com/mogaika/gamestop/config"
	"github.com/mogaika/gamestop/frameloop"
	"github.com/mogaika/gamestop/utils"
	"github.com/mogaika/gamestop/web"
	"github.com/mogaika/gamestop/window"
)

func main() {
	var addr, assets, configPath string
	var fps, quality int
	var windowed, debug bool
	flag.StringVar(&addr, "i", ":8000", "Address of server, empty to disable")
	flag.StringVar(&assets, "assets", ".", "Path to folder with skybox, fonts and models")
	flag.StringVar(&configPath, "config", "", "Scene yaml overriding the built in one")
	flag.BoolVar(&windowed, "window", false, "Show scene in a desktop window")
	flag.IntVar(&fps, "fps", 60, "Frame rate when no window drives the loop")
	flag.IntVar(&quality, "quality", 80, "JPEG quality of streamed frames")
	flag.BoolVar(&debug, "debug", false, "Verbose logging")
	flag.Parse()

	if debug {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	cfg.Assets = assets
	utils.LogDump(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue := &frameloop.Queue{}
	a, err := app.New(cfg, queue)
	if err != nil {
		log.Fatal(err)
	}
	loop := frameloop.NewLoop(queue, frameloop.NewClock(), a.Tick)
	a.LoadAssets()

	if addr != "" {
		srv := web.NewServer(a, queue, quality)
		go func() {
			if err := srv.ListenAndServe(ctx, addr); err != nil {
				log.Errorf("[main] Server failed: %v", err)
				loop.Stop()
			}
		}()
	}

	if windowed {
		go func() {
			<-ctx.Done()
			loop.Stop()
		}()
		if err := window.Run(a, loop, "Game Stop"); err != nil {
			log.Fatal(err)
		}
		return
	}

	if addr == "" {
		log.Warnf("[main] Neither window nor server enabled, rendering to nowhere")
	}
	vsync := frameloop.NewTickerVSync(fps)
	defer vsync.Stop()
	if err := loop.Run(ctx, vsync); err != nil {
		log.Fatal(err)
	}
}
