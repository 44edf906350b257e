package main

import (
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/milk9111/platformkit/common"
	"github.com/milk9111/platformkit/prefabs"
)

func main() {
	levelName := flag.String("level", "sandbox.yaml", "level file in prefabs/ (embedded copy used when missing on disk)")
	prefabsDir := flag.String("prefabs", "prefabs", "directory searched for levels and scripts before the embedded copies")
	debug := flag.Bool("debug", false, "draw the physics debug overlay")
	watch := flag.Bool("watch", true, "reload levels and scripts when they change on disk")
	logLevel := flag.String("log", "info", "log level (debug, info, warn, error)")
	dev := flag.Bool("dev", true, "human readable log output")
	flag.Parse()

	logger, err := common.InitLogger(*logLevel, *dev)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	prefabs.SetDiskRoot(*prefabsDir)

	var watcher *prefabs.Watcher
	if *watch && *prefabsDir != "" {
		watcher, err = prefabs.NewWatcher(logger.Named("watch"), *prefabsDir, *prefabsDir+"/scripts")
		if err != nil {
			logger.Warn("hot reload disabled", zap.Error(err))
			watcher = nil
		} else {
			defer watcher.Close()
		}
	}

	game, err := NewGame(*levelName, *debug, watcher, logger)
	if err != nil {
		logger.Fatal("load level", zap.String("level", *levelName), zap.Error(err))
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(baseWidth, baseHeight)
	ebiten.SetWindowTitle("platformkit sandbox")

	if err := ebiten.RunGame(game); err != nil {
		logger.Fatal("run", zap.Error(err))
	}
}
