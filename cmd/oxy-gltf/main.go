// Command oxy-gltf loads glTF models, spawns a grid of instances of each and runs the per-frame
// scene systems headlessly, logging frame statistics.
//
// Usage:
//
//	oxy-gltf [flags] model.glb [model.gltf ...]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/camera"
	"github.com/Carmen-Shannon/oxy-gltf/engine/config"
	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/buffers"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

var (
	flagFrames    = flag.Int("frames", 600, "Frames to run, 0 runs until interrupted")
	flagInstances = flag.Int("instances", 16, "Instances spawned per model")
	flagSpacing   = flag.Float64("spacing", 4, "Distance between neighbouring instances")
	flagAnimated  = flag.Bool("animated", false, "Load models as skinned, animated models")
	flagOrbit     = flag.Float64("orbit", 0.2, "Camera orbit speed in radians per second")
)

func main() {
	config.ParseFlags()
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, flag.Args()); err != nil {
		logger.Error("run failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, urls []string) error {
	if len(urls) == 0 {
		return errors.New("no model URLs given")
	}
	log := logger.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	factory := buffers.BackendFactory(buffers.MemoryBackends)
	if cfg.Renderer.GPU {
		dev, err := renderer.NewHeadlessDevice(cfg.Renderer.ForceFallbackAdapter)
		if err != nil {
			return fmt.Errorf("create device: %w", err)
		}
		defer dev.Release()
		factory = dev.Backends()
	}

	res, err := buffers.NewResources(factory, buffers.Capacities{
		Vertices:  cfg.Buffers.Vertices,
		Indices:   cfg.Buffers.Indices,
		Instances: cfg.Buffers.Instances,
		Joints:    cfg.Buffers.Joints,
	}, logger.Named("buffers"))
	if err != nil {
		return fmt.Errorf("allocate buffers: %w", err)
	}
	defer res.Release()

	l := loader.NewLoader(loader.BackendTypeGLTF,
		loader.WithConfig(cfg.Loader),
		loader.WithResources(res),
		loader.WithLogger(logger.Named("loader")),
	)
	defer l.Close()

	side := int(math32.Ceil(math32.Sqrt(float32(*flagInstances))))
	spacing := float32(*flagSpacing)
	extent := float32(side) * spacing

	cam := camera.NewCamera(
		camera.WithController(camera.NewOrbitController(camera.WithRadius(max(extent, 10)))),
		camera.WithFov(mgl32.DegToRad(cfg.Culling.FovYDegrees)),
		camera.WithNear(cfg.Culling.Near),
		camera.WithFar(cfg.Culling.Far),
		camera.WithFallbackViewport(cfg.Culling.FallbackWidth, cfg.Culling.FallbackHeight),
	)
	sc := scene.NewScene("main", cam, l, res,
		scene.WithConfig(cfg),
		scene.WithLogger(logger.Named("scene")),
	)
	defer sc.Close()

	for m, url := range urls {
		if *flagAnimated {
			sc.LoadAnimated(ctx, url)
		} else {
			sc.Load(ctx, url)
		}
		for i := range *flagInstances {
			x := (float32(i%side) - float32(side-1)/2) * spacing
			z := (float32(i/side) - float32(side-1)/2) * spacing
			t := common.NewSimilarity(mgl32.Vec3{x, float32(m) * spacing, z}, 1, mgl32.QuatIdent())
			if *flagAnimated {
				sc.SpawnAnimated(url, t, 0)
			} else {
				sc.Spawn(url, t)
			}
		}
	}
	log.Info("scene ready", zap.Strings("urls", urls), zap.Int("instances", sc.Count()))

	if cfg.Loader.Watch {
		if err := watch(ctx, cfg, l, sc, urls, log); err != nil {
			return err
		}
	}

	prof := profiler.NewProfiler()
	frameTime := time.Duration(float64(time.Second) / float64(cfg.Animation.TickRate))
	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()
	orbitStep := float32(*flagOrbit) * float32(frameTime.Seconds())

	for frame := 0; *flagFrames == 0 || frame < *flagFrames; frame++ {
		select {
		case <-ctx.Done():
			log.Info("interrupted", zap.Int("frames", frame))
			return nil
		case <-ticker.C:
		}

		stats, err := sc.Frame()
		if err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		prof.Tick(stats)

		cam.Controller().Orbit(orbitStep, 0)
		cam.Update()
	}

	last := prof.Last()
	log.Info("finished",
		zap.Int("frames", *flagFrames),
		zap.Int("models", last.Models),
		zap.Int("draws", last.Draws),
		zap.Int("pushed", last.PrimitivesPushed),
		zap.Int("culled", last.PrimitivesCulled),
	)
	return nil
}

// watch reloads models whose files change on disk.
func watch(ctx context.Context, cfg *config.Config, l loader.Loader, sc scene.Scene, urls []string, log *zap.Logger) error {
	w, err := loader.NewWatcher(l, loader.FileFetcher{Root: cfg.Loader.AssetRoot}, logger.Named("watcher"))
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	for _, url := range urls {
		if err := w.Watch(url); err != nil {
			log.Warn("cannot watch asset", zap.String("url", url), zap.Error(err))
		}
	}
	go w.Run(ctx)
	go func() {
		for url := range w.Changes() {
			sc.Reload(ctx, url)
		}
	}()
	return nil
}
