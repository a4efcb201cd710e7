package main

import (
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/geomarkers/poicluster/engine"
	"github.com/geomarkers/poicluster/internal/stats"
	"github.com/geomarkers/poicluster/poimodel"
	"github.com/geomarkers/poicluster/server"

	_ "net/http/pprof"

	_ "github.com/KimMachineGun/automemlimit"
	"github.com/urfave/cli/v3"
	_ "go.uber.org/automaxprocs"
)

func main() {
	app := &cli.App{
		Name:        "poicluster",
		Description: "Map marker clustering service with a cached render pipeline",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "serve the markers api",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:      "points",
						Aliases:   []string{"p"},
						Required:  true,
						TakesFile: true,
					},
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
					},
					&cli.StringFlag{
						Name:  "ttl",
						Value: "5m",
						Usage: "cached result lifetime",
					},
					&cli.IntFlag{
						Name:  "cache-size",
						Value: 1024,
					},
					&cli.BoolFlag{
						Name:  "warm",
						Usage: "precompute common zoom levels before listening",
					},
					&cli.StringFlag{
						Name:      "stats",
						TakesFile: true,
						Usage:     "write a resource usage report to this file on exit",
					},
					&cli.StringFlag{
						Name:        "pprof.listen",
						DefaultText: "",
					},
				},
				Action: serve,
			},
			{
				Name:  "render",
				Usage: "one-shot marker computation to stdout",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:      "points",
						Aliases:   []string{"p"},
						Required:  true,
						TakesFile: true,
					},
					&cli.IntFlag{
						Name:     "zoom",
						Aliases:  []string{"z"},
						Required: true,
					},
					&cli.StringFlag{
						Name:  "bbox",
						Usage: "minLng,minLat,maxLng,maxLat",
					},
					&cli.BoolFlag{
						Name:  "no-clustering",
						Usage: "emit every marker individually",
					},
				},
				Action: render,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serve(ctx *cli.Context) error {
	log := slog.Default()

	ttl, err := time.ParseDuration(ctx.String("ttl"))
	if err != nil {
		return fmt.Errorf("invalid ttl: %w", err)
	}

	if pprofListen := ctx.String("pprof.listen"); pprofListen != "" {
		go func() {
			log.Info("Starting pprof server")
			err := http.ListenAndServe(pprofListen, nil)
			if err != nil {
				log.Error("Error starting pprof server", "error", err)
			}
		}()
	}

	pois, err := poimodel.LoadFromFile(ctx.String("points"), slog.Default())
	if err != nil {
		return err
	}

	eng, err := engine.New(pois,
		engine.WithTTL(ttl),
		engine.WithCacheCapacity(ctx.Int("cache-size")),
	)
	if err != nil {
		return err
	}
	eng.Start()
	defer eng.Close()

	var collector *stats.Collector
	if statsFile := ctx.String("stats"); statsFile != "" {
		collector, err = stats.NewCollector(5 * time.Second)
		if err != nil {
			return err
		}
		collector.Start()
		defer func() {
			report := collector.Stop(eng.CacheStats())
			if err := report.SaveToFile(statsFile); err != nil {
				log.Error("failed to save stats report", "error", err)
			}
		}()
	}

	if ctx.Bool("warm") {
		zooms := make([]float64, 0, 16)
		for z := 3.0; z <= 18; z++ {
			zooms = append(zooms, z)
		}
		log.Info("Warming result cache", "zooms", len(zooms))
		if err := eng.Warm(ctx.Context, zooms); err != nil {
			return fmt.Errorf("cache warmup: %w", err)
		}
	}

	return server.Run(ctx.Context, ctx.String("listen"), eng)
}

func render(ctx *cli.Context) error {
	pois, err := poimodel.LoadFromFile(ctx.String("points"), slog.Default())
	if err != nil {
		return err
	}

	eng, err := engine.New(pois, engine.WithDebounce(0))
	if err != nil {
		return err
	}
	defer eng.Close()

	if ctx.Bool("no-clustering") {
		eng.SetClusteringEnabled(false)
	}

	var bounds *orb.Bound
	if bboxS := ctx.String("bbox"); bboxS != "" {
		bounds, err = parseBBox(bboxS)
		if err != nil {
			return fmt.Errorf("invalid bbox: %w", err)
		}
	}

	items, err := eng.RenderAt(ctx.Context, float64(ctx.Int("zoom")), bounds)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"items": items})
}

func parseBBox(s string) (*orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("expected 4 comma-separated values, got %d", len(parts))
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		vals[i] = v
	}
	return &orb.Bound{
		Min: orb.Point{vals[0], vals[1]},
		Max: orb.Point{vals[2], vals[3]},
	}, nil
}
