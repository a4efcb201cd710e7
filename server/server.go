package server

import (
	"context"
	"encoding/json"
	"fmt"
	stdlog "log"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fasthttp/router"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/geomarkers/poicluster/engine"
	"github.com/geomarkers/poicluster/poimodel"
)

var meter = otel.Meter("github.com/geomarkers/poicluster/server")

func Run(ctx context.Context, address string, eng *engine.Engine) error {
	if err := setupTelemetry(ctx); err != nil {
		return fmt.Errorf("failed to initialize otel metrics: %w", err)
	}

	log := slog.Default()

	metricMarkersCallCount, err := meter.Int64Counter("http_markers_call_total")
	if err != nil {
		return err
	}
	metricItemsRendered, err := meter.Int64Counter("markers_rendered_total")
	if err != nil {
		return err
	}
	_, err = meter.Int64ObservableCounter("result_cache_hits_total",
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(eng.CacheStats().Hits))
			return nil
		}))
	if err != nil {
		return err
	}

	s := &server{
		engine: eng,

		metricMarkersCallCount: metricMarkersCallCount,
		metricItemsRendered:    metricItemsRendered,
	}

	r := router.New()
	r.GET("/markers", s.MarkersHandler)
	r.GET("/healthz", s.HealthHandler)
	r.Handle(http.MethodGet, "/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()))

	server := &fasthttp.Server{
		ReadTimeout: time.Second,
		Handler:     r.Handler,
	}

	go func() {
		log.Info("Server listening", "address", address)
		if err := server.ListenAndServe(address); err != http.ErrServerClosed {
			stdlog.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	slog.Info("Server started")

	// wait cancel
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return server.ShutdownWithContext(shutdownCtx)
}

type server struct {
	engine *engine.Engine

	metricMarkersCallCount metric.Int64Counter
	metricItemsRendered    metric.Int64Counter
}

type markersResponse struct {
	Items []poimodel.RenderItem `json:"items"`
}

// MarkersHandler serves GET /markers?zoom=&bbox=minLng,minLat,maxLng,maxLat&clustering=.
// zoom defaults to the engine's current level; bbox and clustering are
// optional.
func (s *server) MarkersHandler(ctx *fasthttp.RequestCtx) {
	s.metricMarkersCallCount.Add(ctx, 1)

	args := ctx.QueryArgs()

	zoom := s.engine.Zoom()
	if zoomS := string(args.Peek("zoom")); zoomS != "" {
		z, err := strconv.ParseFloat(zoomS, 64)
		if err != nil {
			ctx.Response.SetStatusCode(http.StatusBadRequest)
			ctx.Response.SetBodyString("invalid zoom: " + zoomS)
			return
		}
		zoom = z
	}

	var bounds *orb.Bound
	if bboxS := string(args.Peek("bbox")); bboxS != "" {
		b, err := parseBBox(bboxS)
		if err != nil {
			ctx.Response.SetStatusCode(http.StatusBadRequest)
			ctx.Response.SetBodyString("invalid bbox: " + err.Error())
			return
		}
		bounds = b
	}

	if clusteringS := string(args.Peek("clustering")); clusteringS != "" {
		enabled, err := strconv.ParseBool(clusteringS)
		if err != nil {
			ctx.Response.SetStatusCode(http.StatusBadRequest)
			ctx.Response.SetBodyString("invalid clustering flag: " + clusteringS)
			return
		}
		s.engine.SetClusteringEnabled(enabled)
	}

	items, err := s.engine.RenderAt(ctx, zoom, bounds)
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusBadRequest)
		ctx.Response.SetBodyString(err.Error())
		return
	}
	s.metricItemsRendered.Add(ctx, int64(len(items)))

	out, err := json.Marshal(markersResponse{Items: items})
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusInternalServerError)
		ctx.Response.SetBodyString("failed to marshal response")
		return
	}

	ctx.Response.Header.SetContentType("application/json")
	ctx.Response.SetStatusCode(http.StatusOK)
	ctx.Response.SetBody(out)
}

func (s *server) HealthHandler(ctx *fasthttp.RequestCtx) {
	ctx.Response.SetStatusCode(http.StatusOK)
}

// parseBBox parses "minLng,minLat,maxLng,maxLat".
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
	if vals[0] > vals[2] || vals[1] > vals[3] {
		return nil, fmt.Errorf("min corner beyond max corner")
	}

	return &orb.Bound{
		Min: orb.Point{vals[0], vals[1]},
		Max: orb.Point{vals[2], vals[3]},
	}, nil
}
