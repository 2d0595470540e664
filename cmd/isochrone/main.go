package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"syscall"

	"github.com/samirrijal/isoroute/internal/adapters/contour"
	"github.com/samirrijal/isoroute/internal/adapters/osrm"
	"github.com/samirrijal/isoroute/internal/core/domain"
	"github.com/samirrijal/isoroute/internal/core/usecases"
	"github.com/samirrijal/isoroute/internal/pkg/config"
	"github.com/samirrijal/isoroute/internal/pkg/logging"
)

// ---------------------------------------------------------------------------
// Manifest types
// ---------------------------------------------------------------------------

// Manifest lists the origins to compute. Coordinates are in CRS, lon/lat
// WGS 84 when CRS is empty.
type Manifest struct {
	CRS     string        `json:"crs,omitempty"`
	Breaks  []float64     `json:"breaks,omitempty"`
	Res     int           `json:"res,omitempty"`
	Smooth  *bool         `json:"smooth,omitempty"`
	K       float64       `json:"k,omitempty"`
	Profile string        `json:"profile,omitempty"`
	Exclude []string      `json:"exclude,omitempty"`
	Origins []OriginEntry `json:"origins"`
}

type OriginEntry struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	cfg, err := config.Load("isoroute-cli")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, "text")

	manifestPath := "manifest.json"
	if len(os.Args) > 1 {
		manifestPath = os.Args[1]
	}
	outDir := "isochrones"
	if len(os.Args) > 2 {
		outDir = os.Args[2]
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		log.Fatalf("read manifest: %v", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		log.Fatalf("parse manifest: %v", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}

	params, err := cfg.IsochroneDefaults()
	if err != nil {
		log.Fatalf("isochrone defaults: %v", err)
	}
	params = manifest.apply(params)

	router := osrm.NewClient(osrm.Config{
		BaseURL: cfg.OSRM.BaseURL,
		Profile: cfg.OSRM.Profile,
		Timeout: cfg.OSRMTimeout(),
	})
	svc := usecases.NewIsochroneService(router, contour.New(), nil, nil, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("computing isochrones",
		"origins", len(manifest.Origins),
		"server", router.BaseURL(),
		"class", params.Server.Name,
		"profile", params.Profile,
	)

	// A paced server class limits this client to one request stream.
	workers := 4
	if params.Server.Pace > 0 {
		workers = 1
	}

	var (
		wg            sync.WaitGroup
		mu            sync.Mutex
		failed, empty int
	)
	sem := make(chan struct{}, workers)

	for i, entry := range manifest.Origins {
		wg.Add(1)
		go func(i int, e OriginEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			name := fileName(i, e.ID)
			warning, err := computeOne(ctx, svc, e, manifest.CRS, params, filepath.Join(outDir, name))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				failed++
				slog.Error("isochrone failed", "origin", name, "error", err)
			case warning != "":
				empty++
				slog.Warn("isochrone empty", "origin", name, "warning", warning)
			default:
				slog.Info("isochrone written", "origin", name)
			}
		}(i, entry)
	}

	wg.Wait()
	slog.Info("done", "total", len(manifest.Origins), "failed", failed, "empty", empty)
	if failed > 0 {
		os.Exit(1)
	}
}

func (m Manifest) apply(p domain.IsochroneParams) domain.IsochroneParams {
	if len(m.Breaks) > 0 {
		p.Breaks = m.Breaks
	}
	if m.Res != 0 {
		p.Res = m.Res
	}
	if m.Smooth != nil {
		p.Smooth = *m.Smooth
	}
	if m.K != 0 {
		p.K = m.K
	}
	if m.Profile != "" {
		p.Profile = m.Profile
	}
	if m.Exclude != nil {
		p.Exclude = m.Exclude
	}
	return p
}

func computeOne(ctx context.Context, svc *usecases.IsochroneService, e OriginEntry, crs string, params domain.IsochroneParams, path string) (string, error) {
	origin, err := usecases.ResolveOrigin(e.ID, e.X, e.Y, crs)
	if err != nil {
		return "", err
	}
	iso, err := svc.Compute(ctx, origin, params)
	if err != nil {
		return "", err
	}
	data, err := iso.MarshalGeoJSON()
	if err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return iso.Warning, nil
}

func fileName(i int, id string) string {
	id = strings.Trim(unsafeName.ReplaceAllString(id, "_"), "._")
	if id == "" {
		id = fmt.Sprintf("origin-%04d", i)
	}
	return id + ".geojson"
}
