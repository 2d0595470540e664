package usecases_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/samirrijal/isoroute/internal/adapters/contour"
	"github.com/samirrijal/isoroute/internal/core/domain"
	"github.com/samirrijal/isoroute/internal/core/ports"
	"github.com/samirrijal/isoroute/internal/core/usecases"
	"github.com/samirrijal/isoroute/internal/pkg/geospatial"
	"github.com/samirrijal/isoroute/internal/pkg/logging"
)

// walkingPace gives 5.9 minutes for every 1600 m, which keeps a 6 minute
// foot isochrone inside its sampling grid.
const walkingPace = 5.9 / 1.6

func footParams() domain.IsochroneParams {
	return domain.IsochroneParams{Breaks: []float64{0, 2, 4, 6}, Res: 30, Profile: "foot"}
}

func bilbaoOrigin() domain.Origin {
	return domain.Origin{ID: "bilbao", Location: bilbao}
}

func TestCompute_ConcentricBands(t *testing.T) {
	table := &mockTable{tableFn: distanceTable(walkingPace)}
	svc := usecases.NewIsochroneService(table, contour.New(), nil, nil, nil)

	iso, err := svc.Compute(context.Background(), bilbaoOrigin(), footParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if iso.Warning != "" {
		t.Errorf("unexpected warning %q", iso.Warning)
	}
	if iso.CRS != domain.CRSWGS84 {
		t.Errorf("expected CRS %s, got %s", domain.CRSWGS84, iso.CRS)
	}
	if len(iso.Bands) != 3 {
		t.Fatalf("expected 3 bands, got %d", len(iso.Bands))
	}
	wantMin := []float64{0, 2, 4}
	wantMax := []float64{2, 4, 6}
	for i, b := range iso.Bands {
		if b.ID != i+1 {
			t.Errorf("band %d has id %d", i, b.ID)
		}
		if b.IsoMin != wantMin[i] || b.IsoMax != wantMax[i] {
			t.Errorf("band %d is [%v,%v), want [%v,%v)", i, b.IsoMin, b.IsoMax, wantMin[i], wantMax[i])
		}
		if len(b.Geometry) == 0 {
			t.Errorf("band %d has no geometry", i)
		}
	}
	if !planar.MultiPolygonContains(iso.Bands[0].Geometry, bilbao.Point()) {
		t.Error("innermost band must contain the origin")
	}
	if planar.MultiPolygonContains(iso.Bands[2].Geometry, bilbao.Point()) {
		t.Error("outermost band must not contain the origin")
	}
}

func TestCompute_BandsStayNearTheOrigin(t *testing.T) {
	table := &mockTable{tableFn: distanceTable(walkingPace)}
	svc := usecases.NewIsochroneService(table, contour.New(), nil, nil, nil)

	iso, err := svc.Compute(context.Background(), bilbaoOrigin(), footParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := iso.Bands[len(iso.Bands)-1].Geometry.Bound()
	// 1630 m at 3.6875 min/km is 6 minutes; allow two grid steps of slack.
	if b.Min.Lon() < bilbao.Lon-0.03 || b.Max.Lon() > bilbao.Lon+0.03 ||
		b.Min.Lat() < bilbao.Lat-0.02 || b.Max.Lat() > bilbao.Lat+0.02 {
		t.Errorf("outermost band bound %v is too far from the origin", b)
	}
}

func TestCompute_UnreachableOrigin(t *testing.T) {
	crs := "+proj=longlat +datum=WGS84"
	origin := bilbaoOrigin()
	origin.SourceCRS = crs

	for name, fn := range map[string]func(context.Context, ports.TableRequest) (*domain.TravelTimeTable, error){
		"too far":      constantTable(100 * 60),
		"no durations": constantTable(-1),
	} {
		t.Run(name, func(t *testing.T) {
			table := &mockTable{tableFn: fn}
			svc := usecases.NewIsochroneService(table, contour.New(), nil, nil, nil)

			iso, err := svc.Compute(context.Background(), origin, footParams())
			if err != nil {
				t.Fatalf("unreachable origin must not fail, got %v", err)
			}
			if len(iso.Bands) != 0 {
				t.Errorf("expected no bands, got %d", len(iso.Bands))
			}
			if iso.Warning != usecases.WarnUnreachable {
				t.Errorf("unexpected warning %q", iso.Warning)
			}
			if iso.CRS != crs {
				t.Errorf("expected CRS %q, got %q", crs, iso.CRS)
			}
		})
	}
}

func TestCompute_ProjectedCRS(t *testing.T) {
	const crs = "+proj=utm +zone=30 +datum=WGS84"
	origin := bilbaoOrigin()
	origin.SourceCRS = crs

	reproj, err := geospatial.NewReprojector(crs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	center, err := reproj.FromWGS84(bilbao.Point())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	table := &mockTable{tableFn: distanceTable(walkingPace)}
	svc := usecases.NewIsochroneService(table, contour.New(), nil, nil, nil)

	iso, err := svc.Compute(context.Background(), origin, footParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if iso.CRS != crs {
		t.Errorf("expected CRS %q, got %q", crs, iso.CRS)
	}
	if len(iso.Bands) != 3 {
		t.Fatalf("expected 3 bands, got %d", len(iso.Bands))
	}
	for _, b := range iso.Bands {
		bound := b.Geometry.Bound()
		// A 6 minute walk stays within a few kilometres of the origin.
		if bound.Min[0] < center[0]-5000 || bound.Max[0] > center[0]+5000 ||
			bound.Min[1] < center[1]-5000 || bound.Max[1] > center[1]+5000 {
			t.Errorf("band %d bound %v is not in UTM metres around %v", b.ID, bound, center)
		}
	}
	if !planar.MultiPolygonContains(iso.Bands[0].Geometry, center) {
		t.Error("innermost band must contain the projected origin")
	}
}

func TestCompute_ProjectedCRSEmptyResult(t *testing.T) {
	const crs = "+proj=utm +zone=30 +datum=WGS84"
	origin := bilbaoOrigin()
	origin.SourceCRS = crs

	table := &mockTable{tableFn: constantTable(100 * 60)}
	svc := usecases.NewIsochroneService(table, contour.New(), nil, nil, nil)

	iso, err := svc.Compute(context.Background(), origin, footParams())
	if err != nil {
		t.Fatalf("unreachable origin must not fail, got %v", err)
	}
	if len(iso.Bands) != 0 || iso.Warning != usecases.WarnUnreachable {
		t.Errorf("expected an empty result with a warning, got %d bands and %q", len(iso.Bands), iso.Warning)
	}
	if iso.CRS != crs {
		t.Errorf("expected CRS %q, got %q", crs, iso.CRS)
	}
}

func TestCompute_WGS84DefinitionKeepsLonLat(t *testing.T) {
	const crs = "+proj=longlat +datum=WGS84"
	origin, err := usecases.ResolveOrigin("bilbao", bilbao.Lon, bilbao.Lat, crs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	table := &mockTable{tableFn: distanceTable(walkingPace)}
	svc := usecases.NewIsochroneService(table, contour.New(), nil, nil, nil)

	iso, err := svc.Compute(context.Background(), origin, footParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(iso.Bands) != 3 || iso.CRS != crs {
		t.Fatalf("expected 3 bands in %q, got %d in %q", crs, len(iso.Bands), iso.CRS)
	}
	if !planar.MultiPolygonContains(iso.Bands[0].Geometry, bilbao.Point()) {
		t.Error("innermost band must contain the origin in lon/lat")
	}
}

func TestCompute_LogsGridReach(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.WithLogger(context.Background(), logging.New(&buf, "debug", "json"))

	table := &mockTable{tableFn: distanceTable(walkingPace)}
	svc := usecases.NewIsochroneService(table, contour.New(), nil, nil, nil)
	if _, err := svc.Compute(ctx, bilbaoOrigin(), footParams()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, line := range bytes.Split(buf.Bytes(), []byte("\n")) {
		var entry struct {
			Msg    string  `json:"msg"`
			Cells  int     `json:"cells"`
			ReachM float64 `json:"reach_m"`
		}
		if json.Unmarshal(line, &entry) != nil || entry.Msg != "sampling grid built" {
			continue
		}
		if entry.Cells != 900 {
			t.Errorf("expected 900 cells, got %d", entry.Cells)
		}
		// 6 minutes at the 10 km/h sizing speed plus padding puts the corner
		// about 1070 m away on each axis.
		if entry.ReachM < 1400 || entry.ReachM > 1650 {
			t.Errorf("unexpected grid reach %.0f m", entry.ReachM)
		}
		return
	}
	t.Fatalf("no grid log entry in %s", buf.String())
}

func TestCompute_SmallKernel(t *testing.T) {
	table := &mockTable{tableFn: distanceTable(walkingPace)}
	svc := usecases.NewIsochroneService(table, contour.New(), nil, nil, nil)

	params := footParams()
	params.Smooth = true
	params.K = 1

	iso, err := svc.Compute(context.Background(), bilbaoOrigin(), params)
	if err != nil {
		t.Fatalf("degenerate kernel must not fail, got %v", err)
	}
	if len(iso.Bands) != 0 {
		t.Errorf("expected no bands, got %d", len(iso.Bands))
	}
	if iso.Warning != usecases.WarnSmallKernel {
		t.Errorf("unexpected warning %q", iso.Warning)
	}
}

func TestCompute_SmoothedBands(t *testing.T) {
	table := &mockTable{tableFn: distanceTable(walkingPace)}
	svc := usecases.NewIsochroneService(table, contour.New(), nil, nil, nil)

	params := footParams()
	params.Smooth = true

	iso, err := svc.Compute(context.Background(), bilbaoOrigin(), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(iso.Bands) == 0 || iso.Bands[0].IsoMin != 0 {
		t.Fatalf("expected bands starting at zero, got %+v", iso.Bands)
	}
}

func TestCompute_ChunkedRequests(t *testing.T) {
	table := &mockTable{tableFn: distanceTable(walkingPace)}
	svc := usecases.NewIsochroneService(table, contour.New(), nil, nil, nil)

	params := footParams()
	params.Res = 32

	if _, err := svc.Compute(context.Background(), bilbaoOrigin(), params); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{450, 450, 124}
	if len(table.calls) != len(want) {
		t.Fatalf("expected %d table calls, got %d", len(want), len(table.calls))
	}
	for i, call := range table.calls {
		if len(call.Destinations) != want[i] {
			t.Errorf("call %d has %d destinations, want %d", i, len(call.Destinations), want[i])
		}
		if len(call.Sources) != 1 || call.Sources[0] != bilbao {
			t.Errorf("call %d must have the origin as its only source", i)
		}
		if call.Profile != "foot" {
			t.Errorf("call %d has profile %q", i, call.Profile)
		}
	}
}

func TestCompute_PacesRequests(t *testing.T) {
	var stamps []time.Time
	table := &mockTable{tableFn: func(ctx context.Context, req ports.TableRequest) (*domain.TravelTimeTable, error) {
		stamps = append(stamps, time.Now())
		return distanceTable(walkingPace)(ctx, req)
	}}
	svc := usecases.NewIsochroneService(table, contour.New(), nil, nil, nil)

	params := footParams()
	params.Res = 10
	params.Server = domain.ServerClass{Name: "slow", Budget: 40, Pace: 20 * time.Millisecond}

	if _, err := svc.Compute(context.Background(), bilbaoOrigin(), params); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stamps) != 3 {
		t.Fatalf("expected 3 table calls, got %d", len(stamps))
	}
	for i := 1; i < len(stamps); i++ {
		if gap := stamps[i].Sub(stamps[i-1]); gap < 20*time.Millisecond {
			t.Errorf("call %d followed the previous one after %v", i, gap)
		}
	}
}

func TestCompute_PauseHonoursContext(t *testing.T) {
	table := &mockTable{tableFn: distanceTable(walkingPace)}
	svc := usecases.NewIsochroneService(table, contour.New(), nil, nil, nil)

	params := footParams()
	params.Res = 10
	params.Server = domain.ServerClass{Name: "slow", Budget: 40, Pace: time.Hour}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.Compute(ctx, bilbaoOrigin(), params)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if table.callCount() != 1 {
		t.Errorf("expected 1 table call before the pause, got %d", table.callCount())
	}
}

func TestCompute_RemoteFailureNamesChunk(t *testing.T) {
	inner := distanceTable(walkingPace)
	table := &mockTable{}
	table.tableFn = func(ctx context.Context, req ports.TableRequest) (*domain.TravelTimeTable, error) {
		if table.callCount() == 2 {
			return nil, errors.New("502 bad gateway")
		}
		return inner(ctx, req)
	}
	svc := usecases.NewIsochroneService(table, contour.New(), nil, nil, nil)

	params := footParams()
	params.Res = 32

	iso, err := svc.Compute(context.Background(), bilbaoOrigin(), params)
	if iso != nil {
		t.Error("expected no result on remote failure")
	}
	if !errors.Is(err, domain.ErrRemoteQueryFailed) {
		t.Fatalf("expected ErrRemoteQueryFailed, got %v", err)
	}
	var rq *domain.RemoteQueryError
	if !errors.As(err, &rq) || rq.Chunk != 1 {
		t.Fatalf("expected failure on chunk 1, got %v", err)
	}
	if table.callCount() != 2 {
		t.Errorf("expected no requests after the failure, got %d calls", table.callCount())
	}
}

func TestCompute_ShortTableResponse(t *testing.T) {
	table := &mockTable{tableFn: func(ctx context.Context, req ports.TableRequest) (*domain.TravelTimeTable, error) {
		return &domain.TravelTimeTable{Durations: [][]*float64{make([]*float64, len(req.Destinations)-1)}}, nil
	}}
	svc := usecases.NewIsochroneService(table, contour.New(), nil, nil, nil)

	_, err := svc.Compute(context.Background(), bilbaoOrigin(), footParams())
	if !errors.Is(err, domain.ErrReassemblyMismatch) {
		t.Fatalf("expected ErrReassemblyMismatch, got %v", err)
	}
}

func TestCompute_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		origin domain.Origin
		mutate func(p *domain.IsochroneParams)
		want   error
	}{
		{"single break", bilbaoOrigin(), func(p *domain.IsochroneParams) { p.Breaks = []float64{5} }, domain.ErrInvalidBreaks},
		{"negative break", bilbaoOrigin(), func(p *domain.IsochroneParams) { p.Breaks = []float64{-1, 2} }, domain.ErrInvalidBreaks},
		{"nan break", bilbaoOrigin(), func(p *domain.IsochroneParams) { p.Breaks = []float64{1, math.NaN()} }, domain.ErrInvalidBreaks},
		{"unknown profile", bilbaoOrigin(), func(p *domain.IsochroneParams) { p.Profile = "plane" }, domain.ErrUnsupportedProfile},
		{"tiny resolution", bilbaoOrigin(), func(p *domain.IsochroneParams) { p.Res = 1 }, domain.ErrInvalidResolution},
		{"bad latitude", domain.Origin{Location: domain.GeoPoint{Lat: 95, Lon: 0}}, func(*domain.IsochroneParams) {}, domain.ErrInvalidOrigin},
		{"bad crs", domain.Origin{Location: bilbao, SourceCRS: "+proj=nonsense"}, func(*domain.IsochroneParams) {}, domain.ErrInvalidCRS},
		{"utm without zone", domain.Origin{Location: bilbao, SourceCRS: "+proj=utm +datum=WGS84"}, func(*domain.IsochroneParams) {}, domain.ErrInvalidCRS},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := &mockTable{tableFn: distanceTable(walkingPace)}
			svc := usecases.NewIsochroneService(table, contour.New(), nil, nil, nil)
			params := footParams()
			tt.mutate(&params)

			_, err := svc.Compute(context.Background(), tt.origin, params)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !domain.IsInvalidInput(err) {
				t.Errorf("expected %v to be invalid input", err)
			}
			if table.callCount() != 0 {
				t.Errorf("invalid input must not reach the routing server")
			}
		})
	}
}

func TestCompute_FixesUpContourBands(t *testing.T) {
	square := func(off float64) orb.MultiPolygon {
		return orb.MultiPolygon{{{{off, off}, {off + 10, off}, {off + 10, off + 10}, {off, off + 10}, {off, off}}}}
	}
	center := bilbao.Mercator()
	cont := &mockContourer{contourFn: func(r *domain.Raster, breaks []float64) ([]domain.ContourBand, error) {
		return []domain.ContourBand{
			{IsoMin: 1, IsoMax: 2, Geometry: square(center[0])},
			{IsoMin: 2, IsoMax: 4, Geometry: nil},
			{IsoMin: 4, IsoMax: 6, Geometry: square(center[0] + 20)},
			{IsoMin: 6, IsoMax: math.Inf(1), Geometry: square(center[0] + 40)},
		}, nil
	}}
	table := &mockTable{tableFn: distanceTable(walkingPace)}
	svc := usecases.NewIsochroneService(table, cont, nil, nil, nil)

	params := footParams()
	params.Breaks = []float64{1, 2, 4, 6}
	iso, err := svc.Compute(context.Background(), bilbaoOrigin(), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cont.levels[0] != 0 {
		t.Errorf("contour levels must start at 0, got %v", cont.levels)
	}
	if len(iso.Bands) != 2 {
		t.Fatalf("expected empty and open-ended bands to be dropped, got %d", len(iso.Bands))
	}
	if iso.Bands[0].IsoMin != 0 || iso.Bands[0].ID != 1 {
		t.Errorf("first band = %+v, want isomin 0 and id 1", iso.Bands[0])
	}
	if iso.Bands[1].IsoMin != 4 || iso.Bands[1].ID != 2 {
		t.Errorf("second band = %+v, want isomin 4 and id 2", iso.Bands[1])
	}
	if iso.Breaks[0] != 1 {
		t.Errorf("reported breaks must be the requested ones, got %v", iso.Breaks)
	}
}

func TestCompute_EmptyLowestBandWidensNext(t *testing.T) {
	center := bilbao.Mercator()
	square := orb.MultiPolygon{{{{center[0], center[1]}, {center[0] + 10, center[1]}, {center[0] + 10, center[1] + 10}, {center[0], center[1] + 10}, {center[0], center[1]}}}}
	cont := &mockContourer{contourFn: func(r *domain.Raster, breaks []float64) ([]domain.ContourBand, error) {
		return []domain.ContourBand{
			{IsoMin: 0, IsoMax: 2},
			{IsoMin: 2, IsoMax: 4, Geometry: square},
		}, nil
	}}
	table := &mockTable{tableFn: distanceTable(walkingPace)}
	svc := usecases.NewIsochroneService(table, cont, nil, nil, nil)

	params := footParams()
	params.Breaks = []float64{0, 2, 4}
	iso, err := svc.Compute(context.Background(), bilbaoOrigin(), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(iso.Bands) != 1 {
		t.Fatalf("expected 1 band, got %d", len(iso.Bands))
	}
	if b := iso.Bands[0]; b.IsoMin != 0 || b.IsoMax != 4 || b.ID != 1 {
		t.Errorf("band = [%v,%v) id %d, want [0,4) id 1", b.IsoMin, b.IsoMax, b.ID)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	table := &mockTable{tableFn: distanceTable(walkingPace)}
	svc := usecases.NewIsochroneService(table, contour.New(), nil, nil, nil)

	a, err := svc.Compute(context.Background(), bilbaoOrigin(), footParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := svc.Compute(context.Background(), bilbaoOrigin(), footParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.Bands) != len(b.Bands) {
		t.Fatalf("band counts differ: %d vs %d", len(a.Bands), len(b.Bands))
	}
	for i := range a.Bands {
		if !orb.Equal(a.Bands[i].Geometry, b.Bands[i].Geometry) {
			t.Errorf("band %d geometry differs between runs", i)
		}
	}
}

func TestCompute_CachesAndRecords(t *testing.T) {
	table := &mockTable{tableFn: distanceTable(walkingPace)}
	cache := newMockCache()
	events := &mockPublisher{}
	archive := &mockArchive{}
	svc := usecases.NewIsochroneService(table, contour.New(), cache, events, archive)

	first, err := svc.Compute(context.Background(), bilbaoOrigin(), footParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	calls := table.callCount()

	if len(archive.saved) != 1 || first.ID != "iso-1" {
		t.Errorf("expected the result to be archived, id %q", first.ID)
	}
	if len(events.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events.events))
	}
	if e := events.events[0]; e.ID != "iso-1" || e.Bands != 3 || e.Profile != "foot" {
		t.Errorf("unexpected event %+v", e)
	}

	second, err := svc.Compute(context.Background(), bilbaoOrigin(), footParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.callCount() != calls {
		t.Error("cached result must not query the routing server")
	}
	if len(second.Bands) != len(first.Bands) || second.ID != first.ID {
		t.Errorf("cached result differs: %d bands id %q", len(second.Bands), second.ID)
	}
	if len(archive.saved) != 1 {
		t.Error("cached result must not be archived again")
	}
}

func TestCompute_PublishFailureIsNotFatal(t *testing.T) {
	table := &mockTable{tableFn: distanceTable(walkingPace)}
	events := &mockPublisher{publishFn: func(ctx context.Context, e *domain.IsochroneEvent) error {
		return errors.New("nats: no responders")
	}}
	svc := usecases.NewIsochroneService(table, contour.New(), nil, events, nil)

	if _, err := svc.Compute(context.Background(), bilbaoOrigin(), footParams()); err != nil {
		t.Fatalf("publish failure must not fail the computation, got %v", err)
	}
}

func TestIsochroneService_GetAndList(t *testing.T) {
	t.Run("no archive", func(t *testing.T) {
		svc := usecases.NewIsochroneService(&mockTable{}, contour.New(), nil, nil, nil)
		if _, err := svc.Get(context.Background(), "x"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		items, total, err := svc.List(context.Background(), 0, 10)
		if err != nil || total != 0 || len(items) != 0 {
			t.Errorf("expected an empty page, got %v %d %v", items, total, err)
		}
	})

	t.Run("clamps limit", func(t *testing.T) {
		var gotOffset, gotLimit int
		archive := &mockArchive{listFn: func(ctx context.Context, offset, limit int) ([]domain.IsochroneSummary, int, error) {
			gotOffset, gotLimit = offset, limit
			return []domain.IsochroneSummary{{ID: "a"}}, 1, nil
		}}
		svc := usecases.NewIsochroneService(&mockTable{}, contour.New(), nil, nil, archive)
		if _, _, err := svc.List(context.Background(), -5, 1000); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotOffset != 0 || gotLimit != 20 {
			t.Errorf("expected offset 0 limit 20, got %d %d", gotOffset, gotLimit)
		}
	})
}
