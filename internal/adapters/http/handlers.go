package http

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/samirrijal/isoroute/internal/core/domain"
	"github.com/samirrijal/isoroute/internal/core/usecases"
)

const contentTypeGeoJSON = "application/geo+json"

// IsochroneRequest is the body of POST /v1/isochrones. Omitted parameters
// take the server defaults.
type IsochroneRequest struct {
	ID      string    `json:"id"`
	Lon     *float64  `json:"lon"`
	Lat     *float64  `json:"lat"`
	CRS     string    `json:"crs"`
	Breaks  []float64 `json:"breaks"`
	Res     int       `json:"res"`
	Smooth  *bool     `json:"smooth"`
	K       float64   `json:"k"`
	Profile string    `json:"profile"`
	Exclude []string  `json:"exclude"`
	Server  string    `json:"server"`
}

// BatchOrigin is one origin of a batch request.
type BatchOrigin struct {
	ID  string  `json:"id"`
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// BatchRequest is the body of POST /v1/batches. The embedded request's
// lon/lat are ignored; crs applies to every origin.
type BatchRequest struct {
	Origins []BatchOrigin `json:"origins"`
	IsochroneRequest
}

// TableRequest is the body of POST /v1/table. Points are [lon, lat].
type TableRequest struct {
	Sources      [][2]float64 `json:"sources"`
	Destinations [][2]float64 `json:"destinations"`
	Profile      string       `json:"profile"`
	Exclude      []string     `json:"exclude"`
	Distances    bool         `json:"distances"`
	Server       string       `json:"server"`
}

// params merges request overrides into the defaults.
func (r IsochroneRequest) params(defaults domain.IsochroneParams) (domain.IsochroneParams, error) {
	p := defaults
	if len(r.Breaks) > 0 {
		p.Breaks = r.Breaks
	}
	if r.Res != 0 {
		p.Res = r.Res
	}
	if r.Smooth != nil {
		p.Smooth = *r.Smooth
	}
	if r.K != 0 {
		p.K = r.K
	}
	if r.Profile != "" {
		p.Profile = r.Profile
	}
	if r.Exclude != nil {
		p.Exclude = r.Exclude
	}
	if r.Server != "" {
		sc, err := domain.LookupServerClass(r.Server)
		if err != nil {
			return p, err
		}
		p.Server = sc
	}
	return p, nil
}

// ComputeIsochroneHandler computes an isochrone and returns it as GeoJSON.
func ComputeIsochroneHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req IsochroneRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Lon == nil || req.Lat == nil {
			return errBadRequest(c, "lon and lat are required")
		}

		params, err := req.params(deps.Defaults)
		if err != nil {
			return errDomain(c, err)
		}
		origin, err := usecases.ResolveOrigin(req.ID, *req.Lon, *req.Lat, req.CRS)
		if err != nil {
			return errDomain(c, err)
		}

		iso, err := deps.Isochrones.Compute(c.UserContext(), origin, params)
		if err != nil {
			return errDomain(c, err)
		}
		return sendIsochrone(c, iso)
	}
}

// GetIsochroneHandler returns an archived isochrone.
func GetIsochroneHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "isochrone id is required")
		}
		iso, err := deps.Isochrones.Get(c.UserContext(), id)
		if err != nil {
			return errDomain(c, err)
		}
		return sendIsochrone(c, iso)
	}
}

// ListIsochronesHandler pages through archived isochrones.
func ListIsochronesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 20)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		items, total, err := deps.Isochrones.List(c.UserContext(), offset, limit)
		if err != nil {
			return errDomain(c, err)
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: items, Pagination: pg})
	}
}

// SubmitBatchHandler queues a batch of isochrones for the worker.
func SubmitBatchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Jobs == nil {
			return errUnavailable(c, "batch processing is not configured")
		}

		var req BatchRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if len(req.Origins) == 0 {
			return errBadRequest(c, "at least one origin is required")
		}
		if len(req.Origins) > 1000 {
			return errBadRequest(c, "too many origins (max 1000)")
		}

		params, err := req.params(deps.Defaults)
		if err != nil {
			return errDomain(c, err)
		}
		if params.Breaks, err = domain.NormalizeBreaks(params.Breaks); err != nil {
			return errDomain(c, err)
		}
		if err := domain.ValidateProfile(params.Profile); err != nil {
			return errDomain(c, err)
		}

		job := &domain.IsochroneJob{ID: uuid.NewString(), Params: params}
		for i, o := range req.Origins {
			origin, err := usecases.ResolveOrigin(o.ID, o.Lon, o.Lat, req.CRS)
			if err != nil {
				return errBadRequest(c, fmt.Sprintf("origin %d: %v", i, err))
			}
			job.Origins = append(job.Origins, origin)
		}

		if err := deps.Jobs.PublishIsochroneJob(c.UserContext(), job); err != nil {
			return errDomain(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"id":      job.ID,
			"origins": len(job.Origins),
		})
	}
}

// RouteHandler returns the fastest route between src and dst as a GeoJSON
// Feature. Both points are "lon,lat".
func RouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		src, err := parseLonLat(c.Query("src"))
		if err != nil {
			return errBadRequest(c, "src: "+err.Error())
		}
		dst, err := parseLonLat(c.Query("dst"))
		if err != nil {
			return errBadRequest(c, "dst: "+err.Error())
		}

		q := usecases.RouteQuery{
			Source:      src,
			Destination: dst,
			Profile:     c.Query("profile", deps.Defaults.Profile),
			Overview:    c.Query("overview"),
			SourceCRS:   c.Query("crs"),
		}
		if ex := c.Query("exclude"); ex != "" {
			q.Exclude = strings.Split(ex, ",")
		}

		route, err := deps.Routes.Route(c.UserContext(), q)
		if err != nil {
			return errDomain(c, err)
		}

		data, err := route.Feature().MarshalJSON()
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set(fiber.HeaderContentType, contentTypeGeoJSON)
		return c.Send(data)
	}
}

// TableHandler returns a travel-time matrix in minutes.
func TableHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req TableRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		q := usecases.MatrixQuery{
			Sources:      toGeoPoints(req.Sources),
			Destinations: toGeoPoints(req.Destinations),
			Profile:      req.Profile,
			Exclude:      req.Exclude,
			WithDistance: req.Distances,
			Server:       deps.Defaults.Server,
		}
		if q.Profile == "" {
			q.Profile = deps.Defaults.Profile
		}
		if req.Server != "" {
			sc, err := domain.LookupServerClass(req.Server)
			if err != nil {
				return errDomain(c, err)
			}
			q.Server = sc
		}

		m, err := deps.Matrices.Matrix(c.UserContext(), q)
		if err != nil {
			return errDomain(c, err)
		}
		return c.JSON(m)
	}
}

func sendIsochrone(c *fiber.Ctx, iso *domain.Isochrone) error {
	data, err := iso.MarshalGeoJSON()
	if err != nil {
		return errInternal(c, err.Error())
	}
	if iso.Warning != "" {
		c.Set("X-Isochrone-Warning", iso.Warning)
	}
	c.Set(fiber.HeaderContentType, contentTypeGeoJSON)
	return c.Send(data)
}

func parseLonLat(s string) (domain.GeoPoint, error) {
	lonStr, latStr, ok := strings.Cut(s, ",")
	if !ok {
		return domain.GeoPoint{}, fmt.Errorf("expected lon,lat, got %q", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("invalid longitude %q", lonStr)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("invalid latitude %q", latStr)
	}
	return domain.GeoPoint{Lat: lat, Lon: lon}, nil
}

func toGeoPoints(in [][2]float64) []domain.GeoPoint {
	out := make([]domain.GeoPoint, len(in))
	for i, p := range in {
		out[i] = domain.GeoPoint{Lon: p[0], Lat: p[1]}
	}
	return out
}
