// Package osrm talks to an OSRM HTTP routing server.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/isoroute/internal/core/domain"
	"github.com/samirrijal/isoroute/internal/core/ports"
	"github.com/samirrijal/isoroute/internal/pkg/metrics"
	"github.com/samirrijal/isoroute/internal/pkg/polyline"
)

// maxErrorBody bounds how much of a failed response is kept for the error.
const maxErrorBody = 512

// Config holds connection settings for the routing server.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Profile is used for the readiness probe.
	Profile string
}

// Client implements ports.TableClient and ports.RouteClient over the OSRM
// HTTP API (v1).
type Client struct {
	baseURL string
	profile string
	http    *http.Client
}

var (
	_ ports.TableClient = (*Client)(nil)
	_ ports.RouteClient = (*Client)(nil)
)

// NewClient creates a new Client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Profile == "" {
		cfg.Profile = "car"
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		profile: cfg.Profile,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// BaseURL returns the server root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Error is a failed OSRM call: a non-2xx status or a response whose code
// is not "Ok".
type Error struct {
	Service string
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("osrm %s: status %d: %s: %s", e.Service, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("osrm %s: status %d: %s", e.Service, e.Status, e.Message)
}

type waypoint struct {
	Location [2]float64 `json:"location"`
	Name     string     `json:"name"`
}

type tableResponse struct {
	Code         string       `json:"code"`
	Message      string       `json:"message"`
	Durations    [][]*float64 `json:"durations"`
	Distances    [][]*float64 `json:"distances"`
	Sources      []waypoint   `json:"sources"`
	Destinations []waypoint   `json:"destinations"`
}

type routeResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Duration float64 `json:"duration"` // seconds
		Distance float64 `json:"distance"` // metres
		Geometry string  `json:"geometry"`
	} `json:"routes"`
}

type statusResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Table requests durations (seconds) from every source to every destination.
func (c *Client) Table(ctx context.Context, req ports.TableRequest) (*domain.TravelTimeTable, error) {
	if len(req.Sources) == 0 || len(req.Destinations) == 0 {
		return nil, fmt.Errorf("osrm table: need at least one source and one destination")
	}
	coords := append(append([]domain.GeoPoint(nil), req.Sources...), req.Destinations...)

	var q query
	q.set("sources", indexRange(0, len(req.Sources)))
	q.set("destinations", indexRange(len(req.Sources), len(coords)))
	if req.WithDistance {
		q.set("annotations", "duration,distance")
	} else {
		q.set("annotations", "duration")
	}
	q.exclude(req.Exclude)

	var resp tableResponse
	if err := c.get(ctx, "table", req.Profile, coords, q, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "Ok" {
		return nil, &Error{Service: "table", Status: http.StatusOK, Code: resp.Code, Message: resp.Message}
	}
	if len(resp.Durations) != len(req.Sources) {
		return nil, fmt.Errorf("osrm table: got %d duration rows for %d sources", len(resp.Durations), len(req.Sources))
	}

	return &domain.TravelTimeTable{
		Durations:    resp.Durations,
		Distances:    resp.Distances,
		Sources:      snapped(resp.Sources),
		Destinations: snapped(resp.Destinations),
	}, nil
}

// Route requests the fastest route between two points.
func (c *Client) Route(ctx context.Context, req ports.RouteRequest) (*domain.Route, error) {
	overview := req.Overview
	if overview == "" {
		overview = "simplified"
	}
	var q query
	q.set("overview", overview)
	q.set("geometries", "polyline")
	q.set("alternatives", "false")
	q.set("steps", "false")
	q.exclude(req.Exclude)

	var resp routeResponse
	if err := c.get(ctx, "route", req.Profile, []domain.GeoPoint{req.Source, req.Destination}, q, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "Ok" {
		return nil, &Error{Service: "route", Status: http.StatusOK, Code: resp.Code, Message: resp.Message}
	}
	if len(resp.Routes) == 0 {
		return nil, &Error{Service: "route", Status: http.StatusOK, Code: "NoRoute", Message: "no route returned"}
	}

	r := resp.Routes[0]
	route := &domain.Route{
		Source:      req.Source,
		Destination: req.Destination,
		Duration:    r.Duration / 60,
		Distance:    r.Distance / 1000,
	}
	if r.Geometry != "" {
		ls, err := polyline.Decode(r.Geometry)
		if err != nil {
			return nil, fmt.Errorf("osrm route geometry: %w", err)
		}
		route.Geometry = ls
	}
	return route, nil
}

// Ping checks that the server answers a nearest query for its profile.
func (c *Client) Ping(ctx context.Context) error {
	var resp statusResponse
	var q query
	q.set("number", "1")
	if err := c.get(ctx, "nearest", c.profile, []domain.GeoPoint{{}}, q, &resp); err != nil {
		return err
	}
	// An empty dataset answers NoSegment, which still proves the server is up.
	if resp.Code != "Ok" && resp.Code != "NoSegment" {
		return &Error{Service: "nearest", Status: http.StatusOK, Code: resp.Code, Message: resp.Message}
	}
	return nil
}

func (c *Client) get(ctx context.Context, service, profile string, coords []domain.GeoPoint, q query, out any) error {
	u := fmt.Sprintf("%s/%s/v1/%s/%s", c.baseURL, service, url.PathEscape(profile), encodeCoords(coords))
	if len(q) > 0 {
		u += "?" + strings.Join(q, "&")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("osrm %s: build request: %w", service, err)
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveOSRM(service, 0, started)
		return fmt.Errorf("osrm %s: %w", service, err)
	}
	defer resp.Body.Close()
	metrics.ObserveOSRM(service, resp.StatusCode, started)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var status statusResponse
		if json.Unmarshal(body, &status) == nil && status.Code != "" {
			return &Error{Service: service, Status: resp.StatusCode, Code: status.Code, Message: status.Message}
		}
		return &Error{Service: service, Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("osrm %s: decode response: %w", service, err)
	}
	return nil
}

// encodeCoords renders points as "lon,lat;lon,lat" with six decimals.
func encodeCoords(points []domain.GeoPoint) string {
	var b strings.Builder
	for i, p := range points {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(strconv.FormatFloat(p.Lon, 'f', 6, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(p.Lat, 'f', 6, 64))
	}
	return b.String()
}

// indexRange renders "from;from+1;...;to-1".
func indexRange(from, to int) string {
	idx := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		idx = append(idx, strconv.Itoa(i))
	}
	return strings.Join(idx, ";")
}

// query keeps parameters in insertion order. OSRM list separators (";" and
// ",") are left unescaped.
type query []string

func (q *query) set(key, value string) { *q = append(*q, key+"="+value) }

func (q *query) exclude(classes []string) {
	if len(classes) == 0 {
		return
	}
	esc := make([]string, len(classes))
	for i, c := range classes {
		esc[i] = url.QueryEscape(c)
	}
	q.set("exclude", strings.Join(esc, ","))
}

func snapped(wps []waypoint) []domain.GeoPoint {
	if len(wps) == 0 {
		return nil
	}
	out := make([]domain.GeoPoint, len(wps))
	for i, w := range wps {
		out[i] = domain.GeoPoint{Lon: w.Location[0], Lat: w.Location[1]}
	}
	return out
}
