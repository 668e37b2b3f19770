// Package geo builds the equipment map: markers at each installation,
// geofence circles around them and the recorded position history.
package geo

import (
	"math"
	"sort"
	"time"

	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

const earthRadiusMeters = 6371000.0

// DefaultCenter is used when no equipment has coordinates (Bogotá).
var DefaultCenter = Point{Lat: 4.7110, Lng: -74.0721}

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether p is inside the coordinate ranges and not the
// zero value placeholder.
func (p Point) Valid() bool {
	if p.Lat == 0 && p.Lng == 0 {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLng := radians(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Geofence is a circle around an installation.
type Geofence struct {
	EquipoID     string  `json:"equipoId"`
	Center       Point   `json:"center"`
	RadiusMeters float64 `json:"radius"`
}

// Inside reports whether p lies within the fence, border included.
func Inside(g Geofence, p Point) bool {
	return Distance(g.Center, p) <= g.RadiusMeters
}

// Marker is one equipment pin.
type Marker struct {
	EquipoID string `json:"equipoId"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Color    string `json:"color"`
	Position Point  `json:"position"`
	// Outside is set when the latest recorded position left the geofence.
	Outside bool `json:"outside"`
}

// Track is the ordered position history of one equipment.
type Track struct {
	EquipoID string  `json:"equipoId"`
	Points   []Point `json:"points"`
}

// Bounds is the bounding box of every plotted point.
type Bounds struct {
	SouthWest Point `json:"southWest"`
	NorthEast Point `json:"northEast"`
}

// Center returns the middle of the box.
func (b Bounds) Center() Point {
	return Point{Lat: (b.SouthWest.Lat + b.NorthEast.Lat) / 2, Lng: (b.SouthWest.Lng + b.NorthEast.Lng) / 2}
}

// MapView is everything the map template needs.
type MapView struct {
	APIKey    string     `json:"-"`
	Center    Point      `json:"center"`
	Bounds    *Bounds    `json:"bounds,omitempty"`
	Markers   []Marker   `json:"markers"`
	Geofences []Geofence `json:"geofences"`
	Tracks    []Track    `json:"tracks"`
	// Skipped counts equipment without usable coordinates.
	Skipped int `json:"skipped"`
}

// OutsideCount returns the number of flagged markers.
func (m MapView) OutsideCount() int {
	n := 0
	for _, marker := range m.Markers {
		if marker.Outside {
			n++
		}
	}
	return n
}

// StatusColors maps equipment status to marker color.
var StatusColors = map[string]string{
	"operativo":         "#16a34a",
	"en_mantenimiento":  "#f59e0b",
	"fuera_de_servicio": "#dc2626",
	"dado_de_baja":      "#6b7280",
}

const defaultMarkerColor = "#2563eb"

// Record keys read from the equipos and ubicaciones resources.
const (
	KeyLatitude  = "latitud"
	KeyLongitude = "longitud"
	KeyRadius    = "radioGeocerca"
	KeyEquipo    = "equipo"
	KeyFecha     = "fecha"
)

type historyPoint struct {
	at    time.Time
	point Point
}

// BuildMap assembles markers, geofences and tracks from equipment records
// and their position history (records with equipo, latitud, longitud and
// fecha).
func BuildMap(equipos, history []backend.Record, apiKey string) MapView {
	view := MapView{APIKey: apiKey, Markers: []Marker{}, Geofences: []Geofence{}, Tracks: []Track{}}

	byEquipo := map[string][]historyPoint{}
	for _, rec := range history {
		p, ok := pointOf(rec)
		if !ok {
			continue
		}
		at, _ := rec.Time(KeyFecha)
		id := rec.String(KeyEquipo)
		byEquipo[id] = append(byEquipo[id], historyPoint{at: at, point: p})
	}

	var bounds *Bounds
	extend := func(p Point) {
		if bounds == nil {
			bounds = &Bounds{SouthWest: p, NorthEast: p}
			return
		}
		bounds.SouthWest.Lat = math.Min(bounds.SouthWest.Lat, p.Lat)
		bounds.SouthWest.Lng = math.Min(bounds.SouthWest.Lng, p.Lng)
		bounds.NorthEast.Lat = math.Max(bounds.NorthEast.Lat, p.Lat)
		bounds.NorthEast.Lng = math.Max(bounds.NorthEast.Lng, p.Lng)
	}

	for _, rec := range equipos {
		pos, ok := pointOf(rec)
		if !ok {
			view.Skipped++
			continue
		}
		id := rec.ID()
		status := rec.String("estado")
		color := StatusColors[status]
		if color == "" {
			color = defaultMarkerColor
		}
		marker := Marker{EquipoID: id, Title: rec.String("nombre"), Status: status, Color: color, Position: pos}
		extend(pos)

		points := byEquipo[id]
		sort.SliceStable(points, func(i, j int) bool { return points[i].at.Before(points[j].at) })
		if len(points) > 0 {
			track := Track{EquipoID: id, Points: make([]Point, len(points))}
			for i, hp := range points {
				track.Points[i] = hp.point
				extend(hp.point)
			}
			view.Tracks = append(view.Tracks, track)
		}

		if radius, ok := rec.Float(KeyRadius); ok && radius > 0 {
			fence := Geofence{EquipoID: id, Center: pos, RadiusMeters: radius}
			view.Geofences = append(view.Geofences, fence)
			if len(points) > 0 && !Inside(fence, points[len(points)-1].point) {
				marker.Outside = true
			}
		}
		view.Markers = append(view.Markers, marker)
	}

	view.Bounds = bounds
	if bounds != nil {
		view.Center = bounds.Center()
	} else {
		view.Center = DefaultCenter
	}
	return view
}

func pointOf(rec backend.Record) (Point, bool) {
	lat, okLat := rec.Float(KeyLatitude)
	lng, okLng := rec.Float(KeyLongitude)
	if !okLat || !okLng {
		return Point{}, false
	}
	p := Point{Lat: lat, Lng: lng}
	return p, p.Valid()
}
