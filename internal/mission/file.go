package mission

import (
	"fmt"
	"os"

	"github.com/sailcore/sailcore/internal/geo"
	"github.com/sailcore/sailcore/internal/waypoint"
	"gopkg.in/yaml.v3"
)

// ParseError reports a malformed mission file (§7).
type ParseError struct {
	Path   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("mission: parse %s: %s", e.Path, e.Reason)
}

// waypointDoc mirrors one attractor or repellor entry in the mission
// file (§6). Angles are in degrees on disk; Load converts to radians.
type waypointDoc struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Name      string  `yaml:"name"`
	Normal    float64 `yaml:"normal"`
	Range     float64 `yaml:"range"`
}

// launchDoc is the mission file's launch site (§6).
type launchDoc struct {
	Site      string  `yaml:"site"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// fileDoc is the raw mission file shape. Unknown fields are ignored by
// yaml.v3's default unmarshal behavior.
type fileDoc struct {
	Title       string        `yaml:"title"`
	URL         string        `yaml:"url"`
	Description string        `yaml:"description"`
	Launch      launchDoc     `yaml:"launch"`
	Attractors  []waypointDoc `yaml:"attractors"`
	Repellors   []waypointDoc `yaml:"repellors"`
}

// File is a loaded, immutable mission: title/description metadata, the
// launch site, and the attractor/repellor waypoint lists the navigator
// consumes for the rest of the voyage.
type File struct {
	Title       string
	URL         string
	Description string
	Launch      geo.Location
	Attractors  []*waypoint.Waypoint
	Repellors   []*waypoint.Waypoint
}

// LoadFile reads and parses a mission file from path (§6, consumed-only
// — there is no authoring/export path in this core).
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Reason: err.Error()}
	}

	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: path, Reason: err.Error()}
	}

	if len(doc.Attractors) == 0 {
		return nil, &ParseError{Path: path, Reason: "mission file has no attractors"}
	}

	f := &File{
		Title:       doc.Title,
		URL:         doc.URL,
		Description: doc.Description,
		Launch:      geo.NewFromDegrees(doc.Launch.Latitude, doc.Launch.Longitude),
	}

	for _, a := range doc.Attractors {
		f.Attractors = append(f.Attractors, waypointFromDoc(a, true))
	}
	for _, r := range doc.Repellors {
		f.Repellors = append(f.Repellors, waypointFromDoc(r, false))
	}

	return f, nil
}

func waypointFromDoc(d waypointDoc, attractor bool) *waypoint.Waypoint {
	loc := geo.NewFromDegrees(d.Latitude, d.Longitude)
	normal := geo.DegreesToRadians(d.Normal)
	return waypoint.New(d.Name, loc, normal, d.Range, attractor)
}
