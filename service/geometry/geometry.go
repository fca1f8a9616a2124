package geometry

import (
	"fmt"

	"github.com/go-spatial/geom"
	geomwkt "github.com/go-spatial/geom/encoding/wkt"
	"github.com/paulsmith/gogeos/geos"
)

// GeomToGeos generates a geos.Geometry from a geom.Geometry
func GeomToGeos(g geom.Geometry) (*geos.Geometry, error) {
	wkt, err := geomwkt.EncodeString(g)
	if err != nil {
		return nil, fmt.Errorf("GeomToGeos.EncodeString: %w", err)
	}
	geometry, err := geos.FromWKT(wkt)
	if err != nil {
		return nil, fmt.Errorf("GeomToGeos.FromWKT: %w", err)
	}
	return geometry, nil
}

// Intersects returns whether the footprint (given as WKT) intersects the area of interest.
// It is used for client-side spatial filtering when a provider cannot filter server-side.
func Intersects(aoi geom.Geometry, footprintWKT string) (bool, error) {
	a, err := GeomToGeos(aoi)
	if err != nil {
		return false, fmt.Errorf("Intersects.%w", err)
	}
	f, err := geos.FromWKT(footprintWKT)
	if err != nil {
		return false, fmt.Errorf("Intersects.FromWKT: %w", err)
	}
	return a.Intersects(f)
}
