package geometry

import (
	"testing"

	"github.com/go-spatial/geom"
)

var aoi = geom.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}}

func TestIntersects(t *testing.T) {
	ok, err := Intersects(aoi, "POLYGON((1 1, 3 1, 3 3, 1 3, 1 1))")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected overlapping footprints to intersect")
	}

	ok, err = Intersects(aoi, "POLYGON((10 10, 11 10, 11 11, 10 11, 10 10))")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected disjoint footprints not to intersect")
	}
}

func TestGeomToGeos(t *testing.T) {
	if _, err := GeomToGeos(aoi); err != nil {
		t.Fatal(err)
	}
	if _, err := GeomToGeos(nil); err == nil {
		t.Error("expected an error for a nil geometry")
	}
}
