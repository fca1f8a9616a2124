package writer_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/eokit/satctl/common"
	"github.com/eokit/satctl/interface/writer"
	"github.com/eokit/satctl/scene"
)

type fakeWriter struct {
	name string
}

func (w *fakeWriter) Name() string      { return w.name }
func (w *fakeWriter) Extension() string { return "bin" }
func (w *fakeWriter) Save(ctx context.Context, s *scene.Scene, item common.Item, params common.ConversionParams, destination string) (string, error) {
	return "", nil
}

func TestWriterRegistry(t *testing.T) {
	for _, name := range []string{"geotiff", "geotiff-cog", "netcdf"} {
		name := name
		writer.Register(name, func(config map[string]string) (writer.Writer, error) {
			return &fakeWriter{name: name}, nil
		})
	}

	if got := writer.List("geotiff*"); !reflect.DeepEqual(got, []string{"geotiff", "geotiff-cog"}) {
		t.Errorf("List(geotiff*)=%v", got)
	}

	w, err := writer.New("netcdf", nil)
	if err != nil {
		t.Fatal(err)
	}
	if w.Name() != "netcdf" {
		t.Errorf("name=%s", w.Name())
	}

	_, err = writer.New("does-not-exist", nil)
	var uerr writer.ErrUnknownWriter
	if !errors.As(err, &uerr) || uerr.Name != "does-not-exist" {
		t.Fatalf("expected unknown-writer, got %v", err)
	}
}
