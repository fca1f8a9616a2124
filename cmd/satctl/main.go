package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/araddon/dateparse"
	"go.uber.org/zap"

	"github.com/eokit/satctl/common"
	"github.com/eokit/satctl/interface/raster"
	"github.com/eokit/satctl/interface/source"
	"github.com/eokit/satctl/interface/source/landsat"
	"github.com/eokit/satctl/interface/source/sentinel2"
	"github.com/eokit/satctl/interface/writer"
	"github.com/eokit/satctl/interface/writer/geotiff"
	"github.com/eokit/satctl/service"
	"github.com/eokit/satctl/service/log"
)

const (
	exitOK             = 0
	exitPartialFailure = 1
	exitUsage          = 2
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	registerAll()

	code, err := run(ctx, os.Args[1:])
	if err != nil {
		log.Logger(ctx).Error("satctl", zap.Error(err))
	}
	os.Exit(code)
}

// registerAll wires the supported sources and writers into their registries
func registerAll() {
	loader := raster.NewLoader()
	source.Register("s2l1c", sentinel2.NewFactory("s2l1c", "S2MSI1C", loader))
	source.Register("s2l2a", sentinel2.NewFactory("s2l2a", "S2MSI2A", loader))
	source.Register("landsat-l2", landsat.NewFactory("landsat-l2", loader))
	writer.Register(geotiff.WriterName, geotiff.NewFactory(nil, nil))
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: satctl <command> [flags]

commands:
  list-sources   list the registered sources (optional glob pattern)
  list-writers   list the registered writers (optional glob pattern)
  search         query a source catalog, emit the matching items as json
  download       fetch the assets of items previously found by search
  convert        convert downloaded items to an output format

run 'satctl <command> -h' for the flags of each command.
`)
}

func run(ctx context.Context, args []string) (int, error) {
	if len(args) == 0 {
		usage()
		return exitUsage, nil
	}
	switch args[0] {
	case "list-sources":
		return runList(args[1:], source.List)
	case "list-writers":
		return runList(args[1:], writer.List)
	case "search":
		return runSearch(ctx, args[1:])
	case "download":
		return runDownload(ctx, args[1:])
	case "convert":
		return runConvert(ctx, args[1:])
	case "-h", "--help", "help":
		usage()
		return exitOK, nil
	default:
		usage()
		return exitUsage, fmt.Errorf("unknown command: %s", args[0])
	}
}

func runList(args []string, list func(pattern string) []string) (int, error) {
	pattern := "*"
	if len(args) > 0 {
		pattern = args[0]
	}
	for _, name := range list(pattern) {
		fmt.Println(name)
	}
	return exitOK, nil
}

// sourceFlags holds the flags shared by the commands that instantiate a source
type sourceFlags struct {
	name            string
	username        string
	password        string
	awsAccessKeyID  string
	awsSecretAccess string
	catalogURL      string
}

func (f *sourceFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.name, "source", "", "source name (see list-sources)")
	fs.StringVar(&f.username, "username", "", "source account username (optional)")
	fs.StringVar(&f.password, "password", "", "source account password (optional)")
	fs.StringVar(&f.awsAccessKeyID, "aws-access-key-id", "", "aws access key id, for requester-pays buckets (optional)")
	fs.StringVar(&f.awsSecretAccess, "aws-secret-access-key", "", "aws secret access key (optional)")
	fs.StringVar(&f.catalogURL, "catalog-url", "", "catalog endpoint override (optional)")
}

func (f *sourceFlags) newSource() (source.Source, error) {
	if f.name == "" {
		return nil, common.NewValidationError("missing -source flag")
	}
	config := map[string]string{}
	for key, value := range map[string]string{
		"username":              f.username,
		"password":              f.password,
		"aws-access-key-id":     f.awsAccessKeyID,
		"aws-secret-access-key": f.awsSecretAccess,
		"catalog-url":           f.catalogURL,
	} {
		if value != "" {
			config[key] = value
		}
	}
	return source.New(f.name, config)
}

// parseOptions parses a comma-separated key=value list
func parseOptions(s string) (map[string]string, error) {
	options := map[string]string{}
	if s == "" {
		return options, nil
	}
	for _, kv := range strings.Split(s, ",") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, common.NewValidationError("malformed option %q, expected key=value", kv)
		}
		options[parts[0]] = parts[1]
	}
	return options, nil
}

func runSearch(ctx context.Context, args []string) (int, error) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	srcFlags := sourceFlags{}
	srcFlags.register(fs)
	aoiFile := fs.String("aoi", "", "geojson file with the area of interest")
	startDate := fs.String("start-date", "", "start of the acquisition window (inclusive)")
	endDate := fs.String("end-date", "", "end of the acquisition window (exclusive)")
	options := fs.String("option", "", "source-specific options, comma-separated key=value list (optional)")
	output := fs.String("output", "", "write the items to this json file instead of stdout (optional)")
	fs.Parse(args)

	s, err := srcFlags.newSource()
	if err != nil {
		return exitUsage, err
	}
	if *aoiFile == "" || *startDate == "" || *endDate == "" {
		return exitUsage, common.NewValidationError("missing -aoi, -start-date or -end-date flag")
	}
	start, err := dateparse.ParseAny(*startDate)
	if err != nil {
		return exitUsage, common.NewValidationError("start-date: %v", err)
	}
	end, err := dateparse.ParseAny(*endDate)
	if err != nil {
		return exitUsage, common.NewValidationError("end-date: %v", err)
	}
	opts, err := parseOptions(*options)
	if err != nil {
		return exitUsage, err
	}
	params, err := service.NewSearchParamsFromFile(*aoiFile, start, end, opts)
	if err != nil {
		return exitUsage, err
	}

	items, err := s.Search(ctx, params)
	if err != nil {
		var verr common.ValidationError
		if errors.As(err, &verr) {
			return exitUsage, err
		}
		return exitPartialFailure, err
	}
	log.Logger(ctx).Sugar().Infof("found %d items", len(items))
	if err := writeItems(items, *output); err != nil {
		return exitPartialFailure, err
	}
	return exitOK, nil
}

func runDownload(ctx context.Context, args []string) (int, error) {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	srcFlags := sourceFlags{}
	srcFlags.register(fs)
	itemsFile := fs.String("items", "", "json file with the items to download (output of search)")
	destination := fs.String("destination", ".", "directory receiving one subdirectory per item")
	workers := fs.Int("workers", 4, "number of concurrent downloads")
	fs.Parse(args)

	s, err := srcFlags.newSource()
	if err != nil {
		return exitUsage, err
	}
	items, err := readItems(*itemsFile)
	if err != nil {
		return exitUsage, err
	}

	result, err := s.Download(ctx, items, *destination, *workers)
	if err != nil {
		var verr common.ValidationError
		if errors.As(err, &verr) {
			return exitUsage, err
		}
		return exitPartialFailure, err
	}
	logFailures(ctx, result.Failed)
	for _, item := range result.Succeeded {
		fmt.Printf("%s\t%s\n", item.ID, common.StatusDONE)
	}
	for _, f := range result.Failed {
		fmt.Printf("%s\t%s\n", f.Item.ID, common.StatusFAILED)
	}
	log.Logger(ctx).Sugar().Infof("downloaded %d/%d items", len(result.Succeeded), len(items))
	if len(result.Failed) > 0 {
		return exitPartialFailure, nil
	}
	return exitOK, nil
}

func runConvert(ctx context.Context, args []string) (int, error) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	srcFlags := sourceFlags{}
	srcFlags.register(fs)
	itemsFile := fs.String("items", "", "json file with the items to convert (output of search)")
	downloadDir := fs.String("download-dir", ".", "directory where the items were downloaded")
	destination := fs.String("destination", ".", "directory receiving the converted artifacts")
	writerName := fs.String("writer", geotiff.WriterName, "writer name (see list-writers)")
	writerOptions := fs.String("writer-option", "", "writer-specific options, comma-separated key=value list (optional)")
	targetCRS := fs.String("target-crs", "", "target coordinate reference system (e.g. EPSG:4326)")
	datasets := fs.String("datasets", "", "comma-separated list of datasets/bands to extract")
	resolution := fs.Float64("resolution", 0, "target resolution, in units of the target crs")
	workers := fs.Int("workers", 4, "number of concurrent conversions")
	fs.Parse(args)

	s, err := srcFlags.newSource()
	if err != nil {
		return exitUsage, err
	}
	items, err := readItems(*itemsFile)
	if err != nil {
		return exitUsage, err
	}
	wopts, err := parseOptions(*writerOptions)
	if err != nil {
		return exitUsage, err
	}
	w, err := writer.New(*writerName, wopts)
	if err != nil {
		return exitUsage, err
	}
	params, err := common.NewConversionParams(*targetCRS, splitList(*datasets), *resolution, wopts)
	if err != nil {
		return exitUsage, err
	}

	result, err := s.Save(ctx, items, params, *downloadDir, *destination, w, *workers)
	if err != nil {
		var verr common.ValidationError
		if errors.As(err, &verr) {
			return exitUsage, err
		}
		return exitPartialFailure, err
	}
	logFailures(ctx, result.Failed)
	log.Logger(ctx).Sugar().Infof("converted %d/%d items", len(result.Written), len(items))
	for _, path := range result.Written {
		fmt.Println(path)
	}
	if len(result.Failed) > 0 {
		return exitPartialFailure, nil
	}
	return exitOK, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func writeItems(items []common.Item, output string) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("writeItems: %w", err)
	}
	if output == "" {
		fmt.Println(string(data))
		return nil
	}
	return os.WriteFile(output, data, 0644)
}

func readItems(itemsFile string) ([]common.Item, error) {
	if itemsFile == "" {
		return nil, common.NewValidationError("missing -items flag")
	}
	data, err := os.ReadFile(itemsFile)
	if err != nil {
		return nil, fmt.Errorf("readItems: %w", err)
	}
	var items []common.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("readItems: %w", err)
	}
	// concatenated search outputs may repeat an item
	seen := service.StringSet{}
	unique := items[:0]
	for _, item := range items {
		if !seen.Exists(item.ID) {
			seen.Push(item.ID)
			unique = append(unique, item)
		}
	}
	return unique, nil
}

func logFailures(ctx context.Context, failed []common.ItemError) {
	for _, f := range failed {
		log.Logger(ctx).Warn("item failed", zap.String("item", f.Item.ID), zap.Error(f.Err))
	}
}
