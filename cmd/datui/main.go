// Command datui is the CLI entrypoint that wires the data plane
// (internal/source, internal/format, internal/hiveschema,
// internal/dataset, internal/query, internal/paging) to the flag
// surface in spec §6. The interactive terminal-UI rendering loop is out
// of scope for this thin entrypoint (see SPEC_FULL.md §1); datui loads
// the requested input(s), applies any --template default view, and
// renders the first page to stdout as a smoke-test of the pipeline.
//
// Flag parsing follows the teacher-adjacent cmd/lci/main.go pattern
// (github.com/urfave/cli/v2), since the teacher itself is a GUI-only
// Wails app with no CLI-flag surface to imitate.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/derekwisong/datui/internal/config"
	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/errs"
	"github.com/derekwisong/datui/internal/format"
	"github.com/derekwisong/datui/internal/hiveschema"
	"github.com/derekwisong/datui/internal/historycache"
	"github.com/derekwisong/datui/internal/logging"
	"github.com/derekwisong/datui/internal/paging"
	"github.com/derekwisong/datui/internal/query"
	"github.com/derekwisong/datui/internal/source"
	"github.com/derekwisong/datui/internal/template"
)

const (
	exitOK          = 0
	exitUserError   = 1
	exitLoadFailure = 2
	exitInternal    = 3
)

// historyAllowList is the fixed set of files --clear-cache removes
// (spec §4.L: "never the templates directory").
var historyAllowList = []string{"grid", "query", "filter"}

func main() {
	app := &cli.App{
		Name:  "datui",
		Usage: "interactive terminal data-exploration tool",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format"},
			&cli.StringFlag{Name: "compression"},
			&cli.StringFlag{Name: "delimiter"},
			&cli.IntFlag{Name: "skip-lines"},
			&cli.IntFlag{Name: "skip-rows"},
			&cli.IntFlag{Name: "skip-tail-rows"},
			&cli.BoolFlag{Name: "no-header"},
			&cli.IntFlag{Name: "infer-schema-length", Value: 1000},
			&cli.BoolFlag{Name: "ignore-errors"},
			&cli.StringSliceFlag{Name: "null-value"},
			&cli.BoolFlag{Name: "parse-dates"},
			&cli.StringSliceFlag{Name: "parse-strings"},
			&cli.BoolFlag{Name: "no-parse-strings"},
			&cli.StringFlag{Name: "sheet"},
			&cli.BoolFlag{Name: "hive"},
			&cli.BoolFlag{Name: "single-spine-schema", Value: true},
			&cli.BoolFlag{Name: "decompress-in-memory", Value: true},
			&cli.StringFlag{Name: "temp-dir"},
			&cli.IntFlag{Name: "sampling-threshold", Value: -1},
			&cli.IntFlag{Name: "pages-lookahead"},
			&cli.IntFlag{Name: "pages-lookback"},
			&cli.BoolFlag{Name: "row-numbers"},
			&cli.IntFlag{Name: "row-start-index"},
			&cli.StringFlag{Name: "template"},
			&cli.StringFlag{Name: "s3-endpoint-url"},
			&cli.StringFlag{Name: "s3-access-key-id"},
			&cli.StringFlag{Name: "s3-secret-access-key"},
			&cli.StringFlag{Name: "s3-region"},
			&cli.BoolFlag{Name: "clear-cache"},
			&cli.BoolFlag{Name: "remove-templates"},
			&cli.BoolFlag{Name: "generate-config"},
			&cli.BoolFlag{Name: "force"},
			&cli.BoolFlag{Name: "debug"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	switch {
	case errs.InternalInvariant.Is(err):
		return exitInternal
	case errs.InputNotFound.Is(err), errs.PermissionDenied.Is(err),
		errs.UnsupportedFormat.Is(err), errs.SchemaMismatch.Is(err),
		errs.CloudAuth.Is(err), errs.CloudTransient.Is(err):
		return exitLoadFailure
	default:
		return exitUserError
	}
}

func run(c *cli.Context) error {
	log := logging.New(os.Stderr, c.Bool("debug"))

	if c.Bool("generate-config") {
		path, err := config.Generate(c.Bool("force"))
		if err != nil && err != os.ErrExist {
			return errs.Io.New("generate-config", err.Error())
		}
		fmt.Println(path)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return errs.Io.New("config load", err.Error())
	}
	applyFlagOverrides(c, &cfg)

	if c.Bool("clear-cache") {
		return clearCache(cfg)
	}
	if c.Bool("remove-templates") {
		return removeTemplates()
	}

	paths := c.Args().Slice()
	if len(paths) == 0 {
		return errs.InvalidOption.New("at least one input path is required")
	}

	applyS3Env(cfg)

	srcCtx, err := source.NewContext(cfg.TempDir)
	if err != nil {
		return errs.Io.New("temp dir", err.Error())
	}
	defer srcCtx.Cleanup()

	ds, err := buildDataset(c.Context, paths, readerOptions(c), srcCtx, cfg, c.Bool("hive"), log)
	if err != nil {
		return err
	}

	if name := c.String("template"); name != "" {
		ds, err = applyTemplate(ds, name)
		if err != nil {
			log.Warnf("template %q not applied: %v", name, err)
		}
	}

	return renderFirstPage(c.Context, ds)
}

func applyFlagOverrides(c *cli.Context, cfg *config.Config) {
	if c.IsSet("sampling-threshold") {
		cfg.SamplingThreshold = c.Int("sampling-threshold")
	}
	if c.IsSet("pages-lookahead") {
		cfg.PagesLookahead = c.Int("pages-lookahead")
	}
	if c.IsSet("pages-lookback") {
		cfg.PagesLookback = c.Int("pages-lookback")
	}
	if c.IsSet("single-spine-schema") {
		cfg.SingleSpineSchema = c.Bool("single-spine-schema")
	}
	if c.IsSet("decompress-in-memory") {
		cfg.DecompressInMemory = c.Bool("decompress-in-memory")
	}
	if c.IsSet("temp-dir") {
		cfg.TempDir = c.String("temp-dir")
	}
	if c.IsSet("s3-endpoint-url") {
		cfg.S3.EndpointURL = c.String("s3-endpoint-url")
	} else if v := os.Getenv("AWS_ENDPOINT_URL"); v != "" {
		cfg.S3.EndpointURL = v
	}
	if c.IsSet("s3-access-key-id") {
		cfg.S3.AccessKeyID = c.String("s3-access-key-id")
	} else if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.S3.AccessKeyID = v
	}
	if c.IsSet("s3-secret-access-key") {
		cfg.S3.SecretAccessKey = c.String("s3-secret-access-key")
	} else if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.S3.SecretAccessKey = v
	}
	if c.IsSet("s3-region") {
		cfg.S3.Region = c.String("s3-region")
	} else if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.S3.Region = v
	}
}

// applyS3Env forwards the resolved S3 config as environment variables
// so the AWS SDK's default credential/endpoint chain picks them up
// (the SDK has no programmatic per-call endpoint override that
// internal/source's List/Fetch helpers thread through).
func applyS3Env(cfg config.Config) {
	if cfg.S3.EndpointURL != "" {
		os.Setenv("AWS_ENDPOINT_URL", cfg.S3.EndpointURL)
	}
	if cfg.S3.AccessKeyID != "" {
		os.Setenv("AWS_ACCESS_KEY_ID", cfg.S3.AccessKeyID)
	}
	if cfg.S3.SecretAccessKey != "" {
		os.Setenv("AWS_SECRET_ACCESS_KEY", cfg.S3.SecretAccessKey)
	}
	if cfg.S3.Region != "" {
		os.Setenv("AWS_REGION", cfg.S3.Region)
	}
}

func readerOptions(c *cli.Context) format.Options {
	opts := format.DefaultOptions()
	if v := c.String("format"); v != "" {
		opts.Format = parseFormat(v)
	}
	if v := c.String("compression"); v != "" {
		opts.Compression = parseCompression(v)
	}
	if v := c.String("delimiter"); v != "" {
		opts.Delimiter = v[0]
	}
	opts.SkipLines = c.Int("skip-lines")
	opts.SkipRows = c.Int("skip-rows")
	opts.SkipTailRows = c.Int("skip-tail-rows")
	opts.HasHeader = !c.Bool("no-header")
	if c.IsSet("infer-schema-length") {
		opts.InferSchemaLength = c.Int("infer-schema-length")
	}
	opts.IgnoreErrors = c.Bool("ignore-errors")
	opts.ParseDates = c.Bool("parse-dates")
	opts.Sheet = c.String("sheet")
	opts.DecompressInMemory = c.Bool("decompress-in-memory")

	if nulls := c.StringSlice("null-value"); len(nulls) > 0 {
		opts.NullValues = map[string][]string{}
		for _, nv := range nulls {
			col, val := "", nv
			if idx := strings.IndexByte(nv, '='); idx >= 0 {
				col, val = nv[:idx], nv[idx+1:]
			}
			opts.NullValues[col] = append(opts.NullValues[col], val)
		}
	}
	if !c.Bool("no-parse-strings") {
		cols := c.StringSlice("parse-strings")
		opts.ParseStrings = map[string]bool{}
		if len(cols) == 0 && c.IsSet("parse-strings") {
			opts.ParseStrings["*"] = true
		}
		for _, col := range cols {
			opts.ParseStrings[col] = true
		}
	}
	return opts
}

func parseFormat(s string) format.FileType {
	switch strings.ToLower(s) {
	case "parquet":
		return format.Parquet
	case "csv":
		return format.Csv
	case "tsv":
		return format.Tsv
	case "psv":
		return format.Psv
	case "json":
		return format.Json
	case "jsonl":
		return format.Jsonl
	case "arrow":
		return format.Arrow
	case "avro":
		return format.Avro
	case "orc":
		return format.Orc
	case "excel":
		return format.Excel
	default:
		return format.Unknown
	}
}

func parseCompression(s string) format.Compression {
	switch strings.ToLower(s) {
	case "gzip":
		return format.Gzip
	case "zstd":
		return format.Zstd
	case "bzip2":
		return format.Bzip2
	case "xz":
		return format.Xz
	default:
		return format.None
	}
}

// buildDataset resolves each positional path to one or more local files
// (downloading cloud objects to the source context's temp dir first)
// and concatenates the per-file datasets (spec §4.A, §4.B). When --hive
// and cfg.SingleSpineSchema are both set, a directory-like S3/GCS prefix
// is also passed to internal/hiveschema's single-spine resolver, but its
// result is only logged: every object under the prefix is downloaded and
// concatenated whether or not the fast path succeeds.
func buildDataset(ctx context.Context, paths []string, opts format.Options, srcCtx *source.Context, cfg config.Config, hiveFlag bool, log logging.Logger) (dataset.Dataset, error) {
	var datasets []dataset.Dataset
	for _, raw := range paths {
		files, err := resolveToLocalFiles(ctx, raw, srcCtx, cfg, hiveFlag, log)
		if err != nil {
			return dataset.Dataset{}, err
		}
		for _, f := range files {
			ds, err := format.Open(f, opts)
			if err != nil {
				return dataset.Dataset{}, err
			}
			datasets = append(datasets, ds)
		}
	}
	if len(datasets) == 0 {
		return dataset.Dataset{}, errs.InputNotFound.New(strings.Join(paths, ","))
	}
	base := datasets[0]
	if len(datasets) == 1 {
		return base, nil
	}
	return base.Concat(datasets[1:])
}

func resolveToLocalFiles(ctx context.Context, raw string, srcCtx *source.Context, cfg config.Config, hiveFlag bool, log logging.Logger) ([]string, error) {
	ref := source.Classify(raw)
	switch ref.Class {
	case source.Local:
		return []string{ref.Key}, nil
	case source.Glob:
		return source.ExpandLocalGlob(ref.Key)
	case source.Directory:
		return source.ExpandLocalDirectory(ref.Key, "*")
	case source.S3, source.GCS:
		return resolveCloudFiles(ctx, srcCtx, ref, hiveFlag && cfg.SingleSpineSchema, log)
	case source.Http:
		path, err := source.DownloadHTTPToTemp(ctx, srcCtx, ref.Raw)
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	default:
		return nil, errs.UnsupportedFormat.New(raw)
	}
}

// resolveCloudFiles downloads every object a classified S3/GCS
// reference names to the source context's temp dir. A single object
// key is downloaded directly; a directory-like prefix (spec §4.A rule
// 5, source.IsCloudDirectoryLike) is enumerated first, and — when the
// hive fast path is enabled — passed to hiveschema.Resolve. The resolved
// partition columns are only logged, and a Resolve error other than
// SchemaInferenceFailed aborts the load; otherwise every listed object
// is then downloaded.
func resolveCloudFiles(ctx context.Context, srcCtx *source.Context, ref source.Ref, hiveEnabled bool, log logging.Logger) ([]string, error) {
	if !source.IsCloudDirectoryLike(ref.Key) {
		path, err := downloadCloudObject(ctx, srcCtx, ref.Class, ref.Bucket, ref.Key)
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	objects, err := listCloudObjects(ctx, ref.Class, ref.Bucket, ref.Key)
	if err != nil {
		return nil, err
	}

	if hiveEnabled {
		lister, tailFetcher, ok := hiveschema.BackendFor(ref.Class)
		if ok {
			result, resolveErr := hiveschema.Resolve(ctx, lister, tailFetcher, ref.Bucket, ref.Key)
			switch {
			case resolveErr == nil:
				log.Debugf("hive fast path resolved %s with %d partition column(s)", ref.Raw, len(result.PartitionColumns))
			case errs.SchemaInferenceFailed.Is(resolveErr):
				log.Debugf("hive fast path declined for %s (%v), falling back to concat-and-unify", ref.Raw, resolveErr)
			default:
				return nil, resolveErr
			}
		}
	}

	paths := make([]string, 0, len(objects))
	for _, key := range objects {
		path, err := downloadCloudObject(ctx, srcCtx, ref.Class, ref.Bucket, key)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func listCloudObjects(ctx context.Context, class source.Class, bucket, prefix string) ([]string, error) {
	if class == source.GCS {
		return source.ListGCSObjectsRecursive(ctx, bucket, prefix)
	}
	return source.ListS3ObjectsRecursive(ctx, bucket, prefix)
}

func downloadCloudObject(ctx context.Context, srcCtx *source.Context, class source.Class, bucket, key string) (string, error) {
	if class == source.GCS {
		return source.DownloadGCSToTemp(ctx, srcCtx, bucket, key)
	}
	return source.DownloadS3ToTemp(ctx, srcCtx, bucket, key)
}

func applyTemplate(ds dataset.Dataset, name string) (dataset.Dataset, error) {
	dir, err := config.TemplatesDir()
	if err != nil {
		return ds, err
	}
	store := template.NewStore(dir)
	templates, err := store.Load()
	if err != nil {
		return ds, err
	}
	var match *template.Template
	for _, t := range templates {
		if t.Name == name {
			match = t
			break
		}
	}
	if match == nil {
		return ds, errs.InvalidOption.New("no template named " + name)
	}
	cfgMap, ok := match.Config.(map[string]any)
	if !ok {
		return ds, nil
	}
	q, ok := cfgMap["query"].(string)
	if !ok || q == "" {
		return ds, nil
	}
	parsed, err := query.Parse(q)
	if err != nil {
		return ds, err
	}
	return query.Compile(parsed)(ds)
}

// renderFirstPage prints the schema and the first page of rows,
// exercising the paging engine exactly as the interactive UI would on
// first render (spec §4.F).
func renderFirstPage(ctx context.Context, ds dataset.Dataset) error {
	const visibleHeight = 25
	var rendered *paging.RowBatch
	done := make(chan struct{})
	engine := paging.New(ds, visibleHeight, 3, 3, func(b *paging.RowBatch) {
		if rendered == nil {
			rendered = b
			close(done)
		}
	})
	defer engine.Close()

	engine.OnViewportChange(paging.Viewport{FirstVisible: 0, VisibleHeight: visibleHeight})
	<-done

	sch := ds.Schema()
	header := make([]string, len(sch))
	for i, col := range sch {
		header[i] = col.Name
	}
	fmt.Println(strings.Join(header, "\t"))
	for _, row := range rendered.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cellString(v)
		}
		fmt.Println(strings.Join(cells, "\t"))
	}
	return nil
}

func cellString(v dataset.Value) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func clearCache(cfg config.Config) error {
	dir, err := config.CacheDir()
	if err != nil {
		return err
	}
	store := historycache.NewStore(dir, cfg.HistoryLimit)
	return store.Clear(historyAllowList)
}

func removeTemplates() error {
	dir, err := config.TemplatesDir()
	if err != nil {
		return err
	}
	store := template.NewStore(dir)
	templates, err := store.Load()
	if err != nil {
		return err
	}
	for _, t := range templates {
		if err := store.Delete(t.ID); err != nil {
			return err
		}
	}
	return nil
}
