// azmlcall runs one scoring call from the command line: it loads a
// client config, reads CSV inputs, calls the named service in the
// requested mode and writes the output tables as CSV files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	azml "go-azml-client/internal/client"
	"go-azml-client/internal/codec"
	"go-azml-client/internal/config"
	"go-azml-client/internal/model"
	"go-azml-client/internal/store"
	"go-azml-client/pkg/utils"
)

// repeatableFlag collects a flag given multiple times.
type repeatableFlag []string

func (f *repeatableFlag) String() string { return strings.Join(*f, ",") }

func (f *repeatableFlag) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	var inputFlags, paramFlags repeatableFlag
	configPath := flag.String("config", "azmlclient.yaml", "client config file (.yaml or .ini)")
	serviceName := flag.String("service", "", "service to call")
	mode := flag.String("mode", "rr", "call mode: rr or batch")
	swagger := flag.Bool("swagger", false, "use the swagger table format")
	poll := flag.String("poll", "5s", "batch poll interval")
	outputNames := flag.String("outputs", "", "comma-separated output names")
	outputDir := flag.String("outdir", "results", "directory for output CSVs")
	dbPath := flag.String("db", "azmlcalls.db", "sqlite call history ('' disables tracking)")
	timeout := flag.String("timeout", "", "overall call timeout, e.g. 30m ('' = none)")
	flag.Var(&inputFlags, "in", "input as name=file.csv (repeatable)")
	flag.Var(&paramFlags, "param", "parameter as name=value (repeatable)")
	flag.Parse()

	if *serviceName == "" {
		fatalf("❌ -service is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatalf("❌ %v", err)
	}

	inputs, err := readInputs(inputFlags)
	if err != nil {
		fatalf("❌ %v", err)
	}
	params, err := splitPairs(paramFlags)
	if err != nil {
		fatalf("❌ %v", err)
	}

	var opts []azml.Option
	if *dbPath != "" {
		if err := store.InitDB(*dbPath); err != nil {
			fatalf("❌ failed to open call history: %v", err)
		}
		opts = append(opts, azml.WithTracker())
	}

	c, err := azml.New(cfg, []azml.ServiceSpec{{Name: *serviceName}}, opts...)
	if err != nil {
		fatalf("❌ %v", err)
	}

	switch *mode {
	case "rr":
		defer c.PushMode(azml.RequestResponse(*swagger))()
	case "batch":
		defer c.PushMode(azml.Batch(utils.ParseDuration(*poll)))()
	default:
		fatalf("❌ unknown mode %q (want rr or batch)", *mode)
	}

	om := utils.NewOutputManager(*outputDir)
	if err := om.EnsureOutputDirExists(); err != nil {
		fatalf("❌ cannot create output directory: %v", err)
	}

	ctx := context.Background()
	if *timeout != "" {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, utils.ParseDuration(*timeout))
		defer cancel()
	}

	var names []string
	if *outputNames != "" {
		names = strings.Split(*outputNames, ",")
	}

	fmt.Printf("🚀 calling %s in %s mode with %d inputs\n", *serviceName, *mode, len(inputs))
	outputs, err := c.Call(ctx, *serviceName, inputs, params, names)
	if err != nil {
		fatalf("❌ call failed: %v", err)
	}

	runID := uuid.New().String()
	for name, table := range outputs {
		path, err := om.GetOutputFilePath(runID, name+".csv")
		if err != nil {
			fatalf("❌ %v", err)
		}
		data, err := codec.TableToCSV(table, codec.DefaultOptions())
		if err != nil {
			fatalf("❌ failed to encode output %s: %v", name, err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			fatalf("❌ failed to write %s: %v", path, err)
		}
		size, err := om.GetFileSize(path)
		if err != nil {
			fatalf("❌ failed to stat %s: %v", path, err)
		}
		fmt.Printf("✅ %s: %d rows -> %s (%s, %d bytes)\n", name, table.NumRows(), path, om.GetFileType(path), size)
	}
}

func loadConfig(path string) (*config.ClientConfig, error) {
	vars := environVars()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ini", ".cfg":
		return config.LoadINI(path, vars)
	default:
		return config.LoadYAML(path, vars)
	}
}

// environVars exposes the process environment to ${var} substitution so
// keys can stay out of config files.
func environVars() map[string]string {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			vars[kv[:i]] = kv[i+1:]
		}
	}
	return vars
}

func readInputs(pairs []string) (map[string]*model.Table, error) {
	inputs := make(map[string]*model.Table, len(pairs))
	for _, pair := range pairs {
		name, path, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("bad -in value %q (want name=file.csv)", pair)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read input %s: %w", name, err)
		}
		table, err := codec.TableFromCSV(data, codec.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to parse input %s: %w", name, err)
		}
		inputs[name] = table
	}
	return inputs, nil
}

func splitPairs(pairs []string) (map[string]string, error) {
	params := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("bad -param value %q (want name=value)", pair)
		}
		params[name] = value
	}
	return params, nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
