// Command chunkprobe applies a map-chunk fixture to the packet shape of a
// server version and prints what the logical field accessors read back.
//
// Usage:
//
//	chunkprobe --version 1.8.8 --input chunk.yaml
//	chunkprobe --protocol 755 --input chunk.yaml --format diag
//
// The fixture is a YAML document with the logical fields:
//
//	chunk_x: 5
//	chunk_z: -3
//	sections: [0, 1, 2, 3]
//	full_chunk: true
//	data: [1, 2]
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/chunkfield/internal/nms"
	"github.com/arloliu/chunkfield/layout"
	"github.com/arloliu/chunkfield/mapchunk"
	"github.com/arloliu/chunkfield/version"
)

// report is the probe output.
type report struct {
	Version  string `yaml:"version" cbor:"version"`
	Protocol int    `yaml:"protocol,omitempty" cbor:"protocol,omitempty"`
	Layout   string `yaml:"layout" cbor:"layout"`
	// PrimaryBitMask is the deprecated 32-bit view of the sections.
	PrimaryBitMask uint32            `yaml:"primary_bit_mask" cbor:"primary_bit_mask"`
	Fingerprint    string            `yaml:"fingerprint" cbor:"fingerprint"`
	Packet         mapchunk.Snapshot `yaml:"packet" cbor:"packet"`
}

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("chunkprobe: CBOR encoder initialization failed: " + err.Error())
	}
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	var versionFlag string
	var protocol int
	var input string
	var format string
	var verbose bool

	flagSet := pflag.NewFlagSet("chunkprobe", pflag.ContinueOnError)
	flagSet.StringVar(&versionFlag, "version", version.V1_17.String(), "server version, e.g. 1.8.8")
	flagSet.IntVar(&protocol, "protocol", 0, "protocol number; overrides --version")
	flagSet.StringVarP(&input, "input", "i", "", "YAML fixture with the logical fields (default: empty packet)")
	flagSet.StringVarP(&format, "format", "f", "yaml", "output format: yaml, cbor or diag")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log debug events to stderr")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	v, err := resolveVersion(versionFlag, protocol, flagSet.Changed("protocol"))
	if err != nil {
		return err
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	fixture, err := loadFixture(input)
	if err != nil {
		return err
	}

	r, err := probe(v, fixture, logger)
	if err != nil {
		return err
	}

	return write(stdout, format, r)
}

func resolveVersion(s string, protocol int, byProtocol bool) (version.Version, error) {
	if byProtocol {
		v, ok := version.FromProtocol(protocol)
		if !ok {
			return version.Unknown, fmt.Errorf("unknown protocol number %d", protocol)
		}

		return v, nil
	}

	return version.Parse(s)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}

	return zap.NewProduction(zap.IncreaseLevel(zapcore.WarnLevel))
}

func loadFixture(path string) (mapchunk.Snapshot, error) {
	var s mapchunk.Snapshot
	if path == "" {
		return s, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read fixture: %w", err)
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("parse fixture %s: %w", path, err)
	}

	return s, nil
}

// probe builds an empty packet of v's shape, applies fixture and reads it
// back through the accessors.
func probe(v version.Version, fixture mapchunk.Snapshot, logger *zap.Logger) (report, error) {
	variant := layout.Resolve(v)
	raw, err := nms.New(variant)
	if err != nil {
		return report{}, err
	}

	binding, err := mapchunk.Bind(reflect.TypeOf(raw), v, mapchunk.WithLogger(logger))
	if err != nil {
		return report{}, err
	}
	pkt, err := binding.Wrap(raw)
	if err != nil {
		return report{}, err
	}

	if err := pkt.Apply(fixture); err != nil {
		return report{}, fmt.Errorf("apply fixture to %s layout: %w", variant, err)
	}

	snap, err := pkt.Snapshot()
	if err != nil {
		return report{}, err
	}
	mask, err := pkt.PrimaryBitMask() //nolint:staticcheck // reported alongside the sections
	if err != nil {
		return report{}, err
	}

	r := report{
		Version:        v.String(),
		Layout:         variant.String(),
		PrimaryBitMask: mask,
		Fingerprint:    fmt.Sprintf("%016x", snap.Fingerprint()),
		Packet:         snap,
	}
	if p, ok := v.Protocol(); ok {
		r.Protocol = p
	}

	return r, nil
}

func write(w io.Writer, format string, r report) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return enc.Close()
	case "cbor":
		data, err := encMode.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode cbor: %w", err)
		}
		_, err = w.Write(data)

		return err
	case "diag":
		data, err := encMode.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode cbor: %w", err)
		}
		text, err := cbor.Diagnose(data)
		if err != nil {
			return fmt.Errorf("diagnose cbor: %w", err)
		}
		_, err = fmt.Fprintln(w, text)

		return err
	default:
		return fmt.Errorf("unknown format %q (want yaml, cbor or diag)", format)
	}
}
