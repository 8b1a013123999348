// Package extract opens an OSM extract as a stream of typed objects, once per
// pipeline pass.
package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
)

// Format is the on-disk encoding of an extract
type Format int

const (
	FormatPBF Format = iota
	FormatXML
)

func (f Format) String() string {
	if f == FormatXML {
		return "osm-xml"
	}
	return "pbf"
}

// DetectFormat picks the decoder from the file name
func DetectFormat(path string) (Format, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".pbf"):
		return FormatPBF, nil
	case strings.HasSuffix(lower, ".osm"), strings.HasSuffix(lower, ".xml"):
		return FormatXML, nil
	}
	return 0, fmt.Errorf("unrecognized extract format: %s (want .osm.pbf or .osm)", path)
}

// Scanner is the object stream shared by the PBF and XML decoders
type Scanner interface {
	Scan() bool
	Object() osm.Object
	Err() error
	Close() error
}

// PassOptions restricts what a pass decodes. Filters return true to keep
// an object; a nil filter keeps everything of its type.
type PassOptions struct {
	SkipNodes     bool
	SkipWays      bool
	SkipRelations bool

	FilterNode     func(*osm.Node) bool
	FilterWay      func(*osm.Way) bool
	FilterRelation func(*osm.Relation) bool
}

func (o PassOptions) keep(obj osm.Object) bool {
	switch v := obj.(type) {
	case *osm.Node:
		return !o.SkipNodes && (o.FilterNode == nil || o.FilterNode(v))
	case *osm.Way:
		return !o.SkipWays && (o.FilterWay == nil || o.FilterWay(v))
	case *osm.Relation:
		return !o.SkipRelations && (o.FilterRelation == nil || o.FilterRelation(v))
	}
	return false
}

// Source can be opened any number of times, each open starting a fresh scan
type Source interface {
	Open(ctx context.Context, opts PassOptions) (Scanner, error)
	String() string
}

// File is an extract on disk
type File struct {
	Path   string
	Format Format
	Procs  int // decoder goroutines for PBF
}

// NewFile creates a file source, detecting the format from the name
func NewFile(path string, procs int) (*File, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("extract not readable: %w", err)
	}
	if procs <= 0 {
		procs = runtime.NumCPU()
	}
	return &File{Path: path, Format: format, Procs: procs}, nil
}

func (f *File) String() string {
	return f.Path
}

// Size returns the file size in bytes
func (f *File) Size() int64 {
	info, err := os.Stat(f.Path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// Open starts a new scan of the file
func (f *File) Open(ctx context.Context, opts PassOptions) (Scanner, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open extract: %w", err)
	}

	if f.Format == FormatPBF {
		s := osmpbf.New(ctx, file, f.Procs)
		s.SkipNodes = opts.SkipNodes
		s.SkipWays = opts.SkipWays
		s.SkipRelations = opts.SkipRelations
		s.FilterNode = opts.FilterNode
		s.FilterWay = opts.FilterWay
		s.FilterRelation = opts.FilterRelation
		return &fileScanner{Scanner: s, file: file}, nil
	}

	// osmxml has no skip support, filter after decoding
	s := osmxml.New(ctx, file)
	return &filterScanner{Scanner: &fileScanner{Scanner: s, file: file}, opts: opts}, nil
}

// fileScanner closes the underlying file together with the decoder
type fileScanner struct {
	Scanner
	file io.Closer
}

func (s *fileScanner) Close() error {
	err := s.Scanner.Close()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// filterScanner applies PassOptions to a scanner that cannot skip natively
type filterScanner struct {
	Scanner
	opts PassOptions
}

func (s *filterScanner) Scan() bool {
	for s.Scanner.Scan() {
		if s.opts.keep(s.Scanner.Object()) {
			return true
		}
	}
	return false
}

// Objects is an in-memory extract, used by tests and small fixtures
type Objects []osm.Object

func (o Objects) String() string {
	return fmt.Sprintf("memory(%d objects)", len(o))
}

// Open starts a scan over the slice
func (o Objects) Open(ctx context.Context, opts PassOptions) (Scanner, error) {
	return &filterScanner{Scanner: &sliceScanner{ctx: ctx, objs: o, pos: -1}, opts: opts}, nil
}

type sliceScanner struct {
	ctx  context.Context
	objs []osm.Object
	pos  int
	err  error
}

func (s *sliceScanner) Scan() bool {
	if s.err != nil {
		return false
	}
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return false
	}
	s.pos++
	return s.pos < len(s.objs)
}

func (s *sliceScanner) Object() osm.Object {
	if s.pos < 0 || s.pos >= len(s.objs) {
		return nil
	}
	return s.objs[s.pos]
}

func (s *sliceScanner) Err() error   { return s.err }
func (s *sliceScanner) Close() error { return nil }
