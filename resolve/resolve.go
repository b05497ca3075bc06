// Package resolve turns the signatures of a config file into addresses and
// values for one attached module.
package resolve

import (
	"fmt"

	"sigscan/config"
	"sigscan/pattern"
	"sigscan/process"
	"sigscan/snapshot"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// Value is one evaluated read. Address is where the read, or its pointer
// path, starts.
type Value struct {
	Name    string
	Type    string
	Address process.ProcessMemoryAddress
	Value   any
}

func (v Value) String() string {
	switch x := v.Value.(type) {
	case process.ProcessMemoryAddress:
		return x.ToString()
	case float32, float64:
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprintf("%d", x)
	}
}

// Result is the outcome of one signature. A signature that does not match
// has Found false and no Values.
type Result struct {
	Name    string
	Found   bool
	Offset  int
	Address process.ProcessMemoryAddress
	Values  []Value
}

type cacheKey struct {
	pattern string
	offset  int
}

type cacheEntry struct {
	offset int
	found  bool
}

// Resolver runs signatures against snapshots. Scan results are cached for as
// long as the captured module hashes to the same fingerprint, so repeated
// runs against an unchanged module skip the scan.
type Resolver struct {
	fingerprint uint64
	cache       map[cacheKey]cacheEntry
	hits        int
	misses      int
	log         *logger.Logger
}

func New() *Resolver {
	return &Resolver{
		cache: make(map[cacheKey]cacheEntry),
		log:   logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "resolve")),
	}
}

// Stats reports cache hits and misses since New.
func (r *Resolver) Stats() (hits, misses int) {
	return r.hits, r.misses
}

// Run compiles sigs, captures the module once, locates every signature,
// releases the capture and then evaluates the reads against live memory.
func (r *Resolver) Run(s *snapshot.Snapshot, sigs []config.Signature) ([]Result, error) {
	patterns := make([]*pattern.Pattern, len(sigs))
	for i, sig := range sigs {
		p, err := sig.Compile()
		if err != nil {
			return nil, fmt.Errorf("signature %q: %w", sig.Name, err)
		}
		patterns[i] = p
	}

	if err := s.Capture(); err != nil {
		return nil, err
	}

	fp, _ := s.Fingerprint()
	if fp != r.fingerprint {
		// only offsets for the current module contents are worth keeping
		r.fingerprint = fp
		clear(r.cache)
	}

	results := make([]Result, len(sigs))
	for i, p := range patterns {
		off, found := r.locate(s, p)
		results[i] = Result{Name: sigs[i].Name, Found: found, Offset: off}
		if found {
			results[i].Address = s.OffsetToAddress(off)
		} else {
			r.log.Warn("Signature ", sigs[i].Name, " not found in ", s.Module().Name)
		}
	}

	s.Release()

	for i, sig := range sigs {
		if !results[i].Found {
			continue
		}
		values, err := evalReads(s, results[i].Address, sig.Reads)
		if err != nil {
			return results, fmt.Errorf("signature %q: %w", sig.Name, err)
		}
		results[i].Values = values
	}

	return results, nil
}

func (r *Resolver) locate(s *snapshot.Snapshot, p *pattern.Pattern) (int, bool) {
	key := cacheKey{pattern: p.String(), offset: p.SearchOffset()}
	if e, ok := r.cache[key]; ok {
		r.hits++
		r.log.Debugln("Cache hit for", key.pattern)
		return e.offset, e.found
	}

	r.misses++
	off, found := s.Scan(p)
	r.cache[key] = cacheEntry{offset: off, found: found}
	return off, found
}
