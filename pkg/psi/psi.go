// Package psi implements the scheme registry (spec §4.6): a
// process-wide, name-indexed map from scheme name to a constructor
// yielding a Scheme instance. Grounded on the teacher's pkg/psi/psi.go,
// generalized from its hardcoded three-case switch to an open
// registration map, since SPEC_FULL.md's capability set
// {init, preprocess_data, process, process_cardinality_only,
// check_params} is shared by a tagged-enum set of scheme variants that
// register themselves at package init time rather than being named in
// one central switch statement.
package psi

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/optable/psiengine/internal/config"
	"github.com/optable/psiengine/internal/errs"
)

// Result is the union of every scheme's possible output shape (spec
// §3's Output entity): Process populates Identifiers for an
// intersection scheme and Shares for Circuit-PSI. No shipped scheme
// sets Cardinality; ProcessCardinalityOnly returns the count directly.
type Result struct {
	// Identifiers is the plaintext intersection, in original input
	// order, for schemes run in intersection mode.
	Identifiers [][]byte
	// Cardinality holds |I|. The shipped schemes leave it zero, since
	// ProcessCardinalityOnly returns the count as an int.
	Cardinality int
	// Shares is Circuit-PSI's (feature_count+1) x num_bins matrix: row
	// 0 XOR-combines to the per-bin match indicator, subsequent rows
	// additively combine to the joined feature value.
	Shares [][]uint64
}

// Scheme is the capability set every PSI/PJC variant implements (spec
// §9: "a tagged-enum dispatch replaces the original virtual
// inheritance tree").
type Scheme interface {
	// Init performs the scheme's handshake (parameter consistency and,
	// for KKRT and Circuit-PSI, the common-coin table seed) over rw.
	// Base OTs run later, inside Process; no MPC context object is
	// constructed.
	Init(ctx context.Context, rw io.ReadWriter, isSender bool, doc config.Doc) error
	// PreprocessData is a no-op for every scheme this engine ships
	// (spec §2's data flow note), kept so the capability set matches
	// SPEC_FULL.md's contract and future schemes have a place to hook
	// in a real preprocessing step.
	PreprocessData(ctx context.Context, identifiers [][]byte) error
	// Process runs intersection/join mode, returning the scheme's
	// Result. features is ignored by schemes that don't support a
	// feature join (ECDH, KKRT).
	Process(ctx context.Context, identifiers [][]byte, features [][]uint64) (Result, error)
	// ProcessCardinalityOnly runs cardinality-only mode.
	ProcessCardinalityOnly(ctx context.Context, identifiers [][]byte) (int, error)
}

// Constructor builds a fresh, unused Scheme instance. Schemes are
// single-use per (init, process*) invocation (spec §3, Lifecycle), so
// the registry hands back a new instance on every lookup.
type Constructor func() Scheme

var (
	mu       sync.Mutex
	registry = map[string]Constructor{}
)

// Register adds name to the process-wide registry. Intended to be
// called from a scheme package's init() function; registration is
// otherwise immutable once the process starts serving requests (spec
// §5, Shared state).
func Register(name string, ctor Constructor) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = ctor
}

// New constructs a fresh Scheme for name, or fails with NotRegistered.
func New(name string) (Scheme, error) {
	mu.Lock()
	ctor, ok := registry[name]
	mu.Unlock()
	if !ok {
		return nil, errs.NotRegistered(name)
	}
	return ctor(), nil
}

// Names returns the currently registered scheme names, sorted, mostly
// useful for diagnostics and tests.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
