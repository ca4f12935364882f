// Package pdp implements the PDP orchestrator: an immutable,
// atomically-swapped snapshot of every loaded Policy and PolicySet, and
// the Evaluate entry point that builds a RequestContext, walks the
// configured root elements, combines their results, and assembles a
// Response. The snapshot is held behind an atomic pointer, replaced by a
// single atomic store, and never modified by an in-flight evaluation.
package pdp

import (
	"fmt"

	"github.com/xacmlgo/pdp/internal/adapter/outbound/bloom"
	"github.com/xacmlgo/pdp/internal/domain/combine"
	"github.com/xacmlgo/pdp/internal/domain/policytree"
)

// rootEntry pairs a top-level Policy/PolicySet with its (optional) Bloom
// pre-selector index, built once at Load time.
type rootEntry struct {
	node       policytree.Evaluable
	target     *policytree.Target
	index      *bloom.Index
	indexable  bool // true only if every Match in target was equality-based
	pairedKeys map[[2]string]struct{}
}

// PolicySnapshot is the immutable, load-time-validated view of every
// Policy and PolicySet a PDP holds, plus the ordered list of top-level
// roots combined by the root combining algorithm to produce the overall
// decision.
type PolicySnapshot struct {
	policies   map[string]*policytree.Policy
	policySets map[string]*policytree.PolicySet
	roots      []rootEntry
	rootAlg    combine.Algorithm
	rootAlgURI string
	bloomOn    bool
}

// PolicyDescriptor is the read-only identity of one loaded Policy or
// PolicySet, surfaced by the admin API's policy listing.
type PolicyDescriptor struct {
	ID string
	Version string
	Kind string // "Policy" or "PolicySet"
	IsRoot bool
}

// Describe lists every loaded Policy and PolicySet's identity, marking
// which ones are top-level roots combined directly by the PDP.
func (s *PolicySnapshot) Describe() []PolicyDescriptor {
	rootIDs := make(map[string]struct{}, len(s.roots))
	for _, r := range s.roots {
		rootIDs[r.node.NodeID()] = struct{}{}
	}

	out := make([]PolicyDescriptor, 0, len(s.policies)+len(s.policySets))
	for _, p := range s.policies {
		_, root := rootIDs[p.ID]
		out = append(out, PolicyDescriptor{ID: p.ID, Version: p.Version, Kind: "Policy", IsRoot: root})
	}
	for _, ps := range s.policySets {
		_, root := rootIDs[ps.ID]
		out = append(out, PolicyDescriptor{ID: ps.ID, Version: ps.Version, Kind: "PolicySet", IsRoot: root})
	}
	return out
}

// RootCombiningAlgorithm returns the URI of the combining algorithm
// applied to this snapshot's top-level roots.
func (s *PolicySnapshot) RootCombiningAlgorithm() string {
	return s.rootAlgURI
}

// ResolvePolicy implements policytree.PolicyFinder.
func (s *PolicySnapshot) ResolvePolicy(id string) (*policytree.Policy, bool) {
	p, ok := s.policies[id]
	return p, ok
}

// ResolvePolicySet implements policytree.PolicyFinder.
func (s *PolicySnapshot) ResolvePolicySet(id string) (*policytree.PolicySet, bool) {
	ps, ok := s.policySets[id]
	return ps, ok
}

// BuildSnapshot validates and assembles a PolicySnapshot from every
// loaded Policy/PolicySet. policies and policySets together must have no
// duplicate IDs; roots are the top-level elements the PDP combines
// directly (by convention, a single top-level PolicySet, but multiple
// top-level Policies are also accepted); rootCombiningURI selects the
// algorithm used to combine them. bloomOn enables the optional Target
// pre-selector; it must never change which decision a request receives,
// only which roots skip full Target evaluation.
func BuildSnapshot(policies []*policytree.Policy, policySets []*policytree.PolicySet, roots []policytree.Evaluable, rootCombiningURI string, bloomOn bool) (*PolicySnapshot, error) {
	alg, ok := combine.Lookup(rootCombiningURI)
	if !ok {
		return nil, fmt.Errorf("pdp: unknown root combining algorithm %q", rootCombiningURI)
	}

	pm := make(map[string]*policytree.Policy, len(policies))
	for _, p := range policies {
		if _, dup := pm[p.ID]; dup {
			return nil, fmt.Errorf("pdp: duplicate Policy id %q", p.ID)
		}
		pm[p.ID] = p
	}
	psm := make(map[string]*policytree.PolicySet, len(policySets))
	for _, ps := range policySets {
		if _, dup := psm[ps.ID]; dup {
			return nil, fmt.Errorf("pdp: duplicate PolicySet id %q", ps.ID)
		}
		if _, dup := pm[ps.ID]; dup {
			return nil, fmt.Errorf("pdp: PolicySet id %q collides with a Policy id", ps.ID)
		}
		psm[ps.ID] = ps
	}

	// Every reference must resolve at load time so the PDP never starts
	// half-loaded; an unresolvable reference discovered mid-evaluation
	// would otherwise surface as a per-request Indeterminate.
	for _, ps := range policySets {
		if err := checkReferences(ps, pm, psm); err != nil {
			return nil, err
		}
	}

	entries := make([]rootEntry, 0, len(roots))
	for _, r := range roots {
		entries = append(entries, buildRootEntry(r, bloomOn))
	}

	return &PolicySnapshot{
		policies: pm,
		policySets: psm,
		roots: entries,
		rootAlg: alg,
		rootAlgURI: rootCombiningURI,
		bloomOn: bloomOn,
	}, nil
}

func checkReferences(ps *policytree.PolicySet, pm map[string]*policytree.Policy, psm map[string]*policytree.PolicySet) error {
	for _, c := range ps.Children {
		switch ref := c.(type) {
		case *policytree.PolicyIdReference:
			if _, ok := pm[ref.PolicyID]; !ok {
				return fmt.Errorf("pdp: PolicySet %q references unknown Policy %q", ps.ID, ref.PolicyID)
			}
		case *policytree.PolicySetIdReference:
			if _, ok := psm[ref.PolicySetID]; !ok {
				return fmt.Errorf("pdp: PolicySet %q references unknown PolicySet %q", ps.ID, ref.PolicySetID)
			}
		}
	}
	return nil
}

func buildRootEntry(node policytree.Evaluable, bloomOn bool) rootEntry {
	entry := rootEntry{node: node}
	switch n := node.(type) {
	case *policytree.Policy:
		entry.target = n.Target
	case *policytree.PolicySet:
		entry.target = n.Target
	default:
		return entry
	}
	if !bloomOn || entry.target == nil {
		return entry
	}
	triples, ok := entry.target.Literals()
	if !ok || len(triples) == 0 {
		return entry
	}
	idx := bloom.NewIndex()
	keys := make(map[[2]string]struct{}, len(triples))
	for _, t := range triples {
		idx.Add(t.Category, t.AttributeID, t.Literal)
		keys[[2]string{t.Category, t.AttributeID}] = struct{}{}
	}
	entry.index = idx
	entry.indexable = true
	entry.pairedKeys = keys
	return entry
}
