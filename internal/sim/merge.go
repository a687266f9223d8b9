package sim

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/leapsim/internal/dag"
	"github.com/leapstack-labs/leapsim/pkg/frame"
)

// MergeTables joins tables into one frame anchored at target, following the
// registered broadcasts between them. Deeper tables are merged first: a
// table is merged onto its parent only after everything broadcasting onto
// it has been merged into it. Each join is an inner join on the declared
// keys.
//
// With columns, each table only fetches the listed columns it has plus the
// merge keys; a listed column that no table has is an error.
func (s *Session) MergeTables(target string, tables []Table, columns ...string) (*frame.Frame, error) {
	byName := make(map[string]Table, len(tables))
	var names []string
	for _, t := range tables {
		if _, dup := byName[t.Name()]; dup {
			continue
		}
		byName[t.Name()] = t
		names = append(names, t.Name())
	}
	if _, ok := byName[target]; !ok {
		return nil, &NotFoundError{Kind: "merge target", Name: target}
	}

	g := dag.NewGraph()
	for _, name := range names {
		g.AddNode(name)
	}
	var edgeList []Broadcast
	edges := make(map[BroadcastKey]Broadcast)
	for _, b := range s.broadcasts.Values() {
		if !g.Has(b.Cast) || !g.Has(b.Onto) {
			continue
		}
		if err := g.AddEdge(b.Cast, b.Onto); err != nil {
			return nil, fmt.Errorf("merge %q: %w", target, err)
		}
		edges[b.Key()] = b
		edgeList = append(edgeList, b)
	}
	if hasCycle, path := g.HasCycle(); hasCycle {
		return nil, &BroadcastCycleError{Path: path}
	}

	reachable := g.Upstream(target)
	var unlinked []string
	for _, name := range names {
		if name != target && !slices.Contains(reachable, name) {
			unlinked = append(unlinked, name)
		}
	}
	if len(unlinked) > 0 {
		slices.Sort(unlinked)
		return nil, &UnlinkedTablesError{Target: target, Tables: unlinked}
	}

	selection, err := mergeSelection(byName, names, edgeList, columns)
	if err != nil {
		return nil, err
	}

	frames := make(map[string]*frame.Frame, len(names))
	for _, name := range names {
		f, err := byName[name].materialize(selection[name])
		if err != nil {
			return nil, fmt.Errorf("merge %q: %w", target, err)
		}
		frames[name] = f
	}

	depth := mergeDepths(g, target)
	pending := make(map[string][]string, len(names))
	for _, name := range names {
		pending[name] = slices.Clone(g.Incoming(name))
	}

	for len(pending[target]) > 0 {
		onto := nextMergeable(names, pending, depth)
		if onto == "" {
			return nil, fmt.Errorf("merge %q: no table ready to merge", target)
		}
		for _, cast := range pending[onto] {
			b := edges[BroadcastKey{Cast: cast, Onto: onto}]
			merged, err := frame.Merge(frames[onto], frames[cast], frame.MergeOptions{
				LeftOn:     b.OntoOn,
				RightOn:    b.CastOn,
				LeftIndex:  b.OntoIndex,
				RightIndex: b.CastIndex,
			})
			if err != nil {
				return nil, fmt.Errorf("merge %s: %w", b.Key(), err)
			}
			frames[onto] = merged
			s.logger.Debug("merged table", "cast", cast, "onto", onto, "rows", merged.Len())
		}
		pending[onto] = nil
	}

	return frames[target], nil
}

// MergeTableNames is MergeTables with tables looked up by name.
func (s *Session) MergeTableNames(target string, names []string, columns ...string) (*frame.Frame, error) {
	tables := make([]Table, 0, len(names))
	for _, name := range names {
		t, err := s.Table(name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return s.MergeTables(target, tables, columns...)
}

// mergeSelection returns the columns to fetch per table. A nil selection
// means all columns.
func mergeSelection(byName map[string]Table, names []string, edges []Broadcast, columns []string) (map[string][]string, error) {
	selection := make(map[string][]string, len(names))
	if columns == nil {
		return selection, nil
	}

	wanted := slices.Clone(columns)
	for _, b := range edges {
		for _, key := range []string{b.CastOn, b.OntoOn} {
			if key != "" && !slices.Contains(wanted, key) {
				wanted = append(wanted, key)
			}
		}
	}

	found := make(map[string]bool, len(wanted))
	for _, name := range names {
		avail, err := byName[name].Columns()
		if err != nil {
			return nil, err
		}
		subset := []string{}
		for _, col := range wanted {
			if slices.Contains(avail, col) {
				subset = append(subset, col)
				found[col] = true
			}
		}
		selection[name] = subset
	}

	var missing []string
	for _, col := range columns {
		if !found[col] && !slices.Contains(missing, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, &MissingColumnsError{Columns: missing}
	}
	return selection, nil
}

// mergeDepths returns the longest broadcast path from each table to target.
func mergeDepths(g *dag.Graph, target string) map[string]int {
	depth := map[string]int{target: 0}
	var walk func(node string)
	walk = func(node string) {
		for _, child := range g.Incoming(node) {
			if d, ok := depth[child]; !ok || d < depth[node]+1 {
				depth[child] = depth[node] + 1
				walk(child)
			}
		}
	}
	walk(target)
	return depth
}

// nextMergeable picks the deepest table whose pending children have no
// pending children of their own. Ties go to the earliest participant.
func nextMergeable(names []string, pending map[string][]string, depth map[string]int) string {
	best := ""
	for _, name := range names {
		if len(pending[name]) == 0 {
			continue
		}
		ready := true
		for _, child := range pending[name] {
			if len(pending[child]) > 0 {
				ready = false
				break
			}
		}
		if ready && (best == "" || depth[name] > depth[best]) {
			best = name
		}
	}
	return best
}
