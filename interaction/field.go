// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package interaction

import "github.com/ethcocoder/universos/ids"

// edge is one directed adjacency record: the interaction connecting a
// universe to its neighbor.
type edge struct {
	IID   ids.InteractionID
	Other ids.UniverseID
}

// Field is the adjacency index over all live interactions. The kernel
// cross-checks its Density against each universe's own attachment set
// every tick (an I4 consistency check) and calls FindPath before a
// spontaneous-entanglement delivery to tell a genuinely disconnected
// signal (NoPathForSignal, warned but not fatal) from one merely
// missing a direct interaction.
type Field struct {
	adj map[ids.UniverseID][]edge
}

// NewField returns an empty Field.
func NewField() *Field {
	return &Field{adj: make(map[ids.UniverseID][]edge)}
}

// Register indexes it under both of its endpoints.
func (f *Field) Register(it *Interaction) {
	f.adj[it.Source] = append(f.adj[it.Source], edge{IID: it.ID, Other: it.Target})
	f.adj[it.Target] = append(f.adj[it.Target], edge{IID: it.ID, Other: it.Source})
}

// Remove drops iid's adjacency entries from both endpoints.
func (f *Field) Remove(iid ids.InteractionID, source, target ids.UniverseID) {
	f.adj[source] = removeEdge(f.adj[source], iid)
	f.adj[target] = removeEdge(f.adj[target], iid)
}

func removeEdge(edges []edge, iid ids.InteractionID) []edge {
	out := edges[:0]
	for _, e := range edges {
		if e.IID != iid {
			out = append(out, e)
		}
	}
	return out
}

// Neighbors returns the universes directly attached to u (duplicates
// possible if two interactions connect the same pair).
func (f *Field) Neighbors(u ids.UniverseID) []ids.UniverseID {
	edges := f.adj[u]
	out := make([]ids.UniverseID, len(edges))
	for i, e := range edges {
		out[i] = e.Other
	}
	return out
}

// Density returns the number of interactions attached to u.
func (f *Field) Density(u ids.UniverseID) int {
	return len(f.adj[u])
}

// pathStep is one node of the BFS tree built by FindPath.
type pathStep struct {
	node ids.UniverseID
	via  ids.InteractionID
	prev *pathStep
}

// FindPath returns the shortest chain of interaction IDs connecting a
// to b via breadth-first search. It returns an empty, non-nil slice if
// a == b, and ok=false if b is unreachable from a.
func (f *Field) FindPath(a, b ids.UniverseID) (path []ids.InteractionID, ok bool) {
	if a == b {
		return []ids.InteractionID{}, true
	}
	visited := map[ids.UniverseID]bool{a: true}
	queue := []*pathStep{{node: a}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range f.adj[cur.node] {
			if visited[e.Other] {
				continue
			}
			visited[e.Other] = true
			next := &pathStep{node: e.Other, via: e.IID, prev: cur}
			if e.Other == b {
				return reconstructPath(next), true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}

func reconstructPath(s *pathStep) []ids.InteractionID {
	var rev []ids.InteractionID
	for n := s; n.prev != nil; n = n.prev {
		rev = append(rev, n.via)
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}
