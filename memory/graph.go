package memory

import (
	"fmt"
	"sync"
)

// GraphMemory is an in-memory entity-relationship graph that links
// entities to each other and to memory entry IDs. It supports BFS
// neighborhood queries for building entity-centric context without an
// external graph database.
type GraphMemory struct {
	mu       sync.RWMutex
	nodes    map[string]map[string]any
	edges    []graphEdge
	memories map[string][]string
}

type graphEdge struct {
	source   string
	relation string
	target   string
}

// Relationship is a directed edge between two entities.
type Relationship struct {
	Source   string
	Relation string
	Target   string
}

// NewGraphMemory creates an empty graph.
func NewGraphMemory() *GraphMemory {
	return &GraphMemory{
		nodes:    make(map[string]map[string]any),
		memories: make(map[string][]string),
	}
}

// AddEntity adds an entity node. If the entity already exists its metadata
// is merged with the given map.
func (g *GraphMemory) AddEntity(entityID string, metadata map[string]any) {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, ok := g.nodes[entityID]
	if !ok {
		node = make(map[string]any)
		g.nodes[entityID] = node
	}
	for k, v := range metadata {
		node[k] = v
	}
}

// AddRelationship adds a directed edge, creating missing nodes on the fly.
func (g *GraphMemory) AddRelationship(source, relation, target string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[source]; !ok {
		g.nodes[source] = make(map[string]any)
	}
	if _, ok := g.nodes[target]; !ok {
		g.nodes[target] = make(map[string]any)
	}
	g.edges = append(g.edges, graphEdge{source: source, relation: relation, target: target})
}

// LinkMemory associates a memory entry ID with an entity. Linking to an
// unknown entity is an error.
func (g *GraphMemory) LinkMemory(entityID, memoryID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[entityID]; !ok {
		return fmt.Errorf("entity %q does not exist in the graph", entityID)
	}
	g.memories[entityID] = append(g.memories[entityID], memoryID)
	return nil
}

// RelatedEntities finds entities reachable from entityID within maxDepth
// hops, traversing edges in both directions. The starting entity is not
// included; order is BFS discovery order.
func (g *GraphMemory) RelatedEntities(entityID string, maxDepth int) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[entityID]; !ok {
		return nil
	}

	adjacency := make(map[string][]string)
	seenEdge := make(map[[2]string]bool)
	addEdge := func(a, b string) {
		key := [2]string{a, b}
		if !seenEdge[key] {
			seenEdge[key] = true
			adjacency[a] = append(adjacency[a], b)
		}
	}
	for _, e := range g.edges {
		addEdge(e.source, e.target)
		addEdge(e.target, e.source)
	}

	visited := map[string]bool{entityID: true}
	type queued struct {
		id    string
		depth int
	}
	queue := []queued{{id: entityID}}
	var result []string

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.depth >= maxDepth {
			continue
		}
		for _, neighbor := range adjacency[current.id] {
			if !visited[neighbor] {
				visited[neighbor] = true
				result = append(result, neighbor)
				queue = append(queue, queued{id: neighbor, depth: current.depth + 1})
			}
		}
	}
	return result
}

// MemoryIDsForEntity returns the memory IDs linked directly to an entity.
func (g *GraphMemory) MemoryIDsForEntity(entityID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.memories[entityID]))
	copy(out, g.memories[entityID])
	return out
}

// RelatedMemoryIDs collects memory IDs for the entity and its whole
// neighborhood within maxDepth hops, deduplicated in discovery order.
func (g *GraphMemory) RelatedMemoryIDs(entityID string, maxDepth int) []string {
	related := g.RelatedEntities(entityID, maxDepth)

	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]bool)
	var result []string
	for _, eid := range append([]string{entityID}, related...) {
		for _, mid := range g.memories[eid] {
			if !seen[mid] {
				seen[mid] = true
				result = append(result, mid)
			}
		}
	}
	return result
}

// RemoveEntity removes an entity, its edges, and its memory linkages.
func (g *GraphMemory) RemoveEntity(entityID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.nodes, entityID)
	delete(g.memories, entityID)
	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.source != entityID && e.target != entityID {
			kept = append(kept, e)
		}
	}
	g.edges = kept
}

// Entities lists all entity IDs.
func (g *GraphMemory) Entities() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		out = append(out, id)
	}
	return out
}

// Relationships lists all edges.
func (g *GraphMemory) Relationships() []Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Relationship, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, Relationship{Source: e.source, Relation: e.relation, Target: e.target})
	}
	return out
}

// EntityMetadata returns a copy of an entity's metadata and whether the
// entity exists.
func (g *GraphMemory) EntityMetadata(entityID string) (map[string]any, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	node, ok := g.nodes[entityID]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(node))
	for k, v := range node {
		out[k] = v
	}
	return out, true
}

// Clear removes all entities, relationships, and memory linkages.
func (g *GraphMemory) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = make(map[string]map[string]any)
	g.edges = nil
	g.memories = make(map[string][]string)
}

// Len is the number of entities in the graph.
func (g *GraphMemory) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}
