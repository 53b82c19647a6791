/*
 * SPDX-FileCopyrightText: © Graphtrace Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package report

import (
	"context"

	"github.com/golang/glog"
	"go.opencensus.io/stats"

	"github.com/graphtrace/graphtrace/trace"
	"github.com/graphtrace/graphtrace/x"
)

// A Child is a member of a node's child list: either a Node for a resolved
// field or an IndexGroup collecting the children of one list element.
type Child interface {
	isChild()
}

// A Node is one resolved field in a reconstructed trace tree. StartTime and
// EndTime are nanosecond offsets from the request start.
type Node struct {
	ParentType   string  `json:"parentType"`
	Type         string  `json:"type"`
	ResponseName string  `json:"responseName"`
	StartTime    int64   `json:"startTime"`
	EndTime      int64   `json:"endTime"`
	Child        []Child `json:"child,omitempty"`
}

// An IndexGroup holds the nodes resolved for one position of a list field.
type IndexGroup struct {
	Index int     `json:"index"`
	Child []Child `json:"child,omitempty"`
}

func (*Node) isChild()       {}
func (*IndexGroup) isChild() {}

// OperationTrees is the reconstructed forest for one operation: the ordered
// top-level field nodes, each carrying its fully attached descendants.
type OperationTrees struct {
	Operation string
	Roots     []*Node
}

// Stats counts the malformed inputs a build encountered. A build never
// fails; callers that need stronger guarantees should check these counts
// rather than trusting a report built from malformed events.
type Stats struct {
	// OrphansDropped counts events whose computed parent path matched no
	// recorded event. Such events are dropped with a diagnostic.
	OrphansDropped int
	// DuplicateKeys counts events that collided with an earlier event on the
	// same identity path. The later event wins the identity index.
	DuplicateKeys int
}

// BuildTrees reconstructs the flat event list of one batch into per-operation
// trace trees. Operations appear in first-recorded order; within an
// operation, children keep the order their fields were resolved, except list
// index groups, which are ordered by index ascending.
func BuildTrees(events []trace.FieldEvent) ([]OperationTrees, Stats) {
	var st Stats
	byOp := make(map[string][]trace.FieldEvent)
	var opOrder []string
	for _, ev := range events {
		if _, ok := byOp[ev.Operation]; !ok {
			opOrder = append(opOrder, ev.Operation)
		}
		byOp[ev.Operation] = append(byOp[ev.Operation], ev)
	}

	out := make([]OperationTrees, 0, len(opOrder))
	for _, op := range opOrder {
		out = append(out, OperationTrees{
			Operation: op,
			Roots:     buildOperation(byOp[op], &st),
		})
	}
	return out, st
}

// identityPath returns the path an event is addressed by when other events
// look it up as their parent. A list field is addressed by the path of the
// field itself, so a trailing index segment belongs to the item and is
// stripped.
func identityPath(ev trace.FieldEvent) trace.Path {
	p := ev.Path
	if ev.IsList && len(p) > 0 && p[len(p)-1].IsIndex() {
		return p[:len(p)-1]
	}
	return p
}

func buildOperation(events []trace.FieldEvent, st *Stats) []*Node {
	// Pass 1: allocate every node up front and index each by its identity
	// path. Nothing is linked yet, so no partially built tree is ever
	// visible to the attachment pass.
	nodes := make([]*Node, len(events))
	idPaths := make([]trace.Path, len(events))
	index := make(map[string]*Node, len(events))
	for i, ev := range events {
		nodes[i] = &Node{
			ParentType:   ev.ParentType,
			Type:         ev.Type,
			ResponseName: ev.ResponseName,
			StartTime:    ev.StartOffsetNs,
			EndTime:      ev.EndOffsetNs,
		}
		idPaths[i] = identityPath(ev)
		key := idPaths[i].Key()
		if _, ok := index[key]; ok {
			st.DuplicateKeys++
			stats.Record(context.Background(), x.NumDuplicateKeys.M(1))
			glog.Warningf("duplicate trace identity %q for operation %q, later event wins",
				idPaths[i], ev.Operation)
		}
		index[key] = nodes[i]
	}

	// Pass 2: attach every node to its parent. groups tracks the per-parent
	// index groups already created for list fields.
	var roots []*Node
	groups := make(map[*Node]map[int]*IndexGroup)
	for i, ev := range events {
		node := nodes[i]
		switch {
		case len(idPaths[i]) == 0:
			dropOrphan(ev, st)
		case len(idPaths[i]) == 1:
			roots = append(roots, node)
		default:
			parentPath := ev.Path[:len(ev.Path)-1]
			if last := parentPath[len(parentPath)-1]; last.IsIndex() {
				// An index step means the true parent is the list field
				// itself, one segment further up. The node goes under that
				// parent's group for this index.
				parent, ok := index[parentPath[:len(parentPath)-1].Key()]
				if !ok || parent == node {
					dropOrphan(ev, st)
					continue
				}
				g := groupFor(groups, parent, last.Pos())
				g.Child = append(g.Child, node)
			} else {
				parent, ok := index[parentPath.Key()]
				if !ok || parent == node {
					dropOrphan(ev, st)
					continue
				}
				parent.Child = append(parent.Child, node)
			}
		}
	}
	return roots
}

func dropOrphan(ev trace.FieldEvent, st *Stats) {
	st.OrphansDropped++
	stats.Record(context.Background(), x.NumOrphansDropped.M(1))
	glog.Warningf("dropping orphaned trace event at %q for operation %q: no parent event recorded",
		ev.Path, ev.Operation)
}

// groupFor returns the IndexGroup of parent for idx, creating it and
// splicing it into parent's child list if needed. Groups stay in ascending
// index order no matter the order events arrived in.
func groupFor(groups map[*Node]map[int]*IndexGroup, parent *Node, idx int) *IndexGroup {
	byIdx := groups[parent]
	if byIdx == nil {
		byIdx = make(map[int]*IndexGroup)
		groups[parent] = byIdx
	}
	if g, ok := byIdx[idx]; ok {
		return g
	}
	g := &IndexGroup{Index: idx}
	byIdx[idx] = g

	pos := len(parent.Child)
	for i, c := range parent.Child {
		if og, ok := c.(*IndexGroup); ok && og.Index > idx {
			pos = i
			break
		}
	}
	parent.Child = append(parent.Child, nil)
	copy(parent.Child[pos+1:], parent.Child[pos:])
	parent.Child[pos] = g
	return g
}
