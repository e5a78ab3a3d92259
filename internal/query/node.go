// Package query implements the boolean query language: parsing the
// nested-pair AST, planning hoistable metadata into a SearchContext, and
// evaluating the remainder against the loaded indices.
package query

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// Node is one AST node: [kind, value]. "and" and "or" carry Children;
// every other kind carries Value (a leaf string, possibly empty for
// "all").
type Node struct {
	Kind     string
	Value    string
	Children []Node
}

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// UnmarshalJSON decodes the wire form [kind, value] where value is
// either a JSON string/number leaf or, for "and"/"or", a JSON array of
// further [kind, value] pairs.
func (n *Node) UnmarshalJSON(b []byte) error {
	var pair []jsoniter.RawMessage
	if err := jsonAPI.Unmarshal(b, &pair); err != nil {
		return errors.Wrap(err, "query: decoding node")
	}
	if len(pair) != 2 {
		return errors.Errorf("query: node must be a 2-element array, got %d", len(pair))
	}
	if err := jsonAPI.Unmarshal(pair[0], &n.Kind); err != nil {
		return errors.Wrap(err, "query: decoding node kind")
	}

	switch n.Kind {
	case "and", "or":
		var children []Node
		if err := jsonAPI.Unmarshal(pair[1], &children); err != nil {
			return errors.Wrapf(err, "query: decoding %s children", n.Kind)
		}
		n.Children = children
	case "all":
		// value is null; nothing to decode.
	default:
		var asString string
		if err := jsonAPI.Unmarshal(pair[1], &asString); err == nil {
			n.Value = asString
			return nil
		}
		var asNumber jsoniter.Number
		if err := jsonAPI.Unmarshal(pair[1], &asNumber); err != nil {
			return errors.Wrapf(err, "query: decoding %s value", n.Kind)
		}
		n.Value = asNumber.String()
	}
	return nil
}

// execPriority implements SEARCH_KEY_EXEC_PRIORITY: deferred AND
// children are evaluated lowest-priority-number first. Unlisted kinds
// (face_count) sort last.
var execPriority = map[string]int{
	"video": 0, "channel": 0, "show": 0, "hour": 0, "day_of_week": 0,
	"or": 1, "and": 2, "text": 3, "face_name": 4, "face_tag": 5,
}

func priorityOf(kind string) int {
	if p, ok := execPriority[kind]; ok {
		return p
	}
	return 100
}

// isMetadataKind reports whether a kind is hoistable into a
// SearchContext by the AND planner's first pass.
func isMetadataKind(kind string) bool {
	switch kind {
	case "video", "channel", "show", "hour", "day_of_week", "text_window":
		return true
	default:
		return false
	}
}

// isVideoSetProducingKind reports whether a kind always evaluates to a
// VideoSet, used by the OR planner's first pass.
func isVideoSetProducingKind(kind string) bool {
	switch kind {
	case "video", "channel", "show", "hour", "day_of_week":
		return true
	default:
		return false
	}
}
