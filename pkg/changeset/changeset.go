// Package changeset derives the ordered VLAN reassignment commands for one
// device from its parsed configuration and the mapping rules.
package changeset

import (
	"fmt"
	"strings"

	"github.com/newtron-network/vlanshift/pkg/classify"
	"github.com/newtron-network/vlanshift/pkg/mapping"
)

// Pair is one interface selector line followed by the attribute line to apply
// under it.
type Pair struct {
	Selector  string `json:"selector"`
	Attribute string `json:"attribute"`
}

// Changeset is the ordered command list for one device. Commands alternate
// selector and attribute lines.
type Changeset struct {
	Commands []string `json:"commands"`
}

// New creates an empty Changeset.
func New() *Changeset {
	return &Changeset{Commands: make([]string, 0)}
}

// Add appends a selector/attribute pair.
func (cs *Changeset) Add(selector, attribute string) {
	cs.Commands = append(cs.Commands, selector, attribute)
}

// IsEmpty returns true if there are no commands.
func (cs *Changeset) IsEmpty() bool {
	return len(cs.Commands) == 0
}

// Len returns the number of command lines.
func (cs *Changeset) Len() int {
	return len(cs.Commands)
}

// Pairs returns the commands grouped as selector/attribute pairs.
func (cs *Changeset) Pairs() []Pair {
	pairs := make([]Pair, 0, len(cs.Commands)/2)
	for i := 0; i+1 < len(cs.Commands); i += 2 {
		pairs = append(pairs, Pair{Selector: cs.Commands[i], Attribute: cs.Commands[i+1]})
	}
	return pairs
}

// String returns the commands one per line, indented for console output.
func (cs *Changeset) String() string {
	if cs.IsEmpty() {
		return "No changes"
	}
	var sb strings.Builder
	for _, line := range cs.Commands {
		sb.WriteString("  ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// AttributeLine renders the configuration line assigning vlan as the given
// switchport VLAN kind.
func AttributeLine(kind classify.VLANKind, vlan string) string {
	return fmt.Sprintf(" switchport %s vlan %s", kind, vlan)
}

// Kind classifies the outcome of evaluating one interface against one rule.
type Kind string

const (
	// Change emits a selector/attribute pair.
	Change Kind = "change"
	// WarnDynamic flags an access VLAN match on an interface with no declared
	// mode; nothing is emitted.
	WarnDynamic Kind = "warn-dynamic"
	// SkipPortChannelMember leaves a channel-group member to its aggregate.
	SkipPortChannelMember Kind = "skip-port-channel-member"
	// SkipNotAccess leaves trunk ports alone.
	SkipNotAccess Kind = "skip-not-access"
	// RuleRejected records a malformed mapping rule that was not applied.
	RuleRejected Kind = "rule-rejected"
)

// Decision is the outcome for one (interface, rule) evaluation.
type Decision struct {
	Interface string            `json:"interface,omitempty"`
	Rule      mapping.Rule      `json:"rule"`
	Kind      Kind              `json:"kind"`
	VLAN      classify.VLANKind `json:"vlan,omitempty"`
	Mode      string            `json:"mode,omitempty"`
	Err       error             `json:"-"`
	Reason    string            `json:"reason,omitempty"`
}

// Message renders the decision for operator review.
func (d Decision) Message() string {
	switch d.Kind {
	case Change:
		if d.VLAN == classify.VoiceVLAN {
			return fmt.Sprintf("%s: Changing voice VLAN %s", d.Interface, d.Rule)
		}
		return fmt.Sprintf("%s: Changing VLAN %s", d.Interface, d.Rule)
	case WarnDynamic:
		return fmt.Sprintf("WARNING: Interface %s is in mode dynamic auto (VLAN not changed)", d.Interface)
	case SkipPortChannelMember:
		return fmt.Sprintf("%s: port-channel member, VLAN %s not changed", d.Interface, d.Rule.OldVLAN)
	case SkipNotAccess:
		return fmt.Sprintf("%s: %s port, VLAN %s not changed", d.Interface, d.Mode, d.Rule.OldVLAN)
	case RuleRejected:
		return d.Reason
	}
	return string(d.Kind)
}

// Result holds the changeset and the decisions for one device, both in
// evaluation order.
type Result struct {
	Changeset *Changeset `json:"changeset"`
	Decisions []Decision `json:"decisions"`
}

// Count returns the number of decisions of the given kind.
func (r *Result) Count(kind Kind) int {
	n := 0
	for _, d := range r.Decisions {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// Filter returns the decisions of the given kind.
func (r *Result) Filter(kind Kind) []Decision {
	var out []Decision
	for _, d := range r.Decisions {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Changed returns the Change decisions.
func (r *Result) Changed() []Decision {
	return r.Filter(Change)
}

// Warnings returns the WarnDynamic decisions.
func (r *Result) Warnings() []Decision {
	return r.Filter(WarnDynamic)
}
