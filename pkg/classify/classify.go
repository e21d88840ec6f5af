// Package classify derives VLAN-relevant attributes of interfaces from a
// parsed configuration tree.
package classify

import (
	"strings"

	"github.com/newtron-network/vlanshift/pkg/config"
)

// VLANKind selects which switchport VLAN a lookup is about.
type VLANKind string

const (
	AccessVLAN VLANKind = "access"
	VoiceVLAN  VLANKind = "voice"
)

// Interface selector and child line predicates.
var (
	IsInterface     = config.HasPrefix("interface ")
	IsModeAccess    = config.WordsPrefix("switchport", "mode", "access")
	IsModeTrunk     = config.WordsPrefix("switchport", "mode", "trunk")
	IsChannelMember = config.WordsPrefix("channel-group")
)

// Interface is an interface block with its attribute tuple.
type Interface struct {
	Node *config.Node `json:"-"`

	// Name is the selector text without the "interface " keyword,
	// e.g. "GigabitEthernet1/0/1".
	Name string `json:"name"`

	AccessMode    bool `json:"access_mode"`
	TrunkMode     bool `json:"trunk_mode"`
	ChannelMember bool `json:"channel_member"`

	// AccessVLAN and VoiceVLAN are the currently configured VLANs, empty when
	// not set.
	AccessVLAN string `json:"access_vlan,omitempty"`
	VoiceVLAN  string `json:"voice_vlan,omitempty"`
}

// Selector returns the interface line exactly as it appears in the
// configuration.
func (i Interface) Selector() string {
	return i.Node.Trimmed()
}

// Mode returns a short label for the declared switchport mode.
func (i Interface) Mode() string {
	switch {
	case i.AccessMode:
		return "access"
	case i.TrunkMode:
		return "trunk"
	default:
		return "dynamic"
	}
}

// VLANSelector returns the predicate matching "switchport <kind> vlan <vlan>"
// exactly.
func VLANSelector(kind VLANKind, vlan string) config.Predicate {
	return config.Words("switchport", string(kind), "vlan", vlan)
}

// Describe evaluates the attribute tuple of an interface node.
func Describe(node *config.Node) Interface {
	intf := Interface{
		Node:          node,
		Name:          strings.TrimSpace(strings.TrimPrefix(node.Trimmed(), "interface")),
		AccessMode:    node.HasChild(IsModeAccess),
		TrunkMode:     node.HasChild(IsModeTrunk),
		ChannelMember: node.HasChild(IsChannelMember),
	}
	intf.AccessVLAN = vlanOf(node, AccessVLAN)
	intf.VoiceVLAN = vlanOf(node, VoiceVLAN)
	return intf
}

// Find returns the top-level nodes matching parent that have a direct child
// matching child, described, in document order.
func Find(tree *config.Tree, parent, child config.Predicate) []Interface {
	nodes := tree.FindParentsWithChild(parent, child)
	result := make([]Interface, 0, len(nodes))
	for _, n := range nodes {
		result = append(result, Describe(n))
	}
	return result
}

// ByVLAN returns the interfaces carrying "switchport <kind> vlan <vlan>".
func ByVLAN(tree *config.Tree, kind VLANKind, vlan string) []Interface {
	return Find(tree, IsInterface, VLANSelector(kind, vlan))
}

// ByAccessVLAN returns the interfaces whose access VLAN is vlan.
func ByAccessVLAN(tree *config.Tree, vlan string) []Interface {
	return ByVLAN(tree, AccessVLAN, vlan)
}

// ByVoiceVLAN returns the interfaces whose voice VLAN is vlan.
func ByVoiceVLAN(tree *config.Tree, vlan string) []Interface {
	return ByVLAN(tree, VoiceVLAN, vlan)
}

// All describes every interface in the tree.
func All(tree *config.Tree) []Interface {
	nodes := tree.FindRoots(IsInterface)
	result := make([]Interface, 0, len(nodes))
	for _, n := range nodes {
		result = append(result, Describe(n))
	}
	return result
}

func vlanOf(node *config.Node, kind VLANKind) string {
	child := node.FindChild(config.WordsPrefix("switchport", string(kind), "vlan"))
	if child == nil {
		return ""
	}
	fields := strings.Fields(child.Trimmed())
	if len(fields) != 4 {
		return ""
	}
	return fields[3]
}
