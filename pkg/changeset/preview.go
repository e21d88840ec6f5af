package changeset

import (
	"github.com/newtron-network/vlanshift/pkg/classify"
	"github.com/newtron-network/vlanshift/pkg/config"
)

// Preview returns the interface blocks touched by res as they are in tree and
// as they will read once the changeset is applied. Blocks appear in document
// order. When several changes hit the same statement the last one wins, as it
// would on the device.
func Preview(tree *config.Tree, res *Result) (before, after []string) {
	changes := make(map[string]map[classify.VLANKind]string)
	for _, d := range res.Changed() {
		if changes[d.Interface] == nil {
			changes[d.Interface] = make(map[classify.VLANKind]string)
		}
		changes[d.Interface][d.VLAN] = d.Rule.NewVLAN
	}

	for _, intf := range classify.All(tree) {
		target, ok := changes[intf.Name]
		if !ok {
			continue
		}
		walk(intf.Node, func(n *config.Node) {
			before = append(before, n.Text)
			if n.Parent() == intf.Node {
				for kind, vlan := range target {
					if config.WordsPrefix("switchport", string(kind), "vlan").Match(n.Line) {
						after = append(after, AttributeLine(kind, vlan))
						return
					}
				}
			}
			after = append(after, n.Text)
		})
	}
	return before, after
}

func walk(n *config.Node, fn func(*config.Node)) {
	fn(n)
	for _, c := range n.Children {
		walk(c, fn)
	}
}
