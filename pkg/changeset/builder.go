package changeset

import (
	"github.com/newtron-network/vlanshift/pkg/classify"
	"github.com/newtron-network/vlanshift/pkg/config"
	"github.com/newtron-network/vlanshift/pkg/mapping"
	"github.com/newtron-network/vlanshift/pkg/util"
)

// Build applies rules, in order, to the configuration in tree.
//
// For each rule the access VLAN pass runs before the voice VLAN pass, and
// interfaces are visited in document order. An access VLAN match is changed
// only on an access-mode port outside any channel-group; a match with no
// declared mode is reported as WarnDynamic. Voice VLAN matches are always
// changed. A rule that fails validation is recorded as RuleRejected and the
// remaining rules still run.
func Build(tree *config.Tree, rules []mapping.Rule) *Result {
	res := &Result{
		Changeset: New(),
		Decisions: make([]Decision, 0),
	}

	for _, rule := range rules {
		log := util.WithRule(rule.OldVLAN, rule.NewVLAN)

		if err := rule.Validate(); err != nil {
			log.Warnf("Skipping mapping rule: %v", err)
			res.Decisions = append(res.Decisions, Decision{
				Rule:   rule,
				Kind:   RuleRejected,
				Err:    err,
				Reason: err.Error(),
			})
			continue
		}

		for _, intf := range classify.ByAccessVLAN(tree, rule.OldVLAN) {
			d := accessDecision(intf, rule)
			log.WithField("interface", intf.Name).Debugf("access VLAN: %s", d.Kind)
			res.record(d, intf)
		}

		for _, intf := range classify.ByVoiceVLAN(tree, rule.OldVLAN) {
			d := Decision{
				Interface: intf.Name,
				Rule:      rule,
				Kind:      Change,
				VLAN:      classify.VoiceVLAN,
				Mode:      intf.Mode(),
			}
			log.WithField("interface", intf.Name).Debugf("voice VLAN: %s", d.Kind)
			res.record(d, intf)
		}
	}

	return res
}

func accessDecision(intf classify.Interface, rule mapping.Rule) Decision {
	d := Decision{
		Interface: intf.Name,
		Rule:      rule,
		VLAN:      classify.AccessVLAN,
		Mode:      intf.Mode(),
	}
	switch {
	case intf.AccessMode && !intf.ChannelMember:
		d.Kind = Change
	case !intf.AccessMode && !intf.TrunkMode:
		d.Kind = WarnDynamic
	case intf.AccessMode:
		d.Kind = SkipPortChannelMember
	default:
		d.Kind = SkipNotAccess
	}
	return d
}

func (r *Result) record(d Decision, intf classify.Interface) {
	r.Decisions = append(r.Decisions, d)
	if d.Kind == Change {
		r.Changeset.Add(intf.Node.Text, AttributeLine(d.VLAN, d.Rule.NewVLAN))
	}
}
