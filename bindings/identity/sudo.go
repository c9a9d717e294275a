package identity

import "github.com/cryguy/raven/internal/binding"

// SudoManager records privilege-escalation rules.
type SudoManager struct{ manager }

var _ binding.Binding = (*SudoManager)(nil)

// NewSudoManager returns a SudoManager named name writing to dir.
func NewSudoManager(name string, dir *Directory) *SudoManager {
	m := &SudoManager{manager{name: name, dir: dir}}
	m.methods = []method{
		{desc: binding.Async("addRule", 1), fn: m.addRule},
		{desc: binding.Async("removeRule", 1), fn: m.removeRule},
		{desc: binding.Async("listRules", 0), optional: true, fn: m.listRules},
	}
	return m
}

func ruleValue(r SudoRule) binding.Value {
	out := map[string]binding.Value{
		"hosts":      stringList(r.Hosts),
		"commands":   stringList(r.Commands),
		"runAs":      binding.String(r.RunAs),
		"noPassword": binding.Bool(r.NoPassword),
	}
	if len(r.Target) > 0 && r.Target[0] == '%' {
		out["group"] = binding.String(r.Target[1:])
	} else {
		out["user"] = binding.String(r.Target)
	}
	return binding.Object(out)
}

func (m *SudoManager) addRule(p binding.Params) binding.Value {
	target := p.OptString("user", "")
	if target == "" {
		group := p.OptString("group", "")
		if group == "" {
			return binding.Error("Either user or group is required")
		}
		target = "%" + group
	}
	r := m.dir.AddRule(SudoRule{
		Target:     target,
		Hosts:      p.OptStrings("hosts", []string{"ALL"}),
		Commands:   p.OptStrings("commands", []string{"ALL"}),
		RunAs:      p.OptString("runAs", "root"),
		NoPassword: p.OptBool("noPassword", false),
	})
	return ok("Sudo rule added successfully", map[string]binding.Value{
		"rule": ruleValue(r),
	})
}

func (m *SudoManager) removeRule(p binding.Params) binding.Value {
	user, errv := p.String("user")
	if errv.IsError() {
		return errv
	}
	removed := m.dir.RemoveRule(user, p.OptStrings("commands", nil))
	return ok("Sudo rule removed successfully", map[string]binding.Value{
		"removed": binding.Bool(removed),
	})
}

func (m *SudoManager) listRules(binding.Params) binding.Value {
	rules := m.dir.Rules()
	items := make([]binding.Value, len(rules))
	for i, r := range rules {
		items[i] = ruleValue(r)
	}
	return binding.Array(items...)
}
