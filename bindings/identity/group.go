package identity

import "github.com/cryguy/raven/internal/binding"

// GroupManager manages group records.
type GroupManager struct{ manager }

var _ binding.Binding = (*GroupManager)(nil)

// NewGroupManager returns a GroupManager named name writing to dir.
func NewGroupManager(name string, dir *Directory) *GroupManager {
	g := &GroupManager{manager{name: name, dir: dir}}
	g.methods = []method{
		{desc: binding.Async("addGroup", 1), fn: g.addGroup},
		{desc: binding.Async("deleteGroup", 1), fn: g.deleteGroup},
		{desc: binding.Async("modifyGroup", 1), fn: g.modifyGroup},
		{desc: binding.Async("getGroup", 1), fn: g.getGroup},
		{desc: binding.Async("listGroups", 0), optional: true, fn: g.listGroups},
	}
	return g
}

func groupValue(g Group) binding.Value {
	return binding.Object(map[string]binding.Value{
		"groupname": binding.String(g.Name),
		"gid":       binding.Int(g.GID),
		"members":   stringList(g.Members),
	})
}

func (m *GroupManager) addGroup(p binding.Params) binding.Value {
	name, errv := p.String("groupname")
	if errv.IsError() {
		return errv
	}
	g, err := m.dir.AddGroup(Group{
		Name:    name,
		GID:     p.OptInt("gid", 0),
		Members: p.OptStrings("members", nil),
	})
	if err != nil {
		return failed(err)
	}
	return ok("Group added successfully", map[string]binding.Value{
		"groupname": binding.String(g.Name),
		"gid":       binding.Int(g.GID),
	})
}

func (m *GroupManager) deleteGroup(p binding.Params) binding.Value {
	name, errv := p.String("groupname")
	if errv.IsError() {
		return errv
	}
	if err := m.dir.DeleteGroup(name); err != nil {
		return failed(err)
	}
	return ok("Group deleted successfully", map[string]binding.Value{
		"groupname": binding.String(name),
	})
}

func (m *GroupManager) modifyGroup(p binding.Params) binding.Value {
	name, errv := p.String("groupname")
	if errv.IsError() {
		return errv
	}
	g, err := m.dir.UpdateGroup(name, func(g *Group) error {
		g.Name = p.OptString("newGroupname", g.Name)
		g.GID = p.OptInt("gid", g.GID)
		g.Members = p.OptStrings("members", g.Members)
		return nil
	})
	if err != nil {
		return failed(err)
	}
	return ok("Group modified successfully", map[string]binding.Value{
		"group": groupValue(g),
	})
}

func (m *GroupManager) getGroup(p binding.Params) binding.Value {
	name, errv := p.String("groupname")
	if errv.IsError() {
		return errv
	}
	g, found := m.dir.Group(name)
	if !found {
		return binding.Null()
	}
	return groupValue(g)
}

func (m *GroupManager) listGroups(binding.Params) binding.Value {
	groups := m.dir.Groups()
	items := make([]binding.Value, len(groups))
	for i, g := range groups {
		items[i] = groupValue(g)
	}
	return binding.Array(items...)
}
