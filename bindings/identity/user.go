package identity

import (
	"github.com/cryguy/raven/internal/binding"
)

// UserManager manages account records.
type UserManager struct{ manager }

var _ binding.Binding = (*UserManager)(nil)

// NewUserManager returns a UserManager named name writing to dir.
func NewUserManager(name string, dir *Directory) *UserManager {
	u := &UserManager{manager{name: name, dir: dir}}
	u.methods = []method{
		{desc: binding.Async("addUser", 1), fn: u.addUser},
		{desc: binding.Async("deleteUser", 1), fn: u.deleteUser},
		{desc: binding.Async("modifyUser", 1), fn: u.modifyUser},
		{desc: binding.Async("setPassword", 1), fn: u.setPassword},
		{desc: binding.Async("verifyPassword", 1), fn: u.verifyPassword},
		{desc: binding.Async("getUser", 1), fn: u.getUser},
		{desc: binding.Async("listUsers", 0), optional: true, fn: u.listUsers},
		{desc: binding.Async("lockUser", 1), fn: u.lockUser},
		{desc: binding.Async("unlockUser", 1), fn: u.unlockUser},
	}
	return u
}

func userValue(u User) binding.Value {
	return binding.Object(map[string]binding.Value{
		"username": binding.String(u.Username),
		"uid":      binding.Int(u.UID),
		"gid":      binding.Int(u.GID),
		"home":     binding.String(u.Home),
		"shell":    binding.String(u.Shell),
		"comment":  binding.String(u.Comment),
		"groups":   stringList(u.Groups),
		"locked":   binding.Bool(u.Locked),
	})
}

func (m *UserManager) addUser(p binding.Params) binding.Value {
	username, errv := p.String("username")
	if errv.IsError() {
		return errv
	}
	password, errv := p.String("password")
	if errv.IsError() {
		return errv
	}
	u, err := m.dir.AddUser(User{
		Username: username,
		UID:      p.OptInt("uid", 0),
		GID:      p.OptInt("gid", 0),
		Home:     p.OptString("home", ""),
		Shell:    p.OptString("shell", ""),
		Comment:  p.OptString("comment", ""),
		Groups:   p.OptStrings("groups", nil),
	}, password)
	if err != nil {
		return failed(err)
	}
	return ok("User added successfully", map[string]binding.Value{
		"username": binding.String(u.Username),
		"uid":      binding.Int(u.UID),
		"gid":      binding.Int(u.GID),
	})
}

func (m *UserManager) deleteUser(p binding.Params) binding.Value {
	username, errv := p.String("username")
	if errv.IsError() {
		return errv
	}
	if err := m.dir.DeleteUser(username); err != nil {
		return failed(err)
	}
	return ok("User deleted successfully", map[string]binding.Value{
		"username":   binding.String(username),
		"removeHome": binding.Bool(p.OptBool("removeHome", false)),
	})
}

func (m *UserManager) modifyUser(p binding.Params) binding.Value {
	username, errv := p.String("username")
	if errv.IsError() {
		return errv
	}
	u, err := m.dir.UpdateUser(username, func(u *User) error {
		u.UID = p.OptInt("uid", u.UID)
		u.GID = p.OptInt("gid", u.GID)
		u.Home = p.OptString("home", u.Home)
		u.Shell = p.OptString("shell", u.Shell)
		u.Comment = p.OptString("comment", u.Comment)
		u.Groups = p.OptStrings("groups", u.Groups)
		return nil
	})
	if err != nil {
		return failed(err)
	}
	return ok("User modified successfully", map[string]binding.Value{
		"user": userValue(u),
	})
}

func (m *UserManager) setPassword(p binding.Params) binding.Value {
	username, errv := p.String("username")
	if errv.IsError() {
		return errv
	}
	password, errv := p.String("password")
	if errv.IsError() {
		return errv
	}
	if err := m.dir.SetPassword(username, password); err != nil {
		return failed(err)
	}
	return ok("Password set successfully", map[string]binding.Value{
		"username": binding.String(username),
	})
}

func (m *UserManager) verifyPassword(p binding.Params) binding.Value {
	username, errv := p.String("username")
	if errv.IsError() {
		return errv
	}
	password, errv := p.String("password")
	if errv.IsError() {
		return errv
	}
	match, err := m.dir.VerifyPassword(username, password)
	if err != nil {
		return failed(err)
	}
	return binding.Bool(match)
}

func (m *UserManager) getUser(p binding.Params) binding.Value {
	username, errv := p.String("username")
	if errv.IsError() {
		return errv
	}
	u, found := m.dir.User(username)
	if !found {
		return binding.Null()
	}
	return userValue(u)
}

func (m *UserManager) listUsers(binding.Params) binding.Value {
	users := m.dir.Users()
	items := make([]binding.Value, len(users))
	for i, u := range users {
		items[i] = userValue(u)
	}
	return binding.Array(items...)
}

func (m *UserManager) setLocked(p binding.Params, locked bool, message string) binding.Value {
	username, errv := p.String("username")
	if errv.IsError() {
		return errv
	}
	_, err := m.dir.UpdateUser(username, func(u *User) error {
		u.Locked = locked
		return nil
	})
	if err != nil {
		return failed(err)
	}
	return ok(message, map[string]binding.Value{
		"username": binding.String(username),
	})
}

func (m *UserManager) lockUser(p binding.Params) binding.Value {
	return m.setLocked(p, true, "User locked successfully")
}

func (m *UserManager) unlockUser(p binding.Params) binding.Value {
	return m.setLocked(p, false, "User unlocked successfully")
}
