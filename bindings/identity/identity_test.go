package identity

import (
	"errors"
	"testing"

	"github.com/cryguy/raven/internal/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newDir() *Directory {
	d := NewDirectory()
	d.SetBcryptCost(bcrypt.MinCost)
	return d
}

func params(kv ...any) []binding.Value {
	fields := make(map[string]binding.Value, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i].(string)] = binding.FromNative(kv[i+1])
	}
	return []binding.Value{binding.Object(fields)}
}

func field(t *testing.T, v binding.Value, key string) binding.Value {
	t.Helper()
	f, ok := v.Get(key)
	require.True(t, ok, "missing %q in %s", key, v)
	return f
}

func requireOK(t *testing.T, v binding.Value) {
	t.Helper()
	require.False(t, v.IsError(), v.String())
	assert.True(t, binding.Equal(binding.Bool(true), field(t, v, "success")))
}

func TestUserManager_AddAllocatesIDs(t *testing.T) {
	um := NewUserManager("UserManager", newDir())

	first := um.Call("addUser", params("username", "alice", "password", "pw"))
	requireOK(t, first)
	assert.Equal(t, "User added successfully", field(t, first, "message").String())
	assert.True(t, binding.Equal(binding.Int(1000), field(t, first, "uid")))
	assert.True(t, binding.Equal(binding.Int(1000), field(t, first, "gid")))

	explicit := um.Call("addUser", params("username", "bob", "password", "pw", "uid", 2000, "gid", 50))
	requireOK(t, explicit)
	assert.True(t, binding.Equal(binding.Int(2000), field(t, explicit, "uid")))
	assert.True(t, binding.Equal(binding.Int(50), field(t, explicit, "gid")))

	next := um.Call("addUser", params("username", "carol", "password", "pw"))
	requireOK(t, next)
	assert.True(t, binding.Equal(binding.Int(1001), field(t, next, "uid")))

	got := um.Call("getUser", params("username", "alice"))
	assert.Equal(t, "/home/alice", field(t, got, "home").String())
	assert.Equal(t, "/bin/bash", field(t, got, "shell").String())
}

func TestUserManager_Duplicate(t *testing.T) {
	um := NewUserManager("UserManager", newDir())
	requireOK(t, um.Call("addUser", params("username", "alice", "password", "pw")))
	dup := um.Call("addUser", params("username", "alice", "password", "pw"))
	msg, ok := dup.ErrorMessage()
	require.True(t, ok)
	assert.Contains(t, msg, "already exists")
}

func TestUserManager_ParamValidation(t *testing.T) {
	um := NewUserManager("UserManager", newDir())

	msg, _ := um.Call("addUser", nil).ErrorMessage()
	assert.Equal(t, "addUser requires params object", msg)

	msg, _ = um.Call("addUser", []binding.Value{binding.String("alice")}).ErrorMessage()
	assert.Equal(t, "addUser params must be an object", msg)

	msg, _ = um.Call("addUser", params("password", "pw")).ErrorMessage()
	assert.Equal(t, "username is required", msg)

	msg, _ = um.Call("elevate", params()).ErrorMessage()
	assert.Equal(t, "Unknown method: elevate", msg)

	list := um.Call("listUsers", nil)
	items, ok := list.AsArray()
	require.True(t, ok)
	assert.Empty(t, items)
}

func TestUserManager_PasswordsAndLocking(t *testing.T) {
	um := NewUserManager("UserManager", newDir())
	requireOK(t, um.Call("addUser", params("username", "alice", "password", "first")))

	yes := um.Call("verifyPassword", params("username", "alice", "password", "first"))
	assert.True(t, binding.Equal(binding.Bool(true), yes))

	requireOK(t, um.Call("setPassword", params("username", "alice", "password", "second")))
	no := um.Call("verifyPassword", params("username", "alice", "password", "first"))
	assert.True(t, binding.Equal(binding.Bool(false), no))

	requireOK(t, um.Call("lockUser", params("username", "alice")))
	locked := um.Call("verifyPassword", params("username", "alice", "password", "second"))
	assert.True(t, binding.Equal(binding.Bool(false), locked))

	requireOK(t, um.Call("unlockUser", params("username", "alice")))
	unlocked := um.Call("verifyPassword", params("username", "alice", "password", "second"))
	assert.True(t, binding.Equal(binding.Bool(true), unlocked))

	missing := um.Call("verifyPassword", params("username", "ghost", "password", "x"))
	assert.True(t, missing.IsError())
}

func TestUserManager_ModifyAndDelete(t *testing.T) {
	dir := newDir()
	um := NewUserManager("UserManager", dir)
	requireOK(t, um.Call("addUser", params("username", "alice", "password", "pw")))

	out := um.Call("modifyUser", params("username", "alice", "shell", "/bin/zsh", "comment", "Alice"))
	requireOK(t, out)
	user := field(t, out, "user")
	assert.Equal(t, "/bin/zsh", field(t, user, "shell").String())
	assert.Equal(t, "Alice", field(t, user, "comment").String())

	requireOK(t, um.Call("deleteUser", params("username", "alice")))
	assert.True(t, um.Call("getUser", params("username", "alice")).IsNull())
	assert.True(t, um.Call("deleteUser", params("username", "alice")).IsError())
}

func TestGroupManager_Lifecycle(t *testing.T) {
	dir := newDir()
	gm := NewGroupManager("GroupManager", dir)
	um := NewUserManager("UserManager", dir)

	added := gm.Call("addGroup", params("groupname", "ops"))
	requireOK(t, added)
	assert.True(t, binding.Equal(binding.Int(1000), field(t, added, "gid")))

	requireOK(t, um.Call("addUser", params("username", "alice", "password", "pw", "groups", []string{"ops"})))
	group := gm.Call("getGroup", params("groupname", "ops"))
	assert.True(t, binding.Equal(binding.Array(binding.String("alice")), field(t, group, "members")))

	renamed := gm.Call("modifyGroup", params("groupname", "ops", "newGroupname", "sre"))
	requireOK(t, renamed)
	assert.Equal(t, "sre", field(t, field(t, renamed, "group"), "groupname").String())
	user := um.Call("getUser", params("username", "alice"))
	assert.True(t, binding.Equal(binding.Array(binding.String("sre")), field(t, user, "groups")))
	assert.True(t, gm.Call("getGroup", params("groupname", "ops")).IsNull())

	requireOK(t, gm.Call("deleteGroup", params("groupname", "sre")))
	user = um.Call("getUser", params("username", "alice"))
	assert.True(t, binding.Equal(binding.Array(), field(t, user, "groups")))

	list, _ := gm.Call("listGroups", nil).AsArray()
	assert.Empty(t, list)
}

func TestGroupManager_RenameCollision(t *testing.T) {
	gm := NewGroupManager("GroupManager", newDir())
	requireOK(t, gm.Call("addGroup", params("groupname", "a")))
	requireOK(t, gm.Call("addGroup", params("groupname", "b")))
	out := gm.Call("modifyGroup", params("groupname", "a", "newGroupname", "b"))
	assert.True(t, out.IsError())
}

func TestPermissionManager(t *testing.T) {
	dir := newDir()
	pm := NewPermissionManager("PermissionManager", dir)

	requireOK(t, pm.Call("setFilePermission", params("path", "/srv/app", "mode", "0750", "recursive", true)))
	requireOK(t, pm.Call("setFileOwner", params("path", "/srv/app", "owner", "alice", "group", "ops")))
	requireOK(t, pm.Call("setSELinuxContext", params("path", "/srv/app", "context", "httpd_sys_content_t")))
	requireOK(t, pm.Call("setACL", params("path", "/srv/app", "entries", []any{
		map[string]any{"type": "user", "name": "bob", "permissions": "r-x"},
	})))

	acl := pm.Call("getACL", params("path", "/srv/app"))
	assert.Equal(t, "0750", field(t, acl, "mode").String())
	assert.Equal(t, "alice", field(t, acl, "owner").String())
	assert.Equal(t, "ops", field(t, acl, "group").String())
	assert.Equal(t, "httpd_sys_content_t", field(t, acl, "selinux").String())
	entries, _ := field(t, acl, "entries").AsArray()
	require.Len(t, entries, 1)
	assert.Equal(t, "r-x", field(t, entries[0], "permissions").String())

	policy, ok := dir.Policy("/srv/app")
	require.True(t, ok)
	assert.True(t, policy.ModeRecursive, "a later non-recursive setter must not clear it")
	assert.False(t, policy.OwnerRecursive)
	assert.False(t, policy.ACLRecursive)
	assert.False(t, policy.SELinuxRecursive)

	rec := field(t, acl, "recursive")
	assert.True(t, binding.Equal(binding.Object(map[string]binding.Value{
		"mode":    binding.Bool(true),
		"owner":   binding.Bool(false),
		"acl":     binding.Bool(false),
		"selinux": binding.Bool(false),
	}), rec), rec.String())

	requireOK(t, pm.Call("setACL", params("path", "/srv/app", "recursive", true, "entries", []any{})))
	policy, _ = dir.Policy("/srv/app")
	assert.True(t, policy.ModeRecursive)
	assert.True(t, policy.ACLRecursive)

	empty := pm.Call("getACL", params("path", "/nowhere"))
	_, hasMode := empty.Get("mode")
	assert.False(t, hasMode)
}

func TestPermissionManager_Validation(t *testing.T) {
	pm := NewPermissionManager("PermissionManager", newDir())
	assert.True(t, pm.Call("setFilePermission", params("path", "/x", "mode", "999")).IsError())
	assert.True(t, pm.Call("setFilePermission", params("path", "/x", "mode", "17777")).IsError())

	msg, _ := pm.Call("setFileOwner", params("path", "/x")).ErrorMessage()
	assert.Equal(t, "owner is required", msg)

	bad := pm.Call("setACL", params("path", "/x", "entries", []any{
		map[string]any{"type": "world", "permissions": "r"},
	}))
	assert.True(t, bad.IsError())
	bad = pm.Call("setACL", params("path", "/x", "entries", []any{
		map[string]any{"type": "user", "permissions": "rwz"},
	}))
	assert.True(t, bad.IsError())
}

func TestSudoManager(t *testing.T) {
	dir := newDir()
	sm := NewSudoManager("SudoManager", dir)

	msg, _ := sm.Call("addRule", params("commands", []string{"ls"})).ErrorMessage()
	assert.Equal(t, "Either user or group is required", msg)

	out := sm.Call("addRule", params("user", "alice"))
	requireOK(t, out)
	rule := field(t, out, "rule")
	assert.True(t, binding.Equal(binding.Array(binding.String("ALL")), field(t, rule, "commands")))
	assert.Equal(t, "root", field(t, rule, "runAs").String())

	requireOK(t, sm.Call("addRule", params("group", "admins", "commands", []string{"/bin/ls", "/bin/cat"}, "noPassword", true)))

	rules, _ := sm.Call("listRules", nil).AsArray()
	require.Len(t, rules, 2)
	assert.Equal(t, "admins", field(t, rules[1], "group").String())

	removed := sm.Call("removeRule", params("user", "%admins", "commands", []string{"/bin/ls"}))
	assert.True(t, binding.Equal(binding.Bool(true), field(t, removed, "removed")))
	assert.Equal(t, []string{"/bin/cat"}, dir.Rules()[1].Commands)

	removed = sm.Call("removeRule", params("user", "nobody"))
	assert.True(t, binding.Equal(binding.Bool(false), field(t, removed, "removed")))
}

func TestDirectory_Errors(t *testing.T) {
	dir := newDir()
	_, err := dir.UpdateUser("ghost", func(*User) error { return nil })
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = dir.AddGroup(Group{Name: "g"})
	require.NoError(t, err)
	_, err = dir.AddGroup(Group{Name: "g"})
	assert.True(t, errors.Is(err, ErrExists))
}
