package identity

import (
	"strconv"
	"strings"

	"github.com/cryguy/raven/internal/binding"
)

// PermissionManager records desired file ownership and access policy. It
// never touches the host filesystem.
type PermissionManager struct{ manager }

var _ binding.Binding = (*PermissionManager)(nil)

// NewPermissionManager returns a PermissionManager named name writing to dir.
func NewPermissionManager(name string, dir *Directory) *PermissionManager {
	m := &PermissionManager{manager{name: name, dir: dir}}
	m.methods = []method{
		{desc: binding.Async("setFilePermission", 1), fn: m.setFilePermission},
		{desc: binding.Async("setFileOwner", 1), fn: m.setFileOwner},
		{desc: binding.Async("setACL", 1), fn: m.setACL},
		{desc: binding.Async("getACL", 1), fn: m.getACL},
		{desc: binding.Async("setSELinuxContext", 1), fn: m.setSELinuxContext},
	}
	return m
}

var aclTypes = map[string]bool{"user": true, "group": true, "other": true, "mask": true}

func validMode(mode string) bool {
	n, err := strconv.ParseUint(mode, 8, 32)
	return err == nil && n <= 0o7777
}

func validPermissions(perms string) bool {
	for _, c := range perms {
		if !strings.ContainsRune("rwx-", c) {
			return false
		}
	}
	return true
}

func parseACL(v binding.Value) ([]ACLEntry, binding.Value) {
	items, isArray := v.AsArray()
	if !isArray {
		return nil, binding.Error("entries is required")
	}
	entries := make([]ACLEntry, 0, len(items))
	for i, item := range items {
		fields, isObj := item.AsObject()
		if !isObj {
			return nil, binding.Errorf("entries[%d] must be an object", i)
		}
		p := binding.Params(fields)
		e := ACLEntry{
			Type:        p.OptString("type", ""),
			Name:        p.OptString("name", ""),
			Permissions: p.OptString("permissions", ""),
		}
		if !aclTypes[e.Type] {
			return nil, binding.Errorf("entries[%d]: invalid type %q", i, e.Type)
		}
		if !validPermissions(e.Permissions) {
			return nil, binding.Errorf("entries[%d]: invalid permissions %q", i, e.Permissions)
		}
		entries = append(entries, e)
	}
	return entries, binding.Null()
}

func pathResult(message, path string, recursive bool) binding.Value {
	return ok(message, map[string]binding.Value{
		"path":      binding.String(path),
		"recursive": binding.Bool(recursive),
	})
}

func (m *PermissionManager) setFilePermission(p binding.Params) binding.Value {
	path, errv := p.String("path")
	if errv.IsError() {
		return errv
	}
	mode, errv := p.String("mode")
	if errv.IsError() {
		return errv
	}
	if !validMode(mode) {
		return binding.Errorf("invalid mode %q", mode)
	}
	recursive := p.OptBool("recursive", false)
	m.dir.UpdatePolicy(path, func(fp *FilePolicy) {
		fp.Mode = mode
		fp.ModeRecursive = recursive
	})
	return pathResult("File permission set successfully", path, recursive)
}

func (m *PermissionManager) setFileOwner(p binding.Params) binding.Value {
	path, errv := p.String("path")
	if errv.IsError() {
		return errv
	}
	owner, errv := p.String("owner")
	if errv.IsError() {
		return errv
	}
	recursive := p.OptBool("recursive", false)
	m.dir.UpdatePolicy(path, func(fp *FilePolicy) {
		fp.Owner = owner
		fp.Group = p.OptString("group", fp.Group)
		fp.OwnerRecursive = recursive
	})
	return pathResult("File owner set successfully", path, recursive)
}

func (m *PermissionManager) setACL(p binding.Params) binding.Value {
	path, errv := p.String("path")
	if errv.IsError() {
		return errv
	}
	entries, errv := parseACL(p["entries"])
	if errv.IsError() {
		return errv
	}
	recursive := p.OptBool("recursive", false)
	m.dir.UpdatePolicy(path, func(fp *FilePolicy) {
		fp.ACL = entries
		fp.ACLRecursive = recursive
	})
	return pathResult("ACL set successfully", path, recursive)
}

func (m *PermissionManager) getACL(p binding.Params) binding.Value {
	path, errv := p.String("path")
	if errv.IsError() {
		return errv
	}
	fp, _ := m.dir.Policy(path)
	entries := make([]binding.Value, len(fp.ACL))
	for i, e := range fp.ACL {
		entries[i] = binding.Object(map[string]binding.Value{
			"type":        binding.String(e.Type),
			"name":        binding.String(e.Name),
			"permissions": binding.String(e.Permissions),
		})
	}
	out := map[string]binding.Value{
		"path":    binding.String(path),
		"entries": binding.Array(entries...),
	}
	for key, val := range map[string]string{
		"mode":    fp.Mode,
		"owner":   fp.Owner,
		"group":   fp.Group,
		"selinux": fp.SELinux,
	} {
		if val != "" {
			out[key] = binding.String(val)
		}
	}
	out["recursive"] = binding.Object(map[string]binding.Value{
		"mode":    binding.Bool(fp.ModeRecursive),
		"owner":   binding.Bool(fp.OwnerRecursive),
		"acl":     binding.Bool(fp.ACLRecursive),
		"selinux": binding.Bool(fp.SELinuxRecursive),
	})
	return binding.Object(out)
}

func (m *PermissionManager) setSELinuxContext(p binding.Params) binding.Value {
	path, errv := p.String("path")
	if errv.IsError() {
		return errv
	}
	context, errv := p.String("context")
	if errv.IsError() {
		return errv
	}
	recursive := p.OptBool("recursive", false)
	m.dir.UpdatePolicy(path, func(fp *FilePolicy) {
		fp.SELinux = context
		fp.SELinuxRecursive = recursive
	})
	return pathResult("SELinux context set successfully", path, recursive)
}
