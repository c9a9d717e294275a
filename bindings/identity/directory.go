// Package identity implements the UserManager, GroupManager,
// PermissionManager and SudoManager capabilities. All four record desired
// state in a shared in-memory Directory; nothing here touches the host's
// real accounts or files.
package identity

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// firstID is where automatic uid and gid allocation starts.
const firstID = 1000

var (
	ErrExists   = errors.New("already exists")
	ErrNotFound = errors.New("not found")
)

// User is one account record.
type User struct {
	ID           string
	Username     string
	UID          int64
	GID          int64
	Home         string
	Shell        string
	Comment      string
	Groups       []string
	Locked       bool
	PasswordHash []byte
	Created      time.Time
	Updated      time.Time
}

// Group is one group record.
type Group struct {
	ID      string
	Name    string
	GID     int64
	Members []string
}

// ACLEntry is one access-control entry on a path.
type ACLEntry struct {
	Type        string // user, group, other or mask
	Name        string
	Permissions string // subset of "rwx"
}

// FilePolicy is the desired ownership and access state for one path.
// Each attribute remembers whether it was set recursively.
type FilePolicy struct {
	Path             string
	Mode             string
	Owner            string
	Group            string
	ACL              []ACLEntry
	SELinux          string
	ModeRecursive    bool
	OwnerRecursive   bool
	ACLRecursive     bool
	SELinuxRecursive bool
}

// SudoRule grants a user ("alice") or group ("%admins") commands.
type SudoRule struct {
	Target     string
	Hosts      []string
	Commands   []string
	RunAs      string
	NoPassword bool
}

// Directory is the shared store behind the identity bindings. It is safe
// for concurrent use.
type Directory struct {
	mu         sync.RWMutex
	users      map[string]*User
	groups     map[string]*Group
	policies   map[string]*FilePolicy
	rules      []*SudoRule
	bcryptCost int
	now        func() time.Time
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		users:      make(map[string]*User),
		groups:     make(map[string]*Group),
		policies:   make(map[string]*FilePolicy),
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// SetBcryptCost changes the hashing cost for passwords set afterwards.
func (d *Directory) SetBcryptCost(cost int) {
	d.mu.Lock()
	d.bcryptCost = cost
	d.mu.Unlock()
}

func (d *Directory) hash(password string) ([]byte, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), d.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	return h, nil
}

// nextUID returns the lowest free uid at or above firstID. Callers hold mu.
func (d *Directory) nextUID() int64 {
	used := make(map[int64]bool, len(d.users))
	for _, u := range d.users {
		used[u.UID] = true
	}
	id := int64(firstID)
	for used[id] {
		id++
	}
	return id
}

// nextGID returns the lowest free gid at or above firstID. Callers hold mu.
func (d *Directory) nextGID() int64 {
	used := make(map[int64]bool, len(d.groups))
	for _, g := range d.groups {
		used[g.GID] = true
	}
	id := int64(firstID)
	for used[id] {
		id++
	}
	return id
}

// AddUser stores u, hashing password. Zero UID and GID are allocated and an
// empty Home defaults to /home/<username>.
func (d *Directory) AddUser(u User, password string) (User, error) {
	hash, err := d.hash(password)
	if err != nil {
		return User{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[u.Username]; ok {
		return User{}, fmt.Errorf("user %q %w", u.Username, ErrExists)
	}
	if u.UID == 0 {
		u.UID = d.nextUID()
	}
	if u.GID == 0 {
		u.GID = u.UID
	}
	if u.Home == "" {
		u.Home = "/home/" + u.Username
	}
	if u.Shell == "" {
		u.Shell = "/bin/bash"
	}
	u.ID = uuid.NewString()
	u.PasswordHash = hash
	u.Created = d.now()
	u.Updated = u.Created
	stored := u
	d.users[u.Username] = &stored
	for _, g := range u.Groups {
		d.addMemberLocked(g, u.Username)
	}
	return stored, nil
}

// addMemberLocked adds username to group if the group exists.
func (d *Directory) addMemberLocked(group, username string) {
	g, ok := d.groups[group]
	if !ok {
		return
	}
	for _, m := range g.Members {
		if m == username {
			return
		}
	}
	g.Members = append(g.Members, username)
}

// DeleteUser removes username and its group memberships.
func (d *Directory) DeleteUser(username string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[username]; !ok {
		return fmt.Errorf("user %q %w", username, ErrNotFound)
	}
	delete(d.users, username)
	for _, g := range d.groups {
		g.Members = without(g.Members, username)
	}
	return nil
}

// UpdateUser applies fn to the stored record of username.
func (d *Directory) UpdateUser(username string, fn func(u *User) error) (User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[username]
	if !ok {
		return User{}, fmt.Errorf("user %q %w", username, ErrNotFound)
	}
	next := *u
	if err := fn(&next); err != nil {
		return User{}, err
	}
	next.Updated = d.now()
	*u = next
	for _, g := range u.Groups {
		d.addMemberLocked(g, username)
	}
	return next, nil
}

// SetPassword replaces the password hash of username.
func (d *Directory) SetPassword(username, password string) error {
	hash, err := d.hash(password)
	if err != nil {
		return err
	}
	_, err = d.UpdateUser(username, func(u *User) error {
		u.PasswordHash = hash
		return nil
	})
	return err
}

// VerifyPassword reports whether password matches and the account is not
// locked.
func (d *Directory) VerifyPassword(username, password string) (bool, error) {
	d.mu.RLock()
	u, ok := d.users[username]
	var hash []byte
	var locked bool
	if ok {
		hash, locked = u.PasswordHash, u.Locked
	}
	d.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("user %q %w", username, ErrNotFound)
	}
	if locked {
		return false, nil
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil, nil
}

// User returns a copy of the record for username.
func (d *Directory) User(username string) (User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[username]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// Users returns every user ordered by uid.
func (d *Directory) Users() []User {
	d.mu.RLock()
	out := make([]User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, *u)
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out
}

// AddGroup stores g. A zero GID is allocated.
func (d *Directory) AddGroup(g Group) (Group, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.groups[g.Name]; ok {
		return Group{}, fmt.Errorf("group %q %w", g.Name, ErrExists)
	}
	if g.GID == 0 {
		g.GID = d.nextGID()
	}
	g.ID = uuid.NewString()
	g.Members = append([]string{}, g.Members...)
	stored := g
	d.groups[g.Name] = &stored
	return stored, nil
}

// DeleteGroup removes name.
func (d *Directory) DeleteGroup(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.groups[name]; !ok {
		return fmt.Errorf("group %q %w", name, ErrNotFound)
	}
	delete(d.groups, name)
	for _, u := range d.users {
		u.Groups = without(u.Groups, name)
	}
	return nil
}

// UpdateGroup applies fn to group name. Renames are reflected in user
// group lists.
func (d *Directory) UpdateGroup(name string, fn func(g *Group) error) (Group, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	g, ok := d.groups[name]
	if !ok {
		return Group{}, fmt.Errorf("group %q %w", name, ErrNotFound)
	}
	next := *g
	if err := fn(&next); err != nil {
		return Group{}, err
	}
	if next.Name != name {
		if _, taken := d.groups[next.Name]; taken {
			return Group{}, fmt.Errorf("group %q %w", next.Name, ErrExists)
		}
		delete(d.groups, name)
		for _, u := range d.users {
			for i, ug := range u.Groups {
				if ug == name {
					u.Groups[i] = next.Name
				}
			}
		}
	}
	stored := next
	d.groups[next.Name] = &stored
	return stored, nil
}

// Group returns a copy of group name.
func (d *Directory) Group(name string) (Group, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	g, ok := d.groups[name]
	if !ok {
		return Group{}, false
	}
	return *g, true
}

// Groups returns every group ordered by gid.
func (d *Directory) Groups() []Group {
	d.mu.RLock()
	out := make([]Group, 0, len(d.groups))
	for _, g := range d.groups {
		out = append(out, *g)
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].GID < out[j].GID })
	return out
}

// UpdatePolicy applies fn to the policy for path, creating it if needed.
func (d *Directory) UpdatePolicy(path string, fn func(p *FilePolicy)) FilePolicy {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.policies[path]
	if !ok {
		p = &FilePolicy{Path: path}
		d.policies[path] = p
	}
	fn(p)
	return *p
}

// Policy returns the recorded policy for path.
func (d *Directory) Policy(path string) (FilePolicy, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.policies[path]
	if !ok {
		return FilePolicy{}, false
	}
	return *p, true
}

// AddRule appends a sudo rule, replacing an existing rule for the same
// target.
func (d *Directory) AddRule(r SudoRule) SudoRule {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, existing := range d.rules {
		if existing.Target == r.Target {
			d.rules[i] = &r
			return r
		}
	}
	d.rules = append(d.rules, &r)
	return r
}

// RemoveRule drops commands from the rule for target, or the whole rule
// when commands is empty. It reports whether anything changed.
func (d *Directory) RemoveRule(target string, commands []string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, r := range d.rules {
		if r.Target != target {
			continue
		}
		if len(commands) == 0 {
			d.rules = append(d.rules[:i], d.rules[i+1:]...)
			return true
		}
		before := len(r.Commands)
		for _, c := range commands {
			r.Commands = without(r.Commands, c)
		}
		if len(r.Commands) == 0 {
			d.rules = append(d.rules[:i], d.rules[i+1:]...)
		}
		return len(r.Commands) != before
	}
	return false
}

// Rules returns the sudo rules in insertion order.
func (d *Directory) Rules() []SudoRule {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]SudoRule, len(d.rules))
	for i, r := range d.rules {
		out[i] = *r
	}
	return out
}

func without(list []string, item string) []string {
	out := list[:0:0]
	for _, s := range list {
		if s != item {
			out = append(out, s)
		}
	}
	return out
}
