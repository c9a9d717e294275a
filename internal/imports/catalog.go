package imports

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cryguy/raven/bindings/db"
	"github.com/cryguy/raven/bindings/identity"
	"github.com/cryguy/raven/bindings/kv"
	"github.com/cryguy/raven/bindings/utils"
	"github.com/cryguy/raven/internal/binding"
	"github.com/cryguy/raven/internal/core"
	"go.uber.org/zap"
)

// Module paths served by the default catalog.
const (
	ModuleKV       = "raven/kv"
	ModuleUtils    = "raven/utils"
	ModuleIdentity = "raven/identity"
	ModuleDB       = "raven/db"
)

var (
	ErrUnknownModule = errors.New("Unknown or unsupported module")
	ErrUnknownName   = errors.New("Unknown import")
)

// KV backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Options configures the resources the default catalog hands to bindings.
type Options struct {
	KVBackend string            // memory (default) or sqlite
	KVPath    string            // SQLite file for the sqlite backend
	DBPath    string            // SQLite file for raven/db
	Vars      map[string]string // plain values for the worker env
}

func (o Options) withDefaults() Options {
	if o.KVBackend == "" {
		o.KVBackend = BackendMemory
	}
	if o.KVPath == "" {
		o.KVPath = ":memory:"
	}
	if o.DBPath == "" {
		o.DBPath = ":memory:"
	}
	return o
}

// Factory builds the binding for imp, named imp.Local. Resources that must
// be shared between bindings of one load live on the Session.
type Factory func(s *Session, imp Import) (binding.Binding, error)

// Module is one catalog entry. When Names is empty any imported name is
// accepted and becomes the binding's name; otherwise the imported name
// must be one of Names.
type Module struct {
	Path        string
	Names       []string
	DefaultName string // used when listing modules that accept any name
	New         Factory
}

func (m Module) accepts(name string) bool {
	if len(m.Names) == 0 {
		return true
	}
	for _, n := range m.Names {
		if n == name {
			return true
		}
	}
	return false
}

// Catalog maps module paths to binding factories.
type Catalog struct {
	opts    Options
	modules map[string]Module
}

// NewCatalog returns a catalog with the raven/ modules installed.
func NewCatalog(opts Options) *Catalog {
	c := &Catalog{opts: opts.withDefaults(), modules: make(map[string]Module)}
	c.Add(Module{Path: ModuleKV, DefaultName: "KV", New: newKV})
	c.Add(Module{Path: ModuleUtils, DefaultName: "UTILS", New: newUtils})
	c.Add(Module{
		Path:  ModuleIdentity,
		Names: []string{"UserManager", "GroupManager", "PermissionManager", "SudoManager"},
		New:   newIdentity,
	})
	c.Add(Module{Path: ModuleDB, DefaultName: "DB", New: newDB})
	return c
}

// Add installs or replaces a module.
func (c *Catalog) Add(m Module) {
	c.modules[m.Path] = m
}

// Options returns the catalog options with defaults applied.
func (c *Catalog) Options() Options { return c.opts }

// Module returns the entry for path.
func (c *Catalog) Module(path string) (Module, bool) {
	m, ok := c.modules[path]
	return m, ok
}

// Modules returns every entry ordered by path.
func (c *Catalog) Modules() []Module {
	out := make([]Module, 0, len(c.modules))
	for _, m := range c.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Describe instantiates every binding of every module in a throwaway
// session and returns them keyed by module path. Used for listings.
func (c *Catalog) Describe() (map[string][]binding.Binding, error) {
	s := newSession(c.opts)
	defer func() { _ = s.Close() }()
	out := make(map[string][]binding.Binding)
	for _, m := range c.Modules() {
		names := m.Names
		if len(names) == 0 {
			names = []string{m.DefaultName}
		}
		for _, n := range names {
			b, err := m.New(s, Import{Name: n, Local: n, Module: m.Path})
			if err != nil {
				return nil, fmt.Errorf("describing %s: %w", m.Path, err)
			}
			out[m.Path] = append(out[m.Path], b)
		}
	}
	return out, nil
}

// Resolution is the outcome of resolving one script's imports.
type Resolution struct {
	Registry *binding.Registry
	Imports  []Import
	session  *Session
}

// Close releases resources opened for the resolution's bindings.
func (r *Resolution) Close() error {
	if r == nil || r.session == nil {
		return nil
	}
	return r.session.Close()
}

// Resolve builds a fresh registry holding one binding per import, keyed by
// the import's local name; a name imported twice keeps its first binding.
// Resolution is all-or-nothing: on any error every resource opened so far is
// released and no registry is returned.
func (c *Catalog) Resolve(imports []Import) (*Resolution, error) {
	s := newSession(c.opts)
	reg := binding.NewRegistry()
	for _, imp := range imports {
		m, ok := c.modules[imp.Module]
		if !ok {
			_ = s.Close()
			return nil, fmt.Errorf("%w: '%s'", ErrUnknownModule, imp.Module)
		}
		if !m.accepts(imp.Name) {
			_ = s.Close()
			return nil, fmt.Errorf("%w: '%s' is not exported by '%s'", ErrUnknownName, imp.Name, imp.Module)
		}
		if reg.Contains(imp.Local) {
			continue
		}
		b, err := m.New(s, imp)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("creating %s from '%s': %w", imp.Local, imp.Module, err)
		}
		if m.Names != nil && imp.Local != imp.Name {
			core.Logger().Debug("aliased import",
				zap.String("name", imp.Name),
				zap.String("local", imp.Local))
		}
		reg.Register(imp.Local, b)
	}
	return &Resolution{Registry: reg, Imports: imports, session: s}, nil
}

// Session holds the resources shared by all bindings resolved for one load.
type Session struct {
	opts    Options
	dir     *identity.Directory
	kvStore kv.Store
	db      *db.Database
	closers []func() error
}

func newSession(opts Options) *Session {
	return &Session{opts: opts}
}

// Directory returns the identity directory shared by this load.
func (s *Session) Directory() *identity.Directory {
	if s.dir == nil {
		s.dir = identity.NewDirectory()
	}
	return s.dir
}

// KVStore returns the key-value store shared by this load.
func (s *Session) KVStore() (kv.Store, error) {
	if s.kvStore != nil {
		return s.kvStore, nil
	}
	switch s.opts.KVBackend {
	case BackendMemory:
		s.kvStore = kv.NewMemoryStore()
	case BackendSQLite:
		st, err := kv.OpenSQLite(s.opts.KVPath)
		if err != nil {
			return nil, err
		}
		s.kvStore = st
	default:
		return nil, fmt.Errorf("unknown KV backend %q", s.opts.KVBackend)
	}
	s.closers = append(s.closers, s.kvStore.Close)
	return s.kvStore, nil
}

// Database returns the SQLite database shared by this load.
func (s *Session) Database() (*db.Database, error) {
	if s.db != nil {
		return s.db, nil
	}
	d, err := db.Open(s.opts.DBPath)
	if err != nil {
		return nil, err
	}
	s.db = d
	s.closers = append(s.closers, d.Close)
	return d, nil
}

// Close releases everything the session opened, newest first.
func (s *Session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func newKV(s *Session, imp Import) (binding.Binding, error) {
	st, err := s.KVStore()
	if err != nil {
		return nil, err
	}
	return kv.New(imp.Local, st), nil
}

func newUtils(_ *Session, imp Import) (binding.Binding, error) {
	return utils.New(imp.Local), nil
}

func newDB(s *Session, imp Import) (binding.Binding, error) {
	d, err := s.Database()
	if err != nil {
		return nil, err
	}
	return db.New(imp.Local, d), nil
}

// newIdentity picks the manager by exported name and names it after the
// local name.
func newIdentity(s *Session, imp Import) (binding.Binding, error) {
	dir := s.Directory()
	switch imp.Name {
	case "UserManager":
		return identity.NewUserManager(imp.Local, dir), nil
	case "GroupManager":
		return identity.NewGroupManager(imp.Local, dir), nil
	case "PermissionManager":
		return identity.NewPermissionManager(imp.Local, dir), nil
	case "SudoManager":
		return identity.NewSudoManager(imp.Local, dir), nil
	}
	return nil, fmt.Errorf("%w: '%s'", ErrUnknownName, imp.Name)
}
