package types

// ContainerDescriptor is the reverse edge from a contained object to its
// structural parent: the container ID and the containing feature Name.
type ContainerDescriptor struct {
	ID   ID     `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// ClassDescriptor is the type tag persisted per object. Name and URI
// identify the type; Abstract and Supertypes are recorded when the type is
// first registered so polymorphic instance queries can be answered without a
// schema registry.
type ClassDescriptor struct {
	Name       string            `json:"name" yaml:"name"`
	URI        string            `json:"uri" yaml:"uri"`
	Abstract   bool              `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Supertypes []ClassDescriptor `json:"supertypes,omitempty" yaml:"supertypes,omitempty"`
}

// ClassOf builds a concrete ClassDescriptor with the given supertypes.
func ClassOf(name, uri string, supertypes ...ClassDescriptor) ClassDescriptor {
	return ClassDescriptor{Name: name, URI: uri, Supertypes: supertypes}
}

// Key returns the identity of the type, name@uri.
func (c ClassDescriptor) Key() string {
	return c.Name + "@" + c.URI
}

// Equal compares type identity only.
func (c ClassDescriptor) Equal(o ClassDescriptor) bool {
	return c.Name == o.Name && c.URI == o.URI
}

// IsSubtypeOf reports whether c equals o or has o among its transitive
// supertypes.
func (c ClassDescriptor) IsSubtypeOf(o ClassDescriptor) bool {
	if c.Equal(o) {
		return true
	}
	for _, s := range c.Supertypes {
		if s.IsSubtypeOf(o) {
			return true
		}
	}
	return false
}

func (c ClassDescriptor) String() string {
	return c.Key()
}
