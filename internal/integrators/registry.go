package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/stiffsim/internal/dynamo"
)

var families = map[string]Factory{
	"bdf":    NewBDF,
	"dopri5": NewDopri5,
	"rk4":    NewRK4,
	"euler":  NewEuler,
}

// Stiff reports whether the named family is implicit.
func Stiff(name string) bool {
	return name == "bdf"
}

func Lookup(name string) (Factory, error) {
	f, ok := families[name]
	if !ok {
		return nil, fmt.Errorf("unknown solver %q: %w", name, dynamo.ErrParameterBounds)
	}
	return f, nil
}

func Names() []string {
	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
