// Package license provides the capability gate consulted by advanced query
// features. Components degrade to pass-through behavior when the gate is
// closed; a closed gate is never an error.
package license

// Gate reports which advanced capabilities are available to the caller.
type Gate interface {
	// HasAdvancedQueryFeatures reports whether synonym expansion, autocomplete
	// and query analytics are enabled for this installation.
	HasAdvancedQueryFeatures() bool
}

// StaticGate is a Gate with a fixed answer, used by the CLI and by tests.
type StaticGate struct {
	Advanced bool
}

// HasAdvancedQueryFeatures implements Gate.
func (g StaticGate) HasAdvancedQueryFeatures() bool {
	return g.Advanced
}

// Open returns a gate with all capabilities enabled.
func Open() Gate {
	return StaticGate{Advanced: true}
}

// Closed returns a gate with all capabilities disabled.
func Closed() Gate {
	return StaticGate{Advanced: false}
}
