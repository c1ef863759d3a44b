// Package core contains canonical signal-relay domain contracts, entities,
// and routing logic. Lower-level adapters must depend on this package; core
// must not depend on provider-specific or transport-specific adapters.
package core
