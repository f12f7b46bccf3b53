// Package registry provides a generic thread-safe registry for values
// indexed by key.
//
// Registries hold named factories, such as the search and model providers
// selectable from the command line:
//
//	providers := registry.New[string, SearchFactory]()
//	providers.MustRegister("tavily", newTavily)
//	factory, err := providers.Lookup(name)
package registry
