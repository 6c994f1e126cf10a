package source

// Creator defines the init structure for a source
type Creator func() Source

// sources stores a map of sources by name
var sources = map[string]Creator{}

// Add should be called in init func of each source
func Add(name string, creator Creator) {
	sources[name] = creator
}

// GetSource looks up a source by name and then init's it with the provided
// Config.  returns ErrNotFound if the provided name was not registered.
func GetSource(name string, conf Config) (Source, error) {
	creator, ok := sources[name]
	if ok {
		s := creator()
		err := conf.Construct(s)
		return s, err
	}
	return nil, ErrNotFound{name}
}

// RegisteredSources returns a slice of the names of every source registered.
func RegisteredSources() []string {
	all := make([]string, 0)
	for i := range sources {
		all = append(all, i)
	}
	return all
}

// Sources returns a non-initialized source per name and is best used for
// doing assertions to see if the source supports other interfaces
func Sources() map[string]Source {
	all := make(map[string]Source)
	for name, c := range sources {
		all[name] = c()
	}
	return all
}
