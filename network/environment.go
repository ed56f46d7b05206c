package network

import "sort"

// EnvironmentClass tells whether a network is a local development chain or a live one.
type EnvironmentClass int

const (
	Development EnvironmentClass = iota
	Live
)

// Development network names
const (
	Hardhat   = "hardhat"
	Localhost = "localhost"
)

var developmentChains = map[string]struct{}{
	Hardhat:   {},
	Localhost: {},
}

func (c EnvironmentClass) String() string {
	switch c {
	case Development:
		return "development"
	case Live:
		return "live"
	default:
		return "unknown"
	}
}

// IsDevelopment reports whether name is one of the development chains.
func IsDevelopment(name string) bool {
	_, ok := developmentChains[name]
	return ok
}

// Classify maps a network name to its environment class.
func Classify(name string) EnvironmentClass {
	if IsDevelopment(name) {
		return Development
	}
	return Live
}

// DevelopmentChains returns the sorted development network names.
func DevelopmentChains() []string {
	names := make([]string, 0, len(developmentChains))
	for name := range developmentChains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
