package codebase

import (
	"encoding/json"
	"os"
)

// StateParameters describes one submodule of a state module: the
// parameter names its state function accepts and its docstring.
type StateParameters struct {
	Parameters    []string `json:"parameters"`
	Documentation string   `json:"docs"`
}

// StateNameCompletion provides name, submodule and parameter completion
// for one state module, e.g. file with its managed, absent, symlink
// submodules.
type StateNameCompletion struct {
	StateName  string                     `json:"-"`
	StateDocs  string                     `json:"docs"`
	Submodules map[string]StateParameters `json:"submodules"`
}

// Completion is one completion candidate with its optional documentation.
type Completion struct {
	Label string
	Docs  string
}

// ProvideNameCompletion returns the module name itself, documented with
// the module's docstring.
func (c *StateNameCompletion) ProvideNameCompletion() []Completion {
	return []Completion{{Label: c.StateName, Docs: c.StateDocs}}
}

// ProvideSubnameCompletion returns every submodule of the state together
// with its documentation.
func (c *StateNameCompletion) ProvideSubnameCompletion() []Completion {
	completions := make([]Completion, 0, len(c.Submodules))
	for name, params := range c.Submodules {
		completions = append(completions, Completion{Label: name, Docs: params.Documentation})
	}
	return completions
}

// ProvideParamCompletion returns the parameter names of one submodule.
func (c *StateNameCompletion) ProvideParamCompletion(subname string) []string {
	params, ok := c.Submodules[subname]
	if !ok {
		return nil
	}
	return params.Parameters
}

// LoadCompletions reads the state module metadata dumped by a Salt
// master, keyed by module name.
func LoadCompletions(path string) (map[string]*StateNameCompletion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCompletions(data)
}

func ParseCompletions(data []byte) (map[string]*StateNameCompletion, error) {
	completions := make(map[string]*StateNameCompletion)
	if err := json.Unmarshal(data, &completions); err != nil {
		return nil, err
	}
	for name, completion := range completions {
		completion.StateName = name
	}
	return completions, nil
}
