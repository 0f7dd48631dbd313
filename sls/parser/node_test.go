package parser

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIncludeNodeGetFile(t *testing.T) {
	top := t.TempDir()
	if err := os.MkdirAll(filepath.Join(top, "foo", "bar"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(top, "foo", "bar", "init.sls"), []byte("include: []"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(top, "web.sls"), []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"init file in directory", "foo.bar", filepath.Join(top, "foo", "bar", "init.sls")},
		{"plain sls file", "web", filepath.Join(top, "web.sls")},
		{"missing state", "no.such.state", ""},
		{"empty value", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			include := &IncludeNode{Value: tt.value}
			if got := include.GetFile(top); got != tt.want {
				t.Errorf("GetFile(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestIncludeNodeGetFileFromSibling(t *testing.T) {
	top := t.TempDir()
	if err := os.WriteFile(filepath.Join(top, "web.sls"), []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}
	// resolution from a file path anchors at its directory
	include := &IncludeNode{Value: "web"}
	if got, want := include.GetFile(filepath.Join(top, "other.sls")), filepath.Join(top, "web.sls"); got != want {
		t.Errorf("GetFile = %q, want %q", got, want)
	}
}

func TestStateNodeSetKeyConvertsIncludeAndExtend(t *testing.T) {
	tree := NewTree()
	state := tree.Add().(*StateNode)
	state.SetStart(Position{0, 0})
	got := state.SetKey("include")
	if _, ok := got.(*IncludesNode); !ok {
		t.Fatalf("SetKey(include) returned %T, want *IncludesNode", got)
	}
	if tree.Includes == nil {
		t.Errorf("tree.Includes = nil after conversion")
	}
	if len(tree.States) != 0 {
		t.Errorf("States = %d, want 0 after conversion", len(tree.States))
	}
	if tree.Includes.Start() == nil || *tree.Includes.Start() != (Position{0, 0}) {
		t.Errorf("converted node did not inherit start position")
	}

	state = tree.Add().(*StateNode)
	got = state.SetKey("extend")
	if _, ok := got.(*ExtendNode); !ok {
		t.Fatalf("SetKey(extend) returned %T, want *ExtendNode", got)
	}
	if tree.Extend == nil {
		t.Errorf("tree.Extend = nil after conversion")
	}
}

func TestStateNodeSetKeyPlainIdentifier(t *testing.T) {
	tree := NewTree()
	state := tree.Add().(*StateNode)
	got := state.SetKey("apache2")
	if got != Node(state) {
		t.Errorf("SetKey returned a different node for a plain identifier")
	}
	if state.Identifier != "apache2" {
		t.Errorf("Identifier = %q, want %q", state.Identifier, "apache2")
	}
}

// include under extend is a state ID like any other, not a conversion
func TestStateNodeSetKeyUnderExtend(t *testing.T) {
	extend := &ExtendNode{}
	state := extend.Add().(*StateNode)
	got := state.SetKey("include")
	if got != Node(state) {
		t.Errorf("SetKey converted a state under extend")
	}
	if state.Identifier != "include" {
		t.Errorf("Identifier = %q, want %q", state.Identifier, "include")
	}
}

func TestStateParameterSetKeyConvertsRequisite(t *testing.T) {
	call := &StateCallNode{}
	param := call.Add().(*StateParameterNode)
	param.SetStart(Position{4, 4})
	got := param.SetKey("require")
	requisites, ok := got.(*RequisitesNode)
	if !ok {
		t.Fatalf("SetKey(require) returned %T, want *RequisitesNode", got)
	}
	if requisites.Kind != "require" {
		t.Errorf("Kind = %q, want %q", requisites.Kind, "require")
	}
	if len(call.Parameters) != 0 {
		t.Errorf("Parameters = %d, want 0 after conversion", len(call.Parameters))
	}
	if len(call.Requisites) != 1 {
		t.Errorf("Requisites = %d, want 1 after conversion", len(call.Requisites))
	}
	if requisites.Start() == nil || *requisites.Start() != (Position{4, 4}) {
		t.Errorf("converted node did not inherit start position")
	}
}

func TestIsRequisiteKind(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"require", true},
		{"require_any", true},
		{"require_in", true},
		{"watch", true},
		{"watch_in", true},
		{"onchanges", true},
		{"listen_any", true},
		{"prereq", true},
		{"onfail_in", true},
		{"use", true},
		{"user", false},
		{"name", false},
		{"requires", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsRequisiteKind(tt.name); got != tt.want {
			t.Errorf("IsRequisiteKind(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestVisitDescendsMapNodes(t *testing.T) {
	tree := Build("jdoe:\n  user.present:\n    - shell: /bin/bash")
	var symbols []string
	tree.Visit(func(n Node) bool {
		symbols = append(symbols, n.Symbol())
		return true
	})
	want := []string{"T", "S", "C", "P"}
	if len(symbols) != len(want) {
		t.Fatalf("visited %v, want %v", symbols, want)
	}
	for i := range want {
		if symbols[i] != want[i] {
			t.Errorf("visit order %v, want %v", symbols, want)
			break
		}
	}
}

// positions inside an include list resolve to the list, not its entries
func TestIncludesNodeVisitIsShallow(t *testing.T) {
	tree := Build("include:\n  - foo.bar")
	var visited []string
	tree.Visit(func(n Node) bool {
		visited = append(visited, n.Symbol())
		return true
	})
	want := []string{"T", "I"}
	if len(visited) != len(want) || visited[0] != "T" || visited[1] != "I" {
		t.Errorf("visited %v, want %v", visited, want)
	}
}
