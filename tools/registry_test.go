package tools

import (
	"context"
	"testing"
)

type stubTool struct {
	name string
}

func (t *stubTool) Name() string            { return t.name }
func (t *stubTool) Description() string     { return "stub " + t.name }
func (t *stubTool) ParameterSchema() string { return `{"type":"object"}` }
func (t *stubTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	return "", nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(&stubTool{name: "beta"})
	r.Register(&stubTool{name: "alpha"})

	if _, ok := r.Get("alpha"); !ok {
		t.Fatal("alpha should be registered")
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatal("missing tool should not resolve")
	}
}

func TestRegistryAllSorted(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(&stubTool{name: "web_search"})
	r.Register(&stubTool{name: "kb_search"})

	all := r.All()
	if len(all) != 2 || all[0].Name() != "kb_search" || all[1].Name() != "web_search" {
		t.Fatalf("unexpected order: %v", []string{all[0].Name(), all[1].Name()})
	}
}

func TestRegistryDeclarations(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(&stubTool{name: "kb_search"})

	decls := r.Declarations()
	if len(decls) != 1 {
		t.Fatalf("got %d declarations", len(decls))
	}
	d := decls[0]
	if d.Name != "kb_search" || d.Description == "" || d.ParametersJSON == "" {
		t.Fatalf("incomplete declaration: %+v", d)
	}
}
