package tools

import (
	"context"
	"testing"

	"github.com/harunnryd/tanya/pkg/errorsx"
	"github.com/harunnryd/tanya/pkg/llm"
)

func newDefaultRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewDefault(nil)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func TestDefaultRegistryOrder(t *testing.T) {
	reg := newDefaultRegistry(t)
	got := reg.Tools()
	want := []string{ToolCalculator, ToolCurrentWeather, ToolCurrentDateTime}
	if len(got) != len(want) {
		t.Fatalf("expected %d tools, got %d", len(want), len(got))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("tool %d: expected %s, got %s", i, name, got[i].Name)
		}
	}
}

func TestDescriptorsEmptySelection(t *testing.T) {
	reg := newDefaultRegistry(t)
	for _, selected := range [][]string{nil, {}, {"", "  "}} {
		descriptors, err := reg.Descriptors(selected)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(descriptors) != 0 {
			t.Fatalf("expected no descriptors, got %d", len(descriptors))
		}
	}
}

func TestDescriptorsSingleSelection(t *testing.T) {
	reg := newDefaultRegistry(t)
	descriptors, err := reg.Descriptors([]string{"calculator"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(descriptors) != 1 {
		t.Fatalf("expected exactly one descriptor, got %d", len(descriptors))
	}
	desc := descriptors[0]
	if desc.Name != ToolCalculator {
		t.Fatalf("unexpected name: %s", desc.Name)
	}
	if desc.Description == "" {
		t.Fatal("descriptor has no description")
	}
	required, ok := desc.Schema["required"].([]string)
	if !ok || len(required) != 1 || required[0] != "expression" {
		t.Fatalf("unexpected required fields: %v", desc.Schema["required"])
	}
}

func TestDescriptorsKeepRegistryOrder(t *testing.T) {
	reg := newDefaultRegistry(t)
	descriptors, err := reg.Descriptors([]string{"current_datetime", "CALCULATOR", "calculator"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(descriptors) != 2 {
		t.Fatalf("expected duplicate-free pair, got %d descriptors", len(descriptors))
	}
	if descriptors[0].Name != ToolCalculator || descriptors[1].Name != ToolCurrentDateTime {
		t.Fatalf("selection order leaked into output: %s, %s", descriptors[0].Name, descriptors[1].Name)
	}
}

func TestDescriptorsUnknownName(t *testing.T) {
	reg := newDefaultRegistry(t)
	_, err := reg.Descriptors([]string{"calculator", "sky_scanner"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsUnknownTool(err) {
		t.Fatalf("expected unknown tool error, got %v", err)
	}
}

func TestHandleToolUnknown(t *testing.T) {
	reg := newDefaultRegistry(t)
	_, err := reg.HandleTool(context.Background(), "sky_scanner", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsUnknownTool(err) {
		t.Fatalf("expected unknown tool error, got %v", err)
	}
	if !errorsx.HasReason(err, errorsx.ReasonToolUnknown) {
		t.Fatalf("expected tool_unknown reason, got %v", err)
	}
}

func TestRegisterReplacesInPlace(t *testing.T) {
	reg := NewRegistry()
	reg.Register(llm.Tool{Name: "echo"}, func(context.Context, map[string]any) (string, error) {
		return "first", nil
	})
	reg.Register(llm.Tool{Name: "shout"}, func(context.Context, map[string]any) (string, error) {
		return "second", nil
	})
	reg.Register(llm.Tool{Name: "Echo", Description: "replaced"}, func(context.Context, map[string]any) (string, error) {
		return "third", nil
	})

	registered := reg.Tools()
	if len(registered) != 2 || registered[0].Name != "echo" || registered[1].Name != "shout" {
		t.Fatalf("unexpected registry order: %+v", registered)
	}
	if registered[0].Description != "replaced" {
		t.Fatalf("descriptor was not replaced: %+v", registered[0])
	}
	out, err := reg.HandleTool(context.Background(), "echo", nil)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if out != "third" {
		t.Fatalf("expected replaced handler, got %q", out)
	}
}
