package main

import (
	"context"
	"strings"
	"testing"

	"github.com/hivellm/tmlc/internal/mir"
	"github.com/hivellm/tmlc/internal/pipeline"
	"github.com/hivellm/tmlc/internal/tenv"
)

// TestSamplesThroughPipeline exercises every embedded sample through the
// full check-to-lower pipeline, mirroring the teacher's source-to-
// dictionary-elaboration integration test shape.
func TestSamplesThroughPipeline(t *testing.T) {
	tests := []struct {
		name        string
		sample      string
		expectError bool
		description string
	}{
		{
			name:        "monomorphic add",
			sample:      "add",
			expectError: false,
			description: "a plain function lowers straight to one MIR function",
		},
		{
			name:        "generic identity instantiated from call site",
			sample:      "generics",
			expectError: false,
			description: "identity[T] is discovered and instantiated as identity__I32",
		},
		{
			name:        "ill-typed body surfaces a diagnostic",
			sample:      "typeerror",
			expectError: true,
			description: "bad() -> Bool returning an int literal is a type error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, ok := samples[tt.sample]
			if !ok {
				t.Fatalf("unknown sample %q", tt.sample)
			}

			env := tenv.New()
			res, err := pipeline.CheckAndLower(context.Background(), env, file)
			if err != nil {
				t.Fatalf("CheckAndLower returned an error: %v", err)
			}

			if tt.expectError {
				if len(res.Diagnostics) == 0 {
					t.Fatalf("expected diagnostics for %s, got none", tt.sample)
				}
				t.Logf("%s: %s (%d diagnostic(s))", tt.description, tt.sample, len(res.Diagnostics))
				return
			}

			if len(res.Diagnostics) != 0 {
				t.Fatalf("unexpected diagnostics for %s: %v", tt.sample, res.Diagnostics)
			}
			if res.Module == nil {
				t.Fatalf("expected a lowered module for %s", tt.sample)
			}
			if len(res.Module.Functions) == 0 {
				t.Fatalf("expected at least one lowered function for %s", tt.sample)
			}
			t.Logf("%s: %s (%d function(s))", tt.description, tt.sample, len(res.Module.Functions))
		})
	}
}

// TestGenericsSampleInstantiatesIdentity checks the specific mangled name
// the generics sample's call site is expected to discover and lower.
func TestGenericsSampleInstantiatesIdentity(t *testing.T) {
	env := tenv.New()
	res, err := pipeline.CheckAndLower(context.Background(), env, samples["generics"])
	if err != nil {
		t.Fatalf("CheckAndLower returned an error: %v", err)
	}
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}

	found := false
	for _, fn := range res.Module.Functions {
		if strings.Contains(fn.Name, "identity") && strings.Contains(fn.Name, "__") {
			found = true
			t.Logf("found monomorphized instance %s", fn.Name)
		}
	}
	if !found {
		t.Fatalf("expected a monomorphized identity instance among: %v", functionNames(res.Module))
	}
}

func functionNames(m *mir.Module) []string {
	names := make([]string, len(m.Functions))
	for i, fn := range m.Functions {
		names[i] = fn.Name
	}
	return names
}
