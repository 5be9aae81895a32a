package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/databeam/databeam/pkg/tree"
)

func TestCUEParser_ParseInline(t *testing.T) {
	parser := NewCUEParser()
	ctx := context.Background()

	tests := []struct {
		name      string
		content   string
		wantErr   bool
		checkFunc func(*testing.T, *BringupSpec)
	}{
		{
			name: "valid simple declaration",
			content: `
namespaces: [{path: "/sensors"}]
inputs: [{
	path:  "/sensors/temp-1"
	type:  "num"
	units: "celsius"
	default: {literal: 20.0}
}]
outputs: [{
	path: "/actuators/fan-1"
	type: "bool"
}]
`,
			checkFunc: func(t *testing.T, bs *BringupSpec) {
				if len(bs.Namespaces) != 1 || bs.Namespaces[0].Path != "/sensors" {
					t.Errorf("expected one namespace /sensors, got %v", bs.Namespaces)
				}
				if len(bs.Inputs) != 1 || bs.Inputs[0].Type != "num" {
					t.Errorf("expected one numeric input, got %v", bs.Inputs)
				}
				if len(bs.Outputs) != 1 || bs.Outputs[0].Type != "bool" {
					t.Errorf("expected one boolean output, got %v", bs.Outputs)
				}
			},
		},
		{
			name: "invalid CUE syntax",
			content: `
inputs: [{
	path: "/sensors/temp-1"
	invalid syntax here
}]
`,
			wantErr: true,
		},
		{
			name: "missing required field",
			content: `
inputs: [{
	units: "celsius"
}]
`,
			wantErr: true,
		},
		{
			name: "unknown sample type",
			content: `
inputs: [{
	path: "/sensors/temp-1"
	type: "float"
}]
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bs, err := parser.ParseInline(ctx, tt.content)

			if tt.wantErr {
				if err == nil && len(bs.Errors) == 0 {
					t.Errorf("expected error, got none")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(bs.Errors) > 0 {
				t.Fatalf("unexpected validation errors: %v", bs.Errors)
			}
			if tt.checkFunc != nil {
				tt.checkFunc(t, bs)
			}
		})
	}
}

func TestCUEParser_ParseFile(t *testing.T) {
	parser := NewCUEParser()
	ctx := context.Background()

	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "bringup.cue")

	content := `
namespaces: [{path: "/sensors"}]
inputs: [{
	path:      "/sensors/temp-1"
	type:      "num"
	units:     "celsius"
	mandatory: true
}]
observations: [{
	path:       "/obs/temp-1-avg"
	source:     "/sensors/temp-1"
	min_period: 1.0
	buffer_max: 16
}]
`

	if err := os.WriteFile(testFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	bs, err := parser.Parse(ctx, []string{testFile})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bs.Errors) > 0 {
		t.Fatalf("unexpected validation errors: %v", bs.Errors)
	}

	if len(bs.Inputs) != 1 {
		t.Fatalf("expected 1 input, got %d", len(bs.Inputs))
	}
	if !bs.Inputs[0].Mandatory {
		t.Error("expected input to be mandatory")
	}

	if len(bs.Observations) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(bs.Observations))
	}
	if bs.Observations[0].BufferMax != 16 {
		t.Errorf("expected buffer_max=16, got %d", bs.Observations[0].BufferMax)
	}
}

func TestCUEParser_Load_ResolvesStarlarkDefault(t *testing.T) {
	parser := NewCUEParser()
	ctx := context.Background()

	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "bringup.cue")

	content := `
outputs: [{
	path: "/actuators/fan-1"
	type: "bool"
	default: {starlark: "facts[\"base_temp\"] > 15.0"}
}]
`
	if err := os.WriteFile(testFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	bs, err := parser.Load(ctx, []string{testFile}, map[string]interface{}{"base_temp": 21.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(bs.Outputs) != 1 {
		t.Fatalf("expected 1 output, got %d", len(bs.Outputs))
	}
	out := bs.Outputs[0]
	if out.Default == nil {
		t.Fatal("expected resolved default")
	}
	if out.Default.Starlark != "" {
		t.Errorf("expected Starlark field cleared after resolution, got %q", out.Default.Starlark)
	}
	if string(out.Default.Literal) != "true" {
		t.Errorf("expected resolved literal 'true', got %s", out.Default.Literal)
	}
}

func TestCUEParser_Load_FailsFastOnStarlarkError(t *testing.T) {
	parser := NewCUEParser()
	ctx := context.Background()

	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "bringup.cue")

	content := `
inputs: [{
	path: "/sensors/temp-1"
	type: "num"
	default: {starlark: "facts[\"missing\"] + 1"}
}]
`
	if err := os.WriteFile(testFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	_, err := parser.Load(ctx, []string{testFile}, map[string]interface{}{})
	if err == nil {
		t.Fatal("expected Load to fail when a Starlark default raises an error")
	}
}

func TestApply_BuildsTreeFromSpec(t *testing.T) {
	parser := NewCUEParser()
	ctx := context.Background()

	content := `
namespaces: [{path: "/sensors"}]
inputs: [{
	path:  "/sensors/temp-1"
	type:  "num"
	units: "celsius"
	default: {literal: 20.0}
}]
outputs: [{
	path: "/actuators/fan-1"
	type: "bool"
	default: {literal: false}
}]
observations: [{
	path:                 "/obs/temp-1-avg"
	source:               "/sensors/temp-1"
	min_period:           1.0
	buffer_max:           8
	buffer_backup_path:   "/sensors/temp-1"
	buffer_backup_period: 30.0
}]
routes: [{from: "/sensors/temp-1", to: "/actuators/fan-1"}]
`

	bs2, err := parser.ParseInline(ctx, content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bs2.Errors) > 0 {
		t.Fatalf("unexpected validation errors: %v", bs2.Errors)
	}

	tr := tree.New()
	if err := Apply(tr, bs2); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	inputEntry, err := tr.FindEntry(tr.Root(), "/sensors/temp-1")
	if err != nil {
		t.Fatalf("expected input entry to exist: %v", err)
	}
	if inputEntry.Variant() != tree.VariantInput {
		t.Errorf("expected VariantInput, got %v", inputEntry.Variant())
	}

	outEntry, err := tr.FindEntry(tr.Root(), "/actuators/fan-1")
	if err != nil {
		t.Fatalf("expected output entry to exist: %v", err)
	}
	if outEntry.Variant() != tree.VariantOutput {
		t.Errorf("expected VariantOutput, got %v", outEntry.Variant())
	}

	obsEntry, err := tr.FindEntry(tr.Root(), "/obs/temp-1-avg")
	if err != nil {
		t.Fatalf("expected observation entry to exist: %v", err)
	}
	if obsEntry.Variant() != tree.VariantObservation {
		t.Errorf("expected VariantObservation, got %v", obsEntry.Variant())
	}
	if tree.GetSource(obsEntry) != inputEntry {
		t.Error("expected observation source to be /sensors/temp-1")
	}

	if tree.GetSource(outEntry) != inputEntry {
		t.Error("expected route to set /actuators/fan-1's source to /sensors/temp-1")
	}
}

func TestCUEParser_Load_NoSources(t *testing.T) {
	parser := NewCUEParser()
	ctx := context.Background()

	if _, err := parser.Load(ctx, []string{}, nil); err == nil {
		t.Fatal("expected error when no sources are given")
	}
}

func TestCUEParser_LoadFromDirectory(t *testing.T) {
	parser := NewCUEParser()

	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "a.cue"), []byte("namespaces: []\n"), 0644); err != nil {
		t.Fatalf("failed to write a.cue: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "b.txt"), []byte("not cue"), 0644); err != nil {
		t.Fatalf("failed to write b.txt: %v", err)
	}

	files, err := parser.LoadFromDirectory(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 .cue file, got %d", len(files))
	}
}
