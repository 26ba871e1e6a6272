package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"picclip/clip"
)

func TestReadOperations(t *testing.T) {
	data := `
{"resource":"a.png","method":"fixed","default_box":{"width":50,"height":40},"steps":[{"type":"drag","target":"body","from":{"x":10,"y":10},"to":[{"x":20,"y":30}]}]}

{"resource":"b.png","method":"custom","steps":[{"type":"input","mode":"typed"},{"type":"custom","width":120,"height":80}]}
`
	ops, err := readOperations([]byte(data))
	require.NoError(t, err)
	require.Len(t, ops, 2)

	assert.Equal(t, clip.Fixed, ops[0].Method)
	require.NotNil(t, ops[0].DefaultBox)
	assert.Equal(t, clip.Box{Width: 50, Height: 40}, *ops[0].DefaultBox)
	require.Len(t, ops[0].Steps, 1)
	require.NotNil(t, ops[0].Steps[0].Drag)
	assert.True(t, ops[0].Steps[0].Drag.Target.IsBody())
	assert.Equal(t, []clip.Point{{X: 20, Y: 30}}, ops[0].Steps[0].Drag.To)

	assert.Equal(t, clip.Custom, ops[1].Method)
	require.Len(t, ops[1].Steps, 2)
	require.NotNil(t, ops[1].Steps[0].Input)
	assert.Equal(t, clip.InputTyped, ops[1].Steps[0].Input.Mode)
	require.NotNil(t, ops[1].Steps[1].Custom)
	assert.Equal(t, CustomStep{Width: 120, Height: 80}, *ops[1].Steps[1].Custom)
}

func TestReadOperations_Errors(t *testing.T) {
	_, err := readOperations([]byte(`{"resource":"a.png","steps":[{"type":"spin"}]}`))
	assert.ErrorContains(t, err, `unknown step "spin"`)

	_, err = readOperations([]byte("{\"resource\":\"a.png\"}\n{\"method\":\"diagonal\"}"))
	assert.ErrorContains(t, err, "line 2")
}

func TestStep_MarshalJSON(t *testing.T) {
	step := Step{Drag: &DragStep{
		Target: clip.HandleTarget(clip.BottomRight),
		From:   clip.Point{X: 1, Y: 2},
		To:     []clip.Point{{X: 3, Y: 4}},
	}}
	data, err := json.Marshal(step)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "drag", raw["type"])
	assert.Equal(t, "bottomright", raw["target"])

	var back Step
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, step.String(), back.String())

	_, err = json.Marshal(Step{})
	assert.Error(t, err)
}

func TestOperation_ID(t *testing.T) {
	a := Operation{Resource: "a.png", Method: clip.Manual}
	b := Operation{Resource: "a.png", Method: clip.Custom}
	assert.Len(t, a.ID(), 32)
	assert.Equal(t, a.ID(), a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestOperationExecutor_Resolve(t *testing.T) {
	r := OperationExecutor{BaseDir: "/data"}
	assert.Equal(t, filepath.Join("/data", "a.png"), r.resolve("a.png"))
	assert.Equal(t, "/abs/a.png", r.resolve("/abs/a.png"))
	assert.Equal(t, "https://example.com/a.png", r.resolve("https://example.com/a.png"))
	assert.Equal(t, "data:image/png;base64,AA==", r.resolve("data:image/png;base64,AA=="))
}

func TestOperationExecutor_Exec(t *testing.T) {
	base := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	writePNG(t, base, "photo.png", 200, 100)

	ops := Operations{
		{
			Resource: "photo.png",
			Name:     "half.png",
			Steps: []Step{{Drag: &DragStep{
				Target: clip.HandleTarget(clip.BottomRight),
				From:   clip.Point{X: 200, Y: 100},
				To:     []clip.Point{{X: 150, Y: 80}, {X: 100, Y: 50}},
			}}},
		},
		{
			Resource:   pngDataURI(t, 200, 100),
			Method:     clip.Fixed,
			DefaultBox: &clip.Box{Width: 40, Height: 30},
			ImgType:    "image/jpeg",
		},
	}

	r := OperationExecutor{BaseDir: base, OutputDir: out, Viewport: clip.Viewport{Width: 200, Height: 100}}
	require.NoError(t, r.Exec(context.Background(), ops))

	w, h, err := readImageDimensions(filepath.Join(out, "half.png"))
	require.NoError(t, err)
	assert.Equal(t, 100, w)
	assert.Equal(t, 50, h)

	fixedName := "clip-" + ops[1].ID()[:8] + ".jpg"
	w, h, err = readImageDimensions(filepath.Join(out, fixedName))
	require.NoError(t, err)
	assert.Equal(t, 40, w)
	assert.Equal(t, 30, h)
}

func TestOperationExecutor_ExecFailures(t *testing.T) {
	out := t.TempDir()
	r := OperationExecutor{BaseDir: t.TempDir(), OutputDir: out}

	err := r.Exec(context.Background(), Operations{{Resource: "missing.png"}})
	var assetErr *clip.AssetRetrievalError
	assert.ErrorAs(t, err, &assetErr)

	// resize handles are locked in fixed mode
	err = r.Exec(context.Background(), Operations{{
		Resource:   pngDataURI(t, 20, 20),
		Method:     clip.Fixed,
		DefaultBox: &clip.Box{Width: 10, Height: 10},
		Steps: []Step{{Drag: &DragStep{
			Target: clip.HandleTarget(clip.TopLeft),
			From:   clip.Point{},
			To:     []clip.Point{{X: 5, Y: 5}},
		}}},
	}})
	assert.ErrorContains(t, err, "not allowed")

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveClip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	info := &clip.ClipInfo{File: &clip.File{Name: "x.png", Data: []byte("png")}}

	p, err := saveClip(dir, "../../escape.png", info)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.png"), p)
	assert.True(t, strings.HasPrefix(p, dir))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}
