package main

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"picclip/clip"
)

type Operations = []Operation

// Operation is one headless crop: load Resource, replay Steps, then clip.
type Operation struct {
	Resource   string      `json:"resource"`
	Method     clip.Method `json:"method"`
	DefaultBox *clip.Box   `json:"default_box,omitempty"`
	ImgType    string      `json:"img_type,omitempty"`
	Quality    float64     `json:"quality,omitempty"`
	Name       string      `json:"name,omitempty"`
	Steps      []Step      `json:"steps,omitempty"`
}

func (o Operation) String() string {
	steps := make([]string, 0, len(o.Steps))
	for _, s := range o.Steps {
		steps = append(steps, s.String())
	}
	return fmt.Sprintf("%s(%s)[%s]", o.Method, o.Resource, strings.Join(steps, ","))
}

func (o Operation) ID() string {
	m := md5.New()
	_, err := m.Write([]byte(o.String()))
	if err != nil {
		log.Error().Err(err).Msg("failed to hash operation string")
		return ""
	}
	return fmt.Sprintf("%x", m.Sum(nil))
}

// Step is one interaction replayed against the widget.
type Step struct {
	Drag   *DragStep
	Custom *CustomStep
	Input  *InputStep
}

type DragStep struct {
	Target clip.Target  `json:"target"`
	From   clip.Point   `json:"from"`
	To     []clip.Point `json:"to"`
}

type CustomStep struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type InputStep struct {
	Mode clip.InputMode `json:"mode"`
}

func (s *Step) UnmarshalJSON(data []byte) error {
	var step struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &step); err != nil {
		return fmt.Errorf("failed to unmarshal step: %w", err)
	}

	switch step.Type {
	case "drag":
		var drag DragStep
		if err := json.Unmarshal(data, &drag); err != nil {
			return fmt.Errorf("failed to unmarshal drag step: %w", err)
		}
		s.Drag = &drag
	case "custom":
		var custom CustomStep
		if err := json.Unmarshal(data, &custom); err != nil {
			return fmt.Errorf("failed to unmarshal custom step: %w", err)
		}
		s.Custom = &custom
	case "input":
		var input InputStep
		if err := json.Unmarshal(data, &input); err != nil {
			return fmt.Errorf("failed to unmarshal input step: %w", err)
		}
		s.Input = &input
	default:
		return fmt.Errorf("unknown step %q", step.Type)
	}
	return nil
}

func (s Step) MarshalJSON() ([]byte, error) {
	switch {
	case s.Drag != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			DragStep
		}{"drag", *s.Drag})
	case s.Custom != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			CustomStep
		}{"custom", *s.Custom})
	case s.Input != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			InputStep
		}{"input", *s.Input})
	}
	return nil, fmt.Errorf("empty step")
}

func (s Step) String() string {
	switch {
	case s.Drag != nil:
		return fmt.Sprintf("drag(%s,%v,%v)", s.Drag.Target, s.Drag.From, s.Drag.To)
	case s.Custom != nil:
		return fmt.Sprintf("custom(%dx%d)", s.Custom.Width, s.Custom.Height)
	case s.Input != nil:
		return fmt.Sprintf("input(%s)", s.Input.Mode)
	}
	return "noop"
}

func (s Step) apply(w *clip.Widget) error {
	switch {
	case s.Drag != nil:
		if !w.Drag(s.Drag.Target, s.Drag.From, s.Drag.To...) {
			return fmt.Errorf("drag on %s is not allowed", s.Drag.Target)
		}
	case s.Custom != nil:
		return w.ConfirmCustom(s.Custom.Width, s.Custom.Height)
	case s.Input != nil:
		_, err := w.SetInputMode(s.Input.Mode)
		return err
	}
	return nil
}

// readOperations parses JSON Lines, skipping blank lines.
func readOperations(data []byte) (Operations, error) {
	var ops Operations
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var op Operation
		if err := json.Unmarshal([]byte(line), &op); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

type OperationExecutor struct {
	BaseDir   string
	OutputDir string
	Viewport  clip.Viewport
	Client    *http.Client
}

func (r OperationExecutor) Exec(ctx context.Context, ops []Operation) error {
	if len(ops) == 0 {
		log.Ctx(ctx).Warn().Msg("no operations to execute")
		return nil
	}

	pooler := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(runtime.NumCPU())

	if err := os.MkdirAll(r.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", r.OutputDir, err)
	}
	for _, op := range ops {
		pooler.Go(func(ctx context.Context) error {
			if err := r.executeOperation(ctx, op); err != nil {
				log.Ctx(ctx).Error().Err(err).
					Str("op", op.String()).
					Msg("failed to execute operation")
				return err
			}
			return nil
		})
	}

	if err := pooler.Wait(); err != nil {
		log.Ctx(ctx).Error().
			Err(err).
			Msg("finished with errors")
		return err
	}

	return nil
}

func (r OperationExecutor) executeOperation(ctx context.Context, op Operation) error {
	log.Ctx(ctx).Info().Str("resource", op.Resource).Str("method", op.Method.String()).Msg("cropping")

	w, err := clip.New(clip.Props{
		Resource:       clip.URLResource(r.resolve(op.Resource)),
		Method:         op.Method,
		DefaultBox:     op.DefaultBox,
		ImgType:        op.ImgType,
		EncoderOptions: op.Quality,
		ImgName:        op.Name,
		Viewport:       r.Viewport,
		HTTPClient:     r.Client,
	})
	if err != nil {
		return err
	}
	if err := w.Open(ctx); err != nil {
		return fmt.Errorf("failed to open %s: %w", op.Resource, err)
	}
	defer w.Close()

	for _, step := range op.Steps {
		if err := step.apply(w); err != nil {
			return fmt.Errorf("step %s: %w", step, err)
		}
	}

	info, err := w.Clip(ctx)
	if err != nil {
		return err
	}

	name := info.File.Name
	if op.Name == "" {
		ext := filepath.Ext(name)
		name = fmt.Sprintf("%s-%s%s", strings.TrimSuffix(name, ext), op.ID()[:8], ext)
	}
	_, err = saveClip(r.OutputDir, name, info)
	return err
}

// resolve keeps URLs as they are and anchors relative paths at BaseDir.
func (r OperationExecutor) resolve(resource string) string {
	if strings.HasPrefix(resource, "http://") || strings.HasPrefix(resource, "https://") ||
		strings.HasPrefix(resource, "data:") || filepath.IsAbs(resource) {
		return resource
	}
	return filepath.Join(r.BaseDir, resource)
}

// saveClip writes a clipped file into dir and returns its path.
func saveClip(dir, name string, info *clip.ClipInfo) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	clippedPath := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(clippedPath, info.File.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write clipped file %s: %w", name, err)
	}
	return clippedPath, nil
}
