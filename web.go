package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"picclip/clip"
)

//go:embed static
var staticFS embed.FS
var isDebug = os.Getenv("DEBUG") == "1"

type Config struct {
	RootDir     string
	Viewport    clip.Viewport
	OriginDelay time.Duration
	Client      *http.Client

	OnBeforeShutdown func()
	OnReady          func(addr string)
	OnClip           func(ctx context.Context, sessionID string, info clip.ClipInfo)
}

type WebApp struct {
	config       Config
	sessions     *sessionStore
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

func NewWebApp(config Config) *WebApp {
	return &WebApp{
		config:     config,
		sessions:   newSessionStore(),
		shutdownCh: make(chan struct{}),
	}
}

func (a *WebApp) Shutdown() {
	a.shutdownOnce.Do(func() {
		close(a.shutdownCh)
	})
}

func (a *WebApp) Run(ctx context.Context) error {
	webapp := a.newFiberApp(ctx)

	webapp.Hooks().OnListen(func(listen fiber.ListenData) error {
		if fn := a.config.OnReady; fn != nil {
			fn(fmt.Sprintf("http://%s:%s", listen.Host, listen.Port))
		}
		return nil
	})

	go func() {
		select {
		case <-ctx.Done():
		case <-a.shutdownCh:
		}
		if fn := a.config.OnBeforeShutdown; fn != nil {
			fn()
		}
		a.sessions.closeAll()
		if err := webapp.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("Failed to shutdown web application")
		}
	}()

	// Let the OS assign a random available port
	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", 0))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	if err := webapp.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

func (a *WebApp) newFiberApp(ctx context.Context) *fiber.App {
	webapp := fiber.New(fiber.Config{
		Immutable:             true,
		DisableStartupMessage: true,
		BodyLimit:             64 << 20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Ctx(c.UserContext()).Error().
				Err(err).
				Str("path", c.Path()).
				Str("method", c.Method()).
				Msg("Request failed")
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				if fiberErr.Code == http.StatusNotFound && c.Path() == "/favicon.ico" {
					return nil
				}
				return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
			}
			return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
		},
	})

	// Hand the application logger to every request so the widget can log.
	logger := log.Ctx(ctx)
	webapp.Use(func(c *fiber.Ctx) error {
		c.SetUserContext(logger.WithContext(c.UserContext()))
		return c.Next()
	})

	filesRoot := http.Dir(a.config.RootDir)
	webapp.Get("/api/view", func(c *fiber.Ctx) error {
		filePath := c.Query("file")
		return filesystem.SendFile(c, filesRoot, filePath)
	})

	webapp.Get("/api/ls", func(c *fiber.Ctx) error {
		dir, err := walkImages(a.config.RootDir)
		if err != nil {
			return fmt.Errorf("failed to walk dir: %w", err)
		}

		for i := range dir.Files {
			dir.Files[i].URL = "/api/view?file=" + url.QueryEscape(dir.Files[i].Name)
		}

		var response struct {
			Name  string     `json:"name"`
			Files []FileInfo `json:"files"`
		}
		response.Name = dir.Name
		response.Files = dir.Files

		return c.JSON(response)
	})

	sessions := webapp.Group("/api/sessions")
	sessions.Post("/", a.createSession)
	sessions.Get("/:id", a.withSession(func(c *fiber.Ctx, w *clip.Widget) error {
		return c.JSON(snapshot(c.Params("id"), w))
	}))
	sessions.Get("/:id/source", a.withSession(func(c *fiber.Ctx, w *clip.Widget) error {
		return c.JSON(fiber.Map{"url": w.Source()})
	}))
	sessions.Post("/:id/pointer", a.withSession(a.pointer))
	sessions.Post("/:id/layout", a.withSession(func(c *fiber.Ctx, w *clip.Widget) error {
		var p clip.Point
		if err := c.BodyParser(&p); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		w.MeasureOrigin(p)
		return c.SendStatus(http.StatusAccepted)
	}))
	sessions.Post("/:id/input", a.withSession(func(c *fiber.Ctx, w *clip.Widget) error {
		var request struct {
			Mode clip.InputMode `json:"mode"`
		}
		if err := c.BodyParser(&request); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		size, err := w.SetInputMode(request.Mode)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"width": size.Width, "height": size.Height})
	}))
	sessions.Post("/:id/custom", a.withSession(func(c *fiber.Ctx, w *clip.Widget) error {
		var request struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		}
		if err := c.BodyParser(&request); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if err := w.ConfirmCustom(request.Width, request.Height); err != nil {
			return err
		}
		return c.JSON(snapshot(c.Params("id"), w))
	}))
	sessions.Post("/:id/clip", a.withSession(func(c *fiber.Ctx, w *clip.Widget) error {
		info, err := w.Clip(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(info)
	}))
	sessions.Delete("/:id", a.withSession(func(c *fiber.Ctx, w *clip.Widget) error {
		w.Close()
		return c.SendStatus(http.StatusNoContent)
	}))

	webapp.Post("/api/shutdown", func(c *fiber.Ctx) error {
		a.Shutdown()
		return nil
	})

	if isDebug {
		log.Debug().Msg("Debug mode enabled, serving static files from './static' directory")
		webapp.Static("/", "static")
	} else {
		log.Debug().Msg("Serving static files from embedded filesystem")
		webapp.Use("/", filesystem.New(filesystem.Config{
			Root:       http.FS(staticFS),
			PathPrefix: "/static",
		}))
	}

	return webapp
}

type sessionRequest struct {
	Resource   string      `json:"resource" form:"resource"`
	File       string      `json:"file" form:"file"`
	Method     string      `json:"method" form:"method"`
	DefaultBox *clip.Box   `json:"default_box" form:"-"`
	ImgType    string      `json:"img_type" form:"img_type"`
	Quality    float64     `json:"quality" form:"quality"`
	Name       string      `json:"name" form:"name"`
	Origin     *clip.Point `json:"origin" form:"-"`
}

// createSession opens a widget on a URL, a data URI, a file under the root
// directory or a multipart upload named "upload".
func (a *WebApp) createSession(c *fiber.Ctx) error {
	var request sessionRequest
	if err := c.BodyParser(&request); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	method, err := clip.ParseMethod(request.Method)
	if err != nil {
		return err
	}

	resource, err := a.resource(c, request)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	ctx := c.UserContext()
	w, err := clip.New(clip.Props{
		Resource:       resource,
		Method:         method,
		DefaultBox:     request.DefaultBox,
		ImgType:        request.ImgType,
		EncoderOptions: request.Quality,
		ImgName:        request.Name,
		Viewport:       a.config.Viewport,
		OriginDelay:    a.config.OriginDelay,
		HTTPClient:     a.config.Client,
		OnClip: func(info clip.ClipInfo) {
			if fn := a.config.OnClip; fn != nil {
				fn(ctx, id, info)
			}
		},
		OnClose: func(reason clip.CloseReason) {
			a.sessions.remove(id)
			log.Ctx(ctx).Info().Str("session", id).Str("reason", string(reason)).Msg("session closed")
		},
		OnError: func(err error) {
			log.Ctx(ctx).Error().Err(err).Str("session", id).Msg("clip failed")
		},
	})
	if err != nil {
		return err
	}
	if request.Origin != nil {
		w.SetOrigin(*request.Origin)
	}

	a.sessions.put(id, w)
	if err := w.Open(ctx); err != nil {
		a.sessions.remove(id)
		return err
	}

	return c.Status(http.StatusCreated).JSON(snapshot(id, w))
}

func (a *WebApp) resource(c *fiber.Ctx, request sessionRequest) (clip.Resource, error) {
	if upload, err := c.FormFile("upload"); err == nil {
		f, err := upload.Open()
		if err != nil {
			return clip.Resource{}, fmt.Errorf("failed to open upload: %w", err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return clip.Resource{}, fmt.Errorf("failed to read upload: %w", err)
		}
		return clip.FileResource(&clip.File{
			Name:    upload.Filename,
			Type:    upload.Header.Get("Content-Type"),
			Data:    data,
			ModTime: time.Now(),
		}), nil
	}

	switch {
	case request.File != "":
		return clip.URLResource(resolveInRoot(a.config.RootDir, request.File)), nil
	case request.Resource != "":
		return clip.URLResource(request.Resource), nil
	}
	return clip.Resource{}, fiber.NewError(http.StatusBadRequest, "one of resource, file or upload is required")
}

type pointerRequest struct {
	Action string  `json:"action"`
	Target string  `json:"target"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

func (a *WebApp) pointer(c *fiber.Ctx, w *clip.Widget) error {
	var request pointerRequest
	if err := c.BodyParser(&request); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	p := clip.Point{X: request.X, Y: request.Y}

	var applied bool
	switch request.Action {
	case "down":
		target, err := clip.ParseTarget(request.Target)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		applied = w.PointerDown(target, p)
	case "move":
		applied = w.PointerMove(p)
	case "up":
		w.PointerUp()
		applied = true
	case "cancel":
		w.PointerCancel()
		applied = true
	default:
		return fiber.NewError(http.StatusBadRequest, fmt.Sprintf("unknown pointer action %q", request.Action))
	}

	return c.JSON(fiber.Map{"applied": applied, "state": w.State()})
}

func (a *WebApp) withSession(fn func(c *fiber.Ctx, w *clip.Widget) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		w, ok := a.sessions.get(c.Params("id"))
		if !ok {
			return fiber.NewError(http.StatusNotFound, "session not found")
		}
		return fn(c, w)
	}
}

type sessionSnapshot struct {
	ID string `json:"id"`
	clip.State
}

func snapshot(id string, w *clip.Widget) sessionSnapshot {
	return sessionSnapshot{ID: id, State: w.State()}
}

// statusFor maps widget errors to HTTP status codes.
func statusFor(err error) int {
	var (
		cfgErr   *clip.ConfigurationError
		emptyErr *clip.EmptySelectionError
		assetErr *clip.AssetRetrievalError
	)
	switch {
	case errors.As(err, &cfgErr):
		return http.StatusBadRequest
	case errors.As(err, &emptyErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &assetErr):
		return http.StatusBadGateway
	case errors.Is(err, clip.ErrClosed), errors.Is(err, clip.ErrNotLoaded), errors.Is(err, clip.ErrSuperseded):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*clip.Widget
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*clip.Widget)}
}

func (s *sessionStore) put(id string, w *clip.Widget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = w
}

func (s *sessionStore) get(id string) (*clip.Widget, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.sessions[id]
	return w, ok
}

func (s *sessionStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *sessionStore) closeAll() {
	s.mu.RLock()
	widgets := make([]*clip.Widget, 0, len(s.sessions))
	for _, w := range s.sessions {
		widgets = append(widgets, w)
	}
	s.mu.RUnlock()

	for _, w := range widgets {
		w.Close()
	}
}
