package preview

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"gisco/internal/async"
	"gisco/internal/logging"
	"gisco/internal/observability"
)

//go:embed static/shim.js
var shimJS []byte

//go:embed templates/*.tmpl
var templateFS embed.FS

// Options configures the preview server.
type Options struct {
	ListenAddr     string
	Site           Site
	AllowedOrigins []string

	// RelayEndpoint and RelayToken are injected into every rendered page so
	// the shim knows where to connect.
	RelayEndpoint string
	RelayToken    string

	Logger  logging.Logger
	Metrics *observability.MetricsCollector
}

// Server renders demo host pages carrying the in-page shim so the whole
// embedding loop can be exercised against a local site.
type Server struct {
	opts    Options
	logger  logging.Logger
	metrics *observability.MetricsCollector
	site    Site
	engine  *gin.Engine
	started time.Time

	mu      sync.Mutex
	ln      net.Listener
	httpSrv *http.Server
	addr    string
}

// New assembles the gin engine, templates and routes.
func New(opts Options) (*Server, error) {
	if strings.TrimSpace(opts.ListenAddr) == "" {
		opts.ListenAddr = "127.0.0.1:17620"
	}
	site := opts.Site
	if len(site.Pages) == 0 {
		site = DefaultSite()
	}
	if err := site.normalize(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.RelayEndpoint) == "" {
		opts.RelayEndpoint = "ws://127.0.0.1:17610/ws"
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		opts:    opts,
		logger:  logging.WithComponent(opts.Logger, "Preview"),
		metrics: opts.Metrics,
		site:    site,
		started: time.Now(),
	}

	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.observe())

	corsConfig := cors.DefaultConfig()
	if len(opts.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = opts.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	engine.Use(cors.New(corsConfig))

	engine.SetHTMLTemplate(tmpl)

	engine.GET("/", s.handleIndex)
	engine.GET("/pages/:slug", s.handlePage)
	engine.GET("/static/shim.js", s.handleShim)
	engine.GET("/healthz", s.handleHealth)

	s.engine = engine
	return s, nil
}

// Handler exposes the underlying engine for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr reports the bound listen address once Start has succeeded.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start binds the listener and begins serving in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.ln != nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	ln, err := net.Listen("tcp", s.opts.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %q: %w", s.opts.ListenAddr, err)
	}

	httpSrv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.mu.Lock()
	s.ln = ln
	s.httpSrv = httpSrv
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	async.Go(s.logger, "preview-serve", func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("preview server stopped: %v", err)
		}
	})

	s.logger.Info("preview listening on http://%s (%d pages)", s.addr, len(s.site.Pages))
	return nil
}

// Close shuts the server down gracefully.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpSrv
	s.httpSrv = nil
	s.ln = nil
	s.addr = ""
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return srv.Shutdown(ctx)
}

// observe records one metrics sample per request and logs at debug level.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		s.metrics.RecordPreviewRequest(c.Request.Context(), route, status)
		s.logger.Debug("%s %s -> %d", c.Request.Method, c.Request.URL.Path, status)
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index", gin.H{"Site": s.site})
}

func (s *Server) handlePage(c *gin.Context) {
	slug := c.Param("slug")
	page, ok := s.site.Page(slug)
	if !ok {
		c.String(http.StatusNotFound, "no page registered under %q", slug)
		return
	}
	c.HTML(http.StatusOK, "page", gin.H{
		"Page":          page,
		"RelayEndpoint": s.opts.RelayEndpoint,
		"RelayToken":    s.opts.RelayToken,
	})
}

func (s *Server) handleShim(c *gin.Context) {
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", shimJS)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"pages":  len(s.site.Pages),
		"uptime": time.Since(s.started).String(),
	})
}
