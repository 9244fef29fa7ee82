package handlers

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/otp-auth/internal/logger"
	"github.com/ignatzorin/otp-auth/internal/pkg/apperror"
)

// Префиксы, под которыми SPA никогда не отдаётся: неизвестный маршрут API
// должен получить NOT_FOUND в общем конверте, а не index.html.
var apiPrefixes = []string{"/api", "/health", "/metrics", "/docs"}

// WebHandler раздаёт статику фронтенда и обрабатывает все несовпавшие маршруты.
type WebHandler struct {
	root http.FileSystem
	dir  string
}

// NewWebHandler создаёт обработчик. Если каталога нет, статика отключена
// и на любой неизвестный маршрут отвечает NOT_FOUND.
func NewWebHandler(dir string) *WebHandler {
	if dir == "" {
		return &WebHandler{}
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		logger.Log.WithField("dir", dir).Info("web: каталог статики не найден, раздача отключена")
		return &WebHandler{}
	}
	return &WebHandler{root: http.Dir(dir), dir: dir}
}

// NoRoute подключается через gin.Engine.NoRoute.
func (h *WebHandler) NoRoute(c *gin.Context) {
	if h.serve(c) {
		return
	}
	_ = c.Error(apperror.ErrRouteNotFound)
}

func (h *WebHandler) serve(c *gin.Context) bool {
	if h.root == nil {
		return false
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		return false
	}

	p := path.Clean("/" + c.Request.URL.Path)
	for _, prefix := range apiPrefixes {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return false
		}
	}

	if h.isFile(p) {
		c.FileFromFS(p, h.root)
		return true
	}

	// SPA: клиентские маршруты получают index.html, если клиент ждёт HTML.
	if strings.Contains(c.GetHeader("Accept"), "text/html") && h.isFile("/index.html") {
		c.File(filepath.Join(h.dir, "index.html"))
		return true
	}
	return false
}

func (h *WebHandler) isFile(name string) bool {
	f, err := h.root.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	return err == nil && !info.IsDir()
}
