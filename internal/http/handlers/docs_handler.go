package handlers

import (
	_ "embed"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/ignatzorin/otp-auth/internal/pkg/apperror"
)

//go:embed docs/openapi.json
var openAPIDocument []byte

const openAPIPath = "/openapi.json"

// DocsHandler отдаёт OpenAPI документ и Swagger UI под /docs.
type DocsHandler struct {
	document map[string]interface{}
	ui       gin.HandlerFunc
}

// NewDocsHandler разбирает встроенный документ один раз при старте.
func NewDocsHandler() (*DocsHandler, error) {
	var document map[string]interface{}
	if err := json.Unmarshal(openAPIDocument, &document); err != nil {
		return nil, apperror.Internal(err, "некорректный openapi.json")
	}
	return &DocsHandler{
		document: document,
		ui:       ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs"+openAPIPath)),
	}, nil
}

// Serve подключается на /docs/*any.
func (h *DocsHandler) Serve(c *gin.Context) {
	if c.Param("any") == openAPIPath {
		h.openAPI(c)
		return
	}
	h.ui(c)
}

// openAPI подставляет в servers адрес, по которому пришёл запрос.
func (h *DocsHandler) openAPI(c *gin.Context) {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}

	document := make(map[string]interface{}, len(h.document))
	for k, v := range h.document {
		document[k] = v
	}
	document["servers"] = []map[string]string{{"url": scheme + "://" + c.Request.Host}}

	c.JSON(http.StatusOK, document)
}
