package books

import (
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"epubhub/internal/catalog"
)

type Handler struct {
	Catalog *catalog.Service
}

func NewHandler(svc *catalog.Service) *Handler {
	return &Handler{Catalog: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/epubs", h.list)
	rg.GET("/epubs/:title", h.get)
	rg.GET("/epubs/:title/download", h.download)
	rg.GET("/epubs/:title/cover", h.cover)
}

func (h *Handler) list(c *gin.Context) {
	q, err := h.Catalog.ParseQuery(catalog.RawQuery{
		Page:   c.Query("page"),
		Limit:  c.Query("limit"),
		Sort:   c.Query("sort"),
		Order:  c.Query("order"),
		Search: c.Query("search"),
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.Catalog.List(c.Request.Context(), q)
	if err != nil {
		log.Printf("[books] list: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch books"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) get(c *gin.Context) {
	book, err := h.Catalog.GetByTitle(c.Request.Context(), c.Param("title"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
			return
		}
		log.Printf("[books] get %q: %v", c.Param("title"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch book details"})
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *Handler) download(c *gin.Context) {
	path, err := h.Catalog.FindFile(c.Param("title"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
			return
		}
		log.Printf("[books] download %q: %v", c.Param("title"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to download book"})
		return
	}
	c.Header("Content-Type", "application/epub+zip")
	c.FileAttachment(path, filepath.Base(path))
}

func (h *Handler) cover(c *gin.Context) {
	width := 0
	if raw := c.Query("width"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "width must be a non-negative integer"})
			return
		}
		width = n
	}

	img, err := h.Catalog.Cover(c.Request.Context(), c.Param("title"), width)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cover not found"})
			return
		}
		log.Printf("[books] cover %q: %v", c.Param("title"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch cover"})
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, img.MediaType, img.Data)
}
