package library

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"epubhub/internal/auth"
	"epubhub/internal/sync"
)

type Handler struct {
	Repo       *Repo
	Collection Collection
	Hub        sync.Publisher
}

func NewHandler(repo *Repo, c Collection, hub sync.Publisher) *Handler {
	return &Handler{Repo: repo, Collection: c, Hub: hub}
}

// RegisterRoutes mounts POST/DELETE /<noun>, GET /:book/<noun> and
// GET /<noun>/all on a protected group. GET /books/:book/<noun> reaches
// books whose names collide with a static route, such as "epubs".
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	noun := h.Collection.Noun
	rg.POST("/"+noun, h.add)
	rg.DELETE("/"+noun, h.remove)
	rg.GET("/:book/"+noun, h.status)
	rg.GET("/books/:book/"+noun, h.status)
	rg.GET("/"+noun+"/all", h.list)
}

type bookReq struct {
	Book string `json:"book"`
}

func (h *Handler) bindBook(c *gin.Context) (string, bool) {
	var req bookReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return "", false
	}
	book := strings.TrimSpace(req.Book)
	if book == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "book required"})
		return "", false
	}
	return book, true
}

func (h *Handler) add(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	book, ok := h.bindBook(c)
	if !ok {
		return
	}

	if err := h.Repo.Add(c.Request.Context(), claims.UserID, book); err != nil {
		log.Printf("[library] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark book as " + h.Collection.Label + "."})
		return
	}

	h.publish(h.Collection.AddedEvent, claims.UserID, book)
	c.JSON(http.StatusOK, gin.H{"message": "Book marked as " + h.Collection.Label + " successfully."})
}

func (h *Handler) remove(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	book, ok := h.bindBook(c)
	if !ok {
		return
	}

	deleted, err := h.Repo.Remove(c.Request.Context(), claims.UserID, book)
	if err != nil {
		log.Printf("[library] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove " + h.Collection.Label + " record."})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "No " + h.Collection.Label + " record found for the specified book."})
		return
	}

	h.publish(h.Collection.RemovedEvent, claims.UserID, book)
	c.JSON(http.StatusOK, gin.H{"message": "Book " + h.Collection.Label + " record removed successfully."})
}

func (h *Handler) status(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	has, err := h.Repo.Has(c.Request.Context(), claims.UserID, c.Param("book"))
	if err != nil {
		log.Printf("[library] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check " + h.Collection.Label + " status."})
		return
	}
	c.JSON(http.StatusOK, gin.H{h.Collection.Noun: has})
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	books, err := h.Repo.List(c.Request.Context(), claims.UserID)
	if err != nil {
		log.Printf("[library] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve " + h.Collection.Label + " books."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books})
}

func (h *Handler) publish(typ, userID, book string) {
	if h.Hub == nil {
		return
	}
	go h.Hub.Publish(sync.NewEvent(typ, userID, book))
}
