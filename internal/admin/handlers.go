package admin

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tinyvault/internal/handler"
	"tinyvault/internal/models"
	"tinyvault/internal/service"
)

type handlers struct {
	users *service.UserService
	items *service.ItemService
	db    *gorm.DB
}

// UserResponse is the admin API view of a user
type UserResponse struct {
	ID             uint      `json:"id"`
	TelegramUserID int64     `json:"telegram_user_id"`
	FirstSeenAt    time.Time `json:"first_seen_at"`
	LastSeenAt     time.Time `json:"last_seen_at"`
	ItemCount      int64     `json:"item_count"`
}

// ItemResponse is the admin API view of an item
type ItemResponse struct {
	ID          uint       `json:"id"`
	ShortCode   string     `json:"short_code"`
	Kind        string     `json:"kind"`
	Content     string     `json:"content"`
	OwnerUserID uint       `json:"owner_user_id"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

func toItemResponse(item *models.Item) ItemResponse {
	return ItemResponse{
		ID:          item.ID,
		ShortCode:   item.ShortCode,
		Kind:        item.Kind,
		Content:     item.Content,
		OwnerUserID: item.OwnerUserID,
		CreatedAt:   item.CreatedAt,
		DeletedAt:   item.DeletedAt,
	}
}

// listUsers returns all users with their live item counts
func (h *handlers) listUsers(c *gin.Context) {
	rows, err := h.users.ListWithItemCounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve users"})
		return
	}

	response := make([]UserResponse, 0, len(rows))
	for _, row := range rows {
		response = append(response, UserResponse{
			ID:             row.ID,
			TelegramUserID: row.TelegramUserID,
			FirstSeenAt:    row.FirstSeenAt,
			LastSeenAt:     row.LastSeenAt,
			ItemCount:      row.ItemCount,
		})
	}
	c.JSON(http.StatusOK, response)
}

// listItems returns items, optionally filtered by owner, with pagination
func (h *handlers) listItems(c *gin.Context) {
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)
	includeDeleted := c.Query("include_deleted") == "true"

	var items []*models.Item
	var err error
	if userIDParam := c.Query("user_id"); userIDParam != "" {
		userID, perr := strconv.ParseUint(userIDParam, 10, 32)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		items, err = h.items.List(uint(userID), limit)
	} else {
		items, err = h.items.ListAll(limit, offset, includeDeleted)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve items"})
		return
	}

	response := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		response = append(response, toItemResponse(item))
	}
	c.JSON(http.StatusOK, gin.H{
		"items":  response,
		"total":  len(response),
		"limit":  limit,
		"offset": offset,
	})
}

// deleteItem purges an item by short code, whatever its deletion state
func (h *handlers) deleteItem(c *gin.Context) {
	shortCode := c.Param("shortCode")

	err := h.items.HardDelete(shortCode)
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "item " + shortCode + " not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete item"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item " + shortCode + " deleted"})
}

// stats returns system-wide aggregate statistics
func (h *handlers) stats(c *gin.Context) {
	totalUsers, err := h.users.Count()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute statistics"})
		return
	}
	totalItems, err := h.items.CountLive()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute statistics"})
		return
	}
	activeUsers, err := h.users.CountActiveSince(time.Now().AddDate(0, 0, -30))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute statistics"})
		return
	}

	avgItems := 0.0
	if totalUsers > 0 {
		avgItems = math.Round(float64(totalItems)/float64(totalUsers)*100) / 100
	}
	c.JSON(http.StatusOK, gin.H{
		"total_users":            totalUsers,
		"total_items":            totalItems,
		"active_users_30_days":   activeUsers,
		"average_items_per_user": avgItems,
	})
}

// status returns processing counters from the bot handler
func (h *handlers) status(c *gin.Context) {
	c.JSON(http.StatusOK, handler.GetProcessingStats())
}

// dbPing verifies database connectivity with a SELECT 1
func (h *handlers) dbPing(c *gin.Context) {
	var result int
	if err := h.db.Raw("SELECT 1").Scan(&result).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "database connectivity failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "result": result})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	if raw := c.Query(name); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			return value
		}
	}
	return fallback
}
