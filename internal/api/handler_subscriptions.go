package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mechinsight-backend/internal/model"
	"mechinsight-backend/internal/mw"
	"mechinsight-backend/internal/store"
)

type putSubscriptionRequest struct {
	Endpoint           string  `json:"endpoint" binding:"required"`
	P256DH             string  `json:"p256dh" binding:"required"`
	Auth               string  `json:"auth" binding:"required"`
	SubscribedMachines []int64 `json:"subscribed_machines"`
}

// PutSubscription creates or replaces a push subscription for the
// authenticated user. Requested machines are intersected with the user's
// ownership rows, so nobody can subscribe to someone else's machine.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	username := mw.Username(c)

	owned, err := h.store.ResolveOwnedMachines(c.Request.Context(), username)
	if err != nil && err != store.ErrNoMachines {
		log.Printf("Error resolving machines for subscription: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	ownedSet := make(map[int64]bool, len(owned))
	for _, id := range owned {
		ownedSet[id] = true
	}

	var machineIDs []int64
	for _, id := range req.SubscribedMachines {
		if ownedSet[id] {
			machineIDs = append(machineIDs, id)
		}
	}

	subscription := model.PushSubscription{
		Endpoint: req.Endpoint,
		Username: username,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}

	err = h.store.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "p256dh", "auth"}),
		}).Create(&subscription).Error; err != nil {
			return err
		}

		if err := tx.Where("endpoint = ?", req.Endpoint).Delete(&model.SubscriptionMachine{}).Error; err != nil {
			return err
		}
		for _, id := range machineIDs {
			mapping := model.SubscriptionMachine{Endpoint: req.Endpoint, MachineID: id}
			if err := tx.Create(&mapping).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("Error saving subscription: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription removes one of the authenticated user's subscriptions.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	username := mw.Username(c)

	err := h.store.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("endpoint = ? AND username = ?", req.Endpoint, username).
			Delete(&model.PushSubscription{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Not this user's endpoint; leave any mappings alone.
			return nil
		}
		return tx.Where("endpoint = ?", req.Endpoint).Delete(&model.SubscriptionMachine{}).Error
	})
	if err != nil {
		log.Printf("Error deleting subscription: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetSubscription returns the machine ids a subscription watches.
func (h *Handler) GetSubscription(c *gin.Context) {
	endpoint := c.Query("endpoint")
	if endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint is required"})
		return
	}
	username := mw.Username(c)

	var subscription model.PushSubscription
	err := h.store.DB().WithContext(c.Request.Context()).
		First(&subscription, "endpoint = ? AND username = ?", endpoint, username).Error
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}
	if err != nil {
		log.Printf("Error fetching subscription: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	var machineIDs []int64
	err = h.store.DB().WithContext(c.Request.Context()).
		Model(&model.SubscriptionMachine{}).
		Where("endpoint = ?", endpoint).
		Pluck("machine_id", &machineIDs).Error
	if err != nil {
		log.Printf("Error fetching subscribed machines: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscribed_machines": machineIDs})
}
