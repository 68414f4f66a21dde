package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mechinsight-backend/internal/model"
	"mechinsight-backend/internal/mw"
	"mechinsight-backend/internal/store"
)

// Caps on the telemetry slices served to dashboards.
const (
	latestCap    = 50
	historyLimit = 40
)

// machineDetailsResponse is the shape for POST /machine_details.
type machineDetailsResponse struct {
	Username      string                  `json:"username"`
	Machines      []model.TelemetrySample `json:"machines"`
	TotalCount    int                     `json:"totalCount"`
	ReturnedCount int                     `json:"returnedCount"`
}

// MachineDetails handles POST /machine_details: resolve the machines the
// authenticated user owns, then return the newest sample per machine.
func (h *Handler) MachineDetails(c *gin.Context) {
	username := mw.Username(c)
	if username == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	machineIDs, err := h.store.ResolveOwnedMachines(c.Request.Context(), username)
	if err == store.ErrNoMachines {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no machines found for this username"})
		return
	}
	if err != nil {
		log.Printf("Error resolving machines for %q: %v", username, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	samples, err := h.store.LatestPerMachine(c.Request.Context(), machineIDs, latestCap)
	if err != nil {
		log.Printf("Error fetching latest samples for %q: %v", username, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, machineDetailsResponse{
		Username:      username,
		Machines:      samples,
		TotalCount:    len(machineIDs),
		ReturnedCount: len(samples),
	})
}

// machineHistoryResponse is the shape for GET /machine_details/:machineId.
type machineHistoryResponse struct {
	MachineID      int64                   `json:"machineId"`
	Username       string                  `json:"username"`
	TimeSeriesData []model.TelemetrySample `json:"timeSeriesData"`
	DataPoints     int                     `json:"dataPoints"`
}

// MachineHistory handles GET /machine_details/:machineId. Ownership is
// checked first; a machine that does not exist and a machine owned by
// someone else get the same 403.
func (h *Handler) MachineHistory(c *gin.Context) {
	machineID, err := strconv.ParseInt(c.Param("machineId"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid machine id"})
		return
	}
	username := mw.Username(c)

	authorized, err := h.store.AuthorizeMachineAccess(c.Request.Context(), username, machineID)
	if err != nil {
		log.Printf("Error authorizing %q for machine %d: %v", username, machineID, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if !authorized {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied or machine not found"})
		return
	}

	samples, err := h.store.History(c.Request.Context(), machineID, historyLimit)
	if err == store.ErrNoTelemetry {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no data found for this machine"})
		return
	}
	if err != nil {
		log.Printf("Error fetching history for machine %d: %v", machineID, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, machineHistoryResponse{
		MachineID:      machineID,
		Username:       username,
		TimeSeriesData: samples,
		DataPoints:     len(samples),
	})
}
