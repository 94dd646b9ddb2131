package handlers

import (
	"net/http"

	"timekeeper/logger"
	"timekeeper/middleware"
	"timekeeper/models"

	"gorm.io/gorm"
)

// ManagerHandler maintains which clients each manager approves for.
type ManagerHandler struct {
	db *gorm.DB
}

func NewManagerHandler(db *gorm.DB) *ManagerHandler {
	return &ManagerHandler{db: db}
}

type AssignManagerRequest struct {
	ManagerID uint `json:"manager_id" validate:"required"`
	ClientID  uint `json:"client_id" validate:"required"`
}

func (h *ManagerHandler) List(w http.ResponseWriter, r *http.Request) {
	query := h.db.WithContext(r.Context()).Preload("Manager").Preload("Client").Order("client_id").Order("manager_id")
	clientID, err := queryUint(r, "client_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if clientID != 0 {
		query = query.Where("client_id = ?", clientID)
	}

	var assignments []models.ClientManager
	if err := query.Find(&assignments).Error; err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assignments)
}

// Assign makes a manager an approver for a client.
func (h *ManagerHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignManagerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	db := h.db.WithContext(r.Context())

	var manager models.Employee
	if err := db.First(&manager, req.ManagerID).Error; err != nil {
		writeError(w, r, badRequest("employee %d not found", req.ManagerID))
		return
	}
	if !manager.IsManager() {
		writeError(w, r, badRequest("employee %d is not a manager", req.ManagerID))
		return
	}
	var client models.Client
	if err := db.First(&client, req.ClientID).Error; err != nil {
		writeError(w, r, badRequest("client %d not found", req.ClientID))
		return
	}

	var existingCount int64
	if err := db.Model(&models.ClientManager{}).
		Where("manager_id = ? AND client_id = ?", req.ManagerID, req.ClientID).
		Count(&existingCount).Error; err != nil {
		writeError(w, r, err)
		return
	}
	if existingCount > 0 {
		writeError(w, r, badRequest("assignment already exists"))
		return
	}

	assignment := models.ClientManager{ManagerID: manager.ID, ClientID: client.ID}
	if err := db.Create(&assignment).Error; err != nil {
		writeError(w, r, err)
		return
	}
	assignment.Manager = &manager
	assignment.Client = &client

	logger.FromContext(r.Context()).Info().
		Uint("manager_id", manager.ID).
		Uint("client_id", client.ID).
		Uint("by", middleware.GetUserFromContext(r.Context()).ID).
		Msg("manager assigned")
	writeJSON(w, http.StatusCreated, assignment)
}

func (h *ManagerHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	res := h.db.WithContext(r.Context()).Delete(&models.ClientManager{}, id)
	if res.Error != nil {
		writeError(w, r, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "assignment not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
