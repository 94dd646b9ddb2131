package handlers

import (
	"net/http"
	"strings"

	"timekeeper/models"

	"gorm.io/gorm"
)

// ClientHandler covers clients and their projects. Reads are open to every
// signed-in employee; writes are mounted behind the admin role.
type ClientHandler struct {
	db *gorm.DB
}

func NewClientHandler(db *gorm.DB) *ClientHandler {
	return &ClientHandler{db: db}
}

type ClientRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	IsActive *bool  `json:"is_active"`
}

type ProjectRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	ClientID *uint  `json:"client_id"`
	IsActive *bool  `json:"is_active"`
}

func (h *ClientHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	query := h.db.WithContext(r.Context()).Order("name")
	if !queryBool(r, "all") {
		query = query.Where("is_active = ?", true)
	}
	var clients []models.Client
	if err := query.Find(&clients).Error; err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

func (h *ClientHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req ClientRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	client := models.Client{Name: strings.TrimSpace(req.Name), IsActive: true}
	if err := h.create(r, &client, "clients", client.Name); err != nil {
		writeError(w, r, err)
		return
	}
	if req.IsActive != nil && !*req.IsActive {
		if err := h.db.WithContext(r.Context()).Model(&client).Update("is_active", false).Error; err != nil {
			writeError(w, r, err)
			return
		}
		client.IsActive = false
	}
	writeJSON(w, http.StatusCreated, client)
}

func (h *ClientHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req ClientRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	updates := map[string]interface{}{"name": strings.TrimSpace(req.Name)}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	var client models.Client
	if err := h.update(r, &client, "clients", id, updates); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (h *ClientHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	query := h.db.WithContext(r.Context()).Preload("Client").Order("name")
	if !queryBool(r, "all") {
		query = query.Where("is_active = ?", true)
	}
	clientID, err := queryUint(r, "client_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if clientID != 0 {
		query = query.Where("client_id = ?", clientID)
	}
	var projects []models.Project
	if err := query.Find(&projects).Error; err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *ClientHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := checkClient(r, h.db, req.ClientID); err != nil {
		writeError(w, r, err)
		return
	}
	project := models.Project{Name: strings.TrimSpace(req.Name), ClientID: req.ClientID, IsActive: true}
	if err := h.create(r, &project, "projects", project.Name); err != nil {
		writeError(w, r, err)
		return
	}
	if req.IsActive != nil && !*req.IsActive {
		if err := h.db.WithContext(r.Context()).Model(&project).Update("is_active", false).Error; err != nil {
			writeError(w, r, err)
			return
		}
		project.IsActive = false
	}
	writeJSON(w, http.StatusCreated, project)
}

func (h *ClientHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req ProjectRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := checkClient(r, h.db, req.ClientID); err != nil {
		writeError(w, r, err)
		return
	}
	updates := map[string]interface{}{"name": strings.TrimSpace(req.Name), "client_id": req.ClientID}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	var project models.Project
	if err := h.update(r, &project, "projects", id, updates); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// checkClient accepts a nil id or the id of an existing client.
func checkClient(r *http.Request, db *gorm.DB, clientID *uint) error {
	if clientID == nil {
		return nil
	}
	var count int64
	if err := db.WithContext(r.Context()).Model(&models.Client{}).Where("id = ?", *clientID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return badRequest("unknown client %d", *clientID)
	}
	return nil
}

// create inserts v after checking the unique name is free.
func (h *ClientHandler) create(r *http.Request, v interface{}, table, name string) error {
	db := h.db.WithContext(r.Context())
	var count int64
	if err := db.Table(table).Where("name = ?", name).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return badRequest("name %q is taken", name)
	}
	return db.Create(v).Error
}

func (h *ClientHandler) update(r *http.Request, v interface{}, table string, id uint, updates map[string]interface{}) error {
	db := h.db.WithContext(r.Context())
	if err := db.First(v, id).Error; err != nil {
		return notFound(err, table)
	}
	var count int64
	if err := db.Table(table).Where("name = ? AND id <> ?", updates["name"], id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return badRequest("name %q is taken", updates["name"])
	}
	if err := db.Model(v).Updates(updates).Error; err != nil {
		return err
	}
	return db.First(v, id).Error
}
