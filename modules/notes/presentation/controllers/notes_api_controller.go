package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/arborhq/arbor/modules/notes/domain/entities/note"
	"github.com/arborhq/arbor/modules/notes/domain/placement"
	"github.com/arborhq/arbor/modules/notes/domain/value_objects/order"
	"github.com/arborhq/arbor/modules/notes/services"
	"github.com/arborhq/arbor/pkg/application"
	"github.com/arborhq/arbor/pkg/composables"
)

type NotesAPIController struct {
	app       application.Application
	tree      *services.TreeService
	projects  *services.ProjectService
	importer  *services.ImportService
	apiPrefix string
}

func NewNotesAPIController(app application.Application) application.Controller {
	return &NotesAPIController{
		app:       app,
		tree:      app.Service(services.TreeService{}).(*services.TreeService),
		projects:  app.Service(services.ProjectService{}).(*services.ProjectService),
		importer:  app.Service(services.ImportService{}).(*services.ImportService),
		apiPrefix: "/notes/api",
	}
}

func (c *NotesAPIController) Key() string {
	return c.apiPrefix
}

func (c *NotesAPIController) Register(r *mux.Router) {
	api := r.PathPrefix(c.apiPrefix).Subrouter()

	api.HandleFunc("/projects", c.CreateProject).Methods(http.MethodPost)
	api.HandleFunc("/projects", c.ListProjects).Methods(http.MethodGet)
	api.HandleFunc("/projects/{projectID}", c.RenameProject).Methods(http.MethodPatch)
	api.HandleFunc("/projects/{projectID}", c.DeleteProject).Methods(http.MethodDelete)
	api.HandleFunc("/projects/{projectID}/tree", c.GetTree).Methods(http.MethodGet)
	api.HandleFunc("/projects/{projectID}/notes", c.CreateNote).Methods(http.MethodPost)
	api.HandleFunc("/projects/{projectID}/import", c.StartImport).Methods(http.MethodPost)

	api.HandleFunc("/notes/{id}", c.UpdateNote).Methods(http.MethodPatch)
	api.HandleFunc("/notes/{id}", c.DeleteNote).Methods(http.MethodDelete)
	api.HandleFunc("/notes/{id}/move", c.MoveNote).Methods(http.MethodPost)

	api.HandleFunc("/imports/{handle}", c.GetImportStatus).Methods(http.MethodGet)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}

// writeServiceError keeps the caller-facing distinction between structural
// violations, stale client state and transient failures.
func writeServiceError(w http.ResponseWriter, err error) {
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		writeAPIError(w, svcErr.Status, svcErr.Code, svcErr.Message)
		return
	}
	if errors.Is(err, services.ErrImportNotFound) {
		writeAPIError(w, http.StatusNotFound, "IMPORT_NOT_FOUND", "import handle unknown or expired")
		return
	}
	writeAPIError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
}

// requireUser resolves the authenticated caller; authentication itself is an
// upstream concern.
func requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := composables.UseUserID(r.Context())
	if !ok {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
		return uuid.Nil, false
	}
	return userID, true
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)[name])
}

func (c *NotesAPIController) CreateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_BODY", "malformed JSON body")
		return
	}
	p, err := c.projects.Create(r.Context(), userID, req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectResponse(p))
}

func (c *NotesAPIController) ListProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	projects, err := c.projects.ListByOwner(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, toProjectResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (c *NotesAPIController) RenameProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	projectID, err := pathUUID(r, "projectID")
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_ID", "project id is not a uuid")
		return
	}
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_BODY", "malformed JSON body")
		return
	}
	p, err := c.projects.Rename(r.Context(), projectID, userID, req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(p))
}

func (c *NotesAPIController) DeleteProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	projectID, err := pathUUID(r, "projectID")
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_ID", "project id is not a uuid")
		return
	}
	if err := c.projects.Delete(r.Context(), projectID, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *NotesAPIController) GetTree(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	projectID, err := pathUUID(r, "projectID")
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_ID", "project id is not a uuid")
		return
	}
	if _, err := c.projects.GetOwned(r.Context(), projectID, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	notes, err := c.tree.Tree(r.Context(), projectID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]NoteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, toNoteResponse(n))
	}
	writeJSON(w, http.StatusOK, out)
}

func (c *NotesAPIController) CreateNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	projectID, err := pathUUID(r, "projectID")
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_ID", "project id is not a uuid")
		return
	}
	if _, err := c.projects.GetOwned(r.Context(), projectID, userID); err != nil {
		writeServiceError(w, err)
		return
	}

	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_BODY", "malformed JSON body")
		return
	}

	input := services.CreateNoteInput{
		ProjectID:  projectID,
		ParentID:   req.ParentID,
		Content:    req.Content,
		Link:       req.Link,
		MediaRef:   req.MediaRef,
		TimeMarker: req.TimeMarker,
		Discussion: req.Discussion,
		Images:     req.Images,
	}
	if req.Order != nil {
		key := order.FromFloat64(*req.Order)
		input.ExplicitOrder = &key
	}

	n, err := c.tree.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toNoteResponse(n))
}

func (c *NotesAPIController) UpdateNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	n, ok := c.ownedNote(w, r, userID)
	if !ok {
		return
	}

	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_BODY", "malformed JSON body")
		return
	}

	updated, err := c.tree.UpdateContent(r.Context(), n.ID(), req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toNoteResponse(updated))
}

func (c *NotesAPIController) MoveNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	n, ok := c.ownedNote(w, r, userID)
	if !ok {
		return
	}

	var req MoveNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_BODY", "malformed JSON body")
		return
	}

	p, perr := resolvePlacement(req)
	if perr != "" {
		writeAPIError(w, http.StatusBadRequest, "INVALID_PLACEMENT", perr)
		return
	}

	moved, err := c.tree.Move(r.Context(), n.ID(), p)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toNoteResponse(moved))
}

// resolvePlacement turns the request into a service placement, classifying
// raw drag geometry when no explicit intent was sent.
func resolvePlacement(req MoveNoteRequest) (services.Placement, string) {
	if req.Geometry != nil {
		if req.Intent != "" {
			return services.Placement{}, "send either intent or geometry, not both"
		}
		g := req.Geometry
		intent := placement.Resolve(placement.Rect{
			X:      g.Rect.X,
			Y:      g.Rect.Y,
			Width:  g.Rect.Width,
			Height: g.Rect.Height,
		}, g.PointerX, g.PointerY)

		target := g.TargetID
		switch intent {
		case placement.Before, placement.After:
			return services.Placement{Intent: intent, SiblingID: target}, ""
		default:
			return services.Placement{Intent: intent, ParentID: &target}, ""
		}
	}

	intent := placement.Intent(req.Intent)
	if !intent.IsValid() {
		return services.Placement{}, "intent must be one of before, after, append-child, prepend-child"
	}
	switch intent {
	case placement.Before, placement.After:
		if req.SiblingID == nil {
			return services.Placement{}, "sibling_id is required for before/after"
		}
		return services.Placement{Intent: intent, SiblingID: *req.SiblingID}, ""
	default:
		return services.Placement{Intent: intent, ParentID: req.ParentID}, ""
	}
}

func (c *NotesAPIController) DeleteNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	n, ok := c.ownedNote(w, r, userID)
	if !ok {
		return
	}

	if r.URL.Query().Get("promote") == "true" {
		promoted, err := c.tree.DeleteAndPromote(r.Context(), n.ID())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, DeleteNoteResponse{Removed: 1, Promoted: promoted})
		return
	}

	removed, err := c.tree.DeleteSubtree(r.Context(), n.ID())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteNoteResponse{Removed: removed})
}

func (c *NotesAPIController) StartImport(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	projectID, err := pathUUID(r, "projectID")
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_ID", "project id is not a uuid")
		return
	}
	if _, err := c.projects.GetOwned(r.Context(), projectID, userID); err != nil {
		writeServiceError(w, err)
		return
	}

	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_BODY", "malformed JSON body")
		return
	}
	if len(req.Records) == 0 {
		writeAPIError(w, http.StatusBadRequest, "IMPORT_EMPTY", "records must not be empty")
		return
	}

	handle, err := c.importer.Start(r.Context(), projectID, req.Records)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ImportStartedResponse{Handle: handle})
}

func (c *NotesAPIController) GetImportStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	status, err := c.importer.Status(r.Context(), mux.Vars(r)["handle"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// ownedNote loads the note addressed by {id} and verifies the caller owns
// its project.
func (c *NotesAPIController) ownedNote(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*note.Note, bool) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_ID", "note id is not a uuid")
		return nil, false
	}
	n, err := c.tree.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	if _, err := c.projects.GetOwned(r.Context(), n.ProjectID(), userID); err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	return n, true
}
