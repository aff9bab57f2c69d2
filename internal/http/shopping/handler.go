package shopping

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/budget/internal/http/respond"
	"github.com/MrJamesThe3rd/budget/internal/shopping"
)

type Handler struct {
	svc *shopping.Service
}

func NewHandler(svc *shopping.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.lists)
	r.Post("/", h.createList)
	r.Delete("/{id}", h.deleteList)
	r.Post("/{id}/items", h.addItem)
	r.Patch("/items/{id}", h.updateItem)
	r.Delete("/items/{id}", h.deleteItem)
}

type listResponse struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	IsRecurring bool           `json:"isRecurring"`
	Items       []itemResponse `json:"items"`
	CreatedAt   time.Time      `json:"createdAt"`
}

type itemResponse struct {
	ID          uuid.UUID `json:"id"`
	ListID      uuid.UUID `json:"listId"`
	Name        string    `json:"name"`
	Quantity    string    `json:"quantity"`
	IsCompleted bool      `json:"isCompleted"`
	CreatedAt   time.Time `json:"createdAt"`
}

type createListRequest struct {
	Name        string `json:"name"`
	IsRecurring bool   `json:"isRecurring"`
}

type createItemRequest struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

type updateItemRequest struct {
	Name        *string `json:"name"`
	Quantity    *string `json:"quantity"`
	IsCompleted *bool   `json:"isCompleted"`
}

func toItem(i *shopping.Item) itemResponse {
	return itemResponse{
		ID:          i.ID,
		ListID:      i.ListID,
		Name:        i.Name,
		Quantity:    i.Quantity,
		IsCompleted: i.IsCompleted,
		CreatedAt:   i.CreatedAt,
	}
}

func toList(l *shopping.List) listResponse {
	resp := listResponse{
		ID:          l.ID,
		Name:        l.Name,
		IsRecurring: l.IsRecurring,
		Items:       make([]itemResponse, len(l.Items)),
		CreatedAt:   l.CreatedAt,
	}
	for i, item := range l.Items {
		resp.Items[i] = toItem(item)
	}

	return resp
}

func (h *Handler) lists(w http.ResponseWriter, r *http.Request) {
	userID, ok := respond.UserID(w, r)
	if !ok {
		return
	}

	lists, err := h.svc.Lists(r.Context(), userID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]listResponse, len(lists))
	for i, l := range lists {
		resp[i] = toList(l)
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) createList(w http.ResponseWriter, r *http.Request) {
	userID, ok := respond.UserID(w, r)
	if !ok {
		return
	}

	var req createListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Message(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	l, err := h.svc.CreateList(r.Context(), userID, shopping.CreateListParams{
		Name:        req.Name,
		IsRecurring: req.IsRecurring,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toList(l))
}

func (h *Handler) deleteList(w http.ResponseWriter, r *http.Request) {
	userID, ok := respond.UserID(w, r)
	if !ok {
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteList(r.Context(), userID, id); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := respond.UserID(w, r)
	if !ok {
		return
	}

	listID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Message(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	item, err := h.svc.AddItem(r.Context(), userID, listID, shopping.CreateItemParams{
		Name:     req.Name,
		Quantity: req.Quantity,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toItem(item))
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := respond.UserID(w, r)
	if !ok {
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Message(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	item, err := h.svc.UpdateItem(r.Context(), userID, id, shopping.UpdateItemParams{
		Name:        req.Name,
		Quantity:    req.Quantity,
		IsCompleted: req.IsCompleted,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toItem(item))
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := respond.UserID(w, r)
	if !ok {
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteItem(r.Context(), userID, id); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}

	return id, true
}
