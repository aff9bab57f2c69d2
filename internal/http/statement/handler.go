package statement

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/budget/internal/budget"
	"github.com/MrJamesThe3rd/budget/internal/http/respond"
	"github.com/MrJamesThe3rd/budget/internal/importer"
	"github.com/MrJamesThe3rd/budget/internal/matching"
)

const maxUploadSize = 10 << 20

type Handler struct {
	importSvc *importer.Service
	budgetSvc *budget.Service
	matchSvc  *matching.Service
}

func NewHandler(importSvc *importer.Service, budgetSvc *budget.Service, matchSvc *matching.Service) *Handler {
	return &Handler{
		importSvc: importSvc,
		budgetSvc: budgetSvc,
		matchSvc:  matchSvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importStatement)
	r.Post("/confirm", h.confirmImport)
}

type importSuccessResponse struct {
	Imported int               `json:"imported"`
	Expenses []respond.Expense `json:"expenses"`
}

type conflictDTO struct {
	Incoming respond.ExpenseInput `json:"incoming"`
	Existing respond.Expense      `json:"existing"`
}

type importConflictResponse struct {
	New       []respond.ExpenseInput `json:"new"`
	Conflicts []conflictDTO          `json:"conflicts"`
}

type confirmRequest struct {
	Params []respond.ExpenseInput `json:"params"`
}

func (h *Handler) importStatement(w http.ResponseWriter, r *http.Request) {
	userID, ok := respond.UserID(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respond.Message(w, http.StatusBadRequest, "failed to parse form: "+err.Error())
		return
	}

	format := importer.Format(r.FormValue("format"))
	if format == "" {
		format = importer.FormatCSV
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	params, err := h.importSvc.Import(format, file)
	if err != nil {
		respond.Message(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.applySuggestions(r, userID, params); err != nil {
		respond.Error(w, r, err)
		return
	}

	result, err := h.budgetSvc.ImportBatch(r.Context(), userID, params)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if len(result.Conflicts) > 0 {
		resp := importConflictResponse{
			New:       make([]respond.ExpenseInput, 0, len(result.New)),
			Conflicts: make([]conflictDTO, 0, len(result.Conflicts)),
		}
		for _, p := range result.New {
			resp.New = append(resp.New, respond.ToExpenseInput(p))
		}

		for _, c := range result.Conflicts {
			resp.Conflicts = append(resp.Conflicts, conflictDTO{
				Incoming: respond.ToExpenseInput(c.Incoming),
				Existing: respond.ToExpense(c.Existing),
			})
		}

		respond.JSON(w, http.StatusConflict, resp)

		return
	}

	respond.JSON(w, http.StatusCreated, toSuccessResponse(result.Imported))
}

// applySuggestions rewrites descriptions and categories from the learned
// mappings. A suggested category the user has since deleted is ignored.
func (h *Handler) applySuggestions(r *http.Request, userID string, params []budget.CreateExpenseParams) error {
	if len(params) == 0 {
		return nil
	}

	cats, err := h.budgetSvc.ListCategories(r.Context(), userID)
	if err != nil {
		return err
	}

	h.matchSvc.Apply(r.Context(), userID, params, budget.CategorySet(cats))

	return nil
}

func (h *Handler) confirmImport(w http.ResponseWriter, r *http.Request) {
	userID, ok := respond.UserID(w, r)
	if !ok {
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Message(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	params := make([]budget.CreateExpenseParams, 0, len(req.Params))
	for _, p := range req.Params {
		params = append(params, p.Params())
	}

	es, err := h.budgetSvc.CreateBatch(r.Context(), userID, params)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	h.learn(r, userID, params)

	respond.JSON(w, http.StatusCreated, toSuccessResponse(es))
}

// learn stores the descriptions and categories the user chose for statement
// lines, so the next import of the same merchant is pre-filled.
func (h *Handler) learn(r *http.Request, userID string, params []budget.CreateExpenseParams) {
	for _, p := range params {
		if p.RawDescription == "" || (p.Description == p.RawDescription && p.CategoryID == nil) {
			continue
		}

		sug := matching.Suggestion{Description: p.Description, CategoryID: p.CategoryID}
		if err := h.matchSvc.Learn(r.Context(), userID, p.RawDescription, sug); err != nil {
			slog.WarnContext(r.Context(), "failed to learn mapping", "raw_description", p.RawDescription, "error", err)
		}
	}
}

func toSuccessResponse(es []*budget.Expense) importSuccessResponse {
	return importSuccessResponse{
		Imported: len(es),
		Expenses: respond.ToExpenses(es),
	}
}
