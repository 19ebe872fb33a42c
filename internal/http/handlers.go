package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"weddingbudget/internal/log"
	"weddingbudget/internal/snapshot"
)

func userID(r *http.Request) string {
	return chi.URLParam(r, "uid")
}

func recordID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// fail writes the mapped service error and logs the unexpected ones.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ServiceError(err)
	if resp.statusCode >= http.StatusInternalServerError {
		fields := log.NewFields().WithUser(userID(r))
		s.httpLog.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op, fields)
	}
	resp.Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Dashboard(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(toSummaryJSON(summary)).Write(w)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	groups, err := s.svc.Ledger(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(toLedgerJSON(groups)).Write(w)
}

// Vendors

func (s *Server) handleListVendors(w http.ResponseWriter, r *http.Request) {
	if grouped, _ := strconv.ParseBool(r.URL.Query().Get("grouped")); grouped {
		groups, err := s.svc.VendorGroups(r.Context(), userID(r))
		if err != nil {
			s.fail(w, r, log.OpList, err)
			return
		}
		NewJSONResponse().Body(toVendorGroupsJSON(groups)).Write(w)
		return
	}
	vendors, err := s.svc.ListVendors(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(toVendorsJSON(vendors)).Write(w)
}

func (s *Server) handleGetVendor(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.GetVendor(r.Context(), userID(r), recordID(r))
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(toVendorJSON(v)).Write(w)
}

func (s *Server) handleCreateVendor(w http.ResponseWriter, r *http.Request) {
	var req vendorRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	v, err := req.toVendor()
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	created, err := s.svc.CreateVendor(r.Context(), userID(r), v)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toVendorJSON(created)).Write(w)
}

func (s *Server) handleUpdateVendor(w http.ResponseWriter, r *http.Request) {
	var req vendorRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	v, err := req.toVendor()
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	updated, err := s.svc.UpdateVendor(r.Context(), userID(r), recordID(r), v)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(toVendorJSON(updated)).Write(w)
}

func (s *Server) handleDeleteVendor(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteVendor(r.Context(), userID(r), recordID(r)); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleVendorProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.VendorProgress(r.Context(), userID(r), recordID(r))
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(toProgressJSON(p)).Write(w)
}

func (s *Server) handleVendorLedger(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.VendorLedger(r.Context(), userID(r), recordID(r))
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(toLedgerEntriesJSON(entries)).Write(w)
}

// Expenses

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.svc.ListExpenses(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(toExpensesJSON(expenses)).Write(w)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	e, err := req.toExpense()
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	created, err := s.svc.AddExpense(r.Context(), userID(r), e)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toExpenseJSON(created)).Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	e, err := req.toExpense()
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	updated, err := s.svc.UpdateExpense(r.Context(), userID(r), recordID(r), e)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(toExpenseJSON(updated)).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteExpense(r.Context(), userID(r), recordID(r)); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// Contributions

func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	cs, err := s.svc.ListContributions(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(toContributionsJSON(cs)).Write(w)
}

func (s *Server) handleAddContribution(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	c, err := req.toContribution()
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	created, err := s.svc.AddContribution(r.Context(), userID(r), c)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toContributionJSON(created)).Write(w)
}

func (s *Server) handleUpdateContribution(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	c, err := req.toContribution()
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	updated, err := s.svc.UpdateContribution(r.Context(), userID(r), recordID(r), c)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(toContributionJSON(updated)).Write(w)
}

// Selections

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.GetSelection(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(toSelectionJSON(m)).Write(w)
}

func (s *Server) handleToggleSelection(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	m, err := s.svc.ToggleSelection(r.Context(), userID(r), sanitizeInput(req.ServiceType), sanitizeInput(req.VendorID))
	if err != nil {
		s.fail(w, r, log.OpToggle, err)
		return
	}
	NewJSONResponse().Body(toSelectionJSON(m)).Write(w)
}

// handleReplaceSelection accepts both the array form and the legacy
// single-id form per service type.
func (s *Server) handleReplaceSelection(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := DecodeJSON(w, r, &raw); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		BadRequestError("selection must be a JSON object").Write(w)
		return
	}
	m, err := s.svc.ReplaceSelection(r.Context(), userID(r), snapshot.DecodeSelection(raw, snapshot.Options{}))
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(toSelectionJSON(m)).Write(w)
}

func (s *Server) handleCleanupOrphans(w http.ResponseWriter, r *http.Request) {
	removed, err := s.svc.CleanupOrphans(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, log.OpCleanup, err)
		return
	}
	NewJSONResponse().Body(map[string]int{"removed": removed}).Write(w)
}
