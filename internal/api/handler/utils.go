package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"labdesk/internal/api/middleware"
	"labdesk/internal/common"
	"labdesk/internal/domain/model"
)

// Middleware is how handlers receive the authenticator for their private routes.
type Middleware func(http.Handler) http.Handler

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}

func currentUser(w http.ResponseWriter, r *http.Request) (*model.CurrentUser, bool) {
	cu, ok := middleware.GetCurrentUserFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return nil, false
	}
	return cu, true
}

// listQueryFromRequest reads search, sort_by, order, page and page_size.
func listQueryFromRequest(r *http.Request) (model.ListQuery, error) {
	v := r.URL.Query()
	q := model.ListQuery{
		Search: v.Get("search"),
		SortBy: v.Get("sort_by"),
		Order:  v.Get("order"),
	}
	fields := map[string]string{}
	if s := v.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			fields["page"] = "must be a number"
		}
		q.Page = n
	}
	if s := v.Get("page_size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			fields["page_size"] = "must be a number"
		}
		q.PageSize = n
	}
	if q.Order != "" && q.Order != model.SortAsc && q.Order != model.SortDesc {
		fields["order"] = "must be one of: asc, desc"
	}
	if len(fields) > 0 {
		return q, &common.ValidationError{Fields: fields}
	}
	return q, nil
}
