package http

import (
	"encoding/json"

	nethttp "net/http"

	"github.com/hankgpa/gpa-live/internal/course"
)

// ListRulesHandler handles GET /api/rules.
func (app *App) ListRulesHandler() nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		rules, err := app.Store.ListRules(r.Context())
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, rules)
	}
}

// ReplaceRulesHandler handles PUT /api/rules. The whole table is swapped
// atomically and every affected owner's live view is refreshed.
func (app *App) ReplaceRulesHandler() nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var rules []course.RuleRange
		if err := json.NewDecoder(r.Body).Decode(&rules); err != nil {
			writeError(w, nethttp.StatusBadRequest, "bad json")
			return
		}
		changed, err := app.Store.ReplaceRules(r.Context(), rules)
		if err != nil {
			storeError(w, err)
			return
		}
		app.logMutation(r.Context(), identityFromRequest(r), "RulesReplaced", "", rules)
		for _, owner := range changed {
			app.pushView(r.Context(), owner)
		}
		w.WriteHeader(nethttp.StatusNoContent)
	}
}
