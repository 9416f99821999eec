package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/flagkit/pkg/binder"
	"github.com/dmitrymomot/flagkit/pkg/feature"
	"github.com/dmitrymomot/flagkit/svc/flags"
)

type evaluateQuery struct {
	Env feature.Environment `query:"env"`
}

type evaluatePath struct {
	FeatureKey string `path:"featureKey"`
}

// evaluate answers with a usable result even when evaluation fails; the
// failure is logged by the service and the flag reads as disabled.
func (a *API) evaluate(w http.ResponseWriter, r *http.Request) {
	tenantID, err := currentTenant(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var (
		p    evaluatePath
		q    evaluateQuery
		ectx feature.EvaluationContext
	)
	if err := bind(r, &p, binder.Path(chi.URLParam)); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := bind(r, &q, binder.Query()); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := bind(r, &ectx, binder.JSON(true)); err != nil {
		a.writeError(w, r, err)
		return
	}
	if q.Env == "" {
		q.Env = feature.EnvProd
	}

	res, err := a.flags.Evaluate(r.Context(), tenantID, p.FeatureKey, q.Env, ectx)
	if err != nil && errors.Is(err, flags.ErrValidation) {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) promote(w http.ResponseWriter, r *http.Request) {
	tenantID, err := currentTenant(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var in flags.PromoteInput
	if err := bind(r, &in, binder.JSON(false)); err != nil {
		a.writeError(w, r, err)
		return
	}
	res, err := a.flags.Promote(r.Context(), tenantID, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
