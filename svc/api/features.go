package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/flagkit/pkg/binder"
	"github.com/dmitrymomot/flagkit/svc/flags"
)

type featurePath struct {
	ID uuid.UUID `path:"featureID"`
}

type listFeaturesQuery struct {
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
	Search string `query:"search"`
}

func (a *API) createFeature(w http.ResponseWriter, r *http.Request) {
	tenantID, err := currentTenant(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var in flags.CreateFeatureInput
	if err := bind(r, &in, binder.JSON(false)); err != nil {
		a.writeError(w, r, err)
		return
	}
	f, err := a.flags.CreateFeature(r.Context(), tenantID, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (a *API) listFeatures(w http.ResponseWriter, r *http.Request) {
	tenantID, err := currentTenant(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var q listFeaturesQuery
	if err := bind(r, &q, binder.Query()); err != nil {
		a.writeError(w, r, err)
		return
	}
	page, err := a.flags.ListFeatures(r.Context(), tenantID, flags.ListFeaturesInput{
		Page:   q.Page,
		Limit:  q.Limit,
		Search: q.Search,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) getFeature(w http.ResponseWriter, r *http.Request) {
	tenantID, err := currentTenant(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var p featurePath
	if err := bind(r, &p, binder.Path(chi.URLParam)); err != nil {
		a.writeError(w, r, err)
		return
	}
	f, err := a.flags.GetFeature(r.Context(), tenantID, p.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (a *API) updateFeature(w http.ResponseWriter, r *http.Request) {
	tenantID, err := currentTenant(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var (
		p  featurePath
		in flags.UpdateFeatureInput
	)
	if err := bind(r, &p, binder.Path(chi.URLParam)); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := bind(r, &in, binder.JSON(false)); err != nil {
		a.writeError(w, r, err)
		return
	}
	f, err := a.flags.UpdateFeature(r.Context(), tenantID, p.ID, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (a *API) removeFeature(w http.ResponseWriter, r *http.Request) {
	tenantID, err := currentTenant(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var p featurePath
	if err := bind(r, &p, binder.Path(chi.URLParam)); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.flags.RemoveFeature(r.Context(), tenantID, p.ID); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
