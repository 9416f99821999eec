package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/flagkit/pkg/binder"
	"github.com/dmitrymomot/flagkit/pkg/feature"
	"github.com/dmitrymomot/flagkit/svc/flags"
)

type flagPath struct {
	FeatureID uuid.UUID           `path:"featureID"`
	Env       feature.Environment `path:"env"`
}

func (a *API) createFlag(w http.ResponseWriter, r *http.Request) {
	tenantID, err := currentTenant(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var (
		p  featurePath
		in flags.CreateFlagInput
	)
	if err := bind(r, &p, binder.Path(chi.URLParam)); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := bind(r, &in, binder.JSON(false)); err != nil {
		a.writeError(w, r, err)
		return
	}
	fl, err := a.flags.CreateFlag(r.Context(), tenantID, p.ID, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", fl.ETag())
	writeJSON(w, http.StatusCreated, fl)
}

func (a *API) listFlags(w http.ResponseWriter, r *http.Request) {
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
	list, err := a.flags.ListFlags(r.Context(), tenantID, p.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[*feature.Flag]{Data: list})
}

func (a *API) getFlag(w http.ResponseWriter, r *http.Request) {
	tenantID, err := currentTenant(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var p flagPath
	if err := bind(r, &p, binder.Path(chi.URLParam)); err != nil {
		a.writeError(w, r, err)
		return
	}
	fl, err := a.flags.GetFlag(r.Context(), tenantID, p.FeatureID, p.Env)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	etag := fl.ETag()
	w.Header().Set("ETag", etag)
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, fl)
}

func (a *API) updateFlag(w http.ResponseWriter, r *http.Request) {
	tenantID, err := currentTenant(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var (
		p  flagPath
		in flags.UpdateFlagInput
	)
	if err := bind(r, &p, binder.Path(chi.URLParam)); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := bind(r, &in, binder.JSON(false)); err != nil {
		a.writeError(w, r, err)
		return
	}

	id, version, conditional, err := parseIfMatch(r.Header.Get("If-Match"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if conditional {
		current, err := a.flags.GetFlag(r.Context(), tenantID, p.FeatureID, p.Env)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		if current.ID != id {
			a.writeError(w, r, errors.Join(flags.ErrPreconditionFailed, errors.New("entity tag refers to another flag")))
			return
		}
		in.IfVersion = version
	}

	fl, err := a.flags.UpdateFlag(r.Context(), tenantID, p.FeatureID, p.Env, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", fl.ETag())
	writeJSON(w, http.StatusOK, fl)
}

func (a *API) removeFlag(w http.ResponseWriter, r *http.Request) {
	tenantID, err := currentTenant(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var p flagPath
	if err := bind(r, &p, binder.Path(chi.URLParam)); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.flags.RemoveFlag(r.Context(), tenantID, p.FeatureID, p.Env); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
