package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/flagkit/pkg/binder"
	"github.com/dmitrymomot/flagkit/pkg/tenant"
	"github.com/dmitrymomot/flagkit/svc/tenants"
)

type tenantPath struct {
	ID uuid.UUID `path:"tenantID"`
}

func (a *API) createTenant(w http.ResponseWriter, r *http.Request) {
	var in tenants.CreateInput
	if err := bind(r, &in, binder.JSON(false)); err != nil {
		a.writeError(w, r, err)
		return
	}
	t, err := a.tenants.Create(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (a *API) listTenants(w http.ResponseWriter, r *http.Request) {
	list, err := a.tenants.List(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[*tenant.Tenant]{Data: list})
}

func (a *API) getTenant(w http.ResponseWriter, r *http.Request) {
	var p tenantPath
	if err := bind(r, &p, binder.Path(chi.URLParam)); err != nil {
		a.writeError(w, r, err)
		return
	}
	t, err := a.tenants.Get(r.Context(), p.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) updateTenant(w http.ResponseWriter, r *http.Request) {
	var (
		p  tenantPath
		in tenants.UpdateInput
	)
	if err := bind(r, &p, binder.Path(chi.URLParam)); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := bind(r, &in, binder.JSON(false)); err != nil {
		a.writeError(w, r, err)
		return
	}
	t, err := a.tenants.Update(r.Context(), p.ID, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) deleteTenant(w http.ResponseWriter, r *http.Request) {
	var p tenantPath
	if err := bind(r, &p, binder.Path(chi.URLParam)); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.tenants.Delete(r.Context(), p.ID); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func currentTenant(r *http.Request) (uuid.UUID, error) {
	id, ok := tenant.IDFromContext(r.Context())
	if !ok {
		return uuid.Nil, tenant.ErrNoTenantInContext
	}
	return id, nil
}
