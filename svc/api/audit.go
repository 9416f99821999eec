package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/flagkit/pkg/audit"
	"github.com/dmitrymomot/flagkit/pkg/binder"
)

type auditQuery struct {
	Page       int              `query:"page"`
	Limit      int              `query:"limit"`
	Action     audit.Action     `query:"action"`
	EntityType audit.EntityType `query:"entityType"`
	EntityID   uuid.UUID        `query:"entityId"`
	ActorID    string           `query:"actorId"`
}

func (a *API) listAuditLogs(w http.ResponseWriter, r *http.Request) {
	tenantID, err := currentTenant(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var q auditQuery
	if err := bind(r, &q, binder.Query()); err != nil {
		a.writeError(w, r, err)
		return
	}
	page, err := a.auditReader.Find(r.Context(), audit.Criteria{
		TenantID:   tenantID,
		Action:     q.Action,
		EntityType: q.EntityType,
		EntityID:   q.EntityID,
		ActorID:    q.ActorID,
		Page:       q.Page,
		Limit:      q.Limit,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
