package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mozz-online/mozz-backend/api/middleware"
	"github.com/mozz-online/mozz-backend/api/validators"
	pkgerrors "github.com/mozz-online/mozz-backend/pkg/errors"
)

func callerID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return id, nil
}

// storeScope resolves the caller and the {storeId} path parameter.
func storeScope(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	userID, err := callerID(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	storeID, err := validators.ParseUUIDParam(r, middleware.StoreIDParam)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, storeID, nil
}
