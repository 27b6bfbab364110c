package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mozz-online/mozz-backend/api/middleware"
	"github.com/mozz-online/mozz-backend/api/responses"
	"github.com/mozz-online/mozz-backend/api/validators"
	"github.com/mozz-online/mozz-backend/internal/invitations"
	pkgerrors "github.com/mozz-online/mozz-backend/pkg/errors"
	"github.com/mozz-online/mozz-backend/pkg/logger"
)

// InvitationCreate handles POST /api/invitations. The success body is exactly
// {success, isExistingUser}. When the caller sent a token the inviterId must
// be that caller.
func InvitationCreate(svc invitations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invitation service unavailable"))
			return
		}

		var body invitations.CreateRequest
		if err := validators.DecodeJSON(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		storeID, err := validators.ParseUUIDString("storeId", body.StoreID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inviterID, err := validators.ParseUUIDString("inviterId", body.InviterID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if caller := middleware.UserIDFromContext(r.Context()); caller != "" && inviterID != uuid.Nil && caller != inviterID.String() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "inviterId does not match the signed-in user"))
			return
		}

		result, err := svc.CreateInvitation(r.Context(), invitations.CreateInput{
			StoreID:   storeID,
			Email:     body.Email,
			Role:      body.Role,
			InviterID: inviterID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, result)
	}
}

// InvitationAcceptSignup creates the invitee's account and activates the
// membership. ACCOUNT_EXISTS tells the client to switch to sign-in.
func InvitationAcceptSignup(svc invitations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, storeID, err := decodeCredentials(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		act, err := svc.SignUpAndActivate(r.Context(), body.Email, body.Password, storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, act)
	}
}

func InvitationAcceptSignin(svc invitations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, storeID, err := decodeCredentials(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		act, err := svc.SignInAndActivate(r.Context(), body.Email, body.Password, storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, act)
	}
}

// InvitationAccept activates the signed-in caller's invitation for storeId
// using the email carried by the access token.
func InvitationAccept(svc invitations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body invitations.AcceptRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		storeID, err := uuid.Parse(body.StoreID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid storeId"))
			return
		}
		act, err := svc.AcceptForUser(r.Context(), userID, middleware.EmailFromContext(r.Context()), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, act)
	}
}

func decodeCredentials(r *http.Request) (invitations.CredentialsRequest, uuid.UUID, error) {
	var body invitations.CredentialsRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		return body, uuid.Nil, err
	}
	storeID, err := uuid.Parse(body.StoreID)
	if err != nil {
		return body, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid storeId")
	}
	return body, storeID, nil
}
