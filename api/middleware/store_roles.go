package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mozz-online/mozz-backend/api/responses"
	"github.com/mozz-online/mozz-backend/pkg/enums"
	pkgerrors "github.com/mozz-online/mozz-backend/pkg/errors"
	"github.com/mozz-online/mozz-backend/pkg/logger"
)

// StoreIDParam is the chi URL parameter carrying the store id.
const StoreIDParam = "storeId"

type MembershipChecker interface {
	UserHasRole(ctx context.Context, userID, storeID uuid.UUID, roles ...enums.MemberRole) (bool, error)
}

// RequireStoreRoles admits callers holding an active membership in the
// {storeId} store with one of the allowed roles. With no roles listed any
// active member passes.
func RequireStoreRoles(checker MembershipChecker, logg *logger.Logger, allowed ...enums.MemberRole) func(http.Handler) http.Handler {
	if len(allowed) == 0 {
		allowed = []enums.MemberRole{enums.MemberRoleOwner, enums.MemberRoleChef}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if checker == nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "membership checker unavailable"))
				return
			}

			uid, err := uuid.Parse(UserIDFromContext(ctx))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
				return
			}

			sid, err := uuid.Parse(chi.URLParam(r, StoreIDParam))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store id"))
				return
			}

			ok, err := checker.UserHasRole(ctx, uid, sid, allowed...)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership role"))
				return
			}
			if !ok {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "You are not a member of this store"))
				return
			}

			ctx = WithStoreID(ctx, sid.String())
			if len(allowed) == 1 {
				ctx = withRole(ctx, allowed[0].String())
			}
			if logg != nil {
				ctx = logg.WithStoreID(ctx, sid.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
