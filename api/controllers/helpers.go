package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/sportshub-backend/api/middleware"
	"github.com/angelmondragon/sportshub-backend/api/validators"
	"github.com/angelmondragon/sportshub-backend/internal/rentals"
	"github.com/angelmondragon/sportshub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sportshub-backend/pkg/errors"
)

func requireUser(r *http.Request) (uuid.UUID, error) {
	userID, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return userID, nil
}

func actorFrom(r *http.Request) (rentals.Actor, error) {
	userID, err := requireUser(r)
	if err != nil {
		return rentals.Actor{}, err
	}
	return rentals.Actor{
		UserID:  userID,
		IsAdmin: middleware.RoleFromContext(r.Context()) == string(enums.UserRoleAdmin),
	}, nil
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	return validators.ParseUUIDParam(chi.URLParam(r, param), param)
}
