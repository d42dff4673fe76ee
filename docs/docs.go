// Package docs Activities API.
//
// Documentation of the Activities API.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//     Host: https://activities-api.herokuapp.com
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
//     Security:
//     - bearer
//
//    SecurityDefinitions:
//    bearer:
//      type: apiKey
//      name: Authorization
//      in: header
//
// swagger:meta
package docs

import (
	"github.com/linesmerrill/activities-api/api/handlers"
	"github.com/linesmerrill/activities-api/membership"
	"github.com/linesmerrill/activities-api/models"
)

// swagger:route GET /health health healthEndpointID
// Lists the healthchex of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route GET /api/v1/activity/{activity_id} activity activityByID
// Gets a single activity by ID as seen by the caller.
// responses:
//   200: activityResponse
//   404: errorResponse

// Shows a single activity with the caller's participation fields
// swagger:response activityResponse
type activityResponseWrapper struct {
	// in:body
	Body membership.ActivityView
}

// swagger:route GET /api/v1/activities activity activities
// Lists activities by category, upcoming first.
// responses:
//   200: activityListResponse

// A page of activities
// swagger:response activityListResponse
type activityListResponseWrapper struct {
	// in:body
	Body handlers.ActivityList
}

// swagger:route POST /api/v1/activity/{activity_id}/invitations activity inviteUsers
// Invites users to an activity, creator only.
// responses:
//   200: inviteResponse
//   403: errorResponse

// The users that got a new invitation
// swagger:response inviteResponse
type inviteResponseWrapper struct {
	// in:body
	Body handlers.InviteResponse
}

// An error with a machine readable code
// swagger:response errorResponse
type errorResponseWrapper struct {
	// in:body
	Body models.ErrorMessageResponse
}
