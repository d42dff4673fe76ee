package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/linesmerrill/activities-api/api"
	"github.com/linesmerrill/activities-api/api/scheduler"
	"github.com/linesmerrill/activities-api/config"
	"github.com/linesmerrill/activities-api/databases"
	"github.com/linesmerrill/activities-api/databases/memdb"
	"github.com/linesmerrill/activities-api/membership"
	"github.com/linesmerrill/activities-api/models"
	"github.com/linesmerrill/activities-api/notify"
	"github.com/linesmerrill/activities-api/payments"
)

const connectTimeout = 10 * time.Second

// App stores the router and its collaborators, so they can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	Engine    *membership.Engine
	Hub       *notify.Hub
	Notifier  *notify.Fanout
	Payments  payments.Gateway
	Locks     databases.SchedulerLockDatabase
	Scheduler *scheduler.Scheduler
	client    databases.ClientHelper
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	guard := api.NewGuard(a.Config.JWTSecret, a.Config.TokenCacheTTL)
	timeout := a.Config.RequestTimeout
	if timeout <= 0 {
		timeout = api.QueryTimeout
	}
	protected := func(h http.HandlerFunc) http.Handler {
		return api.TimeoutMiddleware(timeout)(guard.Middleware(h))
	}

	r := mux.NewRouter()
	r.Use(api.MetricsMiddleware)

	act := Activity{Engine: a.Engine}
	u := User{Engine: a.Engine}
	checkout := Checkout{Engine: a.Engine, Payments: a.Payments, BaseURL: a.Config.BaseURL}
	cloudinaryHandler := CloudinaryHandler{
		CloudName: a.Config.CloudinaryCloudName,
		APIKey:    a.Config.CloudinaryAPIKey,
		APISecret: a.Config.CloudinaryAPISecret,
	}
	n := Notification{Hub: a.Hub}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	apiCreate.Handle("/activity", protected(act.CreateActivityHandler)).Methods("POST")
	apiCreate.Handle("/activity/{activity_id}", protected(act.ActivityByIDHandler)).Methods("GET")
	apiCreate.Handle("/activity/{activity_id}", protected(act.UpdateActivityHandler)).Methods("PATCH")
	apiCreate.Handle("/activity/{activity_id}", protected(act.DeleteActivityHandler)).Methods("DELETE")
	apiCreate.Handle("/activity/{activity_id}/join", protected(act.JoinActivityHandler)).Methods("POST")
	apiCreate.Handle("/activity/{activity_id}/leave", protected(act.LeaveActivityHandler)).Methods("POST")
	apiCreate.Handle("/activity/{activity_id}/invitations", protected(act.InviteUsersHandler)).Methods("POST")
	apiCreate.Handle("/activity/{activity_id}/invitations/respond", protected(act.RespondToInviteHandler)).Methods("PUT")
	apiCreate.Handle("/activity/{activity_id}/checkout", protected(checkout.CreateCheckoutHandler)).Methods("POST")
	apiCreate.Handle("/activities", protected(act.ActivitiesHandler)).Methods("GET")

	apiCreate.Handle("/user/activities", protected(u.UserActivitiesHandler)).Methods("GET")
	apiCreate.Handle("/user/invitations", protected(u.UserInvitationsHandler)).Methods("GET")

	apiCreate.Handle("/generate-signature", protected(cloudinaryHandler.GenerateSignature)).Methods("POST")

	// the socket outlives any request timeout
	if a.Hub != nil {
		apiCreate.Handle("/ws/notifications", queryToken(guard.Middleware(http.HandlerFunc(n.NotificationsHandler)))).Methods("GET")
	}

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {
	var (
		activities membership.ActivityStore
		users      interface {
			membership.UserStore
			notify.UserLookup
		}
		repairs membership.RepairLog
	)

	switch a.Config.DatabaseDriver {
	case "memory":
		memUsers := memdb.NewUsers()
		// users are owned by the identity provider, the first write creates them
		memUsers.CreateMissing = true
		activities, users, repairs = memdb.NewActivities(), memUsers, memdb.NewRepairs()
		a.Locks = memdb.NewLocks()
		zap.S().Warn("running on the in-memory store, data is lost on restart")
	case "mongo":
		client, err := databases.NewClient(&a.Config)
		if err != nil {
			// if we fail to create a new database client, then kill the pod
			zap.S().Errorw("failed to create new client", "error", err)
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		if err := client.Connect(ctx); err != nil {
			// if we fail to connect to the database, then kill the pod
			zap.S().Errorw("failed to connect to database", "error", err)
			return err
		}
		if err := client.Ping(ctx); err != nil {
			zap.S().Errorw("failed to ping database", "error", err)
			return err
		}
		a.client = client
		dbHelper := databases.NewDatabase(&a.Config, client)
		activities = databases.NewActivityStore(databases.NewActivityDatabase(dbHelper))
		users = databases.NewUserStore(databases.NewUserDatabase(dbHelper))
		repairs = databases.NewRepairLog(databases.NewRepairDatabase(dbHelper))
		a.Locks = databases.NewSchedulerLockDatabase(dbHelper)
		zap.S().Info("activities-api has connected to the database")
	default:
		return fmt.Errorf("unknown database driver %q", a.Config.DatabaseDriver)
	}

	a.Hub = notify.NewHub()
	mailer := notify.NewMailer(a.Config.SendGridAPIKey, a.Config.EmailFrom, a.Config.BaseURL)
	if mailer == nil {
		zap.S().Info("sendgrid is not configured, invitation e-mails are disabled")
	}
	a.Notifier = notify.NewFanout(a.Hub, mailer, users).WithPusher(notify.NewPusher(a.Config.ExpoPushURL))

	a.Engine = membership.New(activities, users, repairs, a.Notifier, membership.Options{
		CASAttempts:             a.Config.JoinCASAttempts,
		FollowerMaxTries:        a.Config.FollowerRetryMaxTries,
		FollowerInitialInterval: a.Config.FollowerRetryInitial,
		FollowerMaxInterval:     a.Config.FollowerRetryMaxBackoff,
	})

	a.Payments = payments.NewStripe(a.Config.StripeSecretKey)
	if a.Config.StripeSecretKey == "" {
		zap.S().Info("stripe secret key is not set, checkout is disabled")
	}

	a.Scheduler = scheduler.NewScheduler(a.Engine, a.Locks, a.Config.ReconcileSchedule, a.Config.ReconcileLockTTL)
	if err := a.Scheduler.Start(); err != nil {
		return err
	}

	// initialize api router
	a.initializeRoutes()
	return nil
}

// Close stops background work and disconnects from the database
func (a *App) Close(ctx context.Context) {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Notifier != nil {
		a.Notifier.Wait()
	}
	if a.client != nil {
		if err := a.client.Disconnect(ctx); err != nil {
			zap.S().Warnw("failed to disconnect from database", "error", err)
		}
	}
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthCheckResponse{
		Alive: true,
	})
}
