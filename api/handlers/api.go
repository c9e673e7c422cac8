package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/linesmerrill/traffic-portal-api/analytics"
	"github.com/linesmerrill/traffic-portal-api/api"
	"github.com/linesmerrill/traffic-portal-api/api/scheduler"
	"github.com/linesmerrill/traffic-portal-api/config"
	"github.com/linesmerrill/traffic-portal-api/databases"
	"github.com/linesmerrill/traffic-portal-api/events"
	"github.com/linesmerrill/traffic-portal-api/lifecycle"
	"github.com/linesmerrill/traffic-portal-api/models"
)

// App stores the router and the wired services, so they can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	Store     databases.ReportStore
	Users     databases.UserDatabase
	Hub       *events.Hub
	Publisher events.Publisher
	Scheduler *scheduler.Scheduler

	closers []func(context.Context) error
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	m := api.NewMiddleware(a.Users, a.Config.JWTSecret)
	store := api.NewTracedStore(a.Store)
	log := zap.S()

	rep := Report{Svc: lifecycle.NewService(store, a.Publisher, log)}
	an := Analytics{Engine: analytics.NewEngine(store, log)}
	live := Live{Hub: a.Hub}
	metrics := MetricsHandler{}

	staff := api.RequireRole(models.RoleEmployee, models.RoleAdmin)
	admin := api.RequireRole(models.RoleAdmin)
	timeout := a.Config.RequestTimeout
	if timeout <= 0 {
		timeout = api.QueryTimeout
	}

	r := mux.NewRouter()
	r.Use(api.MetricsMiddleware)

	// healthchex
	r.HandleFunc("/health", api.HealthCheckHandler).Methods("GET")

	// the live feed hijacks the connection, so it stays outside the timeout
	r.Handle("/api/v1/live", api.QueryToken(m.Middleware(http.HandlerFunc(live.LiveHandler)))).Methods("GET")

	apiCreate := r.PathPrefix("/api/v1").Subrouter()
	apiCreate.Use(api.TimeoutMiddleware(timeout))

	apiCreate.Handle("/auth/token", m.Middleware(http.HandlerFunc(m.CreateToken))).Methods("POST")
	apiCreate.Handle("/auth/logout", m.Middleware(http.HandlerFunc(m.RevokeToken))).Methods("DELETE")

	apiCreate.Handle("/reports", m.Middleware(http.HandlerFunc(rep.ListReportsHandler))).Methods("GET")
	apiCreate.Handle("/reports", m.Middleware(http.HandlerFunc(rep.CreateReportHandler))).Methods("POST")
	apiCreate.Handle("/reports/{report_id}", m.Middleware(http.HandlerFunc(rep.ReportByIDHandler))).Methods("GET")
	apiCreate.Handle("/reports/{report_id}/verify", m.Middleware(staff(http.HandlerFunc(rep.VerifyHandler)))).Methods("POST")
	apiCreate.Handle("/reports/{report_id}/assign", m.Middleware(staff(http.HandlerFunc(rep.AssignHandler)))).Methods("POST")
	apiCreate.Handle("/reports/{report_id}/start", m.Middleware(http.HandlerFunc(rep.StartHandler))).Methods("POST")
	apiCreate.Handle("/reports/{report_id}/resolve", m.Middleware(http.HandlerFunc(rep.ResolveHandler))).Methods("POST")
	apiCreate.Handle("/reports/{report_id}/reject", m.Middleware(staff(http.HandlerFunc(rep.RejectHandler)))).Methods("POST")
	apiCreate.Handle("/reports/{report_id}/follow-ups", m.Middleware(http.HandlerFunc(rep.FollowUpHandler))).Methods("POST")

	apiCreate.Handle("/analytics/dashboard", m.Middleware(http.HandlerFunc(an.DashboardHandler))).Methods("GET")
	apiCreate.Handle("/analytics/rollup", m.Middleware(http.HandlerFunc(an.RollupHandler))).Methods("GET")
	apiCreate.Handle("/analytics/hotspots", m.Middleware(http.HandlerFunc(an.HotspotsHandler))).Methods("GET")

	apiCreate.Handle("/live/status", m.Middleware(staff(http.HandlerFunc(live.LiveStatusHandler)))).Methods("GET")

	apiV2 := r.PathPrefix("/api/v2").Subrouter()
	apiV2.Handle("/metrics", m.Middleware(admin(http.HandlerFunc(metrics.GetMetricsDashboard)))).Methods("GET")
	apiV2.Handle("/metrics/summary", m.Middleware(admin(http.HandlerFunc(metrics.GetMetricsSummary)))).Methods("GET")
	apiV2.Handle("/metrics/route", m.Middleware(admin(http.HandlerFunc(metrics.GetRouteMetrics)))).Methods("GET")
	apiV2.Handle("/metrics/prometheus", m.Middleware(admin(api.PrometheusHandler()))).Methods("GET")

	// swagger docs hosted at "/"
	r.PathPrefix("/").Handler(http.StripPrefix("/", http.FileServer(http.Dir("./docs/"))))
	return r
}

// Initialize is invoked by main to connect the stores and publishers and
// create a router
func (a *App) Initialize(ctx context.Context) error {
	if a.Config.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}

	switch a.Config.DBDriver {
	case "mysql":
		if err := a.initMySQL(ctx); err != nil {
			return err
		}
	case "mongo", "":
		if err := a.initMongo(ctx); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", a.Config.DBDriver)
	}

	a.Hub = events.NewHub(zap.S())
	a.Hub.AllowOrigins(a.Config.BaseURL)
	hubCtx, stopHub := context.WithCancel(context.Background())
	go a.Hub.Run(hubCtx)
	a.closers = append(a.closers, func(context.Context) error {
		stopHub()
		return nil
	})

	publishers := events.Multi{a.Hub}
	if a.Config.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(a.Config.AMQPURL, a.Config.AMQPExchange)
		if err != nil {
			zap.S().Errorw("failed to connect to message broker", "error", err)
			return err
		}
		publishers = append(publishers, p)
		a.closers = append(a.closers, func(context.Context) error { return p.Close() })
		zap.S().Infow("publishing lifecycle events", "exchange", a.Config.AMQPExchange)
	}
	a.Publisher = publishers

	a.Scheduler = scheduler.NewScheduler(a.Store, a.Publisher, a.Config.OverdueSweepSpec)
	if err := a.Scheduler.Start(); err != nil {
		return err
	}
	a.closers = append(a.closers, func(context.Context) error {
		a.Scheduler.Stop()
		return nil
	})

	mc := api.InitMetrics(10000, 1*time.Hour)
	a.closers = append(a.closers, func(context.Context) error {
		mc.Stop()
		return nil
	})

	// initialize api router
	a.initializeRoutes()
	return nil
}

func (a *App) initMongo(ctx context.Context) error {
	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().Errorw("failed to create new client", "error", err)
		return err
	}
	if err := client.Connect(ctx); err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().Errorw("failed to connect to database", "error", err)
		return err
	}
	dbHelper := databases.NewDatabase(&a.Config, client)
	a.Store = databases.NewReportDatabase(dbHelper)
	a.Users = databases.NewUserDatabase(dbHelper)
	a.closers = append(a.closers, client.Disconnect)
	zap.S().Info("traffic-portal-api has connected to mongo")
	return nil
}

func (a *App) initMySQL(ctx context.Context) error {
	db, err := databases.Connect(&a.Config)
	if err != nil {
		zap.S().Errorw("failed to connect to database", "driver", "mysql", "error", err)
		return err
	}
	if err := databases.InitSchema(ctx, db); err != nil {
		zap.S().Errorw("failed to initialize schema", "error", err)
		db.Close()
		return err
	}
	a.Store = databases.NewSQLReportStore(db)
	a.Users = databases.NewSQLUserDatabase(db)
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })
	zap.S().Info("traffic-portal-api has connected to mysql")
	return nil
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

// Shutdown releases everything Initialize acquired, newest first
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
