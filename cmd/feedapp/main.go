package main

import (
	"context"
	"database/sql"
	"errors"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socialfeed/pkg/broadcast"
	"socialfeed/pkg/config"
	"socialfeed/pkg/handlers"
	"socialfeed/pkg/middleware"
	"socialfeed/pkg/posts"
	"socialfeed/pkg/session"
	"socialfeed/pkg/user"

	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	createSchema = `CREATE TABLE IF NOT EXISTS users (
		id int(11) unsigned NOT NULL AUTO_INCREMENT,
		password  VARBINARY(100) NOT NULL,
		username VARCHAR(50) NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY username (username)
	) ENGINE=INNODB DEFAULT CHARSET=utf8;`

	startupTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync() // flushes buffer, if any

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &Application{Config: cfg, Logger: logger}
	if err := app.Setup(ctx); err != nil {
		logger.Fatalw("cannot start", "error", err)
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		logger.Errorw("server stopped", "error", err)
	}
}

type Application struct {
	Config *config.Config
	Logger *zap.SugaredLogger

	Sessions session.SessionManager
	Users    handlers.UsersRepo
	Posts    *posts.Service
	Bus      broadcast.Bus

	HTTPServer *http.Server

	closers []func()
}

// Setup connects the configured backends. Anything it opens is released by
// Close.
func (a *Application) Setup(ctx context.Context) error {
	cfg := a.Config

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, func() { rdb.Close() })

		pingCtx, cancel := context.WithTimeout(ctx, startupTimeout)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			return err
		}
	}

	if err := a.setupSessions(rdb); err != nil {
		return err
	}

	if err := a.setupUsers(ctx); err != nil {
		return err
	}

	repo, err := a.setupPostStore(ctx)
	if err != nil {
		return err
	}

	hub := broadcast.NewHub(cfg.Broadcast.SubscriberBuffer, a.Logger)
	a.Bus = hub
	if cfg.Broadcast.Backend == config.BackendRedis {
		busCtx, cancel := context.WithCancel(context.Background())
		bus, err := broadcast.NewRedisBus(busCtx, rdb, cfg.Broadcast.Channel, hub, a.Logger)
		if err != nil {
			cancel()
			return err
		}
		a.closers = append(a.closers, func() {
			cancel()
			<-bus.Done()
		})
		a.Bus = bus
	}

	a.Posts = posts.NewService(repo, a.Bus, a.Logger, cfg.MaxCommitAttempts)
	a.Logger.Infow("backends ready",
		"post_store", cfg.PostStore,
		"broadcast", cfg.Broadcast.Backend,
		"users", map[bool]string{true: "mysql", false: "memory"}[cfg.MySQLDSN != ""],
		"sessions", map[bool]string{true: "redis", false: "jwt"}[rdb != nil],
	)
	return nil
}

func (a *Application) setupSessions(rdb *redis.Client) error {
	privateKeyBytes, err := ioutil.ReadFile(a.Config.Session.PrivateKey)
	if err != nil {
		return err
	}

	publicKeyBytes, err := ioutil.ReadFile(a.Config.Session.PublicKey)
	if err != nil {
		return err
	}

	smJWT, err := session.NewSessionsJWTManager(privateKeyBytes, publicKeyBytes)
	if err != nil {
		return err
	}

	a.Sessions = smJWT
	if rdb != nil {
		a.Sessions = session.NewSessionManagerRedis(rdb, smJWT)
	}
	return nil
}

func (a *Application) setupUsers(ctx context.Context) error {
	if a.Config.MySQLDSN == "" {
		a.Users = user.NewMemoryRepo()
		return nil
	}

	db, err := sql.Open("mysql", a.Config.MySQLDSN)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() { db.Close() })

	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, createSchema); err != nil {
		return err
	}

	a.Users = user.NewUserRepoSQL(db)
	return nil
}

func (a *Application) setupPostStore(ctx context.Context) (posts.Repo, error) {
	if a.Config.PostStore == config.StoreMemory {
		return posts.NewMemoryRepo(), nil
	}

	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	client, err := posts.NewMongoClient(ctx, a.Config.Mongo.URL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()
		client.Disconnect(ctx)
	})

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}

	return posts.NewPostsRepoMongo(client.Database(a.Config.Mongo.DB), a.Config.Mongo.PostsCollection), nil
}

func (a *Application) Router() http.Handler {
	r := mux.NewRouter()

	userHandler := &handlers.UserHandler{
		Sm:         a.Sessions,
		Repo:       a.Users,
		Logger:     a.Logger,
		SessionTTL: a.Config.Session.TTL,
	}
	postsHandler := &handlers.PostHandler{Service: a.Posts, Logger: a.Logger}
	eventsHandler := &handlers.EventsHandler{Bus: a.Bus, Logger: a.Logger}

	api := r.PathPrefix("/api/").Subrouter()

	api.HandleFunc("/login", userHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/register", userHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/logout", userHandler.Logout).Methods(http.MethodPost)

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteResponse(w, "not found", http.StatusNotFound)
	})

	r.HandleFunc("/posts", postsHandler.List).Methods(http.MethodGet)
	r.HandleFunc("/posts", postsHandler.Create).Methods(http.MethodPost)
	r.HandleFunc("/posts/react", postsHandler.React).Methods(http.MethodPost)
	r.HandleFunc("/posts/{id}", postsHandler.Get).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id}", postsHandler.Edit).Methods(http.MethodPatch)
	r.HandleFunc("/posts/{id}", postsHandler.Delete).Methods(http.MethodDelete)
	r.HandleFunc("/posts/{id}/replies", postsHandler.Reply).Methods(http.MethodPost)

	r.Handle("/ws", eventsHandler).Methods(http.MethodGet)

	if a.Config.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(a.Config.StaticDir)))
	}

	h := middleware.Auth(a.Logger, a.Sessions, r)
	h = middleware.Log(a.Logger, h)
	h = middleware.Recover(a.Logger, h)
	return h
}

// Run serves until ctx is cancelled and then shuts the server down.
func (a *Application) Run(ctx context.Context) error {
	srv := &http.Server{
		Handler:      a.Router(),
		Addr:         a.Config.Addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	a.HTTPServer = srv

	errs := make(chan error, 1)
	go func() {
		a.Logger.Infof("Started server at %s", srv.Addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
