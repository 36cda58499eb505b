// Package api exposes the selection controller over HTTP and runs it on a
// cron schedule.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"storybot/config"
	"storybot/selection"
	"storybot/types"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

// ConstraintsLoader returns the constraints a run starts from. It is called
// for every run so edits to the constraints file apply without a restart.
type ConstraintsLoader func() (config.ConstraintSet, error)

// Server is the storybot HTTP server
type Server struct {
	ctrl        *selection.Controller
	constraints ConstraintsLoader
	engine      *gin.Engine
	httpServer  *http.Server
	cron        *cron.Cron
	cronID      cron.EntryID
	mu          sync.Mutex
	runs        sync.WaitGroup
}

// NewServer creates a server listening on port
func NewServer(ctrl *selection.Controller, constraints ConstraintsLoader, port string) *Server {
	s := &Server{
		ctrl:        ctrl,
		constraints: constraints,
		cron:        cron.New(),
	}
	s.engine = s.newRouter()
	s.httpServer = &http.Server{
		Addr:    ":" + port,
		Handler: s.engine,
	}
	return s
}

func (s *Server) newRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	RegisterHealthRoutes(r)
	s.registerRunRoutes(r)
	s.registerLedgerRoutes(r)
	return r
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves HTTP in the background
func (s *Server) Start() error {
	log.Printf("Starting storybot server on %s", s.httpServer.Addr)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()
	return nil
}

// TriggerRun starts a run in the background, applying the overrides in req
// when it is not nil. It fails fast with selection.ErrBusy while a run is in
// progress and with a *config.ConfigurationError for invalid overrides.
func (s *Server) TriggerRun(req *types.RunRequest) error {
	if s.ctrl.Status().Busy() {
		return selection.ErrBusy
	}
	cs, err := s.resolve(req)
	if err != nil {
		return err
	}

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		s.runNow(context.Background(), cs)
	}()
	return nil
}

func (s *Server) resolve(req *types.RunRequest) (config.ConstraintSet, error) {
	cs, err := s.constraints()
	if err != nil {
		return config.ConstraintSet{}, fmt.Errorf("load constraints: %w", err)
	}
	if req == nil {
		return cs, nil
	}
	return cs.Override(req.Subreddits, req.PostIDs, req.Keywords, req.TimesToRun)
}

func (s *Server) runNow(ctx context.Context, cs config.ConstraintSet) {
	res, err := s.ctrl.Run(ctx, cs)
	if err != nil {
		log.Printf("❌ Run error: %v", err)
		return
	}
	log.Printf("✅ Run %s finished: %d selected, %d failed iterations",
		res.RunID, len(res.Selections), len(res.Failures))
}

// StartCron schedules runs. A tick that finds a run in progress is skipped.
func (s *Server) StartCron(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(schedule, func() {
		log.Println("Cron triggered: starting scheduled run")

		if state := s.ctrl.Status().State(); state.Busy() {
			log.Printf("Cron skipped: a run is in progress (state=%s)", state)
			return
		}
		cs, err := s.resolve(nil)
		if err != nil {
			log.Printf("Cron run error: %v", err)
			return
		}
		s.runNow(context.Background(), cs)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cronID = id
	s.cron.Start()
	log.Printf("Cron job started with schedule: %s", schedule)
	return nil
}

// Shutdown stops the cron scheduler, the HTTP server and waits for
// background runs to finish
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down storybot server...")

	<-s.cron.Stop().Done()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
