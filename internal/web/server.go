// Package web serves the engine over HTTP with gin and pushes live game states to
// browsers over websockets.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/peterkuimelis/grandline/internal/ai"
	"github.com/peterkuimelis/grandline/internal/game"
	"github.com/peterkuimelis/grandline/internal/log"
	"github.com/peterkuimelis/grandline/internal/service"
)

// Server is the grandline HTTP API.
type Server struct {
	svc     *service.Service
	table   *service.Table
	library Library
	log     *zap.Logger
	router  *gin.Engine
}

// NewServer wires the routes. library may be nil, which disables the catalog
// browsing endpoints.
func NewServer(svc *service.Service, table *service.Table, library Library, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{svc: svc, table: table, library: library, log: logger, router: gin.New()}
	s.router.Use(gin.Recovery(), s.accessLog())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	if s.library != nil {
		api.GET("/cards", s.handleCards)
		api.GET("/decks", s.handleDecks)
	}

	games := api.Group("/games")
	games.GET("", s.handleListGames)
	games.POST("", s.handleNewGame)
	games.GET("/:id", s.handleGetGame)
	games.DELETE("/:id", s.handleCloseGame)
	games.GET("/:id/actions", s.handleLegalActions)
	games.POST("/:id/actions", s.handleApplyAction)
	games.GET("/:id/evaluate", s.handleEvaluate)
	games.POST("/:id/suggest", s.handleSuggest)

	// Stateless: the caller holds the snapshot.
	snap := api.Group("/snapshot")
	snap.POST("/legal", s.handleSnapshotLegal)
	snap.POST("/apply", s.handleSnapshotApply)
	snap.POST("/evaluate", s.handleSnapshotEvaluate)
	snap.POST("/suggest", s.handleSnapshotSuggest)

	s.router.GET("/ws/games/:id", s.handleWatch)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("web server listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

// --- Views ---

type actionView struct {
	Index  int         `json:"index"`
	Desc   string      `json:"desc,omitempty"`
	Action game.Action `json:"action"`
}

type gameView struct {
	Game     *service.State  `json:"game"`
	Snapshot json.RawMessage `json:"snapshot"`
	Actions  []actionView    `json:"actions,omitempty"`
	Events   []log.GameEvent `json:"events,omitempty"`
}

func viewOf(sess *service.Session) (*gameView, error) {
	st, err := sess.State()
	if err != nil {
		return nil, err
	}
	v := &gameView{Game: st, Snapshot: st.Snapshot}
	if !st.Over {
		actions, err := sess.LegalActions(st.Decider)
		if err != nil {
			return nil, err
		}
		descs := sess.Describe(actions)
		for i, a := range actions {
			v.Actions = append(v.Actions, actionView{Index: i, Desc: descs[i], Action: a})
		}
	}
	return v, nil
}

// fail maps engine errors onto HTTP statuses.
func (s *Server) fail(c *gin.Context, err error) {
	var rej *game.Rejection
	switch {
	case errors.As(err, &rej):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": rej.Error(), "rejection": rej})
	case errors.Is(err, service.ErrUnknownGame):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAbandoned):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.Is(err, game.ErrUnknownDeck), errors.Is(err, game.ErrInvalidDeck),
		errors.Is(err, service.ErrBadPlayer), errors.Is(err, service.ErrBadIndex):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrGameOver), errors.Is(err, ai.ErrNotToMove), errors.Is(err, ai.ErrNoMoves):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) session(c *gin.Context) (*service.Session, bool) {
	sess, err := s.table.Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	return sess, true
}

func playerParam(c *gin.Context) (int, error) {
	p, err := strconv.Atoi(c.Query("player"))
	if err != nil || (p != 0 && p != 1) {
		return 0, service.ErrBadPlayer
	}
	return p, nil
}

// --- Live games ---

func (s *Server) handleListGames(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"games": s.table.IDs()})
}

func (s *Server) handleNewGame(c *gin.Context) {
	var req service.NewGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	sess, err := s.table.Open(req)
	if err != nil {
		s.fail(c, err)
		return
	}
	v, err := viewOf(sess)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (s *Server) handleGetGame(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	v, err := viewOf(sess)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) handleCloseGame(c *gin.Context) {
	if err := s.table.Close(c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleLegalActions(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	player, err := playerParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	actions, err := sess.LegalActions(player)
	if err != nil {
		s.fail(c, err)
		return
	}
	descs := sess.Describe(actions)
	out := make([]actionView, len(actions))
	for i, a := range actions {
		out[i] = actionView{Index: i, Desc: descs[i], Action: a}
	}
	c.JSON(http.StatusOK, gin.H{"player": player, "actions": out})
}

type applyRequest struct {
	Index  *int         `json:"index"`
	Action *game.Action `json:"action"`
}

func (s *Server) handleApplyAction(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Index == nil) == (req.Action == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "send exactly one of index or action"})
		return
	}

	var (
		applied *service.Applied
		err     error
	)
	if req.Action != nil {
		applied, err = sess.Apply(*req.Action)
	} else {
		_, applied, err = sess.ApplyIndex(*req.Index)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	v, err := viewOf(sess)
	if err != nil {
		s.fail(c, err)
		return
	}
	v.Events = applied.Events
	c.JSON(http.StatusOK, v)
}

func (s *Server) handleEvaluate(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	player, err := playerParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	score, err := sess.Evaluate(player)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"player": player, "score": score})
}

type budgetRequest struct {
	TimeMS int   `json:"time_ms"`
	Nodes  int64 `json:"nodes"`
}

func (b budgetRequest) budget() ai.Budget {
	return ai.Budget{Time: time.Duration(b.TimeMS) * time.Millisecond, Nodes: b.Nodes}
}

type suggestion struct {
	Action game.Action `json:"action"`
	Score  float64     `json:"score"`
	Stats  ai.Stats    `json:"stats"`
}

func (s *Server) handleSuggest(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req budgetRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}
	}
	res, err := sess.Suggest(c.Request.Context(), req.budget())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestion{Action: res.Action, Score: res.Score, Stats: res.Stats})
}

// --- Snapshot boundary ---

type snapshotRequest struct {
	Snapshot json.RawMessage `json:"snapshot" binding:"required"`
	Player   int             `json:"player"`
	Action   *game.Action    `json:"action"`
	budgetRequest
}

func (s *Server) bindSnapshot(c *gin.Context) (*snapshotRequest, bool) {
	var req snapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return nil, false
	}
	return &req, true
}

func (s *Server) handleSnapshotLegal(c *gin.Context) {
	req, ok := s.bindSnapshot(c)
	if !ok {
		return
	}
	actions, err := s.svc.LegalActions(req.Snapshot, req.Player)
	if err != nil {
		s.fail(c, err)
		return
	}
	if actions == nil {
		actions = []game.Action{}
	}
	c.JSON(http.StatusOK, gin.H{"player": req.Player, "actions": actions})
}

func (s *Server) handleSnapshotApply(c *gin.Context) {
	req, ok := s.bindSnapshot(c)
	if !ok {
		return
	}
	if req.Action == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action is required"})
		return
	}
	applied, err := s.svc.Apply(req.Snapshot, *req.Action)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gameView{Game: applied.State, Snapshot: applied.State.Snapshot, Events: applied.Events})
}

func (s *Server) handleSnapshotEvaluate(c *gin.Context) {
	req, ok := s.bindSnapshot(c)
	if !ok {
		return
	}
	score, err := s.svc.Evaluate(req.Snapshot, req.Player)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"player": req.Player, "score": score})
}

func (s *Server) handleSnapshotSuggest(c *gin.Context) {
	req, ok := s.bindSnapshot(c)
	if !ok {
		return
	}
	res, err := s.svc.SuggestMove(c.Request.Context(), req.Snapshot, req.Player, req.budget())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestion{Action: res.Action, Score: res.Score, Stats: res.Stats})
}

// --- Websocket stream ---

// frame is one message on the watch stream.
type frame struct {
	Game     *service.State  `json:"game"`
	Snapshot json.RawMessage `json:"snapshot"`
}

// handleWatch streams the game's state: once on connect, then after every
// applied action, until the client leaves or the game is closed.
func (s *Server) handleWatch(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Allow connections from any origin
	})
	if err != nil {
		s.log.Warn("websocket accept", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	// The client never sends; CloseRead notices when it goes away.
	ctx := conn.CloseRead(c.Request.Context())
	updates, cancel := sess.Watch()
	defer cancel()

	st, err := sess.State()
	if err != nil {
		conn.Close(websocket.StatusInternalError, "state unavailable")
		return
	}
	if err := wsjson.Write(ctx, conn, frame{Game: st, Snapshot: st.Snapshot}); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case st, open := <-updates:
			if !open {
				conn.Close(websocket.StatusNormalClosure, "game closed")
				return
			}
			if err := wsjson.Write(ctx, conn, frame{Game: st, Snapshot: st.Snapshot}); err != nil {
				s.log.Debug("websocket write", zap.String("game", sess.ID), zap.Error(err))
				return
			}
		}
	}
}
