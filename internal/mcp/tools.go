// Package mcp serves live games to AI agents as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/peterkuimelis/grandline/internal/ai"
	"github.com/peterkuimelis/grandline/internal/game"
	"github.com/peterkuimelis/grandline/internal/service"
)

// Tools binds the MCP tool handlers to a table of live games.
type Tools struct {
	table *service.Table
	log   *zap.Logger
}

func NewTools(table *service.Table, logger *zap.Logger) *Tools {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tools{table: table, log: logger}
}

// Register adds all game tools to the MCP server.
func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(newGameTool(), t.handleNewGame)
	s.AddTool(getStateTool(), t.handleGetState)
	s.AddTool(legalActionsTool(), t.handleLegalActions)
	s.AddTool(applyActionTool(), t.handleApplyAction)
	s.AddTool(evaluateTool(), t.handleEvaluate)
	s.AddTool(suggestMoveTool(), t.handleSuggestMove)
	s.AddTool(closeGameTool(), t.handleCloseGame)
}

// --- Tool definitions ---

func newGameTool() mcp.Tool {
	return mcp.NewTool("new_game",
		mcp.WithDescription("Deal a new game between two catalog decks. Returns the game state and the legal actions of the player who must decide."),
		mcp.WithString("p1_deck", mcp.Required(), mcp.Description("Catalog deck id for player 1")),
		mcp.WithString("p2_deck", mcp.Required(), mcp.Description("Catalog deck id for player 2")),
		mcp.WithNumber("seed", mcp.Description("Shuffle seed; omit for a random deal")),
		mcp.WithNumber("starting_player", mcp.Description("0 = player 1 goes first (default), 1 = player 2")),
	)
}

func getStateTool() mcp.Tool {
	return mcp.NewTool("get_state",
		mcp.WithDescription("Get the current state of a game and the pending legal actions. Read-only."),
		mcp.WithString("game_id", mcp.Required(), mcp.Description("Game id returned by new_game")),
		mcp.WithBoolean("snapshot", mcp.Description("Include the full serialized snapshot")),
	)
}

func legalActionsTool() mcp.Tool {
	return mcp.NewTool("legal_actions",
		mcp.WithDescription("List a player's legal actions. A player with nothing to decide gets an empty list."),
		mcp.WithString("game_id", mcp.Required(), mcp.Description("Game id returned by new_game")),
		mcp.WithNumber("player", mcp.Required(), mcp.Description("0 for player 1, 1 for player 2")),
	)
}

func applyActionTool() mcp.Tool {
	return mcp.NewTool("apply_action",
		mcp.WithDescription("Apply one action for the deciding player, either by its index in the pending action list or as an action object. Illegal actions are rejected with a reason and change nothing."),
		mcp.WithString("game_id", mcp.Required(), mcp.Description("Game id returned by new_game")),
		mcp.WithNumber("index", mcp.Description("0-based index into the pending actions list")),
		mcp.WithString("action", mcp.Description(`Action JSON, e.g. {"type":"attack","player":0,"card":1,"target":52}`)),
	)
}

func evaluateTool() mcp.Tool {
	return mcp.NewTool("evaluate",
		mcp.WithDescription("Score the position for a player. Positive favours that player; a won game scores 1000000."),
		mcp.WithString("game_id", mcp.Required(), mcp.Description("Game id returned by new_game")),
		mcp.WithNumber("player", mcp.Required(), mcp.Description("0 for player 1, 1 for player 2")),
	)
}

func suggestMoveTool() mcp.Tool {
	return mcp.NewTool("suggest_move",
		mcp.WithDescription("Run the minimax search for the deciding player and return its best action, score and search statistics."),
		mcp.WithString("game_id", mcp.Required(), mcp.Description("Game id returned by new_game")),
		mcp.WithNumber("time_ms", mcp.Description("Wall-clock budget in milliseconds (0 = server default)")),
		mcp.WithNumber("nodes", mcp.Description("Node budget (0 = server default)")),
	)
}

func closeGameTool() mcp.Tool {
	return mcp.NewTool("close_game",
		mcp.WithDescription("Remove a game from the table."),
		mcp.WithString("game_id", mcp.Required(), mcp.Description("Game id returned by new_game")),
	)
}

// --- Tool handlers ---

func (t *Tools) session(request mcp.CallToolRequest) (*service.Session, *mcp.CallToolResult) {
	id := request.GetString("game_id", "")
	if id == "" {
		return nil, mcp.NewToolResultError("game_id is required. Use new_game first.")
	}
	sess, err := t.table.Get(id)
	if err != nil {
		return nil, mcp.NewToolResultErrorf("No game %q is running. Use new_game first.", id)
	}
	return sess, nil
}

func playerArg(request mcp.CallToolRequest) (int, *mcp.CallToolResult) {
	p := request.GetInt("player", -1)
	if p != 0 && p != 1 {
		return 0, mcp.NewToolResultError("player must be 0 or 1")
	}
	return p, nil
}

func (t *Tools) handleNewGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	starting := request.GetInt("starting_player", 0)
	if starting != 0 && starting != 1 {
		return mcp.NewToolResultError("starting_player must be 0 or 1"), nil
	}
	sess, err := t.table.Open(service.NewGameRequest{
		Decks:          [2]string{request.GetString("p1_deck", ""), request.GetString("p2_deck", "")},
		Seed:           int64(request.GetInt("seed", 0)),
		StartingPlayer: starting,
	})
	if err != nil {
		return mcp.NewToolResultErrorf("Failed to start game: %v", err), nil
	}
	t.log.Info("mcp game opened", zap.String("game", sess.ID))

	resp := &ToolResponse{}
	if err := pending(sess, resp); err != nil {
		return mcp.NewToolResultErrorf("Failed to read game: %v", err), nil
	}
	return mcp.NewToolResultText(respondJSON(resp)), nil
}

func (t *Tools) handleGetState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := t.session(request)
	if errResult != nil {
		return errResult, nil
	}
	resp := &ToolResponse{Games: t.table.IDs()}
	if err := pending(sess, resp); err != nil {
		return mcp.NewToolResultErrorf("Failed to read game: %v", err), nil
	}
	if request.GetBool("snapshot", false) {
		resp.Snapshot = resp.Game.Snapshot
	}
	return mcp.NewToolResultText(respondJSON(resp)), nil
}

func (t *Tools) handleLegalActions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := t.session(request)
	if errResult != nil {
		return errResult, nil
	}
	player, errResult := playerArg(request)
	if errResult != nil {
		return errResult, nil
	}
	actions, err := sess.LegalActions(player)
	if err != nil {
		return mcp.NewToolResultErrorf("%v", err), nil
	}
	resp := &ToolResponse{Player: player, Actions: actionViews(sess, actions)}
	return mcp.NewToolResultText(respondJSON(resp)), nil
}

func (t *Tools) handleApplyAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := t.session(request)
	if errResult != nil {
		return errResult, nil
	}

	var (
		action  game.Action
		applied *service.Applied
		err     error
	)
	if raw := request.GetString("action", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &action); err != nil {
			return mcp.NewToolResultErrorf("Invalid action JSON: %v", err), nil
		}
		applied, err = sess.Apply(action)
	} else {
		action, applied, err = sess.ApplyIndex(request.GetInt("index", -1))
	}
	if err != nil {
		var rej *game.Rejection
		switch {
		case errors.As(err, &rej):
			return mcp.NewToolResultErrorf("Rejected (%s): %s", rej.Reason, rej.Detail), nil
		case errors.Is(err, service.ErrBadIndex):
			return mcp.NewToolResultErrorf("Invalid index: %v", err), nil
		}
		return mcp.NewToolResultErrorf("Failed to apply %s: %v", action, err), nil
	}

	resp := &ToolResponse{Events: eventLines(applied.Events)}
	if err := pending(sess, resp); err != nil {
		return mcp.NewToolResultErrorf("Failed to read game: %v", err), nil
	}
	return mcp.NewToolResultText(respondJSON(resp)), nil
}

func (t *Tools) handleEvaluate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := t.session(request)
	if errResult != nil {
		return errResult, nil
	}
	player, errResult := playerArg(request)
	if errResult != nil {
		return errResult, nil
	}
	score, err := sess.Evaluate(player)
	if err != nil {
		return mcp.NewToolResultErrorf("%v", err), nil
	}
	return mcp.NewToolResultText(respondJSON(&ToolResponse{Player: player, Score: &score})), nil
}

func (t *Tools) handleSuggestMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := t.session(request)
	if errResult != nil {
		return errResult, nil
	}
	budget := ai.Budget{
		Time:  time.Duration(request.GetInt("time_ms", 0)) * time.Millisecond,
		Nodes: int64(request.GetInt("nodes", 0)),
	}
	res, err := sess.Suggest(ctx, budget)
	if err != nil {
		return mcp.NewToolResultErrorf("Search failed: %v", err), nil
	}

	resp := &ToolResponse{Score: &res.Score, Stats: &res.Stats}
	if err := pending(sess, resp); err != nil {
		return mcp.NewToolResultErrorf("Failed to read game: %v", err), nil
	}
	for i := range resp.Actions {
		if resp.Actions[i].Action == res.Action {
			resp.Suggested = &resp.Actions[i]
			break
		}
	}
	return mcp.NewToolResultText(respondJSON(resp)), nil
}

func (t *Tools) handleCloseGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("game_id", "")
	if err := t.table.Close(id); err != nil {
		return mcp.NewToolResultErrorf("%v", err), nil
	}
	return mcp.NewToolResultText(respondJSON(&ToolResponse{Games: t.table.IDs()})), nil
}
