package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/peterkuimelis/grandline/internal/ai"
	"github.com/peterkuimelis/grandline/internal/game"
	"github.com/peterkuimelis/grandline/internal/log"
	"github.com/peterkuimelis/grandline/internal/service"
)

// ActionView is one legal action as shown to the agent. Index is the value to
// pass back to apply_action.
type ActionView struct {
	Index  int         `json:"index"`
	Desc   string      `json:"desc"`
	Action game.Action `json:"action"`
}

// ToolResponse is the JSON envelope returned by all MCP tools.
type ToolResponse struct {
	Game      *service.State  `json:"game,omitempty"`
	Snapshot  json.RawMessage `json:"snapshot,omitempty"`
	Events    []string        `json:"events,omitempty"`
	Player    int             `json:"player"`
	Actions   []ActionView    `json:"actions,omitempty"`
	Score     *float64        `json:"score,omitempty"`
	Suggested *ActionView     `json:"suggested,omitempty"`
	Stats     *ai.Stats       `json:"stats,omitempty"`
	Games     []string        `json:"games,omitempty"`
}

// pending fills in the decider's legal actions, unless the game is over.
func pending(sess *service.Session, resp *ToolResponse) error {
	st, err := sess.State()
	if err != nil {
		return err
	}
	resp.Game = st
	resp.Player = st.Decider
	if st.Over {
		return nil
	}
	actions, err := sess.LegalActions(st.Decider)
	if err != nil {
		return err
	}
	resp.Actions = actionViews(sess, actions)
	return nil
}

func actionViews(sess *service.Session, actions []game.Action) []ActionView {
	descs := sess.Describe(actions)
	views := make([]ActionView, len(actions))
	for i, a := range actions {
		views[i] = ActionView{Index: i, Desc: descs[i], Action: a}
	}
	return views
}

func eventLines(events []log.GameEvent) []string {
	lines := make([]string, len(events))
	for i, e := range events {
		lines[i] = log.FormatEvent(e)
	}
	return lines
}

func respondJSON(resp *ToolResponse) string {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Sprintf(`{"error": "marshal error: %v"}`, err)
	}
	return string(data)
}
