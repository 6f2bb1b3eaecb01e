package chatbot

// Update is one inbound message from the conversational channel.  Action is
// set when the sender tapped a button (the button's payload travels back
// verbatim); Text carries free-form input.
type Update struct {
	ChannelID string `json:"channel_id"`
	Text      string `json:"text,omitempty"`
	Action    string `json:"action,omitempty"`
}

// Button is one labeled choice.  Action is the full "verb:param" token the
// channel echoes back when the button is tapped — the entire UI state of the
// conversation lives in these payloads, never in server memory.
type Button struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}

// Reply is one outbound message: text plus an optional grid of buttons,
// rendered two per row.
type Reply struct {
	ChannelID string     `json:"channel_id"`
	Text      string     `json:"text"`
	Buttons   [][]Button `json:"buttons,omitempty"`
}

// Action verbs understood by the router.
const (
	actionMenu      = "menu"
	actionNew       = "new"
	actionCreate    = "create"
	actionCodes     = "codes"
	actionRevokeAsk = "revoke_ask"
	actionRevoke    = "revoke"
	actionProfile   = "profile"
	actionLink      = "link"
)

// createPermanent is the create parameter for a long-lived code.
const createPermanent = "permanent"

// grid lays buttons out two per row.
func grid(buttons ...Button) [][]Button {
	var rows [][]Button
	for len(buttons) > 2 {
		rows = append(rows, buttons[:2])
		buttons = buttons[2:]
	}
	if len(buttons) > 0 {
		rows = append(rows, buttons)
	}
	return rows
}
