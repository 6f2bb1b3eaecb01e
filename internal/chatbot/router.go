package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gatepass-hq/server/internal/gatepass/service"
	"github.com/gatepass-hq/server/internal/gatepass/store"
	"github.com/gatepass-hq/server/internal/gatepass/types"
)

// linkCodePattern matches the one-time channel-linking code.  Free text of
// this shape is treated as an implicit link attempt even without an action
// token.
var linkCodePattern = regexp.MustCompile(`^[0-9]{6}$`)

// Router dispatches inbound channel messages to domain actions.  It holds no
// session: everything it needs is reconstructed per message from (a) whether
// the sender's channel identity is linked to a resident and (b) the action
// token itself.  Handle is total — domain failures render as replies, and
// only the reply ever reaches the channel.
type Router struct {
	links       store.LinkStore
	estates     store.EstateStore
	policy      *service.PolicyEngine
	issuer      *service.IssueService
	credentials *service.CredentialService
	durations   *service.DurationOptions
	logger      *log.Logger
}

type RouterDeps struct {
	Links       store.LinkStore
	Estates     store.EstateStore
	Policy      *service.PolicyEngine
	Issuer      *service.IssueService
	Credentials *service.CredentialService
	Durations   *service.DurationOptions
	Logger      *log.Logger
}

func NewRouter(d RouterDeps) *Router {
	return &Router{
		links:       d.Links,
		estates:     d.Estates,
		policy:      d.Policy,
		issuer:      d.Issuer,
		credentials: d.Credentials,
		durations:   d.Durations,
		logger:      d.Logger,
	}
}

// Handle produces the reply for one inbound message.
func (r *Router) Handle(ctx context.Context, u Update) Reply {
	verb, param := splitAction(u.Action)
	text := strings.TrimSpace(u.Text)

	link, linked, err := r.links.ResidentForChannel(ctx, u.ChannelID)
	if err != nil {
		r.logger.Printf("resolve channel %s: %v", u.ChannelID, err)
		return r.oops(u.ChannelID)
	}

	if !linked {
		// Pattern-based dispatch: a bare 6-digit message is a link-code
		// submission even with no action token.
		if verb == "" && linkCodePattern.MatchString(text) {
			return r.tryLink(ctx, u.ChannelID, text)
		}
		if verb == actionLink {
			return Reply{
				ChannelID: u.ChannelID,
				Text:      "Send the 6-digit link code from your Gatepass account to connect this chat.",
			}
		}
		// The only guard: everything else gets the link prompt.
		return r.linkPrompt(u.ChannelID)
	}

	resident, err := r.estates.GetResident(ctx, link.ResidentID)
	if err != nil {
		r.logger.Printf("resolve resident %s: %v", link.ResidentID, err)
		return r.oops(u.ChannelID)
	}

	switch verb {
	case actionNew:
		return r.durationMenu(ctx, u.ChannelID, resident)
	case actionCreate:
		return r.create(ctx, u.ChannelID, resident, param)
	case actionCodes:
		return r.listCodes(ctx, u.ChannelID, resident)
	case actionRevokeAsk:
		return r.confirmRevoke(u.ChannelID, param)
	case actionRevoke:
		return r.revoke(ctx, u.ChannelID, resident, param)
	case actionProfile:
		return r.profile(ctx, u.ChannelID, resident)
	default:
		// actionMenu, unknown verbs and free text all land on the menu.
		return r.mainMenu(u.ChannelID, resident)
	}
}

func (r *Router) mainMenu(channelID string, resident store.Resident) Reply {
	return Reply{
		ChannelID: channelID,
		Text:      fmt.Sprintf("Hi %s! What would you like to do?", resident.DisplayName),
		Buttons: grid(
			Button{Label: "New visitor code", Action: actionNew},
			Button{Label: "My codes", Action: actionCodes},
			Button{Label: "Profile", Action: actionProfile},
		),
	}
}

func (r *Router) linkPrompt(channelID string) Reply {
	return Reply{
		ChannelID: channelID,
		Text:      "This chat is not linked to a Gatepass account yet.",
		Buttons: grid(
			Button{Label: "Link account", Action: actionLink},
		),
	}
}

func (r *Router) tryLink(ctx context.Context, channelID, code string) Reply {
	_, err := r.links.ConsumeLinkCode(ctx, code, channelID, time.Now().UTC())
	if errors.Is(err, store.ErrLinkCodeInvalid) {
		return Reply{
			ChannelID: channelID,
			Text:      "That code didn't match a pending link. Check it and try again.",
			Buttons: grid(
				Button{Label: "Link account", Action: actionLink},
			),
		}
	}
	if err != nil {
		r.logger.Printf("consume link code: %v", err)
		return r.oops(channelID)
	}
	return Reply{
		ChannelID: channelID,
		Text:      "Linked! What would you like to do?",
		Buttons: grid(
			Button{Label: "New visitor code", Action: actionNew},
			Button{Label: "My codes", Action: actionCodes},
			Button{Label: "Profile", Action: actionProfile},
		),
	}
}

func (r *Router) durationMenu(ctx context.Context, channelID string, resident store.Resident) Reply {
	options, err := r.durations.Options(ctx, resident.EstateID)
	if err != nil {
		r.logger.Printf("duration options: %v", err)
		return r.oops(channelID)
	}

	buttons := make([]Button, 0, len(options)+2)
	for _, opt := range options {
		buttons = append(buttons, Button{
			Label:  opt.Label,
			Action: fmt.Sprintf("%s:%d", actionCreate, opt.Minutes),
		})
	}
	buttons = append(buttons,
		Button{Label: "Permanent", Action: actionCreate + ":" + createPermanent},
		Button{Label: "Back", Action: actionMenu},
	)

	return Reply{
		ChannelID: channelID,
		Text:      "How long should the code stay valid?",
		Buttons:   grid(buttons...),
	}
}

func (r *Router) create(ctx context.Context, channelID string, resident store.Resident, param string) Reply {
	req := types.IssueRequest{}
	if param == createPermanent {
		req.Permanent = true
	} else {
		minutes, err := strconv.Atoi(param)
		if err != nil || minutes <= 0 {
			return r.mainMenu(channelID, resident)
		}
		req.RequestedMinutes = minutes
	}

	c, err := r.issuer.Issue(ctx, resident.ID, resident.EstateID, req)

	var quota *service.QuotaExceededError
	switch {
	case errors.As(err, &quota):
		return Reply{
			ChannelID: channelID,
			Text:      fmt.Sprintf("You've reached your daily limit of %d codes. Try again tomorrow.", quota.Limit),
			Buttons:   grid(Button{Label: "Back", Action: actionMenu}),
		}
	case err != nil:
		r.logger.Printf("issue code: %v", err)
		return r.oops(channelID)
	}

	text := fmt.Sprintf("Your visitor code is %s.", c.Code)
	if c.Kind == types.KindLongLived {
		text += " It never expires and can be used any number of times."
	} else if c.ExpiresAt != nil {
		text += fmt.Sprintf(" Valid once, until %s.", c.ExpiresAt.UTC().Format("Jan 2 15:04 MST"))
	}

	return Reply{
		ChannelID: channelID,
		Text:      text,
		Buttons: grid(
			Button{Label: "My codes", Action: actionCodes},
			Button{Label: "Menu", Action: actionMenu},
		),
	}
}

func (r *Router) listCodes(ctx context.Context, channelID string, resident store.Resident) Reply {
	active, err := r.credentials.ListActive(ctx, resident.ID, resident.EstateID)
	if err != nil {
		r.logger.Printf("list codes: %v", err)
		return r.oops(channelID)
	}

	if len(active) == 0 {
		return Reply{
			ChannelID: channelID,
			Text:      "You have no active codes.",
			Buttons: grid(
				Button{Label: "New visitor code", Action: actionNew},
				Button{Label: "Menu", Action: actionMenu},
			),
		}
	}

	buttons := make([]Button, 0, len(active)+1)
	for _, c := range active {
		label := c.Code
		if c.VisitorLabel != "" {
			label += " · " + c.VisitorLabel
		}
		if c.Kind == types.KindLongLived {
			label += " (permanent)"
		}
		buttons = append(buttons, Button{
			Label:  label,
			Action: actionRevokeAsk + ":" + c.ID,
		})
	}
	buttons = append(buttons, Button{Label: "Menu", Action: actionMenu})

	return Reply{
		ChannelID: channelID,
		Text:      "Your active codes — tap one to revoke it.",
		Buttons:   grid(buttons...),
	}
}

func (r *Router) confirmRevoke(channelID, credentialID string) Reply {
	return Reply{
		ChannelID: channelID,
		Text:      "Revoke this code? The visitor will no longer be able to enter.",
		Buttons: grid(
			Button{Label: "Revoke", Action: actionRevoke + ":" + credentialID},
			Button{Label: "Cancel", Action: actionCodes},
		),
	}
}

func (r *Router) revoke(ctx context.Context, channelID string, resident store.Resident, credentialID string) Reply {
	res, err := r.credentials.Revoke(ctx, resident.ID, credentialID)
	if errors.Is(err, store.ErrNotFound) {
		// Stale button or someone else's code: back to the list, quietly.
		return r.listCodes(ctx, channelID, resident)
	}
	if err != nil {
		r.logger.Printf("revoke code: %v", err)
		return r.oops(channelID)
	}

	text := "Code revoked."
	if !res.Revoked {
		text = "That code was already used or expired."
	}
	return Reply{
		ChannelID: channelID,
		Text:      text,
		Buttons: grid(
			Button{Label: "My codes", Action: actionCodes},
			Button{Label: "Menu", Action: actionMenu},
		),
	}
}

func (r *Router) profile(ctx context.Context, channelID string, resident store.Resident) Reply {
	estate, err := r.estates.GetEstate(ctx, resident.EstateID)
	if err != nil {
		r.logger.Printf("profile estate: %v", err)
		return r.oops(channelID)
	}

	text := fmt.Sprintf("%s — %s", resident.DisplayName, estate.Name)
	if resident.Unit != "" {
		text += fmt.Sprintf(" (unit %s)", resident.Unit)
	}

	if used, err := r.policy.UsedToday(ctx, resident.ID, resident.EstateID); err == nil {
		if q := estate.Policy.DailyQuotaPerResident; q != nil {
			text += fmt.Sprintf("\nCodes issued today: %d of %d.", used, *q)
		} else {
			text += fmt.Sprintf("\nCodes issued today: %d.", used)
		}
	}

	return Reply{
		ChannelID: channelID,
		Text:      text,
		Buttons:   grid(Button{Label: "Menu", Action: actionMenu}),
	}
}

func (r *Router) oops(channelID string) Reply {
	return Reply{
		ChannelID: channelID,
		Text:      "Something went wrong on our side. Please try again.",
		Buttons:   grid(Button{Label: "Menu", Action: actionMenu}),
	}
}

func splitAction(action string) (verb, param string) {
	action = strings.TrimSpace(action)
	if action == "" {
		return "", ""
	}
	verb, param, _ = strings.Cut(action, ":")
	return verb, param
}
