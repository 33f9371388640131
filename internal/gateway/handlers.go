package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pquerna/otp/totp"

	"btcsim/internal/ledger"
	"btcsim/internal/model"
	"btcsim/internal/sim"
)

// clientMessage is the tagged union of everything a client may send. The
// gateway validates shape here so session methods receive well-typed
// arguments only.
type clientMessage struct {
	Type  string `json:"type"`
	ReqID string `json:"reqId,omitempty"`
	Ping  int64  `json:"ping,omitempty"`

	// join
	PlayerID string `json:"playerId,omitempty"`
	Name     string `json:"name,omitempty"`

	// adminAuth
	PIN  string `json:"pin,omitempty"`
	TOTP string `json:"totp,omitempty"`

	// buy / sell
	Symbol string  `json:"symbol,omitempty"`
	Qty    float64 `json:"qty,omitempty"`

	// buyRig / sellRig / unlockRegion
	RigType string       `json:"rigType,omitempty"`
	RigID   string       `json:"rigId,omitempty"`
	Region  model.Region `json:"region,omitempty"`
	Count   int          `json:"count,omitempty"`

	// news
	Headline string             `json:"headline,omitempty"`
	Body     string             `json:"body,omitempty"`
	Effects  model.EventEffects `json:"effects,omitempty"`

	// params
	Params *sim.AdminParams `json:"params,omitempty"`
}

func (c *Client) handleMessage(raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendResult("", model.Fail(model.ErrInvalidRequest, "malformed message"))
		return
	}

	if msg.Ping > 0 && msg.Type == "" {
		c.sendJSON(envelope{Type: "pong", Data: map[string]int64{
			"ping":     msg.Ping,
			"serverTs": time.Now().UnixMilli(),
		}})
		return
	}

	switch msg.Type {
	case "join":
		c.handleJoin(msg)

	case "adminAuth":
		c.handleAdminAuth(msg)

	case "buy":
		c.withPlayer(msg, func(id string) model.ActionResult {
			return c.hub.session.Buy(id, msg.Symbol, msg.Qty)
		})

	case "sell":
		c.withPlayer(msg, func(id string) model.ActionResult {
			return c.hub.session.Sell(id, msg.Symbol, msg.Qty)
		})

	case "buyRig":
		c.withPlayer(msg, func(id string) model.ActionResult {
			return c.hub.session.BuyRig(id, msg.RigType, msg.Region, msg.Count)
		})

	case "sellRig":
		c.withPlayer(msg, func(id string) model.ActionResult {
			return c.hub.session.SellRig(id, ledger.SellRigSelection{
				RigID:  msg.RigID,
				Region: msg.Region,
				Type:   msg.RigType,
				Count:  msg.Count,
			})
		})

	case "unlockRegion":
		c.withPlayer(msg, func(id string) model.ActionResult {
			return c.hub.session.UnlockRegion(id, msg.Region)
		})

	case "start":
		c.finishAdmin(msg, c.hub.session.Start(c.IsAdmin()))

	case "pause":
		c.finishAdmin(msg, c.hub.session.Pause(c.IsAdmin()))

	case "end":
		c.finishAdmin(msg, c.hub.session.End(c.IsAdmin()))

	case "news":
		c.finishAdmin(msg, c.hub.session.CreateNewsEvent(c.IsAdmin(), model.ScheduledEvent{
			Headline: msg.Headline,
			Body:     msg.Body,
			Effects:  msg.Effects,
		}))

	case "params":
		if msg.Params == nil {
			c.sendResult(msg.ReqID, model.Fail(model.ErrInvalidRequest, "params payload is required"))
			return
		}
		c.finishAdmin(msg, c.hub.session.UpdateAdminParams(c.IsAdmin(), *msg.Params))

	case "state":
		c.sendMarket()
		if id := c.PlayerID(); id != "" {
			c.sendPlayer(id)
		}
		if c.IsAdmin() {
			c.sendAdmin()
		}

	default:
		c.sendResult(msg.ReqID, model.Fail(model.ErrInvalidRequest, "unknown message type "+msg.Type))
	}
}

func (c *Client) handleJoin(msg clientMessage) {
	id, res := c.hub.session.JoinOrReconnect(msg.PlayerID, msg.Name)
	if !res.OK {
		c.sendResult(msg.ReqID, res)
		return
	}
	c.bindPlayer(id)
	c.sendJSON(envelope{Type: "joined", ReqID: msg.ReqID, Data: map[string]string{"playerId": id}})
	c.sendPlayer(id)
	c.sendMarket()
}

// handleAdminAuth grants admin on a matching PIN or a valid TOTP code.
func (c *Client) handleAdminAuth(msg clientMessage) {
	auth := c.hub.auth
	ok := false
	if auth.AdminPIN != "" && msg.PIN == auth.AdminPIN {
		ok = true
	}
	if !ok && auth.TOTPSecret != "" && msg.TOTP != "" {
		ok = totp.Validate(msg.TOTP, auth.TOTPSecret)
	}
	if !ok {
		c.sendResult(msg.ReqID, model.Fail(model.ErrUnauthorized, "admin auth failed"))
		return
	}
	c.grantAdmin()
	c.sendResult(msg.ReqID, model.Ok())
	c.sendAdmin()
}

// withPlayer runs a player action for the joined player and reports the
// result plus, on success, the refreshed player view.
func (c *Client) withPlayer(msg clientMessage, fn func(playerID string) model.ActionResult) {
	id := c.PlayerID()
	if id == "" {
		c.sendResult(msg.ReqID, model.Fail(model.ErrUnknownPlayer, "join first"))
		return
	}
	res := fn(id)
	c.sendResult(msg.ReqID, res)
	if res.OK {
		c.sendPlayer(id)
	}
}

func (c *Client) finishAdmin(msg clientMessage, res model.ActionResult) {
	c.sendResult(msg.ReqID, res)
	if res.OK && c.IsAdmin() {
		c.sendAdmin()
	}
}

func (c *Client) sendResult(reqID string, res model.ActionResult) {
	c.sendJSON(envelope{Type: "result", ReqID: reqID, Data: res})
}

func (c *Client) sendMarket() {
	c.sendJSON(envelope{Type: "market", Data: c.hub.session.MarketSnapshot()})
}

func (c *Client) sendPlayer(id string) {
	view, res := c.hub.session.PlayerSnapshot(id)
	if !res.OK {
		return
	}
	c.sendJSON(envelope{Type: "player", Data: view})
}

func (c *Client) sendAdmin() {
	view, res := c.hub.session.AdminSnapshot(true)
	if !res.OK {
		return
	}
	c.sendJSON(envelope{Type: "admin", Data: view})
}

// bootstrapPayload is the static catalog served to clients on page load.
type bootstrapPayload struct {
	Assets  []model.AssetSpec        `json:"assets"`
	Rigs    []model.RigSpec          `json:"rigCatalog"`
	Regions []model.Region           `json:"regions"`
	Energy  map[model.Region]float64 `json:"baseEnergyPrices"`
	State   model.SimState           `json:"state"`
}

// HandleBootstrap serves GET /api/bootstrap: the immutable catalogs plus the
// current tick-clock state.
func (h *Hub) HandleBootstrap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	market := h.session.MarketSnapshot()
	payload := bootstrapPayload{
		Assets:  model.Assets,
		Rigs:    model.RigCatalog,
		Regions: model.Regions,
		Energy:  model.BaseEnergyPrices,
		State:   market.State,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}
