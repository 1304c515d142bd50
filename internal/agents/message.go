package agents

import (
	"github.com/talgya/hearthvale/internal/registry"
	"github.com/talgya/hearthvale/internal/world"
)

// MsgKind tags agent-to-agent messages. Handlers switch on it with a
// default no-op arm, so unknown kinds are dropped silently.
type MsgKind uint8

const (
	MsgCourtRequest MsgKind = iota
	MsgGreeting
	MsgTradeOffer
)

func (k MsgKind) String() string {
	switch k {
	case MsgCourtRequest:
		return "court_request"
	case MsgGreeting:
		return "greeting"
	case MsgTradeOffer:
		return "trade_offer"
	}
	return "unknown"
}

// SharedZone is the greeting payload: a remembered resource spot told
// to a neighbor.
type SharedZone struct {
	Pos        world.Vec2      `json:"pos"`
	Item       registry.ItemID `json:"item"`
	Confidence float64         `json:"confidence"`
}

// Message is one inbox entry. Payload fields depend on Kind. Warmth is
// how charming the greeting came across, set by the sender's manner,
// not a window into their traits.
type Message struct {
	From   AgentID      `json:"from"`
	Kind   MsgKind      `json:"kind"`
	Zones  []SharedZone `json:"zones,omitempty"`  // greeting
	Warmth float64      `json:"warmth,omitempty"` // greeting
	Offer  ItemStack    `json:"offer,omitempty"`  // trade_offer
	Want   ItemStack    `json:"want,omitempty"`
}

// Deliver queues a message for the next tick. Visibility rule: sent
// this tick, readable next think.
func (a *Agent) Deliver(m Message) {
	a.Pending = append(a.Pending, m)
}

// FlipMessages moves pending messages into the inbox at the think
// boundary.
func (a *Agent) FlipMessages() {
	a.Inbox = append(a.Inbox, a.Pending...)
	a.Pending = nil
}

// DrainInbox empties the inbox for exactly-once handling per think.
func (a *Agent) DrainInbox() []Message {
	msgs := a.Inbox
	a.Inbox = nil
	return msgs
}
