package proto

import (
	"encoding/json"

	"github.com/ec429/howzat/proto/snowflake"
)

// ServerVersion is reported in the welcome document sent on accept.
var ServerVersion = []int{1, 0, 0}

type PacketType string

var (
	WelcomeType = PacketType("welcome")
	HelloType   = PacketType("hello")
	GoodbyeType = PacketType("goodbye")
	WallType    = PacketType("wall")
	InviteType  = PacketType("invite")
	RevokeType  = PacketType("revoke")
	AcceptType  = PacketType("accept")
	RejectType  = PacketType("reject")
	ActionType  = PacketType("action")
	ErrorType   = PacketType("error")
	EnterType   = PacketType("enter")
	ExitType    = PacketType("exit")
	JoinType    = PacketType("join")
)

// Invitation kinds.
const (
	InviteNew  = "new"
	InviteJoin = "join"
)

// A Packet is one line of the wire protocol: a flat JSON document carrying a
// type field that selects its payload.
type Packet struct {
	Type PacketType
	Data json.RawMessage
}

// ParsePacket decodes one frame. The frame must be a JSON object with a
// string-valued type field; anything else is a MalformedError.
func ParsePacket(frame []byte) (*Packet, error) {
	var head struct {
		Type interface{} `json:"type"`
	}
	if err := json.Unmarshal(frame, &head); err != nil {
		return nil, Malformed("%s", err)
	}
	typ, ok := head.Type.(string)
	if !ok || typ == "" {
		return nil, Malformed("missing or non-string 'type'")
	}
	data := make(json.RawMessage, len(frame))
	copy(data, frame)
	return &Packet{Type: PacketType(typ), Data: data}, nil
}

// Payload decodes the packet's document into the struct selected by its type.
// An unrecognized type yields an UnknownMessageError.
func (p *Packet) Payload() (interface{}, error) {
	var payload interface{}

	switch p.Type {
	case WelcomeType:
		payload = &WelcomeEvent{}
	case HelloType:
		payload = &HelloCommand{}
	case GoodbyeType:
		payload = &GoodbyeCommand{}
	case WallType:
		payload = &WallMessage{}
	case InviteType:
		payload = &InviteMessage{}
	case RevokeType:
		payload = &RevokeMessage{}
	case AcceptType:
		payload = &AcceptMessage{}
	case RejectType:
		payload = &RejectMessage{}
	case ActionType:
		payload = &ActionCommand{}
	case ErrorType:
		payload = &ErrorEvent{}
	case EnterType:
		payload = &EnterEvent{}
	case ExitType:
		payload = &ExitEvent{}
	case JoinType:
		payload = &JoinEvent{}
	default:
		return nil, &UnknownMessageError{Type: p.Type}
	}

	if err := json.Unmarshal(p.Data, payload); err != nil {
		return nil, Malformed("%s payload: %s", p.Type, err)
	}
	return payload, nil
}

func (p *Packet) Encode() ([]byte, error) { return p.Data, nil }

// MakePacket flattens a payload struct into a single document with the given
// type field spliced in.
func MakePacket(msgType PacketType, payload interface{}) (*Packet, error) {
	fields := map[string]interface{}{}
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(encoded, &fields); err != nil {
			return nil, err
		}
	}
	fields["type"] = string(msgType)
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return &Packet{Type: msgType, Data: data}, nil
}

// The server sends `welcome` immediately on accept, before the client has
// said anything.
type WelcomeEvent struct {
	Version []int  `json:"version"`
	Message string `json:"message"`
}

// `hello` registers the connection under a display name. The optional player
// field names the participant's player in a game; it defaults to the
// username.
type HelloCommand struct {
	Username string `json:"username"`
	Player   string `json:"player,omitempty"`
}

type GoodbyeCommand struct{}

// `wall` broadcasts a message to the sender's current room. The same document
// shape travels both ways: clients send just the message, the server stamps
// the id and sender when it fans the message out.
type WallMessage struct {
	ID      snowflake.Snowflake `json:"id,omitempty"`
	From    string              `json:"frm,omitempty"`
	Message string              `json:"message"`
}

// The invitation family shares one shape in both directions: `to` names the
// target when a client sends it, `frm` names the counterparty when the server
// relays it.
type InviteMessage struct {
	Invitation string `json:"invitation"`
	To         string `json:"to,omitempty"`
	From       string `json:"frm,omitempty"`
}

type RevokeMessage InviteMessage
type AcceptMessage InviteMessage
type RejectMessage InviteMessage

type EnterEvent struct {
	User string `json:"user"`
}

type ExitEvent struct {
	User string `json:"user"`
}

// `join` announces a player added to a game's team roster.
type JoinEvent struct {
	From   string `json:"frm"`
	Player string `json:"player"`
	Team   string `json:"team"`
}

type ErrorEvent struct {
	Error string `json:"error"`
}

// An `action` document carries a discriminating action field plus arbitrary
// action-specific fields. Inbound actions keep their raw fields so decision
// logic can validate them.
type ActionCommand struct {
	Action string
	fields map[string]interface{}
}

func (c *ActionCommand) UnmarshalJSON(data []byte) error {
	fields := map[string]interface{}{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	c.fields = fields
	c.Action, _ = fields["action"].(string)
	return nil
}

func (c *ActionCommand) MarshalJSON() ([]byte, error) {
	fields := map[string]interface{}{}
	for k, v := range c.fields {
		fields[k] = v
	}
	fields["action"] = c.Action
	return json.Marshal(fields)
}

func (c *ActionCommand) Bool(key string) (bool, bool) {
	v, ok := c.fields[key].(bool)
	return v, ok
}

func (c *ActionCommand) String(key string) (string, bool) {
	v, ok := c.fields[key].(string)
	return v, ok
}

// ActionEvent is a server-to-client prompt asking the participant to perform
// an action of the named kind.
type ActionEvent struct {
	Action  string   `json:"action"`
	Reason  string   `json:"reason,omitempty"`
	Dice    int      `json:"dice,omitempty"`
	Legal   []string `json:"legal,omitempty"`
	Current string   `json:"current,omitempty"`
}
