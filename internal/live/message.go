package live

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType is the discriminant carried in the "type" field of every frame.
type MessageType string

const (
	TypeConnection            MessageType = "connection"
	TypeSubscriptionConfirmed MessageType = "subscription-confirmed"
	TypeProbabilityUpdate     MessageType = "probability-update"
	TypeSubscribe             MessageType = "subscribe"
)

var (
	// ErrMalformedMessage is returned for frames that are not valid JSON
	// objects with a string "type" field.
	ErrMalformedMessage = errors.New("live: malformed message")
	// ErrUnknownMessageType is returned for well-formed frames of a type with no decoder.
	ErrUnknownMessageType = errors.New("live: unknown message type")
)

// Message is an inbound frame. The concrete type is selected by Kind.
type Message interface {
	Kind() MessageType
}

// ConnectionMessage is sent by the server once the socket is open.
type ConnectionMessage struct {
	ClientID string `json:"clientId,omitempty"`
	Message  string `json:"message,omitempty"`
}

func (ConnectionMessage) Kind() MessageType { return TypeConnection }

// SubscriptionConfirmed acknowledges a subscribe request.
type SubscriptionConfirmed struct {
	Channel string `json:"channel"`
}

func (SubscriptionConfirmed) Kind() MessageType { return TypeSubscriptionConfirmed }

// ProbabilityUpdate carries new win probabilities for a game.
type ProbabilityUpdate struct {
	GameID        string             `json:"gameId"`
	Probabilities map[string]float64 `json:"probabilities"`
	GameState     json.RawMessage    `json:"gameState,omitempty"`
}

func (ProbabilityUpdate) Kind() MessageType { return TypeProbabilityUpdate }

type envelope struct {
	Type MessageType `json:"type"`
}

type subscribeMessage struct {
	Type    MessageType `json:"type"`
	Channel string      `json:"channel"`
	UserID  string      `json:"userId,omitempty"`
}

var decoders = map[MessageType]func([]byte) (Message, error){
	TypeConnection:            decodeAs[ConnectionMessage],
	TypeSubscriptionConfirmed: decodeAs[SubscriptionConfirmed],
	TypeProbabilityUpdate:     decodeAs[ProbabilityUpdate],
}

func decodeAs[M Message](data []byte) (Message, error) {
	var m M
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Decode parses a raw frame into its concrete Message.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	decode, ok := decoders[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, env.Type)
	}
	msg, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, env.Type, err)
	}
	return msg, nil
}

// typeOf extracts the discriminant from a frame without decoding the payload.
func typeOf(data []byte) MessageType {
	var env envelope
	_ = json.Unmarshal(data, &env)
	return env.Type
}
