// internal/domain/card.go
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CardAuthorization is the reusable authorization a card gateway returns
// after a successful card charge.
type CardAuthorization struct {
	AuthorizationCode string `json:"authorization_code"`
	Bin               string `json:"bin"`
	Last4             string `json:"last4"`
	ExpMonth          string `json:"exp_month"`
	ExpYear           string `json:"exp_year"`
	Channel           string `json:"channel"`
	CardType          string `json:"card_type"`
	Bank              string `json:"bank"`
	CountryCode       string `json:"country_code"`
	Brand             string `json:"brand"`
	Reusable          bool   `json:"reusable"`
	Signature         string `json:"signature"`
}

type Card struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	Signature         string          `json:"signature"`
	Type              string          `json:"type"`
	LastFour          string          `json:"last_four"`
	ExpMonth          string          `json:"exp_month"`
	ExpYear           string          `json:"exp_year"`
	AuthorizationCode string          `json:"-"`
	Data              json.RawMessage `json:"-"`
	Keep              bool            `json:"keep"`
	IsActive          bool            `json:"-"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// NewCard builds a card from a gateway authorization. Derived fields are
// copied here once and never recomputed from Data afterwards.
func NewCard(userID string, auth CardAuthorization) (*Card, error) {
	data, err := json.Marshal(auth)
	if err != nil {
		return nil, err
	}

	cardType := auth.CardType
	if cardType == "" {
		cardType = auth.Brand
	}

	now := time.Now()
	return &Card{
		ID:                uuid.NewString(),
		UserID:            userID,
		Signature:         auth.Signature,
		Type:              cardType,
		LastFour:          auth.Last4,
		ExpMonth:          auth.ExpMonth,
		ExpYear:           auth.ExpYear,
		AuthorizationCode: auth.AuthorizationCode,
		Data:              data,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// CapturableCard returns the card to persist after a successful payment,
// or nil when the charge did not produce a reusable card authorization.
func CapturableCard(userID, channel string, auth *CardAuthorization) (*Card, error) {
	if channel != "card" || auth == nil || !auth.Reusable || auth.Signature == "" {
		return nil, nil
	}
	return NewCard(userID, *auth)
}
