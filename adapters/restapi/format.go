package restapi

import (
	"github.com/samber/lo"

	"enchere/models"
)

// rawBid 為伺服器回應中的出價形狀
type rawBid struct {
	ID              string `json:"id"`
	Amount          int64  `json:"amount"`
	CreatedAt       int64  `json:"createdAt"`
	NewEndDate      int64  `json:"newEndDate"`
	UserAnonymousId string `json:"userAnonymousId"`
	ParticipantID   string `json:"participantId"`
}

// rawRegistration 為伺服器回應中的報名形狀
type rawRegistration struct {
	IsUserAllowed          bool  `json:"isUserAllowed"`
	IsRegistrationAccepted *bool `json:"isRegistrationAccepted"`
	IsParticipant          bool  `json:"isParticipant"`
}

// rawAuction 為伺服器回應中的拍賣形狀
// 舊版 API 將報名布林值攤平在頂層，此處一併接收，
// 統一在 formatAuction 轉換為巢狀的 Registration
type rawAuction struct {
	ID                  string           `json:"id"`
	Kind                string           `json:"kind"`
	Type                string           `json:"type"` // 舊版欄位名
	Status              string           `json:"status"`
	StartDate           int64            `json:"startDate"`
	EndDate             int64            `json:"endDate"`
	StartingPrice       int64            `json:"startingPrice"`
	Step                int64            `json:"step"`
	ReservePrice        *int64           `json:"reservePrice"`
	StepIntervalSeconds int64            `json:"stepIntervalSeconds"`
	Bids                []rawBid         `json:"bids"`
	FinalPrice          *int64           `json:"finalPrice"`
	Registration        *rawRegistration `json:"registration"`
	IsPrivate           bool             `json:"isPrivate"`
	AgentEmail          string           `json:"agentEmail"`
	AgentPhone          string           `json:"agentPhone"`
	Currency            struct {
		IsBefore bool   `json:"isBefore"`
		Symbol   string `json:"symbol"`
		Code     string `json:"code"`
	} `json:"currency"`

	// 舊版攤平形狀
	IsUserRegistered       *bool `json:"isUserRegistered"`
	IsUserAllowed          *bool `json:"isUserAllowed"`
	IsRegistrationAccepted *bool `json:"isRegistrationAccepted"`
	IsParticipant          *bool `json:"isParticipant"`
}

// formatAuction 將伺服器回應轉換為標準的拍賣快照
// 形狀差異（攤平的報名布林值、缺漏的 bids 陣列）只在此邊界處理一次，
// 核心邏輯永遠只看到 models.Auction 一種形狀
func (c *Client) formatAuction(raw rawAuction) models.Auction {
	bids := lo.Map(raw.Bids, func(b rawBid, _ int) models.Bid {
		return c.formatBid(b)
	})

	// 最高出價為金額最大者，到達順序在前者勝出同額比較
	highestBid := lo.Reduce(bids, func(acc *models.Bid, b models.Bid, _ int) *models.Bid {
		if acc == nil || b.Amount > acc.Amount {
			return &b
		}
		return acc
	}, nil)

	registration := formatRegistration(raw)

	kind := raw.Kind
	if kind == "" {
		kind = raw.Type
	}

	return models.Auction{
		ID:                  raw.ID,
		Kind:                models.ParseKind(kind),
		Status:              models.Status(raw.Status),
		StartDate:           raw.StartDate,
		EndDate:             raw.EndDate,
		StartingPrice:       raw.StartingPrice,
		Step:                raw.Step,
		ReservePrice:        raw.ReservePrice,
		StepIntervalSeconds: raw.StepIntervalSeconds,
		Bids:                bids,
		HighestBid:          highestBid,
		FinalPrice:          raw.FinalPrice,
		Registration:        registration,
		IsPrivate:           raw.IsPrivate,
		AgentEmail:          c.sanitizer.Sanitize(raw.AgentEmail),
		AgentPhone:          c.sanitizer.Sanitize(raw.AgentPhone),
		Currency: models.Currency{
			IsBefore: raw.Currency.IsBefore,
			Symbol:   raw.Currency.Symbol,
			Code:     raw.Currency.Code,
		},
	}
}

// formatRegistration 統一新舊兩種報名形狀
func formatRegistration(raw rawAuction) *models.Registration {
	if raw.Registration != nil {
		return &models.Registration{
			IsUserAllowed:          raw.Registration.IsUserAllowed,
			IsRegistrationAccepted: raw.Registration.IsRegistrationAccepted,
			IsParticipant:          raw.Registration.IsParticipant,
		}
	}
	// 舊版攤平形狀: 只有在使用者確實報名過時才轉換
	if raw.IsUserRegistered != nil && *raw.IsUserRegistered {
		reg := &models.Registration{
			IsRegistrationAccepted: raw.IsRegistrationAccepted,
		}
		if raw.IsUserAllowed != nil {
			reg.IsUserAllowed = *raw.IsUserAllowed
		}
		if raw.IsParticipant != nil {
			reg.IsParticipant = *raw.IsParticipant
		}
		return reg
	}
	return nil
}

// formatBid 將伺服器回應中的出價轉換為標準形狀
func (c *Client) formatBid(raw rawBid) models.Bid {
	return models.Bid{
		ID:              raw.ID,
		Amount:          raw.Amount,
		CreatedAt:       raw.CreatedAt,
		NewEndDate:      raw.NewEndDate,
		UserAnonymousId: c.sanitizer.Sanitize(raw.UserAnonymousId),
		ParticipantID:   raw.ParticipantID,
	}
}
