package phoenix

import (
	"encoding/json"
	"fmt"

	"enchere/models"
)

// Phoenix V2 serializer 的訊息為五元素 JSON 陣列:
// [joinRef, ref, topic, event, payload]
// joinRef 與 ref 為字串或 null。

const (
	eventJoin      = "phx_join"
	eventLeave     = "phx_leave"
	eventReply     = "phx_reply"
	eventError     = "phx_error"
	eventHeartbeat = "heartbeat"

	// eventOutbid 為拍賣頻道的出價推播
	eventOutbid = "outbid"
	// eventAuctionEnded 為拍賣結束推播，攜帶權威的最終成交價
	eventAuctionEnded = "auction_ended"

	// topicPhoenix 為心跳專用的控制 topic
	topicPhoenix = "phoenix"
)

// message 代表一則線上的 Phoenix 訊息
type message struct {
	JoinRef string
	Ref     string
	Topic   string
	Event   string
	Payload json.RawMessage
}

// encodeMessage 將訊息編碼為 V2 陣列格式
func encodeMessage(msg message) ([]byte, error) {
	var joinRef, ref any
	if msg.JoinRef != "" {
		joinRef = msg.JoinRef
	}
	if msg.Ref != "" {
		ref = msg.Ref
	}
	payload := msg.Payload
	if payload == nil {
		payload = json.RawMessage("{}")
	}
	return json.Marshal([5]any{joinRef, ref, msg.Topic, msg.Event, payload})
}

// decodeMessage 解析 V2 陣列格式的訊息
func decodeMessage(data []byte) (message, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return message{}, fmt.Errorf("failed to decode frame: %w", err)
	}
	if len(parts) != 5 {
		return message{}, fmt.Errorf("unexpected frame length %d", len(parts))
	}

	var msg message
	if err := decodeNullableString(parts[0], &msg.JoinRef); err != nil {
		return message{}, fmt.Errorf("invalid joinRef: %w", err)
	}
	if err := decodeNullableString(parts[1], &msg.Ref); err != nil {
		return message{}, fmt.Errorf("invalid ref: %w", err)
	}
	if err := json.Unmarshal(parts[2], &msg.Topic); err != nil {
		return message{}, fmt.Errorf("invalid topic: %w", err)
	}
	if err := json.Unmarshal(parts[3], &msg.Event); err != nil {
		return message{}, fmt.Errorf("invalid event: %w", err)
	}
	msg.Payload = parts[4]
	return msg, nil
}

// decodeNullableString 解析可能為 null 的字串欄位
func decodeNullableString(data json.RawMessage, out *string) error {
	if string(data) == "null" {
		*out = ""
		return nil
	}
	return json.Unmarshal(data, out)
}

// reply 為 phx_reply 的 payload
type reply struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

// EventType 區分頻道推播事件的種類
type EventType int

const (
	// EventNewBid 表示有新的出價
	EventNewBid EventType = iota
	// EventAuctionEnded 表示拍賣已結束
	EventAuctionEnded
)

// Event 為送達訂閱者的頻道推播事件
// 單一邏輯頻道保證伺服器發送順序，此層不再驗證順序
type Event struct {
	Type EventType
	// Bid 僅在 EventNewBid 時有值
	Bid models.Bid
	// AuctionID 與 FinalPrice 僅在 EventAuctionEnded 時有值
	// FinalPrice 可為 nil（流拍時沒有合格的得標者）
	AuctionID  string
	FinalPrice *int64
}

// outbidPayload 為 outbid 推播的 payload
type outbidPayload struct {
	Bid models.Bid `json:"bid"`
}

// auctionEndedPayload 為 auction_ended 推播的 payload
type auctionEndedPayload struct {
	AuctionID  string `json:"auctionId"`
	FinalPrice *int64 `json:"finalPrice"`
}

// decodeEvent 將頻道推播轉換為 Event，不認得的事件回傳 false
func decodeEvent(msg message) (Event, bool, error) {
	switch msg.Event {
	case eventOutbid:
		var payload outbidPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return Event{}, false, fmt.Errorf("failed to decode outbid payload: %w", err)
		}
		return Event{Type: EventNewBid, Bid: payload.Bid}, true, nil
	case eventAuctionEnded:
		var payload auctionEndedPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return Event{}, false, fmt.Errorf("failed to decode auction_ended payload: %w", err)
		}
		return Event{Type: EventAuctionEnded, AuctionID: payload.AuctionID, FinalPrice: payload.FinalPrice}, true, nil
	default:
		return Event{}, false, nil
	}
}
