package mq

import (
	"time"

	"campaign_pricing/pricing/fbs/CampaignMessages"
	"campaign_pricing/pricing/internal/campaign"
	"campaign_pricing/pricing/internal/events"

	flatbuffers "github.com/google/flatbuffers/go"
)

// EncodeEvent serializes a cart lifecycle event as a CartEvent table.
func EncodeEvent(e events.Event, at time.Time) []byte {
	builder := flatbuffers.NewBuilder(256)

	keyOffsets := make([]flatbuffers.UOffsetT, len(e.RelatedKeys))
	for i, k := range e.RelatedKeys {
		keyOffsets[i] = builder.CreateString(k)
	}
	CampaignMessages.CartEventStartRelatedKeysVector(builder, len(keyOffsets))
	for i := len(keyOffsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(keyOffsets[i])
	}
	related := builder.EndVector(len(keyOffsets))

	name := builder.CreateString(e.Name)
	sid := builder.CreateString(e.SessionID)
	ctype := builder.CreateString(string(e.CampaignType))
	key := builder.CreateString(e.LineKey)

	CampaignMessages.CartEventStart(builder)
	CampaignMessages.CartEventAddName(builder, name)
	CampaignMessages.CartEventAddSessionId(builder, sid)
	CampaignMessages.CartEventAddCampaignId(builder, e.CampaignID)
	CampaignMessages.CartEventAddCampaignType(builder, ctype)
	CampaignMessages.CartEventAddProductId(builder, e.ProductID)
	CampaignMessages.CartEventAddLineKey(builder, key)
	CampaignMessages.CartEventAddRelatedKeys(builder, related)
	CampaignMessages.CartEventAddTimestamp(builder, at.Unix())
	msg := CampaignMessages.CartEventEnd(builder)

	builder.Finish(msg)
	return builder.FinishedBytes()
}

// DecodeEvent reads a CartEvent payload back into an event and its
// publish time.
func DecodeEvent(payload []byte) (events.Event, time.Time) {
	msg := CampaignMessages.GetRootAsCartEvent(payload, 0)
	e := events.Event{
		Name:         string(msg.Name()),
		SessionID:    string(msg.SessionId()),
		CampaignID:   msg.CampaignId(),
		CampaignType: campaign.Type(msg.CampaignType()),
		ProductID:    msg.ProductId(),
		LineKey:      string(msg.LineKey()),
	}
	for i := 0; i < msg.RelatedKeysLength(); i++ {
		e.RelatedKeys = append(e.RelatedKeys, string(msg.RelatedKeys(i)))
	}
	return e, time.Unix(msg.Timestamp(), 0)
}
