package telegram

import (
	"encoding/json"
	"fmt"

	"tgbatch/internal/transport"
)

// ReplyParameters describes the message being replied to
type ReplyParameters struct {
	MessageID                int    `json:"message_id"`
	ChatID                   any    `json:"chat_id,omitempty"`
	AllowSendingWithoutReply bool   `json:"allow_sending_without_reply,omitempty"`
	Quote                    string `json:"quote,omitempty"`
}

// SendOptions are the optional sendMessage fields
type SendOptions struct {
	ParseMode           string
	DisableNotification bool
	ProtectContent      bool
	MessageThreadID     int
	// ReplyToMessageID is the legacy form of ReplyParameters; ReplyParameters wins when both are set
	ReplyToMessageID int
	ReplyParameters  *ReplyParameters
	ReplyMarkup      any // serialized to JSON
}

// NormalizeReply folds the legacy reply_to_message_id into reply_parameters.
// rp takes precedence over replyToMessageID.
func NormalizeReply(params transport.Params, replyToMessageID int, rp *ReplyParameters) error {
	delete(params, "reply_to_message_id")

	if rp == nil && replyToMessageID != 0 {
		rp = &ReplyParameters{MessageID: replyToMessageID}
	}
	if rp == nil {
		return nil
	}

	data, err := json.Marshal(rp)
	if err != nil {
		return fmt.Errorf("failed to marshal reply_parameters: %w", err)
	}
	params["reply_parameters"] = string(data)
	return nil
}

// SendMessageParams builds the parameter map of a sendMessage call
func SendMessageParams(chatID any, text string, opts *SendOptions) (transport.Params, error) {
	params := transport.Params{
		"chat_id": chatID,
		"text":    text,
	}
	if opts == nil {
		return params, nil
	}

	if opts.ParseMode != "" {
		params["parse_mode"] = opts.ParseMode
	}
	if opts.DisableNotification {
		params["disable_notification"] = true
	}
	if opts.ProtectContent {
		params["protect_content"] = true
	}
	if opts.MessageThreadID != 0 {
		params["message_thread_id"] = opts.MessageThreadID
	}
	if opts.ReplyMarkup != nil {
		data, err := json.Marshal(opts.ReplyMarkup)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal reply_markup: %w", err)
		}
		params["reply_markup"] = string(data)
	}

	if err := NormalizeReply(params, opts.ReplyToMessageID, opts.ReplyParameters); err != nil {
		return nil, err
	}
	return params, nil
}
