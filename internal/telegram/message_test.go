package telegram

import (
	"encoding/json"
	"testing"

	"tgbatch/internal/transport"
)

func TestNormalizeReply(t *testing.T) {
	tests := []struct {
		name    string
		legacy  int
		rp      *ReplyParameters
		want    string
		present bool
	}{
		{name: "nothing", present: false},
		{name: "legacy id", legacy: 77, want: `{"message_id":77}`, present: true},
		{name: "structured wins", legacy: 77, rp: &ReplyParameters{MessageID: 5, Quote: "q"}, want: `{"message_id":5,"quote":"q"}`, present: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := transport.Params{"reply_to_message_id": tt.legacy}
			if err := NormalizeReply(params, tt.legacy, tt.rp); err != nil {
				t.Fatalf("NormalizeReply: %v", err)
			}
			if _, ok := params["reply_to_message_id"]; ok {
				t.Error("legacy key not removed")
			}
			got, ok := params["reply_parameters"]
			if ok != tt.present {
				t.Fatalf("reply_parameters present = %v, want %v", ok, tt.present)
			}
			if ok && got != tt.want {
				t.Errorf("reply_parameters = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestSendMessageParams(t *testing.T) {
	params, err := SendMessageParams(int64(42), "hi", &SendOptions{
		ParseMode:        "HTML",
		MessageThreadID:  3,
		ReplyToMessageID: 9,
		ReplyMarkup: map[string]any{
			"inline_keyboard": [][]map[string]string{{{"text": "ok", "callback_data": "ok"}}},
		},
	})
	if err != nil {
		t.Fatalf("SendMessageParams: %v", err)
	}

	if params["chat_id"] != int64(42) || params["text"] != "hi" || params["parse_mode"] != "HTML" {
		t.Errorf("params = %v", params)
	}
	if params["message_thread_id"] != 3 {
		t.Errorf("message_thread_id = %v", params["message_thread_id"])
	}
	if _, ok := params["disable_notification"]; ok {
		t.Error("disable_notification set without being asked for")
	}

	markup, ok := params["reply_markup"].(string)
	if !ok || !json.Valid([]byte(markup)) {
		t.Errorf("reply_markup = %v", params["reply_markup"])
	}
	if params["reply_parameters"] != `{"message_id":9}` {
		t.Errorf("reply_parameters = %v", params["reply_parameters"])
	}

	if _, _, err := transport.Encode(params); err != nil {
		t.Errorf("Encode: %v", err)
	}
}
