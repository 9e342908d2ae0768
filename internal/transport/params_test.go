package transport

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"strings"
	"testing"
)

func TestEncode_Form(t *testing.T) {
	body, contentType, err := Encode(Params{
		"chat_id":              int64(-100123),
		"text":                 "hello world",
		"disable_notification": true,
		"latitude":             51.5,
		"reply_markup":         json.RawMessage(`{"inline_keyboard":[]}`),
		"message_thread_id":    nil,
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if contentType != ContentTypeForm {
		t.Errorf("content type = %s", contentType)
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}

	want := map[string]string{
		"chat_id":              "-100123",
		"text":                 "hello world",
		"disable_notification": "true",
		"latitude":             "51.5",
		"reply_markup":         `{"inline_keyboard":[]}`,
	}
	for k, v := range want {
		if got := values.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if _, ok := values["message_thread_id"]; ok {
		t.Error("nil value should be skipped")
	}
}

func TestEncode_Deterministic(t *testing.T) {
	p := Params{"b": "2", "a": "1", "c": "3"}
	first, _, _ := Encode(p)
	for i := 0; i < 10; i++ {
		again, _, _ := Encode(p)
		if !bytes.Equal(first, again) {
			t.Fatalf("body changed between encodings: %s vs %s", first, again)
		}
	}
	if string(first) != "a=1&b=2&c=3" {
		t.Errorf("body = %s", first)
	}
}

func TestEncode_Multipart(t *testing.T) {
	file, err := NewInputFile("doc.txt", strings.NewReader("file contents"))
	if err != nil {
		t.Fatalf("NewInputFile: %v", err)
	}

	body, contentType, err := Encode(Params{
		"chat_id":  42,
		"document": file,
		"caption":  "report",
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	mediaType, mp, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" {
		t.Fatalf("content type = %s (%v)", contentType, err)
	}

	r := multipart.NewReader(bytes.NewReader(body), mp["boundary"])
	parts := map[string]string{}
	fileNames := map[string]string{}
	for {
		part, err := r.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextPart: %v", err)
		}
		data, _ := io.ReadAll(part)
		parts[part.FormName()] = string(data)
		fileNames[part.FormName()] = part.FileName()
	}

	if parts["chat_id"] != "42" || parts["caption"] != "report" {
		t.Errorf("fields = %v", parts)
	}
	if parts["document"] != "file contents" || fileNames["document"] != "doc.txt" {
		t.Errorf("document = %q (%q)", parts["document"], fileNames["document"])
	}
}

func TestEncode_RejectsNested(t *testing.T) {
	_, _, err := Encode(Params{"message_ids": []int{1, 2}})
	if err == nil {
		t.Fatal("expected error for nested value")
	}
	if !strings.Contains(err.Error(), "message_ids") {
		t.Errorf("error = %v", err)
	}
}

func TestParams_Clone(t *testing.T) {
	raw := []byte("abc")
	p := Params{"photo": raw, "text": "x"}
	c := p.Clone()

	raw[0] = 'z'
	p["text"] = "changed"

	if string(c["photo"].([]byte)) != "abc" {
		t.Errorf("clone shares binary payload")
	}
	if c["text"] != "x" {
		t.Errorf("clone shares map")
	}
	if !c.HasBinary() {
		t.Error("HasBinary = false")
	}
}
