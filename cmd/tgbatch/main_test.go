package main

import (
	"context"
	"testing"
)

func TestParseChats(t *testing.T) {
	ids, err := parseChats(" 1, -1002 ,,3")
	if err != nil {
		t.Fatalf("parseChats: %v", err)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[1] != -1002 || ids[2] != 3 {
		t.Errorf("ids = %v", ids)
	}

	if _, err := parseChats(""); err == nil {
		t.Error("expected error for empty list")
	}
	if _, err := parseChats("1,abc"); err == nil {
		t.Error("expected error for non-numeric id")
	}
}

func TestParseParams(t *testing.T) {
	p, err := parseParams("chat_id=1,text=a=b")
	if err != nil {
		t.Fatalf("parseParams: %v", err)
	}
	if p["chat_id"] != "1" || p["text"] != "a=b" {
		t.Errorf("params = %v", p)
	}

	if p, err := parseParams(""); err != nil || len(p) != 0 {
		t.Errorf("empty = %v, %v", p, err)
	}
	if _, err := parseParams("novalue"); err == nil {
		t.Error("expected error for missing '='")
	}
}

func TestRun_NothingToDo(t *testing.T) {
	if _, err := run(context.Background(), nil, "", "", "", ""); err == nil {
		t.Error("expected error")
	}
}
