package api

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewSuccessEnvelope(t *testing.T) {
	data, err := json.Marshal(NewSuccess(200, map[string]any{"userId": "alice"}, "Logged in successfully"))
	if err != nil {
		t.Fatalf("marshal returned error: %v", err)
	}
	want := `{"status":200,"message":"Logged in successfully","data":{"userId":"alice"},"error":null}`
	if string(data) != want {
		t.Fatalf("envelope = %s, want %s", data, want)
	}
}

func TestNewSuccessNilData(t *testing.T) {
	data, err := json.Marshal(NewSuccess(200, nil, "ok"))
	if err != nil {
		t.Fatalf("marshal returned error: %v", err)
	}
	want := `{"status":200,"message":"ok","data":[],"error":null}`
	if string(data) != want {
		t.Fatalf("envelope = %s, want %s", data, want)
	}
}

func TestNewErrorEnvelope(t *testing.T) {
	data, err := json.Marshal(NewError(404, "User not found"))
	if err != nil {
		t.Fatalf("marshal returned error: %v", err)
	}
	want := `{"status":404,"message":"User not found","data":[],"error":"User not found"}`
	if string(data) != want {
		t.Fatalf("envelope = %s, want %s", data, want)
	}
}

func TestNewErrorDetail(t *testing.T) {
	resp := NewErrorDetail(500, "Internal Server Error", errors.New("db error: timeout"))
	if resp.Error == nil || *resp.Error != "db error: timeout" {
		t.Fatalf("resp.Error = %v, want underlying message", resp.Error)
	}
	if resp.Message != "Internal Server Error" {
		t.Fatalf("resp.Message = %q", resp.Message)
	}
}

func TestNewErrorDetailNilError(t *testing.T) {
	resp := NewErrorDetail(500, "Internal Server Error", nil)
	if resp.Error == nil || *resp.Error != "Internal Server Error" {
		t.Fatalf("resp.Error = %v, want the generic message", resp.Error)
	}
}
