package bridge

import (
	"encoding/json"
	"testing"
)

func TestClientFrameUnmarshalsAuthFrame(t *testing.T) {
	raw := `{"type":"auth","token":"abc.def"}`
	var f clientFrame
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if f.Type != frameAuth || f.Token != "abc.def" {
		t.Errorf("unexpected frame: %+v", f)
	}
}

func TestClientFrameUnmarshalsPublishFrame(t *testing.T) {
	raw := `{"type":"publish","channel":"topics/build","event":"build.started","data":{"ok":true}}`
	var f clientFrame
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if f.Type != framePublish || f.Channel != "topics/build" || f.Event != "build.started" {
		t.Errorf("unexpected frame: %+v", f)
	}

	var data map[string]any
	if err := json.Unmarshal(f.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal embedded data: %v", err)
	}
	if data["ok"] != true {
		t.Errorf("unexpected data: %+v", data)
	}
}

func TestNewErrorFrameShape(t *testing.T) {
	f := newErrorFrame("AUTH_INVALID", "signature mismatch")
	if f.Type != "error" || f.Code != "AUTH_INVALID" || f.Error != "signature mismatch" {
		t.Errorf("unexpected error frame: %+v", f)
	}
}

func TestEventFrameRoundTrip(t *testing.T) {
	want := eventFrame{
		Type:      "event",
		ID:        "evt-1",
		Channel:   "global",
		Event:     "task.completed",
		Data:      map[string]any{"task_id": "t1"},
		Timestamp: "2026-07-31T00:00:00Z",
	}
	payload, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got eventFrame
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.ID != want.ID || got.Channel != want.Channel || got.Event != want.Event {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}
