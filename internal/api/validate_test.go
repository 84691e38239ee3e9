package api

import "testing"

func TestIngestActionRequestValidate(t *testing.T) {
	req := &ingestActionRequest{}
	if err := req.Validate(); err == nil {
		t.Fatal("expected validation error for missing session_id and tool_name")
	}

	req = &ingestActionRequest{SessionID: "s1", ToolName: "ripgrep"}
	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request to pass, got %v", err)
	}
}

func TestPublishMessageRequestValidate(t *testing.T) {
	req := &publishMessageRequest{}
	if err := req.Validate(); err == nil {
		t.Fatal("expected validation error for missing from_agent and topic")
	}

	req = &publishMessageRequest{FromAgent: "agent-1", Topic: "build"}
	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request to pass, got %v", err)
	}
}

func TestCreateBlockingRequestValidate(t *testing.T) {
	req := &createBlockingRequest{Blocker: "agent-1"}
	if err := req.Validate(); err == nil {
		t.Fatal("expected validation error for missing blocked")
	}

	req.Blocked = "agent-2"
	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request to pass, got %v", err)
	}
}

func TestUnblockRequestValidate(t *testing.T) {
	req := &unblockRequest{}
	if err := req.Validate(); err == nil {
		t.Fatal("expected validation error for missing blocker/blocked")
	}
}

func TestRoutingFeedbackRequestValidate(t *testing.T) {
	req := &routingFeedbackRequest{}
	if err := req.Validate(); err == nil {
		t.Fatal("expected validation error for missing tool_name and keywords")
	}

	req = &routingFeedbackRequest{ToolName: "ripgrep", Keywords: []string{"search"}}
	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request to pass, got %v", err)
	}
}

func TestCreateProjectRequestValidate(t *testing.T) {
	req := &createProjectRequest{}
	if err := req.Validate(); err == nil {
		t.Fatal("expected validation error for missing path")
	}

	req.Path = "/tmp/project"
	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request to pass, got %v", err)
	}
}

func TestSubscribeRequestValidate(t *testing.T) {
	req := &subscribeRequest{}
	if err := req.Validate(); err == nil {
		t.Fatal("expected validation error for missing fields")
	}

	req = &subscribeRequest{AgentID: "agent-1", Topic: "build"}
	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request to pass, got %v", err)
	}
}

func TestUnsubscribeRequestValidate(t *testing.T) {
	req := &unsubscribeRequest{AgentID: "agent-1"}
	if err := req.Validate(); err == nil {
		t.Fatal("expected validation error for missing topic")
	}

	req.Topic = "build"
	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request to pass, got %v", err)
	}
}

func TestMintTokenRequestValidate(t *testing.T) {
	req := &mintTokenRequest{}
	if err := req.Validate(); err == nil {
		t.Fatal("expected validation error for missing agent_id")
	}

	req.AgentID = "agent-1"
	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request to pass, got %v", err)
	}
}
