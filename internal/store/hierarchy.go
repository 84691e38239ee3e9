package store

import (
	"context"
	"fmt"
)

// HierarchyRequest is one request node in the nested hierarchy tree.
type HierarchyRequest struct {
	*Request
	Tasks []*HierarchyTask `json:"tasks"`
}

// HierarchyTask is one task (wave) node, with its subtasks attached.
type HierarchyTask struct {
	*Task
	Subtasks []*Subtask `json:"subtasks"`
}

// GetHierarchy returns the full project -> request -> task -> subtask
// tree for projectID via three bulk queries (not N+1). Tasks are ordered
// by wave_number then created_at; requests and subtasks by created_at.
func (s *Store) GetHierarchy(ctx context.Context, projectID string) (*Project, []*HierarchyRequest, error) {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}

	reqRows, err := s.Pool.Query(ctx, `
		SELECT id, project_id, session_id, prompt, prompt_type, status, metadata, created_at, updated_at, completed_at
		FROM requests WHERE project_id = $1 ORDER BY created_at ASC
	`, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load requests: %w", err)
	}
	var requests []*HierarchyRequest
	requestIDs := make([]string, 0)
	byRequestID := map[string]*HierarchyRequest{}
	for reqRows.Next() {
		r, err := scanRequest(reqRows)
		if err != nil {
			reqRows.Close()
			return nil, nil, err
		}
		hr := &HierarchyRequest{Request: r}
		requests = append(requests, hr)
		requestIDs = append(requestIDs, r.ID)
		byRequestID[r.ID] = hr
	}
	reqRows.Close()
	if err := reqRows.Err(); err != nil {
		return nil, nil, err
	}
	if len(requestIDs) == 0 {
		return project, requests, nil
	}

	taskRows, err := s.Pool.Query(ctx, `
		SELECT id, request_id, name, wave_number, status, created_at, updated_at
		FROM tasks WHERE request_id = ANY($1) ORDER BY wave_number ASC, created_at ASC
	`, requestIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	taskIDs := make([]string, 0)
	byTaskID := map[string]*HierarchyTask{}
	for taskRows.Next() {
		t, err := scanTask(taskRows)
		if err != nil {
			taskRows.Close()
			return nil, nil, err
		}
		ht := &HierarchyTask{Task: t}
		if hr, ok := byRequestID[t.RequestID]; ok {
			hr.Tasks = append(hr.Tasks, ht)
		}
		taskIDs = append(taskIDs, t.ID)
		byTaskID[t.ID] = ht
	}
	taskRows.Close()
	if err := taskRows.Err(); err != nil {
		return nil, nil, err
	}
	if len(taskIDs) == 0 {
		return project, requests, nil
	}

	subtaskRows, err := s.Pool.Query(ctx, `
		SELECT id, task_id, agent_type, agent_id, description, status, blocked_by, context_snapshot, result, started_at, completed_at, created_at, updated_at
		FROM subtasks WHERE task_id = ANY($1) ORDER BY created_at ASC
	`, taskIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load subtasks: %w", err)
	}
	defer subtaskRows.Close()
	for subtaskRows.Next() {
		st, err := scanSubtask(subtaskRows)
		if err != nil {
			return nil, nil, err
		}
		if ht, ok := byTaskID[st.TaskID]; ok {
			ht.Subtasks = append(ht.Subtasks, st)
		}
	}
	if err := subtaskRows.Err(); err != nil {
		return nil, nil, err
	}

	return project, requests, nil
}
