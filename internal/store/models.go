// Package store is the shared Postgres-backed persistence layer for
// swarmdeck's API and bridge processes. It owns the schema, all eleven
// relational tables, the four derived views, and the commit-coupled
// notify channel that the two processes rendezvous on.
package store

import "time"

// ProjectStatus-less entity: projects have no status field.

// Project is the root of the hierarchical work model.
type Project struct {
	ID        string            `json:"id"`
	Path      string            `json:"path"`
	Name      string            `json:"name,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Session represents one agent work session.
type Session struct {
	ID              string     `json:"id"`
	ProjectID       *string    `json:"project_id,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	TotalToolsUsed  int        `json:"total_tools_used"`
	TotalSuccess    int        `json:"total_success"`
	TotalErrors     int        `json:"total_errors"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// PromptType enumerates the recognized request prompt categories.
type PromptType string

const (
	PromptFeature PromptType = "feature"
	PromptDebug   PromptType = "debug"
	PromptExplain PromptType = "explain"
	PromptSearch  PromptType = "search"
	PromptRefactor PromptType = "refactor"
	PromptTest    PromptType = "test"
	PromptReview  PromptType = "review"
	PromptOther   PromptType = "other"
)

// RequestStatus enumerates request lifecycle states.
type RequestStatus string

const (
	RequestActive    RequestStatus = "active"
	RequestCompleted RequestStatus = "completed"
	RequestFailed    RequestStatus = "failed"
	RequestCancelled RequestStatus = "cancelled"
)

// Request represents one user prompt.
type Request struct {
	ID          string            `json:"id"`
	ProjectID   string            `json:"project_id"`
	SessionID   string            `json:"session_id"`
	Prompt      string            `json:"prompt"`
	PromptType  PromptType        `json:"prompt_type"`
	Status      RequestStatus     `json:"status"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// TaskStatus enumerates wave lifecycle states.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskBlocked   TaskStatus = "blocked"
)

// Task (a "wave") groups sibling subtasks executed together.
type Task struct {
	ID         string     `json:"id"`
	RequestID  string     `json:"request_id"`
	Name       string     `json:"name"`
	WaveNumber int        `json:"wave_number"`
	Status     TaskStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// SubtaskStatus enumerates leaf work-unit states.
type SubtaskStatus string

const (
	SubtaskPending   SubtaskStatus = "pending"
	SubtaskRunning   SubtaskStatus = "running"
	SubtaskPaused    SubtaskStatus = "paused"
	SubtaskBlocked   SubtaskStatus = "blocked"
	SubtaskCompleted SubtaskStatus = "completed"
	SubtaskFailed    SubtaskStatus = "failed"
)

// Subtask is the leaf unit of agent work.
type Subtask struct {
	ID              string         `json:"id"`
	TaskID          string         `json:"task_id"`
	AgentType       string         `json:"agent_type,omitempty"`
	AgentID         string         `json:"agent_id,omitempty"`
	Description     string         `json:"description"`
	Status          SubtaskStatus  `json:"status"`
	BlockedBy       []string       `json:"blocked_by,omitempty"`
	ContextSnapshot map[string]any `json:"context_snapshot,omitempty"`
	Result          map[string]any `json:"result,omitempty"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ToolType enumerates recognized action tool categories.
type ToolType string

const (
	ToolBuiltin ToolType = "builtin"
	ToolAgent   ToolType = "agent"
	ToolSkill   ToolType = "skill"
	ToolCommand ToolType = "command"
	ToolMCP     ToolType = "mcp"
)

// Action records one tool invocation.
type Action struct {
	ID         string            `json:"id"`
	SubtaskID  *string           `json:"subtask_id,omitempty"`
	SessionID  string            `json:"session_id"`
	ToolName   string            `json:"tool_name"`
	ToolType   ToolType          `json:"tool_type"`
	Input      []byte            `json:"-"`
	Output     []byte            `json:"-"`
	InputText  string            `json:"input,omitempty"`
	OutputText string            `json:"output,omitempty"`
	FilePaths  []string          `json:"file_paths,omitempty"`
	ExitCode   int                `json:"exit_code"`
	DurationMs int               `json:"duration_ms"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// MessageTopic enumerates the closed set of AgentMessage topics.
type MessageTopic string

const (
	TopicTaskCreated       MessageTopic = "task.created"
	TopicTaskCompleted     MessageTopic = "task.completed"
	TopicTaskFailed        MessageTopic = "task.failed"
	TopicContextRequest    MessageTopic = "context.request"
	TopicContextResponse   MessageTopic = "context.response"
	TopicAlertBlocking     MessageTopic = "alert.blocking"
	TopicAgentHeartbeat    MessageTopic = "agent.heartbeat"
	TopicWorkflowProgress  MessageTopic = "workflow.progress"
	TopicAgentCompleted    MessageTopic = "agent.completed"
)

// AgentMessage is one inter-agent pub/sub message.
type AgentMessage struct {
	ID        string         `json:"id"`
	FromAgent string         `json:"from_agent"`
	ToAgent   *string        `json:"to_agent,omitempty"`
	Topic     MessageTopic   `json:"topic"`
	Payload   map[string]any `json:"payload,omitempty"`
	Priority  int            `json:"priority"`
	ReadBy    []string       `json:"read_by"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Subscription is an (agent, topic) interest registration.
type Subscription struct {
	ID          string    `json:"id"`
	AgentID     string    `json:"agent_id"`
	Topic       string    `json:"topic"`
	CallbackURL string    `json:"callback_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Blocking asserts that Blocked must not proceed because of Blocker.
type Blocking struct {
	ID        string    `json:"id"`
	Blocker   string    `json:"blocker"`
	Blocked   string    `json:"blocked"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AgentContext holds either a live agent state row or, when AgentType is
// "compact-snapshot", a pre-compaction snapshot.
type AgentContext struct {
	ID              string         `json:"id"`
	ProjectID       string         `json:"project_id"`
	AgentID         string         `json:"agent_id"`
	AgentType       string         `json:"agent_type"`
	RoleContext     map[string]any `json:"role_context,omitempty"`
	SkillsToRestore []string       `json:"skills_to_restore,omitempty"`
	ToolsUsed       []string       `json:"tools_used,omitempty"`
	ProgressSummary string         `json:"progress_summary,omitempty"`
	LastUpdated     time.Time      `json:"last_updated"`
}

// CompactSnapshotAgentPrefix marks AgentContext rows used as compact
// snapshots rather than live agent state.
const CompactSnapshotAgentPrefix = "compact-snapshot:"

// CompactSnapshotAgentType is the reserved agent_type for such rows.
const CompactSnapshotAgentType = "compact-snapshot"

// KeywordToolScore is one row of the adaptive keyword->tool routing index.
type KeywordToolScore struct {
	ID           string     `json:"id"`
	Keyword      string     `json:"keyword"`
	ToolName     string     `json:"tool_name"`
	ToolType     ToolType   `json:"tool_type"`
	Score        float64    `json:"score"`
	UsageCount   int        `json:"usage_count"`
	SuccessCount int        `json:"success_count"`
	LastUsed     *time.Time `json:"last_used,omitempty"`
}

const (
	MinScore = 0.1
	MaxScore = 5.0
)

// Clamp restricts a score to [MinScore, MaxScore].
func Clamp(score float64) float64 {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
