package api

// SessionStatus is the backend-reported lifecycle state of a session.
type SessionStatus string

const (
	StatusInactive   SessionStatus = "inactive"
	StatusActive     SessionStatus = "active"
	StatusHumanInput SessionStatus = "humanInput"
	StatusCompleted  SessionStatus = "completed"
	StatusFailed     SessionStatus = "failed"
	StatusStopped    SessionStatus = "stopped"
)

// Terminal reports whether the status admits no further transitions.
// Polling stops once a session reaches a terminal status.
func (s SessionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusStopped:
		return true
	}
	return false
}

// Polling reports whether a client should keep re-fetching the session.
func (s SessionStatus) Polling() bool {
	return s == StatusActive || s == StatusHumanInput
}

// ResponseQuality is the user's thumbs rating on the last completed answer.
type ResponseQuality string

const (
	QualityNone ResponseQuality = "noResponse"
	QualityGood ResponseQuality = "good"
	QualityBad  ResponseQuality = "bad"
)

// Session is one backend agent run and its accumulated transcript.
type Session struct {
	ID                string          `json:"sessionId"`
	Name              string          `json:"name,omitempty"`
	Status            SessionStatus   `json:"status"`
	Messages          []Message       `json:"messages"`
	Files             []SessionFile   `json:"files"`
	LastScreenshotURL string          `json:"lastScreenshotUrl,omitempty"`
	ResponseQuality   ResponseQuality `json:"responseQuality,omitempty"`
	Cost              float64         `json:"cost,omitempty"`
	LastActionDate    string          `json:"lastActionDate,omitempty"`
}

// SessionFile is a backend-hosted artifact produced by a session.
type SessionFile struct {
	Filename  string `json:"filename"`
	SignedURL string `json:"signedUrl"`
}

// Message is one turn in a session transcript.
type Message struct {
	Role       string       `json:"role"`
	Content    string       `json:"content,omitempty"`
	AgentData  *AgentData   `json:"agent_data,omitempty"`
	HumanInput []HumanInput `json:"human_input,omitempty"`
}

// AgentData carries the structured actions the agent took in a turn.
type AgentData struct {
	Action []Action `json:"action"`
}

// Action is a single structured agent step. Exactly one payload is set.
type Action struct {
	Done       *DonePayload       `json:"done,omitempty"`
	SaveToFile *SaveToFilePayload `json:"save_to_file,omitempty"`
}

// DonePayload is the terminal answer text for a completed task.
type DonePayload struct {
	Text string `json:"text"`
}

// SaveToFilePayload references a file the agent wrote during the turn.
type SaveToFilePayload struct {
	FilePath string `json:"file_path"`
}

// Completed reports whether this message represents task completion. The
// backend contract only makes action[0] meaningful for the done signal;
// later indices are rendered but do not flip completion.
func (m Message) Completed() bool {
	return m.AgentData != nil && len(m.AgentData.Action) > 0 && m.AgentData.Action[0].Done != nil
}

// HumanInput is a backend-posed question the user must answer before the
// agent proceeds. A non-empty Value means the field is already answered.
type HumanInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Value       string `json:"value"`
}

// Answered reports whether every input in the set carries a value. The
// form for a message stays editable until one of its fields is answered.
func Answered(inputs []HumanInput) bool {
	for _, in := range inputs {
		if in.Value != "" {
			return true
		}
	}
	return false
}

// NotificationSettings are the user's delivery preferences.
type NotificationSettings struct {
	Email  bool `json:"email"`
	Mobile bool `json:"mobile"`
}

// UserProfile is the account-level record behind /user.
type UserProfile struct {
	ID                   string               `json:"id,omitempty"`
	Email                string               `json:"email,omitempty"`
	Balance              float64              `json:"balance"`
	Plan                 string               `json:"plan,omitempty"`
	NotificationSettings NotificationSettings `json:"notificationSettings"`
	PushToken            string               `json:"expoPushToken,omitempty"`
}

// SessionPage is one page of the paginated session list.
type SessionPage struct {
	Sessions   []Session `json:"sessions"`
	TotalPages int       `json:"totalPages"`
}

// StartSessionRequest is the body of POST /v1/sessions/new.
type StartSessionRequest struct {
	Task            string         `json:"task"`
	SessionSettings map[string]any `json:"sessionSettings"`
}
