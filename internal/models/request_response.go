package models

// Request models
type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateCategoryRequest struct {
	Slug string `json:"slug" binding:"required"`
	Name string `json:"name" binding:"required"`
}

type SetUserCategoriesRequest struct {
	Categories []string `json:"categories" binding:"required"`
}

type CreateTeachingRequest struct {
	Slug       string   `json:"slug" binding:"required"`
	Title      string   `json:"title" binding:"required"`
	Body       string   `json:"body"`
	Categories []string `json:"categories"`
}

type CreateDefinitionRequest struct {
	Slug string `json:"slug" binding:"required"`
	Name string `json:"name" binding:"required"`
	Kind string `json:"kind" binding:"required,oneof=collective_accumulation practice"`
}

type StartTrackingRequest struct {
	DefinitionID string `json:"definitionId" binding:"required"`
}

type SetTrackedActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// CreateLogEntryRequest carries an entry candidate. The three counted
// fields are pointers so "absent" and "explicit zero" both reach the
// ledger's validation unchanged.
type CreateLogEntryRequest struct {
	TrackedPracticeID string `json:"trackedPracticeId" binding:"required"`
	Malas             *int   `json:"malas" binding:"omitempty,min=0"`
	Hours             *int   `json:"hours" binding:"omitempty,min=0"`
	Minutes           *int   `json:"minutes" binding:"omitempty,min=0,max=59"`
	EntryDate         string `json:"entryDate"` // YYYY-MM-DD, defaults to today
	Notes             string `json:"notes"`
}

type UpdateLogEntryRequest struct {
	Malas     *int   `json:"malas" binding:"omitempty,min=0"`
	Hours     *int   `json:"hours" binding:"omitempty,min=0"`
	Minutes   *int   `json:"minutes" binding:"omitempty,min=0,max=59"`
	EntryDate string `json:"entryDate"`
	Notes     string `json:"notes"`
}

// Response models
type AuthResponse struct {
	Status    string `json:"status"`
	UserID    string `json:"userId,omitempty"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Token     string `json:"token,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

type CategoryListResponse struct {
	Status     string     `json:"status"`
	Categories []Category `json:"categories"`
}

type TeachingListResponse struct {
	Status    string     `json:"status"`
	Teachings []Teaching `json:"teachings"`
}

type TeachingResponse struct {
	Status   string   `json:"status"`
	Teaching Teaching `json:"teaching"`
}

type DefinitionListResponse struct {
	Status      string               `json:"status"`
	Definitions []PracticeDefinition `json:"definitions"`
}

type TrackedPracticeResponse struct {
	Status  string          `json:"status"`
	Tracked TrackedPractice `json:"tracked"`
}

type LogEntryResponse struct {
	Status string   `json:"status"`
	Entry  LogEntry `json:"entry"`
}

// PracticeSummary is the aggregated view of one tracked practice
type PracticeSummary struct {
	Tracked        TrackedPractice `json:"tracked"`
	DefinitionName string          `json:"definitionName"`
	TotalMalas     int             `json:"totalMalas"`
	TotalMantras   int             `json:"totalMantras"`
	TotalHours     int             `json:"totalHours"`
	TotalMinutes   int             `json:"totalMinutes"`
	HasEntries     bool            `json:"hasEntries"`
}

type DashboardResponse struct {
	Status        string            `json:"status"`
	Practices     []PracticeSummary `json:"practices"`
	RecentEntries []LogEntry        `json:"recentEntries"`
}

type HistoryResponse struct {
	Status  string     `json:"status"`
	Page    int        `json:"page"`
	Entries []LogEntry `json:"entries"`
}

type NavigationResponse struct {
	Status      string `json:"status"`
	YouTubeURL  string `json:"youtubeUrl"`
	FacebookURL string `json:"facebookUrl"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
