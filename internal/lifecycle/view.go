package lifecycle

import (
	"github.com/fazpramim/portal/internal/models"
)

// Tab вкладка доски заявок.
type Tab string

const (
	TabPending    Tab = "pending"
	TabInProgress Tab = "in_progress"
	TabCompleted  Tab = "completed"
)

var tabLabels = map[Tab]string{
	TabPending:    "Pendentes",
	TabInProgress: "Em Andamento",
	TabCompleted:  "Concluídos",
}

// Label подпись вкладки в интерфейсе.
func (t Tab) Label() string {
	return tabLabels[t]
}

// TabOf вкладка для статуса. Отклоненные заявки на доске не показываются.
func TabOf(status models.RequestStatus) (Tab, bool) {
	switch status {
	case models.StatusPending:
		return TabPending, true
	case models.StatusAccepted:
		return TabInProgress, true
	case models.StatusCompleted:
		return TabCompleted, true
	}
	return "", false
}

// Actions какие кнопки доступны пользователю по заявке.
type Actions struct {
	CanAccept   bool `json:"can_accept"`
	CanReject   bool `json:"can_reject"`
	CanComplete bool `json:"can_complete"`
	CanReview   bool `json:"can_review"`
	CanChat     bool `json:"can_chat"`
}

// RequestView заявка с локальными отметками и доступными действиями.
type RequestView struct {
	models.ServiceRequest
	CounterpartName string  `json:"counterpart_name"`
	ValueLabel      string  `json:"value_label"`
	FinalizedByMe   bool    `json:"finalized_by_me"`
	HasReviewed     bool    `json:"has_reviewed"`
	Actions         Actions `json:"actions"`
}

// NewRequestView собирает представление заявки для роли.
func NewRequestView(req models.ServiceRequest, role models.Role, finalizedByMe, reviewedLocally bool) RequestView {
	v := RequestView{
		ServiceRequest:  req,
		CounterpartName: req.Counterpart(role).DisplayName("N/A"),
		ValueLabel:      req.ProposedValue.Label(),
		FinalizedByMe:   finalizedByMe,
		HasReviewed:     reviewedLocally || req.HasReviewed(role),
	}

	status := req.Status
	v.Actions = Actions{
		CanAccept:   role == models.RoleProvider && status == models.StatusPending,
		CanReject:   role == models.RoleProvider && status == models.StatusPending,
		CanComplete: status == models.StatusAccepted && !v.FinalizedByMe,
		CanReview:   status == models.StatusCompleted && !v.HasReviewed,
		CanChat:     status.ChatEnabled(),
	}
	return v
}

// Board доска заявок по вкладкам.
type Board struct {
	Pending    []RequestView  `json:"pending"`
	InProgress []RequestView  `json:"in_progress"`
	Completed  []RequestView  `json:"completed"`
	Labels     map[Tab]string `json:"labels"`
}

// NewBoard раскладывает заявки по вкладкам, сохраняя порядок бэкенда.
func NewBoard(views []RequestView) Board {
	b := Board{
		Pending:    []RequestView{},
		InProgress: []RequestView{},
		Completed:  []RequestView{},
		Labels:     tabLabels,
	}
	for _, v := range views {
		tab, ok := TabOf(v.Status)
		if !ok {
			continue
		}
		switch tab {
		case TabPending:
			b.Pending = append(b.Pending, v)
		case TabInProgress:
			b.InProgress = append(b.InProgress, v)
		case TabCompleted:
			b.Completed = append(b.Completed, v)
		}
	}
	return b
}

// Find возвращает вкладку и представление заявки по id.
func (b Board) Find(id int64) (Tab, *RequestView, bool) {
	for tab, list := range map[Tab][]RequestView{
		TabPending:    b.Pending,
		TabInProgress: b.InProgress,
		TabCompleted:  b.Completed,
	} {
		for i := range list {
			if list[i].ID == id {
				return tab, &list[i], true
			}
		}
	}
	return "", nil, false
}

// Move перемещение заявки между вкладками после действия. Пустой To значит,
// что заявка убрана с доски.
type Move struct {
	From Tab `json:"from"`
	To   Tab `json:"to,omitempty"`
}

// Outcome итог подтверждения завершения.
type Outcome string

const (
	OutcomeAwaitingCounterpart Outcome = "awaiting_counterpart"
	OutcomeCompleted           Outcome = "completed"
)

// TransitionResult результат accept/reject.
type TransitionResult struct {
	RequestID int64                `json:"request_id"`
	Status    models.RequestStatus `json:"status"`
	Move      Move                 `json:"move"`
	Message   string               `json:"message"`
}

// CompletionResult результат подтверждения завершения.
type CompletionResult struct {
	RequestID int64                `json:"request_id"`
	Status    models.RequestStatus `json:"status"`
	Outcome   Outcome              `json:"outcome"`
	Move      Move                 `json:"move"`
	Message   string               `json:"message"`
}

// ReviewResult результат отправки отзыва.
type ReviewResult struct {
	RequestID int64  `json:"request_id"`
	Message   string `json:"message"`
}

// Dashboard счетчики на главной странице исполнителя.
type Dashboard struct {
	Completed     int     `json:"completed"`
	InProgress    int     `json:"in_progress"`
	Pending       int     `json:"pending"`
	ReviewAverage float64 `json:"review_average"`
	ReviewCount   int     `json:"review_count"`
}

// ChatThread страница чата: заявка и сообщения по ней.
type ChatThread struct {
	Request  RequestView          `json:"request"`
	Messages []models.ChatMessage `json:"messages"`
}
