package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/fazpramim/portal/internal/backend"
	"github.com/fazpramim/portal/internal/logger"
	"github.com/fazpramim/portal/internal/models"
	"github.com/fazpramim/portal/internal/pkg/apperror"
	"github.com/fazpramim/portal/internal/session"
	"github.com/fazpramim/portal/internal/validation"
)

// Backend вызовы бэкенда, которые нужны жизненному циклу заявки.
type Backend interface {
	CreateServiceRequest(ctx context.Context, token string, providerID int64, req models.NewServiceRequest) (*models.ServiceRequest, error)
	ListClientRequests(ctx context.Context, token string) ([]models.ServiceRequest, error)
	ListProviderRequests(ctx context.Context, token string, status models.RequestStatus) ([]models.ServiceRequest, error)
	AcceptRequest(ctx context.Context, token string, requestID int64) (*models.TransitionResult, error)
	RejectRequest(ctx context.Context, token string, requestID int64) (*models.TransitionResult, error)
	CompleteRequest(ctx context.Context, token string, requestID int64) (*models.TransitionResult, error)
	SubmitReview(ctx context.Context, token string, requestID int64, review backend.ReviewSubmission) error
	ListMessages(ctx context.Context, token string, requestID int64) ([]models.ChatMessage, error)
	SendMessage(ctx context.Context, token string, requestID int64, content string) (*models.ChatMessage, error)
	ListProviderReviews(ctx context.Context, token string) ([]models.Review, error)
}

// Caller от чьего имени выполняется операция.
type Caller struct {
	UserID string
	Role   models.Role
	Token  string
}

// CallerOf строит Caller из сессии.
func CallerOf(s *session.Session) Caller {
	return Caller{UserID: s.User.ID, Role: s.User.Role, Token: s.BackendToken}
}

// ReviewInput отзыв, который пользователь отправляет по заявке.
type ReviewInput struct {
	Rating  int
	Comment string
	Photo   *models.Attachment
}

var (
	errProviderOnly   = apperror.New(apperror.ErrCodeForbidden, "Apenas prestadores podem responder a solicitações.")
	errClientOnly     = apperror.New(apperror.ErrCodeForbidden, "Apenas clientes podem solicitar serviços.")
	errNotPending     = apperror.New(apperror.ErrCodeForbidden, "Esta solicitação não está mais pendente.")
	errNotInProgress  = apperror.New(apperror.ErrCodeForbidden, "Só é possível finalizar serviços em andamento.")
	errNotCompleted   = apperror.New(apperror.ErrCodeForbidden, "A avaliação só é possível após a conclusão do serviço.")
	errChatNotAllowed = apperror.New(apperror.ErrCodeForbidden, "O chat só está disponível para solicitações aceitas ou concluídas.")
)

// errNoIdentity сессия без id пользователя: отметки не к чему привязать.
var errNoIdentity = apperror.ErrUnauthorized

// flagOwner владелец отметок. Роль входит в ключ, чтобы клиент и исполнитель
// одной заявки никогда не делили отметки.
func flagOwner(c Caller) string {
	return string(c.Role) + ":" + c.UserID
}

// ChatRedirect ошибка доступа к чату с переходом на список заявок пользователя.
func ChatRedirect(role models.Role) *apperror.AppError {
	return errChatNotAllowed.WithRedirect(role.RequestsRoute())
}

// Service единая модель жизненного цикла заявки для всех страниц портала.
type Service struct {
	backend Backend
	flags   FlagStore
	now     func() time.Time
	log     *logrus.Entry
}

func NewService(b Backend, flags FlagStore) *Service {
	if flags == nil {
		flags = NewMemoryFlagStore(DefaultFlagTTL)
	}
	return &Service{
		backend: b,
		flags:   flags,
		now:     time.Now,
		log:     logger.WithComponent("lifecycle"),
	}
}

// ListRequests заявки пользователя с отметками и доступными действиями.
// statusFilter пустой или один из статусов (допускаются синонимы).
func (s *Service) ListRequests(ctx context.Context, c Caller, statusFilter string) ([]RequestView, error) {
	var status models.RequestStatus
	if strings.TrimSpace(statusFilter) != "" {
		st, err := models.NewRequestStatus(statusFilter)
		if err != nil {
			return nil, err
		}
		status = st
	}

	requests, err := s.fetch(ctx, c, status)
	if err != nil {
		return nil, err
	}
	if status != "" {
		filtered := make([]models.ServiceRequest, 0, len(requests))
		for _, r := range requests {
			if r.Status == status {
				filtered = append(filtered, r)
			}
		}
		requests = filtered
	}
	return s.annotate(ctx, c, requests), nil
}

// Board доска заявок: Pendentes, Em Andamento, Concluídos.
func (s *Service) Board(ctx context.Context, c Caller) (Board, error) {
	views, err := s.ListRequests(ctx, c, "")
	if err != nil {
		return Board{}, err
	}
	return NewBoard(views), nil
}

// Accept исполнитель принимает заявку из "Pendentes".
func (s *Service) Accept(ctx context.Context, c Caller, requestID int64) (*TransitionResult, error) {
	return s.respond(ctx, c, requestID, models.StatusAccepted)
}

// Reject исполнитель отклоняет заявку, она пропадает с доски.
func (s *Service) Reject(ctx context.Context, c Caller, requestID int64) (*TransitionResult, error) {
	return s.respond(ctx, c, requestID, models.StatusRejected)
}

func (s *Service) respond(ctx context.Context, c Caller, requestID int64, target models.RequestStatus) (*TransitionResult, error) {
	if c.Role != models.RoleProvider {
		return nil, errProviderOnly
	}

	req, err := s.find(ctx, c, requestID)
	if err != nil {
		return nil, err
	}
	if !req.Status.CanTransitionTo(target) {
		return nil, errNotPending
	}

	var res *models.TransitionResult
	if target == models.StatusAccepted {
		res, err = s.backend.AcceptRequest(ctx, c.Token, requestID)
	} else {
		res, err = s.backend.RejectRequest(ctx, c.Token, requestID)
	}
	if err != nil {
		return nil, err
	}

	status := target
	if res != nil && res.Status.IsValid() {
		status = res.Status
	}

	out := &TransitionResult{
		RequestID: requestID,
		Status:    status,
		Move:      Move{From: TabPending},
	}
	if tab, ok := TabOf(status); ok {
		out.Move.To = tab
	}
	switch {
	case res != nil && res.Message != "":
		out.Message = res.Message
	case target == models.StatusAccepted:
		out.Message = "Solicitação aceita!"
	default:
		out.Message = "Solicitação recusada."
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"status":     status,
		"user_id":    c.UserID,
	}).Info("заявка переведена исполнителем")
	return out, nil
}

// Complete подтверждение завершения одной из сторон. Повторное подтверждение
// той же стороной отклоняется без обращения к бэкенду.
func (s *Service) Complete(ctx context.Context, c Caller, requestID int64) (*CompletionResult, error) {
	if c.UserID == "" {
		return nil, errNoIdentity
	}
	done, err := s.flags.Has(ctx, flagOwner(c), FlagFinalized, requestID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "Não foi possível verificar a solicitação.")
	}
	if done {
		return nil, apperror.ErrAlreadyFinalized
	}

	req, err := s.find(ctx, c, requestID)
	if err != nil {
		return nil, err
	}
	if !req.Status.CanTransitionTo(models.StatusCompleted) {
		return nil, errNotInProgress
	}

	res, err := s.backend.CompleteRequest(ctx, c.Token, requestID)
	if err != nil {
		return nil, err
	}
	// бэкенд уже принял подтверждение, поэтому ошибка отметки только логируется
	if err := s.flags.Set(ctx, flagOwner(c), FlagFinalized, requestID); err != nil {
		s.log.WithError(err).WithField("request_id", requestID).Warn("не удалось сохранить отметку завершения")
	}

	out := &CompletionResult{
		RequestID: requestID,
		Status:    models.StatusAccepted,
		Outcome:   OutcomeAwaitingCounterpart,
		Move:      Move{From: TabInProgress, To: TabInProgress},
		Message:   "Sua confirmação foi registrada. Aguardando a confirmação da outra parte.",
	}
	if res != nil && res.Status == models.StatusCompleted {
		out.Status = models.StatusCompleted
		out.Outcome = OutcomeCompleted
		out.Move.To = TabCompleted
		out.Message = "Serviço concluído por ambas as partes!"
	}
	if res != nil && res.Message != "" {
		out.Message = res.Message
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"outcome":    out.Outcome,
		"user_id":    c.UserID,
	}).Info("подтверждение завершения принято")
	return out, nil
}

// SubmitReview отзыв по завершенной заявке, не более одного от каждой стороны.
func (s *Service) SubmitReview(ctx context.Context, c Caller, requestID int64, in ReviewInput) (*ReviewResult, error) {
	form := validation.ReviewForm{Rating: in.Rating, Comment: in.Comment}
	if err := form.Validate(); err != nil {
		return nil, err
	}

	if c.UserID == "" {
		return nil, errNoIdentity
	}
	reviewed, err := s.flags.Has(ctx, flagOwner(c), FlagReviewed, requestID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "Não foi possível verificar a solicitação.")
	}
	if reviewed {
		return nil, apperror.ErrAlreadyReviewed
	}

	req, err := s.find(ctx, c, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.StatusCompleted {
		return nil, errNotCompleted
	}
	if req.HasReviewed(c.Role) {
		s.markReviewed(ctx, c, requestID)
		return nil, apperror.ErrAlreadyReviewed
	}

	err = s.backend.SubmitReview(ctx, c.Token, requestID, backend.ReviewSubmission{
		Rating:  in.Rating,
		Comment: strings.TrimSpace(in.Comment),
		Photo:   in.Photo,
	})
	if err != nil {
		return nil, err
	}
	s.markReviewed(ctx, c, requestID)

	return &ReviewResult{RequestID: requestID, Message: "Avaliação enviada com sucesso!"}, nil
}

func (s *Service) markReviewed(ctx context.Context, c Caller, requestID int64) {
	if err := s.flags.Set(ctx, flagOwner(c), FlagReviewed, requestID); err != nil {
		s.log.WithError(err).WithField("request_id", requestID).Warn("не удалось сохранить отметку отзыва")
	}
}

// ChatRequest проверяет, что чат по заявке открыт, и возвращает ее представление.
func (s *Service) ChatRequest(ctx context.Context, c Caller, requestID int64) (*RequestView, error) {
	req, err := s.find(ctx, c, requestID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.ErrRequestNotFound.WithRedirect(c.Role.RequestsRoute())
		}
		return nil, err
	}
	if !req.Status.ChatEnabled() {
		return nil, ChatRedirect(c.Role)
	}
	views := s.annotate(ctx, c, []models.ServiceRequest{*req})
	return &views[0], nil
}

// ChatMessages сообщения чата, только для accepted и completed.
func (s *Service) ChatMessages(ctx context.Context, c Caller, requestID int64) ([]models.ChatMessage, error) {
	thread, err := s.ChatThread(ctx, c, requestID)
	if err != nil {
		return nil, err
	}
	return thread.Messages, nil
}

// ChatThread заявка и ее сообщения для страницы чата.
func (s *Service) ChatThread(ctx context.Context, c Caller, requestID int64) (*ChatThread, error) {
	view, err := s.ChatRequest(ctx, c, requestID)
	if err != nil {
		return nil, err
	}
	messages, err := s.backend.ListMessages(ctx, c.Token, requestID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	return &ChatThread{Request: *view, Messages: messages}, nil
}

// SendMessage отправляет сообщение в чат заявки.
func (s *Service) SendMessage(ctx context.Context, c Caller, requestID int64, content string) (*models.ChatMessage, error) {
	form := validation.MessageForm{Content: content}
	if err := form.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.ChatRequest(ctx, c, requestID); err != nil {
		return nil, err
	}
	return s.backend.SendMessage(ctx, c.Token, requestID, strings.TrimSpace(content))
}

// CreateRequest клиент создает заявку к исполнителю.
func (s *Service) CreateRequest(ctx context.Context, c Caller, providerID int64, form validation.ServiceRequestForm) (*RequestView, error) {
	if c.Role != models.RoleClient {
		return nil, errClientOnly
	}
	body, err := form.Validate(s.now())
	if err != nil {
		return nil, err
	}

	created, err := s.backend.CreateServiceRequest(ctx, c.Token, providerID, body)
	if err != nil {
		return nil, err
	}
	if !created.Status.IsValid() {
		created.Status = models.StatusPending
	}

	s.log.WithFields(logrus.Fields{
		"request_id":  created.ID,
		"provider_id": providerID,
		"user_id":     c.UserID,
	}).Info("заявка создана")

	v := NewRequestView(*created, c.Role, false, false)
	return &v, nil
}

// History завершенные заявки исполнителя.
func (s *Service) History(ctx context.Context, c Caller) ([]RequestView, error) {
	if c.Role != models.RoleProvider {
		return nil, apperror.ErrForbidden
	}
	return s.ListRequests(ctx, c, string(models.StatusCompleted))
}

// Dashboard счетчики заявок и средняя оценка исполнителя.
func (s *Service) Dashboard(ctx context.Context, c Caller) (*Dashboard, error) {
	if c.Role != models.RoleProvider {
		return nil, apperror.ErrForbidden
	}

	var (
		requests []models.ServiceRequest
		reviews  []models.Review
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		requests, err = s.backend.ListProviderRequests(gctx, c.Token, "")
		return err
	})
	g.Go(func() error {
		var err error
		reviews, err = s.backend.ListProviderReviews(gctx, c.Token)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := &Dashboard{}
	for _, r := range requests {
		switch r.Status {
		case models.StatusPending:
			d.Pending++
		case models.StatusAccepted:
			d.InProgress++
		case models.StatusCompleted:
			d.Completed++
		}
	}
	summary := models.SummarizeReviews(reviews)
	d.ReviewAverage = summary.Average
	d.ReviewCount = summary.Count
	return d, nil
}

func (s *Service) fetch(ctx context.Context, c Caller, status models.RequestStatus) ([]models.ServiceRequest, error) {
	switch c.Role {
	case models.RoleProvider:
		return s.backend.ListProviderRequests(ctx, c.Token, status)
	case models.RoleClient:
		return s.backend.ListClientRequests(ctx, c.Token)
	}
	return nil, apperror.ErrForbidden
}

// find ищет заявку в списке пользователя: отдельного эндпоинта для одной заявки нет.
func (s *Service) find(ctx context.Context, c Caller, requestID int64) (*models.ServiceRequest, error) {
	requests, err := s.fetch(ctx, c, "")
	if err != nil {
		return nil, err
	}
	for i := range requests {
		if requests[i].ID == requestID {
			return &requests[i], nil
		}
	}
	return nil, apperror.ErrRequestNotFound
}

// annotate добавляет локальные отметки. Ошибка хранилища отметок не ломает список.
func (s *Service) annotate(ctx context.Context, c Caller, requests []models.ServiceRequest) []RequestView {
	finalized, reviewed := map[int64]bool{}, map[int64]bool{}
	if c.UserID != "" {
		var err error
		if finalized, err = s.flags.Members(ctx, flagOwner(c), FlagFinalized); err != nil {
			s.log.WithError(err).Warn("не удалось прочитать отметки завершения")
			finalized = map[int64]bool{}
		}
		if reviewed, err = s.flags.Members(ctx, flagOwner(c), FlagReviewed); err != nil {
			s.log.WithError(err).Warn("не удалось прочитать отметки отзывов")
			reviewed = map[int64]bool{}
		}
	}

	views := make([]RequestView, 0, len(requests))
	for _, r := range requests {
		views = append(views, NewRequestView(r, c.Role, finalized[r.ID], reviewed[r.ID]))
	}
	return views
}
