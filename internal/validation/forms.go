package validation

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fazpramim/portal/internal/models"
	"github.com/fazpramim/portal/internal/pkg/apperror"
)

// Errors ошибки по полям формы. Для каждого поля хранится первое сообщение.
type Errors map[string]string

// Add добавляет сообщение, если для поля его еще нет.
func (e Errors) Add(field string, err error) {
	if err == nil {
		return
	}
	if _, exists := e[field]; !exists {
		e[field] = err.Error()
	}
}

// AddMessage добавляет текстовое сообщение для поля.
func (e Errors) AddMessage(field, message string) {
	if _, exists := e[field]; !exists {
		e[field] = message
	}
}

// Err возвращает ошибку валидации или nil, если ошибок нет.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return apperror.Validation("Verifique os campos destacados.", map[string]string(e))
}

// LoginForm форма входа.
type LoginForm struct {
	Email string `json:"email" form:"email"`
	Senha string `json:"senha" form:"senha"`
}

func (f *LoginForm) Validate() error {
	errs := Errors{}
	errs.Add("email", ValidateEmail(f.Email))
	if f.Senha == "" {
		errs.AddMessage("senha", "Senha é obrigatória")
	}
	return errs.Err()
}

// ClientRegistrationForm форма регистрации клиента (multipart).
type ClientRegistrationForm struct {
	NomeCompleto   string `form:"nomeCompleto" json:"nomeCompleto"`
	Email          string `form:"email" json:"email"`
	CPF            string `form:"cpf" json:"cpf"`
	Senha          string `form:"senha" json:"senha"`
	ConfirmarSenha string `form:"confirmarSenha" json:"confirmarSenha"`
	Telefone       string `form:"telefone" json:"telefone"`
	Endereco       string `form:"endereco" json:"endereco"`
}

func (f *ClientRegistrationForm) Validate() error {
	errs := Errors{}
	errs.Add("nomeCompleto", ValidateFullName(f.NomeCompleto))
	errs.Add("email", ValidateEmail(f.Email))
	errs.Add("cpf", ValidateCPF(f.CPF))
	validatePasswordPair(errs, f.Senha, f.ConfirmarSenha)
	errs.Add("telefone", ValidatePhone(f.Telefone))
	errs.Add("endereco", ValidateLength("Endereço", strings.TrimSpace(f.Endereco), MinAddressLength, MaxAddressLength))
	return errs.Err()
}

// ProviderRegistrationForm форма регистрации исполнителя (multipart).
type ProviderRegistrationForm struct {
	NomeCompleto        string `form:"nomeCompleto" json:"nomeCompleto"`
	Email               string `form:"email" json:"email"`
	Senha               string `form:"senha" json:"senha"`
	ConfirmarSenha      string `form:"confirmarSenha" json:"confirmarSenha"`
	Telefone            string `form:"telefone" json:"telefone"`
	Endereco            string `form:"endereco" json:"endereco"`
	QualificacaoTecnica string `form:"qualificacaoTecnica" json:"qualificacaoTecnica"`
}

func (f *ProviderRegistrationForm) Validate() error {
	errs := Errors{}
	errs.Add("nomeCompleto", ValidateFullName(f.NomeCompleto))
	errs.Add("email", ValidateEmail(f.Email))
	validatePasswordPair(errs, f.Senha, f.ConfirmarSenha)
	errs.Add("telefone", ValidatePhone(f.Telefone))
	errs.Add("endereco", ValidateLength("Endereço", strings.TrimSpace(f.Endereco), MinAddressLength, MaxAddressLength))

	qualification := strings.TrimSpace(f.QualificacaoTecnica)
	switch n := utf8.RuneCountInString(qualification); {
	case n < MinQualificationLength:
		errs.AddMessage("qualificacaoTecnica", "Descreva sua qualificação técnica (mínimo 20 caracteres)")
	case n > MaxQualificationLength:
		errs.AddMessage("qualificacaoTecnica", "Qualificação técnica deve ter no máximo 1000 caracteres")
	}
	return errs.Err()
}

func validatePasswordPair(errs Errors, senha, confirmar string) {
	errs.Add("senha", ValidatePassword(senha))
	if senha != confirmar {
		errs.AddMessage("confirmarSenha", "Senhas não coincidem")
	}
}

// ServiceRequestForm форма заявки на услугу.
type ServiceRequestForm struct {
	Description     string `json:"description" form:"description"`
	DesiredDatetime string `json:"desired_datetime" form:"desired_datetime"`
	ProposedValue   string `json:"proposed_value" form:"proposed_value"`
}

// datetimeLayouts форматы, которые присылает поле datetime-local и API клиенты.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseDesiredDatetime разбирает дату без зоны в указанной локации.
func ParseDesiredDatetime(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range datetimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseMoney принимает "150", "150.5" и "150,50".
func ParseMoney(value string) (float64, bool) {
	value = strings.TrimSpace(strings.Replace(value, ",", ".", 1))
	if value == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Validate проверяет форму относительно момента now и возвращает тело запроса для бэкенда.
func (f *ServiceRequestForm) Validate(now time.Time) (models.NewServiceRequest, error) {
	errs := Errors{}

	description := strings.TrimSpace(f.Description)
	if utf8.RuneCountInString(description) < MinRequestDescription {
		errs.AddMessage("description", "Descreva o serviço com pelo menos 10 caracteres.")
	}

	desired, ok := ParseDesiredDatetime(f.DesiredDatetime, now.Location())
	if !ok || !desired.After(now) {
		errs.AddMessage("desired_datetime", "A data e hora devem ser no futuro.")
	}

	var value float64
	if strings.TrimSpace(f.ProposedValue) == "" {
		errs.AddMessage("proposed_value", "Informe um valor proposto.")
	} else if v, ok := ParseMoney(f.ProposedValue); !ok || v <= 0 {
		errs.AddMessage("proposed_value", "Informe um valor válido.")
	} else {
		value = v
	}

	if err := errs.Err(); err != nil {
		return models.NewServiceRequest{}, err
	}
	return models.NewServiceRequest{
		Description:     description,
		DesiredDatetime: strings.TrimSpace(f.DesiredDatetime),
		ProposedValue:   value,
	}, nil
}

// ClientProfileForm форма редактирования профиля клиента.
type ClientProfileForm struct {
	Nome     string `form:"nome" json:"nome"`
	Email    string `form:"email" json:"email"`
	Telefone string `form:"telefone" json:"telefone"`
	Cidade   string `form:"cidade" json:"cidade"`
	Estado   string `form:"estado" json:"estado"`
	Endereco string `form:"endereco" json:"endereco"`
}

func (f *ClientProfileForm) Validate() error {
	errs := Errors{}
	validateProfileCommon(errs, f.Nome, f.Email, f.Telefone, f.Cidade, f.Estado)
	endereco := strings.TrimSpace(f.Endereco)
	if utf8.RuneCountInString(endereco) < MinProfileAddressLength {
		errs.AddMessage("endereco", "Endereço é obrigatório")
	} else {
		errs.Add("endereco", ValidateLength("Endereço", endereco, 0, MaxProfileAddressLength))
	}
	return errs.Err()
}

// Fields поля multipart запроса PATCH clients/{id}/.
func (f *ClientProfileForm) Fields() map[string]string {
	return map[string]string{
		"full_name": strings.TrimSpace(f.Nome),
		"email":     strings.TrimSpace(f.Email),
		"phone":     strings.TrimSpace(f.Telefone),
		"address":   strings.TrimSpace(f.Endereco),
		"city":      strings.TrimSpace(f.Cidade),
		"state":     strings.ToUpper(strings.TrimSpace(f.Estado)),
	}
}

// ProviderProfileForm форма редактирования профиля исполнителя.
type ProviderProfileForm struct {
	Nome      string `form:"nome" json:"nome"`
	Email     string `form:"email" json:"email"`
	Telefone  string `form:"telefone" json:"telefone"`
	Descricao string `form:"descricao" json:"descricao"`
	Cidade    string `form:"cidade" json:"cidade"`
	Estado    string `form:"estado" json:"estado"`
}

func (f *ProviderProfileForm) Validate() error {
	errs := Errors{}
	validateProfileCommon(errs, f.Nome, f.Email, f.Telefone, f.Cidade, f.Estado)
	descricao := strings.TrimSpace(f.Descricao)
	switch n := utf8.RuneCountInString(descricao); {
	case n < MinQualificationLength:
		errs.AddMessage("descricao", "Descrição deve ter no mínimo 20 caracteres")
	case n > MaxQualificationLength:
		errs.AddMessage("descricao", "Descrição deve ter no máximo 1000 caracteres")
	}
	return errs.Err()
}

// Fields поля multipart запроса PATCH providers-edit/.
func (f *ProviderProfileForm) Fields() map[string]string {
	return map[string]string{
		"full_name":               strings.TrimSpace(f.Nome),
		"professional_email":      strings.TrimSpace(f.Email),
		"phone":                   strings.TrimSpace(f.Telefone),
		"technical_qualification": strings.TrimSpace(f.Descricao),
		"city":                    strings.TrimSpace(f.Cidade),
		"state":                   strings.ToUpper(strings.TrimSpace(f.Estado)),
	}
}

func validateProfileCommon(errs Errors, nome, email, telefone, cidade, estado string) {
	nome = strings.TrimSpace(nome)
	switch n := utf8.RuneCountInString(nome); {
	case n < MinNameLength:
		errs.AddMessage("nome", "Nome deve ter no mínimo 3 caracteres")
	case n > MaxNameLength:
		errs.AddMessage("nome", "Nome deve ter no máximo 100 caracteres")
	}

	errs.Add("email", ValidateEmail(email))

	telefone = strings.TrimSpace(telefone)
	if n := utf8.RuneCountInString(telefone); n < MinPhoneLength || n > MaxProfilePhoneLength {
		errs.AddMessage("telefone", "Telefone inválido")
	}

	cidade = strings.TrimSpace(cidade)
	switch n := utf8.RuneCountInString(cidade); {
	case n < MinCityLength:
		errs.AddMessage("cidade", "Cidade é obrigatória")
	case n > MaxCityLength:
		errs.AddMessage("cidade", "Cidade deve ter no máximo 100 caracteres")
	}

	if utf8.RuneCountInString(strings.TrimSpace(estado)) != StateLength {
		errs.AddMessage("estado", "Use a sigla do estado (ex: SP)")
	}
}

// PortfolioPhotoForm подпись к фотографии портфолио.
type PortfolioPhotoForm struct {
	Title       string `form:"title" json:"title"`
	Description string `form:"description" json:"description"`
}

func (f *PortfolioPhotoForm) Validate() error {
	errs := Errors{}
	errs.Add("title", ValidateLength("Título", strings.TrimSpace(f.Title), 0, MaxPortfolioTitleLength))
	errs.Add("description", ValidateLength("Descrição", strings.TrimSpace(f.Description), 0, MaxPortfolioDescription))
	return errs.Err()
}

// ReviewForm оценка после завершения услуги.
type ReviewForm struct {
	Rating  int    `form:"rating" json:"rating"`
	Comment string `form:"comment" json:"comment"`
}

func (f *ReviewForm) Validate() error {
	errs := Errors{}
	errs.Add("rating", ValidateRating(f.Rating))
	errs.Add("comment", ValidateLength("Comentário", strings.TrimSpace(f.Comment), 0, MaxReviewCommentLength))
	return errs.Err()
}

// MessageForm сообщение в чате заявки.
type MessageForm struct {
	Content string `json:"content" form:"content"`
}

func (f *MessageForm) Validate() error {
	errs := Errors{}
	errs.Add("content", ValidateMessageContent(f.Content))
	return errs.Err()
}
