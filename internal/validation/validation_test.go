package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fazpramim/portal/internal/pkg/apperror"
)

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.ErrCodeValidation, appErr.Code)
	return appErr.Fields
}

func TestFormatPhone_Mask(t *testing.T) {
	cases := map[string]string{
		"":                "",
		"1":               "(1) ",
		"11":              "(11) ",
		"119":             "(11) 9",
		"119876":          "(11) 9876",
		"1198765":         "(11) 9-8765",
		"1187654321":      "(11) 8765-4321",
		"11987654321":     "(11) 98765-4321",
		"11987654321999":  "(11) 98765-4321",
		"(11) 98765-4321": "(11) 98765-4321",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatPhone(in), in)
	}
}

func TestFormatPhone_RoundTrip(t *testing.T) {
	inputs := []string{
		"11987654321",
		"(21) 3456-7890",
		"55 11 9 8765 4321 extra",
		"abc",
		"0",
		"123456789012345",
	}
	for _, in := range inputs {
		want := Digits(in)
		if len(want) > MaxPhoneDigits {
			want = want[:MaxPhoneDigits]
		}
		assert.Equal(t, want, Digits(FormatPhone(in)), in)
	}
}

func TestValidateRating_Boundary(t *testing.T) {
	for _, r := range []int{1, 2, 3, 4, 5} {
		assert.NoError(t, ValidateRating(r))
	}
	for _, r := range []int{-1, 0, 6, 10} {
		assert.Error(t, ValidateRating(r))
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Segura123"))
	assert.Error(t, ValidatePassword("Curta1"))
	assert.Error(t, ValidatePassword("semmaiuscula1"))
	assert.Error(t, ValidatePassword("SEMMINUSCULA1"))
	assert.Error(t, ValidatePassword("SemNumeroAqui"))
}

func TestMeasurePassword(t *testing.T) {
	assert.Equal(t, PasswordStrength{}, MeasurePassword(""))
	assert.Equal(t, "Fraca", MeasurePassword("abc").Label)
	assert.Equal(t, "Média", MeasurePassword("abcdefgh1").Label)
	assert.Equal(t, "Forte", MeasurePassword("Abcdefgh1").Label)
	assert.Equal(t, 5, MeasurePassword("Abcdefg1!").Score)
}

func TestClientRegistrationForm_Valid(t *testing.T) {
	f := ClientRegistrationForm{
		NomeCompleto:   "João da Silva",
		Email:          "joao@example.com",
		CPF:            "123.456.789-09",
		Senha:          "Segura123",
		ConfirmarSenha: "Segura123",
		Telefone:       "(11) 98765-4321",
		Endereco:       "Rua das Flores, 123",
	}
	assert.NoError(t, f.Validate())
}

func TestClientRegistrationForm_Errors(t *testing.T) {
	f := ClientRegistrationForm{
		NomeCompleto:   "J0",
		Email:          "invalido",
		CPF:            "123",
		Senha:          "Segura123",
		ConfirmarSenha: "Outra123",
		Telefone:       "11987654321",
		Endereco:       "curto",
	}
	fields := fieldErrors(t, f.Validate())
	assert.Equal(t, "Nome deve ter pelo menos 3 caracteres", fields["nomeCompleto"])
	assert.Equal(t, "Email inválido", fields["email"])
	assert.Equal(t, "CPF inválido", fields["cpf"])
	assert.Equal(t, "Senhas não coincidem", fields["confirmarSenha"])
	assert.Equal(t, "Telefone deve ter formato válido", fields["telefone"])
	assert.Contains(t, fields, "endereco")
	assert.NotContains(t, fields, "senha")
}

func TestProviderRegistrationForm_Qualification(t *testing.T) {
	f := ProviderRegistrationForm{
		NomeCompleto:        "Maria Souza",
		Email:               "maria@example.com",
		Senha:               "Segura123",
		ConfirmarSenha:      "Segura123",
		Telefone:            "(11) 98765-4321",
		Endereco:            "Av. Paulista, 1000",
		QualificacaoTecnica: "Eletricista",
	}
	fields := fieldErrors(t, f.Validate())
	assert.Equal(t, "Descreva sua qualificação técnica (mínimo 20 caracteres)", fields["qualificacaoTecnica"])
	assert.Len(t, fields, 1)
}

func TestServiceRequestForm_Validate(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	f := ServiceRequestForm{
		Description:     "Instalar chuveiro elétrico",
		DesiredDatetime: "2026-10-20T09:30",
		ProposedValue:   "150,50",
	}
	req, err := f.Validate(now)
	require.NoError(t, err)
	assert.Equal(t, 150.50, req.ProposedValue)
	assert.Equal(t, "2026-10-20T09:30", req.DesiredDatetime)

	past := ServiceRequestForm{Description: "curta", DesiredDatetime: "2026-10-18T09:30", ProposedValue: ""}
	_, err = past.Validate(now)
	fields := fieldErrors(t, err)
	assert.Equal(t, "Descreva o serviço com pelo menos 10 caracteres.", fields["description"])
	assert.Equal(t, "A data e hora devem ser no futuro.", fields["desired_datetime"])
	assert.Equal(t, "Informe um valor proposto.", fields["proposed_value"])
}

func TestProfileForms(t *testing.T) {
	client := ClientProfileForm{Nome: "Ana", Email: "ana@example.com", Telefone: "(11) 3456-7890", Cidade: "SP", Estado: "sp", Endereco: "Rua A, 1"}
	require.NoError(t, client.Validate())
	assert.Equal(t, "SP", client.Fields()["state"])

	provider := ProviderProfileForm{Nome: "Ana", Email: "ana@example.com", Telefone: "(11) 3456-7890", Descricao: "curta", Cidade: "São Paulo", Estado: "SPX"}
	fields := fieldErrors(t, provider.Validate())
	assert.Contains(t, fields, "descricao")
	assert.Equal(t, "Use a sigla do estado (ex: SP)", fields["estado"])
}

func TestMessageForm(t *testing.T) {
	f := MessageForm{Content: "   "}
	fields := fieldErrors(t, f.Validate())
	assert.Contains(t, fields, "content")

	f.Content = "Olá, posso ir amanhã?"
	assert.NoError(t, f.Validate())
}
