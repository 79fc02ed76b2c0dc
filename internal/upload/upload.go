package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"

	"github.com/fazpramim/portal/internal/models"
	"github.com/fazpramim/portal/internal/pkg/apperror"
)

const mb = 1024 * 1024

// Rule ограничения для одного поля multipart формы.
type Rule struct {
	Field    string
	MaxBytes int64
	// AllowDocuments разрешает PDF в дополнение к изображениям.
	AllowDocuments  bool
	RequiredMessage string
}

var (
	IdentityDocument = Rule{
		Field:           "identity_document",
		MaxBytes:        5 * mb,
		AllowDocuments:  true,
		RequiredMessage: "Por favor, envie um documento de identidade. Obrigatório.",
	}
	ProfilePicture   = Rule{Field: "profile_picture", MaxBytes: 5 * mb}
	ProfilePhoto     = Rule{Field: "profile_photo", MaxBytes: 5 * mb}
	Certifications   = Rule{Field: "certifications", MaxBytes: 10 * mb, AllowDocuments: true}
	PortfolioPhoto   = Rule{Field: "photo", MaxBytes: 5 * mb}
	ReviewPhoto      = Rule{Field: "photo", MaxBytes: 5 * mb}
)

var imageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

var documentMimeTypes = map[string]bool{
	"application/pdf": true,
}

var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
}

// FromForm достает файл поля rule.Field из формы. Отсутствующий необязательный файл дает nil.
func FromForm(form *multipart.Form, rule Rule, required bool) (*models.Attachment, error) {
	var files []*multipart.FileHeader
	if form != nil {
		files = form.File[rule.Field]
	}
	if len(files) == 0 {
		if required {
			msg := rule.RequiredMessage
			if msg == "" {
				msg = "Arquivo obrigatório."
			}
			return nil, fieldError(rule.Field, msg)
		}
		return nil, nil
	}

	att, err := Read(files[0], rule)
	if err != nil {
		return nil, err
	}
	return &att, nil
}

// Read проверяет размер, магические байты и расширение файла и читает его в память.
func Read(fh *multipart.FileHeader, rule Rule) (models.Attachment, error) {
	if fh.Size > rule.MaxBytes {
		return models.Attachment{}, fieldError(rule.Field, fmt.Sprintf("Arquivo muito grande. Máximo %dMB", rule.MaxBytes/mb))
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return models.Attachment{}, fieldError(rule.Field, allowedMessage(rule))
	}

	src, err := fh.Open()
	if err != nil {
		return models.Attachment{}, apperror.Wrap(err, apperror.ErrCodeBadRequest, "Não foi possível ler o arquivo.")
	}
	defer src.Close()

	// Размер из заголовка не гарантирован, поэтому читаем с ограничением.
	limited := io.LimitedReader{R: src, N: rule.MaxBytes + 1}
	data, err := io.ReadAll(&limited)
	if err != nil {
		return models.Attachment{}, apperror.Wrap(err, apperror.ErrCodeBadRequest, "Não foi possível ler o arquivo.")
	}
	if int64(len(data)) > rule.MaxBytes {
		return models.Attachment{}, fieldError(rule.Field, fmt.Sprintf("Arquivo muito grande. Máximo %dMB", rule.MaxBytes/mb))
	}

	contentType, err := Detect(data, rule)
	if err != nil {
		return models.Attachment{}, err
	}

	// .jpg и .jpeg - это одно и то же
	if allowedExtensions[ext] != contentType {
		return models.Attachment{}, fieldError(rule.Field, "A extensão do arquivo não corresponde ao conteúdo.")
	}

	return models.Attachment{
		Field:       rule.Field,
		Filename:    sanitizeFilename(fh.Filename),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// Detect определяет MIME тип по первым 512 байтам и сверяет его с правилом.
func Detect(data []byte, rule Rule) (string, error) {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}

	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return "", fieldError(rule.Field, allowedMessage(rule))
	}

	mime := kind.MIME.Value
	if imageMimeTypes[mime] || (rule.AllowDocuments && documentMimeTypes[mime]) {
		return mime, nil
	}
	return "", fieldError(rule.Field, allowedMessage(rule))
}

func allowedMessage(rule Rule) string {
	if rule.AllowDocuments {
		return "Envie uma imagem (JPG, PNG, WEBP) ou um PDF."
	}
	return "Envie uma imagem válida (JPG, PNG ou WEBP)."
}

func fieldError(field, message string) error {
	return apperror.Validation(message, map[string]string{field: message})
}

// sanitizeFilename удаляет потенциально опасные символы.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "")
	if name == "" || name == "." || name == "/" {
		name = "upload"
	}
	return name
}
