package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fazpramim/portal/internal/http/handlers/common"
	"github.com/fazpramim/portal/internal/lifecycle"
	"github.com/fazpramim/portal/internal/upload"
	"github.com/fazpramim/portal/internal/validation"
)

// ReviewHandler отзывы по завершенным заявкам.
type ReviewHandler struct {
	lifecycle *lifecycle.Service
}

func NewReviewHandler(lc *lifecycle.Service) *ReviewHandler {
	return &ReviewHandler{lifecycle: lc}
}

// Submit обрабатывает POST /api/requests/:id/review. Фото необязательно.
func (h *ReviewHandler) Submit(c *gin.Context) {
	_, caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var form validation.ReviewForm
	if !common.Bind(c, &form) {
		return
	}
	mf, ok := common.MultipartForm(c)
	if !ok {
		return
	}
	photo, err := upload.FromForm(mf, upload.ReviewPhoto, false)
	if err != nil {
		common.Fail(c, err)
		return
	}

	result, err := h.lifecycle.SubmitReview(c.Request.Context(), caller, id, lifecycle.ReviewInput{
		Rating:  form.Rating,
		Comment: form.Comment,
		Photo:   photo,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
