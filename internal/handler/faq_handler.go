package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/pkg/response"
)

// FAQ godoc
// @Summary Frequently asked questions
// @Tags Public
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /faq [get]
func FAQ(c *gin.Context) {
	response.JSON(c, http.StatusOK, models.FAQ)
}

// Categories godoc
// @Summary Complaint categories
// @Tags Public
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func Categories(c *gin.Context) {
	response.JSON(c, http.StatusOK, models.Categories)
}
