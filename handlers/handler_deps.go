package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	supa "github.com/supabase-community/supabase-go"
)

// ErrorResponse defines a common structure for error responses.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ApplicationHandler holds shared dependencies for handlers.
type ApplicationHandler struct {
	DB       *supa.Client
	Logger   *logrus.Logger
	Validate *validator.Validate
}

// NewApplicationHandler creates a new ApplicationHandler with the given dependencies.
func NewApplicationHandler(logger *logrus.Logger, dbClient *supa.Client) *ApplicationHandler {
	return &ApplicationHandler{
		DB:       dbClient,
		Logger:   logger,
		Validate: validator.New(),
	}
}
