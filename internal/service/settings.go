package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/yt-automation/shorts-dashboard-go/internal/config"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"github.com/yt-automation/shorts-dashboard-go/internal/repository"
	"github.com/yt-automation/shorts-dashboard-go/internal/validation"
	"github.com/yt-automation/shorts-dashboard-go/pkg/logger"
	"go.uber.org/zap"
)

// setVerbs maps config fields to the script verb that writes them.
var setVerbs = map[string]string{
	validation.FieldDriveFolderID:    "set-folder",
	validation.FieldVideoTitle:       "set-title",
	validation.FieldVideoDescription: "set-description",
	validation.FieldVideoTags:        "set-tags",
}

// SettingsService reads and writes the default upload settings.
type SettingsService struct {
	backend   string
	repo      repository.ConfigRepository
	runner    ScriptRunner
	validator *validation.Validator
	log       *zap.Logger
}

// NewSettingsService creates a SettingsService. repo may be nil for the script backend.
func NewSettingsService(backend string, repo repository.ConfigRepository, runner ScriptRunner, validator *validation.Validator) *SettingsService {
	return &SettingsService{
		backend:   backend,
		repo:      repo,
		runner:    runner,
		validator: validator,
		log:       logger.Named("settings"),
	}
}

// Get returns the current settings, either a *models.AppConfig or the
// script's config document.
func (s *SettingsService) Get(ctx context.Context) (interface{}, error) {
	if s.backend == config.BackendScript {
		raw, err := s.runner.Run(ctx, "config")
		if err != nil {
			return nil, err
		}
		return raw, nil
	}

	cfg, err := s.repo.Get(ctx)
	if err != nil {
		return nil, &ProcessingError{Message: "failed to load config", Cause: err}
	}
	return cfg, nil
}

// Update validates and writes one field. It returns the success message.
func (s *SettingsService) Update(ctx context.Context, req *models.ConfigUpdateRequest) (string, error) {
	patch, arg, err := s.validator.ParseConfigUpdate(req.Field, req.Value)
	if err != nil {
		return "", &ValidationError{Message: err.Error()}
	}

	if s.backend == config.BackendScript {
		var reply struct {
			Error string `json:"error"`
		}
		if err := s.runner.RunInto(ctx, &reply, setVerbs[req.Field], arg); err != nil {
			return "", err
		}
		if reply.Error != "" {
			return "", &ProcessingError{Message: fmt.Sprintf("failed to update %s", req.Field), Cause: errors.New(reply.Error)}
		}
	} else {
		if _, err := s.repo.Upsert(ctx, patch); err != nil {
			return "", &ProcessingError{Message: fmt.Sprintf("failed to update %s", req.Field), Cause: err}
		}
	}

	s.log.Info("Config updated",
		zap.String("field", req.Field),
		zap.String("backend", s.backend),
	)

	return fmt.Sprintf("Updated %s successfully", req.Field), nil
}
