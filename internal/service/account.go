package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"github.com/yt-automation/shorts-dashboard-go/internal/validation"
	"github.com/yt-automation/shorts-dashboard-go/pkg/logger"
	"go.uber.org/zap"
)

// Account actions accepted by POST /api/account.
const (
	AccountActionSwitch = "switch"
	AccountActionSave   = "save"
)

// AccountService relays YouTube credential operations to the script and
// lists the accounts configured for it.
type AccountService struct {
	runner     ScriptRunner
	configPath string
	log        *zap.Logger
}

// NewAccountService creates an AccountService reading accounts from configPath.
func NewAccountService(runner ScriptRunner, configPath string) *AccountService {
	return &AccountService{
		runner:     runner,
		configPath: configPath,
		log:        logger.Named("account"),
	}
}

// TokenInfo returns the script's view of the connected account.
func (s *AccountService) TokenInfo(ctx context.Context) (json.RawMessage, error) {
	return s.runner.Run(ctx, "token-info")
}

// Apply performs a switch or save action.
func (s *AccountService) Apply(ctx context.Context, req *models.AccountActionRequest) (json.RawMessage, error) {
	switch {
	case req.Action == AccountActionSwitch:
		s.log.Info("Switching YouTube account")
		return s.runner.Run(ctx, "switch-account")

	case req.Action == AccountActionSave && len(req.Token) > 0:
		token, err := validation.ValidateToken(req.Token)
		if err != nil {
			return nil, &ValidationError{Message: err.Error()}
		}

		s.log.Info("Saving YouTube token",
			zap.Bool("accessTokenValid", token.Valid()),
			zap.Time("expiry", token.Expiry),
		)

		payload, err := json.Marshal(req.Token)
		if err != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("invalid token: %v", err)}
		}
		return s.runner.Run(ctx, "save-token", string(payload))

	default:
		return nil, &ValidationError{Message: "Invalid action. Use 'switch' or 'save'"}
	}
}

type accountsFile struct {
	YouTubeAccounts map[string]struct {
		Name        string `json:"name"`
		TokenEnvVar string `json:"token_env_var"`
	} `json:"youtube_accounts"`
}

// Accounts lists the youtube_accounts of channels_config.json sorted by id.
func (s *AccountService) Accounts() ([]models.YouTubeAccount, error) {
	data, err := os.ReadFile(s.configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Message: "channels_config.json not found"}
		}
		return nil, &ProcessingError{Message: "failed to read accounts", Cause: err}
	}

	var file accountsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, &ProcessingError{Message: "failed to parse channels_config.json", Cause: err}
	}

	accounts := make([]models.YouTubeAccount, 0, len(file.YouTubeAccounts))
	for id, acc := range file.YouTubeAccounts {
		account := models.YouTubeAccount{
			ID:          id,
			Name:        acc.Name,
			TokenEnvVar: acc.TokenEnvVar,
		}
		if account.Name == "" {
			account.Name = id
		}
		if account.TokenEnvVar == "" {
			account.TokenEnvVar = fmt.Sprintf("GOOGLE_TOKEN_%s_JSON", strings.ToUpper(id))
		}
		accounts = append(accounts, account)
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].ID < accounts[j].ID
	})

	return accounts, nil
}
