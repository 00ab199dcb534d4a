package services

import (
	"context"

	"tripgo/internal/models/db_models"
	"tripgo/internal/models/request_models"
	"tripgo/internal/repositories"
	"tripgo/pkg/utils"
)

type AccountServiceInterface interface {
	Login(ctx context.Context, request request_models.LoginRequest) (string, error)
	CreateAccount(ctx context.Context, request request_models.SignUpRequest) error
}

type accountService struct {
	accountRepo repositories.AccountRepository
	loyaltyRepo repositories.LoyaltyRepository
}

func NewAccountService(accountRepo repositories.AccountRepository, loyaltyRepo repositories.LoyaltyRepository) AccountServiceInterface {
	return &accountService{
		accountRepo: accountRepo,
		loyaltyRepo: loyaltyRepo,
	}
}

func (a *accountService) Login(ctx context.Context, request request_models.LoginRequest) (string, error) {
	account, err := a.accountRepo.FindByEmail(ctx, request.Email)
	if err != nil {
		return "", utils.ErrDatabaseError
	}
	if account == nil {
		return "", utils.ErrInvalidCredentials
	}

	if err := utils.ComparePasswords(account.PasswordHash, request.Password); err != nil {
		return "", utils.ErrInvalidCredentials
	}

	token, err := utils.CreateToken(account.ID, account.Role)
	if err != nil {
		return "", utils.ErrInvalidCredentials
	}
	return token, nil
}

func (a *accountService) CreateAccount(ctx context.Context, request request_models.SignUpRequest) error {
	existingAccount, err := a.accountRepo.FindByEmail(ctx, request.Email)
	if err != nil {
		return utils.ErrDatabaseError
	}
	if existingAccount != nil {
		return utils.ErrEmailAlreadyExists
	}

	hashedPassword, err := utils.HashPassword(request.Password)
	if err != nil {
		return utils.ErrDatabaseError
	}

	newAccount := &db_models.Account{
		Name:         request.DisplayName,
		Email:        request.Email,
		PasswordHash: hashedPassword,
		Role:         "user",
	}
	if err := a.accountRepo.Insert(ctx, newAccount); err != nil {
		return utils.ErrDatabaseError
	}

	// Every customer gets a loyalty account up front so first earns and
	// balance reads never race on creation.
	if _, err := a.loyaltyRepo.GetOrCreateByAccount(ctx, newAccount.ID); err != nil {
		return utils.ErrDatabaseError
	}
	return nil
}
