package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/fiscal_ledger/internal/apperrors"
	"github.com/SscSPs/fiscal_ledger/internal/core/domain"
	"github.com/SscSPs/fiscal_ledger/internal/dto"
	"github.com/SscSPs/fiscal_ledger/internal/handlers"
	"github.com/SscSPs/fiscal_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Test Suite ---
type AccountHandlerTestSuite struct {
	suite.Suite
	router             *gin.Engine
	mockAccountService *MockAccountService
	mockLedgerService  *MockLedgerService
	userID             string
}

func (suite *AccountHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.userID = uuid.NewString()

	suite.mockAccountService = new(MockAccountService)
	suite.mockLedgerService = new(MockLedgerService)

	v1 := suite.router.Group("/api/v1", middleware.AuthMiddleware(testJWTSecret))
	handlers.RegisterAccountRoutes(v1, suite.mockAccountService, suite.mockLedgerService)
}

func (suite *AccountHandlerTestSuite) do(method, url string, body any) *httptest.ResponseRecorder {
	return performRequest(suite.T(), suite.router, method, url, body, suite.userID, nil)
}

func (suite *AccountHandlerTestSuite) errorBody(w *httptest.ResponseRecorder) handlers.ErrorResponse {
	var body handlers.ErrorResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// --- Test Cases ---

func (suite *AccountHandlerTestSuite) TestCreateAccount_Success() {
	req := dto.CreateAccountRequest{Code: "1.1.01", Name: "Caja", AccountType: domain.Asset}
	created := &domain.Account{
		AccountID:     uuid.NewString(),
		Code:          req.Code,
		Name:          req.Name,
		AccountType:   domain.Asset,
		NormalBalance: domain.DebitBalance,
		IsActive:      true,
		AllowPosting:  true,
		Balance:       decimal.Zero,
	}
	suite.mockAccountService.On("CreateAccount", mock.Anything, req, suite.userID).Return(created, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/accounts", req)

	suite.Equal(http.StatusCreated, w.Code)
	var resp dto.AccountResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(created.AccountID, resp.AccountID)
	suite.Equal(domain.DebitBalance, resp.NormalBalance)
	suite.mockAccountService.AssertExpectations(suite.T())
}

func (suite *AccountHandlerTestSuite) TestCreateAccount_InvalidType() {
	w := suite.do(http.MethodPost, "/api/v1/accounts", map[string]string{
		"code": "9", "name": "Bad", "accountType": "CASH",
	})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("VALIDATION_ERROR", suite.errorBody(w).Code)
	suite.mockAccountService.AssertNotCalled(suite.T(), "CreateAccount")
}

func (suite *AccountHandlerTestSuite) TestCreateAccount_DuplicateCode() {
	req := dto.CreateAccountRequest{Code: "1.1.01", Name: "Caja", AccountType: domain.Asset}
	suite.mockAccountService.On("CreateAccount", mock.Anything, req, suite.userID).
		Return(nil, fmt.Errorf("%w: code already in use", apperrors.ErrDuplicate)).Once()

	w := suite.do(http.MethodPost, "/api/v1/accounts", req)

	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal("DUPLICATE", suite.errorBody(w).Code)
}

func (suite *AccountHandlerTestSuite) TestGetAccount_NotFound() {
	accountID := uuid.NewString()
	suite.mockAccountService.On("GetAccountByID", mock.Anything, accountID).Return(nil, apperrors.ErrNotFound).Once()

	w := suite.do(http.MethodGet, "/api/v1/accounts/"+accountID, nil)

	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal("NOT_FOUND", suite.errorBody(w).Code)
}

func (suite *AccountHandlerTestSuite) TestListAccounts_DefaultPaging() {
	accounts := []domain.Account{{AccountID: uuid.NewString(), Code: "1"}, {AccountID: uuid.NewString(), Code: "2"}}
	suite.mockAccountService.On("ListAccounts", mock.Anything, mock.MatchedBy(func(p dto.ListAccountsParams) bool {
		return p.Limit == 100 && p.Offset == 0 && !p.IncludeInactive
	})).Return(accounts, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/accounts", nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.ListAccountsResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Len(resp.Accounts, 2)
}

func (suite *AccountHandlerTestSuite) TestDeactivateAccount_NonZeroBalance() {
	accountID := uuid.NewString()
	suite.mockAccountService.On("DeactivateAccount", mock.Anything, accountID, suite.userID).
		Return(fmt.Errorf("%w: account balance is 118.00", apperrors.ErrValidation)).Once()

	w := suite.do(http.MethodDelete, "/api/v1/accounts/"+accountID, nil)

	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *AccountHandlerTestSuite) TestDeactivateAccount_Success() {
	accountID := uuid.NewString()
	suite.mockAccountService.On("DeactivateAccount", mock.Anything, accountID, suite.userID).Return(nil).Once()

	w := suite.do(http.MethodDelete, "/api/v1/accounts/"+accountID, nil)

	suite.Equal(http.StatusNoContent, w.Code)
	suite.mockAccountService.AssertExpectations(suite.T())
}

func (suite *AccountHandlerTestSuite) TestGetAccountBalance_AsOf() {
	accountID := uuid.NewString()
	asOf := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	suite.mockLedgerService.On("GetAccountBalance", mock.Anything, accountID, mock.MatchedBy(func(t *time.Time) bool {
		return t != nil && t.Equal(asOf)
	})).Return(decimal.RequireFromString("118.00"), nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/accounts/"+accountID+"/balance?asOf=2024-03-31", nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.AccountBalanceResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.True(decimal.RequireFromString("118").Equal(resp.Balance))
	suite.Equal("2024-03-31", resp.AsOf)
}

func (suite *AccountHandlerTestSuite) TestGetAccountBalance_BadDate() {
	w := suite.do(http.MethodGet, "/api/v1/accounts/"+uuid.NewString()+"/balance?asOf=31-03-2024", nil)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockLedgerService.AssertNotCalled(suite.T(), "GetAccountBalance")
}

func (suite *AccountHandlerTestSuite) TestMissingToken() {
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.mockAccountService.AssertNotCalled(suite.T(), "ListAccounts")
}

// --- Run Test Suite ---
func TestAccountHandler(t *testing.T) {
	suite.Run(t, new(AccountHandlerTestSuite))
}
