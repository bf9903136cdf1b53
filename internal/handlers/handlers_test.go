package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SscSPs/credit_ledger/internal/apperrors"
	"github.com/SscSPs/credit_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/credit_ledger/internal/core/ports/services"
	"github.com/SscSPs/credit_ledger/internal/core/services"
	"github.com/SscSPs/credit_ledger/internal/dto"
	"github.com/SscSPs/credit_ledger/internal/handlers"
	"github.com/SscSPs/credit_ledger/internal/platform/config"
	"github.com/SscSPs/credit_ledger/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const (
	testAccountID = "acct-123"
	testSecret    = "test-secret-key-that-is-long-enough"
	webhookSecret = "whsec_test"
)

type HandlersTestSuite struct {
	suite.Suite
	router        *gin.Engine
	accounts      *MockAccountService
	locks         *MockLockService
	generations   *MockGenerationService
	notifications *MockNotificationService
	token         string
}

func (suite *HandlersTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	suite.accounts = new(MockAccountService)
	suite.locks = new(MockLockService)
	suite.generations = new(MockGenerationService)
	suite.notifications = new(MockNotificationService)

	suite.accounts.On("EnsureAccount", mock.Anything, testAccountID).
		Return(&domain.Account{AccountID: testAccountID, Balance: 250, TotalGenerations: 3}, nil).Maybe()

	cfg := &config.Config{
		JWTSecret:     testSecret,
		WebhookSecret: webhookSecret,
		IsProduction:  true,
	}
	container := &portssvc.ServiceContainer{
		Account:      suite.accounts,
		Lock:         suite.locks,
		Generation:   suite.generations,
		Notification: suite.notifications,
		Pricing:      services.NewPricingService(),
	}

	suite.router = gin.New()
	handlers.RegisterRoutes(suite.router, cfg, container)

	token, err := utils.GenerateJWT(testAccountID, testSecret, time.Hour, "")
	suite.Require().NoError(err)
	suite.token = token
}

func (suite *HandlersTestSuite) TearDownTest() {
	suite.accounts.AssertExpectations(suite.T())
	suite.locks.AssertExpectations(suite.T())
	suite.generations.AssertExpectations(suite.T())
	suite.notifications.AssertExpectations(suite.T())
}

func (suite *HandlersTestSuite) do(method, url string, body any, authorization string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			suite.Require().NoError(err)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, url, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *HandlersTestSuite) authed(method, url string, body any) *httptest.ResponseRecorder {
	return suite.do(method, url, body, "Bearer "+suite.token)
}

func (suite *HandlersTestSuite) decode(w *httptest.ResponseRecorder, out any) {
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func (suite *HandlersTestSuite) assertError(w *httptest.ResponseRecorder, status int, code string) dto.ErrorResponse {
	suite.Equal(status, w.Code, w.Body.String())
	var body dto.ErrorResponse
	suite.decode(w, &body)
	suite.Equal(code, body.Error.Code)
	return body
}

// --- Test Cases ---

func (suite *HandlersTestSuite) TestHealth() {
	w := suite.do(http.MethodGet, "/health", nil, "")
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("OK", w.Body.String())
}

func (suite *HandlersTestSuite) TestV1_RequiresToken() {
	w := suite.do(http.MethodGet, "/v1/credits/balance", nil, "")
	suite.assertError(w, http.StatusUnauthorized, "unauthorized")

	w = suite.do(http.MethodGet, "/v1/credits/balance", nil, "Bearer not-a-jwt")
	suite.assertError(w, http.StatusUnauthorized, "unauthorized")

	suite.accounts.AssertNotCalled(suite.T(), "EnsureAccount", mock.Anything, mock.Anything)
}

func (suite *HandlersTestSuite) TestGetAccount() {
	suite.locks.On("IsHeld", mock.Anything, testAccountID).Return(true, nil).Once()

	w := suite.authed(http.MethodGet, "/v1/account", nil)

	suite.Equal(http.StatusOK, w.Code)
	var body dto.AccountResponse
	suite.decode(w, &body)
	suite.Equal(testAccountID, body.AccountID)
	suite.Equal(int64(250), body.CreditsBalance)
	suite.Equal(int64(3), body.TotalGenerations)
	suite.True(body.GenerationInProgress)
}

func (suite *HandlersTestSuite) TestVerifyLedger() {
	suite.accounts.On("VerifyLedger", mock.Anything, testAccountID).
		Return(&domain.LedgerVerification{AccountID: testAccountID, Balance: 250, TransactionSum: 250, Consistent: true}, nil).Once()

	w := suite.authed(http.MethodGet, "/v1/account/verify", nil)

	suite.Equal(http.StatusOK, w.Code)
	var body dto.LedgerVerificationResponse
	suite.decode(w, &body)
	suite.True(body.Consistent)
	suite.Equal(int64(250), body.TransactionSum)
}

func (suite *HandlersTestSuite) TestGetBalance() {
	suite.accounts.On("GetBalance", mock.Anything, testAccountID).Return(int64(150), nil).Once()

	w := suite.authed(http.MethodGet, "/v1/credits/balance", nil)

	suite.Equal(http.StatusOK, w.Code)
	var body dto.BalanceResponse
	suite.decode(w, &body)
	suite.Equal(int64(150), body.CreditsBalance)
	suite.Equal("$1.50", body.USDEquivalent)
}

func (suite *HandlersTestSuite) TestListTransactions_PassesCursor() {
	jobID := "job-1"
	next := "cursor-2"
	txns := []domain.LedgerTransaction{
		{TransactionID: "t2", Amount: -150, BalanceAfter: 100, Kind: domain.KindDebit, JobID: &jobID},
		{TransactionID: "t1", Amount: 100, BalanceAfter: 250, Kind: domain.KindWelcome},
	}
	suite.accounts.On("ListTransactions", mock.Anything, testAccountID, 2,
		mock.MatchedBy(func(p *string) bool { return p != nil && *p == "cursor-1" }),
	).Return(txns, &next, nil).Once()

	w := suite.authed(http.MethodGet, "/v1/credits/transactions?limit=2&next_token=cursor-1", nil)

	suite.Equal(http.StatusOK, w.Code)
	var body dto.ListTransactionsResponse
	suite.decode(w, &body)
	suite.Len(body.Transactions, 2)
	suite.Equal("debit", body.Transactions[0].Type)
	suite.Equal(int64(-150), body.Transactions[0].Amount)
	suite.Require().NotNil(body.NextToken)
	suite.Equal("cursor-2", *body.NextToken)
}

func (suite *HandlersTestSuite) TestListTransactions_InvalidToken() {
	suite.accounts.On("ListTransactions", mock.Anything, testAccountID, 0, mock.Anything).
		Return(nil, nil, apperrors.NewAppError(http.StatusBadRequest, "invalid nextToken", nil)).Once()

	w := suite.authed(http.MethodGet, "/v1/credits/transactions?next_token=garbage", nil)

	body := suite.assertError(w, http.StatusBadRequest, "bad_request")
	suite.Equal("invalid nextToken", body.Error.Message)
}

func (suite *HandlersTestSuite) TestListPacks() {
	suite.accounts.On("ListCreditPacks").Return([]domain.CreditPack{{
		ProductID: services.StarterPackProductID, Credits: 1000,
		PriceUSD: decimal.RequireFromString("9.99"), DisplayName: "Starter Pack",
	}}).Once()

	w := suite.authed(http.MethodGet, "/v1/credits/packs", nil)

	suite.Equal(http.StatusOK, w.Code)
	var body []dto.CreditPackResponse
	suite.decode(w, &body)
	suite.Require().Len(body, 1)
	suite.Equal("Starter Pack", body[0].Name)
	suite.Equal(int64(10), body[0].EstimatedVideos)
	suite.True(body[0].Popular)
	suite.True(decimal.RequireFromString("9.99").Equal(body[0].PriceUSD))
}

func (suite *HandlersTestSuite) TestPurchaseCredits() {
	suite.accounts.On("PurchaseCredits", mock.Anything, testAccountID, "signed.jws.payload").
		Return(&domain.LedgerTransaction{TransactionID: "t9", Amount: 1000, BalanceAfter: 1250, Kind: domain.KindPurchase}, nil).Once()

	w := suite.authed(http.MethodPost, "/v1/credits/purchases", dto.PurchaseRequest{SignedTransaction: "signed.jws.payload"})

	suite.Equal(http.StatusOK, w.Code)
	var body dto.PurchaseResponse
	suite.decode(w, &body)
	suite.True(body.Success)
	suite.Equal(int64(1000), body.CreditsAdded)
	suite.Equal(int64(1250), body.NewBalance)
	suite.Equal("t9", body.TransactionID)
}

func (suite *HandlersTestSuite) TestPurchaseCredits_Duplicate() {
	suite.accounts.On("PurchaseCredits", mock.Anything, testAccountID, "signed.jws.payload").
		Return(nil, fmt.Errorf("%w: transaction already processed", apperrors.ErrDuplicate)).Once()

	w := suite.authed(http.MethodPost, "/v1/credits/purchases", dto.PurchaseRequest{SignedTransaction: "signed.jws.payload"})

	suite.assertError(w, http.StatusConflict, "duplicate")
}

func (suite *HandlersTestSuite) TestPurchaseCredits_MissingBody() {
	w := suite.authed(http.MethodPost, "/v1/credits/purchases", `{}`)

	suite.assertError(w, http.StatusBadRequest, "bad_request")
	suite.accounts.AssertNotCalled(suite.T(), "PurchaseCredits", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *HandlersTestSuite) TestEstimate_WithoutPrompt() {
	spec := domain.JobSpec{Model: "sora-2", Size: "720x1280", Seconds: 8}
	suite.generations.On("Estimate", mock.Anything, testAccountID, spec).
		Return(&domain.Estimate{CreditsCost: 150, USDEquivalent: "$1.50", CurrentBalance: 250, SufficientCredits: true}, nil).Once()

	w := suite.authed(http.MethodPost, "/v1/generations/estimate", map[string]any{"model": "sora-2", "size": "720x1280", "seconds": 8})

	suite.Equal(http.StatusOK, w.Code)
	var body dto.EstimateResponse
	suite.decode(w, &body)
	suite.Equal(int64(150), body.CreditsCost)
	suite.True(body.SufficientCredits)
}

func (suite *HandlersTestSuite) TestCreateGeneration_Accepted() {
	req := dto.CreateGenerationRequest{Model: "sora-2", Prompt: "a cat surfing", Size: "1280x720", Seconds: 4}
	suite.generations.On("Submit", mock.Anything, testAccountID, req.ToJobSpec()).Return(&domain.SubmissionResult{
		Job:        domain.Job{JobID: "job-1", Status: domain.JobStatusQueued, CreditsCost: 100},
		NewBalance: 150,
	}, nil).Once()

	w := suite.authed(http.MethodPost, "/v1/generations", req)

	suite.Equal(http.StatusAccepted, w.Code)
	var body dto.CreateGenerationResponse
	suite.decode(w, &body)
	suite.Equal("job-1", body.JobID)
	suite.Equal(domain.JobStatusQueued, body.Status)
	suite.Equal(int64(100), body.CreditsCost)
	suite.Equal(int64(150), body.NewBalance)
	suite.Equal(dto.EstimatedWaitSeconds, body.EstimatedWaitSeconds)
}

func (suite *HandlersTestSuite) TestCreateGeneration_ErrorMapping() {
	req := dto.CreateGenerationRequest{Model: "sora-2", Prompt: "a cat surfing", Size: "1280x720", Seconds: 4}
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"insufficient credits", fmt.Errorf("%w: need 100, have 20", apperrors.ErrInsufficientCredits), http.StatusPaymentRequired, "insufficient_credits"},
		{"concurrent", fmt.Errorf("%w: please wait", apperrors.ErrConcurrentGeneration), http.StatusConflict, "concurrent_generation"},
		{"quota", fmt.Errorf("%w: daily limit", apperrors.ErrRateLimitExceeded), http.StatusTooManyRequests, "rate_limit_exceeded"},
		{"provider", fmt.Errorf("%w: boom", apperrors.ErrProviderFailure), http.StatusBadGateway, "external_api_error"},
		{"validation", fmt.Errorf("%w: seconds is invalid (oneof)", apperrors.ErrValidation), http.StatusBadRequest, "bad_request"},
		{"store", apperrors.NewAppError(http.StatusInternalServerError, "failed to debit", errors.New("conn reset")), http.StatusInternalServerError, "database_error"},
		{"unknown", errors.New("something else"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		suite.Run(tc.name, func() {
			suite.generations.On("Submit", mock.Anything, testAccountID, req.ToJobSpec()).Return(nil, tc.err).Once()

			w := suite.authed(http.MethodPost, "/v1/generations", req)

			body := suite.assertError(w, tc.status, tc.code)
			if tc.status == http.StatusInternalServerError {
				suite.Equal("Failed to start generation", body.Error.Message, "server errors must not leak details")
			}
			if tc.code == "concurrent_generation" || tc.code == "rate_limit_exceeded" {
				suite.NotEmpty(w.Header().Get("Retry-After"))
			}
		})
	}
}

func (suite *HandlersTestSuite) TestListGenerations() {
	jobs := []domain.Job{{JobID: "job-3"}, {JobID: "job-2"}}
	suite.generations.On("ListJobs", mock.Anything, testAccountID, 2, 1).Return(jobs, int64(5), nil).Once()

	w := suite.authed(http.MethodGet, "/v1/generations?limit=2&offset=1", nil)

	suite.Equal(http.StatusOK, w.Code)
	var body dto.ListJobsResponse
	suite.decode(w, &body)
	suite.Len(body.Jobs, 2)
	suite.Equal(int64(5), body.Total)
	suite.True(body.HasMore)
}

func (suite *HandlersTestSuite) TestListGenerations_BadQuery() {
	w := suite.authed(http.MethodGet, "/v1/generations?limit=abc", nil)

	suite.assertError(w, http.StatusBadRequest, "bad_request")
}

func (suite *HandlersTestSuite) TestGetGeneration_NotFound() {
	suite.generations.On("GetJob", mock.Anything, testAccountID, "job-x").Return(nil, fmt.Errorf("%w: job job-x", apperrors.ErrNotFound)).Once()

	w := suite.authed(http.MethodGet, "/v1/generations/job-x", nil)

	suite.assertError(w, http.StatusNotFound, "not_found")
}

func (suite *HandlersTestSuite) TestGetGeneration() {
	url := "http://localhost:8080/v1/generations/job-1/content?variant=video"
	suite.generations.On("GetJob", mock.Anything, testAccountID, "job-1").
		Return(&domain.Job{JobID: "job-1", Status: domain.JobStatusCompleted, Progress: 100, VideoURL: &url}, nil).Once()

	w := suite.authed(http.MethodGet, "/v1/generations/job-1", nil)

	suite.Equal(http.StatusOK, w.Code)
	var body dto.JobResponse
	suite.decode(w, &body)
	suite.Equal(domain.JobStatusCompleted, body.Status)
	suite.Require().NotNil(body.VideoURL)
	suite.Equal(url, *body.VideoURL)
}

func (suite *HandlersTestSuite) TestGetContent_Streams() {
	suite.generations.On("FetchContent", mock.Anything, testAccountID, "job-1", domain.VariantThumbnail).Return(&domain.Content{
		Body:          io.NopCloser(strings.NewReader("webp-bytes")),
		ContentType:   "image/webp",
		ContentLength: 10,
	}, nil).Once()

	w := suite.authed(http.MethodGet, "/v1/generations/job-1/content?variant=thumbnail", nil)

	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("image/webp", w.Header().Get("Content-Type"))
	suite.Equal("webp-bytes", w.Body.String())
}

func (suite *HandlersTestSuite) TestWebhook_RejectsWithoutSecret() {
	event := dto.WebhookEvent{ID: "evt_1", Type: dto.EventVideoCompleted, Data: dto.WebhookEventData{ID: "video_1"}}

	w := suite.do(http.MethodPost, "/webhooks/provider", event, "")
	suite.assertError(w, http.StatusUnauthorized, "unauthorized")

	w = suite.do(http.MethodPost, "/webhooks/provider", event, "Bearer wrong")
	suite.assertError(w, http.StatusUnauthorized, "unauthorized")

	suite.notifications.AssertNotCalled(suite.T(), "HandleTerminalEvent", mock.Anything, mock.Anything)
}

func (suite *HandlersTestSuite) TestWebhook_FailedEvent() {
	event := dto.WebhookEvent{
		ID:   "evt_1",
		Type: dto.EventVideoFailed,
		Data: dto.WebhookEventData{ID: "video_1", Error: &dto.WebhookEventError{Code: "moderation", Message: "blocked"}},
	}
	suite.notifications.On("HandleTerminalEvent", mock.Anything, domain.TerminalEvent{
		EventID: "evt_1", ProviderJobID: "video_1", Kind: domain.NotificationFailed, ErrorMessage: "blocked",
	}).Return(domain.OutcomeApplied, nil).Once()

	w := suite.do(http.MethodPost, "/webhooks/provider", event, "Bearer "+webhookSecret)

	suite.Equal(http.StatusOK, w.Code)
	var ack dto.WebhookAck
	suite.decode(w, &ack)
	suite.True(ack.Received)
	suite.Equal(domain.OutcomeApplied, ack.Outcome)
}

func (suite *HandlersTestSuite) TestWebhook_DuplicateIsOK() {
	event := dto.WebhookEvent{ID: "evt_2", Type: dto.EventVideoCompleted, Data: dto.WebhookEventData{ID: "video_1"}}
	suite.notifications.On("HandleTerminalEvent", mock.Anything, mock.Anything).Return(domain.OutcomeDuplicate, nil).Once()

	w := suite.do(http.MethodPost, "/webhooks/provider", event, "Bearer "+webhookSecret)

	suite.Equal(http.StatusOK, w.Code)
	var ack dto.WebhookAck
	suite.decode(w, &ack)
	suite.Equal(domain.OutcomeDuplicate, ack.Outcome)
}

func (suite *HandlersTestSuite) TestWebhook_UnknownTypeIgnored() {
	event := dto.WebhookEvent{ID: "evt_3", Type: "video.created", Data: dto.WebhookEventData{ID: "video_1"}}

	w := suite.do(http.MethodPost, "/webhooks/provider", event, "Bearer "+webhookSecret)

	suite.Equal(http.StatusOK, w.Code)
	var ack dto.WebhookAck
	suite.decode(w, &ack)
	suite.Equal(domain.OutcomeIgnored, ack.Outcome)
	suite.notifications.AssertNotCalled(suite.T(), "HandleTerminalEvent", mock.Anything, mock.Anything)
}

func (suite *HandlersTestSuite) TestWebhook_Malformed() {
	w := suite.do(http.MethodPost, "/webhooks/provider", `{"type":"video.completed"`, "Bearer "+webhookSecret)

	suite.assertError(w, http.StatusBadRequest, "bad_request")
}

func (suite *HandlersTestSuite) TestWebhook_ProviderCheckFailsIsRetryable() {
	event := dto.WebhookEvent{ID: "evt_4", Type: dto.EventVideoCompleted, Data: dto.WebhookEventData{ID: "video_1"}}
	suite.notifications.On("HandleTerminalEvent", mock.Anything, mock.Anything).
		Return(domain.NotificationOutcome(""), fmt.Errorf("%w: status check timed out", apperrors.ErrProviderFailure)).Once()

	w := suite.do(http.MethodPost, "/webhooks/provider", event, "Bearer "+webhookSecret)

	suite.assertError(w, http.StatusBadGateway, "external_api_error")
}

// --- Run Test Suite ---
func TestHandlers(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}
