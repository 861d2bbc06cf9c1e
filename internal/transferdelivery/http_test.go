package transferdelivery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/integrationtest/helpers"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

func decodeError(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()

	var res web.Response
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&res))

	return res.Error
}

func TestCreateTransferAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testAccount1 := helpers.RandomAccount()
	testAccount2 := helpers.RandomAccount()
	for testAccount2.ID == testAccount1.ID {
		testAccount2 = helpers.RandomAccount()
	}

	var amount int64 = 100

	arg := domain.TransferParams{
		FromAccountID: testAccount1.ID,
		ToAccountID:   testAccount2.ID,
		Amount:        amount,
	}

	validBody := gin.H{
		"from_account_id": testAccount1.ID,
		"to_account_id":   testAccount2.ID,
		"amount":          fmt.Sprint(amount),
	}

	testCases := []struct {
		name          string
		requestBody   gin.H
		buildStubs    func(transferService *MockService)
		checkResponse func(recorder *httptest.ResponseRecorder)
	}{
		{
			name: "MissingFromAccountID",
			requestBody: gin.H{
				"to_account_id": testAccount2.ID,
				"amount":        "100",
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().Transfer(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
				require.Equal(t, "FromAccountID field is required", decodeError(t, recorder))
			},
		},
		{
			name: "OutOfRangeRecipient",
			requestBody: gin.H{
				"from_account_id": 42,
				"to_account_id":   43,
				"amount":          "100",
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), gomock.Eq(domain.TransferParams{FromAccountID: 42, ToAccountID: 43, Amount: 100})).
					Times(1).
					Return(domain.TransferResult{}, domain.ErrAccountNotFound)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusNotFound, recorder.Code)
				require.Equal(t, domain.ErrAccountNotFound.Error(), decodeError(t, recorder))
			},
		},
		{
			name: "MissingAmount",
			requestBody: gin.H{
				"from_account_id": testAccount1.ID,
				"to_account_id":   testAccount2.ID,
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().Transfer(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
				require.Equal(t, "Amount field is required", decodeError(t, recorder))
			},
		},
		{
			name: "AmountNotInteger",
			requestBody: gin.H{
				"from_account_id": testAccount1.ID,
				"to_account_id":   testAccount2.ID,
				"amount":          "1.5",
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().Transfer(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
				require.Equal(t, domain.ErrInvalidAmount.Error(), decodeError(t, recorder))
			},
		},
		{
			name: "AmountExponent",
			requestBody: gin.H{
				"from_account_id": testAccount1.ID,
				"to_account_id":   testAccount2.ID,
				"amount":          "1e-10000000",
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().Transfer(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
				require.Equal(t, domain.ErrInvalidAmount.Error(), decodeError(t, recorder))
			},
		},
		{
			name:        "RecipientNotFound",
			requestBody: validBody,
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), gomock.Eq(arg)).
					Times(1).
					Return(domain.TransferResult{}, domain.ErrAccountNotFound)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusNotFound, recorder.Code)
			},
		},
		{
			name:        "SelfTransfer",
			requestBody: validBody,
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), gomock.Eq(arg)).
					Times(1).
					Return(domain.TransferResult{}, domain.ErrSelfTransfer)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
				require.Equal(t, domain.ErrSelfTransfer.Error(), decodeError(t, recorder))
			},
		},
		{
			name:        "InsufficientFunds",
			requestBody: validBody,
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), gomock.Eq(arg)).
					Times(1).
					Return(domain.TransferResult{}, domain.ErrInsufficientFunds)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
			},
		},
		{
			name:        "InternalError",
			requestBody: validBody,
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), gomock.Eq(arg)).
					Times(1).
					Return(domain.TransferResult{}, fmt.Errorf("%w: disk full", domain.ErrPersistence))
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusInternalServerError, recorder.Code)
				require.Equal(t, errorspkg.ErrInternal.Error(), decodeError(t, recorder))
			},
		},
		{
			name:        "OK",
			requestBody: validBody,
			buildStubs: func(transferService *MockService) {
				from, to := testAccount1.Clone(), testAccount2.Clone()
				from.Balance -= amount
				to.Balance += amount

				transferService.EXPECT().
					Transfer(gomock.Any(), gomock.Eq(arg)).
					Times(1).
					Return(domain.TransferResult{FromAccount: from, ToAccount: to, Amount: amount}, nil)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)

				res := web.Response{
					Data: &struct {
						Transfer domain.TransferResult `json:"transfer"`
					}{},
				}
				require.NoError(t, json.NewDecoder(recorder.Body).Decode(&res))

				got := res.Data.(*struct {
					Transfer domain.TransferResult `json:"transfer"`
				})
				require.Equal(t, amount, got.Transfer.Amount)
				require.Equal(t, testAccount1.Balance-amount, got.Transfer.FromAccount.Balance)
				require.Equal(t, testAccount2.Balance+amount, got.Transfer.ToAccount.Balance)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			transferService := NewMockService(ctrl)
			transferHandler := NewHandler(transferService)

			server := gin.New()
			url := "/transfers"
			server.POST(url, transferHandler.Create)

			tc.buildStubs(transferService)

			recorder := httptest.NewRecorder()

			body, err := json.Marshal(tc.requestBody)
			require.NoError(t, err)

			req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
			require.NoError(t, err)

			server.ServeHTTP(recorder, req)
			tc.checkResponse(recorder)
		})
	}
}
