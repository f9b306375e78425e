package subscriber

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/wb-go/wbf/retry"

	"github.com/webstoer2020/Subscription-bot/internal/config"
	"github.com/webstoer2020/Subscription-bot/internal/model"
	subscriberrepo "github.com/webstoer2020/Subscription-bot/internal/repository/subscriber"
)

type fakeService struct {
	subscribers map[int64]model.Subscriber
	reminders   map[int64][]model.Reminder

	grantOK  bool
	extendOK bool
	removeOK bool
	sendErr  error

	granted  []int64
	extended []int64
	removed  []int64
	sent     []string
}

func newFakeService() *fakeService {
	return &fakeService{
		subscribers: make(map[int64]model.Subscriber),
		reminders:   make(map[int64][]model.Reminder),
		grantOK:     true,
		extendOK:    true,
		removeOK:    true,
	}
}

func (f *fakeService) Grant(_ context.Context, _ retry.Strategy, userID int64, username, firstName, lastName string, days, hours, minutes int) bool {
	if !f.grantOK {
		return false
	}
	f.granted = append(f.granted, userID)
	f.subscribers[userID] = model.Subscriber{
		UserID:    userID,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		Status:    model.StatusActive,
	}
	return true
}

func (f *fakeService) Extend(_ context.Context, _ retry.Strategy, userID int64, days, hours, minutes int) bool {
	if !f.extendOK {
		return false
	}
	if _, ok := f.subscribers[userID]; !ok {
		return false
	}
	f.extended = append(f.extended, userID)
	return true
}

func (f *fakeService) Get(_ context.Context, userID int64) (model.Subscriber, error) {
	sub, ok := f.subscribers[userID]
	if !ok {
		return model.Subscriber{}, subscriberrepo.ErrSubscriberNotFound
	}
	return sub, nil
}

func (f *fakeService) List(_ context.Context, status string) ([]model.Subscriber, error) {
	var out []model.Subscriber
	for _, sub := range f.subscribers {
		if status == "" || sub.Status == status {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (f *fakeService) Reminders(_ context.Context, userID int64) ([]model.Reminder, error) {
	return f.reminders[userID], nil
}

func (f *fakeService) Status(_ context.Context, _ retry.Strategy, userID int64) (string, error) {
	sub, ok := f.subscribers[userID]
	if !ok {
		return "", subscriberrepo.ErrSubscriberNotFound
	}
	return sub.Status, nil
}

func (f *fakeService) Remove(_ context.Context, _ retry.Strategy, userID int64) bool {
	if !f.removeOK {
		return false
	}
	if _, ok := f.subscribers[userID]; !ok {
		return false
	}
	delete(f.subscribers, userID)
	f.removed = append(f.removed, userID)
	return true
}

func (f *fakeService) Send(to, message, channel string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, channel+":"+to)
	return nil
}

type fakeChecker struct {
	calls int
}

func (f *fakeChecker) ForceCheck(_ context.Context) {
	f.calls++
}

func setupHandler(t *testing.T) (*Handler, *fakeService, *fakeChecker) {
	t.Helper()
	service := newFakeService()
	chk := &fakeChecker{}
	cfg := &config.Config{Retry: retry.Strategy{Attempts: 1, Delay: time.Millisecond}}
	handler := NewHandler(service, chk, validator.New(), cfg)
	return handler, service, chk
}

func testContext(w *httptest.ResponseRecorder, req *http.Request) *gin.Context {
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c
}

func TestHandler_Grant_Success(t *testing.T) {
	handler, service, _ := setupHandler(t)

	reqBody := GrantRequest{
		UserID:    42,
		Username:  "alice",
		FirstName: "Alice",
		Days:      30,
	}
	bodyBytes, _ := json.Marshal(reqBody)
	req := httptest.NewRequest(http.MethodPost, "/api/subscribers", bytes.NewReader(bodyBytes))
	w := httptest.NewRecorder()

	handler.Grant(testContext(w, req))

	assert.Equal(t, http.StatusCreated, w.Result().StatusCode)
	assert.Equal(t, []int64{42}, service.granted)
}

func TestHandler_Grant_ZeroDuration(t *testing.T) {
	handler, service, _ := setupHandler(t)

	bodyBytes, _ := json.Marshal(GrantRequest{UserID: 42})
	req := httptest.NewRequest(http.MethodPost, "/api/subscribers", bytes.NewReader(bodyBytes))
	w := httptest.NewRecorder()

	handler.Grant(testContext(w, req))

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	assert.Empty(t, service.granted)
}

func TestHandler_Grant_NegativeDuration(t *testing.T) {
	handler, _, _ := setupHandler(t)

	bodyBytes, _ := json.Marshal(GrantRequest{UserID: 42, Days: -1})
	req := httptest.NewRequest(http.MethodPost, "/api/subscribers", bytes.NewReader(bodyBytes))
	w := httptest.NewRecorder()

	handler.Grant(testContext(w, req))

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestHandler_Grant_DurationTooLarge(t *testing.T) {
	handler, service, _ := setupHandler(t)

	// Beyond the ten-year cap; rejected before any planning arithmetic.
	bodyBytes, _ := json.Marshal(GrantRequest{UserID: 42, Days: 1 << 40})
	req := httptest.NewRequest(http.MethodPost, "/api/subscribers", bytes.NewReader(bodyBytes))
	w := httptest.NewRecorder()

	handler.Grant(testContext(w, req))

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	assert.Empty(t, service.granted)
}

func TestHandler_Grant_StoreFailure(t *testing.T) {
	handler, service, _ := setupHandler(t)
	service.grantOK = false

	bodyBytes, _ := json.Marshal(GrantRequest{UserID: 42, Days: 30})
	req := httptest.NewRequest(http.MethodPost, "/api/subscribers", bytes.NewReader(bodyBytes))
	w := httptest.NewRecorder()

	handler.Grant(testContext(w, req))

	assert.Equal(t, http.StatusInternalServerError, w.Result().StatusCode)
}

func TestHandler_Extend_Success(t *testing.T) {
	handler, service, _ := setupHandler(t)
	service.subscribers[42] = model.Subscriber{UserID: 42, Status: model.StatusActive}

	bodyBytes, _ := json.Marshal(ExtendRequest{Days: 7})
	req := httptest.NewRequest(http.MethodPost, "/api/subscribers/42/extend", bytes.NewReader(bodyBytes))
	w := httptest.NewRecorder()

	c := testContext(w, req)
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	handler.Extend(c)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Equal(t, []int64{42}, service.extended)
}

func TestHandler_Extend_Unknown(t *testing.T) {
	handler, _, _ := setupHandler(t)

	bodyBytes, _ := json.Marshal(ExtendRequest{Days: 7})
	req := httptest.NewRequest(http.MethodPost, "/api/subscribers/42/extend", bytes.NewReader(bodyBytes))
	w := httptest.NewRecorder()

	c := testContext(w, req)
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	handler.Extend(c)

	assert.Equal(t, http.StatusNotFound, w.Result().StatusCode)
}

func TestHandler_Extend_BadID(t *testing.T) {
	handler, _, _ := setupHandler(t)

	bodyBytes, _ := json.Marshal(ExtendRequest{Days: 7})
	req := httptest.NewRequest(http.MethodPost, "/api/subscribers/abc/extend", bytes.NewReader(bodyBytes))
	w := httptest.NewRecorder()

	c := testContext(w, req)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	handler.Extend(c)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestHandler_List_Success(t *testing.T) {
	handler, service, _ := setupHandler(t)
	service.subscribers[1] = model.Subscriber{UserID: 1, Status: model.StatusActive}
	service.subscribers[2] = model.Subscriber{UserID: 2, Status: model.StatusExpired}

	req := httptest.NewRequest(http.MethodGet, "/api/subscribers?status=active", nil)
	w := httptest.NewRecorder()

	handler.List(testContext(w, req))

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)

	var resp struct {
		Success bool               `json:"success"`
		Data    []model.Subscriber `json:"data"`
	}
	assert.NoError(t, json.NewDecoder(w.Result().Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, int64(1), resp.Data[0].UserID)
}

func TestHandler_List_InvalidStatus(t *testing.T) {
	handler, _, _ := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/subscribers?status=banned", nil)
	w := httptest.NewRecorder()

	handler.List(testContext(w, req))

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestHandler_Get_Success(t *testing.T) {
	handler, service, _ := setupHandler(t)
	service.subscribers[42] = model.Subscriber{UserID: 42, Status: model.StatusActive}
	service.reminders[42] = []model.Reminder{{UserID: 42, Kind: "7_days"}}

	req := httptest.NewRequest(http.MethodGet, "/api/subscribers/42", nil)
	w := httptest.NewRecorder()

	c := testContext(w, req)
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	handler.Get(c)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
}

func TestHandler_Get_NotFound(t *testing.T) {
	handler, _, _ := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/subscribers/42", nil)
	w := httptest.NewRecorder()

	c := testContext(w, req)
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Result().StatusCode)
}

func TestHandler_GetStatus_Success(t *testing.T) {
	handler, service, _ := setupHandler(t)
	service.subscribers[42] = model.Subscriber{UserID: 42, Status: model.StatusExpired}

	req := httptest.NewRequest(http.MethodGet, "/api/subscribers/42/status", nil)
	w := httptest.NewRecorder()

	c := testContext(w, req)
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	handler.GetStatus(c)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)

	var resp struct {
		Data string `json:"data"`
	}
	assert.NoError(t, json.NewDecoder(w.Result().Body).Decode(&resp))
	assert.Equal(t, model.StatusExpired, resp.Data)
}

func TestHandler_Remove_Success(t *testing.T) {
	handler, service, _ := setupHandler(t)
	service.subscribers[42] = model.Subscriber{UserID: 42, Status: model.StatusActive}

	req := httptest.NewRequest(http.MethodDelete, "/api/subscribers/42", nil)
	w := httptest.NewRecorder()

	c := testContext(w, req)
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	handler.Remove(c)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Equal(t, []int64{42}, service.removed)
}

func TestHandler_Remove_NotFound(t *testing.T) {
	handler, _, _ := setupHandler(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/subscribers/42", nil)
	w := httptest.NewRecorder()

	c := testContext(w, req)
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	handler.Remove(c)

	assert.Equal(t, http.StatusNotFound, w.Result().StatusCode)
}

func TestHandler_ForceCheck(t *testing.T) {
	handler, _, chk := setupHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/check", nil)
	w := httptest.NewRecorder()

	handler.ForceCheck(testContext(w, req))

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Equal(t, 1, chk.calls)
}

func TestHandler_Notify_Success(t *testing.T) {
	handler, service, _ := setupHandler(t)

	bodyBytes, _ := json.Marshal(NotifyRequest{To: "12345", Message: "hi", Channel: "telegram"})
	req := httptest.NewRequest(http.MethodPost, "/api/notify", bytes.NewReader(bodyBytes))
	w := httptest.NewRecorder()

	handler.Notify(testContext(w, req))

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Equal(t, []string{"telegram:12345"}, service.sent)
}

func TestHandler_Notify_UnknownChannel(t *testing.T) {
	handler, _, _ := setupHandler(t)

	bodyBytes, _ := json.Marshal(NotifyRequest{To: "12345", Message: "hi", Channel: "sms"})
	req := httptest.NewRequest(http.MethodPost, "/api/notify", bytes.NewReader(bodyBytes))
	w := httptest.NewRecorder()

	handler.Notify(testContext(w, req))

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}
