package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliceAndBob(t *testing.T) {
	app, _ := newTestApplication(t)
	h := app.routes()

	alice := registerToken(t, h, "alice", "pw1")
	bob := registerToken(t, h, "bob", "pw2")

	var aliceProfile, bobProfile userResponse
	decodeEnvelope(t, apiRequest(t, h, http.MethodGet, "/api/users/profile/", alice, ""), &aliceProfile)
	decodeEnvelope(t, apiRequest(t, h, http.MethodGet, "/api/users/profile/", bob, ""), &bobProfile)

	t.Run("alice creates Run", func(t *testing.T) {
		rr := apiRequest(t, h, http.MethodPost, "/api/events/create/", alice, `{"title":"Run","text":"Morning run"}`)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var e eventResponse
		env := decodeEnvelope(t, rr, &e)
		assert.Equal(t, "success", env.Status)
		assert.Equal(t, int64(1), e.ID)
		assert.Equal(t, aliceProfile.ID, e.Creator)
		assert.Empty(t, e.Members)
		assert.NotNil(t, e.Members)
	})

	t.Run("bob joins", func(t *testing.T) {
		rr := apiRequest(t, h, http.MethodPut, "/api/events/join/1/", bob, "")
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var msg messageResponse
		decodeEnvelope(t, rr, &msg)
		assert.Equal(t, "You have joined the event", msg.Message)

		var e eventResponse
		decodeEnvelope(t, apiRequest(t, h, http.MethodGet, "/api/events/1/", "", ""), &e)
		assert.Equal(t, []int64{bobProfile.ID}, e.Members)
	})

	t.Run("bob joins again", func(t *testing.T) {
		rr := apiRequest(t, h, http.MethodPut, "/api/events/join/1/", bob, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)

		env := decodeEnvelope(t, rr, nil)
		assert.Equal(t, "fail", env.Status)
		assert.Equal(t, "already a member of this event", env.Message)
	})

	t.Run("bob cannot delete", func(t *testing.T) {
		rr := apiRequest(t, h, http.MethodDelete, "/api/events/delete/1/", bob, "")
		assert.Equal(t, http.StatusForbidden, rr.Code)

		rr = apiRequest(t, h, http.MethodGet, "/api/events/1/", "", "")
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("alice deletes", func(t *testing.T) {
		rr := apiRequest(t, h, http.MethodDelete, "/api/events/delete/1/", alice, "")
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var msg messageResponse
		decodeEnvelope(t, rr, &msg)
		assert.Equal(t, "Event deleted successfully", msg.Message)

		rr = apiRequest(t, h, http.MethodGet, "/api/events/1/", "", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "not found", decodeEnvelope(t, rr, nil).Message)
	})
}

func TestLeaveEvent(t *testing.T) {
	app, _ := newTestApplication(t)
	h := app.routes()

	alice := registerToken(t, h, "alice", "pw1")
	bob := registerToken(t, h, "bob", "pw2")
	require.Equal(t, http.StatusCreated,
		apiRequest(t, h, http.MethodPost, "/api/events/create", alice, `{"title":"Run","text":"Morning run"}`).Code)

	rr := apiRequest(t, h, http.MethodPut, "/api/events/leave/1/", bob, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "not a member of this event", decodeEnvelope(t, rr, nil).Message)

	require.Equal(t, http.StatusOK, apiRequest(t, h, http.MethodPut, "/api/events/join/1", bob, "").Code)

	rr = apiRequest(t, h, http.MethodPut, "/api/events/leave/1/", bob, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var msg messageResponse
	decodeEnvelope(t, rr, &msg)
	assert.Equal(t, "You have left the event", msg.Message)

	var e eventResponse
	decodeEnvelope(t, apiRequest(t, h, http.MethodGet, "/api/events/1/", "", ""), &e)
	assert.Empty(t, e.Members)

	rr = apiRequest(t, h, http.MethodPut, "/api/events/leave/42/", bob, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLeaveKeepsOtherMembers(t *testing.T) {
	app, _ := newTestApplication(t)
	h := app.routes()

	alice := registerToken(t, h, "alice", "pw1")
	bob := registerToken(t, h, "bob", "pw2")
	carol := registerToken(t, h, "carol", "pw3")
	require.Equal(t, http.StatusCreated,
		apiRequest(t, h, http.MethodPost, "/api/events/create/", alice, `{"title":"Run","text":"Morning run"}`).Code)

	var bobProfile, carolProfile userResponse
	decodeEnvelope(t, apiRequest(t, h, http.MethodGet, "/api/users/profile/", bob, ""), &bobProfile)
	decodeEnvelope(t, apiRequest(t, h, http.MethodGet, "/api/users/profile/", carol, ""), &carolProfile)

	require.Equal(t, http.StatusOK, apiRequest(t, h, http.MethodPut, "/api/events/join/1/", bob, "").Code)
	require.Equal(t, http.StatusOK, apiRequest(t, h, http.MethodPut, "/api/events/join/1/", carol, "").Code)
	require.Equal(t, http.StatusOK, apiRequest(t, h, http.MethodPut, "/api/events/leave/1/", bob, "").Code)

	var e eventResponse
	decodeEnvelope(t, apiRequest(t, h, http.MethodGet, "/api/events/1/", "", ""), &e)
	assert.Equal(t, []int64{carolProfile.ID}, e.Members)

	var members []userResponse
	decodeEnvelope(t, apiRequest(t, h, http.MethodGet, "/api/events/1/members/", "", ""), &members)
	require.Len(t, members, 1)
	assert.Equal(t, carolProfile.ID, members[0].ID)
	assert.NotEqual(t, bobProfile.ID, members[0].ID)
}

func TestCreatorIsNotAMemberByDefault(t *testing.T) {
	app, _ := newTestApplication(t)
	h := app.routes()

	alice := registerToken(t, h, "alice", "pw1")
	require.Equal(t, http.StatusCreated,
		apiRequest(t, h, http.MethodPost, "/api/events/create/", alice, `{"title":"Run","text":"Morning run"}`).Code)

	assert.Equal(t, http.StatusOK, apiRequest(t, h, http.MethodPut, "/api/events/join/1/", alice, "").Code)

	var members []userResponse
	decodeEnvelope(t, apiRequest(t, h, http.MethodGet, "/api/events/1/members/", "", ""), &members)
	require.Len(t, members, 1)
	assert.Equal(t, "alice", members[0].Username)
}

func TestCreateEvent(t *testing.T) {
	app, _ := newTestApplication(t)
	h := app.routes()
	alice := registerToken(t, h, "alice", "pw1")

	tests := []struct {
		name           string
		token          string
		body           string
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:           "anonymous",
			body:           `{"title":"Run","text":"Morning run"}`,
			expectedStatus: http.StatusUnauthorized,
			expectedMsg:    "authentication credentials were not provided or are invalid",
		},
		{
			name:           "creator cannot be supplied",
			token:          alice,
			body:           `{"title":"Run","text":"Morning run","creator":7}`,
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    `validation failed: body contains unknown key "creator"`,
		},
		{
			name:           "missing title",
			token:          alice,
			body:           `{"text":"Morning run"}`,
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    `validation failed: title failed the "required" rule`,
		},
		{
			name:           "title made only of whitespace",
			token:          alice,
			body:           `{"title":"   ","text":"Morning run"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "title stored as typed",
			token:          alice,
			body:           `{"title":"  x<y and y>z ","text":"Morning <b>run</b>"}`,
			expectedStatus: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := apiRequest(t, h, http.MethodPost, "/api/events/create/", tt.token, tt.body)
			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())

			if tt.expectedStatus == http.StatusCreated {
				var e eventResponse
				decodeEnvelope(t, rr, &e)
				assert.Equal(t, "x<y and y>z", e.Title)
				assert.Equal(t, "Morning <b>run</b>", e.Text)
				return
			}
			env := decodeEnvelope(t, rr, nil)
			assert.Equal(t, "fail", env.Status)
			if tt.expectedMsg != "" {
				assert.Equal(t, tt.expectedMsg, env.Message)
			}
		})
	}
}

func TestTokenAuthentication(t *testing.T) {
	app, _ := newTestApplication(t)
	h := app.routes()
	alice := registerToken(t, h, "alice", "pw1")

	tests := []struct {
		name           string
		header         string
		expectedStatus int
	}{
		{name: "token scheme", header: "Token " + alice, expectedStatus: http.StatusOK},
		{name: "bearer scheme", header: "Bearer " + alice, expectedStatus: http.StatusOK},
		{name: "lower case scheme", header: "bearer " + alice, expectedStatus: http.StatusOK},
		{name: "missing", header: "", expectedStatus: http.StatusUnauthorized},
		{name: "unknown token", header: "Token nope", expectedStatus: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic YWxpY2U6cHcx", expectedStatus: http.StatusUnauthorized},
		{name: "no key", header: "Token", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users/profile/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
			if rr.Code == http.StatusUnauthorized {
				assert.Equal(t, "Token", rr.Header().Get("WWW-Authenticate"))
			}
		})
	}

	t.Run("invalid token on a public route", func(t *testing.T) {
		rr := apiRequest(t, h, http.MethodGet, "/api/events/list/", "nope", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestRegisterAndLogin(t *testing.T) {
	app, _ := newTestApplication(t)
	h := app.routes()

	token := registerToken(t, h, "alice", "pw1")

	t.Run("duplicate username", func(t *testing.T) {
		rr := apiRequest(t, h, http.MethodPost, "/api/users/register/", "",
			`{"username":"alice","password":"other","firstName":"A","lastName":"B"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "a user with that username already exists", decodeEnvelope(t, rr, nil).Message)
	})

	t.Run("bad birth date", func(t *testing.T) {
		rr := apiRequest(t, h, http.MethodPost, "/api/users/register/", "",
			`{"username":"carol","password":"pw","firstName":"C","lastName":"D","birthDate":"31/12/1990"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decodeEnvelope(t, rr, nil).Message, "YYYY-MM-DD")
	})

	t.Run("birth date round trip", func(t *testing.T) {
		rr := apiRequest(t, h, http.MethodPost, "/api/users/register/", "",
			`{"username":"dave","password":"pw","firstName":"Dave","lastName":"E","birthDate":"1990-12-31"}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var tok tokenResponse
		decodeEnvelope(t, rr, &tok)

		var u userResponse
		decodeEnvelope(t, apiRequest(t, h, http.MethodGet, "/api/users/profile/", tok.Token, ""), &u)
		require.NotNil(t, u.BirthDate)
		assert.Equal(t, "1990-12-31", *u.BirthDate)
	})

	t.Run("login returns the same token", func(t *testing.T) {
		rr := apiRequest(t, h, http.MethodPost, "/api/users/login/", "", `{"username":"alice","password":"pw1"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		var tok tokenResponse
		decodeEnvelope(t, rr, &tok)
		assert.Equal(t, token, tok.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		rr := apiRequest(t, h, http.MethodPost, "/api/users/login/", "", `{"username":"alice","password":"pw2"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "invalid credentials", decodeEnvelope(t, rr, nil).Message)
	})

	t.Run("unknown user", func(t *testing.T) {
		rr := apiRequest(t, h, http.MethodPost, "/api/users/login/", "", `{"username":"zed","password":"pw1"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "invalid credentials", decodeEnvelope(t, rr, nil).Message)
	})

	t.Run("profile never exposes the password", func(t *testing.T) {
		rr := apiRequest(t, h, http.MethodGet, "/api/users/profile/", token, "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.NotContains(t, rr.Body.String(), "password")

		var u userResponse
		decodeEnvelope(t, rr, &u)
		assert.Equal(t, "alice", u.Username)
		assert.True(t, u.IsActive)
		assert.False(t, u.IsStaff)
		assert.Nil(t, u.BirthDate)
	})
}

func TestListEvents(t *testing.T) {
	app, _ := newTestApplication(t)
	h := app.routes()
	alice := registerToken(t, h, "alice", "pw1")

	for i := 1; i <= 12; i++ {
		body := fmt.Sprintf(`{"title":"Event %d","text":"Text %d"}`, i, i)
		require.Equal(t, http.StatusCreated, apiRequest(t, h, http.MethodPost, "/api/events/create/", alice, body).Code)
	}

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedLen    int
	}{
		{name: "all", path: "/api/events/list/", expectedStatus: http.StatusOK, expectedLen: 12},
		{name: "without trailing slash", path: "/api/events/list", expectedStatus: http.StatusOK, expectedLen: 12},
		{name: "filtered", path: "/api/events/list/?title=Event%202", expectedStatus: http.StatusOK, expectedLen: 1},
		{name: "filter without paging", path: "/api/events/list/?creator=1", expectedStatus: http.StatusOK, expectedLen: 12},
		{name: "limited", path: "/api/events/list/?limit=2", expectedStatus: http.StatusOK, expectedLen: 2},
		{name: "unknown filter", path: "/api/events/list/?venue=park", expectedStatus: http.StatusBadRequest},
		{name: "malformed filter value", path: "/api/events/list/?creator=alice", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := apiRequest(t, h, http.MethodGet, tt.path, "", "")
			require.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var events []eventResponse
			decodeEnvelope(t, rr, &events)
			assert.Len(t, events, tt.expectedLen)
		})
	}
}

func TestEventLookupErrors(t *testing.T) {
	app, _ := newTestApplication(t)
	h := app.routes()

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{name: "unknown event", method: http.MethodGet, path: "/api/events/9/", expectedStatus: http.StatusNotFound},
		{name: "non numeric id", method: http.MethodGet, path: "/api/events/abc/", expectedStatus: http.StatusNotFound},
		{name: "members of unknown event", method: http.MethodGet, path: "/api/events/9/members/", expectedStatus: http.StatusNotFound},
		{name: "unknown route", method: http.MethodGet, path: "/api/nothing/here/", expectedStatus: http.StatusNotFound},
		{name: "wrong method", method: http.MethodPost, path: "/api/events/list/", expectedStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := apiRequest(t, h, tt.method, tt.path, "", "")
			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, "fail", decodeEnvelope(t, rr, nil).Status)
		})
	}
}

func TestStoreFailureIsHidden(t *testing.T) {
	app, store := newTestApplication(t)
	h := app.routes()
	store.failWith = errors.New("dial tcp 10.0.0.5:5432: connection refused")

	rr := apiRequest(t, h, http.MethodGet, "/api/events/list/", "", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	env := decodeEnvelope(t, rr, nil)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, errInternal.Error(), env.Message)
	assert.NotContains(t, rr.Body.String(), "10.0.0.5")
}

func TestMetricsEndpoint(t *testing.T) {
	app, _ := newTestApplication(t)
	h := app.routes()

	apiRequest(t, h, http.MethodGet, "/api/events/list/", "", "")
	rr := apiRequest(t, h, http.MethodGet, "/metrics", "", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "events_calendar_http_requests_total")
	assert.Contains(t, rr.Body.String(), `route="/api/events/list"`)
}
