package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(router http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestSignup(t *testing.T) {
	router, _, codec := setupTestRouter(t)

	w := postJSON(router, "/signup", `{
		"firstname": "Ada",
		"lastname": "Lovelace",
		"username": "ada",
		"email": "ada@example.com",
		"password": "longenough"
	}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	// The issued token must verify and carry the username claim.
	username, err := codec.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "ada", username)
}

func TestSignup_FieldErrors(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	w := postJSON(router, "/signup", `{"username":"ada","email":"bad","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "errors")
}

func TestSignup_DuplicateEmail(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	body := `{"firstname":"Ada","lastname":"Lovelace","username":"ada","email":"ada@example.com","password":"longenough"}`
	w := postJSON(router, "/signup", body)
	require.Equal(t, http.StatusOK, w.Code)

	// Same email, different username.
	w = postJSON(router, "/signup", `{"firstname":"Eve","lastname":"Intruder","username":"eve","email":"ada@example.com","password":"longenough"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "email id already exists")
}

func TestLogin(t *testing.T) {
	router, db, codec := setupTestRouter(t)
	seedUser(t, db, "alice", "password123")

	t.Run("valid credentials return a token", func(t *testing.T) {
		w := postJSON(router, "/login", `{"username":"alice","password":"password123"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		username, err := codec.Verify(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "alice", username)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := postJSON(router, "/login", `{"username":"alice","password":"wrong"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid username or password")
	})

	t.Run("unknown username gets the same message", func(t *testing.T) {
		w := postJSON(router, "/login", `{"username":"mallory","password":"password123"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid username or password")
	})

	t.Run("missing fields", func(t *testing.T) {
		w := postJSON(router, "/login", `{"username":"alice"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
