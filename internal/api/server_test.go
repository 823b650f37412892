package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drive-go/internal/api"
	"drive-go/internal/auth"
	"drive-go/internal/drive"
	"drive-go/internal/model"
	"drive-go/internal/testutil"
)

type harness struct {
	env     *testutil.Env
	auth    *auth.JWTAuthenticator
	handler http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	env := testutil.NewEnv(t)
	authn := auth.NewJWTAuthenticator([]byte("0123456789abcdef0123"), "drive", time.Hour, env.Clock)
	srv := api.NewServer(env.Service, authn, drive.NewNopLogger(), api.Options{MaxUploadBytes: 1 << 20})
	return &harness{env: env, auth: authn, handler: srv}
}

func (h *harness) token(t *testing.T, user *model.User) string {
	t.Helper()

	token, err := h.auth.IssueToken(user.ID, 0)
	require.NoError(t, err)
	return token
}

func (h *harness) serve(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) do(t *testing.T, method, target string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return h.serve(req, token)
}

func (h *harness) upload(t *testing.T, token, dirPath, name, content string, isPublic bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("dirPath", dirPath))
	if isPublic {
		require.NoError(t, mw.WriteField("isPublic", "true"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/file/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return h.serve(req, token)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int) errorResponse {
	t.Helper()

	require.Equal(t, status, rec.Code, "body: %s", rec.Body.String())
	body := decode[errorResponse](t, rec)
	assert.Equal(t, status, body.StatusCode)
	assert.NotEmpty(t, body.Message)
	return body
}

func TestServer_Authentication(t *testing.T) {
	h := newHarness(t)

	t.Run("missing token on a user route", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/file/get-dir-list", nil, "")
		assertError(t, rec, http.StatusUnauthorized)
	})

	t.Run("malformed token", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/file/get-dir-list", nil, "not-a-jwt")
		assertError(t, rec, http.StatusUnauthorized)
	})

	t.Run("expired token", func(t *testing.T) {
		user := h.env.CreateUser(t, "late@example.com")
		token, err := h.auth.IssueToken(user.ID, time.Minute)
		require.NoError(t, err)
		h.env.Clock.Advance(2 * time.Minute)
		t.Cleanup(func() { h.env.Clock.Advance(-2 * time.Minute) })

		rec := h.do(t, http.MethodGet, "/users/me", nil, token)
		assertError(t, rec, http.StatusUnauthorized)
	})

	t.Run("unknown route", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/nope", nil, "")
		assertError(t, rec, http.StatusNotFound)
	})
}

func TestServer_Files(t *testing.T) {
	h := newHarness(t)
	owner := h.env.CreateUser(t, "owner@example.com")
	token := h.token(t, owner)

	rec := h.do(t, http.MethodPost, "/file/create-directory", map[string]any{"name": "docs", "dirPath": "/"}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	docs := decode[model.Entry](t, rec)
	assert.Equal(t, "docs", docs.Name)
	assert.Equal(t, model.KindDirectory, docs.Kind)

	rec = h.upload(t, token, "/docs", "notes.txt", "hello world", false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	file := decode[model.Entry](t, rec)
	require.NotNil(t, file.Size)
	assert.EqualValues(t, 11, *file.Size)

	t.Run("duplicate directory", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/file/create-directory", map[string]any{"name": "docs"}, token)
		assertError(t, rec, http.StatusConflict)
	})

	t.Run("missing name", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/file/create-directory", map[string]any{"dirPath": "/"}, token)
		body := assertError(t, rec, http.StatusBadRequest)
		assert.Contains(t, body.Message, "name")
	})

	t.Run("list directory", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/file/get-dir-list?dir_path=/docs&page=1&pageSize=5", nil, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		page := decode[model.Page](t, rec)
		require.Len(t, page.Items, 1)
		assert.Equal(t, file.ID, page.Items[0].ID)
		assert.EqualValues(t, 1, page.Total)
	})

	t.Run("bad page number", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/file/get-dir-list?page=two", nil, token)
		assertError(t, rec, http.StatusBadRequest)
	})

	t.Run("download", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/file/download/"+file.ID, nil, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "hello world", rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
		assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename=notes.txt`)
	})

	t.Run("anonymous download of a private file", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/file/download/"+file.ID, nil, "")
		assertError(t, rec, http.StatusForbidden)
	})

	t.Run("download of a directory", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/file/download/"+docs.ID, nil, token)
		assertError(t, rec, http.StatusBadRequest)
	})

	t.Run("rename", func(t *testing.T) {
		rec := h.do(t, http.MethodPut, "/file/update", map[string]any{"id": file.ID, "name": "renamed.txt"}, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "renamed.txt", decode[model.Entry](t, rec).Name)
	})

	t.Run("update without fields", func(t *testing.T) {
		rec := h.do(t, http.MethodPut, "/file/update", map[string]any{"id": file.ID}, token)
		assertError(t, rec, http.StatusBadRequest)
	})

	t.Run("update of an unknown entry", func(t *testing.T) {
		rec := h.do(t, http.MethodPut, "/file/update", map[string]any{"id": "missing", "name": "x"}, token)
		assertError(t, rec, http.StatusNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		rec := h.do(t, http.MethodDelete, "/file/delete", map[string]any{"id": docs.ID}, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.NotEmpty(t, decode[map[string]string](t, rec)["message"])

		rec = h.do(t, http.MethodGet, "/file/download/"+file.ID, nil, token)
		assertError(t, rec, http.StatusNotFound)
	})
}

func TestServer_Upload(t *testing.T) {
	t.Run("file field is required", func(t *testing.T) {
		h := newHarness(t)
		token := h.token(t, h.env.CreateUser(t, "owner@example.com"))

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("dirPath", "/"))
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/file/upload", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		assertError(t, h.serve(req, token), http.StatusBadRequest)
	})

	t.Run("too large", func(t *testing.T) {
		h := newHarness(t)
		token := h.token(t, h.env.CreateUser(t, "owner@example.com"))

		rec := h.upload(t, token, "/", "big.bin", string(make([]byte, 2<<20)), false)
		assertError(t, rec, http.StatusRequestEntityTooLarge)
	})

	t.Run("public upload is downloadable anonymously", func(t *testing.T) {
		h := newHarness(t)
		token := h.token(t, h.env.CreateUser(t, "owner@example.com"))

		rec := h.upload(t, token, "/", "pub.txt", "open", true)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		entry := decode[model.Entry](t, rec)
		assert.True(t, entry.IsPublic)

		rec = h.do(t, http.MethodGet, "/file/download/"+entry.ID, nil, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "open", rec.Body.String())
	})
}

func TestServer_Sharing(t *testing.T) {
	h := newHarness(t)
	owner := h.env.CreateUser(t, "owner@example.com")
	bob := h.env.CreateUser(t, "bob@example.com")
	ownerToken := h.token(t, owner)
	bobToken := h.token(t, bob)

	rec := h.do(t, http.MethodPost, "/file/create-directory", map[string]any{"name": "docs"}, ownerToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	docs := decode[model.Entry](t, rec)
	rec = h.upload(t, ownerToken, "/docs", "report.pdf", "%PDF", false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	report := decode[model.Entry](t, rec)

	t.Run("non-grantee is forbidden", func(t *testing.T) {
		rec := h.do(t, http.MethodPut, "/file/update", map[string]any{"id": report.ID, "name": "x.pdf"}, bobToken)
		assertError(t, rec, http.StatusForbidden)
	})

	t.Run("share with an unknown user", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/file/share", map[string]any{
			"fileId":              docs.ID,
			"usersAndPermissions": []map[string]string{{"user": "ghost@x.com", "permission": "READ"}},
		}, ownerToken)
		body := assertError(t, rec, http.StatusNotFound)
		assert.Contains(t, body.Message, "ghost@x.com")
	})

	t.Run("share with an invalid email", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/file/share", map[string]any{
			"fileId":              docs.ID,
			"usersAndPermissions": []map[string]string{{"user": "nope", "permission": "READ"}},
		}, ownerToken)
		body := assertError(t, rec, http.StatusBadRequest)
		assert.Contains(t, body.Message, "user")
	})

	t.Run("share grants write", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/file/share", map[string]any{
			"fileId":              docs.ID,
			"usersAndPermissions": []map[string]string{{"user": bob.Email, "permission": "WRITE"}},
		}, ownerToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		res := decode[drive.ShareResult](t, rec)
		require.NotNil(t, res.Link)
		assert.Equal(t, model.Write, res.Link.Permission)
		assert.Len(t, h.env.Notifier.Sent(), 1)
	})

	t.Run("grantee renames but cannot delete", func(t *testing.T) {
		rec := h.do(t, http.MethodPut, "/file/update", map[string]any{"id": report.ID, "name": "final.pdf"}, bobToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = h.do(t, http.MethodDelete, "/file/delete", map[string]any{"id": report.ID}, bobToken)
		assertError(t, rec, http.StatusForbidden)
	})

	t.Run("grantee cannot change visibility", func(t *testing.T) {
		rec := h.do(t, http.MethodPut, "/file/update", map[string]any{"id": docs.ID, "isPublic": true}, bobToken)
		assertError(t, rec, http.StatusForbidden)

		rec = h.do(t, http.MethodGet, "/file/download/"+report.ID, nil, "")
		assertError(t, rec, http.StatusForbidden)
	})

	t.Run("shared users", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/file/shared-users/"+docs.ID, nil, bobToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		grants := decode[[]model.Grant](t, rec)
		require.Len(t, grants, 2)
		for _, g := range grants {
			assert.Equal(t, bob.ID, g.UserID)
		}
	})

	t.Run("grantee cannot share", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/file/share", map[string]any{"fileId": docs.ID}, bobToken)
		assertError(t, rec, http.StatusNotFound)
	})

	t.Run("update share drops grants", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/file/update-share", map[string]any{
			"fileId":              docs.ID,
			"isPublic":            false,
			"usersAndPermissions": []map[string]string{},
		}, ownerToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = h.do(t, http.MethodGet, "/file/shared-users/"+docs.ID, nil, ownerToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Empty(t, decode[[]model.Grant](t, rec))
	})
}

func TestServer_BodyTarget(t *testing.T) {
	h := newHarness(t)
	mallory := h.env.CreateUser(t, "mallory@example.com")
	victim := h.env.CreateUser(t, "victim@example.com")
	malloryToken := h.token(t, mallory)
	victimToken := h.token(t, victim)

	rec := h.do(t, http.MethodPost, "/file/create-directory", map[string]any{"name": "mine"}, malloryToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	mine := decode[model.Entry](t, rec)
	rec = h.upload(t, victimToken, "/", "secret.txt", "top secret", false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	secret := decode[model.Entry](t, rec)

	t.Run("update naming two entries", func(t *testing.T) {
		rec := h.do(t, http.MethodPut, "/file/update", map[string]any{
			"fileId": mine.ID,
			"id":     secret.ID,
			"name":   "pwned.txt",
		}, malloryToken)
		assertError(t, rec, http.StatusBadRequest)

		got, err := h.env.Service.GetEntry(context.Background(), secret.ID)
		require.NoError(t, err)
		assert.Equal(t, "secret.txt", got.Name)
	})

	t.Run("delete naming two entries", func(t *testing.T) {
		rec := h.do(t, http.MethodDelete, "/file/delete", map[string]any{
			"fileId": mine.ID,
			"id":     secret.ID,
		}, malloryToken)
		assertError(t, rec, http.StatusBadRequest)

		got, err := h.env.Service.GetEntry(context.Background(), secret.ID)
		require.NoError(t, err)
		assert.Equal(t, secret.ID, got.ID)
	})

	t.Run("revoke naming two entries", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/file/revoke-share-link", map[string]any{
			"fileId": mine.ID,
			"id":     secret.ID,
		}, malloryToken)
		assertError(t, rec, http.StatusBadRequest)
	})

	t.Run("both fields naming the same entry", func(t *testing.T) {
		rec := h.do(t, http.MethodPut, "/file/update", map[string]any{
			"fileId": mine.ID,
			"id":     mine.ID,
			"name":   "ours",
		}, malloryToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "ours", decode[model.Entry](t, rec).Name)
	})
}

func TestServer_Links(t *testing.T) {
	h := newHarness(t)
	owner := h.env.CreateUser(t, "owner@example.com")
	token := h.token(t, owner)

	rec := h.upload(t, token, "/", "a.txt", "hello", false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	entry := decode[model.Entry](t, rec)

	rec = h.do(t, http.MethodPost, "/file/generate-share-link", map[string]any{"id": entry.ID}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	link := decode[drive.ShareLink](t, rec)
	assert.Equal(t, model.Read, link.Permission)
	assert.Contains(t, link.URL, testutil.ClientURL+"/panel?")

	t.Run("generate is idempotent", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/file/generate-share-link", map[string]any{
			"id": entry.ID, "permissions": []string{"WRITE"}, "isPublic": true,
		}, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		again := decode[drive.ShareLink](t, rec)
		assert.Equal(t, link.Token, again.Token)
		assert.Equal(t, model.Write, again.Permission)
	})

	t.Run("unknown permission", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/file/generate-share-link", map[string]any{
			"id": entry.ID, "permissions": []string{"ADMIN"},
		}, token)
		assertError(t, rec, http.StatusBadRequest)
	})

	t.Run("anonymous opens a public link", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/file/shared?link="+link.Token, nil, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		page := decode[model.Page](t, rec)
		require.Len(t, page.Items, 1)
		assert.Equal(t, entry.ID, page.Items[0].ID)
	})

	t.Run("shared requires a link", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/file/shared", nil, "")
		assertError(t, rec, http.StatusBadRequest)
	})

	t.Run("revoke", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/file/revoke-share-link", map[string]any{"id": entry.ID}, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = h.do(t, http.MethodGet, "/file/shared?link="+link.Token, nil, "")
		assertError(t, rec, http.StatusNotFound)
	})
}

func TestServer_Catalogs(t *testing.T) {
	h := newHarness(t)
	ada := h.env.CreateUser(t, "ada@example.com")
	bob := h.env.CreateUser(t, "bob@example.com")
	token := h.token(t, ada)

	t.Run("permissions list", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/file/permissions-list", nil, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var names []model.Permission
		for _, item := range decode[[]map[string]model.Permission](t, rec) {
			names = append(names, item["name"])
		}
		assert.Equal(t, model.AllPermissions, names)
	})

	t.Run("me", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/users/me", nil, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, ada.Email, decode[model.User](t, rec).Email)
	})

	t.Run("users excludes the caller", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/users", nil, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		users := decode[[]model.User](t, rec)
		require.Len(t, users, 1)
		assert.Equal(t, bob.ID, users[0].ID)
	})

	t.Run("user by id", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/users/"+bob.ID, nil, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, bob.Email, decode[model.User](t, rec).Email)

		rec = h.do(t, http.MethodGet, "/users/missing", nil, token)
		assertError(t, rec, http.StatusNotFound)
	})
}

func TestServer_ListenAndServe(t *testing.T) {
	h := newHarness(t)
	srv := api.NewServer(h.env.Service, h.auth, drive.NewNopLogger(), api.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.ListenAndServe(ctx, "127.0.0.1:0", time.Second)
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe() did not return after cancel")
	}
}
