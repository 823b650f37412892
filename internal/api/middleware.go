package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"drive-go/internal/drive"
	"drive-go/internal/model"
)

type contextKey int

const (
	principalKey contextKey = iota
	entryKey
)

// maxGuardBody bounds how much of a JSON body the permission guard buffers.
const maxGuardBody = 1 << 20

func principalFrom(ctx context.Context) string {
	p, _ := ctx.Value(principalKey).(string)
	return p
}

// entryFrom returns the entry the permission guard authorized, if any.
func entryFrom(ctx context.Context) *model.Entry {
	e, _ := ctx.Value(entryKey).(*model.Entry)
	return e
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
		)
	})
}

// authenticate attaches the request's principal to its context. A request
// without credentials continues as drive.Anonymous; a bad token is rejected.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := s.auth.Authenticate(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if principalFrom(r.Context()) == drive.Anonymous {
			writeJSON(w, http.StatusUnauthorized, errorBody{StatusCode: http.StatusUnauthorized, Message: "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requirePermission checks perm against the entry the request targets. The
// target comes from the fileId path variable, then a fileId or id field of a
// JSON body, then the link query parameter. A body whose fileId and id
// disagree is rejected. Requests naming no target pass through; handlers
// that change an entry act only on the one stored by this guard.
func (s *Server) requirePermission(perm model.Permission, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		principal := principalFrom(ctx)

		id, err := targetID(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		var entry *model.Entry
		switch link := r.URL.Query().Get("link"); {
		case id != "":
			entry, err = s.service.Require(ctx, principal, id, perm)
		case link != "":
			entry, err = s.service.AuthorizeLink(ctx, principal, link, perm)
		default:
			next(w, r)
			return
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		next(w, r.WithContext(context.WithValue(ctx, entryKey, entry)))
	})
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}

// targetID finds the entry id a request refers to. A JSON body is read and
// restored so handlers can decode it again.
func targetID(r *http.Request) (string, error) {
	if id := mux.Vars(r)["fileId"]; id != "" {
		return id, nil
	}
	if r.Body == nil || r.Body == http.NoBody || isMultipart(r) {
		return "", nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxGuardBody))
	r.Body.Close()
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var ref struct {
		FileID string `json:"fileId"`
		ID     string `json:"id"`
	}
	if len(bytes.TrimSpace(body)) == 0 || json.Unmarshal(body, &ref) != nil {
		// Malformed bodies are reported by the handler's own decode.
		return "", nil
	}
	if ref.FileID != "" && ref.ID != "" && ref.FileID != ref.ID {
		return "", badRequestf("fileId and id name different entries")
	}
	if ref.FileID != "" {
		return ref.FileID, nil
	}
	return ref.ID, nil
}

// guardedID returns the id of the entry requirePermission authorized. The
// id a handler decoded from the body must be that same entry.
func guardedID(r *http.Request, bodyID string) (string, error) {
	entry := entryFrom(r.Context())
	if entry == nil || entry.ID != bodyID {
		return "", badRequestf("request does not name an authorized entry")
	}
	return entry.ID, nil
}
