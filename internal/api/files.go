package api

import (
	"errors"
	"mime"
	"net/http"
	"path"
	"strconv"

	"drive-go/internal/drive"
	"drive-go/internal/model"
)

type shareRequest struct {
	FileID              string                 `json:"fileId" validate:"required"`
	IsPublic            bool                   `json:"isPublic"`
	UsersAndPermissions []drive.UserPermission `json:"usersAndPermissions" validate:"dive"`
}

type linkRequest struct {
	ID          string   `json:"id" validate:"required"`
	Permissions []string `json:"permissions"`
	IsPublic    *bool    `json:"isPublic"`
}

type createDirectoryRequest struct {
	Name     string `json:"name" validate:"required"`
	DirPath  string `json:"dirPath"`
	IsPublic bool   `json:"isPublic"`
}

type updateRequest struct {
	ID       string  `json:"id" validate:"required"`
	Name     *string `json:"name"`
	DirPath  *string `json:"dirPath"`
	IsPublic *bool   `json:"isPublic"`
}

type idRequest struct {
	ID string `json:"id" validate:"required"`
}

type permissionItem struct {
	Name model.Permission `json:"name"`
}

// handleShared lists what a link points at. No login is needed for public
// entries.
func (s *Server) handleShared(w http.ResponseWriter, r *http.Request) {
	q, err := listQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if q.Link == "" {
		s.writeError(w, r, badRequestf("link is required"))
		return
	}

	page, err := s.service.ListEntries(r.Context(), principalFrom(r.Context()), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleSharedUsers(w http.ResponseWriter, r *http.Request) {
	entry := entryFrom(r.Context())
	grants, err := s.service.GetGrantsForEntry(r.Context(), entry.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, grants)
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.service.ShareEntry(r.Context(), principalFrom(r.Context()), req.FileID, req.IsPublic, req.UsersAndPermissions)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleUpdateShare(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	id, err := guardedID(r, req.FileID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	msg, err := s.service.UpdateSharedEntry(r.Context(), principalFrom(r.Context()), id, req.IsPublic, req.UsersAndPermissions)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: msg})
}

func (s *Server) handleDirList(w http.ResponseWriter, r *http.Request) {
	q, err := listQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	page, err := s.service.ListEntries(r.Context(), principalFrom(r.Context()), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGenerateLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	id, err := guardedID(r, req.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	perms := make([]model.Permission, 0, len(req.Permissions))
	for _, name := range req.Permissions {
		p, err := model.ParsePermission(name)
		if err != nil {
			s.writeError(w, r, badRequestf("%v", err))
			return
		}
		perms = append(perms, p)
	}
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	link, err := s.service.GenerateShareableLink(r.Context(), principalFrom(r.Context()), id, perms, isPublic)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (s *Server) handleRevokeLink(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	id, err := guardedID(r, req.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	msg, err := s.service.RevokeShareableLink(r.Context(), principalFrom(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: msg})
}

func (s *Server) handlePermissionsList(w http.ResponseWriter, r *http.Request) {
	perms, err := s.service.ListPermissionKinds(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	items := make([]permissionItem, 0, len(perms))
	for _, p := range perms {
		items = append(items, permissionItem{Name: p})
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateDirectory(w http.ResponseWriter, r *http.Request) {
	var req createDirectoryRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	entry, err := s.service.CreateDirectory(r.Context(), principalFrom(r.Context()), req.Name, req.DirPath, req.IsPublic)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// uploadMemory is how much of a multipart form is held in memory before
// spilling to temporary files.
const uploadMemory = 32 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
				StatusCode: http.StatusRequestEntityTooLarge,
				Message:    "file too large",
			})
			return
		}
		s.writeError(w, r, badRequestf("invalid multipart form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, badRequestf("file is required"))
		return
	}
	defer file.Close()

	isPublic := r.FormValue("isPublic") == "true"
	name := path.Base(header.Filename)

	entry, err := s.service.UploadFile(r.Context(), principalFrom(r.Context()), file, header.Size, name, r.FormValue("dirPath"), isPublic)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	id, err := guardedID(r, req.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	entry, err := s.service.UpdateEntry(r.Context(), principalFrom(r.Context()), id, drive.EntryUpdate{
		Name:     req.Name,
		DirPath:  req.DirPath,
		IsPublic: req.IsPublic,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	id, err := guardedID(r, req.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	msg, err := s.service.DeleteEntry(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: msg})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	entry := entryFrom(r.Context())
	if entry.IsDir() {
		s.writeError(w, r, badRequestf("cannot download a directory"))
		return
	}

	contentType := mime.TypeByExtension(path.Ext(entry.Name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": entry.Name}))
	if entry.Size != nil {
		w.Header().Set("Content-Length", strconv.FormatInt(*entry.Size, 10))
	}

	if err := s.service.ReadFile(r.Context(), entry, w); err != nil {
		w.Header().Del("Content-Disposition")
		w.Header().Del("Content-Length")
		s.writeError(w, r, err)
	}
}

// listQuery reads the listing parameters shared by the list routes.
func listQuery(r *http.Request) (drive.ListQuery, error) {
	v := r.URL.Query()
	q := drive.ListQuery{
		DirPath: v.Get("dir_path"),
		Search:  v.Get("search"),
		Link:    v.Get("link"),
	}

	var err error
	if q.Page, err = intParam(v.Get("page"), "page"); err != nil {
		return q, err
	}
	if q.PageSize, err = intParam(v.Get("pageSize"), "pageSize"); err != nil {
		return q, err
	}
	return q, nil
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequestf("%s must be a number", name)
	}
	return n, nil
}
