package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"homeportal/internal/ratelimit"
	"homeportal/internal/util"
	"homeportal/pkg/domain"
	"homeportal/pkg/storage"
	"homeportal/pkg/store"
	"homeportal/pkg/submit"
	"homeportal/services/listing/internal/app"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	Limiter        *ratelimit.FixedWindowLimiter
	MaxUploadBytes int64
}

// Server exposes HTTP endpoints for the listing service.
type Server struct {
	app            *app.App
	limiter        *ratelimit.FixedWindowLimiter
	mux            *http.ServeMux
	maxUploadBytes int64
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		// Photo limit plus form field headroom.
		maxUploadBytes = int64(submit.MaxPhotos)*submit.MaxFileBytes + 1<<20
	}
	s := &Server{
		app:            cfg.App,
		limiter:        cfg.Limiter,
		mux:            http.NewServeMux(),
		maxUploadBytes: maxUploadBytes,
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("listing", util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// listings
	s.mux.HandleFunc("/listings", s.handleListings)
	s.mux.HandleFunc("/listings/", s.handleListingByID)
	s.mux.Handle("/my/listings", s.withUser(s.handleMyListings))

	// saved listings
	s.mux.Handle("/saved", s.withUser(s.handleSavedList))
	s.mux.Handle("/saved/", s.withUser(s.handleSavedByID))

	// assist
	s.mux.Handle("/ai/property-qa", s.withUser(s.rateLimited(s.handlePropertyQA)))
	s.mux.Handle("/ai/dream-home", s.withUser(s.rateLimited(s.handleDreamHome)))
	s.mux.Handle("/ai/interior-redesign", s.withUser(s.rateLimited(s.handleInteriorRedesign)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userHandler func(http.ResponseWriter, *http.Request, domain.Identity)

func (s *Server) withUser(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		identity, err := s.app.VerifyUser(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, identity)
	})
}

func (s *Server) rateLimited(next userHandler) userHandler {
	return func(w http.ResponseWriter, r *http.Request, user domain.Identity) {
		if s.limiter != nil && !s.limiter.Allow(user.UserID) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r, user)
	}
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.withUser(s.rateLimited(s.handleSubmit)).ServeHTTP(w, r)
	case http.MethodGet:
		s.handleSearch(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, _ domain.Identity) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	form, err := listingFormFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var files []storage.FileUpload
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["photos"] {
			file, err := readUpload(header)
			if err != nil {
				writeError(w, http.StatusBadRequest, "could not read photo "+header.Filename)
				return
			}
			files = append(files, file)
		}
	}
	token, _ := bearerToken(r)

	res, err := s.app.SubmitListing(r.Context(), submit.Request{
		Form:       form,
		Files:      files,
		Credential: token,
	})
	if err != nil {
		writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res.Listing)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	listings, err := s.app.SearchListings(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": listings,
		"count": len(listings),
	})
}

// /listings/{id}
func (s *Server) handleListingByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/listings/")
	if id == "" || strings.Contains(id, "/") {
		notFound(w, "not found")
		return
	}
	listing, ok, err := s.app.GetListing(r.Context(), id, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		notFound(w, "listing not found")
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) handleMyListings(w http.ResponseWriter, r *http.Request, user domain.Identity) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	listings, err := s.app.MyListings(r.Context(), user.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": listings,
		"count": len(listings),
	})
}

func (s *Server) handleSavedList(w http.ResponseWriter, r *http.Request, user domain.Identity) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	listings, err := s.app.SavedListings(r.Context(), user.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": listings,
		"count": len(listings),
	})
}

// /saved/{id}
func (s *Server) handleSavedByID(w http.ResponseWriter, r *http.Request, user domain.Identity) {
	id := strings.TrimPrefix(r.URL.Path, "/saved/")
	if id == "" || strings.Contains(id, "/") {
		notFound(w, "not found")
		return
	}
	switch r.Method {
	case http.MethodPut:
		err := s.app.SaveListing(r.Context(), user.UserID, id)
		if errors.Is(err, app.ErrListingNotFound) {
			notFound(w, "listing not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
	case http.MethodDelete:
		if err := s.app.UnsaveListing(r.Context(), user.UserID, id); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handlePropertyQA(w http.ResponseWriter, r *http.Request, _ domain.Identity) {
	assist := s.app.Assist()
	if assist == nil {
		writeError(w, http.StatusServiceUnavailable, "assist not configured")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	photo, mimeType, err := singlePhoto(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	question := r.FormValue("question")
	answer, err := assist.AnswerPropertyQuestion(r.Context(), photo, mimeType, question)
	if err != nil {
		writeError(w, http.StatusBadGateway, "assist request failed")
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleDreamHome(w http.ResponseWriter, r *http.Request, _ domain.Identity) {
	assist := s.app.Assist()
	if assist == nil {
		writeError(w, http.StatusServiceUnavailable, "assist not configured")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}
	result, err := assist.FindDreamHome(r.Context(), req.Description)
	if err != nil {
		writeError(w, http.StatusBadGateway, "assist request failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleInteriorRedesign(w http.ResponseWriter, r *http.Request, _ domain.Identity) {
	assist := s.app.Assist()
	if assist == nil {
		writeError(w, http.StatusServiceUnavailable, "assist not configured")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	photo, mimeType, err := singlePhoto(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	style := r.FormValue("style")
	if strings.TrimSpace(style) == "" {
		writeError(w, http.StatusBadRequest, "style is required")
		return
	}
	result, err := assist.DesignInterior(r.Context(), photo, mimeType, style, r.FormValue("prompt"))
	if err != nil {
		writeError(w, http.StatusBadGateway, "assist request failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func singlePhoto(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, submit.MaxFileBytes+1<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		return nil, "", errors.New("invalid form data")
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		return nil, "", errors.New("photo is required (field: photo)")
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, submit.MaxFileBytes+1))
	if err != nil {
		return nil, "", errors.New("could not read photo")
	}
	if len(data) > submit.MaxFileBytes {
		return nil, "", errors.New("photo is too large")
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return data, mimeType, nil
}

func readUpload(header *multipart.FileHeader) (storage.FileUpload, error) {
	file, err := header.Open()
	if err != nil {
		return storage.FileUpload{}, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return storage.FileUpload{}, err
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return storage.FileUpload{
		Name:        header.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

func listingFormFromRequest(r *http.Request) (domain.ListingForm, error) {
	form := domain.ListingForm{
		Title:        r.FormValue("title"),
		Description:  r.FormValue("description"),
		PropertyType: domain.PropertyType(r.FormValue("propertyType")),
		ListingType:  domain.ListingType(r.FormValue("listingType")),
		Location:     r.FormValue("location"),
	}
	var err error
	if v := r.FormValue("price"); v != "" {
		if form.Price, err = strconv.ParseFloat(v, 64); err != nil {
			return form, errors.New("price must be a number")
		}
	}
	if v := r.FormValue("area"); v != "" {
		if form.Area, err = strconv.ParseFloat(v, 64); err != nil {
			return form, errors.New("area must be a number")
		}
	}
	if v := r.FormValue("bedrooms"); v != "" {
		if form.Bedrooms, err = strconv.Atoi(v); err != nil {
			return form, errors.New("bedrooms must be an integer")
		}
	}
	if v := r.FormValue("bathrooms"); v != "" {
		if form.Bathrooms, err = strconv.Atoi(v); err != nil {
			return form, errors.New("bathrooms must be an integer")
		}
	}
	return form, nil
}

func filterFromQuery(r *http.Request) (store.Filter, error) {
	q := r.URL.Query()
	f := store.Filter{
		PropertyType: domain.PropertyType(q.Get("propertyType")),
		ListingType:  domain.ListingType(q.Get("listingType")),
		Keyword:      strings.TrimSpace(q.Get("q")),
	}
	if v := q.Get("minPrice"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, errors.New("minPrice must be a number")
		}
		f.MinPrice = &n
	}
	if v := q.Get("maxPrice"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, errors.New("maxPrice must be a number")
		}
		f.MaxPrice = &n
	}
	if v := q.Get("bedrooms"); v != "" {
		n, err := strconv.Atoi(strings.TrimSuffix(v, "+"))
		if err != nil {
			return f, errors.New("bedrooms must be an integer")
		}
		f.Bedrooms = &n
		// "4+" means at least four bedrooms.
		f.BedroomsAtLeast = strings.HasSuffix(v, "+")
	}
	if v := q.Get("featured"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, errors.New("featured must be a boolean")
		}
		f.Featured = &b
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errors.New("limit must be a non-negative integer")
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errors.New("offset must be a non-negative integer")
		}
		f.Offset = n
	}
	return f, nil
}

func writeSubmitError(w http.ResponseWriter, err error) {
	kind, _ := submit.KindOf(err)
	switch kind {
	case submit.KindValidation:
		writeError(w, http.StatusBadRequest, err.Error())
	case submit.KindAuthentication:
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case submit.KindUpload:
		writeError(w, http.StatusBadGateway, "photo upload failed")
	case submit.KindPersistence:
		writeError(w, http.StatusInternalServerError, "could not save the listing")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      errorCodeForListing(status, msg),
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

func errorCodeForListing(status int, msg string) string {
	message := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case message == "unauthorized":
		return "AUTH_INVALID_TOKEN"
	case message == "listing not found":
		return "LISTING_NOT_FOUND"
	case message == "rate limit exceeded":
		return "SYSTEM_RATE_LIMITED"
	case message == "photo upload failed":
		return "LISTING_UPLOAD_FAILED"
	case message == "could not save the listing":
		return "LISTING_PERSIST_FAILED"
	case message == "assist not configured":
		return "ASSIST_DISABLED"
	case message == "assist request failed":
		return "ASSIST_UPSTREAM_ERROR"
	case message == "invalid form data":
		return "LISTING_INVALID_UPLOAD_FORM"
	case message == "invalid json body":
		return "LISTING_INVALID_REQUEST"
	case message == "method not allowed":
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case message == "not found":
		return "SYSTEM_NOT_FOUND"
	}

	switch status {
	case http.StatusBadRequest:
		return "LISTING_INVALID_REQUEST"
	case http.StatusUnauthorized:
		return "AUTH_INVALID_TOKEN"
	case http.StatusNotFound:
		return "LISTING_NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case http.StatusTooManyRequests:
		return "SYSTEM_RATE_LIMITED"
	default:
		if status >= http.StatusInternalServerError {
			return "SYSTEM_INTERNAL_ERROR"
		}
		return "REQUEST_ERROR"
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}
