package api

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"pickup-address-matcher/internal/constants"
	"pickup-address-matcher/internal/locations"
	"pickup-address-matcher/internal/models"
	"pickup-address-matcher/pkg/address"
	errs "pickup-address-matcher/pkg/errors"
	"pickup-address-matcher/pkg/health"
	"pickup-address-matcher/pkg/logging"
	"pickup-address-matcher/pkg/monitoring"
)

// Handler serves the address and location endpoints.
type Handler struct {
	svc      *locations.Service
	matcher  *address.Matcher
	maxBatch int
	log      *logging.ComponentLogger
}

func NewHandler(svc *locations.Service, maxBatch int, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Nop()
	}
	if maxBatch <= 0 || maxBatch > constants.MaxBatchAddresses {
		maxBatch = constants.MaxBatchAddresses
	}
	return &Handler{svc: svc, matcher: svc.Matcher(), maxBatch: maxBatch, log: logger.WithComponent("api")}
}

// RouterOptions carries the optional pieces of NewRouter.
type RouterOptions struct {
	Health  *health.Manager
	Latency *monitoring.Latency // nil disables request monitoring
	Logger  *logging.Logger
}

// NewRouter mounts the API under /api/v1 and health probes at the root.
func NewRouter(h *Handler, opts RouterOptions) *mux.Router {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	r := mux.NewRouter()
	r.Use(RequestID, AccessLog(logger))
	if opts.Latency != nil {
		r.Use(monitoring.Middleware(opts.Latency))
	}

	if opts.Health != nil {
		for _, prefix := range []string{"", "/api/v1"} {
			r.HandleFunc(prefix+"/health", opts.Health.Handler()).Methods(http.MethodGet)
			r.HandleFunc(prefix+"/health/live", opts.Health.LiveHandler()).Methods(http.MethodGet)
			r.HandleFunc(prefix+"/health/ready", opts.Health.ReadyHandler()).Methods(http.MethodGet)
		}
	}

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/normalize", h.normalize).Methods(http.MethodPost)
	v1.HandleFunc("/similarity", h.similarity).Methods(http.MethodPost)
	v1.HandleFunc("/match", h.match).Methods(http.MethodPost)
	v1.HandleFunc("/group", h.group).Methods(http.MethodPost)

	v1.HandleFunc("/locations", h.resolve).Methods(http.MethodPost)
	v1.HandleFunc("/locations", h.list).Methods(http.MethodGet)
	v1.HandleFunc("/locations/groups", h.groups).Methods(http.MethodGet)
	v1.HandleFunc("/locations/backfill", h.backfill).Methods(http.MethodPost)
	v1.HandleFunc("/locations/{id:[0-9]+}", h.get).Methods(http.MethodGet)
	v1.HandleFunc("/locations/{id:[0-9]+}/aliases", h.aliases).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no such endpoint"})
	})
	return r
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, constants.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errs.NewValidation("api.decode", "request body is empty", nil)
		}
		return errs.NewValidation("api.decode", "invalid JSON body", err)
	}
	return nil
}

// threshold resolves an optional per-request threshold against the service
// default.
func (h *Handler) threshold(t *float64) (float64, error) {
	if t == nil {
		return h.svc.Threshold(), nil
	}
	if math.IsNaN(*t) || *t < 0 || *t > 1 {
		return 0, errs.NewValidation("api.threshold", "threshold must be between 0 and 1", nil)
	}
	return *t, nil
}

func (h *Handler) checkBatch(n int) error {
	if n > h.maxBatch {
		return errs.NewValidation("api.checkBatch", "too many addresses, limit is "+strconv.Itoa(h.maxBatch), nil)
	}
	return nil
}

type addressRequest struct {
	Address     string               `json:"address"`
	Coordinates *address.Coordinates `json:"coordinates,omitempty"`
}

func (h *Handler) normalize(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.matcher.Parse(req.Address, req.Coordinates))
}

type similarityRequest struct {
	A         string   `json:"a"`
	B         string   `json:"b"`
	Threshold *float64 `json:"threshold,omitempty"`
}

type similarityResponse struct {
	A         string  `json:"a"`
	B         string  `json:"b"`
	Score     float64 `json:"score"`
	Similar   bool    `json:"similar"`
	Threshold float64 `json:"threshold"`
}

func (h *Handler) similarity(w http.ResponseWriter, r *http.Request) {
	var req similarityRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := h.threshold(req.Threshold)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	a, b := h.matcher.Normalize(req.A), h.matcher.Normalize(req.B)
	writeJSON(w, http.StatusOK, similarityResponse{
		A:         a,
		B:         b,
		Score:     address.Similarity(a, b),
		Similar:   h.matcher.AreSimilar(req.A, req.B, t),
		Threshold: t,
	})
}

type matchRequest struct {
	Target     string   `json:"target"`
	Candidates []string `json:"candidates"`
	Threshold  *float64 `json:"threshold,omitempty"`
}

type matchResponse struct {
	Found bool           `json:"found"`
	Match *address.Match `json:"match,omitempty"`
}

func (h *Handler) match(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := h.threshold(req.Threshold)
	if err == nil {
		err = h.checkBatch(len(req.Candidates))
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	m, ok := h.matcher.FindBestMatch(req.Target, req.Candidates, t)
	resp := matchResponse{Found: ok}
	if ok {
		resp.Match = &m
	}
	writeJSON(w, http.StatusOK, resp)
}

type groupRequest struct {
	Addresses []string `json:"addresses"`
	Threshold *float64 `json:"threshold,omitempty"`
}

func (h *Handler) group(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := h.threshold(req.Threshold)
	if err == nil {
		err = h.checkBatch(len(req.Addresses))
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][][]string{"groups": h.matcher.GroupSimilar(req.Addresses, t)})
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.svc.Resolve(r.Context(), req.Address, req.Coordinates)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	code := http.StatusOK
	if res.Created {
		code = http.StatusCreated
	}
	writeJSON(w, code, res)
}

type listResponse struct {
	Locations []models.PickupLocation `json:"locations"`
	Total     int                     `json:"total"`
	Limit     int                     `json:"limit"`
	Offset    int                     `json:"offset"`
}

func queryInt(q map[string][]string, key string) (int, error) {
	v := ""
	if vs := q[key]; len(vs) > 0 {
		v = vs[0]
	}
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errs.NewValidation("api.queryInt", key+" must be a non-negative integer", err)
	}
	return n, nil
}

func parseFilter(r *http.Request) (locations.Filter, error) {
	q := r.URL.Query()
	f := locations.Filter{
		City:    strings.ToLower(strings.TrimSpace(q.Get("city"))),
		Country: strings.ToLower(strings.TrimSpace(q.Get("country"))),
	}
	if v := q.Get("has_coordinates"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, errs.NewValidation("api.parseFilter", "has_coordinates must be a boolean", err)
		}
		f.HasCoordinates = &b
	}
	if v := q.Get("near"); v != "" {
		parts := strings.Split(v, ",")
		if len(parts) != 2 {
			return f, errs.NewValidation("api.parseFilter", "near must be lat,lng", nil)
		}
		lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err1 != nil || err2 != nil || math.Abs(lat) > 90 || math.Abs(lng) > 180 {
			return f, errs.NewValidation("api.parseFilter", "near must be lat,lng", nil)
		}
		radius := 1000.0
		if rv := q.Get("radius_m"); rv != "" {
			var err error
			if radius, err = strconv.ParseFloat(rv, 64); err != nil {
				return f, errs.NewValidation("api.parseFilter", "radius_m must be a number", err)
			}
		}
		f.Near = &locations.Radius{Latitude: lat, Longitude: lng, Meters: radius}
	}
	return f, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r.URL.Query(), "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	offset, err := queryInt(r.URL.Query(), "offset")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	locs, total, err := h.svc.List(r.Context(), f, limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if locs == nil {
		locs = []models.PickupLocation{}
	}
	writeJSON(w, http.StatusOK, listResponse{Locations: locs, Total: total, Limit: limit, Offset: offset})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, errs.NewValidation("api.pathID", "invalid location id", err)
	}
	return id, nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	loc, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (h *Handler) aliases(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list, err := h.svc.Aliases(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"location_id": id, "aliases": list})
}

func (h *Handler) groups(w http.ResponseWriter, r *http.Request) {
	var t float64
	if v := r.URL.Query().Get("threshold"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			h.writeError(w, r, errs.NewValidation("api.groups", "threshold must be a number", err))
			return
		}
		if t, err = h.threshold(&parsed); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	groups, truncated, err := h.svc.Groups(r.Context(), t)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"groups": groups, "truncated": truncated})
}

func (h *Handler) backfill(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Backfill(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
