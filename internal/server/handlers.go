package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/cayleygraph/quad"

	"github.com/vanshika/sparqlconn/internal/query"
	"github.com/vanshika/sparqlconn/internal/rdf"
	"github.com/vanshika/sparqlconn/internal/repository"
	"github.com/vanshika/sparqlconn/internal/resultio"
)

const (
	mimeSPARQLQuery   = "application/sparql-query"
	mimeSPARQLUpdate  = "application/sparql-update"
	mimeSPARQLResults = "application/sparql-results+xml"
	mimeNQuads        = "application/n-quads"

	maxQueryBytes  = 1 << 20
	maxUploadBytes = 256 << 20
)

// SPARQLHandlers exposes a SPARQL protocol endpoint and graph management
// backed by a repository.
type SPARQLHandlers struct {
	logger *slog.Logger
	repo   *repository.Repository
}

// NewSPARQLHandlers constructs a SPARQLHandlers instance.
func NewSPARQLHandlers(logger *slog.Logger, repo *repository.Repository) *SPARQLHandlers {
	return &SPARQLHandlers{
		logger: logger,
		repo:   repo,
	}
}

type rulesetter interface {
	SetRulesets(rulesets ...query.Ruleset)
}

// sparqlRequest is a protocol request after the GET/POST variants have
// been normalised.
type sparqlRequest struct {
	text     string
	update   bool
	params   map[string][]string
	// start is the 1-based first row; only used when pageSize > 0.
	start    int64
	pageSize int64
}

func (h *SPARQLHandlers) handleSPARQL(w http.ResponseWriter, r *http.Request) {
	var (
		req sparqlRequest
		err error
	)
	switch r.Method {
	case http.MethodGet:
		req, err = parseGet(r)
	case http.MethodPost:
		req, err = parsePost(r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := h.repo.Connection()
	if err != nil {
		h.fail(w, "open connection", err)
		return
	}
	defer conn.Close(r.Context())

	q, err := conn.PrepareQuery(req.text, repository.WithBaseURI(first(req.params, "base")))
	if err != nil {
		h.fail(w, "prepare query", err)
		return
	}
	if _, isUpdate := q.(*repository.Update); isUpdate != req.update {
		writeError(w, http.StatusBadRequest, "query form does not match the request kind")
		return
	}
	if err := applySettings(q, req.params); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	out := &commitWriter{ResponseWriter: w}
	switch q := q.(type) {
	case *repository.TupleQuery:
		err = h.streamTuples(out, r, q, req)
	case *repository.BooleanQuery:
		var ok bool
		if ok, err = q.Evaluate(ctx); err == nil {
			w.Header().Set("Content-Type", mimeSPARQLResults)
			err = resultio.NewXMLWriter(out).HandleBoolean(ok)
		}
	case *repository.GraphQuery:
		var res *query.GraphResult
		if req.pageSize > 0 {
			res, err = q.EvaluateWindow(ctx, req.start, req.pageSize)
		} else {
			res, err = q.Evaluate(ctx)
		}
		if err == nil {
			w.Header().Set("Content-Type", mimeNQuads)
			err = res.Drain(resultio.NewNQuadsWriter(out))
		}
	case *repository.Update:
		if err = q.Execute(ctx); err == nil {
			w.WriteHeader(http.StatusNoContent)
		}
	}
	switch {
	case err == nil:
	case out.committed:
		// The status line is gone; the client sees a truncated body.
		h.logger.Error("result stream aborted", "error", err, "bytes", out.written)
	default:
		h.fail(w, "evaluate query", err)
	}
}

// commitWriter records whether any of the body reached the client.
type commitWriter struct {
	http.ResponseWriter
	committed bool
	written   int64
}

func (c *commitWriter) Write(p []byte) (int, error) {
	c.committed = true
	n, err := c.ResponseWriter.Write(p)
	c.written += int64(n)
	return n, err
}

// streamTuples evaluates before writing so that store errors still map to
// a status code.
func (h *SPARQLHandlers) streamTuples(w http.ResponseWriter, r *http.Request, q *repository.TupleQuery, req sparqlRequest) error {
	var (
		res *query.TupleResult
		err error
	)
	if req.pageSize > 0 {
		res, err = q.EvaluateWindow(r.Context(), req.start, req.pageSize)
	} else {
		res, err = q.Evaluate(r.Context())
	}
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", mimeSPARQLResults)
	return res.Drain(resultio.NewXMLWriter(w))
}

func (h *SPARQLHandlers) handleGraphs(w http.ResponseWriter, r *http.Request) {
	target, all, err := graphTarget(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := h.repo.Connection()
	if err != nil {
		h.fail(w, "open connection", err)
		return
	}
	defer conn.Close(r.Context())

	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		h.describeGraphs(w, r, conn, target, all)
	case http.MethodPost, http.MethodPut:
		format, ok := rdf.FormatForMIMEType(r.Header.Get("Content-Type"))
		if !ok {
			writeError(w, http.StatusUnsupportedMediaType, "unsupported RDF content type")
			return
		}
		body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if r.Method == http.MethodPut {
			if err := conn.Begin(ctx); err != nil {
				h.fail(w, "begin", err)
				return
			}
			if err := replaceGraph(r, conn, body, format, target); err != nil {
				_ = conn.Rollback(ctx)
				h.fail(w, "replace graph", err)
				return
			}
			if err := conn.Commit(ctx); err != nil {
				h.fail(w, "commit", err)
				return
			}
		} else if err := conn.Add(ctx, body, r.URL.Query().Get("base"), format, contextsOf(target, all)...); err != nil {
			h.fail(w, "load graph", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		if all {
			writeError(w, http.StatusBadRequest, "graph or default parameter is required")
			return
		}
		if err := conn.Clear(ctx, target); err != nil {
			h.fail(w, "clear graph", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete)
	}
}

func replaceGraph(r *http.Request, conn *repository.Connection, body io.Reader, format rdf.Format, target quad.Value) error {
	if err := conn.Clear(r.Context(), target); err != nil {
		return err
	}
	return conn.Add(r.Context(), body, r.URL.Query().Get("base"), format, target)
}

func (h *SPARQLHandlers) describeGraphs(w http.ResponseWriter, r *http.Request, conn *repository.Connection, target quad.Value, all bool) {
	ctx := r.Context()
	if !all {
		if r.URL.Query().Has("export") {
			w.Header().Set("Content-Type", mimeNQuads)
			if err := conn.Export(ctx, resultio.NewNQuadsWriter(w), target); err != nil {
				h.logger.Error("export failed", "error", err)
			}
			return
		}
		size, err := conn.Size(ctx, target)
		if err != nil {
			h.fail(w, "size", err)
			return
		}
		respondJSON(w, http.StatusOK, graphSizeResponse{Graph: graphName(target), Size: size})
		return
	}

	cur, err := conn.ContextIDs(ctx)
	if err != nil {
		h.fail(w, "context ids", err)
		return
	}
	ids, err := query.Collect(cur)
	if err != nil {
		h.fail(w, "context ids", err)
		return
	}
	size, err := conn.Size(ctx)
	if err != nil {
		h.fail(w, "size", err)
		return
	}
	resp := graphListResponse{Graphs: []string{}, Size: size}
	for _, id := range ids {
		resp.Graphs = append(resp.Graphs, rdf.StringValue(id))
	}
	respondJSON(w, http.StatusOK, resp)
}

// fail maps repository errors onto HTTP statuses.
func (h *SPARQLHandlers) fail(w http.ResponseWriter, op string, err error) {
	var malformed *repository.MalformedQueryError
	switch {
	case errors.As(err, &malformed):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrUnsupportedLanguage), errors.Is(err, repository.ErrInvalidPage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrRepositoryNotInitialized):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case repository.IsUsageError(err):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("store request failed", "op", op, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

// --- Request parsing ---

func parseGet(r *http.Request) (sparqlRequest, error) {
	params := r.URL.Query()
	text := params.Get("query")
	if text == "" {
		return sparqlRequest{}, errors.New("query parameter is required")
	}
	return withPaging(sparqlRequest{text: text, params: params})
}

func parsePost(r *http.Request) (sparqlRequest, error) {
	if r.Body == nil {
		return sparqlRequest{}, errors.New("request body is required")
	}
	defer r.Body.Close()

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return sparqlRequest{}, fmt.Errorf("invalid content type: %w", err)
	}
	switch mediaType {
	case mimeSPARQLQuery, mimeSPARQLUpdate:
		body, err := io.ReadAll(io.LimitReader(r.Body, maxQueryBytes))
		if err != nil {
			return sparqlRequest{}, err
		}
		return withPaging(sparqlRequest{
			text:   string(body),
			update: mediaType == mimeSPARQLUpdate,
			params: r.URL.Query(),
		})
	case "application/x-www-form-urlencoded":
		r.Body = io.NopCloser(io.LimitReader(r.Body, maxQueryBytes))
		if err := r.ParseForm(); err != nil {
			return sparqlRequest{}, err
		}
		req := sparqlRequest{params: r.Form}
		if text := r.PostForm.Get("update"); text != "" {
			req.text, req.update = text, true
		} else if req.text = r.PostForm.Get("query"); req.text == "" {
			return sparqlRequest{}, errors.New("query or update form field is required")
		}
		return withPaging(req)
	default:
		return sparqlRequest{}, fmt.Errorf("unsupported content type %q", mediaType)
	}
}

// withPaging reads either start/pageLength, the store's own window, or
// page/pageLength with 1-based pages.
func withPaging(req sparqlRequest) (sparqlRequest, error) {
	req.pageSize = int64(parseInt(first(req.params, "pageLength"), 0))
	if req.pageSize < 0 {
		return sparqlRequest{}, repository.ErrInvalidPage
	}
	if v := first(req.params, "start"); v != "" {
		req.start = int64(parseInt(v, 0))
	} else {
		page := int64(parseInt(first(req.params, "page"), 1))
		req.start = (page-1)*req.pageSize + 1
		if page < 1 {
			req.start = 0
		}
	}
	if req.start < 1 {
		return sparqlRequest{}, repository.ErrInvalidPage
	}
	return req, nil
}

func applySettings(q repository.Query, params map[string][]string) error {
	if v := first(params, "infer"); v != "" {
		include, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid infer value %q", v)
		}
		q.SetIncludeInferred(include)
	}
	if rs, ok := q.(rulesetter); ok && len(params["ruleset"]) > 0 {
		var rulesets []query.Ruleset
		for _, name := range params["ruleset"] {
			rulesets = append(rulesets, query.Ruleset(name))
		}
		rs.SetRulesets(rulesets...)
	}

	var ds query.Dataset
	for _, g := range params["default-graph-uri"] {
		ds.DefaultGraphs = append(ds.DefaultGraphs, quad.IRI(g))
	}
	for _, g := range params["named-graph-uri"] {
		ds.NamedGraphs = append(ds.NamedGraphs, quad.IRI(g))
	}
	for _, g := range params["using-graph-uri"] {
		ds.DefaultGraphs = append(ds.DefaultGraphs, quad.IRI(g))
	}
	for _, g := range params["using-named-graph-uri"] {
		ds.NamedGraphs = append(ds.NamedGraphs, quad.IRI(g))
	}
	if !ds.IsEmpty() {
		q.SetDataset(ds)
	}

	for name, values := range params {
		varName, ok := strings.CutPrefix(name, "$")
		if !ok || len(values) == 0 {
			continue
		}
		q.SetBinding(varName, parseTerm(values[0]))
	}
	return nil
}

// parseTerm reads a binding value: <iri> is an IRI, anything else a plain
// literal.
func parseTerm(v string) quad.Value {
	if strings.HasPrefix(v, "<") && strings.HasSuffix(v, ">") {
		return quad.IRI(v[1 : len(v)-1])
	}
	return quad.String(v)
}

// graphTarget resolves ?graph=<iri> or ?default. all is true when neither
// is given.
func graphTarget(r *http.Request) (quad.Value, bool, error) {
	params := r.URL.Query()
	switch {
	case params.Has("default") && params.Has("graph"):
		return nil, false, errors.New("graph and default are mutually exclusive")
	case params.Has("default"):
		return nil, false, nil
	case params.Get("graph") != "":
		return quad.IRI(params.Get("graph")), false, nil
	default:
		return nil, true, nil
	}
}

func contextsOf(target quad.Value, all bool) []quad.Value {
	if all || target == nil {
		return nil
	}
	return []quad.Value{target}
}

func graphName(v quad.Value) string {
	if v == nil {
		return rdf.StringValue(rdf.DefaultGraph)
	}
	return rdf.StringValue(v)
}

func first(params map[string][]string, key string) string {
	if values := params[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// --- Response DTOs ---

type graphSizeResponse struct {
	Graph string `json:"graph"`
	Size  int64  `json:"size"`
}

type graphListResponse struct {
	Graphs []string `json:"graphs"`
	Size   int64    `json:"size"`
}

// --- Helpers ---

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
