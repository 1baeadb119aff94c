package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/cayleygraph/quad"
	"github.com/icholy/digest"
	"golang.org/x/time/rate"

	"github.com/vanshika/sparqlconn/internal/metrics"
	"github.com/vanshika/sparqlconn/internal/query"
	"github.com/vanshika/sparqlconn/internal/rdf"
	"github.com/vanshika/sparqlconn/internal/resultio"
)

const (
	sparqlPath       = "/v1/graphs/sparql"
	graphsPath       = "/v1/graphs"
	transactionsPath = "/v1/transactions"
	pingPath         = "/v1/ping"

	mimeSPARQLQuery  = "application/sparql-query"
	mimeSPARQLUpdate = "application/sparql-update"
)

// NewRESTClient builds a client for the store's REST API. Nothing is
// contacted; callers verify with VerifyConnectivity.
func NewRESTClient(ctx context.Context, opts Options) (Client, error) {
	base, err := endpoint(opts)
	if err != nil {
		return nil, err
	}

	httpClient, err := buildHTTPClient(opts)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &restClient{
		base:     base,
		http:     httpClient,
		database: opts.Database,
		auth:     opts.AuthScheme,
		username: opts.Username,
		password: opts.Password,
		metrics:  opts.Metrics,
		logger:   logger.With("component", "rest-client", "endpoint", base.String()),
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return c, nil
}

func endpoint(opts Options) (*url.URL, error) {
	raw := opts.URI
	if raw == "" {
		if opts.Host == "" {
			return nil, ErrMissingURI
		}
		scheme := "http"
		if opts.UseTLS {
			scheme = "https"
		}
		raw = fmt.Sprintf("%s://%s:%d", scheme, opts.Host, opts.Port)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse store uri %q: %w", raw, err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u, nil
}

func buildHTTPClient(opts Options) (*http.Client, error) {
	client := &http.Client{}
	if opts.HTTPClient != nil {
		*client = *opts.HTTPClient
	}
	if client.Timeout == 0 {
		client.Timeout = opts.RequestTimeout
	}

	transport := client.Transport
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		if opts.MaxConnections > 0 {
			t.MaxConnsPerHost = opts.MaxConnections
			t.MaxIdleConnsPerHost = opts.MaxConnections
		}
		transport = t
	}

	switch opts.AuthScheme {
	case AuthDigest, "":
		if opts.Username != "" {
			transport = &digest.Transport{
				Username:  opts.Username,
				Password:  opts.Password,
				Transport: transport,
			}
		}
	case AuthBasic, AuthNone:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAuth, opts.AuthScheme)
	}
	client.Transport = transport

	// Transaction creation answers 303; the Location header is all we need.
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return client, nil
}

type restClient struct {
	base     *url.URL
	http     *http.Client
	database string
	auth     AuthScheme
	username string
	password string
	limiter  *rate.Limiter
	metrics  *metrics.Collector
	logger   *slog.Logger
}

func (c *restClient) Select(ctx context.Context, req QueryRequest) (*query.TupleResult, error) {
	params, err := queryParams(req)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, "select", http.MethodPost, sparqlPath, params, mimeSPARQLQuery, []byte(req.Query), resultio.SPARQLResultsJSON)
	if err != nil {
		return nil, err
	}
	return resultio.DecodeTuples(resp.Body)
}

func (c *restClient) Construct(ctx context.Context, req QueryRequest) (*query.GraphResult, error) {
	params, err := queryParams(req)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, "construct", http.MethodPost, sparqlPath, params, mimeSPARQLQuery, []byte(req.Query), rdf.NTriples.MIMEType)
	if err != nil {
		return nil, err
	}
	return resultio.DecodeStatements(resp.Body), nil
}

func (c *restClient) Ask(ctx context.Context, req QueryRequest) (bool, error) {
	params, err := queryParams(req)
	if err != nil {
		return false, err
	}
	resp, err := c.do(ctx, "ask", http.MethodPost, sparqlPath, params, mimeSPARQLQuery, []byte(req.Query), resultio.SPARQLResultsJSON)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resultio.DecodeBoolean(resp.Body)
}

func (c *restClient) Update(ctx context.Context, req UpdateRequest) error {
	params, err := updateParams(req)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, "update", http.MethodPost, sparqlPath, params, mimeSPARQLUpdate, []byte(req.Update), "")
	if err != nil {
		return err
	}
	return drain(resp)
}

func (c *restClient) Load(ctx context.Context, req LoadRequest) error {
	if req.Format.IsZero() {
		return errors.New("load: rdf format is required")
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("load: read source: %w", err)
	}
	data = withBase(data, req.Format, req.BaseURI)

	targets := req.Contexts
	if len(targets) == 0 {
		targets = []quad.Value{nil}
	}
	for _, target := range targets {
		params := url.Values{}
		switch {
		case target != nil:
			params.Set("graph", rdf.StringValue(target))
		case !req.Format.Quads:
			params.Set("default", "")
		}
		if req.TxID != "" {
			params.Set("txid", req.TxID)
		}
		resp, err := c.do(ctx, "load", http.MethodPost, graphsPath, params, req.Format.MIMEType, data, "")
		if err != nil {
			return err
		}
		if err := drain(resp); err != nil {
			return err
		}
	}
	return nil
}

func (c *restClient) InsertStatements(ctx context.Context, statements []quad.Quad, txID string) error {
	if len(statements) == 0 {
		return nil
	}
	return c.Update(ctx, UpdateRequest{Update: insertDataUpdate(statements), TxID: txID})
}

func (c *restClient) DeleteStatements(ctx context.Context, pattern Pattern, txID string) error {
	return c.Update(ctx, UpdateRequest{Update: deleteUpdate(pattern), TxID: txID})
}

func (c *restClient) ClearGraphs(ctx context.Context, graphs []quad.Value, txID string) error {
	return c.Update(ctx, UpdateRequest{Update: clearUpdate(graphs), TxID: txID})
}

func (c *restClient) MatchStatements(ctx context.Context, pattern Pattern, includeInferred bool, txID string) (*query.GraphResult, error) {
	res, err := c.Select(ctx, QueryRequest{Query: matchQuery(pattern), IncludeInferred: includeInferred, TxID: txID})
	if err != nil {
		return nil, err
	}
	statements := query.Map(res.Cursor, func(bs query.BindingSet) (quad.Quad, error) {
		return statementFromRow(pattern, bs), nil
	})
	return query.NewGraphResult(statements, nil), nil
}

func statementFromRow(p Pattern, bs query.BindingSet) quad.Quad {
	pick := func(fixed quad.Value, name string) quad.Value {
		if fixed != nil {
			return fixed
		}
		return bs.Value(name)
	}
	q := quad.Quad{
		Subject:   pick(p.Subject, "s"),
		Predicate: pick(p.Predicate, "p"),
		Object:    pick(p.Object, "o"),
		Label:     bs.Value("ctx"),
	}
	if rdf.Equal(q.Label, rdf.DefaultGraph) {
		q.Label = nil
	}
	return q
}

func (c *restClient) CountStatements(ctx context.Context, pattern Pattern, txID string) (int64, error) {
	res, err := c.Select(ctx, QueryRequest{Query: countQuery(pattern), TxID: txID})
	if err != nil {
		return 0, err
	}
	defer res.Close()
	if !res.HasNext() {
		if err := res.Err(); err != nil {
			return 0, err
		}
		return 0, nil
	}
	row, err := res.Next()
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(rdf.StringValue(row.Value("count")), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse statement count: %w", err)
	}
	return n, nil
}

func (c *restClient) Graphs(ctx context.Context, txID string) (*query.Cursor[quad.Value], error) {
	res, err := c.Select(ctx, QueryRequest{Query: graphsQuery, TxID: txID})
	if err != nil {
		return nil, err
	}
	return query.Map(res.Cursor, func(bs query.BindingSet) (quad.Value, error) {
		return bs.Value("_"), nil
	}), nil
}

func (c *restClient) BeginTransaction(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, "begin", http.MethodPost, transactionsPath, nil, "", nil, "")
	if err != nil {
		return "", err
	}
	location := resp.Header.Get("Location")
	if err := drain(resp); err != nil {
		return "", err
	}
	if location == "" {
		return "", errors.New("begin transaction: store returned no location")
	}
	loc, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("begin transaction: parse location %q: %w", location, err)
	}
	return path.Base(loc.Path), nil
}

func (c *restClient) CommitTransaction(ctx context.Context, txID string) error {
	return c.finishTransaction(ctx, "commit", txID)
}

func (c *restClient) RollbackTransaction(ctx context.Context, txID string) error {
	return c.finishTransaction(ctx, "rollback", txID)
}

func (c *restClient) finishTransaction(ctx context.Context, result, txID string) error {
	if txID == "" {
		return ErrUnknownTransaction
	}
	params := url.Values{"result": {result}}
	resp, err := c.do(ctx, result, http.MethodPost, transactionsPath+"/"+url.PathEscape(txID), params, "", nil, "")
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && (statusErr.StatusCode == http.StatusNotFound || statusErr.MessageCode == "XDMP-NOTXN") {
			return fmt.Errorf("%w: %s: %v", ErrUnknownTransaction, txID, err)
		}
		return err
	}
	return drain(resp)
}

func (c *restClient) VerifyConnectivity(ctx context.Context) error {
	resp, err := c.do(ctx, "ping", http.MethodGet, pingPath, nil, "", nil, "")
	if err != nil {
		return err
	}
	return drain(resp)
}

func (c *restClient) Close(context.Context) error {
	c.http.CloseIdleConnections()
	return nil
}

// do sends one request. Responses with a status of 400 or above are turned
// into a *StatusError and their body is closed.
func (c *restClient) do(ctx context.Context, op, method, p string, params url.Values, contentType string, body []byte, accept string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	u := *c.base
	u.Path += p
	if params == nil {
		params = url.Values{}
	}
	if c.database != "" {
		params.Set("database", c.database)
	}
	u.RawQuery = params.Encode()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if c.auth == AuthBasic && c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.ObserveRequest(op, 0, elapsed)
		return nil, fmt.Errorf("%s request: %w", op, err)
	}
	c.metrics.ObserveRequest(op, resp.StatusCode, elapsed)
	c.logger.Debug("store request", "operation", op, "status", resp.StatusCode, "duration_ms", elapsed.Milliseconds())

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, decodeError(op, resp)
	}
	return resp, nil
}

func drain(resp *http.Response) error {
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// StatusError is an error response from the store.
type StatusError struct {
	Operation   string
	StatusCode  int
	MessageCode string
	Message     string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("store %s failed with status %d", e.Operation, e.StatusCode)
	if e.MessageCode != "" {
		msg += " (" + e.MessageCode + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

type errorEnvelope struct {
	ErrorResponse struct {
		StatusCode  int    `json:"statusCode"`
		Status      string `json:"status"`
		MessageCode string `json:"messageCode"`
		Message     string `json:"message"`
	} `json:"errorResponse"`
}

func decodeError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	se := &StatusError{Operation: op, StatusCode: resp.StatusCode}
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.ErrorResponse.StatusCode != 0 {
		se.MessageCode = env.ErrorResponse.MessageCode
		se.Message = env.ErrorResponse.Message
		return se
	}
	se.Message = strings.TrimSpace(string(raw))
	return se
}
